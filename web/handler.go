package web

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	statex "github.com/pattaradanai/shopmate/agent/state"
	"github.com/pattaradanai/shopmate/agent/turn"
)

const (
	sessionCookieName   = "session_id"
	sessionCookieMaxAge = 30 * 24 * time.Hour
)

// Handler owns the HTTP surface. All session and cart state lives behind
// the turn coordinator; handlers only translate HTTP to turns and turns
// to HTML fragments.
type Handler struct {
	coord *turn.Coordinator
	tmpl  *template.Template
}

func NewHandler(coord *turn.Coordinator) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{coord: coord, tmpl: tmpl}, nil
}

// Routes builds the chi router with the standard middleware stack.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/health"))

	r.Get("/", h.index)
	r.Get("/messages", h.messages)
	r.Post("/send", h.send)
	r.Post("/cart/increase/{name}", h.cartIncrease)
	r.Post("/cart/decrease/{name}", h.cartDecrease)
	r.Post("/checkout", h.checkout)
	return r
}

// checkout is a demo no-op: it acknowledges the click without touching the
// cart, since payment processing is out of scope.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	sess := h.resolveSession(w, r)
	log.Info().Str("session", sess.Token).Msg("checkout requested (no-op)")
	w.WriteHeader(http.StatusNoContent)
}

// resolveSession reads the session cookie, resolves (or creates) the
// session, and refreshes the cookie so active users never expire out.
func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) *statex.Session {
	var token string
	if c, err := r.Cookie(sessionCookieName); err == nil {
		token = c.Value
	}

	sess, token, created := h.coord.Resolve(token)
	if created {
		log.Debug().Str("session", token).Msg("new session")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	sess := h.resolveSession(w, r)

	data := pageView{Cart: newCartView(h.coord.Summary(sess))}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.render(w, "index.html", data); err != nil {
		log.Error().Err(err).Msg("render index")
	}
}

// messages renders the transcript, or the welcome screen when it is empty.
func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	sess := h.resolveSession(w, r)

	transcript := h.coord.Transcript(sess)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(transcript) == 0 {
		if err := h.render(w, "welcome", nil); err != nil {
			log.Error().Err(err).Msg("render welcome")
		}
		return
	}

	for _, t := range transcript {
		if err := h.render(w, "message", newMessageView(t)); err != nil {
			log.Error().Err(err).Msg("render message")
			return
		}
	}
}

// send runs one chat turn and returns both chat bubbles plus out-of-band
// cart fragments so a single response updates chat and sidebar together.
func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	sess := h.resolveSession(w, r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	text := r.PostFormValue("message")

	res, err := h.coord.SubmitTurn(r.Context(), sess, text)
	if errors.Is(err, turn.ErrBlankInput) {
		// Nothing to append; 204 keeps HTMX from swapping anything.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("submit turn")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	for _, view := range []messageView{newMessageView(res.UserTurn), newMessageView(res.AssistantTurn)} {
		if err := h.render(w, "message", view); err != nil {
			log.Error().Err(err).Msg("render message")
			return
		}
	}
	if err := h.render(w, "cart-oob", newCartView(res.Summary)); err != nil {
		log.Error().Err(err).Msg("render cart")
	}
}

func (h *Handler) cartIncrease(w http.ResponseWriter, r *http.Request) {
	sess := h.resolveSession(w, r)
	sum := h.coord.Increment(sess, chi.URLParam(r, "name"))
	h.renderCart(w, newCartView(sum))
}

func (h *Handler) cartDecrease(w http.ResponseWriter, r *http.Request) {
	sess := h.resolveSession(w, r)
	sum := h.coord.Decrement(sess, chi.URLParam(r, "name"))
	h.renderCart(w, newCartView(sum))
}

// renderCart answers the quantity buttons: the line list for the direct
// #cart-items swap, then the count/total/footer out-of-band.
func (h *Handler) renderCart(w http.ResponseWriter, view cartView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.render(w, "cart-lines", view); err != nil {
		log.Error().Err(err).Msg("render cart lines")
		return
	}
	if err := h.render(w, "cart-meta-oob", view); err != nil {
		log.Error().Err(err).Msg("render cart meta")
	}
}
