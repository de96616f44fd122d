package turn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
	contractx "github.com/pattaradanai/shopmate/agent/contract"
	statex "github.com/pattaradanai/shopmate/agent/state"
)

const (
	clearAck      = "Chat cleared! How can I help you?"
	apologyPrefix = "Sorry, I encountered an error: "
)

// ErrBlankInput rejects empty or whitespace-only messages. A blank turn has
// no side effects: no transcript entry, no agent call.
var ErrBlankInput = contractx.ErrBlankInput

// Status tracks a turn through its lifecycle. Failed is terminal for the
// turn but never for the session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusDispatched Status = "dispatched"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Input is one submitted chat message against a resolved session.
type Input struct {
	Session *statex.Session
	Text    string
}

// Result is what every completed turn hands back for rendering: both fresh
// turns and the cart summary reflecting any mutations.
type Result struct {
	UserTurn      statex.Turn
	AssistantTurn statex.Turn
	Summary       cartx.Summary
	Status        Status
}

// Coordinator orchestrates one chat turn: clear-command shortcut, shopper
// dispatch, in-order cart action application, transcript bookkeeping. All
// per-session serialization happens here; callers never lock sessions.
type Coordinator struct {
	store   statex.Store
	shopper contractx.Shopper
	runner  runner
	now     func() time.Time
}

func New(store statex.Store, shopper contractx.Shopper) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if shopper == nil {
		return nil, errors.New("shopper agent is required")
	}

	c := &Coordinator{
		store:   store,
		shopper: shopper,
		now:     time.Now,
	}

	r, err := c.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	c.runner = r
	return c, nil
}

// Resolve returns the session for a client token, creating one for absent
// or unknown tokens.
func (c *Coordinator) Resolve(token string) (*statex.Session, string, bool) {
	return c.store.Resolve(token)
}

// SubmitTurn runs one chat turn under the session lock. Blank input returns
// ErrBlankInput and leaves the session untouched; every other failure mode
// is absorbed into an apology turn and still returns a Result.
func (c *Coordinator) SubmitTurn(ctx context.Context, sess *statex.Session, text string) (Result, error) {
	if sess == nil {
		return Result{}, errors.New("session is required")
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrBlankInput
	}

	sess.Lock()
	defer sess.Unlock()

	out, err := c.runner.Invoke(ctx, Input{Session: sess, Text: text})
	if err != nil {
		return Result{}, err
	}
	sess.Touch(c.now())
	return out, nil
}

// Increment bumps a cart line by one and returns the fresh summary. Absent
// products are a silent no-op.
func (c *Coordinator) Increment(sess *statex.Session, name string) cartx.Summary {
	sess.Lock()
	defer sess.Unlock()
	sess.Cart.Increment(name)
	sess.Touch(c.now())
	return sess.Cart.Summarize()
}

// Decrement lowers a cart line by one, deleting it at zero.
func (c *Coordinator) Decrement(sess *statex.Session, name string) cartx.Summary {
	sess.Lock()
	defer sess.Unlock()
	sess.Cart.Decrement(name)
	sess.Touch(c.now())
	return sess.Cart.Summarize()
}

// Transcript returns a copy of the session transcript.
func (c *Coordinator) Transcript(sess *statex.Session) []statex.Turn {
	sess.Lock()
	defer sess.Unlock()
	return sess.Snapshot()
}

// Summary returns the current cart summary.
func (c *Coordinator) Summary(sess *statex.Session) cartx.Summary {
	sess.Lock()
	defer sess.Unlock()
	return sess.Cart.Summarize()
}

// isClearCommand matches the chat-reset shortcuts that bypass the agent.
func isClearCommand(normalized string) bool {
	switch normalized {
	case "clear", "clear chat", "reset":
		return true
	default:
		return false
	}
}

// runClear wipes the transcript and agent history, leaving the cart alone.
func (c *Coordinator) runClear(st *turnState) (*turnState, error) {
	sess := st.Session
	sess.ClearChat()
	st.UserTurn = statex.Turn{Text: st.Text, Speaker: statex.SpeakerUser}
	st.AssistantTurn = sess.Append(statex.SpeakerAssistant, clearAck)
	st.Status = StatusCompleted
	log.Debug().Str("session", sess.Token).Msg("chat cleared")
	return st, nil
}

// runDispatch appends the user turn, invokes the shopper, and applies its
// cart actions in order. A shopper failure is contained here: the cart and
// history stay as they were before the call and the assistant apologizes.
func (c *Coordinator) runDispatch(ctx context.Context, st *turnState) (*turnState, error) {
	sess := st.Session
	st.UserTurn = sess.Append(statex.SpeakerUser, st.Text)
	st.Status = StatusDispatched

	reply, err := c.shopper.Invoke(ctx, st.Text, sess.History)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.Token).Msg("shopper invoke failed")
		st.AssistantTurn = sess.Append(statex.SpeakerAssistant, apologyPrefix+err.Error())
		st.Status = StatusFailed
		return st, nil
	}

	// Order matters: add/update merge policies are order-sensitive when one
	// turn touches the same product more than once.
	for _, action := range reply.Actions {
		sess.Cart.Apply(action)
	}

	st.AssistantTurn = sess.Append(statex.SpeakerAssistant, reply.Message)
	sess.History = reply.History
	st.Status = StatusCompleted

	log.Info().
		Str("session", sess.Token).
		Int("actions", len(reply.Actions)).
		Int("cart_lines", sess.Cart.Len()).
		Msg("turn completed")
	return st, nil
}
