// Package web serves the chat UI: the full page shell plus the HTMX
// fragments that /send and the cart quantity endpoints return.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
	statex "github.com/pattaradanai/shopmate/agent/state"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

type messageView struct {
	Text   string
	IsUser bool
}

type cartLineView struct {
	Name     string
	Emoji    string
	Price    string
	Quantity int
}

type cartView struct {
	Lines     []cartLineView
	CountText string
	Total     string
	HasItems  bool
}

type pageView struct {
	Cart cartView
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func countText(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func newCartView(sum cartx.Summary) cartView {
	view := cartView{
		CountText: countText(sum.ItemCount),
		Total:     money(sum.Total),
		HasItems:  !sum.Empty(),
	}
	for _, line := range sum.Lines {
		view.Lines = append(view.Lines, cartLineView{
			Name:     line.Name,
			Emoji:    line.Emoji,
			Price:    money(line.UnitPrice),
			Quantity: line.Quantity,
		})
	}
	return view
}

func newMessageView(turn statex.Turn) messageView {
	return messageView{Text: turn.Text, IsUser: turn.IsUser()}
}

func (h *Handler) render(w io.Writer, name string, data any) error {
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}
