package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
	catalogx "github.com/pattaradanai/shopmate/agent/catalog"
	contractx "github.com/pattaradanai/shopmate/agent/contract"
)

const ToolCartManage = "cart.manage"

// Outcome is the result of one tool call. Content always carries the text
// fed back to the model: a successful cart.manage call echoes the action
// payload as JSON for DecodeAction to consume, a malformed call carries a
// plain-text explanation that fails that decode and is skipped.
type Outcome struct {
	Tool    string
	Content string
}

type Executor func(ctx context.Context, tool string, args map[string]any) (Outcome, error)

// BuildForShopper returns the tool schema and its executor.
func BuildForShopper(cat *catalogx.Catalog) ([]*schema.ToolInfo, Executor) {
	return Infos(), NewExecutor(cat)
}

func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolCartManage,
			Desc: "Add, remove, or update a product quantity in the shopping cart.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_name": {Type: schema.String, Desc: "Name of the product", Required: true},
				"action":       {Type: schema.String, Desc: "One of 'add', 'remove', 'update'", Required: true},
				"quantity":     {Type: schema.Integer, Desc: "Quantity to add or set (default 1)"},
				"price":        {Type: schema.Number, Desc: "Price for items not in the catalog"},
			}),
		},
	}
}

func NewExecutor(cat *catalogx.Catalog) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (Outcome, error) {
		switch tool {
		case ToolCartManage:
			return executeCartManage(cat, args)
		default:
			return Outcome{
				Tool:    tool,
				Content: fmt.Sprintf("tool=%s is not available", tool),
			}, nil
		}
	}
}

// payload mirrors the wire shape consumed by the cart engine and echoed to
// the model as the tool result.
type payload struct {
	Action   cartx.ActionKind `json:"action"`
	Product  string           `json:"product"`
	Quantity int              `json:"quantity"`
	Price    float64          `json:"price"`
	Emoji    string           `json:"emoji"`
	IsCustom bool             `json:"is_custom"`
}

func executeCartManage(cat *catalogx.Catalog, args map[string]any) (Outcome, error) {
	product := strings.TrimSpace(stringArg(args, "product_name"))
	if product == "" {
		return Outcome{Tool: ToolCartManage, Content: "product_name is required"}, nil
	}

	kind, ok := cartx.ParseKind(stringArg(args, "action"))
	if !ok {
		return Outcome{Tool: ToolCartManage, Content: "action must be one of 'add', 'remove', 'update'"}, nil
	}

	quantity := intArg(args, "quantity", 1)
	price := floatArg(args, "price", 0)

	p := payload{Action: kind, Product: product, Quantity: quantity}
	if known, hit := cat.Lookup(product); hit {
		p.Product = known.Name
		p.Price = known.Price
		p.Emoji = known.Emoji
	} else {
		p.IsCustom = true
		p.Price = price
		if p.Price <= 0 {
			p.Price = catalogx.DefaultCustomPrice
		}
		p.Emoji = catalogx.DefaultCustomEmoji
	}

	content, err := json.Marshal(p)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal cart payload: %w", err)
	}
	return Outcome{Tool: ToolCartManage, Content: string(content)}, nil
}

// DecodeAction parses a raw tool-result payload into a cart action. It is
// the inverse of the executor's echo and tolerates partial payloads:
// quantity defaults to 1, emoji to the custom glyph.
func DecodeAction(raw string) (cartx.Action, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return cartx.Action{}, fmt.Errorf("%w: %v", contractx.ErrMalformedAction, err)
	}
	kind, ok := cartx.ParseKind(string(p.Action))
	if !ok {
		return cartx.Action{}, fmt.Errorf("%w: unknown kind %q", contractx.ErrMalformedAction, p.Action)
	}
	if strings.TrimSpace(p.Product) == "" {
		return cartx.Action{}, fmt.Errorf("%w: product is empty", contractx.ErrMalformedAction)
	}
	if p.Quantity == 0 && kind == cartx.ActionAdd {
		p.Quantity = 1
	}
	if p.Emoji == "" {
		p.Emoji = catalogx.DefaultCustomEmoji
	}
	return cartx.Action{
		Kind:     kind,
		Product:  p.Product,
		Quantity: p.Quantity,
		Price:    p.Price,
		Emoji:    p.Emoji,
	}, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}

func floatArg(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return fallback
}
