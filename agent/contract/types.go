package contract

import (
	"github.com/cloudwego/eino/schema"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
)

// Reply is the outcome of one shopper-agent invocation: the assistant's
// natural-language message, the cart actions decoded from its tool calls in
// the order they were issued, and the full replacement conversation history.
//
// History is opaque to callers: the session stores it and hands it back on
// the next invocation, nothing else interprets it.
type Reply struct {
	Message string            `json:"message"`
	Actions []cartx.Action    `json:"actions,omitempty"`
	History []*schema.Message `json:"history,omitempty"`
}
