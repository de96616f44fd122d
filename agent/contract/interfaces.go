package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Shopper interprets a user utterance against prior conversation history and
// returns the assistant reply plus any structured cart actions.
type Shopper interface {
	Invoke(ctx context.Context, text string, history []*schema.Message) (Reply, error)
}
