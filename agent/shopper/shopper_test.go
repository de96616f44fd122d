package shopper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
	catalogx "github.com/pattaradanai/shopmate/agent/catalog"
	contractx "github.com/pattaradanai/shopmate/agent/contract"
	toolx "github.com/pattaradanai/shopmate/agent/tool"
)

type fakeModel struct {
	responses []*schema.Message
	err       error
	calls     int
	inputs    [][]*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	f.inputs = append(f.inputs, append([]*schema.Message(nil), input...))
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		return nil, fmt.Errorf("no response left at call=%d", f.calls)
	}
	return f.responses[idx], nil
}

func (f *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in fake")
}

func (f *fakeModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func assistantToolCall(id, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{
				ID: id,
				Function: schema.FunctionCall{
					Name:      toolx.ToolCartManage,
					Arguments: args,
				},
			},
		},
	}
}

func assistantText(text string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: text}
}

func newTestShopper(t *testing.T, fake *fakeModel) *Shopper {
	t.Helper()
	s, err := NewWithModel(fake, catalogx.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestInvokePlainReply(t *testing.T) {
	t.Parallel()

	fake := &fakeModel{responses: []*schema.Message{assistantText("Hello! What do you need?")}}
	s := newTestShopper(t, fake)

	reply, err := s.Invoke(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Message != "Hello! What do you need?" {
		t.Fatalf("unexpected message: %s", reply.Message)
	}
	if len(reply.Actions) != 0 {
		t.Fatalf("expected no actions, got %d", len(reply.Actions))
	}
	// system + user + assistant
	if len(reply.History) != 3 {
		t.Fatalf("unexpected history length: %d", len(reply.History))
	}
	if reply.History[0].Role != schema.System {
		t.Fatal("fresh history must start with the system prompt")
	}
}

func TestInvokeToolCallProducesAction(t *testing.T) {
	t.Parallel()

	fake := &fakeModel{responses: []*schema.Message{
		assistantToolCall("call-1", `{"product_name":"salt","action":"add","quantity":2}`),
		assistantText("Added 2 Salt to your cart."),
	}}
	s := newTestShopper(t, fake)

	reply, err := s.Invoke(context.Background(), "add two salt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(reply.Actions))
	}
	a := reply.Actions[0]
	if a.Kind != cartx.ActionAdd || a.Product != "Salt" || a.Quantity != 2 {
		t.Fatalf("unexpected action: %+v", a)
	}
	if a.Price != 2.50 {
		t.Fatalf("expected catalog price, got %v", a.Price)
	}
	// second generate must see the tool message
	second := fake.inputs[1]
	last := second[len(second)-1]
	if last.Role != schema.Tool {
		t.Fatalf("expected tool message fed back, got role %s", last.Role)
	}
	if last.ToolCallID != "call-1" {
		t.Fatalf("tool message must carry the call id, got %q", last.ToolCallID)
	}
}

func TestInvokeActionsPreserveCallOrder(t *testing.T) {
	t.Parallel()

	multi := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "c1", Function: schema.FunctionCall{Name: toolx.ToolCartManage, Arguments: `{"product_name":"Salt","action":"add","quantity":1}`}},
			{ID: "c2", Function: schema.FunctionCall{Name: toolx.ToolCartManage, Arguments: `{"product_name":"Salt","action":"update","quantity":5}`}},
		},
	}
	fake := &fakeModel{responses: []*schema.Message{multi, assistantText("Done.")}}
	s := newTestShopper(t, fake)

	reply, err := s.Invoke(context.Background(), "one salt, then make it five", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(reply.Actions))
	}
	if reply.Actions[0].Kind != cartx.ActionAdd || reply.Actions[1].Kind != cartx.ActionUpdate {
		t.Fatalf("actions out of order: %+v", reply.Actions)
	}
}

func TestInvokeMalformedToolArgumentsAreSkipped(t *testing.T) {
	t.Parallel()

	bad := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "c1", Function: schema.FunctionCall{Name: toolx.ToolCartManage, Arguments: `{broken`}},
			{ID: "c2", Function: schema.FunctionCall{Name: toolx.ToolCartManage, Arguments: `{"product_name":"Soap","action":"add"}`}},
		},
	}
	fake := &fakeModel{responses: []*schema.Message{bad, assistantText("Added soap.")}}
	s := newTestShopper(t, fake)

	reply, err := s.Invoke(context.Background(), "soap please", nil)
	if err != nil {
		t.Fatalf("malformed payloads must not fail the turn: %v", err)
	}
	if len(reply.Actions) != 1 {
		t.Fatalf("expected the valid call to survive, got %d actions", len(reply.Actions))
	}
	if reply.Actions[0].Product != "Soap" {
		t.Fatalf("unexpected action: %+v", reply.Actions[0])
	}
}

func TestInvokeModelErrorWrapsSentinel(t *testing.T) {
	t.Parallel()

	fake := &fakeModel{err: errors.New("upstream down")}
	s := newTestShopper(t, fake)

	_, err := s.Invoke(context.Background(), "find me unicorns", nil)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestInvokeReusesExistingHistory(t *testing.T) {
	t.Parallel()

	history := []*schema.Message{
		schema.SystemMessage("existing prompt"),
		schema.UserMessage("earlier"),
		assistantText("earlier reply"),
	}
	fake := &fakeModel{responses: []*schema.Message{assistantText("and again")}}
	s := newTestShopper(t, fake)

	reply, err := s.Invoke(context.Background(), "again", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.History) != 5 {
		t.Fatalf("unexpected history length: %d", len(reply.History))
	}
	if reply.History[0].Content != "existing prompt" {
		t.Fatal("existing history must be passed through unmodified")
	}
}

func TestInvokeToolRoundsExhausted(t *testing.T) {
	t.Parallel()

	responses := make([]*schema.Message, 0, maxToolRounds)
	for i := 0; i < maxToolRounds; i++ {
		responses = append(responses, assistantToolCall(fmt.Sprintf("c%d", i), `{"product_name":"Salt","action":"add"}`))
	}
	fake := &fakeModel{responses: responses}
	s := newTestShopper(t, fake)

	_, err := s.Invoke(context.Background(), "salt forever", nil)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke after round limit, got %v", err)
	}
}
