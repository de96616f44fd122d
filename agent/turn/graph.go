package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	statex "github.com/pattaradanai/shopmate/agent/state"
)

const (
	nodeValidate = "validate"
	nodeClear    = "clear_chat"
	nodeDispatch = "dispatch_agent"
	nodeFinalize = "finalize"
)

// turnState is the value threaded through the turn graph.
type turnState struct {
	Session    *statex.Session
	Text       string
	Normalized string

	UserTurn      statex.Turn
	AssistantTurn statex.Turn
	Status        Status
}

type runner interface {
	Invoke(ctx context.Context, in Input, opts ...compose.Option) (Result, error)
}

// compileTurnGraph wires the turn pipeline: validate, then branch between
// the clear-command shortcut and full agent dispatch, then summarize.
func (c *Coordinator) compileTurnGraph(ctx context.Context) (runner, error) {
	g := compose.NewGraph[Input, Result]()

	validate := compose.InvokableLambda(func(_ context.Context, in Input) (*turnState, error) {
		trimmed := strings.TrimSpace(in.Text)
		if trimmed == "" {
			return nil, ErrBlankInput
		}
		return &turnState{
			Session:    in.Session,
			Text:       trimmed,
			Normalized: strings.ToLower(trimmed),
			Status:     StatusIdle,
		}, nil
	})

	clear := compose.InvokableLambda(func(_ context.Context, st *turnState) (*turnState, error) {
		return c.runClear(st)
	})

	dispatch := compose.InvokableLambda(func(ctx context.Context, st *turnState) (*turnState, error) {
		return c.runDispatch(ctx, st)
	})

	finalize := compose.InvokableLambda(func(_ context.Context, st *turnState) (Result, error) {
		return Result{
			UserTurn:      st.UserTurn,
			AssistantTurn: st.AssistantTurn,
			Summary:       st.Session.Cart.Summarize(),
			Status:        st.Status,
		}, nil
	})

	if err := g.AddLambdaNode(nodeValidate, validate); err != nil {
		return nil, fmt.Errorf("add validate node: %w", err)
	}
	if err := g.AddLambdaNode(nodeClear, clear); err != nil {
		return nil, fmt.Errorf("add clear node: %w", err)
	}
	if err := g.AddLambdaNode(nodeDispatch, dispatch); err != nil {
		return nil, fmt.Errorf("add dispatch node: %w", err)
	}
	if err := g.AddLambdaNode(nodeFinalize, finalize); err != nil {
		return nil, fmt.Errorf("add finalize node: %w", err)
	}

	if err := g.AddEdge(compose.START, nodeValidate); err != nil {
		return nil, fmt.Errorf("edge start->validate: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(_ context.Context, st *turnState) (string, error) {
			if isClearCommand(st.Normalized) {
				return nodeClear, nil
			}
			return nodeDispatch, nil
		},
		map[string]bool{nodeClear: true, nodeDispatch: true},
	)
	if err := g.AddBranch(nodeValidate, branch); err != nil {
		return nil, fmt.Errorf("add turn branch: %w", err)
	}

	if err := g.AddEdge(nodeClear, nodeFinalize); err != nil {
		return nil, fmt.Errorf("edge clear->finalize: %w", err)
	}
	if err := g.AddEdge(nodeDispatch, nodeFinalize); err != nil {
		return nil, fmt.Errorf("edge dispatch->finalize: %w", err)
	}
	if err := g.AddEdge(nodeFinalize, compose.END); err != nil {
		return nil, fmt.Errorf("edge finalize->end: %w", err)
	}

	r, err := g.Compile(ctx, compose.WithGraphName("shopmate_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return r, nil
}
