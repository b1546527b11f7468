package chatgraph

import (
	"context"

	"github.com/vasilisp/chatgraph/pkg/slicev"
	"github.com/vasilisp/chatgraph/store"
)

// ChatbotNode is the name of the single node of the graph built by
// NewChatbot.
const ChatbotNode = "chatbot"

// Turns counts completed chatbot turns in a run.
var Turns = store.FreshVar[int]("turns")

// TurnProcessor produces the next assistant message for a transcript.
type TurnProcessor interface {
	Respond(ctx context.Context, history slicev.RO[Message]) (Message, error)
}

type TurnProcessorFunc func(ctx context.Context, history slicev.RO[Message]) (Message, error)

func (f TurnProcessorFunc) Respond(ctx context.Context, history slicev.RO[Message]) (Message, error) {
	return f(ctx, history)
}

// ProcessorNode wraps a TurnProcessor as a graph node that appends the reply
// and bumps Turns.
func ProcessorNode(p TurnProcessor) NodeFunc {
	return func(ctx context.Context, state *State) (Update, error) {
		reply, err := p.Respond(ctx, state.Messages())
		if err != nil {
			return Update{}, err
		}
		reply.Role = Assistant

		turns, _ := store.GetRO(state.Vars(), Turns)
		vars := store.NewStore()
		store.Set(vars, Turns, turns+1)

		return Update{Messages: []Message{reply}, Vars: vars}, nil
	}
}

// NewChatbot compiles the graph Start -> chatbot -> End.
func NewChatbot(p TurnProcessor) (*Graph, error) {
	g := NewStateGraph(AddMessages)

	if err := g.AddNode(ChatbotNode, ProcessorNode(p)); err != nil {
		return nil, err
	}
	if err := g.AddEdge(Start, ChatbotNode); err != nil {
		return nil, err
	}
	if err := g.AddEdge(ChatbotNode, End); err != nil {
		return nil, err
	}

	return g.Compile()
}
