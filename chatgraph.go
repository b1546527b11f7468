// Package chatgraph runs conversations through a small state graph. The
// conversation is an append-only transcript: nodes read it through a
// read-only view and contribute new messages as updates, which are merged
// with a Reducer that may only append.
package chatgraph

import (
	"errors"

	"github.com/google/uuid"
	"github.com/vasilisp/chatgraph/pkg/slicev"
	"github.com/vasilisp/chatgraph/store"
)

type Role uint8

const (
	User Role = iota
	System
	Assistant
)

func (r Role) String() string {
	switch r {
	case User:
		return "user"
	case System:
		return "system"
	case Assistant:
		return "assistant"
	default:
		return "unknown"
	}
}

type Message struct {
	Role    Role
	Content string
}

func UserMessage(content string) Message {
	return Message{Role: User, Content: content}
}

func SystemMessage(content string) Message {
	return Message{Role: System, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: Assistant, Content: content}
}

// ErrReducerOverwrite is returned when a reducer result does not keep the
// existing history as an unchanged prefix.
var ErrReducerOverwrite = errors.New("reducer rewrote existing history")

// Reducer combines the current history with the messages of an update.
type Reducer func(history slicev.RO[Message], update []Message) []Message

// AddMessages is the default Reducer: the update is appended.
func AddMessages(history slicev.RO[Message], update []Message) []Message {
	merged := make([]Message, history.Len(), history.Len()+len(update))
	history.CopyTo(merged)
	return append(merged, update...)
}

// Chat is the conversation transcript of one run.
type Chat interface {
	History() slicev.RO[Message]
	merge(update []Message, reducer Reducer) error
}

type SliceChat struct {
	history []Message
}

func NewSliceChat() Chat {
	return &SliceChat{history: make([]Message, 0)}
}

func (c *SliceChat) History() slicev.RO[Message] {
	return slicev.NewRO(c.history)
}

func (c *SliceChat) merge(update []Message, reducer Reducer) error {
	if len(update) == 0 {
		return nil
	}

	merged := reducer(c.History(), update)
	if len(merged) < len(c.history) {
		return ErrReducerOverwrite
	}
	for i, msg := range c.history {
		if merged[i] != msg {
			return ErrReducerOverwrite
		}
	}

	c.history = merged

	return nil
}

// Update is what a node (or the caller, as graph input) contributes to the
// state. Messages go through the graph's Reducer; Vars overwrite.
type Update struct {
	Messages []Message
	Vars     store.Store
}

// State is the full graph state of one run: the transcript plus the
// overwrite-semantics variables.
type State struct {
	id   string
	chat Chat
	vars store.Store
}

// NewState creates the state for a run. A nil chat starts an empty
// transcript.
func NewState(chat Chat) *State {
	if chat == nil {
		chat = NewSliceChat()
	}

	return &State{
		id:   uuid.Must(uuid.NewV7()).String(),
		chat: chat,
		vars: store.NewStore(),
	}
}

// ID returns the unique session identifier of the run.
func (s *State) ID() string {
	return s.id
}

func (s *State) Messages() slicev.RO[Message] {
	return s.chat.History()
}

func (s *State) Vars() store.StoreRO {
	return s.vars.RO()
}

func (s *State) apply(update Update, reducer Reducer) error {
	if err := s.chat.merge(update.Messages, reducer); err != nil {
		return err
	}

	store.Merge(s.vars, update.Vars)

	return nil
}
