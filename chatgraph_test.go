package chatgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasilisp/chatgraph/pkg/slicev"
	"github.com/vasilisp/chatgraph/store"
)

func TestAddMessagesAppends(t *testing.T) {
	history := slicev.NewRO([]Message{UserMessage("Hello")})

	merged := AddMessages(history, []Message{AssistantMessage("Hi")})

	assert.Equal(t, []Message{UserMessage("Hello"), AssistantMessage("Hi")}, merged)
	assert.Equal(t, 1, history.Len())
}

func TestSliceChatRejectsOverwritingReducer(t *testing.T) {
	chat := NewSliceChat()
	require.NoError(t, chat.merge([]Message{UserMessage("first")}, AddMessages))

	replace := func(_ slicev.RO[Message], update []Message) []Message {
		return update
	}
	err := chat.merge([]Message{UserMessage("second")}, replace)
	assert.ErrorIs(t, err, ErrReducerOverwrite)

	rewrite := func(history slicev.RO[Message], update []Message) []Message {
		msgs := history.Clone()
		msgs[0].Content = "edited"
		return append(msgs, update...)
	}
	err = chat.merge([]Message{UserMessage("second")}, rewrite)
	assert.ErrorIs(t, err, ErrReducerOverwrite)

	assert.Equal(t, []Message{UserMessage("first")}, chat.History().Clone())
}

func TestSliceChatEmptyUpdateIsNoop(t *testing.T) {
	chat := NewSliceChat()
	calls := 0
	reducer := func(history slicev.RO[Message], update []Message) []Message {
		calls++
		return AddMessages(history, update)
	}

	require.NoError(t, chat.merge(nil, reducer))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, chat.History().Len())
}

func TestStateApplyMergesVars(t *testing.T) {
	state := NewState(nil)
	label := store.FreshVar[string]("label")

	vars := store.NewStore()
	store.Set(vars, label, "one")
	require.NoError(t, state.apply(Update{Messages: []Message{SystemMessage("be brief")}, Vars: vars}, AddMessages))

	vars = store.NewStore()
	store.Set(vars, label, "two")
	require.NoError(t, state.apply(Update{Vars: vars}, AddMessages))

	got, ok := store.GetRO(state.Vars(), label)
	require.True(t, ok)
	assert.Equal(t, "two", got)
	assert.Equal(t, 1, state.Messages().Len())
	assert.NotEmpty(t, state.ID())
	assert.NotEqual(t, state.ID(), NewState(nil).ID())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "user", User.String())
	assert.Equal(t, "system", System.String())
	assert.Equal(t, "assistant", Assistant.String())
	assert.Equal(t, "unknown", Role(9).String())
}
