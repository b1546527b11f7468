// Package console drives a chatbot graph from a line-oriented terminal.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/vasilisp/chatgraph"
	"github.com/vasilisp/chatgraph/internal/util"
	"github.com/vasilisp/chatgraph/store"
)

type Phase uint8

const (
	AwaitingInput Phase = iota
	Processing
	Terminated
)

func (p Phase) String() string {
	switch p {
	case AwaitingInput:
		return "awaiting-input"
	case Processing:
		return "processing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

const (
	UserPrompt      = "User: "
	AssistantPrefix = "Assistant: "
	Farewell        = "Goodbye!"

	// DefaultFallback is asked once when input ends.
	DefaultFallback = "What do you know about LangGraph?"
)

var exitWords = []string{"exit", "quit", "q"}

// IsExit reports whether line is an exit keyword, ignoring case and
// surrounding whitespace.
func IsExit(line string) bool {
	return slices.Contains(exitWords, strings.ToLower(strings.TrimSpace(line)))
}

type Config struct {
	Graph *chatgraph.Graph
	// State defaults to a fresh state.
	State *chatgraph.State
	In    io.Reader
	Out   io.Writer
	// Fallback is processed once when input ends; empty means just stop.
	Fallback string
}

// Loop is the read-process-print state machine.
type Loop struct {
	graph    *chatgraph.Graph
	state    *chatgraph.State
	in       *LineReader
	out      io.Writer
	echo     func(chatgraph.Message)
	fallback string

	phase   Phase
	pending string
	final   bool
}

func NewLoop(cfg Config) *Loop {
	util.Assert(cfg.Graph != nil, "NewLoop nil graph")
	util.Assert(cfg.In != nil && cfg.Out != nil, "NewLoop nil input or output")

	state := cfg.State
	if state == nil {
		state = chatgraph.NewState(nil)
	}

	return &Loop{
		graph:    cfg.Graph,
		state:    state,
		in:       NewLineReader(cfg.In),
		out:      cfg.Out,
		echo:     Echoln(cfg.Out, AssistantPrefix),
		fallback: cfg.Fallback,
		phase:    AwaitingInput,
	}
}

func (l *Loop) Phase() Phase {
	return l.phase
}

func (l *Loop) State() *chatgraph.State {
	return l.state
}

// Turns returns the number of completed turns.
func (l *Loop) Turns() int {
	turns, _ := store.GetRO(l.state.Vars(), chatgraph.Turns)
	return turns
}

// Run loops until an exit keyword, the end of input, cancellation of ctx, or
// an error. Read failures other than end of input and turn failures are
// returned; the loop is Terminated either way.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		util.Log.Printf("session %s ended after %d turns", l.state.ID(), l.Turns())
	}()

	for l.phase != Terminated {
		if err := l.step(ctx); err != nil {
			l.phase = Terminated
			return err
		}
	}

	return nil
}

func (l *Loop) step(ctx context.Context) error {
	if ctx.Err() != nil {
		l.interrupted()
		return nil
	}

	switch l.phase {
	case AwaitingInput:
		return l.await(ctx)
	case Processing:
		return l.process(ctx)
	default:
		return nil
	}
}

func (l *Loop) interrupted() {
	fmt.Fprintln(l.out)
	l.phase = Terminated
}

func (l *Loop) await(ctx context.Context) error {
	fmt.Fprint(l.out, UserPrompt)

	line, err := l.in.ReadLineContext(ctx)
	if err != nil && ctx.Err() != nil {
		l.interrupted()
		return nil
	}
	if errors.Is(err, io.EOF) {
		if l.fallback == "" {
			fmt.Fprintln(l.out)
			l.phase = Terminated
			return nil
		}

		util.Log.Printf("input closed, asking fallback question once")
		fmt.Fprintln(l.out, l.fallback)
		l.pending = l.fallback
		l.final = true
		l.phase = Processing
		return nil
	}
	if err != nil {
		return err
	}

	if IsExit(line) {
		fmt.Fprintln(l.out, Farewell)
		l.phase = Terminated
		return nil
	}

	if line == "" {
		return nil
	}

	l.pending = line
	l.phase = Processing

	return nil
}

func (l *Loop) process(ctx context.Context) error {
	input := chatgraph.Update{Messages: []chatgraph.Message{chatgraph.UserMessage(l.pending)}}
	l.pending = ""

	err := l.graph.Stream(ctx, l.state, input, func(event chatgraph.Event) {
		for _, msg := range event.Update.Messages {
			l.echo(msg)
		}
	})
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}

	if l.final {
		l.phase = Terminated
	} else {
		l.phase = AwaitingInput
	}

	return nil
}
