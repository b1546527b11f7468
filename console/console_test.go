package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasilisp/chatgraph"
	"github.com/vasilisp/chatgraph/internal/util"
	"github.com/vasilisp/chatgraph/pkg/slicev"
)

type echoProcessor struct {
	calls int
	err   error
}

func (p *echoProcessor) Respond(_ context.Context, history slicev.RO[chatgraph.Message]) (chatgraph.Message, error) {
	p.calls++
	if p.err != nil {
		return chatgraph.Message{}, p.err
	}
	last, _ := history.Last()
	return chatgraph.AssistantMessage("echo: " + last.Content), nil
}

func newTestLoop(t *testing.T, in io.Reader, fallback string) (*Loop, *echoProcessor, *bytes.Buffer) {
	t.Helper()

	p := &echoProcessor{}
	graph, err := chatgraph.NewChatbot(p)
	require.NoError(t, err)

	var out bytes.Buffer
	loop := NewLoop(Config{Graph: graph, In: in, Out: &out, Fallback: fallback})

	return loop, p, &out
}

func TestLoopHelloThenQuit(t *testing.T) {
	loop, p, out := newTestLoop(t, strings.NewReader("Hello\nquit\n"), DefaultFallback)

	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, Terminated, loop.Phase())
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []chatgraph.Message{
		chatgraph.UserMessage("Hello"),
		chatgraph.AssistantMessage("echo: Hello"),
	}, loop.State().Messages().Clone())
	assert.Equal(t, "User: Assistant: echo: Hello\nUser: Goodbye!\n", out.String())
}

func TestLoopTranscriptIsTwicePerTurn(t *testing.T) {
	inputs := []string{"one", "two", "three", "four"}
	loop, p, _ := newTestLoop(t, strings.NewReader(strings.Join(inputs, "\n")+"\nexit\n"), DefaultFallback)

	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, len(inputs), p.calls)
	assert.Equal(t, 2*len(inputs), loop.State().Messages().Len())
}

func TestLoopQuitFirst(t *testing.T) {
	for _, word := range []string{"quit", "EXIT", "Exit", "q", "Q", "  quit  "} {
		t.Run(word, func(t *testing.T) {
			loop, p, out := newTestLoop(t, strings.NewReader(word+"\nnever read\n"), DefaultFallback)

			require.NoError(t, loop.Run(context.Background()))

			assert.Equal(t, 0, p.calls)
			assert.Equal(t, 0, loop.State().Messages().Len())
			assert.Equal(t, "User: Goodbye!\n", out.String())
		})
	}
}

func TestLoopEndOfInputAsksFallbackOnce(t *testing.T) {
	loop, p, out := newTestLoop(t, strings.NewReader(""), DefaultFallback)

	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []chatgraph.Message{
		chatgraph.UserMessage(DefaultFallback),
		chatgraph.AssistantMessage("echo: " + DefaultFallback),
	}, loop.State().Messages().Clone())
	assert.Equal(t, "User: "+DefaultFallback+"\nAssistant: echo: "+DefaultFallback+"\n", out.String())
}

func TestLoopEndOfInputWithoutFallback(t *testing.T) {
	loop, p, out := newTestLoop(t, strings.NewReader("Hello"), "")

	require.NoError(t, loop.Run(context.Background()))

	// the unterminated last line is still processed
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "User: Assistant: echo: Hello\nUser: \n", out.String())
}

func TestLoopReadFailureIsReported(t *testing.T) {
	broken := errors.New("device gone")
	loop, p, _ := newTestLoop(t, iotest.ErrReader(broken), DefaultFallback)

	err := loop.Run(context.Background())

	assert.ErrorIs(t, err, ErrInputFailed)
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, Terminated, loop.Phase())
}

func TestLoopTurnFailureKeepsHumanMessage(t *testing.T) {
	loop, p, _ := newTestLoop(t, strings.NewReader("Hello\nagain\n"), DefaultFallback)
	p.err = errors.New("401 unauthorized")

	err := loop.Run(context.Background())

	assert.ErrorIs(t, err, p.err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []chatgraph.Message{chatgraph.UserMessage("Hello")}, loop.State().Messages().Clone())
}

func TestLoopSkipsBlankLines(t *testing.T) {
	loop, p, _ := newTestLoop(t, strings.NewReader("\n   \nHi\nq\n"), DefaultFallback)

	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 2, loop.State().Messages().Len())
}

func TestIsExitIsPure(t *testing.T) {
	for range 3 {
		assert.True(t, IsExit("QUIT"))
		assert.True(t, IsExit("q"))
		assert.False(t, IsExit("quit now"))
		assert.False(t, IsExit(""))
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "red text", Sanitize("\x1b[31mred\x1b[0m text\x07", false))
	assert.Equal(t, "a b", Sanitize("a\nb", true))
	assert.Equal(t, "a\nb", Sanitize("a\nb", false))
	// e + combining acute composes to a single rune
	assert.Equal(t, "\u00e9", Sanitize("e\u0301", false))
}

func TestLineReader(t *testing.T) {
	r := NewLineReader(strings.NewReader("  first  \nsecond"))

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = r.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "awaiting-input", AwaitingInput.String())
	assert.Equal(t, "processing", Processing.String())
	assert.Equal(t, "terminated", Terminated.String())
}

func TestLoopStopsWhenContextCanceledDuringRead(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	loop, p, _ := newTestLoop(t, pr, DefaultFallback)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop still waiting for input after cancel")
	}

	assert.Equal(t, Terminated, loop.Phase())
	assert.Equal(t, 0, p.calls)
	assert.Equal(t, 0, loop.State().Messages().Len())
}

func TestLoopCanceledBeforeStart(t *testing.T) {
	loop, p, out := newTestLoop(t, strings.NewReader("Hello\n"), DefaultFallback)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, loop.Run(ctx))

	assert.Equal(t, 0, p.calls)
	assert.Equal(t, "\n", out.String())
}

func TestReadLineContextKeepsAbandonedLine(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	r := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.ReadLineContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() { _, _ = io.WriteString(pw, "late\n") }()

	line, err := r.ReadLineContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", line)
}

func TestLoopCountsTurns(t *testing.T) {
	loop, _, _ := newTestLoop(t, strings.NewReader("one\ntwo\nq\n"), DefaultFallback)

	require.NoError(t, loop.Run(context.Background()))

	assert.Equal(t, 2, loop.Turns())
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write([]byte) (int, error) {
	f.writes++
	return 0, errors.New("stdout closed")
}

func TestEcholnLogsWriteFailure(t *testing.T) {
	var logged bytes.Buffer
	prev := util.Log.Writer()
	util.Log.SetOutput(&logged)
	t.Cleanup(func() { util.Log.SetOutput(prev) })

	w := &failingWriter{}
	Echoln(w, AssistantPrefix)(chatgraph.AssistantMessage("hi"))

	assert.Equal(t, 1, w.writes)
	assert.Contains(t, logged.String(), "failed to print message: stdout closed")
}
