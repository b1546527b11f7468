package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"github.com/vasilisp/chatgraph"
	"github.com/vasilisp/chatgraph/internal/config"
	"github.com/vasilisp/chatgraph/internal/util"
	"github.com/vasilisp/chatgraph/openai"
)

// setupContext returns a context canceled by the first interrupt; a second
// interrupt forces exit. stop releases the signal subscription.
func setupContext(parent context.Context) (ctx context.Context, stop func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	done := make(chan struct{})

	go func() {
		select {
		case <-interrupt:
		case <-done:
			return
		}
		util.Log.Println("Interrupt signal detected, shutting down gracefully...")
		cancel()

		select {
		case <-interrupt:
			util.Log.Fatal("Forcing shutdown")
		case <-done:
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			signal.Stop(interrupt)
			close(done)
			cancel()
		})
	}

	return ctx, stop
}

// newChatbot resolves credentials, then builds the model and the graph.
func (o *options) newChatbot(cmd *cobra.Command) (*chatgraph.Graph, *openai.Model, error) {
	prompter := config.TerminalPrompter{In: os.Stdin, Out: cmd.OutOrStdout()}
	if err := o.cfg.ResolveCredentials(os.Getenv, prompter); err != nil {
		return nil, nil, err
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	model, err := openai.NewModel(o.cfg.ModelConfig())
	if err != nil {
		return nil, nil, err
	}

	graph, err := chatgraph.NewChatbot(model)
	if err != nil {
		return nil, nil, err
	}

	return graph, model, nil
}
