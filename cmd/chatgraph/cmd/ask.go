package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/vasilisp/chatgraph"
	"github.com/vasilisp/chatgraph/console"
)

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := setupContext(cmd.Context())
			defer stop()

			graph, _, err := opts.newChatbot(cmd)
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")
			state := chatgraph.NewState(nil)
			echo := console.Echoln(cmd.OutOrStdout(), "")

			return graph.Stream(ctx, state, chatgraph.Update{Messages: []chatgraph.Message{chatgraph.UserMessage(question)}}, func(event chatgraph.Event) {
				for _, msg := range event.Update.Messages {
					echo(msg)
				}
			})
		},
	}
}
