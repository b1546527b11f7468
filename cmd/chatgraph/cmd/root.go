package cmd

import (
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vasilisp/chatgraph/console"
	"github.com/vasilisp/chatgraph/internal/config"
	"github.com/vasilisp/chatgraph/internal/util"
	"github.com/vasilisp/chatgraph/openai"
)

// options collects flag values; they are applied over the config file only
// when set on the command line.
type options struct {
	configPath   string
	provider     string
	model        string
	baseURL      string
	systemPrompt string
	fallback     string
	quiet        bool

	cfg config.Config
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "chatgraph",
		Short: "Chat with a hosted model through a one-node state graph",
		Long: `chatgraph reads questions from the console, runs each through the graph
START -> chatbot -> END, and prints the model's reply. The whole transcript is
sent on every turn. Type exit, quit or q to leave.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.load,
		RunE:              opts.runChat,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "JSON config file")
	flags.StringVar(&opts.provider, "provider", string(openai.Groq), "chat completions provider (openai or groq)")
	flags.StringVar(&opts.model, "model", "", "model name (provider default when empty)")
	flags.StringVar(&opts.baseURL, "base-url", "", "override the provider endpoint")
	flags.StringVar(&opts.systemPrompt, "system-prompt", "", "instructions sent before the transcript")
	flags.BoolVar(&opts.quiet, "quiet", false, "suppress log output")

	rootCmd.Flags().StringVar(&opts.fallback, "fallback", console.DefaultFallback, "question asked once when input ends (empty to disable)")

	rootCmd.AddCommand(newAskCmd(opts), newConfigCmd(), newVersionCmd())

	return rootCmd
}

func (o *options) load(cmd *cobra.Command, _ []string) error {
	if o.quiet {
		util.Log.SetOutput(io.Discard)
	}

	if err := godotenv.Load(); err != nil {
		util.Log.Println("No .env file found, using environment variables")
	}

	o.cfg = config.Default()
	if o.configPath != "" {
		if err := o.cfg.LoadFile(o.configPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		p, err := openai.ParseProvider(o.provider)
		if err != nil {
			return err
		}
		o.cfg.Provider = p
	}
	if flags.Changed("model") {
		o.cfg.Model = o.model
	}
	if flags.Changed("base-url") {
		o.cfg.BaseURL = o.baseURL
	}
	if flags.Changed("system-prompt") {
		o.cfg.SystemPrompt = o.systemPrompt
	}
	if flags.Changed("fallback") {
		fallback := o.fallback
		o.cfg.FallbackQuestion = &fallback
	}

	return nil
}

func (o *options) runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := setupContext(cmd.Context())
	defer stop()

	graph, model, err := o.newChatbot(cmd)
	if err != nil {
		return err
	}

	loop := console.NewLoop(console.Config{
		Graph:    graph,
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
		Fallback: o.cfg.Fallback(),
	})

	util.Log.Printf("session %s: %s via %s", loop.State().ID(), model.ID(), o.cfg.Provider)

	return loop.Run(ctx)
}
