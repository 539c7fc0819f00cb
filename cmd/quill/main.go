// quill is a single-shot command-line assistant: it assembles a prompt
// from text, files, clipboard, stdin, and audio, sends it to a model
// backend, and records the exchange as a resumable conversation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quilltool/quill/internal/collect"
	"github.com/quilltool/quill/internal/config"
	"github.com/quilltool/quill/internal/content"
	"github.com/quilltool/quill/internal/conversation"
	"github.com/quilltool/quill/internal/logging"
	"github.com/quilltool/quill/internal/pipeline"
	"github.com/quilltool/quill/internal/provider"
	"github.com/quilltool/quill/internal/render"
	"github.com/quilltool/quill/internal/usage"
)

var (
	clipboardInput  bool
	clipboardOutput bool
	recordAudio     bool
	files           []string
	images          []string
	roles           []string
	modelSpec       string
	resumeID        string
	resumeLast      bool
	listCount       int
	showID          string
	showUsage       bool
	noSave          bool
	verbose         bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quill [prompt...]",
	Short: "Ask a model anything, from anywhere on your machine",
	Long: `quill assembles a request from the prompt, reusable roles, files,
directories, the clipboard, piped stdin, and recorded audio, sends it to
a Gemini or local Ollama backend, and saves the exchange so it can be
resumed later.

Examples:
  quill "explain this error" -f build.log
  git diff | quill "review this change" -t reviewer
  quill -c "what is on my clipboard?"
  quill -r 3f2a "and what about the edge cases?"
  quill -m ollama::llama3.2 "summarize" -f notes/`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVarP(&clipboardInput, "clipboard-input", "c", false, "include clipboard contents as input")
	rootCmd.Flags().BoolVarP(&clipboardOutput, "clipboard-output", "o", false, "copy the response to the clipboard")
	rootCmd.Flags().BoolVarP(&recordAudio, "record-audio", "a", false, "record audio until Enter and attach it")
	rootCmd.Flags().StringArrayVarP(&files, "file", "f", nil, "file or directory to attach (repeatable)")
	rootCmd.Flags().StringArrayVarP(&images, "image", "i", nil, "image file to attach (repeatable)")
	rootCmd.Flags().StringArrayVarP(&roles, "role", "t", nil, "role or task prompt to prepend (repeatable)")
	rootCmd.Flags().StringVarP(&modelSpec, "model", "m", "", "model to use, optionally backend::model (default "+config.DefaultModel+")")
	rootCmd.Flags().StringVarP(&resumeID, "resume", "r", "", "resume a conversation by id or unique prefix")
	rootCmd.Flags().Lookup("resume").NoOptDefVal = "latest"
	rootCmd.Flags().BoolVarP(&resumeLast, "resume-last", "R", false, "resume the most recent conversation")
	rootCmd.Flags().IntVarP(&listCount, "list", "l", 0, "list recent conversations")
	rootCmd.Flags().Lookup("list").NoOptDefVal = "10"
	rootCmd.Flags().StringVarP(&showID, "show", "s", "", "show a saved conversation")
	rootCmd.Flags().Lookup("show").NoOptDefVal = "latest"
	rootCmd.Flags().BoolVar(&showUsage, "usage", false, "show accumulated token usage")
	rootCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist this exchange")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := conversation.NewStore(cfg.ConversationsDir(), logger)
	if err != nil {
		return err
	}

	switch {
	case cmd.Flags().Changed("list"):
		return listConversations(store)
	case cmd.Flags().Changed("show"):
		return showConversation(store)
	case showUsage:
		return printUsage(cmd.Context(), cfg)
	}

	spec := modelSpec
	if spec == "" {
		spec = cfg.Model
	}
	client, err := provider.Route(spec, provider.Config{
		APIKeys:       cfg.APIKeys,
		OllamaBaseURL: cfg.OllamaBaseURL,
		Log:           logger,
	})
	if err != nil {
		return err
	}

	clip := collect.SystemClipboard{}
	p := &pipeline.Pipeline{
		Store: store,
		Builder: &content.Builder{
			Clipboard: clip,
			Recorder:  &collect.FFmpegRecorder{Device: cfg.AudioDevice, Log: logger},
			RolesDir:  cfg.RolesDir(),
			TasksDir:  cfg.TasksDir(),
			Log:       logger,
		},
		Client:        client,
		Log:           logger,
		ContextWindow: cfg.ContextWindow,
		NoSave:        noSave,
	}
	if cfg.LogToFile {
		p.LogDir = cfg.LogsDir()
	}
	if ledger, err := usage.Open(cfg.UsageDBPath()); err != nil {
		logger.Warn("usage ledger unavailable", zap.Error(err))
	} else {
		p.Ledger = ledger
		defer ledger.Close()
	}

	req := pipeline.Request{
		Options: content.Options{
			Prompt:          strings.Join(args, " "),
			Roles:           roles,
			Files:           files,
			Images:          images,
			UseClipboard:    clipboardInput,
			RecordAudio:     recordAudio,
			ClipboardOutput: clipboardOutput,
			StdinPiped:      collect.StdinIsPiped(),
			Stdin:           os.Stdin,
		},
		Resume:     resumeID,
		ResumeLast: resumeLast,
	}
	// Bare -r means resume whatever was most recent.
	if resumeID == "latest" {
		req.Resume = ""
		req.ResumeLast = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := p.Run(ctx, req)
	if err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Remediation != "" {
			fmt.Fprintln(os.Stderr, perr.Remediation)
		}
		return err
	}

	if clipboardOutput {
		if err := clip.WriteText(res.Response); err != nil {
			logger.Warn("could not copy response to clipboard", zap.Error(err))
			fmt.Println(res.Response)
		} else {
			fmt.Fprintln(os.Stderr, "Response copied to clipboard.")
		}
	} else {
		fmt.Println(res.Response)
	}

	if res.SaveErr != nil {
		return fmt.Errorf("response delivered but saving failed: %w", res.SaveErr)
	}
	return nil
}

func listConversations(store *conversation.Store) error {
	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No saved conversations.")
		return nil
	}
	if listCount > 0 && len(summaries) > listCount {
		summaries = summaries[:listCount]
	}
	for _, s := range summaries {
		fmt.Printf("%-8s  %s  %3d msgs  %s\n", s.ID[:min(8, len(s.ID))], s.UpdatedAt, s.Messages, s.Preview)
	}
	return nil
}

func showConversation(store *conversation.Store) error {
	var c *conversation.Conversation
	var err error
	if showID == "latest" {
		c, err = store.Latest()
	} else {
		c, err = store.Load(showID)
	}
	if err != nil {
		return err
	}
	out, err := render.Terminal(conversation.Markdown(c))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func printUsage(ctx context.Context, cfg *config.Config) error {
	ledger, err := usage.Open(cfg.UsageDBPath())
	if err != nil {
		return err
	}
	defer ledger.Close()

	totals, err := ledger.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Requests: %d\nPrompt tokens: %d\nCompletion tokens: %d\nTotal tokens: %d\n",
		totals.Requests, totals.PromptTokens, totals.CompletionTokens, totals.TotalTokens)

	byModel, err := ledger.ByModel(ctx)
	if err != nil {
		return err
	}
	if len(byModel) > 0 {
		fmt.Println("\nBy model:")
		for _, m := range byModel {
			fmt.Printf("  %-28s %8d tokens over %d requests\n", m.Model, m.TotalTokens, m.Requests)
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
