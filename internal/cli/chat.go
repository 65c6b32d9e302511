package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/roach88/sdb/internal/chat"
	"github.com/roach88/sdb/internal/config"
	"github.com/roach88/sdb/internal/journal"
	"github.com/roach88/sdb/internal/runtime"
)

// ChatOptions holds flags for the chat command.
type ChatOptions struct {
	*RootOptions
	Config  string // CUE file or directory; empty uses defaults
	TraceDB string // SQLite journal to record the run into
	RunIDs  journal.RunIDGenerator
}

// ChatSummary is printed when a chat ends in JSON mode.
type ChatSummary struct {
	RunID      string   `json:"run_id,omitempty"`
	Closed     bool     `json:"closed"`
	Events     int      `json:"events"`
	Transcript []string `json:"transcript"`
}

// NewChatCommand creates the chat command.
func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChatOptions{RootOptions: rootOpts, RunIDs: journal.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot on stdin/stdout",
		Long: `Start an interactive chat. Each line read from stdin is one input;
the transcript is written to stdout as it grows.

Commands: /nick <name>, /mute, /unmute, /quit.

With --trace-db every runtime event is recorded to a SQLite journal
under a fresh run ID, which is printed when the chat ends. Inspect it
with "sdb trace".

Examples:
  sdb chat
  sdb chat --config ./sdb.cue
  sdb chat --trace-db ./sdb.db
  echo hi | sdb chat --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE config file or directory")
	cmd.Flags().StringVar(&opts.TraceDB, "trace-db", "", "record the run into this SQLite journal")

	return cmd
}

func runChat(cmd *cobra.Command, opts *ChatOptions) error {
	out := opts.output(cmd)

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return out.Fail(ExitCommandError, CodeConfig, "failed to load config", err)
		}
		cfg = loaded
	}
	out.Debugf("config: user=%s bot=%s mode=%s", cfg.User, cfg.Bot.Name, cfg.Bot.Mode)

	rtOpts := []runtime.Option{runtime.WithLogger(opts.logger(cmd.ErrOrStderr()))}

	var rec *journal.Recorder
	if opts.TraceDB != "" {
		j, err := journal.Open(opts.TraceDB)
		if err != nil {
			return out.Fail(ExitCommandError, CodeJournal, "failed to open journal", err)
		}
		defer j.Close()
		rec = j.NewRecorder(opts.RunIDs.Generate(), "chat")
		rtOpts = append(rtOpts, runtime.WithTracer(rec))
		out.Debugf("recording run %s into %s", rec.RunID(), opts.TraceDB)
	}

	var display io.Writer = cmd.OutOrStdout()
	var prompt io.Writer = cmd.ErrOrStderr()
	if out.json() {
		display, prompt = io.Discard, nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	app, err := chat.New(cfg, display, rtOpts...)
	var runErr error
	if err == nil {
		runErr = app.Run(ctx, cmd.InOrStdin(), prompt)
	}

	summary := ChatSummary{Transcript: []string{}}
	if rec != nil {
		// The journal outlives the interrupted context.
		if flushErr := rec.Flush(context.Background()); flushErr != nil {
			return out.Fail(ExitCommandError, CodeJournal, "failed to write journal", flushErr)
		}
		summary.RunID = rec.RunID()
		summary.Events = rec.Flushed()
	}

	if err != nil {
		return out.Fail(ExitFailure, CodeRuntime, "chat failed to start", err)
	}
	if runErr != nil && ctx.Err() == nil {
		return out.Fail(ExitFailure, CodeRuntime, "chat stopped", runErr)
	}

	summary.Closed = app.Closed()
	if t := app.Transcript(); t != nil {
		summary.Transcript = t
	}
	if out.json() {
		return out.Encode(Response{Status: "ok", Data: summary, RunID: summary.RunID})
	}
	if summary.RunID != "" {
		fmt.Fprintf(out.errWriter(), "run: %s\n", summary.RunID)
	}
	return nil
}
