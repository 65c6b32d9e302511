package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sdb/internal/config"
	"github.com/roach88/sdb/internal/meta"
	"github.com/roach88/sdb/internal/runtime"
)

// ErrClosed is returned by Submit after the user quit.
var ErrClosed = errors.New("chat: closed")

// App is a running chat: a registry of the chat types, a runtime, and the
// output the Display behavior writes to.
//
// Not safe for concurrent use.
type App struct {
	cfg      config.Config
	out      io.Writer
	registry *meta.Registry
	rt       *runtime.Runtime
	inputs   int
}

// New creates and initializes a chat. The bot's greeting is settled and
// written to out before New returns.
func New(cfg config.Config, out io.Writer, opts ...runtime.Option) (*App, error) {
	app := &App{cfg: cfg, out: out, registry: meta.NewRegistry()}
	if err := register(app.registry, app); err != nil {
		return nil, err
	}

	app.rt = runtime.New(app.registry, opts...)
	if err := app.rt.Initialize(); err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}
	if _, err := app.Settle(); err != nil {
		return nil, fmt.Errorf("start chat: %w", err)
	}
	return app, nil
}

// Submit hands one input line to the console. It is not processed until
// Settle (or Runtime().Update) is called.
func (a *App) Submit(line string) error {
	console, err := a.console()
	if err != nil {
		return err
	}
	if console.Closed.Get() {
		return ErrClosed
	}
	a.inputs++
	console.Line.Set(Input{N: a.inputs, Text: line})
	return nil
}

// Settle runs ticks until nothing changes, bounded by the configured
// max_ticks, and returns the number of ticks that had changes.
func (a *App) Settle() (int, error) {
	return a.rt.Settle(a.cfg.MaxTicks)
}

// Closed reports whether the user quit.
func (a *App) Closed() bool {
	console, err := a.console()
	return err != nil || console.Closed.Get()
}

// Transcript returns the retained transcript lines.
func (a *App) Transcript() []string {
	t, err := runtime.GetContext[*Transcript](a.rt)
	if err != nil || t == nil {
		return nil
	}
	return t.Lines.Items()
}

// Runtime returns the underlying runtime.
func (a *App) Runtime() *runtime.Runtime {
	return a.rt
}

// Registry returns the registry holding the chat's types.
func (a *App) Registry() *meta.Registry {
	return a.registry
}

// Run reads lines from in, submitting and settling each one, until the
// user quits, in is exhausted, or ctx is done. A prompt is written to
// prompt before each read if prompt is not nil.
func (a *App) Run(ctx context.Context, in io.Reader, prompt io.Writer) error {
	scanner := bufio.NewScanner(in)
	for !a.Closed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if prompt != nil {
			fmt.Fprint(prompt, a.cfg.Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := a.Submit(scanner.Text()); err != nil {
			return err
		}
		if _, err := a.Settle(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) console() (*Console, error) {
	console, err := runtime.GetContext[*Console](a.rt)
	if err != nil {
		return nil, err
	}
	if console == nil {
		return nil, errors.New("chat: no console")
	}
	return console, nil
}
