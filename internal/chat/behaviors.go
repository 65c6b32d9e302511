package chat

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sdb/internal/behavior"
	"github.com/roach88/sdb/internal/config"
	"github.com/roach88/sdb/internal/runtime"
)

// Bootstrap creates the application's contexts. It has no existing
// dependencies, so exactly one is assembled at Initialize.
type Bootstrap struct{}

// Responder turns console input into transcript lines, mailbox items and
// session changes.
type Responder struct {
	cfg config.Config
	rt  *runtime.Runtime
}

// Bot replies to mailbox lines.
type Bot struct {
	name  string
	mode  string
	upper cases.Caser
}

// Greeter announces nick changes.
type Greeter struct {
	nick string
}

// Display writes transcript lines it has not written yet.
type Display struct {
	out   io.Writer
	shown int
}

// clean normalizes a submitted line to NFC and trims surrounding space.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func system(format string, args ...any) string {
	return "* " + fmt.Sprintf(format, args...)
}

func said(nick, text string) string {
	return fmt.Sprintf("<%s> %s", nick, text)
}

// onLine handles a new console line.
func (r *Responder) onLine(b behavior.Bindings) error {
	console := behavior.MustGet[*Console](b, "console")
	transcript := behavior.MustGet[*Transcript](b, "transcript")
	session := behavior.MustGet[*Session](b, "session")

	text := clean(console.Line.Get().Text)
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, "/") {
		transcript.Post(said(session.User.Get(), text))
		mb, err := runtime.GetContext[*Mailbox](r.rt)
		if err != nil {
			return err
		}
		if mb != nil {
			mb.Pending.Append(text)
		}
		return nil
	}

	cmd, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/nick":
		return r.nick(transcript, session, arg)
	case "/mute":
		return r.mute(transcript)
	case "/unmute":
		return r.unmute(transcript)
	case "/quit":
		transcript.Post(system("bye"))
		console.Closed.Set(true)
	default:
		transcript.Post(system("unknown command: %s", cmd))
	}
	return nil
}

func (r *Responder) nick(transcript *Transcript, session *Session, name string) error {
	switch {
	case name == "" || strings.ContainsAny(name, " \t"):
		transcript.Post(system("usage: /nick <name>"))
	case name == session.User.Get():
		transcript.Post(system("you are already %s", name))
	default:
		session.User.Set(name)
	}
	return nil
}

func (r *Responder) mute(transcript *Transcript) error {
	mb, err := runtime.GetContext[*Mailbox](r.rt)
	if err != nil {
		return err
	}
	if mb == nil {
		transcript.Post(system("%s is already muted", r.cfg.Bot.Name))
		return nil
	}
	return r.rt.Decontextualize(mb)
}

func (r *Responder) unmute(transcript *Transcript) error {
	mb, err := runtime.GetContext[*Mailbox](r.rt)
	if err != nil {
		return err
	}
	if mb != nil {
		transcript.Post(system("%s is not muted", r.cfg.Bot.Name))
		return nil
	}
	return r.rt.Contextualize(&Mailbox{})
}

// reply answers and clears the pending mailbox lines.
func (bot *Bot) reply(b behavior.Bindings) error {
	mb := behavior.MustGet[*Mailbox](b, "mailbox")
	transcript := behavior.MustGet[*Transcript](b, "transcript")

	pending := mb.Pending.Items()
	if len(pending) == 0 {
		return nil
	}
	mb.Pending.Clear()

	for _, text := range pending {
		switch bot.mode {
		case config.ModeEcho:
			transcript.Post(said(bot.name, text))
		case config.ModeShout:
			transcript.Post(said(bot.name, bot.upper.String(text)))
		}
	}
	return nil
}

func (bot *Bot) leave(b behavior.Bindings) error {
	behavior.MustGet[*Transcript](b, "transcript").Post(system("%s left", bot.name))
	return nil
}

func (g *Greeter) renamed(b behavior.Bindings) error {
	nick := behavior.MustGet[*Session](b, "session").User.Get()
	if nick == g.nick {
		return nil
	}
	behavior.MustGet[*Transcript](b, "transcript").Post(system("%s is now known as %s", g.nick, nick))
	g.nick = nick
	return nil
}

func (d *Display) flush(b behavior.Bindings) error {
	transcript := behavior.MustGet[*Transcript](b, "transcript")
	lines := transcript.Lines.Items()

	fresh := min(transcript.Posted()-d.shown, len(lines))
	d.shown = transcript.Posted()
	for _, line := range lines[len(lines)-fresh:] {
		if _, err := fmt.Fprintln(d.out, line); err != nil {
			return fmt.Errorf("display: %w", err)
		}
	}
	return nil
}

func newBot(cfg config.Config) *Bot {
	return &Bot{
		name:  cfg.Bot.Name,
		mode:  cfg.Bot.Mode,
		upper: cases.Upper(language.Und),
	}
}
