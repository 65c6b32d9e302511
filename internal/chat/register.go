package chat

import (
	"fmt"

	"github.com/roach88/sdb/internal/behavior"
	"github.com/roach88/sdb/internal/config"
	"github.com/roach88/sdb/internal/meta"
	"github.com/roach88/sdb/internal/state"
)

// register declares the chat's context and behavior types on r.
// Behaviors reach the runtime and the output through app.
func register(r *meta.Registry, app *App) error {
	contexts := []func() error{
		func() error {
			return meta.RegisterContext(r, meta.ContextSpec[*Console]{
				Name: "Console",
				States: []meta.State[*Console]{
					meta.Observe("line", func(c *Console) state.Observable { return &c.Line }),
					meta.Observe("closed", func(c *Console) state.Observable { return &c.Closed }),
				},
			})
		},
		func() error {
			return meta.RegisterContext(r, meta.ContextSpec[*Transcript]{
				Name: "Transcript",
				States: []meta.State[*Transcript]{
					meta.Observe("lines", func(t *Transcript) state.Observable { return &t.Lines }),
				},
			})
		},
		func() error {
			return meta.RegisterContext(r, meta.ContextSpec[*Session]{
				Name: "Session",
				States: []meta.State[*Session]{
					meta.Observe("user", func(s *Session) state.Observable { return &s.User }),
				},
			})
		},
		func() error {
			return meta.RegisterContext(r, meta.ContextSpec[*Mailbox]{
				Name: "Mailbox",
				States: []meta.State[*Mailbox]{
					meta.Observe("pending", func(m *Mailbox) state.Observable { return &m.Pending }),
				},
			})
		},
	}
	for _, fn := range contexts {
		if err := fn(); err != nil {
			return fmt.Errorf("register chat: %w", err)
		}
	}

	cfg := app.cfg
	behaviors := []func() error{
		func() error {
			return meta.RegisterBehavior(r, meta.BehaviorSpec[*Bootstrap]{
				Name: "Bootstrap",
				Slots: []behavior.Slot{
					behavior.Create[*Console]("console"),
					behavior.Create[*Transcript]("transcript"),
					behavior.Create[*Session]("session"),
					behavior.Create[*Mailbox]("mailbox"),
				},
				Assemble: func(a *behavior.Assembly) (*Bootstrap, error) {
					session := &Session{}
					session.User.Set(clean(cfg.User))
					for name, ctx := range map[string]any{
						"console":    &Console{},
						"transcript": NewTranscript(cfg.History),
						"session":    session,
						"mailbox":    &Mailbox{},
					} {
						if err := a.Provide(name, ctx); err != nil {
							return nil, err
						}
					}
					return &Bootstrap{}, nil
				},
			})
		},
		func() error {
			return meta.RegisterBehavior(r, meta.BehaviorSpec[*Display]{
				Name:  "Display",
				Slots: []behavior.Slot{behavior.Require[*Transcript]("transcript")},
				Assemble: func(*behavior.Assembly) (*Display, error) {
					return &Display{out: app.out}, nil
				},
				OnChange: []meta.Handler[*Display]{
					meta.OnContext("transcript", (*Display).flush),
				},
			})
		},
		func() error {
			return meta.RegisterBehavior(r, meta.BehaviorSpec[*Responder]{
				Name: "Responder",
				Slots: []behavior.Slot{
					behavior.Require[*Console]("console"),
					behavior.Require[*Transcript]("transcript"),
					behavior.Require[*Session]("session"),
				},
				Assemble: func(*behavior.Assembly) (*Responder, error) {
					return &Responder{cfg: cfg, rt: app.rt}, nil
				},
				OnChange: []meta.Handler[*Responder]{
					meta.OnState("console", "line", (*Responder).onLine),
				},
			})
		},
		func() error {
			return meta.RegisterBehavior(r, meta.BehaviorSpec[*Greeter]{
				Name: "Greeter",
				Slots: []behavior.Slot{
					behavior.Require[*Session]("session"),
					behavior.Require[*Transcript]("transcript"),
				},
				Assemble: func(a *behavior.Assembly) (*Greeter, error) {
					session, err := behavior.Dep[*Session](a, "session")
					if err != nil {
						return nil, err
					}
					return &Greeter{nick: session.User.Get()}, nil
				},
				OnChange: []meta.Handler[*Greeter]{
					meta.OnState("session", "user", (*Greeter).renamed),
				},
			})
		},
		func() error {
			return meta.RegisterBehavior(r, meta.BehaviorSpec[*Bot]{
				Name: "Bot",
				Slots: []behavior.Slot{
					behavior.Require[*Mailbox]("mailbox"),
					behavior.Require[*Transcript]("transcript"),
					behavior.Require[*Session]("session"),
				},
				Assemble: func(a *behavior.Assembly) (*Bot, error) {
					transcript, err := behavior.Dep[*Transcript](a, "transcript")
					if err != nil {
						return nil, err
					}
					session, err := behavior.Dep[*Session](a, "session")
					if err != nil {
						return nil, err
					}
					bot := newBot(cfg)
					transcript.Post(system("%s joined", bot.name))
					if greeting := cfg.Greeting(session.User.Get()); greeting != "" {
						transcript.Post(said(bot.name, greeting))
					}
					return bot, nil
				},
				OnChange: []meta.Handler[*Bot]{
					meta.OnState("mailbox", "pending", (*Bot).reply),
				},
				OnDestroy: []func(*Bot, behavior.Bindings) error{
					(*Bot).leave,
				},
			})
		},
	}
	for _, fn := range behaviors {
		if err := fn(); err != nil {
			return fmt.Errorf("register chat: %w", err)
		}
	}
	return nil
}

// Describe returns the shape of the chat's registry without starting it.
func Describe() (meta.Description, error) {
	r := meta.NewRegistry()
	if err := register(r, &App{cfg: config.Default()}); err != nil {
		return meta.Description{}, err
	}
	return r.Describe(), nil
}
