package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sdb/internal/behavior"
	"github.com/roach88/sdb/internal/meta"
	"github.com/roach88/sdb/internal/state"
)

// numCtx is a context with one int cell.
type numCtx struct {
	Value state.Cell[int]
}

// sinkCtx is a context with an int cell and a list cell.
type sinkCtx struct {
	Value state.Cell[int]
	Log   state.ListCell[string]
}

// callLog records operation calls in order.
type callLog struct {
	calls []string
}

func (p *callLog) add(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

type relay struct{ p *callLog }
type watcher struct{ p *callLog }
type seeder struct{}
type pairer struct{}
type pinger struct{}
type forward struct{}
type backward struct{}
type broken struct{}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *meta.Registry {
	t.Helper()
	r := meta.NewRegistry()
	require.NoError(t, meta.RegisterContext(r, meta.ContextSpec[*numCtx]{
		Name: "Num",
		States: []meta.State[*numCtx]{
			meta.Observe("value", func(c *numCtx) state.Observable { return &c.Value }),
		},
	}))
	require.NoError(t, meta.RegisterContext(r, meta.ContextSpec[*sinkCtx]{
		Name: "Sink",
		States: []meta.State[*sinkCtx]{
			meta.Observe("value", func(c *sinkCtx) state.Observable { return &c.Value }),
			meta.Observe("log", func(c *sinkCtx) state.Observable { return &c.Log }),
		},
	}))
	return r
}

// registerRelay: src Num -> dst Sink, copying the value one tick later.
func registerRelay(t *testing.T, r *meta.Registry, p *callLog) {
	t.Helper()
	require.NoError(t, meta.RegisterBehavior(r, meta.BehaviorSpec[*relay]{
		Name: "Relay",
		Slots: []behavior.Slot{
			behavior.Require[*numCtx]("src"),
			behavior.Require[*sinkCtx]("dst"),
		},
		Assemble: func(*behavior.Assembly) (*relay, error) { return &relay{p: p}, nil },
		OnChange: []meta.Handler[*relay]{
			meta.OnState("src", "value", func(b *relay, bound behavior.Bindings) error {
				src := behavior.MustGet[*numCtx](bound, "src")
				b.p.add("relay:src.value=%d", src.Value.Get())
				behavior.MustGet[*sinkCtx](bound, "dst").Value.Set(src.Value.Get())
				return nil
			}),
			meta.OnContext("src", func(b *relay, _ behavior.Bindings) error {
				b.p.add("relay:src")
				return nil
			}),
		},
		OnDestroy: []func(*relay, behavior.Bindings) error{
			func(b *relay, _ behavior.Bindings) error {
				b.p.add("relay:down")
				return nil
			},
		},
	}))
}

// registerWatcher: observes a Sink value.
func registerWatcher(t *testing.T, r *meta.Registry, p *callLog) {
	t.Helper()
	require.NoError(t, meta.RegisterBehavior(r, meta.BehaviorSpec[*watcher]{
		Name:  "Watcher",
		Slots: []behavior.Slot{behavior.Require[*sinkCtx]("in")},
		Assemble: func(*behavior.Assembly) (*watcher, error) {
			return &watcher{p: p}, nil
		},
		OnChange: []meta.Handler[*watcher]{
			meta.OnState("in", "value", func(w *watcher, bound behavior.Bindings) error {
				w.p.add("watch:%d", behavior.MustGet[*sinkCtx](bound, "in").Value.Get())
				return nil
			}),
		},
	}))
}

// registerSeeder: eager behavior creating one Num.
func registerSeeder(t *testing.T, r *meta.Registry) {
	t.Helper()
	require.NoError(t, meta.RegisterBehavior(r, meta.BehaviorSpec[*seeder]{
		Name:  "Seeder",
		Slots: []behavior.Slot{behavior.Create[*numCtx]("seed")},
		Assemble: func(a *behavior.Assembly) (*seeder, error) {
			return &seeder{}, a.Provide("seed", &numCtx{})
		},
	}))
}

// registerPairer: needs two Nums.
func registerPairer(t *testing.T, r *meta.Registry) {
	t.Helper()
	require.NoError(t, meta.RegisterBehavior(r, meta.BehaviorSpec[*pairer]{
		Name: "Pairer",
		Slots: []behavior.Slot{
			behavior.Require[*numCtx]("a1"),
			behavior.Require[*numCtx]("a2"),
		},
		Assemble: func(*behavior.Assembly) (*pairer, error) { return &pairer{}, nil },
	}))
}

func newTestRuntime(t *testing.T, r *meta.Registry, opts ...Option) *Runtime {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	rt := New(r, opts...)
	require.NoError(t, rt.Initialize())
	return rt
}
