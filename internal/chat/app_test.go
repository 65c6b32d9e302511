package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sdb/internal/config"
	"github.com/roach88/sdb/internal/runtime"
)

func newTestApp(t *testing.T, cfg config.Config, out io.Writer) *App {
	t.Helper()
	if out == nil {
		out = io.Discard
	}
	app, err := New(cfg, out, runtime.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return app
}

// say submits each line and settles after it.
func say(t *testing.T, app *App, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, app.Submit(line))
		_, err := app.Settle()
		require.NoError(t, err)
	}
}

func TestApp_StartsWithGreeting(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, config.Default(), &out)

	assert.Equal(t, []string{"* bot joined", "<bot> hello, you"}, app.Transcript())
	assert.Equal(t, "* bot joined\n<bot> hello, you\n", out.String())
	assert.False(t, app.Closed())

	for _, name := range []string{"Bootstrap", "Display", "Responder", "Greeter", "Bot"} {
		found := false
		for _, inst := range app.Runtime().Instances() {
			found = found || inst.Behavior == name
		}
		assert.True(t, found, "%s assembled at start", name)
	}
}

func TestApp_EchoTakesThreeTicks(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, config.Default(), &out)

	require.NoError(t, app.Submit("hi"))
	ticks, err := app.Settle()
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)

	assert.Equal(t, []string{"* bot joined", "<bot> hello, you", "<you> hi", "<bot> hi"}, app.Transcript())
	assert.True(t, strings.HasSuffix(out.String(), "<you> hi\n<bot> hi\n"))
}

func TestApp_RepeatedLinesAreEachHandled(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	say(t, app, "again", "again")

	assert.Equal(t, []string{
		"* bot joined", "<bot> hello, you",
		"<you> again", "<bot> again",
		"<you> again", "<bot> again",
	}, app.Transcript())
}

func TestApp_ShoutMode(t *testing.T) {
	cfg := config.Default()
	cfg.Bot.Mode = config.ModeShout
	cfg.Bot.Greeting = ""
	app := newTestApp(t, cfg, nil)

	say(t, app, "straße héllo")
	assert.Equal(t, []string{"* bot joined", "<you> straße héllo", "<bot> STRASSE HÉLLO"}, app.Transcript())
}

func TestApp_OffModeNeverReplies(t *testing.T) {
	cfg := config.Default()
	cfg.Bot.Mode = config.ModeOff
	app := newTestApp(t, cfg, nil)

	say(t, app, "anyone?")
	assert.Equal(t, "<you> anyone?", app.Transcript()[len(app.Transcript())-1])
}

func TestApp_NormalizesInput(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	say(t, app, "  café  ")

	assert.Contains(t, app.Transcript(), "<you> café")
}

func TestApp_BlankLineIsIgnored(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	before := app.Transcript()

	require.NoError(t, app.Submit("   "))
	ticks, err := app.Settle()
	require.NoError(t, err)
	assert.Equal(t, 1, ticks)
	assert.Equal(t, before, app.Transcript())
}

func TestApp_Nick(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	say(t, app, "/nick ana", "hi", "/nick ana", "/nick")

	assert.Equal(t, []string{
		"* bot joined",
		"<bot> hello, you",
		"* you is now known as ana",
		"<ana> hi",
		"<bot> hi",
		"* you are already ana",
		"* usage: /nick <name>",
	}, app.Transcript())
}

func TestApp_MuteDestroysBotAndUnmuteRebuildsIt(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	botType := reflect.TypeFor[*Bot]()
	require.Equal(t, 1, app.Runtime().InstanceCount(botType))

	say(t, app, "/mute")
	assert.Equal(t, 0, app.Runtime().InstanceCount(botType))
	mb, err := runtime.GetContext[*Mailbox](app.Runtime())
	require.NoError(t, err)
	assert.Nil(t, mb)

	say(t, app, "quiet", "/mute", "/unmute", "loud", "/unmute")
	assert.Equal(t, 1, app.Runtime().InstanceCount(botType))

	assert.Equal(t, []string{
		"* bot joined",
		"<bot> hello, you",
		"* bot left",
		"<you> quiet",
		"* bot is already muted",
		"* bot joined",
		"<bot> hello, you",
		"<you> loud",
		"<bot> loud",
		"* bot is not muted",
	}, app.Transcript())
}

func TestApp_UnknownCommand(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	say(t, app, "/dance")
	assert.Equal(t, "* unknown command: /dance", app.Transcript()[2])
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	say(t, app, "/quit")

	assert.True(t, app.Closed())
	assert.Equal(t, "* bye", app.Transcript()[2])
	assert.ErrorIs(t, app.Submit("hello?"), ErrClosed)
}

func TestApp_HistoryLimit(t *testing.T) {
	var out bytes.Buffer
	cfg := config.Default()
	cfg.History = 3
	app := newTestApp(t, cfg, &out)

	say(t, app, "a")
	assert.Equal(t, []string{"<bot> hello, you", "<you> a", "<bot> a"}, app.Transcript())
	assert.Equal(t, "* bot joined\n<bot> hello, you\n<you> a\n<bot> a\n", out.String(),
		"dropped lines were already displayed")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestApp_DisplayFailureSurfaces(t *testing.T) {
	_, err := New(config.Default(), failingWriter{},
		runtime.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.Error(t, err)

	var opErr *runtime.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "Display", opErr.Behavior)
}

func TestApp_Run(t *testing.T) {
	var out, prompt bytes.Buffer
	app := newTestApp(t, config.Default(), &out)

	in := strings.NewReader("hi\n/quit\nnever read\n")
	require.NoError(t, app.Run(context.Background(), in, &prompt))

	assert.True(t, app.Closed())
	assert.Equal(t, "> > ", prompt.String())
	assert.Equal(t, "* bot joined\n<bot> hello, you\n<you> hi\n<bot> hi\n* bye\n", out.String())
}

func TestApp_RunStopsAtEOF(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	require.NoError(t, app.Run(context.Background(), strings.NewReader("hi"), nil))
	assert.False(t, app.Closed())
}

func TestApp_RunHonoursContext(t *testing.T) {
	app := newTestApp(t, config.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, app.Run(ctx, strings.NewReader("hi\n"), nil), context.Canceled)
}

func TestTranscript_Post(t *testing.T) {
	tr := NewTranscript(2)
	tr.Post()
	assert.Equal(t, 0, tr.Posted())

	tr.Post("a", "b", "c")
	assert.Equal(t, []string{"b", "c"}, tr.Lines.Items())
	assert.Equal(t, 3, tr.Posted())

	unlimited := NewTranscript(0)
	unlimited.Post("a", "b", "c")
	assert.Equal(t, 3, unlimited.Lines.Len())
}

func TestDescribe(t *testing.T) {
	d, err := Describe()
	require.NoError(t, err)

	require.Len(t, d.Contexts, 4)
	assert.Equal(t, "Console", d.Contexts[0].Name)
	assert.Equal(t, []string{"line", "closed"}, d.Contexts[0].States)

	require.Len(t, d.Behaviors, 5)
	assert.Equal(t, "Bootstrap", d.Behaviors[0].Name)
	assert.True(t, d.Behaviors[0].Eager)
	assert.Equal(t, "Bot", d.Behaviors[4].Name)
	assert.False(t, d.Behaviors[4].Eager)
	assert.Equal(t, 1, d.Behaviors[4].Teardown)
}
