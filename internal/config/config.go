// Package config loads the chat configuration from CUE.
//
// A configuration source is unified with the embedded #Config schema,
// which carries every default, then validated and decoded. Sources may be
// a single .cue file, a directory of .cue files (one package), or raw
// bytes (JSON is valid CUE, so scenario overrides go through the same
// path).
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Reply modes.
const (
	ModeEcho  = "echo"
	ModeShout = "shout"
	ModeOff   = "off"
)

// Config is the decoded chat configuration.
type Config struct {
	User     string    `json:"user"`
	Bot      BotConfig `json:"bot"`
	Prompt   string    `json:"prompt"`
	History  int       `json:"history"`
	MaxTicks int       `json:"max_ticks"`
}

// BotConfig configures the reply bot.
type BotConfig struct {
	Name     string `json:"name"`
	Greeting string `json:"greeting"`
	Mode     string `json:"mode"`
}

// Greeting returns the bot greeting with "{user}" replaced by nick.
func (c Config) Greeting(nick string) string {
	return strings.ReplaceAll(c.Bot.Greeting, "{user}", nick)
}

// Error codes.
const (
	ErrCodeNotFound   = "C001" // Source path not found
	ErrCodeLoadFailed = "C002" // CUE load or parse failed
	ErrCodeInvalid    = "C003" // Source does not satisfy #Config
)

// Error is a configuration error with the CUE position if available.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Default returns the configuration with every default applied.
func Default() Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		// The embedded schema is under test; a failure here is a build defect.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads a configuration from a .cue file or a directory of .cue files.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("config not found: %s", path)}
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		return build(ctx, ctx.CompileBytes(data, cue.Filename(path)))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return Config{}, &Error{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return Config{}, &Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	return build(ctx, ctx.BuildInstance(inst))
}

// Parse decodes a configuration from CUE (or JSON) source.
// A nil or empty source yields the defaults.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	return build(ctx, ctx.CompileBytes(data, cue.Filename(filename)))
}

// build unifies src with #Config, validates it and decodes it.
func build(ctx *cue.Context, src cue.Value) (Config, error) {
	if err := src.Err(); err != nil {
		return Config{}, convert(ErrCodeLoadFailed, err)
	}

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, convert(ErrCodeLoadFailed, err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(src)
	if err := v.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return Config{}, convert(ErrCodeInvalid, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, convert(ErrCodeInvalid, err)
	}
	return cfg, nil
}

// convert turns the first CUE error into an *Error with its position.
func convert(code string, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := first.Path(); len(path) > 0 {
		msg = strings.Join(path, ".") + ": " + msg
	}
	return &Error{Code: code, Message: msg, Pos: first.Position()}
}
