package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for sdb commands.
const (
	ExitSuccess      = 0 // everything passed
	ExitFailure      = 1 // a scenario failed or the chat stopped on a runtime error
	ExitCommandError = 2 // bad flags, unreadable files, journal not found
)

// Error codes carried in JSON error responses.
const (
	CodeConfig   = "E001" // configuration could not be loaded
	CodeRuntime  = "E002" // the runtime failed while settling
	CodeJournal  = "E003" // the trace journal could not be opened or written
	CodeScenario = "E004" // a scenario could not be loaded
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error

	reported bool // already written to the user by Output.Fail
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps an error returned by a command to a process exit code.
// Errors that are not ExitErrors (cobra's own flag errors, for instance)
// count as command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Reported reports whether err was already printed by a command, so the
// caller should not print it again.
func Reported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.reported
}

// Response is the envelope every JSON-formatted command prints.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
	RunID  string         `json:"run_id,omitempty"`
}

// ResponseError is the error part of a Response.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Output writes command results in the selected format. Diagnostics go
// to ErrWriter so they never interleave with JSON on Writer.
type Output struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (o *Output) json() bool {
	return o.Format == "json"
}

// Encode writes v as one line of JSON.
func (o *Output) Encode(v any) error {
	enc := json.NewEncoder(o.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Fail prints a structured error and returns err wrapped with exit code.
func (o *Output) Fail(exit int, code, message string, err error) error {
	if o.json() {
		resp := Response{Status: "error", Error: &ResponseError{Code: code, Message: message}}
		if err != nil {
			resp.Error.Details = err.Error()
		}
		if encErr := o.Encode(resp); encErr != nil {
			return WrapExitError(ExitCommandError, "write response", encErr)
		}
	} else {
		fmt.Fprintf(o.errWriter(), "Error [%s]: %s\n", code, message)
		if err != nil && o.Verbose {
			fmt.Fprintf(o.errWriter(), "Details: %v\n", err)
		}
	}
	exitErr := WrapExitError(exit, message, err)
	exitErr.reported = true
	return exitErr
}

// Debugf prints to ErrWriter in verbose mode only.
func (o *Output) Debugf(format string, args ...any) {
	if o.Verbose {
		fmt.Fprintf(o.errWriter(), format+"\n", args...)
	}
}

func (o *Output) errWriter() io.Writer {
	if o.ErrWriter != nil {
		return o.ErrWriter
	}
	return o.Writer
}
