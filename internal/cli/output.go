package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit statuses.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the feature settled in a Failure state
	ExitCommandError = 2 // the command itself could not do its job
)

// ErrCode classifies a command error for JSON consumers.
type ErrCode string

const (
	ErrCodeUnknown ErrCode = "E000"
	ErrCodeUsage   ErrCode = "E001" // flags, format, action names
	ErrCodeConfig  ErrCode = "E002"
	ErrCodeBackend ErrCode = "E003"
	ErrCodeJournal ErrCode = "E004"
	ErrCodeFeature ErrCode = "E005"
)

// ExitError is a failed command: the exit status it maps to, the reason
// reported to JSON consumers, and the cause.
type ExitError struct {
	Status  int
	Reason  ErrCode
	Message string
	Err     error
}

// commandError reports that the command could not run (ExitCommandError).
func commandError(reason ErrCode, message string, err error) *ExitError {
	return &ExitError{Status: ExitCommandError, Reason: reason, Message: message, Err: err}
}

// featureFailure reports a feature that settled in Failure (ExitFailure).
func featureFailure(message string, err error) *ExitError {
	return &ExitError{Status: ExitFailure, Reason: ErrCodeFeature, Message: message, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode maps err to a process exit status. Errors that did not come
// from a command (cobra flag parsing, say) count as command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *ExitError
	if errors.As(err, &e) {
		return e.Status
	}
	return ExitCommandError
}

func reasonOf(err error) ErrCode {
	var e *ExitError
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return ErrCodeUnknown
}

// Texter is a result that knows its own text rendering.
type Texter interface {
	Text() string
}

// Envelope wraps every JSON document the CLI prints.
type Envelope struct {
	Status  string   `json:"status"` // "ok" | "error"
	Data    any      `json:"data,omitempty"`
	Problem *Problem `json:"error,omitempty"`
}

// Problem describes a failed command.
type Problem struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Cause   string  `json:"cause,omitempty"`
}

// Output prints results and problems as text or JSON.
type Output struct {
	json bool
	w    io.Writer
}

func newOutput(format string, w io.Writer) *Output {
	return &Output{json: format == "json", w: w}
}

// Result prints a command's result. Text mode uses Texter when available.
func (o *Output) Result(v any) error {
	if o.json {
		return json.NewEncoder(o.w).Encode(Envelope{Status: "ok", Data: v})
	}
	if t, ok := v.(Texter); ok {
		_, err := io.WriteString(o.w, t.Text())
		return err
	}
	_, err := fmt.Fprintln(o.w, v)
	return err
}

// Problem prints failure with its reason code.
func (o *Output) Problem(failure error) error {
	p := Problem{Code: reasonOf(failure), Message: failure.Error()}
	var e *ExitError
	if errors.As(failure, &e) {
		p.Message = e.Message
		if e.Err != nil {
			p.Cause = e.Err.Error()
		}
	}

	if o.json {
		return json.NewEncoder(o.w).Encode(Envelope{Status: "error", Problem: &p})
	}
	line := fmt.Sprintf("error %s: %s", p.Code, p.Message)
	if p.Cause != "" {
		line += ": " + p.Cause
	}
	_, err := fmt.Fprintln(o.w, line)
	return err
}
