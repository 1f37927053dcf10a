package searchtypes

import "fmt"

// ErrorKind enumerates the error taxonomy every adapter and stage reports
// against. Non-fatal kinds are surfaced inside a CycleSummary rather than
// aborting the cycle. The stage pipeline never produces FatalSpawnFailure:
// when every adapter fails to spawn, cycle.Run still returns an ordinary
// summary with zero hits and an empty Fatal field.
type ErrorKind string

const (
	ErrBinaryNotFound    ErrorKind = "binary_not_found"
	ErrToolTimeout       ErrorKind = "tool_timeout"
	ErrParseError        ErrorKind = "parse_error"
	ErrPatternError      ErrorKind = "pattern_error"
	ErrFileTooLarge      ErrorKind = "file_too_large"
	ErrNonUTF8           ErrorKind = "non_utf8"
	ErrCacheError        ErrorKind = "cache_error"
	ErrCycleTimeout      ErrorKind = "cycle_timeout"
	ErrFatalSpawnFailure ErrorKind = "fatal_spawn_failure"
)

// CycleError is a structured error carrying both an ErrorKind and a process
// exit code, mirroring clierr.Error's Code field. Commands in the CLI use
// Code to set the process exit status; the core itself never aborts on a
// CycleError and does not return one (see ErrorKind).
type CycleError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

// Exit codes returned by the CLI for a terminal CycleError.
const (
	ExitSuccess = 0
	ExitError   = 1
)

func (e *CycleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// NewFatalSpawnFailure builds a CycleError of kind ErrFatalSpawnFailure
// with exit code ExitError. Neither the stage pipeline nor the CLI calls it.
func NewFatalSpawnFailure(msg string, err error) *CycleError {
	return &CycleError{Kind: ErrFatalSpawnFailure, Code: ExitError, Message: msg, Err: err}
}

// Warning is a non-fatal diagnostic recorded during a cycle: a BinaryNotFound,
// ToolTimeout, ParseError, PatternError, FileTooLarge/NonUtf8, or CacheError
// event that does not stop the pipeline. Warnings accumulate in StageStats
// rather than aborting the cycle.
type Warning struct {
	Kind    ErrorKind
	Tool    string
	Message string
}

func (w Warning) String() string {
	if w.Tool != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Tool, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
