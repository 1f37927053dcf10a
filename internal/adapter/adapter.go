// Package adapter implements the Tool Adapters component: narrow wrappers
// around the external binaries (fd, rg, ast-grep, rga) that do the actual
// text searching. Adapters shell out rather than linking a search library,
// reusing each tool's regex engine and gitignore semantics instead of
// re-implementing them. Every adapter parses its tool's output
// incrementally -- a RawMatch reaches the caller as soon as it is parsed,
// never after the subprocess exits, so an early high-confidence hit can
// cancel its peers.
package adapter

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// MaxColumnsTruncation is the --max-columns value every adapter passes to
// rg-family tools, and the threshold RawSnippetTruncated detection compares
// against.
const MaxColumnsTruncation = 200

// Adapter is the uniform contract every tool wrapper implements:
// invoke(root, args, deadline, cancel) -> stream<RawMatch> | Error.
type Adapter interface {
	// Name returns the adapter's origin label prefix, e.g. "rg", "fd".
	Name() string

	// Available reports whether the underlying binary was located. The
	// binary path is resolved lazily on first call and cached for the
	// lifetime of the process.
	Available() bool

	// Invoke runs one probe, streaming RawMatches to out as they are
	// parsed. It returns once the subprocess exits, the deadline passes,
	// or ctx is cancelled. out is never closed by Invoke; the caller owns
	// its lifecycle. maxMatches bounds how many records are kept -- once
	// 2*maxMatches RawMatches have been emitted, further records are
	// dropped and counted.
	Invoke(ctx context.Context, inv Invocation, out chan<- searchtypes.RawMatch) Result
}

// Invocation is the adapter-facing view of a scheduled probe: a root
// directory, a path scope (empty means the whole root), a variant to
// search for, and the cap on emitted records.
type Invocation struct {
	Root       string
	Scope      []string
	Variant    searchtypes.QueryVariant
	Extensions []string // language-hint extension pruning, empty means no filter
	MaxMatches int
}

// Result summarizes one adapter invocation for stage-stats bookkeeping.
type Result struct {
	Dropped  int
	Warnings []searchtypes.Warning
	Err      error
}

// binaryLocator lazily resolves and caches one binary's absolute path for
// the lifetime of the process, so repeated Available/Invoke calls don't
// re-stat PATH on every probe.
type binaryLocator struct {
	name string
	once sync.Once
	path string
	err  error
}

func newBinaryLocator(name string) *binaryLocator {
	return &binaryLocator{name: name}
}

func (b *binaryLocator) resolve() (string, error) {
	b.once.Do(func() {
		b.path, b.err = exec.LookPath(b.name)
	})
	return b.path, b.err
}

func (b *binaryLocator) available() bool {
	_, err := b.resolve()
	return err == nil
}

// ErrBinaryNotFound wraps exec.LookPath's failure with the adapter name so
// callers can attribute the BinaryNotFound warning correctly.
var ErrBinaryNotFound = errors.New("binary not found")

func warnBinaryNotFound(tool string) searchtypes.Warning {
	return searchtypes.Warning{
		Kind:    searchtypes.ErrBinaryNotFound,
		Tool:    tool,
		Message: "binary not found on PATH, adapter disabled for this cycle",
	}
}

func warnParseError(tool, detail string) searchtypes.Warning {
	return searchtypes.Warning{
		Kind:    searchtypes.ErrParseError,
		Tool:    tool,
		Message: detail,
	}
}

func warnPatternError(tool, detail string) searchtypes.Warning {
	return searchtypes.Warning{
		Kind:    searchtypes.ErrPatternError,
		Tool:    tool,
		Message: detail,
	}
}

// logger is the shared adapter-package logger, namespaced consistently
// with the rest of the ambient logging setup.
func logger(component string) *slog.Logger {
	return slog.Default().With("component", "adapter."+component)
}

// recordSink caps emission at 2*maxMatches and reports how many records
// were dropped past that bound, keeping a pathological probe's memory use
// bounded.
type recordSink struct {
	out      chan<- searchtypes.RawMatch
	cap      int
	emitted  int
	dropped  int
}

func newRecordSink(out chan<- searchtypes.RawMatch, maxMatches int) *recordSink {
	cap := maxMatches * 2
	if cap <= 0 {
		cap = searchtypes.DefaultMaxMatches * 2
	}
	return &recordSink{out: out, cap: cap}
}

// send delivers m unless the cap has been reached, in which case it is
// dropped and counted. Returns false once the sink is saturated so callers
// can stop scanning early.
func (s *recordSink) send(ctx context.Context, m searchtypes.RawMatch) bool {
	if s.emitted >= s.cap {
		s.dropped++
		return false
	}
	select {
	case s.out <- m:
		s.emitted++
		return true
	case <-ctx.Done():
		return false
	}
}
