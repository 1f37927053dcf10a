package adapter

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// FdAdapter wraps fd for Discover-stage enumeration: it never searches file
// contents, only produces candidate paths the later stages scope their
// probes to.
type FdAdapter struct {
	bin *binaryLocator
	log interface {
		Debug(string, ...any)
		Warn(string, ...any)
	}
}

func NewFd() *FdAdapter {
	return &FdAdapter{bin: newBinaryLocator("fd"), log: logger("fd")}
}

func (a *FdAdapter) Name() string { return "fd" }

func (a *FdAdapter) Available() bool { return a.bin.available() }

// Invoke lists files under inv.Root (or inv.Scope, when narrowed), pruned by
// inv.Extensions. Each line is emitted as a RawMatch with Line 0 -- Discover
// only cares about Path, later stages never read a fd-origin RawMatch's
// snippet fields.
func (a *FdAdapter) Invoke(ctx context.Context, inv Invocation, out chan<- searchtypes.RawMatch) Result {
	path, err := a.bin.resolve()
	if err != nil {
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("fd")}}
	}

	args := []string{"--type", "f", "--hidden", "--color", "never"}
	for _, ext := range inv.Extensions {
		args = append(args, "--extension", strings.TrimPrefix(ext, "."))
	}
	args = append(args, ".")
	if len(inv.Scope) > 0 {
		args = append(args, inv.Scope...)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = inv.Root
	cmd.Cancel = func() error { return cmd.Process.Kill() }
	cmd.WaitDelay = 50 * time.Millisecond

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Err: err}
	}
	if err := cmd.Start(); err != nil {
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("fd")}}
	}

	sink := newRecordSink(out, inv.MaxMatches)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p := strings.TrimSpace(scanner.Text())
		if p == "" {
			continue
		}
		m := searchtypes.RawMatch{
			Path:   strings.TrimPrefix(p, "./"),
			Origin: searchtypes.OriginFd,
		}
		if !sink.send(ctx, m) {
			break
		}
	}

	var warnings []searchtypes.Warning
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, warnParseError("fd", err.Error()))
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		warnings = append(warnings, searchtypes.Warning{
			Kind: searchtypes.ErrToolTimeout, Tool: "fd",
			Message: "deadline exceeded, partial results kept",
		})
	} else if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			warnings = append(warnings, warnParseError("fd", waitErr.Error()))
		}
	}

	return Result{Dropped: sink.dropped, Warnings: warnings}
}
