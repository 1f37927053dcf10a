package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// RgaAdapter wraps ripgrep-all (rga), used by the Escalate stage to reach
// into non-plain-text formats (archives, PDFs, office documents) that
// plain rg cannot adapt for. Its --json output uses the same event shape
// as rg; the adapter's own origin label keeps its matches ranked below
// ast-grep and rg.
type RgaAdapter struct {
	bin *binaryLocator
}

func NewRga() *RgaAdapter {
	return &RgaAdapter{bin: newBinaryLocator("rga")}
}

func (a *RgaAdapter) Name() string { return "rga" }

func (a *RgaAdapter) Available() bool { return a.bin.available() }

func (a *RgaAdapter) Invoke(ctx context.Context, inv Invocation, out chan<- searchtypes.RawMatch) Result {
	path, err := a.bin.resolve()
	if err != nil {
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("rga")}}
	}

	args := []string{
		"--json",
		"--max-columns", fmt.Sprintf("%d", MaxColumnsTruncation),
		"-e", inv.Variant.Text,
	}
	if len(inv.Scope) > 0 {
		args = append(args, inv.Scope...)
	} else {
		args = append(args, inv.Root)
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
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("rga")}}
	}

	sink := newRecordSink(out, inv.MaxMatches)
	var warnings []searchtypes.Warning

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// rga occasionally interleaves a preprocessor's own stderr-like
		// status line onto stdout ahead of the first '{'; skip anything
		// that doesn't start a JSON object rather than treating it as a
		// parse failure.
		start := 0
		for start < len(line) && line[start] != '{' {
			start++
		}
		if start == len(line) {
			continue
		}

		var ev rgEvent
		if err := json.Unmarshal(line[start:], &ev); err != nil {
			warnings = append(warnings, warnParseError("rga", err.Error()))
			continue
		}
		if ev.Type != "match" {
			continue
		}

		raw := searchtypes.RawMatch{
			Path:                ev.Data.Path.Text,
			Line:                ev.Data.LineNumber,
			Origin:              searchtypes.OriginRga,
			RawSnippet:          ev.Data.Lines.Text,
			RawSnippetTruncated: len(ev.Data.Lines.Text) >= MaxColumnsTruncation,
		}
		if !sink.send(ctx, raw) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, warnParseError("rga", err.Error()))
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		warnings = append(warnings, searchtypes.Warning{
			Kind: searchtypes.ErrToolTimeout, Tool: "rga",
			Message: "deadline exceeded, partial results kept",
		})
	} else if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			// no matches
		} else {
			warnings = append(warnings, warnParseError("rga", waitErr.Error()))
		}
	}

	return Result{Dropped: sink.dropped, Warnings: warnings}
}
