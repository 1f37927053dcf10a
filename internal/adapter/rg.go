package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// RgAdapter wraps ripgrep. It is reused for both the "rg-scoped" and
// "rg-relaxed" origins (Probe and Escalate step (c) respectively); the
// caller selects the origin label via NewRg's scoped argument.
type RgAdapter struct {
	bin    *binaryLocator
	origin string
	log    interface {
		Debug(string, ...any)
		Warn(string, ...any)
	}
}

// NewRg constructs an RgAdapter. scoped selects between OriginRgScoped
// (path-filtered Probe invocations) and OriginRgRelaxed (the Escalate
// fallback with no path filter).
func NewRg(scoped bool) *RgAdapter {
	origin := searchtypes.OriginRgRelaxed
	if scoped {
		origin = searchtypes.OriginRgScoped
	}
	return &RgAdapter{bin: newBinaryLocator("rg"), origin: origin, log: logger("rg")}
}

func (a *RgAdapter) Name() string { return "rg" }

func (a *RgAdapter) Available() bool { return a.bin.available() }

// rgEvent mirrors the subset of `rg --json` event shapes consumed by the
// adapter: only type "match" carries useful fields.
type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		LineNumber int `json:"line_number"`
		Lines      struct {
			Text string `json:"text"`
		} `json:"lines"`
		Submatches []struct {
			Match struct {
				Text string `json:"text"`
			} `json:"match"`
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"submatches"`
	} `json:"data"`
}

// Invoke runs one rg --json probe. When inv.Variant.Text is itself an
// alternation (the Literal Fast Path's union-regex mode), it is passed
// through as-is; the caller is responsible for building that alternation
// via rewrite.UnionRegex.
func (a *RgAdapter) Invoke(ctx context.Context, inv Invocation, out chan<- searchtypes.RawMatch) Result {
	path, err := a.bin.resolve()
	if err != nil {
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("rg")}}
	}

	args := []string{
		"--json",
		"--hidden",
		"--max-columns", fmt.Sprintf("%d", MaxColumnsTruncation),
		"-e", inv.Variant.Text,
	}
	for _, ext := range inv.Extensions {
		args = append(args, "-g", "*."+strings.TrimPrefix(ext, "."))
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
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("rg")}}
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
		var ev rgEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			warnings = append(warnings, warnParseError("rg", err.Error()))
			continue
		}
		if ev.Type != "match" {
			continue
		}

		raw := ev.Data.Lines.Text
		truncated := false
		reportedLen := 0
		for _, sm := range ev.Data.Submatches {
			if len(sm.Match.Text) > reportedLen {
				reportedLen = len(sm.Match.Text)
			}
		}
		if len(raw) >= MaxColumnsTruncation {
			truncated = true
		}

		m := searchtypes.RawMatch{
			Path:                ev.Data.Path.Text,
			Line:                ev.Data.LineNumber,
			Origin:              a.origin,
			RawSnippet:          raw,
			RawSnippetTruncated: truncated,
		}
		if !sink.send(ctx, m) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, warnParseError("rg", err.Error()))
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		warnings = append(warnings, searchtypes.Warning{
			Kind: searchtypes.ErrToolTimeout, Tool: "rg",
			Message: "deadline exceeded, partial results kept",
		})
	} else if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			// rg exits 1 for "no matches", not an error.
		} else {
			warnings = append(warnings, warnParseError("rg", waitErr.Error()))
		}
	}

	return Result{Dropped: sink.dropped, Warnings: warnings}
}
