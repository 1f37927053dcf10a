package adapter

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"time"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// AstGrepAdapter wraps ast-grep (sg), the only adapter that understands
// syntax rather than text. A structural match is the highest-trust origin
// and, combined with precision 1.0 and decent clustering, is the signal
// that short-circuits the rest of the cycle.
type AstGrepAdapter struct {
	bin *binaryLocator
}

func NewAstGrep() *AstGrepAdapter {
	return &AstGrepAdapter{bin: newBinaryLocator("sg")}
}

func (a *AstGrepAdapter) Name() string { return "ast-grep" }

func (a *AstGrepAdapter) Available() bool { return a.bin.available() }

// astMatch mirrors the fields of one element of `sg --json`'s output
// array consumed by the adapter: file, range.start.line, text.
type astMatch struct {
	File  string `json:"file"`
	Range struct {
		Start struct {
			Line int `json:"line"`
		} `json:"start"`
	} `json:"range"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Invoke runs one structural probe. inv.Variant.Text is an ast-grep pattern,
// not a regex -- the caller (Disambiguate stage) is responsible for handing
// it a pattern shape rather than a rewrite variant's raw regex text.
func (a *AstGrepAdapter) Invoke(ctx context.Context, inv Invocation, out chan<- searchtypes.RawMatch) Result {
	path, err := a.bin.resolve()
	if err != nil {
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("ast-grep")}}
	}

	args := []string{"--json=compact", "--pattern", inv.Variant.Text}
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
		return Result{Warnings: []searchtypes.Warning{warnBinaryNotFound("ast-grep")}}
	}

	sink := newRecordSink(out, inv.MaxMatches)
	var warnings []searchtypes.Warning

	dec := json.NewDecoder(stdout)
	// The result is a JSON array; consume its opening bracket then decode
	// elements one at a time so a match reaches the caller as soon as
	// ast-grep has emitted it, without buffering the whole array.
	if tok, err := dec.Token(); err != nil {
		if err != io.EOF {
			warnings = append(warnings, searchtypes.Warning{
				Kind: searchtypes.ErrParseError, Tool: "ast-grep", Message: "empty output: " + err.Error(),
			})
		}
	} else if d, ok := tok.(json.Delim); !ok || d != '[' {
		warnings = append(warnings, searchtypes.Warning{
			Kind: searchtypes.ErrParseError, Tool: "ast-grep", Message: "unexpected output shape, not a JSON array",
		})
	} else {
		for dec.More() {
			var m astMatch
			if err := dec.Decode(&m); err != nil {
				warnings = append(warnings, searchtypes.Warning{
					Kind: searchtypes.ErrParseError, Tool: "ast-grep", Message: err.Error(),
				})
				break
			}
			raw := searchtypes.RawMatch{
				Path:       m.File,
				Line:       m.Range.Start.Line,
				Origin:     searchtypes.OriginASTGrep,
				Language:   m.Language,
				RawSnippet: m.Text,
			}
			if !sink.send(ctx, raw) {
				break
			}
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		warnings = append(warnings, searchtypes.Warning{
			Kind: searchtypes.ErrToolTimeout, Tool: "ast-grep",
			Message: "deadline exceeded, partial results kept",
		})
	} else if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			warnings = append(warnings, searchtypes.Warning{
				Kind: searchtypes.ErrPatternError, Tool: "ast-grep", Message: waitErr.Error(),
			})
		}
	}

	return Result{Dropped: sink.dropped, Warnings: warnings}
}
