package scorer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// defaultBodyLanguages are the language hints for which body retrieval is
// attempted even when the caller didn't explicitly request it: Rust and
// Swift symbols are frequently split across a signature line and a body
// that starts several lines later, so the snippet alone is often
// insufficient context.
var defaultBodyLanguages = map[searchtypes.LanguageHint]bool{
	searchtypes.LangRust:  true,
	searchtypes.LangSwift: true,
}

// ExpandContext materializes the ±before/±after line window around hit.Line
// in the file at root/hit.Path, clamped to the file's actual bounds, with
// 3-digit zero-padded line-number prefixes. If the window would be
// truncated by either file bound, it widens symmetrically from ±2/±4 to
// ±4/±4 once before giving up.
func ExpandContext(root string, hit *searchtypes.Hit, before, after int) error {
	lines, err := readLines(filepath.Join(root, hit.Path))
	if err != nil {
		return err
	}

	start, end, truncated := windowBounds(hit.Line, len(lines), before, after)
	if truncated && (before != searchtypes.TruncatedContextBefore || after != searchtypes.TruncatedContextAfter) {
		start, end, truncated = windowBounds(hit.Line, len(lines),
			searchtypes.TruncatedContextBefore, searchtypes.TruncatedContextAfter)
	}

	hit.ExpandedSnippet = renderWindow(lines, start, end)
	hit.ContextStart = start
	hit.ContextEnd = end
	hit.AutoExpandedContext = truncated
	return nil
}

func windowBounds(line, total, before, after int) (start, end int, truncated bool) {
	start = line - before
	end = line + after
	if start < 1 {
		start = 1
		truncated = true
	}
	if end > total {
		end = total
		truncated = true
	}
	return start, end, truncated
}

func renderWindow(lines []string, start, end int) string {
	var out []byte
	for n := start; n <= end && n <= len(lines); n++ {
		out = append(out, []byte(fmt.Sprintf("%03d %s\n", n, lines[n-1]))...)
	}
	return string(out)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// ShouldRetrieveBody decides whether the Verify stage should fetch hit's
// full body: an explicit request, or an implicit default for languages
// where a snippet alone is usually insufficient.
func ShouldRetrieveBody(req searchtypes.SearchRequest, hit searchtypes.Hit) bool {
	if req.RetrieveBody {
		return true
	}
	return defaultBodyLanguages[searchtypes.LanguageHint(hit.Language)]
}

// RetrieveBody reads hit.Path's full content, enforcing the MaxBodyBytes cap
// and UTF-8 validation. A file over the cap or containing invalid UTF-8 is
// reported via the returned Warning rather than failing the cycle -- the
// Hit simply keeps BodyRetrieved false.
func RetrieveBody(root string, hit *searchtypes.Hit) *searchtypes.Warning {
	full := filepath.Join(root, hit.Path)
	info, err := os.Stat(full)
	if err != nil {
		return &searchtypes.Warning{Kind: searchtypes.ErrParseError, Tool: "scorer", Message: err.Error()}
	}
	if info.Size() > searchtypes.MaxBodyBytes {
		return &searchtypes.Warning{
			Kind: searchtypes.ErrFileTooLarge, Tool: "scorer",
			Message: fmt.Sprintf("%s exceeds body retrieval cap", hit.Path),
		}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return &searchtypes.Warning{Kind: searchtypes.ErrParseError, Tool: "scorer", Message: err.Error()}
	}
	if !utf8.Valid(data) {
		return &searchtypes.Warning{
			Kind: searchtypes.ErrNonUTF8, Tool: "scorer",
			Message: fmt.Sprintf("%s is not valid UTF-8, body omitted", hit.Path),
		}
	}

	hit.Body = string(data)
	hit.BodyRetrieved = true
	return nil
}
