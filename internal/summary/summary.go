// Package summary implements the Summary Builder: it assembles the final
// CycleSummary from a cycle's accepted hits and stage statistics, deriving
// next_actions and hints and annotating body token counts after the fact
// rather than threading extra state through earlier stages.
package summary

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// bodyTokenEncoding is the BPE encoding used to annotate a retrieved body's
// token count, the standard default for general source text.
const bodyTokenEncoding = "cl100k_base"

// Build assembles the CycleSummary for one completed cycle.
func Build(
	cycleID string,
	req searchtypes.SearchRequest,
	variants []searchtypes.QueryVariant,
	hits []searchtypes.Hit,
	deduped int,
	stats searchtypes.StageStats,
	startup searchtypes.StartupStats,
) *searchtypes.CycleSummary {
	queries := make([]string, len(variants))
	for i, v := range variants {
		queries[i] = v.Text
	}

	annotateBodyTokens(hits)

	return &searchtypes.CycleSummary{
		Cycle:        cycleID,
		Symbol:       req.Symbol,
		Queries:      queries,
		TopHits:      hits,
		Deduped:      deduped,
		NextActions:  NextActions(hits),
		Hints:        ExtractHints(req.Root, hits),
		StageStats:   stats,
		Reward:       stats.Reward,
		StartupStats: startup,
	}
}

// NextActions formats the top 1-3 hits as "inspect <path>:<line>".
func NextActions(hits []searchtypes.Hit) []string {
	n := len(hits)
	if n > 3 {
		n = 3
	}
	actions := make([]string, n)
	for i := 0; i < n; i++ {
		actions[i] = fmt.Sprintf("inspect %s:%d", hits[i].Path, hits[i].Line)
	}
	return actions
}

// ExtractHints derives declaring-scope hints from the top hits: the
// enclosing extension/struct/class/impl block read back from the hit's
// source file, joined with its own declaration as "<scope> :: <decl>"
// (e.g. "extension UserService :: func hydrateAndNotify"). When no
// declaration or no enclosing scope can be found, falls back to the hit's
// leading tokens: the first six of the raw snippet for an ast-grep hit, the
// first four of the trimmed snippet otherwise.
func ExtractHints(root string, hits []searchtypes.Hit) []string {
	var out []string
	seen := make(map[string]bool)
	for _, h := range hits {
		hint := declaringScopeHint(root, h)
		if hint == "" {
			if h.Origin == searchtypes.OriginASTGrep {
				hint = leadingTokens(h.RawSnippet, 6)
			} else {
				hint = leadingTokens(h.Snippet, 4)
			}
		}
		if hint == "" || seen[hint] {
			continue
		}
		seen[hint] = true
		out = append(out, hint)
	}
	return out
}

// declKeywords are the declaration-introducing tokens recognized across
// Rust, Swift, TypeScript, and the scope-level constructs that can wrap
// them (extension/impl/struct/class/...).
var declKeywords = map[string]bool{
	"func": true, "fn": true, "function": true, "def": true,
	"struct": true, "class": true, "enum": true, "interface": true,
	"extension": true, "impl": true, "trait": true, "type": true,
	"const": true, "let": true, "var": true,
	"namespace": true, "mod": true, "module": true,
}

// scopeKeywords are the subset of declKeywords that introduce a scope a
// nested declaration can belong to, as opposed to a leaf declaration.
var scopeKeywords = map[string]bool{
	"extension": true, "struct": true, "class": true, "impl": true,
	"trait": true, "enum": true, "namespace": true, "module": true, "mod": true,
}

// declString finds the first declaration keyword in line and pairs it with
// the identifier prefix of the following token, e.g. "func fetchUser(id:"
// yields "func fetchUser".
func declString(line string) string {
	fields := strings.Fields(line)
	for i, t := range fields {
		if !declKeywords[t] {
			continue
		}
		if i+1 < len(fields) {
			if name := identifierPrefix(fields[i+1]); name != "" {
				return t + " " + name
			}
		}
		return t
	}
	return ""
}

func identifierPrefix(tok string) string {
	end := 0
	for end < len(tok) {
		c := tok[end]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	return tok[:end]
}

// declaringScopeHint joins a hit's own declaration with the nearest
// enclosing scope declaration above it in its source file.
func declaringScopeHint(root string, h searchtypes.Hit) string {
	decl := declString(h.Snippet)
	if decl == "" {
		return ""
	}
	scope := enclosingScope(root, h.Path, h.Line)
	if scope == "" {
		return ""
	}
	return scope + " :: " + decl
}

// enclosingScope scans the lines above h.Line in root/path for the nearest
// one whose first token is a scope keyword, returning its decl string.
func enclosingScope(root, path string, line int) string {
	f, err := os.Open(filepath.Join(root, path))
	if err != nil {
		return ""
	}
	defer f.Close()

	var before []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if n >= line {
			break
		}
		before = append(before, scanner.Text())
	}

	for i := len(before) - 1; i >= 0; i-- {
		fields := strings.Fields(before[i])
		if len(fields) == 0 || !scopeKeywords[fields[0]] {
			continue
		}
		if decl := declString(before[i]); decl != "" {
			return decl
		}
	}
	return ""
}

func leadingTokens(s string, n int) string {
	var tokens []string
	var cur []rune
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if len(cur) > 0 {
				tokens = append(tokens, string(cur))
				cur = nil
			}
			if len(tokens) >= n {
				break
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 && len(tokens) < n {
		tokens = append(tokens, string(cur))
	}
	result := ""
	for i, t := range tokens {
		if i > 0 {
			result += " "
		}
		result += t
	}
	return result
}

// annotateBodyTokens fills BodyTokenCount for every hit whose body was
// retrieved, using the same lazily-initialized tiktoken encoding for the
// whole cycle. A hit with no retrieved body is left at its zero value.
func annotateBodyTokens(hits []searchtypes.Hit) {
	var enc *tiktoken.Tiktoken
	for i := range hits {
		if !hits[i].BodyRetrieved || hits[i].Body == "" {
			continue
		}
		if enc == nil {
			var err error
			enc, err = tiktoken.GetEncoding(bodyTokenEncoding)
			if err != nil {
				return // leave BodyTokenCount at 0 for the whole batch rather than retry per hit
			}
		}
		hits[i].BodyTokenCount = len(enc.Encode(hits[i].Body, nil, nil))
	}
}
