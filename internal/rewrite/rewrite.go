// Package rewrite implements the Query Rewriter: given a raw symbol and an
// optional language hint, it produces an ordered, deduplicated sequence of
// textual QueryVariants for the Scheduler to dispatch as rg/ast-grep probes.
//
// Variant generation is deterministic so that repeated cycles over the same
// input produce byte-identical query lists.
package rewrite

import (
	"regexp"
	"strings"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// maxVariants bounds probe fan-out.
const maxVariants = 8

// literalSymbolPattern is the fast-path detector: a symbol made up only of
// identifier characters qualifies for the single-invocation FastPath.
var literalSymbolPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// IsFastPathEligible reports whether symbol matches the literal fast-path
// shape. policyDisablesAST additionally gates the fast path: it is taken
// only when the symbol matches and --disable-ast-grep is not required by
// policy.
func IsFastPathEligible(symbol string, policyDisablesAST bool) bool {
	if policyDisablesAST {
		return false
	}
	return literalSymbolPattern.MatchString(symbol)
}

// hasMixedCase reports whether s contains both an uppercase and a lowercase
// ASCII letter, the trigger for emitting a case-insensitive regex variant.
func hasMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
		if hasUpper && hasLower {
			return true
		}
	}
	return false
}

// metaReplacer matches the regex-significant runes that Build's regex
// fallback variant must escape.
var metaReplacer = regexp.MustCompile(`[.*+?()\[\]{}|^$\\]`)

func escapeRegexMeta(s string) string {
	return metaReplacer.ReplaceAllStringFunc(s, func(m string) string {
		return "\\" + m
	})
}

// Build produces the ordered, deduplicated QueryVariant list for symbol
// under the given language hint. Literal is always first. The result is
// capped at maxVariants and never exceeds it even when every rule below
// would otherwise fire.
func Build(symbol string, lang searchtypes.LanguageHint) []searchtypes.QueryVariant {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil
	}

	seen := make(map[string]bool)
	var variants []searchtypes.QueryVariant
	add := func(text string, kind searchtypes.VariantKind) {
		if len(variants) >= maxVariants || seen[text] {
			return
		}
		seen[text] = true
		variants = append(variants, searchtypes.QueryVariant{
			Text:       text,
			Kind:       kind,
			Precedence: len(variants),
		})
	}

	// Base: the raw symbol, always first.
	add(symbol, searchtypes.VariantLiteral)

	// Trailing co-occurrence bigrams, domain-agnostic.
	add(symbol+" User", searchtypes.VariantDocs)
	add(symbol+" error", searchtypes.VariantDocs)

	// Qualified forms, language-agnostic.
	add("."+symbol, searchtypes.VariantQualified)
	add(symbol+"(", searchtypes.VariantQualified)

	// Language presets.
	switch lang {
	case searchtypes.LangRust:
		addRustPresets(add, symbol)
	case searchtypes.LangSwift:
		addSwiftPresets(add, symbol)
	case searchtypes.LangTS, searchtypes.LangTSX:
		addTSPresets(add, symbol)
	case searchtypes.LangAutoSwiftTS:
		addSwiftPresets(add, symbol)
		addTSPresets(add, symbol)
	}

	// Regex fallback: escaped literal, plus a case-insensitive variant when
	// the symbol has mixed case.
	add(escapeRegexMeta(symbol), searchtypes.VariantRegex)
	if hasMixedCase(symbol) {
		add("(?i)"+escapeRegexMeta(symbol), searchtypes.VariantRegex)
	}

	return variants
}

func addRustPresets(add func(string, searchtypes.VariantKind), symbol string) {
	add("fn "+symbol, searchtypes.VariantReceiver)
	add("impl "+symbol, searchtypes.VariantReceiver)
}

func addSwiftPresets(add func(string, searchtypes.VariantKind), symbol string) {
	add("func "+symbol, searchtypes.VariantReceiver)
	add("extension "+symbol, searchtypes.VariantReceiver)
	add("associatedtype "+symbol, searchtypes.VariantReceiver)
}

func addTSPresets(add func(string, searchtypes.VariantKind), symbol string) {
	add("function "+symbol, searchtypes.VariantReceiver)
	add("const "+symbol+" =", searchtypes.VariantReceiver)
	add("export "+symbol, searchtypes.VariantReceiver)
	add("<"+symbol, searchtypes.VariantReceiver)
}

// UnionRegex builds the single alternation pattern used by the Literal Fast
// Path's rg invocation: every variant's text OR'd together, non-regex
// variants escaped first and regex variants passed through unchanged.
func UnionRegex(variants []searchtypes.QueryVariant) string {
	if len(variants) == 0 {
		return ""
	}
	parts := make([]string, 0, len(variants))
	seen := make(map[string]bool)
	for _, v := range variants {
		pat := v.Text
		if v.Kind != searchtypes.VariantRegex {
			pat = escapeRegexMeta(pat)
		}
		if seen[pat] {
			continue
		}
		seen[pat] = true
		parts = append(parts, pat)
	}
	return strings.Join(parts, "|")
}
