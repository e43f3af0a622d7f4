// Package abbrev spells out the dotted abbreviations used in the catalog's
// genre column ("op.-com." -> "opéra-comique").
package abbrev

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// tokenRe matches a run of word characters followed by a period. RE2's \w
// is ASCII only, so letters are spelled out to keep accented words whole.
var tokenRe = regexp.MustCompile(`([\p{L}\p{N}_]+)\.`)

// Lookup resolves a single abbreviation (without its period).
type Lookup interface {
	Abbreviation(ctx context.Context, word string) (expansion string, found bool, err error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, word string) (string, bool, error)

func (f LookupFunc) Abbreviation(ctx context.Context, word string) (string, bool, error) {
	return f(ctx, word)
}

// Tokens returns the distinct abbreviated words in text, in order of first
// appearance.
func Tokens(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range tokenRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Expand replaces every "word." in text with the expansion found by lookup.
// Words without an expansion are left as they are, and lookup failures are
// logged and treated the same way. Replacement is a single pass, so an
// expansion that itself looks abbreviated is not expanded again.
func Expand(ctx context.Context, lookup Lookup, text string) string {
	if text == "" {
		return text
	}
	type pair struct{ from, to string }
	var pairs []pair
	for _, word := range Tokens(text) {
		expansion, found, err := lookup.Abbreviation(ctx, word)
		if err != nil {
			slog.Error("abbreviation lookup failed", slog.String("word", word), slog.Any("err", err), slog.String("component", "abbrev"))
			continue
		}
		if !found || expansion == "" {
			continue
		}
		pairs = append(pairs, pair{from: word + ".", to: expansion})
	}
	if len(pairs) == 0 {
		return text
	}
	// Longer tokens first so "com." never wins over "op.-com." style overlaps.
	sort.SliceStable(pairs, func(i, j int) bool { return len(pairs[i].from) > len(pairs[j].from) })
	args := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		args = append(args, p.from, p.to)
	}
	return strings.NewReplacer(args...).Replace(text)
}
