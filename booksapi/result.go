// Package booksapi searches Google Books for a free French edition of a
// play and tidies the links it returns.
package booksapi

import "strings"

// Result is the first matching volume, if any.
type Result struct {
	BookURL  string `json:"book_url"`
	ImageURL string `json:"image_url"`
}

// Empty reports whether the search found nothing.
func (r Result) Empty() bool { return r.BookURL == "" && r.ImageURL == "" }

// BetterBookURL drops the "&dq=..." search term from the preview link. A term
// is only removed when another parameter follows it.
func (r Result) BetterBookURL() string {
	return stripQueryTerm(r.BookURL, "&dq=")
}

// BetterImageURL asks for the larger cover and drops the curled-page effect.
func (r Result) BetterImageURL() string {
	if r.ImageURL == "" {
		return ""
	}
	out := strings.ReplaceAll(r.ImageURL, "zoom=1", "zoom=3")
	return strings.ReplaceAll(out, "&edge=curl", "")
}

func stripQueryTerm(s, prefix string) string {
	var b strings.Builder
	for {
		i := strings.Index(s, prefix)
		if i < 0 {
			break
		}
		// the value must be non-empty and terminated by '&'
		rest := s[i+len(prefix):]
		j := strings.IndexByte(rest, '&')
		if j == 0 && len(rest) > 1 {
			j = strings.IndexByte(rest[1:], '&')
			if j >= 0 {
				j++
			}
		}
		if j <= 0 {
			break
		}
		b.WriteString(s[:i])
		s = rest[j:]
	}
	b.WriteString(s)
	return b.String()
}
