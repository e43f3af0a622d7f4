package play

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// locatives maps the leading word of a theater name to the contracted
// preposition and article that make it read as a place.
var locatives = map[string]string{
	"Théâtre":                 "au ",
	"Th.":                     "au ",
	"Académie":                "à l'",
	"Cirque":                  "au ",
	"Fêtes":                   "aux ",
	"Cour":                    "à la ",
	"Opéra-Comique-Nationale": "à l'",
}

var formats = map[string][2]string{
	"a":    {"acte", "actes"},
	"tabl": {"tableau", "tableaux"},
}

const (
	genreTemplate       = " %s,"
	genreFormatTemplate = " %s en %s %s,"
	genreBareTemplate   = " %s en %s,"
)

// Theater prefixes a theater name with the French preposition matching its
// first word ("Cirque du Soleil" -> "au Cirque du Soleil"). Names with an
// unknown first word are returned unchanged.
func Theater(name string) string {
	if name == "" {
		return ""
	}
	first, _, _ := strings.Cut(name, " ")
	return locatives[first] + name
}

// Author returns the " par {name}," phrase, or "" for a blank name.
func Author(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return fmt.Sprintf(" par %s,", name)
}

// Music returns the music credit phrase, eliding "de" before a vowel.
func Music(credit string) string {
	if credit == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(credit)
	if strings.ContainsRune("aeiouy", unicode.ToLower(r)) {
		return fmt.Sprintf(" musique d'%s,", credit)
	}
	return fmt.Sprintf(" musique de %s,", credit)
}

// ExpandFormat spells out a format code, singular only when there is exactly
// one act. Unknown codes come back as given.
func ExpandFormat(acts *int, code string) string {
	forms, ok := formats[code]
	if !ok {
		return code
	}
	if acts != nil && *acts == 1 {
		return forms[0]
	}
	return forms[1]
}
