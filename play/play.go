// Package play models one historical performance and renders it as the text
// of a social post.
package play

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// AnniversaryMarker is appended to the verb when the performance happened
// exactly on the reference date.
const AnniversaryMarker = " #CeJourLà"

// ErrInvalidRow is returned when a store row lacks its identifiers.
var ErrInvalidRow = errors.New("invalid play row")

// Row is a spectacle_play row joined with its theater, as scanned from the store.
type Row struct {
	ID          int64
	Wicks       string
	Title       string
	Author      sql.NullString
	Genre       sql.NullString
	Acts        sql.NullInt64
	Format      sql.NullString
	Music       sql.NullString
	TheaterCode sql.NullString
	TheaterName sql.NullString
	GregDate    time.Time
	RevDate     sql.NullString
}

// Extras holds the values resolved outside the row before rendering.
type Extras struct {
	// ExpandedGenre is the genre with its abbreviations spelled out.
	ExpandedGenre string
	// Reference is the date that earns the anniversary marker, usually
	// 200 years before today.
	Reference time.Time
}

// Play is an immutable, fully resolved performance record.
type Play struct {
	ID            int64
	Wicks         string
	Title         string
	Author        string
	Acts          *int
	Format        string
	Genre         string
	ExpandedGenre string
	Music         string
	TheaterName   string
	TheaterCode   string
	Date          time.Time
	RevDate       string
	Anniversary   bool
}

// New builds a Play from a store row and the externally resolved extras.
func New(row Row, extras Extras) (Play, error) {
	if row.ID <= 0 || row.Wicks == "" {
		return Play{}, fmt.Errorf("%w: id=%d wicks=%q", ErrInvalidRow, row.ID, row.Wicks)
	}
	p := Play{
		ID:            row.ID,
		Wicks:         row.Wicks,
		Title:         row.Title,
		Author:        row.Author.String,
		Format:        row.Format.String,
		Genre:         row.Genre.String,
		ExpandedGenre: extras.ExpandedGenre,
		Music:         row.Music.String,
		TheaterName:   row.TheaterName.String,
		TheaterCode:   row.TheaterCode.String,
		Date:          row.GregDate,
		RevDate:       row.RevDate.String,
	}
	if row.Acts.Valid {
		acts := int(row.Acts.Int64)
		p.Acts = &acts
	}
	if !extras.Reference.IsZero() {
		p.Anniversary = SameDay(p.Date, extras.Reference)
	}
	return p, nil
}

// SameDay reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Marker returns the anniversary marker or "".
func (p Play) Marker() string {
	if p.Anniversary {
		return AnniversaryMarker
	}
	return ""
}

// GenrePhrase renders the genre with its act count and format. An empty
// genre argument falls back to the record's own genre code.
func (p Play) GenrePhrase(genre string) string {
	if genre == "" {
		genre = p.Genre
	}
	if genre == "" {
		return ""
	}
	if p.Format == "" {
		return fmt.Sprintf(genreTemplate, genre)
	}
	format := ExpandFormat(p.Acts, p.Format)
	if p.Acts == nil {
		return fmt.Sprintf(genreBareTemplate, genre, format)
	}
	return fmt.Sprintf(genreFormatTemplate, genre, strconv.Itoa(*p.Acts), format)
}

// ExpandedGenrePhrase is GenrePhrase using the expanded genre when known.
func (p Play) ExpandedGenrePhrase() string {
	return p.GenrePhrase(p.ExpandedGenre)
}

// TheaterString is the locative theater phrase, falling back to the theater
// code when the name is unknown.
func (p Play) TheaterString() string {
	if p.TheaterName != "" {
		return Theater(p.TheaterName)
	}
	return Theater(p.TheaterCode)
}
