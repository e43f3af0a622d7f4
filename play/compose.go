package play

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goodsign/monday"
	"golang.org/x/text/unicode/norm"

	"github.com/onnwee/spectacles-xix/telemetry"
)

// DefaultMaxLength is the post length ceiling, in code points.
const DefaultMaxLength = 280

// Templates for the three levels of detail. Placeholders are substituted
// from a flat field map by render.
const (
	FullTemplate    = "{title},{author_phrase}{genre_phrase}{music_phrase} a débuté{marker} {date} {theater}. Wicks nº. {wicks}."
	MinimalTemplate = "{title}, {author}{marker} {date} {theater_code}. Wicks nº. {wicks}."
)

// dateLayout reads "dimanche le 15 octobre 1826" once translated.
const dateLayout = "Monday le 02 January 2006"

// Tier is the level of detail a message was rendered at.
type Tier int

const (
	TierFull Tier = iota
	TierShortGenre
	TierMinimal
)

func (t Tier) String() string {
	switch t {
	case TierFull:
		return "full"
	case TierShortGenre:
		return "short_genre"
	case TierMinimal:
		return "minimal"
	default:
		return "unknown"
	}
}

// Composer renders plays into post text no longer than MaxLength when any
// of its tiers allows it.
type Composer struct {
	MaxLength int
	Location  *time.Location
	Locale    monday.Locale
	Logger    *slog.Logger
}

// NewComposer returns a Composer for the given zone and locale; zero values
// fall back to 280 code points, Europe/Paris and fr_FR.
func NewComposer(maxLength int, loc *time.Location, locale string) *Composer {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if loc == nil {
		if l, err := time.LoadLocation("Europe/Paris"); err == nil {
			loc = l
		} else {
			loc = time.UTC
		}
	}
	if locale == "" {
		locale = string(monday.LocaleFrFR)
	}
	return &Composer{MaxLength: maxLength, Location: loc, Locale: monday.Locale(locale)}
}

func (c *Composer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Composer) maxLength() int {
	if c.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return c.MaxLength
}

// DateString formats a performance date in the composer's locale.
func (c *Composer) DateString(date time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	locale := c.Locale
	if locale == "" {
		locale = monday.LocaleFrFR
	}
	return monday.Format(time.Date(y, m, d, 12, 0, 0, 0, loc), dateLayout, locale)
}

// Compose returns the post text for p.
func (c *Composer) Compose(p Play) string {
	text, _ := c.Render(p)
	return text
}

// Render returns the post text for p and the tier it was rendered at. The
// minimal tier is returned even when it is still too long.
func (c *Composer) Render(p Play) (string, Tier) {
	fields := map[string]string{
		"title":         p.Title,
		"author_phrase": Author(p.Author),
		"genre_phrase":  p.ExpandedGenrePhrase(),
		"music_phrase":  Music(p.Music),
		"marker":        p.Marker(),
		"date":          c.DateString(p.Date),
		"theater":       p.TheaterString(),
		"wicks":         p.Wicks,
	}
	text := render(FullTemplate, fields)
	n := Length(text)
	if n <= c.maxLength() {
		return text, TierFull
	}
	c.logger().Warn("description too long", slog.Int64("play_id", p.ID), slog.Int("length", n), slog.String("next_tier", TierShortGenre.String()))
	telemetry.RecordDegradation(TierShortGenre.String())

	fields["genre_phrase"] = p.GenrePhrase("")
	text = render(FullTemplate, fields)
	n = Length(text)
	if n <= c.maxLength() {
		return text, TierShortGenre
	}
	c.logger().Warn("description still too long", slog.Int64("play_id", p.ID), slog.Int("length", n), slog.String("next_tier", TierMinimal.String()))
	telemetry.RecordDegradation(TierMinimal.String())

	fields["author"] = p.Author
	fields["theater_code"] = p.TheaterCode
	return render(MinimalTemplate, fields), TierMinimal
}

// Length counts the code points of s in its composed normal form, the way
// the posting platforms count characters.
func Length(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

// render substitutes {key} placeholders in one pass; substituted values are
// never rescanned.
func render(tmpl string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", fields[k])
	}
	return norm.NFC.String(strings.NewReplacer(pairs...).Replace(tmpl))
}
