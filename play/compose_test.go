package play

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// warnCounter is a slog handler that counts warning records.
type warnCounter struct {
	mu    sync.Mutex
	warns int
}

func (h *warnCounter) Enabled(context.Context, slog.Level) bool { return true }
func (h *warnCounter) Handle(_ context.Context, r slog.Record) error {
	if r.Level == slog.LevelWarn {
		h.mu.Lock()
		h.warns++
		h.mu.Unlock()
	}
	return nil
}
func (h *warnCounter) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *warnCounter) WithGroup(string) slog.Handler      { return h }

func newTestComposer() (*Composer, *warnCounter) {
	h := &warnCounter{}
	c := NewComposer(0, time.UTC, "fr_FR")
	c.Logger = slog.New(h)
	return c, h
}

func gymnasePlay() Play {
	return Play{
		ID:            42,
		Wicks:         "1234",
		Title:         "Le Mariage de raison",
		Author:        "Scribe",
		Acts:          intPtr(1),
		Format:        "a",
		Genre:         "vaud.",
		ExpandedGenre: "vaudeville",
		Music:         "Adam",
		TheaterName:   "Théâtre du Gymnase",
		TheaterCode:   "GYM",
		Date:          time.Date(1826, 10, 15, 0, 0, 0, 0, time.UTC),
		Anniversary:   true,
	}
}

func TestDateString(t *testing.T) {
	c, _ := newTestComposer()
	got := c.DateString(time.Date(1826, 10, 15, 0, 0, 0, 0, time.UTC))
	if got != "dimanche le 15 octobre 1826" {
		t.Errorf("DateString() = %q", got)
	}
	got = c.DateString(time.Date(1826, 3, 1, 0, 0, 0, 0, time.UTC))
	if got != "mercredi le 01 mars 1826" {
		t.Errorf("DateString() = %q", got)
	}
}

func TestComposeFullTier(t *testing.T) {
	c, h := newTestComposer()
	text, tier := c.Render(gymnasePlay())
	want := "Le Mariage de raison, par Scribe, vaudeville en 1 acte, musique d'Adam, a débuté #CeJourLà dimanche le 15 octobre 1826 au Théâtre du Gymnase. Wicks nº. 1234."
	if text != want {
		t.Errorf("Render() =\n%q\nwant\n%q", text, want)
	}
	if tier != TierFull {
		t.Errorf("tier = %v, want full", tier)
	}
	if h.warns != 0 {
		t.Errorf("warnings = %d, want 0", h.warns)
	}
}

func TestComposeTheaterCodeFallback(t *testing.T) {
	c, _ := newTestComposer()
	p := gymnasePlay()
	p.TheaterName = ""
	p.Anniversary = false
	p.Music = ""
	want := "Le Mariage de raison, par Scribe, vaudeville en 1 acte, a débuté dimanche le 15 octobre 1826 GYM. Wicks nº. 1234."
	if got := c.Compose(p); got != want {
		t.Errorf("Compose() =\n%q\nwant\n%q", got, want)
	}
}

func TestComposeShortGenreTier(t *testing.T) {
	c, h := newTestComposer()
	p := gymnasePlay()
	p.ExpandedGenre = strings.Repeat("vaudeville ", 25)

	text, tier := c.Render(p)
	want := "Le Mariage de raison, par Scribe, vaud. en 1 acte, musique d'Adam, a débuté #CeJourLà dimanche le 15 octobre 1826 au Théâtre du Gymnase. Wicks nº. 1234."
	if text != want {
		t.Errorf("Render() =\n%q\nwant\n%q", text, want)
	}
	if tier != TierShortGenre {
		t.Errorf("tier = %v, want short_genre", tier)
	}
	if h.warns != 1 {
		t.Errorf("warnings = %d, want 1", h.warns)
	}
}

func TestComposeMinimalTier(t *testing.T) {
	c, h := newTestComposer()
	p := gymnasePlay()
	p.Title = strings.Repeat("Très long titre ", 20)

	text, tier := c.Render(p)
	want := p.Title + ", Scribe #CeJourLà dimanche le 15 octobre 1826 GYM. Wicks nº. 1234."
	if text != want {
		t.Errorf("Render() =\n%q\nwant\n%q", text, want)
	}
	if tier != TierMinimal {
		t.Errorf("tier = %v, want minimal", tier)
	}
	if h.warns != 2 {
		t.Errorf("warnings = %d, want 2", h.warns)
	}
	if Length(text) <= DefaultMaxLength {
		t.Errorf("expected overflowing minimal message, got %d code points", Length(text))
	}
}

func TestComposeIdempotent(t *testing.T) {
	c, _ := newTestComposer()
	p := gymnasePlay()
	if a, b := c.Compose(p), c.Compose(p); a != b {
		t.Errorf("Compose() not stable:\n%q\n%q", a, b)
	}
}

func TestComposeRespectsMaxLength(t *testing.T) {
	c, h := newTestComposer()
	c.MaxLength = 100
	_, tier := c.Render(gymnasePlay())
	if tier != TierMinimal {
		t.Errorf("tier = %v, want minimal under a 100 code point ceiling", tier)
	}
	if h.warns != 2 {
		t.Errorf("warnings = %d, want 2", h.warns)
	}
}

func TestLengthCountsCodePoints(t *testing.T) {
	if got := Length("Théâtre"); got != 7 {
		t.Errorf("Length(composed) = %d, want 7", got)
	}
	if got := Length("The\u0301a\u0302tre"); got != 7 {
		t.Errorf("Length(decomposed) = %d, want 7", got)
	}
}

func TestRenderSinglePass(t *testing.T) {
	got := render("{title} {wicks}", map[string]string{"title": "{wicks}", "wicks": "12"})
	if got != "{wicks} 12" {
		t.Errorf("render() = %q", got)
	}
}

func TestTierString(t *testing.T) {
	for tier, want := range map[Tier]string{TierFull: "full", TierShortGenre: "short_genre", TierMinimal: "minimal", Tier(9): "unknown"} {
		if got := tier.String(); got != want {
			t.Errorf("Tier(%d).String() = %q, want %q", tier, got, want)
		}
	}
}
