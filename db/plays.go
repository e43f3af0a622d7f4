package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/onnwee/spectacles-xix/play"
)

// Platform is a publishing destination with its own posted column.
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformMastodon Platform = "mastodon"
)

// ErrUnknownPlatform is returned for a platform without a posted column.
var ErrUnknownPlatform = errors.New("unknown platform")

// ErrPlayNotFound is returned when a write targets a missing row.
var ErrPlayNotFound = errors.New("play not found")

// Column returns the spectacle_play column recording the last post.
func (p Platform) Column() (string, error) {
	switch p {
	case PlatformTwitter:
		return "last_tweeted", nil
	case PlatformMastodon:
		return "last_tooted", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, string(p))
}

// Filter narrows candidate queries.
type Filter struct {
	// IncludePosted disables the "not yet posted" conditions.
	IncludePosted bool
	// Platforms whose posted column must be NULL.
	Platforms []Platform
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

const playSelect = `SELECT p.id, p.wicks, p.title, p.author, p.genre, p.acts, p.format,
	p.music, p.theater_code, t.theater_name, p.greg_date, p.rev_date
FROM spectacle_play p LEFT JOIN spectacle_theater t ON t.theater_code = p.theater_code`

func (f Filter) clause(where string) (string, error) {
	var b strings.Builder
	b.WriteString(playSelect)
	b.WriteString("\nWHERE ")
	b.WriteString(where)
	if !f.IncludePosted {
		for _, p := range f.Platforms {
			col, err := p.Column()
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " AND p.%s IS NULL", col)
		}
	}
	b.WriteString("\nORDER BY p.id")
	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
	}
	return b.String(), nil
}

// QueryByWicks returns the performances catalogued under a Wicks number.
func (s *Store) QueryByWicks(ctx context.Context, wicks string, f Filter) ([]play.Row, error) {
	q, err := f.clause("p.wicks = $1")
	if err != nil {
		return nil, err
	}
	return s.queryPlays(ctx, q, wicks)
}

// QueryByDate returns the performances given on date (calendar day only).
func (s *Store) QueryByDate(ctx context.Context, date time.Time, f Filter) ([]play.Row, error) {
	q, err := f.clause("p.greg_date = $1::date")
	if err != nil {
		return nil, err
	}
	return s.queryPlays(ctx, q, date.Format(time.DateOnly))
}

// FindForDate looks up date and, when nothing is left for that day, falls
// back to a single performance from the first of the month.
func (s *Store) FindForDate(ctx context.Context, date time.Time, f Filter) ([]play.Row, error) {
	rows, err := s.QueryByDate(ctx, date, f)
	if err != nil || len(rows) > 0 {
		return rows, err
	}
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	s.Logger.Info("checking first of the month", slog.String("date", first.Format(time.DateOnly)))
	f.Limit = 1
	return s.QueryByDate(ctx, first, f)
}

func (s *Store) queryPlays(ctx context.Context, q string, arg any) ([]play.Row, error) {
	rows, err := s.DB.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("query plays for %v: %w", arg, err)
	}
	defer rows.Close()

	var out []play.Row
	for rows.Next() {
		var r play.Row
		if err := rows.Scan(&r.ID, &r.Wicks, &r.Title, &r.Author, &r.Genre, &r.Acts, &r.Format,
			&r.Music, &r.TheaterCode, &r.TheaterName, &r.GregDate, &r.RevDate); err != nil {
			return nil, fmt.Errorf("scan play: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plays: %w", err)
	}
	if len(out) == 0 {
		s.Logger.Info("no plays found", slog.Any("term", arg))
	}
	return out, nil
}

// Abbreviation returns the expansion stored for word (without its period).
func (s *Store) Abbreviation(ctx context.Context, word string) (string, bool, error) {
	if word == "" {
		return "", false, nil
	}
	var expansion string
	err := s.DB.QueryRowContext(ctx,
		`SELECT expansion FROM spectacle_abbrev WHERE abbrev = $1`, word).Scan(&expansion)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup abbreviation %q: %w", word, err)
	}
	return expansion, true, nil
}

// MarkPosted records when play id was published on platform. Repeating the
// call only moves the timestamp.
func (s *Store) MarkPosted(ctx context.Context, id int64, platform Platform, at time.Time) error {
	col, err := platform.Column()
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		fmt.Sprintf(`UPDATE spectacle_play SET %s = $1 WHERE id = $2`, col), at, id)
	if err != nil {
		return fmt.Errorf("mark play %d posted on %s: %w", id, platform, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrPlayNotFound, id)
	}
	s.Logger.Debug("marked play posted",
		slog.Int64("play_id", id),
		slog.String("platform", string(platform)),
		slog.Time("at", at))
	return nil
}
