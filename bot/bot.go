// Package bot drives one run: pick the performance given 200 years ago
// today, decide whether it is time to post, compose the message and publish
// it to every enabled platform.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/spectacles-xix/abbrev"
	"github.com/onnwee/spectacles-xix/booksapi"
	"github.com/onnwee/spectacles-xix/cadence"
	"github.com/onnwee/spectacles-xix/db"
	"github.com/onnwee/spectacles-xix/play"
	"github.com/onnwee/spectacles-xix/publish"
	"github.com/onnwee/spectacles-xix/telemetry"
)

// ErrPublishFailed wraps the errors of platforms that rejected the post.
var ErrPublishFailed = errors.New("publish failed")

// Store is the catalog as the driver uses it.
type Store interface {
	abbrev.Lookup
	QueryByWicks(ctx context.Context, wicks string, f db.Filter) ([]play.Row, error)
	FindForDate(ctx context.Context, date time.Time, f db.Filter) ([]play.Row, error)
	MarkPosted(ctx context.Context, id int64, platform db.Platform, at time.Time) error
}

// Books finds a digitized edition of the play.
type Books interface {
	Lookup(ctx context.Context, title, author string) booksapi.Result
	FetchImage(ctx context.Context, r booksapi.Result) ([]byte, error)
}

// Publisher posts to one platform and returns the new status id.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, p publish.Post) (string, error)
}

// Target pairs a publisher with the column its posts are recorded in.
type Target struct {
	Platform  db.Platform
	Publisher Publisher
}

// Options are the per-run switches.
type Options struct {
	// Date overrides the target day (DD-MM-YYYY).
	Date string
	// Wicks selects a performance by catalog number instead of by date.
	Wicks string
	// Book enables the Google Books lookup.
	Book bool
	// IncludePosted also considers performances already posted.
	IncludePosted bool
	Force         bool
	DryRun        bool
}

// PostResult is the outcome on one platform.
type PostResult struct {
	Platform db.Platform
	StatusID string
	Err      error
	Class    publish.ErrorClass
	Marked   bool
}

// Outcome describes what a run did.
type Outcome struct {
	Target     time.Time
	Candidates int
	// Posted is false when the run stopped before publishing.
	Posted  bool
	PlayID  int64
	Message string
	Tier    play.Tier
	Results []PostResult
}

// Runner holds the collaborators of a run. Books may be nil.
type Runner struct {
	Store    Store
	Books    Books
	Targets  []Target
	Composer *play.Composer
	Location *time.Location
	Now      func() time.Time
}

func (r *Runner) now() time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	if r.Now != nil {
		return r.Now().In(loc)
	}
	return time.Now().In(loc)
}

func (r *Runner) filter(opts Options) db.Filter {
	f := db.Filter{IncludePosted: opts.IncludePosted}
	for _, t := range r.Targets {
		f.Platforms = append(f.Platforms, t.Platform)
	}
	return f
}

// Run performs one pass. Store failures are logged and end the run quietly;
// the returned error reports bad options, an unusable row, or platforms
// that rejected the post.
func (r *Runner) Run(ctx context.Context, opts Options) (Outcome, error) {
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "bot"))
	now := r.now()
	reference := YearsAgo(now, YearsBack)
	out := Outcome{Target: reference}

	if opts.Date != "" {
		d, err := ParseDate(opts.Date, now.Location())
		if err != nil {
			return out, err
		}
		out.Target = d
	}

	rows := r.candidates(ctx, logger, opts, out.Target)
	out.Candidates = len(rows)
	telemetry.SetCandidates(len(rows))
	if len(rows) == 0 {
		logger.Info("nothing to post", slog.String("date", out.Target.Format(time.DateOnly)))
		return out, nil
	}

	post := cadence.ShouldPost(cadence.Options{Force: opts.Force, DryRun: opts.DryRun}, now.Hour(), len(rows))
	telemetry.RecordCadence(post)
	if !post {
		logger.Info("not time to post yet", slog.Int("hour", now.Hour()), slog.Int("candidates", len(rows)))
		return out, nil
	}

	row := rows[0]
	_, span := telemetry.StartSpan(ctx, "bot.compose", attribute.Int64("play_id", row.ID))
	p, err := play.New(row, play.Extras{
		ExpandedGenre: abbrev.Expand(ctx, r.Store, row.Genre.String),
		Reference:     reference,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		return out, err
	}
	out.PlayID = p.ID
	text, tier := r.composer().Render(p)
	out.Tier = tier
	span.SetAttributes(attribute.String("tier", tier.String()))
	span.End()
	logger.Info("composed", slog.Int64("play_id", p.ID), slog.String("wicks", p.Wicks), slog.String("tier", tier.String()))

	var book booksapi.Result
	var image []byte
	if opts.Book && r.Books != nil {
		book, image = r.lookupBook(ctx, logger, p)
	}
	out.Message = text
	if u := book.BetterBookURL(); u != "" {
		out.Message = text + " " + u
	}

	if opts.DryRun {
		logger.Info("dry run, not publishing", slog.String("message", out.Message), slog.Bool("image", len(image) > 0))
		return out, nil
	}
	if len(r.Targets) == 0 {
		logger.Warn("no platform enabled, nothing published")
		return out, nil
	}

	msg := publish.Post{
		Text:           out.Message,
		Image:          image,
		ImageName:      "couverture.jpg",
		ImageAlt:       "Couverture : " + p.Title,
		IdempotencyKey: fmt.Sprintf("spectacles-xix-%d-%s", p.ID, now.Format(time.DateOnly)),
	}
	out.Posted = true
	var errs []error
	for _, t := range r.Targets {
		res := r.publishTo(ctx, logger, t, p.ID, msg)
		out.Results = append(out.Results, res)
		if res.Err != nil && !errors.Is(res.Err, publish.ErrNoStatusID) {
			errs = append(errs, res.Err)
		}
	}
	if len(errs) > 0 {
		return out, fmt.Errorf("%w: %w", ErrPublishFailed, errors.Join(errs...))
	}
	return out, nil
}

func (r *Runner) composer() *play.Composer {
	if r.Composer != nil {
		return r.Composer
	}
	return play.NewComposer(play.DefaultMaxLength, r.Location, "")
}

func (r *Runner) candidates(ctx context.Context, logger *slog.Logger, opts Options, date time.Time) []play.Row {
	ctx, span := telemetry.StartSpan(ctx, "bot.candidates")
	defer span.End()
	f := r.filter(opts)

	var rows []play.Row
	var err error
	if opts.Wicks != "" {
		span.SetAttributes(attribute.String("wicks", opts.Wicks))
		rows, err = r.Store.QueryByWicks(ctx, opts.Wicks, f)
	} else {
		span.SetAttributes(attribute.String("date", date.Format(time.DateOnly)))
		rows, err = r.Store.FindForDate(ctx, date, f)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Error("candidate query failed", slog.Any("err", err))
		return nil
	}
	span.SetAttributes(attribute.Int("candidates", len(rows)))
	return rows
}

func (r *Runner) lookupBook(ctx context.Context, logger *slog.Logger, p play.Play) (booksapi.Result, []byte) {
	ctx, span := telemetry.StartSpan(ctx, "bot.books")
	defer span.End()
	res := r.Books.Lookup(ctx, p.Title, p.Author)
	if res.Empty() {
		return res, nil
	}
	img, err := r.Books.FetchImage(ctx, res)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Warn("cover download failed, posting without image", slog.Any("err", err))
		return res, nil
	}
	return res, img
}

func (r *Runner) publishTo(ctx context.Context, logger *slog.Logger, t Target, playID int64, msg publish.Post) PostResult {
	ctx, span := telemetry.StartSpan(ctx, "bot.publish", attribute.String("platform", string(t.Platform)))
	defer span.End()
	logger = logger.With(slog.String("platform", string(t.Platform)), slog.Int64("play_id", playID))
	res := PostResult{Platform: t.Platform}

	start := time.Now()
	id, err := t.Publisher.Publish(ctx, msg)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, publish.ErrNoStatusID):
		res.Err = err
		telemetry.RecordPost(string(t.Platform), true, "", elapsed)
		logger.Warn("published without a status id, not marking as posted")
		return res
	case err != nil:
		res.Err = err
		res.Class = publish.Classify(err)
		telemetry.RecordPost(string(t.Platform), false, res.Class.String(), elapsed)
		telemetry.RecordError(span, err)
		logger.Error("publish failed", slog.String("class", res.Class.String()), slog.Any("err", err))
		return res
	}

	res.StatusID = id
	telemetry.RecordPost(string(t.Platform), true, "", elapsed)
	telemetry.SetSpanSuccess(span)
	if err := r.Store.MarkPosted(ctx, playID, t.Platform, r.now()); err != nil {
		logger.Error("posted but could not record it", slog.String("status_id", id), slog.Any("err", err))
		return res
	}
	res.Marked = true
	logger.Info("published", slog.String("status_id", id), slog.Duration("took", elapsed))
	return res
}
