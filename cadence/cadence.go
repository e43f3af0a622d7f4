// Package cadence decides whether an hourly run should post now or leave the
// remaining performances for later in the day.
package cadence

import "log/slog"

// EndOfDay is the last publishing hour.
const EndOfDay = 23

// Options are the driver overrides that bypass the heuristic.
type Options struct {
	Force  bool
	DryRun bool
}

// HoursPerItem spreads the hours left before EndOfDay over count items.
func HoursPerItem(hour, count int) float64 {
	return float64(EndOfDay-hour) / float64(count)
}

// Decide reports whether to post now, given the local hour (0-23) and the
// number of performances still waiting for the target date.
func Decide(hour, count int) bool {
	if count <= 0 {
		slog.Info("no performances to post", slog.Int("count", count), slog.String("component", "cadence"))
		return false
	}
	perItem := HoursPerItem(hour, count)
	slog.Info("posting cadence",
		slog.Int("hours_remaining", EndOfDay-hour),
		slog.Int("count", count),
		slog.Float64("hours_per_item", perItem),
		slog.String("component", "cadence"))

	// falling behind: post regardless of the hour
	if perItem <= 1 {
		return true
	}
	// early afternoon, one every two hours
	if hour > 12 && perItem <= 2 {
		return true
	}
	// late afternoon, one every three hours
	if hour > 15 && perItem <= 3 {
		return true
	}
	return false
}

// ShouldPost applies the overrides before falling back to Decide. A dry run
// still reports true so the message gets composed and logged.
func ShouldPost(opts Options, hour, count int) bool {
	if opts.Force || opts.DryRun {
		return true
	}
	return Decide(hour, count)
}
