package app

import (
	"time"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

// Tier cadence. Interval is the nominal gap between polls; MinGap is the
// smallest elapsed time since the last poll before the tier is eligible
// again. MinGap is deliberately below Interval so a platform cron that fires
// a minute early or late never silently skips a cycle.
type cadence struct {
	Interval time.Duration
	MinGap   time.Duration
}

var cadences = map[domain.Tier]cadence{
	domain.TierAgency:  {Interval: 5 * time.Minute, MinGap: 3 * time.Minute},
	domain.TierGrowth:  {Interval: 10 * time.Minute, MinGap: 8 * time.Minute},
	domain.TierStarter: {Interval: 15 * time.Minute, MinGap: 13 * time.Minute},
}

// minuteTolerance is how far (in minutes, either side) the wall clock may be
// from a tier's target minute mark and still count as on-schedule.
const minuteTolerance = 2

// ShouldProcess reports whether a tier is due this run. Pure function of its
// inputs; the watermark advance happens after the run, elsewhere.
//
// Agency is gated on elapsed time alone: at a 5-minute cadence a
// minute-of-hour alignment check adds nothing and can only starve it. Lower
// tiers require both an on-schedule wall-clock minute (±minuteTolerance of a
// multiple of the tier's interval, wrapping at :00) and the minimum gap. A
// nil watermark means never processed and satisfies the gap condition.
//
// This is best-effort dedup, not mutual exclusion: two overlapping
// invocations can read the same stale watermark and both proceed. Accepted
// trade-off; review persistence is idempotent by external id, so the second
// pass rewrites identical rows.
func ShouldProcess(tier domain.Tier, now time.Time, lastProcessedAt *time.Time) bool {
	c := cadences[domain.NormalizeTier(string(tier))]

	gapOK := lastProcessedAt == nil || now.Sub(*lastProcessedAt) >= c.MinGap
	if tier == domain.TierAgency {
		return gapOK
	}
	return gapOK && onScheduleMinute(now.Minute(), int(c.Interval.Minutes()))
}

// onScheduleMinute reports whether minute is within minuteTolerance of a
// multiple of interval, with wraparound at the 60-minute boundary (e.g.
// minute 59 is 1 away from the :00 mark).
func onScheduleMinute(minute, interval int) bool {
	for mark := 0; mark < 60; mark += interval {
		d := minute - mark
		if d < 0 {
			d = -d
		}
		if d > 30 {
			d = 60 - d
		}
		if d <= minuteTolerance {
			return true
		}
	}
	return false
}
