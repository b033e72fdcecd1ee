package relationship

import (
	"time"

	"github.com/ameling/kinship/pkg/config"
)

// StreakOutcome describes what one event did to the daily streak.
type StreakOutcome int

const (
	StreakUnchanged StreakOutcome = iota // same qualifying day
	StreakStarted                        // first ever qualifying day
	StreakExtended                       // consecutive day
	StreakGraced                         // gap covered by the grace window
	StreakBroken                         // gap too large, reset to 1
)

// StreakTracker resolves calendar-day boundaries in a configured timezone
// and maintains the consecutive-day engagement streak.
type StreakTracker struct {
	loc       *time.Location
	graceDays int
}

func NewStreakTracker(cfg config.StreakConfig) (*StreakTracker, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return &StreakTracker{loc: loc, graceDays: cfg.GraceDays}, nil
}

// Location exposes the policy timezone so the rest of the engine resolves
// day boundaries identically.
func (t *StreakTracker) Location() *time.Location {
	return t.loc
}

// Record folds one event timestamp into the streak. Longest always tracks
// the maximum current length.
func (t *StreakTracker) Record(st *State, at time.Time) StreakOutcome {
	day := at.In(t.loc)
	dayStr := day.Format("2006-01-02")

	outcome := StreakUnchanged
	switch {
	case st.Streak.LastQualifyingDay == "":
		st.Streak.Current = 1
		st.Streak.GraceUsed = false
		outcome = StreakStarted
	case st.Streak.LastQualifyingDay == dayStr:
		// same policy day, nothing to do
	default:
		gap := daysBetween(st.Streak.LastQualifyingDay, day, t.loc)
		switch {
		case gap == 1:
			st.Streak.Current++
			outcome = StreakExtended
		case gap > 1 && gap <= 1+t.graceDays && !st.Streak.GraceUsed:
			// missed day(s) tolerated once per streak run
			st.Streak.Current++
			st.Streak.GraceUsed = true
			outcome = StreakGraced
		case gap > 1:
			st.Streak.Current = 1
			st.Streak.GraceUsed = false
			outcome = StreakBroken
		default:
			// out-of-order event from an earlier day; leave the streak alone
			return StreakUnchanged
		}
	}

	st.Streak.LastQualifyingDay = dayStr
	if st.Streak.Current > st.Streak.Longest {
		st.Streak.Longest = st.Streak.Current
	}
	return outcome
}

// daysBetween counts whole calendar days from lastDay (2006-01-02) to now's
// day in the policy zone. DST-safe: both ends are normalized to midnight.
func daysBetween(lastDay string, now time.Time, loc *time.Location) int {
	last, err := time.ParseInLocation("2006-01-02", lastDay, loc)
	if err != nil {
		return 0
	}
	cur := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return int(cur.Sub(last).Hours()/24 + 0.5)
}
