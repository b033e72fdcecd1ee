package relationship

import (
	"math"
	"time"

	"github.com/ameling/kinship/pkg/config"
	"github.com/ameling/kinship/pkg/logger"
)

// AffectionEngine turns interaction events into bounded affection-score
// changes. Diminishing returns and inactivity decay live here; gift effect
// combination is delegated to the EffectManager.
type AffectionEngine struct {
	cfg      config.AffectionConfig
	maxScore int
	loc      *time.Location
}

func NewAffectionEngine(cfg config.AffectionConfig, maxScore int, loc *time.Location) *AffectionEngine {
	return &AffectionEngine{cfg: cfg, maxScore: maxScore, loc: loc}
}

// AffectionResult reports what one event application did to the score.
type AffectionResult struct {
	Delta       int // applied (post-effect, post-clamp) delta
	RawDelta    int // pre-effect tapered delta
	IdlePenalty int // decay charged before the positive delta
}

// ApplyEvent settles any pending inactivity decay, then credits the event's
// tapered base weight modified by the combined active gift effects. The score
// is clamped to [0, maxScore] and the per-day ordinal window is advanced.
func (a *AffectionEngine) ApplyEvent(st *State, ev Event, combined EffectCombination) AffectionResult {
	res := AffectionResult{}

	res.IdlePenalty = a.settleDecay(st, ev.At)

	nth := st.Daily.Bump(dayKey(ev.At, a.loc), ev.Kind)
	raw := float64(a.baseWeight(ev.Kind)) * a.taperFactor(nth)
	res.RawDelta = int(math.Round(raw))

	boosted := raw*combined.Multiplier + combined.FlatBonus
	res.Delta = int(math.Round(boosted))

	st.AffectionScore = clamp(st.AffectionScore+res.Delta, 0, a.maxScore)
	return res
}

// SettleDecay applies any pending inactivity decay without crediting an
// event. The maintenance sweep uses this for idle pairs.
func (a *AffectionEngine) SettleDecay(st *State, now time.Time) int {
	return a.settleDecay(st, now)
}

func (a *AffectionEngine) settleDecay(st *State, now time.Time) int {
	if st.LastInteractionAt.IsZero() {
		st.LastDecayAt = now
		return 0
	}

	base := st.LastInteractionAt
	grace := a.cfg.IdleGraceDays
	if st.LastDecayAt.After(base) {
		// Decay already began for this idle stretch; the grace window was
		// spent by the settle that advanced the watermark. Only a new
		// interaction grants a fresh one.
		base = st.LastDecayAt
		grace = 0
	}

	idleDays := int(now.Sub(base) / (24 * time.Hour))
	chargeable := idleDays - grace
	if chargeable <= 0 {
		return 0
	}

	penalty := chargeable * a.cfg.IdlePenaltyPerDay
	before := st.AffectionScore
	st.AffectionScore = clamp(st.AffectionScore-penalty, 0, a.maxScore)
	// Advance the watermark by whole days only, so the sub-day remainder
	// keeps counting toward the next settle and incremental settles sum to
	// the same total as a single one.
	st.LastDecayAt = base.Add(time.Duration(idleDays) * 24 * time.Hour)

	applied := before - st.AffectionScore
	if applied > 0 {
		logger.DebugCF("affection", "inactivity decay settled", map[string]interface{}{
			"user_id":      st.UserID,
			"companion_id": st.CompanionID,
			"idle_days":    idleDays,
			"penalty":      applied,
		})
	}
	return applied
}

func (a *AffectionEngine) baseWeight(kind EventKind) int {
	switch kind {
	case EventMessage:
		return a.cfg.MessageWeight
	case EventGift:
		return a.cfg.GiftWeight
	case EventVoiceCall:
		return a.cfg.VoiceCallWeight
	case EventVideoCall:
		return a.cfg.VideoCallWeight
	case EventARExperience:
		return a.cfg.ARExperienceWeight
	default:
		return 0
	}
}

// taperFactor returns the diminishing-returns multiplier for the nth
// same-kind event of the day (1-based). Past the table's end the last entry
// repeats.
func (a *AffectionEngine) taperFactor(nth int) float64 {
	if len(a.cfg.Taper) == 0 {
		return 1
	}
	idx := nth - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(a.cfg.Taper) {
		idx = len(a.cfg.Taper) - 1
	}
	return a.cfg.Taper[idx]
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
