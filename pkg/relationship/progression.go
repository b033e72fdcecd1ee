package relationship

import (
	"math"

	"github.com/ameling/kinship/pkg/config"
)

// Progression owns the XP curve and the tier mapping. Both are pure
// functions of configuration plus state.
type Progression struct {
	cfg config.ProgressionConfig
}

func NewProgression(cfg config.ProgressionConfig) *Progression {
	return &Progression{cfg: cfg}
}

// Threshold returns the XP required to advance out of the given level.
// The curve is XPBase * level^XPExponent, monotonically increasing.
func (p *Progression) Threshold(level int) int {
	if level < 1 {
		level = 1
	}
	return int(float64(p.cfg.XPBase) * math.Pow(float64(level), p.cfg.XPExponent))
}

// XPForEvent returns the XP grant for one event kind.
func (p *Progression) XPForEvent(kind EventKind) int {
	switch kind {
	case EventMessage:
		return p.cfg.MessageXP
	case EventGift:
		return p.cfg.GiftXP
	case EventVoiceCall:
		return p.cfg.VoiceCallXP
	case EventVideoCall:
		return p.cfg.VideoCallXP
	case EventARExperience:
		return p.cfg.ARExperienceXP
	default:
		return 0
	}
}

// ApplyXP grants XP and rolls over levels until xp < threshold(level) holds
// again, so one large grant can advance several levels. Returns how many
// levels were gained.
func (p *Progression) ApplyXP(st *State, amount int) int {
	if amount <= 0 {
		return 0
	}
	st.XP += amount
	gained := 0
	for st.XP >= p.Threshold(st.Level) {
		st.XP -= p.Threshold(st.Level)
		st.Level++
		gained++
	}
	return gained
}

// TierFor returns the highest tier whose level and affection gates are both
// met. It is a pure function of its inputs.
func (p *Progression) TierFor(level, affection int) Tier {
	tier := TierStranger
	for i, gate := range p.cfg.Tiers {
		if level >= gate.MinLevel && affection >= gate.MinAffection {
			tier = Tier(i + 1)
		} else {
			break
		}
	}
	return tier
}

// AdvanceTier moves the state at most one tier toward its derived target.
// Tiers never regress here; a derived target below the current tier is left
// alone.
func (p *Progression) AdvanceTier(st *State) bool {
	target := p.TierFor(st.Level, st.AffectionScore)
	if target <= st.Tier {
		return false
	}
	st.Tier++
	return true
}
