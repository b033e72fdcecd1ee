package relationship

import (
	"time"

	"github.com/google/uuid"

	"github.com/ameling/kinship/pkg/config"
	"github.com/ameling/kinship/pkg/logger"
)

// EffectManager tracks temporary gift effects on a pair's state. Effects are
// pruned lazily whenever the active list is read; no background timer is
// needed for correctness (the sweep only keeps rows small).
type EffectManager struct {
	cfg config.GiftsConfig
}

func NewEffectManager(cfg config.GiftsConfig) *EffectManager {
	return &EffectManager{cfg: cfg}
}

// Register appends a new effect from a gift grant. Duplicate simultaneous
// grants stack as independent effects with their own expiry.
func (m *EffectManager) Register(st *State, grant EffectGrant, now time.Time) GiftEffect {
	duration := grant.Duration
	if duration <= 0 {
		duration = m.cfg.DefaultDuration
	}
	eff := GiftEffect{
		ID:        "gft-" + uuid.NewString(),
		Type:      grant.Type,
		Magnitude: grant.Magnitude,
		AppliedAt: now,
		ExpiresAt: now.Add(duration),
	}
	st.ActiveEffects = append(st.ActiveEffects, eff)
	return eff
}

// ActiveAt prunes expired effects in place and returns the survivors.
func (m *EffectManager) ActiveAt(st *State, now time.Time) []GiftEffect {
	kept := st.ActiveEffects[:0]
	for _, eff := range st.ActiveEffects {
		if eff.Active(now) {
			kept = append(kept, eff)
		}
	}
	st.ActiveEffects = kept
	return st.ActiveEffects
}

// EffectCombination is the net modifier from a set of active effects.
type EffectCombination struct {
	Multiplier float64
	FlatBonus  float64
	// Capped is set when multiplier stacking hit the configured ceiling.
	Capped bool
}

// Combine folds active effects into one modifier: multipliers multiply (to a
// cap), flat bonuses sum, mood boosts are informational only. A capped stack
// is logged, not an error.
func (m *EffectManager) Combine(pair PairID, effects []GiftEffect) EffectCombination {
	out := EffectCombination{Multiplier: 1}
	for _, eff := range effects {
		switch eff.Type {
		case EffectAffectionMultiplier:
			out.Multiplier *= eff.Magnitude
		case EffectAffectionFlatBonus:
			out.FlatBonus += eff.Magnitude
		case EffectMoodBoost:
			// consumed by the notification collaborator, not the score
		}
	}
	if out.Multiplier > m.cfg.MultiplierCap {
		out.Multiplier = m.cfg.MultiplierCap
		out.Capped = true
		logger.WarnCF("gifts", "effect stack exceeded multiplier cap, clamping", map[string]interface{}{
			"user_id":      pair.UserID,
			"companion_id": pair.CompanionID,
			"cap":          m.cfg.MultiplierCap,
		})
	}
	return out
}

// MoodBoosts returns the active informational mood effects, newest first.
func (m *EffectManager) MoodBoosts(effects []GiftEffect) []GiftEffect {
	var out []GiftEffect
	for _, eff := range effects {
		if eff.Type == EffectMoodBoost {
			out = append(out, eff)
		}
	}
	return out
}
