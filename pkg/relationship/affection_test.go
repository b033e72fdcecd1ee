package relationship

import (
	"testing"
	"time"

	"github.com/ameling/kinship/pkg/config"
)

func testAffectionConfig() config.AffectionConfig {
	return config.AffectionConfig{
		MessageWeight:      10,
		GiftWeight:         50,
		VoiceCallWeight:    30,
		VideoCallWeight:    40,
		ARExperienceWeight: 60,
		Taper:              []float64{1.0, 0.6, 0.4, 0.25, 0.15, 0.1},
		IdleGraceDays:      3,
		IdlePenaltyPerDay:  4,
	}
}

func noEffects() EffectCombination {
	return EffectCombination{Multiplier: 1}
}

func TestApplyEventDiminishingReturns(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// 10 * [1.0 0.6 0.4 0.25 0.15 0.1], then the last factor repeats.
	want := []int{10, 6, 4, 3, 2, 1, 1, 1}
	for i, expected := range want {
		res := eng.ApplyEvent(st, Event{Kind: EventMessage, At: at}, noEffects())
		if res.Delta != expected {
			t.Fatalf("event %d: delta = %d, want %d", i+1, res.Delta, expected)
		}
		at = at.Add(time.Minute)
	}

	total := 0
	for _, d := range want {
		total += d
	}
	if st.AffectionScore != total {
		t.Errorf("affection = %d, want %d", st.AffectionScore, total)
	}
}

func TestDefaultConfigRepeatDeltasStrictlyDecrease(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	eng := NewAffectionEngine(cfg.Affection, cfg.Engine.MaxAffectionScore, time.UTC)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Every kind's shipped weight must survive rounding: each of the first
	// len(taper) same-day repeats earns strictly less than the one before.
	for _, kind := range Kinds() {
		st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
		ev := Event{Kind: kind, At: at}
		prev := eng.ApplyEvent(st, ev, noEffects()).Delta
		for i := 1; i < len(cfg.Affection.Taper); i++ {
			ev.At = ev.At.Add(time.Minute)
			delta := eng.ApplyEvent(st, ev, noEffects()).Delta
			if delta >= prev {
				t.Errorf("%s repeat %d: delta %d not below previous %d", kind, i+1, delta, prev)
			}
			prev = delta
		}
		if prev < 1 {
			t.Errorf("%s final tapered delta = %d, should stay positive", kind, prev)
		}
	}
}

func TestApplyEventTaperResetsPerKindAndDay(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	day1 := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)

	eng.ApplyEvent(st, Event{Kind: EventMessage, At: day1}, noEffects())
	eng.ApplyEvent(st, Event{Kind: EventMessage, At: day1.Add(time.Minute)}, noEffects())

	// A different kind on the same day starts its own series at full weight.
	res := eng.ApplyEvent(st, Event{Kind: EventVoiceCall, At: day1.Add(2 * time.Minute)}, noEffects())
	if res.Delta != 30 {
		t.Errorf("first voice call delta = %d, want full weight 30", res.Delta)
	}

	// Crossing the day boundary resets the per-day ordinal.
	st.LastInteractionAt = day1
	day2 := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	res = eng.ApplyEvent(st, Event{Kind: EventMessage, At: day2}, noEffects())
	if res.Delta != 10 {
		t.Errorf("next-day message delta = %d, want full weight 10", res.Delta)
	}
}

func TestApplyEventClampsToScoreRange(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 15, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	eng.ApplyEvent(st, Event{Kind: EventMessage, At: at}, noEffects())
	eng.ApplyEvent(st, Event{Kind: EventGift, At: at, Gift: &GiftPayload{GiftID: "g"}}, noEffects())
	if st.AffectionScore != 15 {
		t.Errorf("affection = %d, want clamped to 15", st.AffectionScore)
	}

	// Decay never drives the score below zero.
	st.AffectionScore = 5
	st.LastInteractionAt = at
	penalty := eng.SettleDecay(st, at.Add(30*24*time.Hour))
	if penalty != 5 {
		t.Errorf("applied penalty = %d, want 5 (floor at zero)", penalty)
	}
	if st.AffectionScore != 0 {
		t.Errorf("affection = %d, want 0", st.AffectionScore)
	}
}

func TestSettleDecayChargesIdleDaysPastGrace(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	st.AffectionScore = 500
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.LastInteractionAt = last

	// 10 idle days, 3 of grace, 4 points per chargeable day.
	penalty := eng.SettleDecay(st, last.Add(10*24*time.Hour))
	if penalty != 28 {
		t.Fatalf("penalty = %d, want 28", penalty)
	}
	if st.AffectionScore != 472 {
		t.Errorf("affection = %d, want 472", st.AffectionScore)
	}
}

func TestSettleDecayNeverDoubleCharges(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	st.AffectionScore = 500
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.LastInteractionAt = last

	now := last.Add(10 * 24 * time.Hour)
	if p := eng.SettleDecay(st, now); p != 28 {
		t.Fatalf("first settle penalty = %d, want 28", p)
	}
	// The sweep already settled through now; an event moments later owes
	// nothing more.
	if p := eng.SettleDecay(st, now.Add(time.Hour)); p != 0 {
		t.Errorf("second settle penalty = %d, want 0", p)
	}
}

func TestSettleDecayIncrementalEqualsOneShot(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := last.Add(8 * 24 * time.Hour)

	oneShot := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	oneShot.AffectionScore = 500
	oneShot.LastInteractionAt = last
	total := eng.SettleDecay(oneShot, end)
	// 8 idle days, 3 of grace, 4 points per chargeable day.
	if total != 20 {
		t.Fatalf("one-shot penalty = %d, want 20", total)
	}

	// The same stretch settled in steps charges the same total: grace is
	// granted once, not per settle.
	steps := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	steps.AffectionScore = 500
	steps.LastInteractionAt = last
	sum := eng.SettleDecay(steps, last.Add(4*24*time.Hour))
	sum += eng.SettleDecay(steps, end)
	if sum != total {
		t.Errorf("incremental penalties = %d, want one-shot total %d", sum, total)
	}
	if steps.AffectionScore != oneShot.AffectionScore {
		t.Errorf("incremental affection = %d, one-shot = %d", steps.AffectionScore, oneShot.AffectionScore)
	}

	// Sub-day settle times do not lose idle days to truncation either.
	frac := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	frac.AffectionScore = 500
	frac.LastInteractionAt = last
	sum = eng.SettleDecay(frac, last.Add(4*24*time.Hour+12*time.Hour))
	sum += eng.SettleDecay(frac, end)
	if sum != total {
		t.Errorf("fractional-step penalties = %d, want one-shot total %d", sum, total)
	}
}

func TestSettleDecayNewInteractionRestoresGrace(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	st.AffectionScore = 500
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.LastInteractionAt = last

	if p := eng.SettleDecay(st, last.Add(5*24*time.Hour)); p != 8 {
		t.Fatalf("first stretch penalty = %d, want 8", p)
	}

	// An interaction ends the idle stretch; the next one starts with a full
	// grace window again.
	st.LastInteractionAt = last.Add(6 * 24 * time.Hour)
	if p := eng.SettleDecay(st, st.LastInteractionAt.Add(2*24*time.Hour)); p != 0 {
		t.Errorf("penalty within fresh grace = %d, want 0", p)
	}
	if p := eng.SettleDecay(st, st.LastInteractionAt.Add(4*24*time.Hour)); p != 4 {
		t.Errorf("penalty past fresh grace = %d, want 4", p)
	}
}

func TestSettleDecayWithinGraceIsFree(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
	st.AffectionScore = 500
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.LastInteractionAt = last

	if p := eng.SettleDecay(st, last.Add(3*24*time.Hour)); p != 0 {
		t.Errorf("penalty within grace = %d, want 0", p)
	}
	if st.AffectionScore != 500 {
		t.Errorf("affection = %d, want untouched 500", st.AffectionScore)
	}
}

func TestApplyEventHonorsEffectCombination(t *testing.T) {
	t.Parallel()

	eng := NewAffectionEngine(testAffectionConfig(), 1000, time.UTC)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		combined EffectCombination
		want     int
	}{
		{"no effects", EffectCombination{Multiplier: 1}, 10},
		{"doubling multiplier", EffectCombination{Multiplier: 2}, 20},
		{"flat bonus", EffectCombination{Multiplier: 1, FlatBonus: 5}, 15},
		{"multiplier then bonus", EffectCombination{Multiplier: 2, FlatBonus: 3}, 23},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			st := NewState(PairID{UserID: "u1", CompanionID: "c1"}, 20, time.Time{})
			res := eng.ApplyEvent(st, Event{Kind: EventMessage, At: at}, tc.combined)
			if res.Delta != tc.want {
				t.Errorf("delta = %d, want %d", res.Delta, tc.want)
			}
			if res.RawDelta != 10 {
				t.Errorf("raw delta = %d, want 10 before effects", res.RawDelta)
			}
		})
	}
}
