package relationship

import "sort"

// AchievementDef is a process-wide, read-only unlock rule. Predicates run
// against the fully updated state after each event application.
type AchievementDef struct {
	ID          string
	Name        string
	Description string
	Predicate   func(*State) bool `json:"-"`
}

// Evaluator runs the achievement registry idempotently: an id already in the
// state's unlocked set is never re-evaluated, so nothing re-triggers.
type Evaluator struct {
	defs []AchievementDef
}

// NewEvaluator copies and id-sorts the definitions so multi-unlock
// notification order is reproducible.
func NewEvaluator(defs []AchievementDef) *Evaluator {
	sorted := make([]AchievementDef, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Evaluator{defs: sorted}
}

// Definitions returns the registry in evaluation (id) order.
func (e *Evaluator) Definitions() []AchievementDef {
	out := make([]AchievementDef, len(e.defs))
	copy(out, e.defs)
	return out
}

// Evaluate checks every not-yet-unlocked definition against the state,
// records new unlocks in the state's append-only set, and returns them in
// definition-id order.
func (e *Evaluator) Evaluate(st *State) []AchievementDef {
	var unlocked []AchievementDef
	for _, def := range e.defs {
		if st.HasAchievement(def.ID) {
			continue
		}
		if def.Predicate != nil && def.Predicate(st) {
			st.Achievements = append(st.Achievements, def.ID)
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}

// DefaultAchievements is the built-in registry. IDs are stable; renaming one
// would orphan already-persisted unlocks.
func DefaultAchievements() []AchievementDef {
	return []AchievementDef{
		{
			ID:          "first_words",
			Name:        "First Words",
			Description: "Send your first message.",
			Predicate:   func(s *State) bool { return s.Counters.Messages >= 1 },
		},
		{
			ID:          "chatterbox",
			Name:        "Chatterbox",
			Description: "Send 100 messages.",
			Predicate:   func(s *State) bool { return s.Counters.Messages >= 100 },
		},
		{
			ID:          "first_gift",
			Name:        "A Token of Affection",
			Description: "Redeem your first gift.",
			Predicate:   func(s *State) bool { return s.Counters.Gifts >= 1 },
		},
		{
			ID:          "generous_heart",
			Name:        "Generous Heart",
			Description: "Redeem 10 gifts.",
			Predicate:   func(s *State) bool { return s.Counters.Gifts >= 10 },
		},
		{
			ID:          "hear_my_voice",
			Name:        "Hear My Voice",
			Description: "Complete your first voice call.",
			Predicate:   func(s *State) bool { return s.Counters.VoiceCalls >= 1 },
		},
		{
			ID:          "face_to_face",
			Name:        "Face to Face",
			Description: "Complete your first video call.",
			Predicate:   func(s *State) bool { return s.Counters.VideoCalls >= 1 },
		},
		{
			ID:          "new_dimensions",
			Name:        "New Dimensions",
			Description: "Share your first AR experience.",
			Predicate:   func(s *State) bool { return s.Counters.ARExperiences >= 1 },
		},
		{
			ID:          "week_together",
			Name:        "A Week Together",
			Description: "Keep a 7-day engagement streak.",
			Predicate:   func(s *State) bool { return s.Streak.Longest >= 7 },
		},
		{
			ID:          "month_together",
			Name:        "A Month Together",
			Description: "Keep a 30-day engagement streak.",
			Predicate:   func(s *State) bool { return s.Streak.Longest >= 30 },
		},
		{
			ID:          "rising_bond",
			Name:        "Rising Bond",
			Description: "Reach level 10.",
			Predicate:   func(s *State) bool { return s.Level >= 10 },
		},
		{
			ID:          "devoted",
			Name:        "Devoted",
			Description: "Reach an affection score of 750.",
			Predicate:   func(s *State) bool { return s.AffectionScore >= 750 },
		},
		{
			ID:          "inseparable",
			Name:        "Inseparable",
			Description: "Reach the Partner tier.",
			Predicate:   func(s *State) bool { return s.Tier >= TierPartner },
		},
	}
}
