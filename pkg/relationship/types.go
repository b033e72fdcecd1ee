package relationship

import "time"

// PairID identifies one user–companion relationship instance.
type PairID struct {
	UserID      string `json:"user_id"`
	CompanionID string `json:"companion_id"`
}

func (p PairID) String() string {
	return p.UserID + ":" + p.CompanionID
}

// Tier is the ordered relationship status derived from level and affection.
// It never regresses through normal event application.
type Tier int

const (
	TierStranger Tier = iota
	TierAcquaintance
	TierFriend
	TierCloseFriend
	TierPartner
)

var tierNames = [...]string{"stranger", "acquaintance", "friend", "close_friend", "partner"}

func (t Tier) String() string {
	if t < TierStranger || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// EffectType classifies temporary gift effects.
type EffectType string

const (
	EffectAffectionMultiplier EffectType = "affection_multiplier"
	EffectAffectionFlatBonus  EffectType = "affection_flat_bonus"
	EffectMoodBoost           EffectType = "mood_boost"
)

// GiftEffect is a temporary modifier granted by redeeming a gift. Effects are
// immutable once created; they leave the state only by expiry.
type GiftEffect struct {
	ID        string     `json:"id"`
	Type      EffectType `json:"type"`
	Magnitude float64    `json:"magnitude"`
	AppliedAt time.Time  `json:"applied_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Active reports whether the effect is still live at the given time.
func (g GiftEffect) Active(at time.Time) bool {
	return g.ExpiresAt.After(at)
}

// Counters holds cumulative interaction counts per kind.
type Counters struct {
	Messages      int `json:"messages"`
	Gifts         int `json:"gifts"`
	VoiceCalls    int `json:"voice_calls"`
	VideoCalls    int `json:"video_calls"`
	ARExperiences int `json:"ar_experiences"`
}

// StreakState tracks consecutive qualifying calendar days of engagement.
type StreakState struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
	// LastQualifyingDay is a calendar day key (2006-01-02) in the policy zone.
	LastQualifyingDay string `json:"last_qualifying_day"`
	// GraceUsed marks that the configured grace window already preserved this
	// streak once. It clears only on a full reset.
	GraceUsed bool `json:"grace_used"`
}

// DailyCounts tracks same-kind event counts within one policy calendar day.
// The diminishing-returns taper indexes into these counts.
type DailyCounts struct {
	Day    string            `json:"day"`
	ByKind map[EventKind]int `json:"by_kind"`
}

// Bump rotates the window to day if needed and returns the per-day ordinal
// (1-based) of this event for its kind.
func (d *DailyCounts) Bump(day string, kind EventKind) int {
	if d.Day != day {
		d.Day = day
		d.ByKind = map[EventKind]int{}
	}
	if d.ByKind == nil {
		d.ByKind = map[EventKind]int{}
	}
	d.ByKind[kind]++
	return d.ByKind[kind]
}

// State is the full relationship record for one pair. It is mutated only by
// the engine's event application; callers treat it as a snapshot.
type State struct {
	UserID      string `json:"user_id"`
	CompanionID string `json:"companion_id"`

	AffectionScore int  `json:"affection_score"`
	Tier           Tier `json:"tier"`
	Level          int  `json:"level"`
	XP             int  `json:"xp"`

	// Achievements is append-only, in unlock order.
	Achievements []string `json:"achievements"`

	ActiveEffects []GiftEffect `json:"active_effects"`
	Counters      Counters     `json:"counters"`
	Streak        StreakState  `json:"streak"`
	Daily         DailyCounts  `json:"daily"`
	Recent        ActivityRing `json:"recent"`

	LastInteractionAt time.Time `json:"last_interaction_at"`
	// LastDecayAt records when inactivity decay was last settled, so the
	// event-driven path and the maintenance sweep never charge the same idle
	// days twice.
	LastDecayAt time.Time `json:"last_decay_at"`

	NSFWEnabled          bool `json:"nsfw_enabled"`
	NotificationsEnabled bool `json:"notifications_enabled"`

	// Version is the optimistic-concurrency token managed by the store.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns the default state created on a pair's first interaction.
func NewState(pair PairID, recentCap int, now time.Time) *State {
	return &State{
		UserID:               pair.UserID,
		CompanionID:          pair.CompanionID,
		Level:                1,
		Tier:                 TierStranger,
		Achievements:         []string{},
		ActiveEffects:        []GiftEffect{},
		Recent:               NewActivityRing(recentCap),
		NotificationsEnabled: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Pair returns the identifying pair for this state.
func (s *State) Pair() PairID {
	return PairID{UserID: s.UserID, CompanionID: s.CompanionID}
}

// HasAchievement reports whether id is already unlocked.
func (s *State) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// CountFor returns the cumulative counter for one event kind.
func (c Counters) CountFor(kind EventKind) int {
	switch kind {
	case EventMessage:
		return c.Messages
	case EventGift:
		return c.Gifts
	case EventVoiceCall:
		return c.VoiceCalls
	case EventVideoCall:
		return c.VideoCalls
	case EventARExperience:
		return c.ARExperiences
	default:
		return 0
	}
}

func (c *Counters) bump(kind EventKind) {
	switch kind {
	case EventMessage:
		c.Messages++
	case EventGift:
		c.Gifts++
	case EventVoiceCall:
		c.VoiceCalls++
	case EventVideoCall:
		c.VideoCalls++
	case EventARExperience:
		c.ARExperiences++
	}
}

// Total returns the cumulative interaction count across all kinds.
func (c Counters) Total() int {
	return c.Messages + c.Gifts + c.VoiceCalls + c.VideoCalls + c.ARExperiences
}
