package relationship

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorizes state-change notifications emitted by the
// engine for the external push/email collaborator.
type NotificationType string

const (
	NotifyLevelUp      NotificationType = "level_up"
	NotifyTierChange   NotificationType = "tier_change"
	NotifyAchievement  NotificationType = "achievement_unlocked"
	NotifyStreakBroken NotificationType = "streak_broken"
	NotifyMoodBoost    NotificationType = "mood_boost"
)

// Notification is one state-change event produced during event application.
// Delivery (push, email) happens entirely outside the engine.
type Notification struct {
	ID          string            `json:"id"`
	Type        NotificationType  `json:"type"`
	UserID      string            `json:"user_id"`
	CompanionID string            `json:"companion_id"`
	Detail      map[string]string `json:"detail,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func newNotification(pair PairID, typ NotificationType, at time.Time, detail map[string]string) Notification {
	return Notification{
		ID:          "ntf-" + uuid.NewString(),
		Type:        typ,
		UserID:      pair.UserID,
		CompanionID: pair.CompanionID,
		Detail:      detail,
		CreatedAt:   at,
	}
}
