package relationship

import (
	"fmt"
	"time"
)

// EventKind enumerates the closed set of interaction kinds.
type EventKind string

const (
	EventMessage      EventKind = "message"
	EventGift         EventKind = "gift"
	EventVoiceCall    EventKind = "voice_call"
	EventVideoCall    EventKind = "video_call"
	EventARExperience EventKind = "ar_experience"
)

// Kinds lists all valid event kinds in a stable order.
func Kinds() []EventKind {
	return []EventKind{EventMessage, EventGift, EventVoiceCall, EventVideoCall, EventARExperience}
}

// Event is one interaction between a user and a companion. Exactly the
// payload matching Kind may be set; the rest stay nil.
type Event struct {
	Kind EventKind `json:"kind"`
	At   time.Time `json:"at"`

	Message *MessagePayload `json:"message,omitempty"`
	Gift    *GiftPayload    `json:"gift,omitempty"`
	Call    *CallPayload    `json:"call,omitempty"`
	AR      *ARPayload      `json:"ar,omitempty"`
}

type MessagePayload struct {
	Length int `json:"length"`
}

type GiftPayload struct {
	GiftID string `json:"gift_id"`
	// Grant is the temporary effect the gift confers, if any.
	Grant *EffectGrant `json:"grant,omitempty"`
}

// EffectGrant describes the effect a redeemed gift should register.
type EffectGrant struct {
	Type      EffectType `json:"type"`
	Magnitude float64    `json:"magnitude"`
	// Duration of zero falls back to the configured default.
	Duration time.Duration `json:"duration"`
}

type CallPayload struct {
	Duration time.Duration `json:"duration"`
}

type ARPayload struct {
	SceneID string `json:"scene_id"`
}

// Validate rejects malformed events before any state is touched.
func (e Event) Validate() error {
	if e.At.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventMessage:
		if e.Message != nil && e.Message.Length < 0 {
			return fmt.Errorf("%w: negative message length", ErrInvalidEvent)
		}
	case EventGift:
		if e.Gift == nil || e.Gift.GiftID == "" {
			return fmt.Errorf("%w: gift event requires a gift id", ErrInvalidEvent)
		}
		if g := e.Gift.Grant; g != nil {
			switch g.Type {
			case EffectAffectionMultiplier, EffectAffectionFlatBonus, EffectMoodBoost:
			default:
				return fmt.Errorf("%w: unknown effect type %q", ErrInvalidEvent, g.Type)
			}
			if g.Magnitude <= 0 {
				return fmt.Errorf("%w: effect magnitude must be positive", ErrInvalidEvent)
			}
			if g.Duration < 0 {
				return fmt.Errorf("%w: negative effect duration", ErrInvalidEvent)
			}
		}
	case EventVoiceCall, EventVideoCall:
		if e.Call != nil && e.Call.Duration < 0 {
			return fmt.Errorf("%w: negative call duration", ErrInvalidEvent)
		}
	case EventARExperience:
		if e.AR == nil || e.AR.SceneID == "" {
			return fmt.Errorf("%w: ar event requires a scene id", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}
