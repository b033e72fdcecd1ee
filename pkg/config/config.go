package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Engine      EngineConfig      `json:"engine"`
	Affection   AffectionConfig   `json:"affection"`
	Gifts       GiftsConfig       `json:"gifts"`
	Progression ProgressionConfig `json:"progression"`
	Streak      StreakConfig      `json:"streak"`
	Storage     StorageConfig     `json:"storage"`
	Gateway     GatewayConfig     `json:"gateway"`
	Sweep       SweepConfig       `json:"sweep"`
	Debug       bool              `json:"debug" env:"KINSHIP_DEBUG"`
}

type EngineConfig struct {
	// AutoCreatePairs controls whether the first interaction for an unknown
	// pair creates default state instead of failing with a not-found error.
	AutoCreatePairs   bool `json:"auto_create_pairs" env:"KINSHIP_ENGINE_AUTO_CREATE_PAIRS"`
	RecentActivityCap int  `json:"recent_activity_cap" env:"KINSHIP_ENGINE_RECENT_ACTIVITY_CAP"`
	MaxAffectionScore int  `json:"max_affection_score" env:"KINSHIP_ENGINE_MAX_AFFECTION_SCORE"`
}

type AffectionConfig struct {
	MessageWeight      int `json:"message_weight" env:"KINSHIP_AFFECTION_MESSAGE_WEIGHT"`
	GiftWeight         int `json:"gift_weight" env:"KINSHIP_AFFECTION_GIFT_WEIGHT"`
	VoiceCallWeight    int `json:"voice_call_weight" env:"KINSHIP_AFFECTION_VOICE_CALL_WEIGHT"`
	VideoCallWeight    int `json:"video_call_weight" env:"KINSHIP_AFFECTION_VIDEO_CALL_WEIGHT"`
	ARExperienceWeight int `json:"ar_experience_weight" env:"KINSHIP_AFFECTION_AR_EXPERIENCE_WEIGHT"`

	// Taper is the diminishing-returns table. The Nth same-kind event in a
	// day earns base*Taper[N-1]; events past the end earn base*Taper[last].
	Taper []float64 `json:"taper" env:"KINSHIP_AFFECTION_TAPER" envSeparator:","`

	// IdleGraceDays is how long a pair can go quiet before decay applies.
	IdleGraceDays     int `json:"idle_grace_days" env:"KINSHIP_AFFECTION_IDLE_GRACE_DAYS"`
	IdlePenaltyPerDay int `json:"idle_penalty_per_day" env:"KINSHIP_AFFECTION_IDLE_PENALTY_PER_DAY"`
}

type GiftsConfig struct {
	// MultiplierCap bounds the combined product of stacked multiplier effects.
	MultiplierCap   float64       `json:"multiplier_cap" env:"KINSHIP_GIFTS_MULTIPLIER_CAP"`
	DefaultDuration time.Duration `json:"default_duration" env:"KINSHIP_GIFTS_DEFAULT_DURATION"`
}

type ProgressionConfig struct {
	// XP threshold for advancing out of a level is XPBase * level^XPExponent.
	XPBase     int     `json:"xp_base" env:"KINSHIP_PROGRESSION_XP_BASE"`
	XPExponent float64 `json:"xp_exponent" env:"KINSHIP_PROGRESSION_XP_EXPONENT"`

	MessageXP      int `json:"message_xp" env:"KINSHIP_PROGRESSION_MESSAGE_XP"`
	GiftXP         int `json:"gift_xp" env:"KINSHIP_PROGRESSION_GIFT_XP"`
	VoiceCallXP    int `json:"voice_call_xp" env:"KINSHIP_PROGRESSION_VOICE_CALL_XP"`
	VideoCallXP    int `json:"video_call_xp" env:"KINSHIP_PROGRESSION_VIDEO_CALL_XP"`
	ARExperienceXP int `json:"ar_experience_xp" env:"KINSHIP_PROGRESSION_AR_EXPERIENCE_XP"`

	Tiers []TierGate `json:"tiers"`
}

// TierGate is the entry requirement for one tier above Stranger. Both the
// level and affection floors must hold before the tier is reachable.
type TierGate struct {
	MinLevel     int `json:"min_level"`
	MinAffection int `json:"min_affection"`
}

type StreakConfig struct {
	// Timezone is the IANA zone used to resolve calendar-day boundaries.
	Timezone  string `json:"timezone" env:"KINSHIP_STREAK_TIMEZONE"`
	GraceDays int    `json:"grace_days" env:"KINSHIP_STREAK_GRACE_DAYS"`
}

type StorageConfig struct {
	Path string `json:"path" env:"KINSHIP_STORAGE_PATH"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"KINSHIP_GATEWAY_HOST"`
	Port int    `json:"port" env:"KINSHIP_GATEWAY_PORT"`
}

type SweepConfig struct {
	Enabled  bool   `json:"enabled" env:"KINSHIP_SWEEP_ENABLED"`
	Schedule string `json:"schedule" env:"KINSHIP_SWEEP_SCHEDULE"` // cron expression
}

func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			AutoCreatePairs:   true,
			RecentActivityCap: 20,
			MaxAffectionScore: 1000,
		},
		Affection: AffectionConfig{
			// Weights are scaled so the taper still separates repeat events
			// after rounding: weight 10 tapers to 10, 6, 4, 3, 2, 1.
			MessageWeight:      10,
			GiftWeight:         50,
			VoiceCallWeight:    30,
			VideoCallWeight:    40,
			ARExperienceWeight: 60,
			Taper:              []float64{1.0, 0.6, 0.4, 0.25, 0.15, 0.1},
			IdleGraceDays:      3,
			IdlePenaltyPerDay:  4,
		},
		Gifts: GiftsConfig{
			MultiplierCap:   3.0,
			DefaultDuration: 24 * time.Hour,
		},
		Progression: ProgressionConfig{
			XPBase:         100,
			XPExponent:     1.5,
			MessageXP:      2,
			GiftXP:         10,
			VoiceCallXP:    6,
			VideoCallXP:    8,
			ARExperienceXP: 12,
			Tiers: []TierGate{
				{MinLevel: 2, MinAffection: 50},   // acquaintance
				{MinLevel: 5, MinAffection: 200},  // friend
				{MinLevel: 10, MinAffection: 450}, // close friend
				{MinLevel: 18, MinAffection: 750}, // partner
			},
		},
		Streak: StreakConfig{
			Timezone:  "UTC",
			GraceDays: 0,
		},
		Storage: StorageConfig{
			Path: "~/.kinship/kinship.db",
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18630,
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Schedule: "0 4 * * *",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if envErr := env.Parse(cfg); envErr != nil {
				return nil, envErr
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxAffectionScore <= 0 {
		return fmt.Errorf("engine.max_affection_score must be positive")
	}
	if c.Engine.RecentActivityCap <= 0 {
		return fmt.Errorf("engine.recent_activity_cap must be positive")
	}
	if len(c.Affection.Taper) == 0 {
		return fmt.Errorf("affection.taper must not be empty")
	}
	for i := 1; i < len(c.Affection.Taper); i++ {
		if c.Affection.Taper[i] > c.Affection.Taper[i-1] {
			return fmt.Errorf("affection.taper must be non-increasing")
		}
	}
	if c.Progression.XPBase <= 0 {
		return fmt.Errorf("progression.xp_base must be positive")
	}
	if c.Progression.XPExponent <= 1 {
		return fmt.Errorf("progression.xp_exponent must be greater than 1")
	}
	if len(c.Progression.Tiers) == 0 {
		return fmt.Errorf("progression.tiers must not be empty")
	}
	for i, gate := range c.Progression.Tiers {
		if gate.MinLevel < 1 || gate.MinAffection < 0 {
			return fmt.Errorf("progression.tiers[%d] has invalid floors", i)
		}
		// Later tiers gate on higher floors; a misordered list would leave
		// the tiers after the inversion unreachable.
		if i > 0 && (gate.MinLevel <= c.Progression.Tiers[i-1].MinLevel ||
			gate.MinAffection <= c.Progression.Tiers[i-1].MinAffection) {
			return fmt.Errorf("progression.tiers[%d] must require more than tiers[%d]", i, i-1)
		}
	}
	if c.Gifts.MultiplierCap < 1 {
		return fmt.Errorf("gifts.multiplier_cap must be at least 1")
	}
	if _, err := time.LoadLocation(c.Streak.Timezone); err != nil {
		return fmt.Errorf("streak.timezone: %w", err)
	}
	return nil
}

// StoragePath returns the database path with ~ expanded.
func (c *Config) StoragePath() string {
	return expandHome(c.Storage.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
