package relationship

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ameling/kinship/pkg/config"
	"github.com/ameling/kinship/pkg/logger"
)

// Store is the persistence contract the engine consumes. Load returns
// ErrPairNotFound for unknown pairs; Save returns ErrVersionConflict when the
// optimistic version no longer matches.
type Store interface {
	Load(ctx context.Context, pair PairID) (*State, error)
	Save(ctx context.Context, st *State) error
	ListPairs(ctx context.Context) ([]PairID, error)
}

// Engine applies interaction events to relationship state. Updates for one
// pair are serialized behind a per-pair lock; different pairs proceed in
// parallel. The engine itself does no I/O beyond the injected store.
type Engine struct {
	cfg   *config.Config
	store Store
	clock func() time.Time

	affection   *AffectionEngine
	gifts       *EffectManager
	progression *Progression
	streaks     *StreakTracker
	evaluator   *Evaluator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock injects a time source. Tests use this for determinism.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithAchievements replaces the built-in achievement registry.
func WithAchievements(defs []AchievementDef) Option {
	return func(e *Engine) { e.evaluator = NewEvaluator(defs) }
}

// New builds an engine from configuration and a store.
func New(cfg *config.Config, store Store, opts ...Option) (*Engine, error) {
	streaks, err := NewStreakTracker(cfg.Streak)
	if err != nil {
		return nil, fmt.Errorf("streak tracker: %w", err)
	}

	e := &Engine{
		cfg:         cfg,
		store:       store,
		clock:       time.Now,
		gifts:       NewEffectManager(cfg.Gifts),
		progression: NewProgression(cfg.Progression),
		streaks:     streaks,
		evaluator:   NewEvaluator(DefaultAchievements()),
		locks:       map[string]*sync.Mutex{},
	}
	e.affection = NewAffectionEngine(cfg.Affection, cfg.Engine.MaxAffectionScore, streaks.Location())

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// pairLock returns the mutex owning the pair's update stream. Entries are
// never evicted: the map grows with the distinct pairs touched by this
// process, a few dozen bytes each. Revisit with an LRU if a deployment ever
// serves enough pairs for that to matter.
func (e *Engine) pairLock(pair PairID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := pair.String()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// ApplyInteraction runs the full pipeline for one event: affection and
// streak first, gift effects consulted for the delta, XP and tier next,
// achievements last against the fully updated state. The transition is
// computed in memory and saved once; on a version conflict nothing is
// visible and the caller retries from the stored state.
func (e *Engine) ApplyInteraction(ctx context.Context, pair PairID, ev Event) (*State, []Notification, error) {
	if err := ev.Validate(); err != nil {
		return nil, nil, err
	}

	lock := e.pairLock(pair)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.loadOrCreate(ctx, pair)
	if err != nil {
		return nil, nil, err
	}

	var notifs []Notification

	// Gift effects active at event time modify the affection delta. A gift
	// granted by this very event applies from the next interaction on.
	combined := e.gifts.Combine(pair, e.gifts.ActiveAt(st, ev.At))
	aff := e.affection.ApplyEvent(st, ev, combined)

	streakOutcome := e.streaks.Record(st, ev.At)
	if streakOutcome == StreakBroken {
		notifs = append(notifs, newNotification(pair, NotifyStreakBroken, ev.At, map[string]string{
			"current": strconv.Itoa(st.Streak.Current),
			"longest": strconv.Itoa(st.Streak.Longest),
		}))
	}

	if ev.Kind == EventGift && ev.Gift.Grant != nil {
		eff := e.gifts.Register(st, *ev.Gift.Grant, ev.At)
		if eff.Type == EffectMoodBoost {
			notifs = append(notifs, newNotification(pair, NotifyMoodBoost, ev.At, map[string]string{
				"effect_id": eff.ID,
				"magnitude": fmt.Sprintf("%g", eff.Magnitude),
			}))
		}
	}

	st.Counters.bump(ev.Kind)
	st.Recent.Push(Activity{Kind: ev.Kind, At: ev.At})
	st.LastInteractionAt = ev.At
	st.UpdatedAt = e.clock()

	levelBefore := st.Level
	gained := e.progression.ApplyXP(st, e.progression.XPForEvent(ev.Kind))
	if gained > 0 {
		notifs = append(notifs, newNotification(pair, NotifyLevelUp, ev.At, map[string]string{
			"from": strconv.Itoa(levelBefore),
			"to":   strconv.Itoa(st.Level),
		}))
	}

	if e.progression.AdvanceTier(st) {
		notifs = append(notifs, newNotification(pair, NotifyTierChange, ev.At, map[string]string{
			"tier": st.Tier.String(),
		}))
	}

	for _, def := range e.evaluator.Evaluate(st) {
		notifs = append(notifs, newNotification(pair, NotifyAchievement, ev.At, map[string]string{
			"achievement_id": def.ID,
			"name":           def.Name,
		}))
	}

	if err := e.store.Save(ctx, st); err != nil {
		return nil, nil, fmt.Errorf("save pair %s: %w", pair, err)
	}

	logger.DebugCF("engine", "interaction applied", map[string]interface{}{
		"pair":          pair.String(),
		"kind":          string(ev.Kind),
		"delta":         aff.Delta,
		"idle_penalty":  aff.IdlePenalty,
		"affection":     st.AffectionScore,
		"level":         st.Level,
		"tier":          st.Tier.String(),
		"notifications": len(notifs),
	})

	return st, notifs, nil
}

// GetState returns a read-only snapshot for the pair.
func (e *Engine) GetState(ctx context.Context, pair PairID) (*State, error) {
	return e.store.Load(ctx, pair)
}

// ListAchievementDefinitions returns the registry in evaluation order.
func (e *Engine) ListAchievementDefinitions() []AchievementDef {
	return e.evaluator.Definitions()
}

// Sweep settles inactivity decay and prunes expired gift effects for every
// stored pair. It runs from the scheduled maintenance job so long-idle pairs
// decay without waiting for their next interaction.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	pairs, err := e.store.ListPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pairs: %w", err)
	}

	touched := 0
	now := e.clock()
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return touched, err
		}
		if e.sweepPair(ctx, pair, now) {
			touched++
		}
	}
	return touched, nil
}

func (e *Engine) sweepPair(ctx context.Context, pair PairID, now time.Time) bool {
	lock := e.pairLock(pair)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.store.Load(ctx, pair)
	if err != nil {
		logger.WarnCF("engine", "sweep load failed", map[string]interface{}{"pair": pair.String(), "error": err.Error()})
		return false
	}

	before := len(st.ActiveEffects)
	e.gifts.ActiveAt(st, now)
	penalty := e.affection.SettleDecay(st, now)

	if penalty == 0 && len(st.ActiveEffects) == before {
		return false
	}

	st.UpdatedAt = now
	if err := e.store.Save(ctx, st); err != nil {
		logger.WarnCF("engine", "sweep save failed", map[string]interface{}{"pair": pair.String(), "error": err.Error()})
		return false
	}
	return true
}

func (e *Engine) loadOrCreate(ctx context.Context, pair PairID) (*State, error) {
	st, err := e.store.Load(ctx, pair)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrPairNotFound) {
		return nil, err
	}
	if !e.cfg.Engine.AutoCreatePairs {
		return nil, fmt.Errorf("pair %s: %w", pair, ErrPairNotFound)
	}
	return NewState(pair, e.cfg.Engine.RecentActivityCap, e.clock()), nil
}
