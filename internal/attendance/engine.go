// Package attendance implements the session state machine that turns the
// noisy per-frame stream of recognized faces into clean IN/OUT attendance
// records, plus the report builder over those records.
package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/sirupsen/logrus"
)

// endOfDay is the synthetic OUT time used when settling a session that
// was left open across midnight.
const endOfDay = "23:59:59"

// Outcome describes what a match event did to the session state.
type Outcome string

const (
	// OutcomeIn means a new session was opened.
	OutcomeIn Outcome = "in"
	// OutcomeOut means the open session was closed.
	OutcomeOut Outcome = "out"
	// OutcomeCooldown means the event arrived inside the cooldown window
	// after an OUT and was discarded.
	OutcomeCooldown Outcome = "cooldown"
	// OutcomeTooSoon means the open session is younger than the minimum
	// session length; the event was treated as re-detection noise.
	OutcomeTooSoon Outcome = "too_soon"
	// OutcomeError means persistence failed and no state was advanced.
	OutcomeError Outcome = "error"
)

// Engine is the attendance session state machine. It is the sole writer
// of session records and the exclusive owner of the cooldown map. All
// state transitions re-derive open/closed status from storage, so a
// failed write never leaves the engine trusting a stale cache.
type Engine struct {
	mu         sync.Mutex
	store      database.SessionStore
	cooldown   *cooldownMap
	minSession time.Duration
	notifier   Notifier
	log        *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the notifier receiving IN/OUT events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates a session engine. Cooldown is the suppression window
// after an OUT; minSession is the minimum elapsed time before an open
// session may close.
func NewEngine(store database.SessionStore, cooldown, minSession time.Duration, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		cooldown:   newCooldownMap(cooldown),
		minSession: minSession,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMatch processes one recognized match event for name at time now
// and applies at most one session transition. Unknown faces must be
// filtered out by the caller; the engine only ever sees real identities.
func (e *Engine) HandleMatch(ctx context.Context, name string, now time.Time) (Outcome, error) {
	// The cooldown check and the session check-and-set must not interleave
	// across loops, or two callers could both open a session for the same
	// identity and date.
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cooldown.Active(name, now) {
		return OutcomeCooldown, nil
	}

	date := now.Format(database.DateLayout)

	// Settle a session left open across midnight: close it at the end of
	// its own date, then treat today as a fresh start. No OUT notification
	// and no cooldown; the person never actually left in front of the camera.
	stale, err := e.store.FindOpenSessionBefore(ctx, name, date)
	if err != nil {
		return OutcomeError, fmt.Errorf("finding stale session: %w", err)
	}
	if stale != nil {
		if err := e.store.CloseSession(ctx, stale.ID, endOfDay); err != nil {
			return OutcomeError, fmt.Errorf("settling stale session %d: %w", stale.ID, err)
		}
		e.log.WithFields(logrus.Fields{
			"name": name,
			"date": stale.Date,
		}).Warn("closed session left open across midnight")
	}

	session, err := e.store.FindOpenSession(ctx, name, date)
	if err != nil {
		return OutcomeError, fmt.Errorf("finding open session: %w", err)
	}

	if session == nil {
		if _, err := e.store.OpenSession(ctx, name, date, now.Format(database.TimeLayout)); err != nil {
			return OutcomeError, fmt.Errorf("opening session: %w", err)
		}
		e.notify(Event{Kind: KindIn, Name: name, At: now})
		return OutcomeIn, nil
	}

	inAt, err := session.InAt()
	if err != nil {
		return OutcomeError, fmt.Errorf("corrupt session %d: %w", session.ID, err)
	}

	if now.Sub(inAt) < e.minSession {
		return OutcomeTooSoon, nil
	}

	if err := e.store.CloseSession(ctx, session.ID, now.Format(database.TimeLayout)); err != nil {
		return OutcomeError, fmt.Errorf("closing session %d: %w", session.ID, err)
	}
	e.cooldown.Set(name, now)
	e.notify(Event{Kind: KindOut, Name: name, At: now})
	return OutcomeOut, nil
}

// notify delivers the event without letting a misbehaving notifier fail
// or abort the transition that produced it.
func (e *Engine) notify(event Event) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("notifier panicked")
		}
	}()
	e.notifier.Notify(event)
}
