package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database/mock"
)

type recordingNotifier struct {
	events []Event
}

func (r *recordingNotifier) Notify(event Event) {
	r.events = append(r.events, event)
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(Event) {
	panic("notifier blew up")
}

func testTime(hour, min, sec int) time.Time {
	return time.Date(2026, 8, 28, hour, min, sec, 0, time.Local)
}

func setupEngine(t *testing.T) (*Engine, *mock.Store, *recordingNotifier) {
	t.Helper()
	store := mock.NewStore()
	notifier := &recordingNotifier{}
	engine := NewEngine(store, 10*time.Second, 30*time.Second, WithNotifier(notifier))
	return engine, store, notifier
}

func TestHandleMatch_FirstEventOpensSession(t *testing.T) {
	engine, store, notifier := setupEngine(t)
	ctx := context.Background()

	outcome, err := engine.HandleMatch(ctx, "alice", testTime(9, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIn {
		t.Errorf("expected OutcomeIn, got %q", outcome)
	}

	sessions := store.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].InTime != "09:00:00" || !sessions[0].Open() {
		t.Errorf("expected open session at 09:00:00, got %+v", sessions[0])
	}

	if len(notifier.events) != 1 || notifier.events[0].Kind != KindIn {
		t.Errorf("expected one IN notification, got %+v", notifier.events)
	}
}

func TestHandleMatch_MinimumSessionBoundary(t *testing.T) {
	engine, store, notifier := setupEngine(t)
	ctx := context.Background()

	if _, err := engine.HandleMatch(ctx, "alice", testTime(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 29 seconds in: re-detection noise, session stays open.
	outcome, err := engine.HandleMatch(ctx, "alice", testTime(9, 0, 29))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeTooSoon {
		t.Errorf("expected OutcomeTooSoon at 29s, got %q", outcome)
	}
	if sessions := store.Sessions(); !sessions[0].Open() {
		t.Error("expected session still open at 29s")
	}

	// Exactly 30 seconds: boundary is inclusive, session closes.
	outcome, err = engine.HandleMatch(ctx, "alice", testTime(9, 0, 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeOut {
		t.Errorf("expected OutcomeOut at 30s, got %q", outcome)
	}

	sessions := store.Sessions()
	if sessions[0].OutTime != "09:00:30" {
		t.Errorf("expected out time 09:00:30, got %q", sessions[0].OutTime)
	}

	if len(notifier.events) != 2 || notifier.events[1].Kind != KindOut {
		t.Errorf("expected IN then OUT notifications, got %+v", notifier.events)
	}
}

func TestHandleMatch_CooldownWindow(t *testing.T) {
	engine, store, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := engine.HandleMatch(ctx, "alice", testTime(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.HandleMatch(ctx, "alice", testTime(9, 1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 9 seconds after the OUT: discarded.
	outcome, err := engine.HandleMatch(ctx, "alice", testTime(9, 1, 9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCooldown {
		t.Errorf("expected OutcomeCooldown at +9s, got %q", outcome)
	}
	if len(store.Sessions()) != 1 {
		t.Fatalf("expected no new session during cooldown, got %d", len(store.Sessions()))
	}

	// 11 seconds after the OUT: a fresh session opens the same day.
	outcome, err = engine.HandleMatch(ctx, "alice", testTime(9, 1, 11))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIn {
		t.Errorf("expected OutcomeIn at +11s, got %q", outcome)
	}

	sessions := store.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if !sessions[1].Open() || sessions[1].InTime != "09:01:11" {
		t.Errorf("expected new open session at 09:01:11, got %+v", sessions[1])
	}
}

func TestHandleMatch_AtMostOneOpenSession(t *testing.T) {
	engine, store, _ := setupEngine(t)
	ctx := context.Background()

	// A long noisy day: detections every few seconds across several visits.
	now := testTime(8, 0, 0)
	opens, closes := 0, 0
	for i := 0; i < 200; i++ {
		outcome, err := engine.HandleMatch(ctx, "alice", now)
		if err != nil {
			t.Fatalf("unexpected error at step %d: %v", i, err)
		}
		switch outcome {
		case OutcomeIn:
			opens++
		case OutcomeOut:
			closes++
		}
		now = now.Add(7 * time.Second)

		open := 0
		for _, s := range store.Sessions() {
			if s.Open() {
				open++
			}
		}
		if open > 1 {
			t.Fatalf("invariant violated at step %d: %d open sessions", i, open)
		}
	}

	if closes > opens {
		t.Errorf("closes (%d) exceeded opens (%d)", closes, opens)
	}
}

func TestHandleMatch_PersistenceFailureAdvancesNothing(t *testing.T) {
	engine, store, notifier := setupEngine(t)
	ctx := context.Background()

	if _, err := engine.HandleMatch(ctx, "alice", testTime(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	injected := errors.New("disk full")
	store.CloseSessionError = injected

	outcome, err := engine.HandleMatch(ctx, "alice", testTime(9, 1, 0))
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if outcome != OutcomeError {
		t.Errorf("expected OutcomeError, got %q", outcome)
	}
	if len(notifier.events) != 1 {
		t.Errorf("expected no OUT notification after failed write, got %+v", notifier.events)
	}

	// The failed close must not have set a cooldown: once the store
	// recovers, the very next event closes the still-open session.
	store.CloseSessionError = nil
	outcome, err = engine.HandleMatch(ctx, "alice", testTime(9, 1, 5))
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if outcome != OutcomeOut {
		t.Errorf("expected OutcomeOut after recovery, got %q", outcome)
	}
}

func TestHandleMatch_SettlesSessionAcrossMidnight(t *testing.T) {
	engine, store, notifier := setupEngine(t)
	ctx := context.Background()

	late := time.Date(2026, 8, 27, 23, 50, 0, 0, time.Local)
	if _, err := engine.HandleMatch(ctx, "alice", late); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First detection next morning settles yesterday and opens today.
	outcome, err := engine.HandleMatch(ctx, "alice", testTime(8, 30, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIn {
		t.Errorf("expected OutcomeIn, got %q", outcome)
	}

	sessions := store.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].OutTime != "23:59:59" {
		t.Errorf("expected stale session settled at 23:59:59, got %q", sessions[0].OutTime)
	}
	if sessions[1].Date != "2026-08-28" || !sessions[1].Open() {
		t.Errorf("expected fresh open session for the new date, got %+v", sessions[1])
	}

	// Settling is bookkeeping, not an attendance transition: only the
	// two IN events were announced.
	for _, event := range notifier.events {
		if event.Kind != KindIn {
			t.Errorf("unexpected notification %+v", event)
		}
	}
}

func TestHandleMatch_IndependentIdentities(t *testing.T) {
	engine, store, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := engine.HandleMatch(ctx, "alice", testTime(9, 0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.HandleMatch(ctx, "alice", testTime(9, 1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Alice's cooldown must not suppress Bob.
	outcome, err := engine.HandleMatch(ctx, "bob", testTime(9, 1, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIn {
		t.Errorf("expected OutcomeIn for bob during alice's cooldown, got %q", outcome)
	}

	if len(store.Sessions()) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(store.Sessions()))
	}
}

func TestHandleMatch_NotifierPanicDoesNotFailTransition(t *testing.T) {
	store := mock.NewStore()
	engine := NewEngine(store, 10*time.Second, 30*time.Second, WithNotifier(panickingNotifier{}))

	outcome, err := engine.HandleMatch(context.Background(), "alice", testTime(9, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIn {
		t.Errorf("expected OutcomeIn, got %q", outcome)
	}
	if len(store.Sessions()) != 1 {
		t.Errorf("expected session persisted despite notifier panic")
	}
}
