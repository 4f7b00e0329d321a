package statemachine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	testhelpers "github.com/JamesxFarris/Sixxer/internal/test"
)

type publisherStub struct {
	mu     sync.Mutex
	events []model.OrderTransition
	err    error
}

func (p *publisherStub) Publish(_ context.Context, event model.OrderTransition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type observerStub struct {
	edges [][2]model.OrderStatus
}

func (o *observerStub) ObserveTransition(from, to model.OrderStatus) {
	o.edges = append(o.edges, [2]model.OrderStatus{from, to})
}

func setupMachine(t *testing.T) (*Machine, *testhelpers.OrderRepositoryStub) {
	t.Helper()
	repo := testhelpers.NewOrderRepositoryStub()
	return New(repo, nil, nil, testhelpers.DiscardLogger()), repo
}

func TestCanTransitionTable(t *testing.T) {
	legal := map[[2]model.OrderStatus]bool{}
	for from, targets := range transitions {
		for _, to := range targets {
			legal[[2]model.OrderStatus{from, to}] = true
		}
	}

	tests := []struct {
		from, to model.OrderStatus
		want     bool
	}{
		{model.OrderStatusNew, model.OrderStatusAnalyzing, true},
		{model.OrderStatusAnalyzing, model.OrderStatusClarifying, true},
		{model.OrderStatusReview, model.OrderStatusInProgress, true},
		{model.OrderStatusDelivered, model.OrderStatusRevisionRequested, true},
		{model.OrderStatusFailed, model.OrderStatusNew, true},
		{model.OrderStatusNew, model.OrderStatusInProgress, false},
		{model.OrderStatusDelivered, model.OrderStatusInProgress, false},
		{model.OrderStatusDelivered, model.OrderStatusFailed, false},
		{model.OrderStatusCompleted, model.OrderStatusNew, false},
		{model.OrderStatusCancelled, model.OrderStatusNew, false},
		{model.OrderStatusFailed, model.OrderStatusInProgress, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	m, _ := setupMachine(t)
	for _, from := range model.OrderStatuses() {
		for _, to := range model.OrderStatuses() {
			first := m.CanTransition(from, to)
			if first != m.CanTransition(from, to) {
				t.Fatalf("CanTransition(%s, %s) is not stable", from, to)
			}
			if first != legal[[2]model.OrderStatus{from, to}] {
				t.Fatalf("CanTransition(%s, %s) = %v disagrees with table", from, to, first)
			}
		}
	}
	if len(AllowedTargets(model.OrderStatusCompleted)) != 0 || len(AllowedTargets(model.OrderStatusCancelled)) != 0 {
		t.Fatal("terminal statuses must have no successors")
	}
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	for _, from := range model.OrderStatuses() {
		for _, to := range model.OrderStatuses() {
			if CanTransition(from, to) {
				continue
			}
			m, repo := setupMachine(t)
			stored := repo.Put(model.Order{ExternalID: "FO-1", Status: from})

			_, err := m.Transition(context.Background(), "FO-1", to)
			if !errors.Is(err, domainErrors.ErrInvalidTransition) {
				t.Fatalf("%s -> %s: expected invalid transition, got %v", from, to, err)
			}
			var invalid *InvalidTransitionError
			if !errors.As(err, &invalid) || invalid.From != from || invalid.To != to {
				t.Fatalf("%s -> %s: unexpected error detail %v", from, to, err)
			}
			if got := repo.Snapshot(stored.ID); got.Status != from || !got.UpdatedAt.Equal(stored.UpdatedAt) {
				t.Fatalf("%s -> %s: stored order changed: %+v", from, to, got)
			}
		}
	}
}

func TestTransitionAppliesEdgeSideEffects(t *testing.T) {
	for from, targets := range transitions {
		for _, to := range targets {
			m, repo := setupMachine(t)
			before := repo.Put(model.Order{ExternalID: "FO-1", Status: from, RevisionCount: 2})

			after, err := m.Transition(context.Background(), before.ID, to)
			if err != nil {
				t.Fatalf("%s -> %s: unexpected error: %v", from, to, err)
			}
			if after.Status != to {
				t.Fatalf("%s -> %s: status %s", from, to, after.Status)
			}
			if !after.UpdatedAt.After(before.UpdatedAt) {
				t.Fatalf("%s -> %s: updated_at did not increase", from, to)
			}
			wantRevisions := 2
			if to == model.OrderStatusRevisionRequested {
				wantRevisions = 3
			}
			if after.RevisionCount != wantRevisions {
				t.Fatalf("%s -> %s: revision count %d", from, to, after.RevisionCount)
			}
			if (to == model.OrderStatusDelivered) != (after.DeliveredAt != nil) {
				t.Fatalf("%s -> %s: delivered_at %v", from, to, after.DeliveredAt)
			}
		}
	}
}

func TestTransitionUpdatedAtStrictlyIncreasesWithFrozenClock(t *testing.T) {
	m, repo := setupMachine(t)
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }
	repo.Put(model.Order{ExternalID: "FO-1", Status: model.OrderStatusNew, UpdatedAt: frozen.Add(time.Hour)})

	first, err := m.Transition(context.Background(), "FO-1", model.OrderStatusAnalyzing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := m.Transition(context.Background(), "FO-1", model.OrderStatusInProgress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.UpdatedAt.After(frozen.Add(time.Hour)) || !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updated_at not strictly increasing: %v %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestTransitionNotesAndDeliverables(t *testing.T) {
	m, repo := setupMachine(t)
	order := repo.Put(model.Order{ExternalID: "FO-1", Status: model.OrderStatusInProgress, Notes: "first\n"})

	updated, err := m.Transition(context.Background(), "FO-1", model.OrderStatusReview,
		WithNotes("second"), WithDeliverables([]string{"a.md", "b.md"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Notes != "first\nsecond\n" {
		t.Fatalf("unexpected notes %q", updated.Notes)
	}
	if len(updated.DeliverablePaths) != 2 {
		t.Fatalf("unexpected paths %v", updated.DeliverablePaths)
	}

	updated, err = m.Transition(context.Background(), order.ID, model.OrderStatusDelivering)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Notes != "first\nsecond\n" || len(updated.DeliverablePaths) != 2 {
		t.Fatalf("transition without options must keep notes and paths: %+v", updated)
	}
}

func TestTransitionNotFound(t *testing.T) {
	m, _ := setupMachine(t)
	if _, err := m.Transition(context.Background(), "missing", model.OrderStatusAnalyzing); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := m.Order(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransitionNotifiesObserverAndPublisher(t *testing.T) {
	repo := testhelpers.NewOrderRepositoryStub()
	publisher := &publisherStub{err: errors.New("broker down")}
	observer := &observerStub{}
	m := New(repo, publisher, observer, testhelpers.DiscardLogger())
	repo.Put(model.Order{ExternalID: "FO-1", Status: model.OrderStatusNew})

	if _, err := m.Transition(context.Background(), "FO-1", model.OrderStatusAnalyzing, WithNotes("start")); err != nil {
		t.Fatalf("publish failure must not fail the transition: %v", err)
	}
	if _, err := m.Transition(context.Background(), "FO-1", model.OrderStatusDelivered); err == nil {
		t.Fatal("expected invalid transition")
	}

	if len(observer.edges) != 1 || observer.edges[0] != [2]model.OrderStatus{model.OrderStatusNew, model.OrderStatusAnalyzing} {
		t.Fatalf("unexpected observed edges: %v", observer.edges)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.ExternalID != "FO-1" || event.From != model.OrderStatusNew || event.To != model.OrderStatusAnalyzing || event.Notes != "start" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestQueries(t *testing.T) {
	m, repo := setupMachine(t)
	repo.Put(model.Order{ExternalID: "FO-1", Status: model.OrderStatusNew})
	repo.Put(model.Order{ExternalID: "FO-2", Status: model.OrderStatusReview})
	repo.Put(model.Order{ExternalID: "FO-3", Status: model.OrderStatusNew})

	orders, err := m.OrdersByStatus(context.Background(), model.OrderStatusNew)
	if err != nil || len(orders) != 2 || orders[0].ExternalID != "FO-1" {
		t.Fatalf("unexpected orders: %v err=%v", orders, err)
	}
	byExternal, err := m.Order(context.Background(), "FO-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byInternal, err := m.Order(context.Background(), byExternal.ID)
	if err != nil || byInternal.ExternalID != "FO-2" {
		t.Fatalf("internal and external ids must resolve to the same order: %+v err=%v", byInternal, err)
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{Ref: "FO-1", From: model.OrderStatusCompleted, To: model.OrderStatusNew}
	if err.Error() != "cannot transition order FO-1 from completed to new" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
