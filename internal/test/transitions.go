package test

import (
	"context"
	"sync"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// TransitionRecorder captures published order transitions.
type TransitionRecorder struct {
	mu     sync.Mutex
	events []model.OrderTransition
}

// Publish records event.
func (r *TransitionRecorder) Publish(_ context.Context, event model.OrderTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Path returns the statuses ref moved through, starting with its first source status.
func (r *TransitionRecorder) Path(ref string) []model.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var path []model.OrderStatus
	for _, e := range r.events {
		if e.OrderID != ref && e.ExternalID != ref {
			continue
		}
		if len(path) == 0 {
			path = append(path, e.From)
		}
		path = append(path, e.To)
	}
	return path
}

// Events returns a copy of everything recorded.
func (r *TransitionRecorder) Events() []model.OrderTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.OrderTransition(nil), r.events...)
}
