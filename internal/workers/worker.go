package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// Worker produces and revises the deliverables of one gig type.
type Worker interface {
	GigType() model.GigType
	Process(ctx context.Context, order model.Order) ([]string, error)
	Revise(ctx context.Context, order model.Order, feedback string, originalPaths []string) ([]string, error)
}

// Completer drafts deliverable content.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Registry is the immutable gig type to worker mapping built at startup.
type Registry struct {
	workers map[model.GigType]Worker
}

// NewRegistry fails on a duplicate or unknown gig type.
func NewRegistry(workers ...Worker) (*Registry, error) {
	r := &Registry{workers: make(map[model.GigType]Worker, len(workers))}
	for _, w := range workers {
		gt := w.GigType()
		if gt == model.GigTypeUnknown {
			return nil, fmt.Errorf("worker without gig type")
		}
		if _, dup := r.workers[gt]; dup {
			return nil, fmt.Errorf("duplicate worker for gig type %s", gt)
		}
		r.workers[gt] = w
	}
	return r, nil
}

// Lookup returns the worker registered for gt.
func (r *Registry) Lookup(gt model.GigType) (Worker, bool) {
	w, ok := r.workers[gt]
	return w, ok
}

// GigTypes lists the registered gig types in the canonical order.
func (r *Registry) GigTypes() []model.GigType {
	var out []model.GigType
	for _, gt := range model.GigTypes() {
		if _, ok := r.workers[gt]; ok {
			out = append(out, gt)
		}
	}
	return out
}

// generator holds what every worker needs to draft and store content.
type generator struct {
	llm    Completer
	files  *Files
	logger *slog.Logger
}

func (g generator) draft(ctx context.Context, purpose, system, user string, maxTokens int) (string, error) {
	resp, err := g.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		MaxTokens:   maxTokens,
		Temperature: 0.7,
		Purpose:     purpose,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", purpose, err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%s: empty response", purpose)
	}
	return text, nil
}

func requirementsText(order model.Order) string {
	if len(order.Requirements) == 0 {
		return "As described in order"
	}
	var b strings.Builder
	for _, r := range order.Requirements {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.String()
}

func firstRequirement(order model.Order) string {
	if len(order.Requirements) == 0 {
		return ""
	}
	return order.Requirements[0]
}
