package ai

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
)

const (
	messageTokens      = 512
	messageTemperature = 0.7

	acknowledgmentSystem = "You are a professional freelancer. Write a short, friendly message confirming a new order and restating what will be delivered."
	clarificationSystem  = "You are a professional freelancer. Write a short, polite message asking the buyer the listed questions before starting work."
	deliverySystem       = "You are a professional freelancer. Write a short message presenting the delivered work and inviting the buyer to review it."
	revisionSystem       = "You are a professional freelancer responding to a revision request. In 2-4 sentences acknowledge the feedback, summarize the changes and invite review."
)

// Communicator drafts buyer-facing messages.
type Communicator struct {
	llm    Completer
	logger *slog.Logger
}

// NewCommunicator constructs Communicator.
func NewCommunicator(completer Completer, logger *slog.Logger) *Communicator {
	return &Communicator{llm: completer, logger: logger}
}

// Acknowledgment confirms a new order to the buyer.
func (c *Communicator) Acknowledgment(ctx context.Context, buyer, summary, gigType string) (string, error) {
	user := fmt.Sprintf("Buyer: %s\nGig type: %s\nRequirements: %s\nWrite the acknowledgment.", buyer, gigType, summary)
	return c.draft(ctx, "buyer_acknowledgment", acknowledgmentSystem, user)
}

// Clarification asks the buyer the given questions.
func (c *Communicator) Clarification(ctx context.Context, buyer string, questions []string, gigType, requirements string) (string, error) {
	var numbered strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&numbered, "  %d. %s\n", i+1, q)
	}
	user := fmt.Sprintf("Buyer: %s\nGig type: %s\nCurrent requirements:\n%s\nQuestions:\n%s", buyer, gigType, requirements, numbered.String())
	return c.draft(ctx, "buyer_clarification", clarificationSystem, user)
}

// DeliveryMessage presents finished work and the delivered files.
func (c *Communicator) DeliveryMessage(ctx context.Context, buyer, gigType, summary string, files []string) (string, error) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	delivered := strings.Join(names, ", ")
	if delivered == "" {
		delivered = "See attached files"
	}
	user := fmt.Sprintf("Buyer: %s\nGig type: %s\nSummary: %s\nFiles: %s\nWrite the delivery message.", buyer, gigType, summary, delivered)
	return c.draft(ctx, "buyer_delivery", deliverySystem, user)
}

// RevisionResponse accompanies a revised delivery.
func (c *Communicator) RevisionResponse(ctx context.Context, buyer, changes string) (string, error) {
	user := fmt.Sprintf("Buyer: %s\nChanges made based on feedback:\n%s\n\nWrite the revision delivery message.", buyer, changes)
	return c.draft(ctx, "revision_response", revisionSystem, user)
}

func (c *Communicator) draft(ctx context.Context, purpose, system, user string) (string, error) {
	resp, err := c.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		MaxTokens:   messageTokens,
		Temperature: messageTemperature,
		Purpose:     purpose,
	})
	if err != nil {
		c.logger.Error("draft message failed", slog.String("purpose", purpose), slog.String("error", err.Error()))
		return "", fmt.Errorf("draft %s: %w", purpose, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
