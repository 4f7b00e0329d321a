package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// Completer is the subset of the LLM client used to draft text and structured replies.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
	CompleteJSON(ctx context.Context, req llm.Request, dst any) error
}

const (
	analysisSystem = "You analyze freelance marketplace orders. Reply with a JSON object with keys " +
		`"gig_type" (writing, coding or data_entry), "requirements" (list of strings), ` +
		`"needs_clarification" (bool), "clarification_questions" (list of strings), ` +
		`"word_count", "row_count" (integers or null) and "script_complexity" (string or null). Reply with JSON only.`
	classifySystem = "You classify freelance marketplace orders. Respond with only one of: writing, coding, data_entry."
)

type analysisReply struct {
	GigType                string   `json:"gig_type"`
	Requirements           []string `json:"requirements"`
	NeedsClarification     bool     `json:"needs_clarification"`
	ClarificationQuestions []string `json:"clarification_questions"`
	WordCount              *int     `json:"word_count"`
	RowCount               *int     `json:"row_count"`
	ScriptComplexity       *string  `json:"script_complexity"`
}

// Analyzer turns raw order text into a structured Analysis.
type Analyzer struct {
	llm    Completer
	logger *slog.Logger
}

// NewAnalyzer constructs Analyzer.
func NewAnalyzer(completer Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{llm: completer, logger: logger}
}

// AnalyzeOrder extracts gig type, requirements and clarification needs from the order text.
func (a *Analyzer) AnalyzeOrder(ctx context.Context, req model.AnalyzeRequest) (*model.Analysis, error) {
	user := fmt.Sprintf("Gig title: %s\nPrice: $%.2f\nBuyer: %s\nBuyer requirements:\n%s",
		req.GigTitle, req.Price, req.BuyerUsername, req.Text)

	var reply analysisReply
	if err := a.llm.CompleteJSON(ctx, llm.Request{
		System:      analysisSystem,
		User:        user,
		MaxTokens:   1024,
		Temperature: 0,
		Purpose:     "order_analysis",
	}, &reply); err != nil {
		return nil, fmt.Errorf("analyze order: %w", err)
	}

	requirements := nonEmpty(reply.Requirements)
	gigType, err := model.ParseGigType(reply.GigType)
	if err != nil {
		a.logger.Warn("analysis returned unknown gig type, classifying", slog.String("raw", reply.GigType))
		classifyInput := req.Text
		if len(requirements) > 0 {
			classifyInput = strings.Join(requirements, "; ")
		}
		if gigType, err = a.ClassifyGigType(ctx, req.GigTitle, classifyInput); err != nil {
			if errors.Is(err, domainErrors.ErrBudgetExceeded) {
				return nil, err
			}
			a.logger.Warn("classification failed, using writing", slog.String("error", err.Error()))
			gigType = model.GigTypeWriting
		}
	}

	analysis := &model.Analysis{
		GigType:                gigType,
		Requirements:           requirements,
		NeedsClarification:     reply.NeedsClarification,
		ClarificationQuestions: nonEmpty(reply.ClarificationQuestions),
		WordCount:              reply.WordCount,
		RowCount:               reply.RowCount,
	}
	if reply.ScriptComplexity != nil {
		analysis.ScriptComplexity = *reply.ScriptComplexity
	}

	a.logger.Info("order analyzed",
		slog.String("gig_type", string(analysis.GigType)),
		slog.Int("requirements", len(analysis.Requirements)),
		slog.Bool("needs_clarification", analysis.NeedsClarification))
	return analysis, nil
}

// ClassifyGigType picks the gig type for a title and free-form requirements.
func (a *Analyzer) ClassifyGigType(ctx context.Context, title, requirements string) (model.GigType, error) {
	resp, err := a.llm.Complete(ctx, llm.Request{
		System:      classifySystem,
		User:        fmt.Sprintf("Gig title: %s\nBuyer requirements: %s", title, requirements),
		MaxTokens:   20,
		Temperature: 0,
		Purpose:     "gig_classification",
	})
	if err != nil {
		return model.GigTypeUnknown, fmt.Errorf("classify gig type: %w", err)
	}
	return a.gigType(resp.Text), nil
}

// gigType falls back to writing for anything it does not recognise.
func (a *Analyzer) gigType(raw string) model.GigType {
	gt, err := model.ParseGigType(raw)
	if err != nil {
		a.logger.Warn("unknown gig type, using writing", slog.String("raw", raw))
		return model.GigTypeWriting
	}
	return gt
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
