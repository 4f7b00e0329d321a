package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

const (
	writingSystem  = "You are a professional writer. Write the requested piece in Markdown. Output only the piece."
	writingTokens  = 8192
	writingFormat  = ".md"
	writingDefault = "article"
)

// WritingWorker writes articles and copy as Markdown.
type WritingWorker struct {
	generator
}

// NewWritingWorker constructs WritingWorker.
func NewWritingWorker(completer Completer, files *Files, logger *slog.Logger) *WritingWorker {
	return &WritingWorker{generator{llm: completer, files: files, logger: logger}}
}

func (w *WritingWorker) GigType() model.GigType { return model.GigTypeWriting }

func (w *WritingWorker) Process(ctx context.Context, order model.Order) ([]string, error) {
	user := fmt.Sprintf("Requirements:\n%s", requirementsText(order))
	text, err := w.draft(ctx, "writing_execution", writingSystem, user, writingTokens)
	if err != nil {
		return nil, err
	}
	name := SafeName(firstRequirement(order), 50, writingDefault) + writingFormat
	path, err := w.files.SaveText(order.ID, name, text)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (w *WritingWorker) Revise(ctx context.Context, order model.Order, feedback string, originalPaths []string) ([]string, error) {
	user := fmt.Sprintf("Requirements:\n%s\nOriginal piece:\n%s\n\nRevision feedback:\n%s\n\nRewrite the piece applying the feedback.",
		requirementsText(order), readFirst(originalPaths), feedback)
	text, err := w.draft(ctx, "writing_revision", writingSystem, user, writingTokens)
	if err != nil {
		return nil, err
	}
	path, err := w.files.SaveText(order.ID, revisionName(originalPaths, writingDefault, writingFormat, order.RevisionCount), text)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
