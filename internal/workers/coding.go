package workers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

const (
	codingSystem  = "You are a senior Python developer. Write a complete, runnable Python script for the requirements. Output only code."
	codingTokens  = 8192
	codingFormat  = ".py"
	codingDefault = "script"
)

var codeFence = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\s*\\n(.*?)```")

// CodingWorker writes single-file scripts.
type CodingWorker struct {
	generator
}

// NewCodingWorker constructs CodingWorker.
func NewCodingWorker(completer Completer, files *Files, logger *slog.Logger) *CodingWorker {
	return &CodingWorker{generator{llm: completer, files: files, logger: logger}}
}

func (w *CodingWorker) GigType() model.GigType { return model.GigTypeCoding }

func (w *CodingWorker) Process(ctx context.Context, order model.Order) ([]string, error) {
	user := fmt.Sprintf("Requirements:\n%s", requirementsText(order))
	raw, err := w.draft(ctx, "coding_execution", codingSystem, user, codingTokens)
	if err != nil {
		return nil, err
	}
	desc, _, _ := strings.Cut(firstRequirement(order), ".")
	path, err := w.files.SaveText(order.ID, SafeName(desc, 40, codingDefault)+codingFormat, ExtractCode(raw))
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (w *CodingWorker) Revise(ctx context.Context, order model.Order, feedback string, originalPaths []string) ([]string, error) {
	user := fmt.Sprintf("Requirements:\n%s\nCurrent code:\n```python\n%s\n```\n\nRevision feedback:\n%s\n\nReturn the full revised script.",
		requirementsText(order), readFirst(originalPaths), feedback)
	raw, err := w.draft(ctx, "coding_revision", codingSystem, user, codingTokens)
	if err != nil {
		return nil, err
	}
	name := revisionName(originalPaths, codingDefault, codingFormat, order.RevisionCount)
	path, err := w.files.SaveText(order.ID, name, ExtractCode(raw))
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// ExtractCode returns the body of the first fenced block, or the trimmed text when there is none.
func ExtractCode(raw string) string {
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]) + "\n"
	}
	return strings.TrimSpace(raw) + "\n"
}
