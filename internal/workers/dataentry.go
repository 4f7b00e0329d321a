package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

const (
	dataEntrySystem = `You are a meticulous data entry specialist. Return a JSON object {"headers": [...], "rows": [[...], ...]} and nothing else.`
	dataEntryTokens = 8192
	dataEntryFormat = ".csv"
	dataDefault     = "data"
)

// DataEntryWorker produces tabular deliverables as CSV.
type DataEntryWorker struct {
	generator
}

// NewDataEntryWorker constructs DataEntryWorker.
func NewDataEntryWorker(completer Completer, files *Files, logger *slog.Logger) *DataEntryWorker {
	return &DataEntryWorker{generator{llm: completer, files: files, logger: logger}}
}

func (w *DataEntryWorker) GigType() model.GigType { return model.GigTypeDataEntry }

func (w *DataEntryWorker) Process(ctx context.Context, order model.Order) ([]string, error) {
	user := fmt.Sprintf("Requirements:\n%s", requirementsText(order))
	raw, err := w.draft(ctx, "data_entry_execution", dataEntrySystem, user, dataEntryTokens)
	if err != nil {
		return nil, err
	}
	headers, rows := w.table(raw)
	path, err := w.files.SaveCSV(order.ID, SafeName(firstRequirement(order), 40, dataDefault)+dataEntryFormat, headers, rows)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (w *DataEntryWorker) Revise(ctx context.Context, order model.Order, feedback string, originalPaths []string) ([]string, error) {
	user := fmt.Sprintf("Requirements:\n%s\nCurrent data (CSV):\n%s\n\nRevision feedback:\n%s\n\nReturn the full revised table.",
		requirementsText(order), readFirst(originalPaths), feedback)
	raw, err := w.draft(ctx, "data_entry_revision", dataEntrySystem, user, dataEntryTokens)
	if err != nil {
		return nil, err
	}
	headers, rows := w.table(raw)
	name := revisionName(originalPaths, dataDefault, dataEntryFormat, order.RevisionCount)
	path, err := w.files.SaveCSV(order.ID, name, headers, rows)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (w *DataEntryWorker) table(raw string) ([]string, [][]string) {
	headers, rows, ok := ParseTable(raw)
	if !ok {
		w.logger.Warn("unparsable table, saving raw content", slog.Int("length", len(raw)))
	}
	return headers, rows
}

// ParseTable reads {"headers","rows"}, a list of objects or a list of lists.
// Anything else becomes a single "Content" cell and ok is false.
func ParseTable(raw string) (headers []string, rows [][]string, ok bool) {
	var data any
	if err := json.Unmarshal([]byte(llm.StripCodeFence(raw)), &data); err != nil {
		return []string{"Content"}, [][]string{{raw}}, false
	}

	switch v := data.(type) {
	case map[string]any:
		if h, r := stringList(v["headers"]), v["rows"]; len(h) > 0 {
			if r == nil {
				r = v["data"]
			}
			if list, isList := r.([]any); isList && len(list) > 0 {
				return h, cells(list), true
			}
		}
		for _, key := range sortedKeys(v) {
			if list, isList := v[key].([]any); isList && len(list) > 0 {
				if h, r, ok := fromList(list); ok {
					return h, r, true
				}
			}
		}
	case []any:
		if h, r, ok := fromList(v); ok {
			return h, r, true
		}
	}
	return []string{"Content"}, [][]string{{raw}}, false
}

func fromList(list []any) ([]string, [][]string, bool) {
	if len(list) == 0 {
		return nil, nil, false
	}
	switch first := list[0].(type) {
	case map[string]any:
		headers := sortedKeys(first)
		rows := make([][]string, 0, len(list))
		for _, item := range list {
			obj, _ := item.(map[string]any)
			row := make([]string, len(headers))
			for i, h := range headers {
				row[i] = cell(obj[h])
			}
			rows = append(rows, row)
		}
		return headers, rows, true
	case []any:
		headers := make([]string, len(first))
		for i := range headers {
			headers[i] = "Column_" + strconv.Itoa(i+1)
		}
		return headers, cells(list), true
	}
	return nil, nil, false
}

func cells(list []any) [][]string {
	rows := make([][]string, 0, len(list))
	for _, item := range list {
		values, _ := item.([]any)
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cell(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, cell(item))
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
