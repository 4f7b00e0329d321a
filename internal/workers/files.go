package workers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^a-z0-9_]+`)

// Files stores deliverables under <base>/<order-id>/.
type Files struct {
	baseDir string
	logger  *slog.Logger
}

// NewFiles creates the base directory if needed.
func NewFiles(baseDir string, logger *slog.Logger) (*Files, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create deliverables dir: %w", err)
	}
	return &Files{baseDir: baseDir, logger: logger}, nil
}

// Path creates the order directory and returns the path for name inside it.
func (f *Files) Path(orderID, name string) (string, error) {
	dir := filepath.Join(f.baseDir, orderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create order dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// SaveText writes content as UTF-8 text.
func (f *Files) SaveText(orderID, name, content string) (string, error) {
	path, err := f.Path(orderID, name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write deliverable: %w", err)
	}
	f.logger.Info("deliverable saved",
		slog.String("order", orderID),
		slog.String("file", name),
		slog.Int("size", len(content)))
	return path, nil
}

// SaveCSV writes an optional header row followed by rows.
func (f *Files) SaveCSV(orderID, name string, headers []string, rows [][]string) (string, error) {
	path, err := f.Path(orderID, name)
	if err != nil {
		return "", err
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create deliverable: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := w.Write(headers); err != nil {
			return "", fmt.Errorf("write csv header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv rows: %w", err)
	}
	f.logger.Info("deliverable saved",
		slog.String("order", orderID),
		slog.String("file", name),
		slog.Int("rows", len(rows)))
	return path, nil
}

// List returns the sorted files of an order, or nil when it has none.
func (f *Files) List(orderID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(f.baseDir, orderID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			paths = append(paths, filepath.Join(f.baseDir, orderID, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Cleanup removes the order directory.
func (f *Files) Cleanup(orderID string) error {
	return os.RemoveAll(filepath.Join(f.baseDir, orderID))
}

// SafeName lower-cases s and keeps letters, digits and underscores, cut to max runes.
func SafeName(s string, max int, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "-", "_").Replace(s)
	s = unsafeName.ReplaceAllString(s, "")
	s = strings.Trim(s, "_")
	if len(s) > max {
		s = strings.TrimRight(s[:max], "_")
	}
	if s == "" {
		return fallback
	}
	return s
}

// revisionName is "<stem of first original>_rev<n><ext>".
func revisionName(originals []string, fallback, ext string, n int) string {
	base := fallback
	if len(originals) > 0 {
		name := filepath.Base(originals[0])
		base = strings.TrimSuffix(name, filepath.Ext(name))
		if i := strings.LastIndex(base, "_rev"); i > 0 {
			base = base[:i]
		}
	}
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("%s_rev%d%s", base, n, ext)
}

func readFirst(paths []string) string {
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err == nil {
			return string(content)
		}
	}
	return ""
}
