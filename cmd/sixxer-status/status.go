package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/server/http/dto"
)

const defaultAddr = "http://localhost:8080"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(20)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func status(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sixxer-status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOr("SIXXER_STATUS_ADDR", defaultAddr), "service base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	token := fs.String("token", os.Getenv("SIXXER_OPERATOR_TOKEN"), "operator token; lists failed orders when set")
	limit := fs.Int("failed", 5, "number of failed orders to list")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	health, err := fetchHealth(ctx, http.DefaultClient, *addr)
	if err != nil {
		fmt.Fprintf(stderr, "sixxer unreachable: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, render(health))

	if *token != "" && health.Orders[string(model.OrderStatusFailed)] > 0 {
		failed, err := fetchFailed(ctx, http.DefaultClient, *addr, *token)
		if err != nil {
			fmt.Fprintf(stderr, "list failed orders: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, renderFailed(failed, *limit))
	}
	if health.Status != dto.HealthStatusOK {
		return 3
	}
	return 0
}

// fetchHealth accepts both healthy and degraded answers; other statuses are errors.
func fetchHealth(ctx context.Context, client *http.Client, addr string) (*dto.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var health dto.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	if health.Status == "" {
		return nil, errors.New("empty health status")
	}
	return &health, nil
}

// fetchFailed lists failed orders through the operator API, most recently updated first.
func fetchFailed(ctx context.Context, client *http.Client, addr, token string) ([]dto.OrderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/api/orders?status=failed", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var orders []dto.OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].UpdatedAt.After(orders[j].UpdatedAt)
	})
	return orders, nil
}

func renderFailed(orders []dto.OrderResponse, limit int) string {
	lines := []string{titleStyle.Render("Recent failures")}
	if len(orders) == 0 {
		lines = append(lines, mutedStyle.Render("none"))
	}
	for i, o := range orders {
		if limit > 0 && i == limit {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("... %d more", len(orders)-limit)))
			break
		}
		lines = append(lines, row(o.ExternalID, lastNote(o.Notes)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func lastNote(notes string) string {
	notes = strings.TrimRight(notes, "\n")
	if i := strings.LastIndexByte(notes, '\n'); i >= 0 {
		notes = notes[i+1:]
	}
	if notes == "" {
		return mutedStyle.Render("no notes")
	}
	return notes
}

func render(h *dto.HealthResponse) string {
	state := okStyle.Render(strings.ToUpper(h.Status))
	if h.Status != dto.HealthStatusOK {
		state = degradedStyle.Render(strings.ToUpper(h.Status))
	}

	lines := []string{
		titleStyle.Render("Sixxer") + "  " + state,
		row("uptime", (time.Duration(h.UptimeSeconds) * time.Second).String()),
		row("scheduler", schedulerState(h.SchedulerRunning)),
		row("cycles", fmt.Sprintf("%d", h.CycleCount)),
		row("api spend today", fmt.Sprintf("$%.4f", h.DailyAPICostUSD)),
	}
	if h.Error != "" {
		lines = append(lines, row("error", h.Error))
	}

	lines = append(lines, "", titleStyle.Render("Orders"))
	for _, s := range model.OrderStatuses() {
		n := h.Orders[string(s)]
		value := fmt.Sprintf("%d", n)
		if n == 0 {
			value = mutedStyle.Render(value)
		}
		lines = append(lines, row(string(s), value))
	}
	if !h.GeneratedAt.IsZero() {
		lines = append(lines, "", mutedStyle.Render("generated "+h.GeneratedAt.UTC().Format(time.RFC3339)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func schedulerState(running bool) string {
	if running {
		return okStyle.Render("running")
	}
	return degradedStyle.Render("stopped")
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
