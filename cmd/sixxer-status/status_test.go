package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/JamesxFarris/Sixxer/internal/server/http/dto"
	testhelpers "github.com/JamesxFarris/Sixxer/internal/test"
	"github.com/JamesxFarris/Sixxer/internal/usecase"
)

func healthServer(t *testing.T, code int, body dto.HealthResponse) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestStatusRendersHealthyReport(t *testing.T) {
	server := healthServer(t, http.StatusOK, dto.HealthResponse{
		Status:          dto.HealthStatusOK,
		UptimeSeconds:   3700,
		CycleCount:       12,
		SchedulerRunning: true,
		DailyAPICostUSD:  0.42,
		Orders:           map[string]int{"review": 2, "failed": 1},
		GeneratedAt:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	var stdout, stderr bytes.Buffer
	code := dispatch(context.Background(), []string{"-addr", server.URL + "/"}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"OK", "running", "1h1m40s", "12", "$0.4200", "review", "revision_requested", "2025-03-01T10:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatusDegradedAndUnreachable(t *testing.T) {
	server := healthServer(t, http.StatusServiceUnavailable, dto.HealthResponse{
		Status: dto.HealthStatusDegraded,
		Error:  "status report unavailable",
	})
	var stdout, stderr bytes.Buffer
	if code := dispatch(context.Background(), []string{"-addr", server.URL}, nil, &stdout, &stderr); code != 3 {
		t.Fatalf("expected 3 for degraded, got %d", code)
	}
	if !strings.Contains(stdout.String(), "DEGRADED") || !strings.Contains(stdout.String(), "status report unavailable") {
		t.Fatalf("unexpected output %s", stdout.String())
	}

	broken := httptest.NewServer(http.NotFoundHandler())
	broken.Close()
	stdout.Reset()
	if code := dispatch(context.Background(), []string{"-addr", broken.URL, "-timeout", "1s"}, nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected 1 for unreachable service, got %d", code)
	}

	if code := dispatch(context.Background(), []string{"-bogus"}, nil, &stdout, &stderr); code != 2 {
		t.Fatalf("expected 2 for bad flags, got %d", code)
	}
}

func TestFetchHealthRejectsUnexpectedAnswers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()
	if _, err := fetchHealth(context.Background(), server.Client(), server.URL); err == nil {
		t.Fatal("expected error for 403")
	}

	empty := healthServer(t, http.StatusOK, dto.HealthResponse{})
	if _, err := fetchHealth(context.Background(), empty.Client(), empty.URL); err == nil {
		t.Fatal("expected error for empty status")
	}
}

func TestHashToken(t *testing.T) {
	var stdout, stderr bytes.Buffer
	auth := usecase.NewAuthUseCase(nil, testhelpers.HasherStub{})

	if code := hashTokenWith(auth, []string{"0123456789abcdef"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr.String())
	}
	if stdout.String() != "hash:0123456789abcdef\n" {
		t.Fatalf("unexpected hash %q", stdout.String())
	}

	stdout.Reset()
	if code := hashTokenWith(auth, nil, strings.NewReader("  fedcba9876543210  \n"), &stdout, &stderr); code != 0 {
		t.Fatalf("expected 0 reading stdin, got %d", code)
	}
	if stdout.String() != "hash:fedcba9876543210\n" {
		t.Fatalf("unexpected hash %q", stdout.String())
	}

	if code := hashTokenWith(auth, []string{"short"}, nil, &stdout, &stderr); code != 2 {
		t.Fatalf("expected 2 for short token, got %d", code)
	}
}

func TestHashTokenProducesBcryptHash(t *testing.T) {
	var stdout, stderr bytes.Buffer
	token := "0123456789abcdef-operator"
	if code := dispatch(context.Background(), []string{"hash-token", token}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr.String())
	}
	hash := strings.TrimSpace(stdout.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		t.Fatalf("expected bcrypt hash of token: %v", err)
	}
}

func TestHelp(t *testing.T) {
	var stdout bytes.Buffer
	if code := dispatch(context.Background(), []string{"help"}, nil, &stdout, &stdout); code != 0 || !strings.Contains(stdout.String(), "hash-token") {
		t.Fatalf("unexpected help output %q", stdout.String())
	}
}

func TestStatusListsRecentFailures(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(dto.HealthResponse{Status: dto.HealthStatusOK, Orders: map[string]int{"failed": 3}})
		case "/api/orders":
			if r.Header.Get("Authorization") != "Bearer operator-token" || r.URL.Query().Get("status") != "failed" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode([]dto.OrderResponse{
				{ExternalID: "FO-1", Notes: "Analysis failed: timeout\n", UpdatedAt: base},
				{ExternalID: "FO-2", Notes: "Retried by operator\nWorker failed: disk full\n", UpdatedAt: base.Add(2 * time.Hour)},
				{ExternalID: "FO-3", UpdatedAt: base.Add(time.Hour)},
			})
		}
	}))
	defer server.Close()

	var stdout, stderr bytes.Buffer
	code := dispatch(context.Background(), []string{"-addr", server.URL, "-token", "operator-token", "-failed", "2"}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected 0, got %d: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Recent failures", "FO-2", "Worker failed: disk full", "FO-3", "no notes", "... 1 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "FO-1") {
		t.Errorf("expected oldest failure to be cut by the limit:\n%s", out)
	}
	if strings.Index(out, "FO-2") > strings.Index(out, "FO-3") {
		t.Errorf("expected most recent failure first:\n%s", out)
	}

	stdout.Reset()
	code = dispatch(context.Background(), []string{"-addr", server.URL, "-token", "wrong"}, nil, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected 1 when the operator api rejects the token, got %d", code)
	}
}
