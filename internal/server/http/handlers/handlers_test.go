package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
	"github.com/JamesxFarris/Sixxer/internal/server/http/dto"
	testhelpers "github.com/JamesxFarris/Sixxer/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var _ OperatorFacade = (*testhelpers.OperatorFacadeStub)(nil)

func performRequest(t *testing.T, method, route, target string, handler gin.HandlerFunc, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, route, handler)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body["error"]
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("load: %w", domainErrors.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: new -> delivered", domainErrors.ErrInvalidTransition), http.StatusConflict},
		{fmt.Errorf("%w: bogus", domainErrors.ErrInvalidStatus), http.StatusBadRequest},
		{domainErrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{pkgAuth.ErrInvalidToken, http.StatusUnauthorized},
		{pkgAuth.ErrOperatorDisabled, http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAbortWithErrorHidesInternalErrors(t *testing.T) {
	w := performRequest(t, http.MethodGet, "/", "/", func(c *gin.Context) {
		AbortWithError(c, errors.New("password=secret"))
	}, nil)
	if w.Code != http.StatusInternalServerError || decodeError(t, w) != "Internal Server Error" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestOrderHandlerList(t *testing.T) {
	var gotStatuses []model.OrderStatus
	facade := &testhelpers.OperatorFacadeStub{
		OrdersFn: func(_ context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
			gotStatuses = statuses
			return []model.Order{{ID: "a", ExternalID: "FO-1", Status: model.OrderStatusFailed, GigType: model.GigTypeWriting}}, nil
		},
	}
	handler := NewOrderHandler(facade)

	w := performRequest(t, http.MethodGet, "/api/orders", "/api/orders?status=failed,new", handler.List, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(gotStatuses) != 2 || gotStatuses[0] != model.OrderStatusFailed || gotStatuses[1] != model.OrderStatusNew {
		t.Fatalf("unexpected filter %v", gotStatuses)
	}
	var orders []dto.OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 || orders[0].ExternalID != "FO-1" || orders[0].Status != "failed" {
		t.Fatalf("unexpected orders %+v", orders)
	}

	w = performRequest(t, http.MethodGet, "/api/orders", "/api/orders?status=bogus", handler.List, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}

	empty := NewOrderHandler(&testhelpers.OperatorFacadeStub{})
	w = performRequest(t, http.MethodGet, "/api/orders", "/api/orders", empty.List, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	failing := NewOrderHandler(&testhelpers.OperatorFacadeStub{
		OrdersFn: func(context.Context, ...model.OrderStatus) ([]model.Order, error) {
			return nil, errors.New("db down")
		},
	})
	w = performRequest(t, http.MethodGet, "/api/orders", "/api/orders", failing.List, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestOrderHandlerGet(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	facade := &testhelpers.OperatorFacadeStub{
		OrderFn: func(_ context.Context, ref string) (*model.Order, []model.Message, error) {
			if ref != "FO-12345" {
				return nil, nil, domainErrors.ErrNotFound
			}
			return &model.Order{ID: "a", ExternalID: ref, Status: model.OrderStatusDelivered},
				[]model.Message{{Direction: model.MessageDirectionSent, Content: "done", Timestamp: at}}, nil
		},
	}
	handler := NewOrderHandler(facade)

	w := performRequest(t, http.MethodGet, "/api/orders/:ref", "/api/orders/FO-12345", handler.Get, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var detail dto.OrderDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.ExternalID != "FO-12345" || len(detail.Messages) != 1 || detail.Messages[0].Content != "done" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	w = performRequest(t, http.MethodGet, "/api/orders/:ref", "/api/orders/FO-0", handler.Get, nil)
	if w.Code != http.StatusNotFound || decodeError(t, w) != "not found" {
		t.Fatalf("expected 404, got %d %s", w.Code, w.Body.String())
	}
}

func TestOrderHandlerActions(t *testing.T) {
	facade := &testhelpers.OperatorFacadeStub{}
	handler := NewOrderHandler(facade)

	tests := []struct {
		name    string
		route   string
		handler gin.HandlerFunc
		body    []byte
		want    string
	}{
		{"retry", "/api/orders/:ref/retry", handler.Retry, nil, "new"},
		{"cancel", "/api/orders/:ref/cancel", handler.Cancel, []byte(`{"reason":"buyer left"}`), "cancelled"},
		{"cancel without body", "/api/orders/:ref/cancel", handler.Cancel, nil, "cancelled"},
		{"complete", "/api/orders/:ref/complete", handler.Complete, nil, "completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/orders/o-1/" + tt.route[len("/api/orders/:ref/"):]
			w := performRequest(t, http.MethodPost, tt.route, target, tt.handler, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
			}
			var order dto.OrderResponse
			if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if order.ID != "o-1" || order.Status != tt.want {
				t.Fatalf("unexpected order %+v", order)
			}
		})
	}

	reasons := facade.CancelReasons()
	if len(reasons) != 2 || reasons[0] != "buyer left" || reasons[1] != "" {
		t.Fatalf("unexpected cancel reasons %q", reasons)
	}
}

func TestOrderHandlerActionErrors(t *testing.T) {
	facade := &testhelpers.OperatorFacadeStub{
		CompleteFn: func(context.Context, string) (*model.Order, error) {
			return nil, fmt.Errorf("%w: new -> completed", domainErrors.ErrInvalidTransition)
		},
	}
	handler := NewOrderHandler(facade)

	w := performRequest(t, http.MethodPost, "/api/orders/:ref/complete", "/api/orders/o-1/complete", handler.Complete, nil)
	if w.Code != http.StatusConflict || decodeError(t, w) != "invalid transition: new -> completed" {
		t.Fatalf("expected 409, got %d %s", w.Code, w.Body.String())
	}

	w = performRequest(t, http.MethodPost, "/api/orders/:ref/cancel", "/api/orders/o-1/cancel", handler.Cancel, []byte(`{"reason":`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
	if len(facade.CancelReasons()) != 0 {
		t.Fatal("malformed body must not cancel the order")
	}
}

func TestHealthHandler(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	facade := &testhelpers.OperatorFacadeStub{
		ReportFn: func(context.Context) (*model.StatusReport, error) {
			return &model.StatusReport{
				CycleCount:      3,
				DailyAPICostUSD: 0.018,
				OrdersByStatus:  map[model.OrderStatus]int{model.OrderStatusReview: 1},
				StartedAt:       started,
				GeneratedAt:     started.Add(time.Minute),
			}, nil
		},
	}
	handler := NewHealthHandler(facade)

	w := performRequest(t, http.MethodGet, "/health", "/health", handler.Health, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var health dto.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.UptimeSeconds != 60 || health.CycleCount != 3 || health.Orders["review"] != 1 {
		t.Fatalf("unexpected health %+v", health)
	}

	degraded := NewHealthHandler(&testhelpers.OperatorFacadeStub{
		ReportFn: func(context.Context) (*model.StatusReport, error) { return nil, errors.New("db down") },
	})
	w = performRequest(t, http.MethodGet, "/health", "/health", degraded.Health, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil || health.Status != "degraded" {
		t.Fatalf("unexpected degraded body %s", w.Body.String())
	}

	w = performRequest(t, http.MethodGet, "/", "/", handler.Root, nil)
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/health" {
		t.Fatalf("expected redirect to /health, got %d %q", w.Code, w.Header().Get("Location"))
	}
}
