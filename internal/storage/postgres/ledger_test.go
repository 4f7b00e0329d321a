package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmockv3 "github.com/pashagolub/pgxmock/v3"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

func TestMessageRepositoryCreate(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &messageRepository{storage: storage}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("abc123", model.MessageDirectionSent, "Thanks for your order!", at).
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(7)))
	msg, err := repo.Create(context.Background(), model.Message{
		OrderID:   "abc123",
		Direction: model.MessageDirectionSent,
		Content:   "Thanks for your order!",
		Timestamp: at,
	})
	if err != nil || msg.ID != 7 {
		t.Fatalf("unexpected result: %+v err=%v", msg, err)
	}

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("abc123", model.MessageDirectionReceived, "please fix", pgxmockv3.AnyArg()).
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(8)))
	msg, err = repo.Create(context.Background(), model.Message{OrderID: "abc123", Direction: model.MessageDirectionReceived, Content: "please fix"})
	if err != nil || msg.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be filled: %+v err=%v", msg, err)
	}

	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("abc123", model.MessageDirectionSent, "x", at).
		WillReturnError(errors.New("insert"))
	if _, err := repo.Create(context.Background(), model.Message{OrderID: "abc123", Direction: model.MessageDirectionSent, Content: "x", Timestamp: at}); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestMessageRepositoryListByOrder(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &messageRepository{storage: storage}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM messages WHERE order_id=").
		WithArgs("abc123").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "order_id", "direction", "content", "timestamp"}).
			AddRow(int64(1), "abc123", model.MessageDirectionSent, "hello", at).
			AddRow(int64(2), "abc123", model.MessageDirectionReceived, "hi", at.Add(time.Minute)))
	messages, err := repo.ListByOrder(context.Background(), "abc123")
	if err != nil || len(messages) != 2 || messages[1].Direction != model.MessageDirectionReceived {
		t.Fatalf("unexpected messages: %+v err=%v", messages, err)
	}

	mock.ExpectQuery("FROM messages WHERE order_id=").WithArgs("err").WillReturnError(errors.New("query"))
	if _, err := repo.ListByOrder(context.Background(), "err"); err == nil {
		t.Fatal("expected error")
	}

	mock.ExpectQuery("FROM messages WHERE order_id=").
		WithArgs("bad").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "order_id", "direction", "content", "timestamp"}).
			AddRow("one", "bad", model.MessageDirectionSent, "hello", at))
	if _, err := repo.ListByOrder(context.Background(), "bad"); err == nil {
		t.Fatal("expected scan error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestMessageRepositoryListByOrderRowsError(t *testing.T) {
	storage := &Storage{pool: &rowsErrorPool{rows: &errorRows{err: errors.New("rows err")}}}
	repo := &messageRepository{storage: storage}

	if _, err := repo.ListByOrder(context.Background(), "abc123"); err == nil || err.Error() != "rows err" {
		t.Fatalf("expected rows err, got %v", err)
	}
}

func TestCostRepositoryCreate(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &costRepository{storage: storage}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO api_costs").
		WithArgs("claude-sonnet-4-5-20250929", 200, 100, 0.0021, "analysis", at).
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(3)))
	cost, err := repo.Create(context.Background(), model.APICost{
		Model:        "claude-sonnet-4-5-20250929",
		InputTokens:  200,
		OutputTokens: 100,
		CostUSD:      0.0021,
		Purpose:      "analysis",
		Timestamp:    at,
	})
	if err != nil || cost.ID != 3 {
		t.Fatalf("unexpected result: %+v err=%v", cost, err)
	}

	mock.ExpectQuery("INSERT INTO api_costs").
		WithArgs("m", 1, 1, 0.5, "", pgxmockv3.AnyArg()).
		WillReturnError(errors.New("insert"))
	if _, err := repo.Create(context.Background(), model.APICost{Model: "m", InputTokens: 1, OutputTokens: 1, CostUSD: 0.5}); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestCostRepositorySumBetween(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &costRepository{storage: storage}

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(cost_usd\), 0\) FROM api_costs`).
		WithArgs(from, to).
		WillReturnRows(pgxmockv3.NewRows([]string{"sum"}).AddRow(1.25))
	total, err := repo.SumBetween(context.Background(), from, to)
	if err != nil || total != 1.25 {
		t.Fatalf("unexpected total: %v err=%v", total, err)
	}

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(cost_usd\), 0\) FROM api_costs`).
		WithArgs(from, to).
		WillReturnError(errors.New("sum"))
	if _, err := repo.SumBetween(context.Background(), from, to); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
