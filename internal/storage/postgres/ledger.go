package postgres

import (
	"context"
	"time"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// --- MessageRepository implementation ---

func (r *messageRepository) Create(ctx context.Context, msg model.Message) (*model.Message, error) {
	const query = `INSERT INTO messages (order_id, direction, content, timestamp) VALUES ($1, $2, $3, $4) RETURNING id`
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if err := r.storage.pool.QueryRow(ctx, query, msg.OrderID, msg.Direction, msg.Content, msg.Timestamp).Scan(&msg.ID); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByOrder(ctx context.Context, orderID string) ([]model.Message, error) {
	const query = `SELECT id, order_id, direction, content, timestamp
                   FROM messages WHERE order_id=$1 ORDER BY timestamp`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Direction, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- CostRepository implementation ---

func (r *costRepository) Create(ctx context.Context, cost model.APICost) (*model.APICost, error) {
	const query = `INSERT INTO api_costs (model, input_tokens, output_tokens, cost_usd, purpose, timestamp)
                   VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if cost.Timestamp.IsZero() {
		cost.Timestamp = time.Now().UTC()
	}
	err := r.storage.pool.QueryRow(ctx, query, cost.Model, cost.InputTokens, cost.OutputTokens, cost.CostUSD, cost.Purpose, cost.Timestamp).
		Scan(&cost.ID)
	if err != nil {
		return nil, err
	}
	return &cost, nil
}

// SumBetween totals costs with from <= timestamp < to.
func (r *costRepository) SumBetween(ctx context.Context, from, to time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(cost_usd), 0) FROM api_costs WHERE timestamp >= $1 AND timestamp < $2`
	var total float64
	if err := r.storage.pool.QueryRow(ctx, query, from, to).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
