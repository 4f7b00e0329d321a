package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

const orderColumns = `id, external_id, gig_type, status, requirements, buyer_username, price,
                      created_at, updated_at, delivered_at, deliverable_paths, revision_count, notes`

var newOrderID = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o            model.Order
		requirements []byte
		paths        []byte
	)
	err := row.Scan(&o.ID, &o.ExternalID, &o.GigType, &o.Status, &requirements, &o.BuyerUsername, &o.Price,
		&o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt, &paths, &o.RevisionCount, &o.Notes)
	if err != nil {
		return nil, err
	}
	if o.Requirements, err = decodeList(requirements); err != nil {
		return nil, err
	}
	if o.DeliverablePaths, err = decodeList(paths); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, observed model.ObservedOrder) (*model.Order, bool, error) {
	const query = `INSERT INTO orders (id, external_id, gig_type, status, buyer_username, price)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   ON CONFLICT (external_id) DO NOTHING
                   RETURNING created_at, updated_at`
	order := model.Order{
		ID:               newOrderID(),
		ExternalID:       observed.ExternalID,
		GigType:          model.GigTypeUnknown,
		Status:           model.OrderStatusNew,
		Requirements:     []string{},
		BuyerUsername:    observed.BuyerUsername,
		Price:            observed.Price,
		DeliverablePaths: []string{},
	}
	err := r.storage.pool.QueryRow(ctx, query, order.ID, order.ExternalID, order.GigType, order.Status, order.BuyerUsername, order.Price).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := r.Get(ctx, observed.ExternalID)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return &order, true, nil
}

func (r *orderRepository) Get(ctx context.Context, ref string) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1 OR external_id=$1 LIMIT 1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, ref))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE status = ANY($1) ORDER BY created_at`
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	rows, err := r.storage.pool.Query(ctx, query, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) UpdateAnalysis(ctx context.Context, ref string, gigType model.GigType, requirements []string) error {
	const query = `UPDATE orders SET gig_type=$1, requirements=$2, updated_at=NOW() WHERE id=$3 OR external_id=$3`
	encoded, err := encodeList(requirements)
	if err != nil {
		return err
	}
	tag, err := r.storage.pool.Exec(ctx, query, gigType, encoded, ref)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// Transition locks the order row, lets fn decide the next state and persists it
// in the same transaction.
func (r *orderRepository) Transition(ctx context.Context, ref string, fn repository.TransitionFunc) (*model.Order, error) {
	const selectQuery = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1 OR external_id=$1 LIMIT 1 FOR UPDATE`
	const updateQuery = `UPDATE orders
                         SET status=$1, updated_at=$2, delivered_at=$3, deliverable_paths=$4, revision_count=$5, notes=$6
                         WHERE id=$7`

	var updated *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		current, err := scanOrder(tx.QueryRow(ctx, selectQuery, ref))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return err
		}

		next, err := fn(*current)
		if err != nil {
			return err
		}

		paths, err := encodeList(next.DeliverablePaths)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, updateQuery, next.Status, next.UpdatedAt, next.DeliveredAt, paths, next.RevisionCount, next.Notes, current.ID); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM orders GROUP BY status`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.OrderStatus]int)
	for rows.Next() {
		var (
			status model.OrderStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
