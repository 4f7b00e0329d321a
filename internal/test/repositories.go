package test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

// OrderRepositoryStub keeps orders in memory and lets tests override single calls.
type OrderRepositoryStub struct {
	CreateFn         func(context.Context, model.ObservedOrder) (*model.Order, bool, error)
	GetFn            func(context.Context, string) (*model.Order, error)
	ListByStatusFn   func(context.Context, ...model.OrderStatus) ([]model.Order, error)
	UpdateAnalysisFn func(context.Context, string, model.GigType, []string) error
	TransitionFn     func(context.Context, string, repository.TransitionFunc) (*model.Order, error)
	CountByStatusFn  func(context.Context) (map[model.OrderStatus]int, error)

	mu     sync.Mutex
	orders map[string]*model.Order
	order  []string
	next   int
}

// NewOrderRepositoryStub returns an empty in-memory repository.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{orders: make(map[string]*model.Order)}
}

// Put stores order as is, assigning an id when missing.
func (s *OrderRepositoryStub) Put(order model.Order) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	if order.ID == "" {
		s.next++
		order.ID = fmt.Sprintf("order-%d", s.next)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Date(2025, 1, 1, 0, 0, len(s.order), 0, time.UTC)
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	if _, exists := s.orders[order.ID]; !exists {
		s.order = append(s.order, order.ID)
	}
	stored := cloneOrder(order)
	s.orders[order.ID] = &stored
	return &order
}

// Snapshot returns a copy of the stored order or nil.
func (s *OrderRepositoryStub) Snapshot(ref string) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookup(ref)
	if o == nil {
		return nil
	}
	c := cloneOrder(*o)
	return &c
}

func (s *OrderRepositoryStub) ensure() {
	if s.orders == nil {
		s.orders = make(map[string]*model.Order)
	}
}

func (s *OrderRepositoryStub) lookup(ref string) *model.Order {
	if o, ok := s.orders[ref]; ok {
		return o
	}
	for _, id := range s.order {
		if s.orders[id].ExternalID == ref {
			return s.orders[id]
		}
	}
	return nil
}

func cloneOrder(o model.Order) model.Order {
	o.Requirements = append([]string{}, o.Requirements...)
	o.DeliverablePaths = append([]string{}, o.DeliverablePaths...)
	if o.DeliveredAt != nil {
		at := *o.DeliveredAt
		o.DeliveredAt = &at
	}
	return o
}

// Create registers observed order once per external id.
func (s *OrderRepositoryStub) Create(ctx context.Context, observed model.ObservedOrder) (*model.Order, bool, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, observed)
	}
	s.mu.Lock()
	if existing := s.lookup(observed.ExternalID); existing != nil {
		c := cloneOrder(*existing)
		s.mu.Unlock()
		return &c, false, nil
	}
	s.mu.Unlock()
	order := s.Put(model.Order{
		ExternalID:       observed.ExternalID,
		Status:           model.OrderStatusNew,
		BuyerUsername:    observed.BuyerUsername,
		Price:            observed.Price,
		Requirements:     []string{},
		DeliverablePaths: []string{},
	})
	return order, true, nil
}

// Get resolves order by internal or external id.
func (s *OrderRepositoryStub) Get(ctx context.Context, ref string) (*model.Order, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, ref)
	}
	if o := s.Snapshot(ref); o != nil {
		return o, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ListByStatus returns matching orders in insertion order.
func (s *OrderRepositoryStub) ListByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	if s.ListByStatusFn != nil {
		return s.ListByStatusFn(ctx, statuses...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Order
	for _, id := range s.order {
		o := s.orders[id]
		for _, st := range statuses {
			if o.Status == st {
				result = append(result, cloneOrder(*o))
				break
			}
		}
	}
	return result, nil
}

// UpdateAnalysis stores classification results.
func (s *OrderRepositoryStub) UpdateAnalysis(ctx context.Context, ref string, gigType model.GigType, requirements []string) error {
	if s.UpdateAnalysisFn != nil {
		return s.UpdateAnalysisFn(ctx, ref, gigType, requirements)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookup(ref)
	if o == nil {
		return domainErrors.ErrNotFound
	}
	o.GigType = gigType
	o.Requirements = append([]string{}, requirements...)
	return nil
}

// Transition applies fn under the repository lock.
func (s *OrderRepositoryStub) Transition(ctx context.Context, ref string, fn repository.TransitionFunc) (*model.Order, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, ref, fn)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookup(ref)
	if o == nil {
		return nil, domainErrors.ErrNotFound
	}
	next, err := fn(cloneOrder(*o))
	if err != nil {
		return nil, err
	}
	stored := cloneOrder(next)
	s.orders[o.ID] = &stored
	return &next, nil
}

// CountByStatus aggregates stored orders.
func (s *OrderRepositoryStub) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	if s.CountByStatusFn != nil {
		return s.CountByStatusFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[model.OrderStatus]int)
	for _, o := range s.orders {
		counts[o.Status]++
	}
	return counts, nil
}

// MessageRepositoryStub records messages in memory.
type MessageRepositoryStub struct {
	CreateFn func(context.Context, model.Message) (*model.Message, error)
	Err      error

	mu       sync.Mutex
	Messages []model.Message
}

// Create appends message unless Err is set.
func (s *MessageRepositoryStub) Create(ctx context.Context, msg model.Message) (*model.Message, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, msg)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = int64(len(s.Messages) + 1)
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	s.Messages = append(s.Messages, msg)
	return &msg, nil
}

// ListByOrder returns recorded messages for order.
func (s *MessageRepositoryStub) ListByOrder(ctx context.Context, orderID string) ([]model.Message, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Message
	for _, m := range s.Messages {
		if m.OrderID == orderID {
			result = append(result, m)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// Recorded returns a copy of all messages.
func (s *MessageRepositoryStub) Recorded() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.Messages...)
}

// CostRepositoryStub records API costs in memory.
type CostRepositoryStub struct {
	CreateErr error
	SumErr    error

	mu    sync.Mutex
	Costs []model.APICost
}

// Create appends cost unless CreateErr is set.
func (s *CostRepositoryStub) Create(ctx context.Context, cost model.APICost) (*model.APICost, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cost.ID = int64(len(s.Costs) + 1)
	s.Costs = append(s.Costs, cost)
	return &cost, nil
}

// SumBetween totals costs with from <= timestamp < to.
func (s *CostRepositoryStub) SumBetween(ctx context.Context, from, to time.Time) (float64, error) {
	if s.SumErr != nil {
		return 0, s.SumErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, c := range s.Costs {
		if !c.Timestamp.Before(from) && c.Timestamp.Before(to) {
			total += c.CostUSD
		}
	}
	return total, nil
}

// Recorded returns a copy of all costs.
func (s *CostRepositoryStub) Recorded() []model.APICost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.APICost(nil), s.Costs...)
}

var (
	_ repository.OrderRepository   = (*OrderRepositoryStub)(nil)
	_ repository.MessageRepository = (*MessageRepositoryStub)(nil)
	_ repository.CostRepository    = (*CostRepositoryStub)(nil)
)
