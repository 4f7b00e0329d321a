package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JamesxFarris/Sixxer/internal/adapter/marketplace"
	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
)

// Cycle error kinds reported to CycleObserver.
const (
	KindBudget      = "budget"
	KindRateLimited = "rate_limited"
	KindError       = "error"
)

const (
	revisionRequestedNote = "Revision requested"
	deliveryFailedNote    = "Marketplace delivery failed"
	fallbackGigTitle      = "writing"
)

// SessionManager keeps the marketplace session usable.
type SessionManager interface {
	EnsureSession(ctx context.Context) error
}

// OrderMonitor reports marketplace-side order changes.
type OrderMonitor interface {
	CheckForChangedOrders(ctx context.Context) ([]model.ObservedOrder, error)
	GetOrderDetails(ctx context.Context, externalID string) (*model.OrderDetails, error)
	DetectRevisionRequest(ctx context.Context, externalID string) (*model.RevisionRequest, error)
}

// OrderActions delivers finished work.
type OrderActions interface {
	Deliver(ctx context.Context, externalID, message string, filePaths []string) (bool, error)
}

// Inbox sends buyer messages.
type Inbox interface {
	SendMessage(ctx context.Context, externalID, text string) error
}

// Dispatcher runs the per-order pipelines.
type Dispatcher interface {
	ProcessNewOrder(ctx context.Context, ref, requirementsText, gigTitle string) (*model.DeliveryPayload, error)
	ProcessRevision(ctx context.Context, ref, feedback string) (*model.DeliveryPayload, error)
	GenerateAcknowledgment(ctx context.Context, ref string) (string, error)
	DeliveryMessage(ctx context.Context, order model.Order) (string, error)
}

// StateMachine moves orders between statuses.
type StateMachine interface {
	Transition(ctx context.Context, ref string, target model.OrderStatus, opts ...statemachine.Option) (*model.Order, error)
	OrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
}

// OrderRegistry registers observed marketplace orders.
type OrderRegistry interface {
	Create(ctx context.Context, observed model.ObservedOrder) (*model.Order, bool, error)
}

// MessageLog stores buyer conversation history.
type MessageLog interface {
	Create(ctx context.Context, msg model.Message) (*model.Message, error)
	ListByOrder(ctx context.Context, orderID string) ([]model.Message, error)
}

// CycleObserver is notified about every cycle.
type CycleObserver interface {
	CycleStarted()
	CycleFinished(duration time.Duration, kind string)
}

// Collaborators groups the external dependencies of Scheduler.
type Collaborators struct {
	Session    SessionManager
	Monitor    OrderMonitor
	Actions    OrderActions
	Inbox      Inbox
	Dispatcher Dispatcher
	Machine    StateMachine
	Orders     OrderRegistry
	Messages   MessageLog
	Observer   CycleObserver
}

// Config bounds the loop timing.
type Config struct {
	PollIntervalMin time.Duration
	PollIntervalMax time.Duration
	ErrorCooldown   time.Duration
	BudgetCooldown  time.Duration
}

// Scheduler is the polling loop that drives every order through its lifecycle.
// Cycles run sequentially and never overlap.
type Scheduler struct {
	c      Collaborators
	cfg    Config
	logger *slog.Logger

	running atomic.Bool
	cycles  atomic.Int64

	wake     chan struct{}
	wakeOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	sleep  func(ctx context.Context, d time.Duration)
	normal func() float64
	now    func() time.Time
}

// New constructs Scheduler in the running state.
func New(c Collaborators, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.PollIntervalMax < cfg.PollIntervalMin {
		cfg.PollIntervalMax = cfg.PollIntervalMin
	}
	s := &Scheduler{
		c:      c,
		cfg:    cfg,
		logger: logger,
		wake:   make(chan struct{}),
		normal: rand.NormFloat64,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.sleep = s.wait
	s.running.Store(true)
	return s
}

// CycleCount returns the number of cycles started so far.
func (s *Scheduler) CycleCount() int64 {
	return s.cycles.Load()
}

// Running reports whether the loop has not been asked to stop.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Start launches Run in the background. The loop outlives ctx; use Stop or
// Shutdown to end it.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done

	go func() {
		defer close(done)
		s.Run(runCtx)
	}()
}

// Stop asks the loop to exit after the current cycle and wakes it from the
// inter-cycle sleep. It does not wait.
func (s *Scheduler) Stop() {
	if s.running.Swap(false) {
		s.logger.Info("scheduler stop requested", slog.Int64("cycles", s.CycleCount()))
	}
	s.wakeOnce.Do(func() { close(s.wake) })
}

// Shutdown stops the loop and waits for it to exit. In-flight work is
// cancelled only when ctx expires first.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

	s.mu.Lock()
	done, cancel := s.done, s.cancel
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

// Run executes cycles until Stop is called or ctx is cancelled. Cycle errors
// are logged and followed by a cool-down; they never end the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		slog.Duration("poll_min", s.cfg.PollIntervalMin),
		slog.Duration("poll_max", s.cfg.PollIntervalMax))

	for s.running.Load() && ctx.Err() == nil {
		cycle := s.cycles.Add(1)
		if s.c.Observer != nil {
			s.c.Observer.CycleStarted()
		}
		started := time.Now()

		err := s.RunCycle(ctx)
		kind, delay := s.classify(err)

		if s.c.Observer != nil {
			s.c.Observer.CycleFinished(time.Since(started), kind)
		}

		switch kind {
		case "":
			s.logger.Info("scheduler cycle complete", slog.Int64("cycle", cycle), slog.Duration("sleep", delay))
		case KindBudget:
			s.logger.Warn("daily budget exceeded, pausing scheduler",
				slog.Int64("cycle", cycle),
				slog.Duration("sleep", delay),
				slog.String("error", err.Error()))
		case KindRateLimited:
			s.logger.Warn("marketplace rate limited", slog.Int64("cycle", cycle), slog.Duration("retry_after", delay))
		default:
			s.logger.Error("scheduler cycle failed",
				slog.Int64("cycle", cycle),
				slog.Duration("sleep", delay),
				slog.String("error", err.Error()))
		}

		s.sleep(ctx, delay)
	}

	s.logger.Info("scheduler stopped", slog.Int64("cycles", s.CycleCount()))
}

func (s *Scheduler) classify(err error) (string, time.Duration) {
	if err == nil {
		return "", s.pollInterval()
	}
	if errors.Is(err, domainErrors.ErrBudgetExceeded) {
		return KindBudget, s.cfg.BudgetCooldown
	}
	var limited marketplace.TooManyRequestsError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		return KindRateLimited, limited.RetryAfter
	}
	return KindError, s.cfg.ErrorCooldown
}

// pollInterval draws from a normal distribution centred between the bounds
// and clipped to them.
func (s *Scheduler) pollInterval() time.Duration {
	lo, hi := float64(s.cfg.PollIntervalMin), float64(s.cfg.PollIntervalMax)
	if hi <= lo {
		return s.cfg.PollIntervalMin
	}
	mean := (lo + hi) / 2
	sd := (hi - lo) / 4
	v := mean + s.normal()*sd
	v = max(lo, min(hi, v))
	return time.Duration(v)
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.wake:
	case <-ctx.Done():
	}
}

// RunCycle performs one pass over the marketplace and the order store:
// new orders, revision requests, interrupted revisions, ready deliveries and
// finally orders left in new by an earlier interrupted cycle. Only a session failure, a store read
// failure or budget exhaustion is returned; per-order failures are logged.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	if err := s.c.Session.EnsureSession(ctx); err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}

	observed, err := s.c.Monitor.CheckForChangedOrders(ctx)
	if err != nil {
		return fmt.Errorf("check for changed orders: %w", err)
	}

	handled := make(map[string]struct{}, len(observed))
	for _, o := range observed {
		if o.ExternalID == "" || !actionable(o.Status) {
			continue
		}
		order, created, err := s.c.Orders.Create(ctx, o)
		if err != nil {
			s.logger.Error("register order failed", slog.String("order", o.ExternalID), slog.String("error", err.Error()))
			continue
		}
		if created {
			s.logger.Info("new order detected", slog.String("order", o.ExternalID), slog.String("buyer", o.BuyerUsername))
		}
		if order.Status != model.OrderStatusNew {
			continue
		}
		handled[order.ID] = struct{}{}
		if err := s.handleNewOrder(ctx, *order, o.GigTypeHint); err != nil {
			return err
		}
	}

	if err := s.checkRevisions(ctx, handled); err != nil {
		return err
	}
	if err := s.resumeRevisions(ctx, handled); err != nil {
		return err
	}
	if err := s.deliverReady(ctx); err != nil {
		return err
	}
	return s.recoverNew(ctx, handled)
}

// actionable reports whether a marketplace status marks an order as newly placed.
func actionable(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "new", "active", "in progress", "":
		return true
	}
	return false
}

// handleNewOrder fetches the order page, acknowledges the buyer and runs the
// new-order pipeline. Only budget exhaustion is returned.
func (s *Scheduler) handleNewOrder(ctx context.Context, order model.Order, gigTitle string) error {
	ref := order.ExternalID
	s.logger.Info("handling new order", slog.String("order", ref))

	details, err := s.c.Monitor.GetOrderDetails(ctx, ref)
	if err != nil {
		s.logger.Error("get order details failed", slog.String("order", ref), slog.String("error", err.Error()))
		return nil
	}

	requirements := strings.TrimSpace(details.RequirementsText)
	if requirements == "" {
		hint := gigTitle
		if hint == "" {
			hint = "unknown"
		}
		s.logger.Warn("order has no requirements text", slog.String("order", ref))
		requirements = "Order for gig type: " + hint
	}

	if order.BuyerUsername != "" && !s.contacted(ctx, order) {
		ack, err := s.c.Dispatcher.GenerateAcknowledgment(ctx, order.ID)
		switch {
		case errors.Is(err, domainErrors.ErrBudgetExceeded):
			return err
		case err != nil:
			s.logger.Warn("draft acknowledgment failed", slog.String("order", ref), slog.String("error", err.Error()))
		default:
			s.send(ctx, order, ack)
		}
	}

	payload, err := s.c.Dispatcher.ProcessNewOrder(ctx, order.ID, requirements, gigTitle)
	if err != nil {
		if errors.Is(err, domainErrors.ErrBudgetExceeded) {
			return err
		}
		s.logger.Error("new order pipeline failed", slog.String("order", ref), slog.String("error", err.Error()))
		return nil
	}

	if len(payload.FilePaths) == 0 && payload.Message != "" {
		s.send(ctx, order, payload.Message)
	}
	return nil
}

func (s *Scheduler) checkRevisions(ctx context.Context, handled map[string]struct{}) error {
	delivered, err := s.c.Machine.OrdersByStatus(ctx, model.OrderStatusDelivered)
	if err != nil {
		return fmt.Errorf("list delivered orders: %w", err)
	}

	for _, order := range delivered {
		ref := order.ExternalID
		req, err := s.c.Monitor.DetectRevisionRequest(ctx, ref)
		if err != nil {
			s.logger.Warn("revision check failed", slog.String("order", ref), slog.String("error", err.Error()))
			continue
		}
		if req == nil {
			continue
		}

		s.logger.Info("revision requested", slog.String("order", ref), slog.String("feedback", preview(req.Feedback, 100)))
		if _, err := s.c.Machine.Transition(ctx, order.ID, model.OrderStatusRevisionRequested, statemachine.WithNotes(revisionRequestedNote)); err != nil {
			s.logger.Error("mark revision requested failed", slog.String("order", ref), slog.String("error", err.Error()))
			continue
		}
		s.record(ctx, order.ID, model.MessageDirectionReceived, req.Feedback)

		handled[order.ID] = struct{}{}
		if err := s.revise(ctx, order, req.Feedback); err != nil {
			return err
		}
	}
	return nil
}

// resumeRevisions picks up revisions interrupted by budget exhaustion or a
// crash: orders left in revision_requested and revised orders left in
// progress. The feedback is the latest received message.
func (s *Scheduler) resumeRevisions(ctx context.Context, handled map[string]struct{}) error {
	pending, err := s.c.Machine.OrdersByStatus(ctx, model.OrderStatusRevisionRequested, model.OrderStatusInProgress)
	if err != nil {
		return fmt.Errorf("list pending revisions: %w", err)
	}

	for _, order := range pending {
		if _, ok := handled[order.ID]; ok {
			continue
		}
		if order.Status == model.OrderStatusInProgress && order.RevisionCount == 0 {
			continue
		}
		ref := order.ExternalID
		feedback, ok := s.latestFeedback(ctx, order.ID)
		if !ok {
			s.logger.Warn("no stored feedback for pending revision", slog.String("order", ref))
			continue
		}
		s.logger.Info("resuming revision", slog.String("order", ref), slog.String("status", string(order.Status)))
		handled[order.ID] = struct{}{}
		if err := s.revise(ctx, order, feedback); err != nil {
			return err
		}
	}
	return nil
}

// revise runs the revision pipeline. Only budget exhaustion is returned.
func (s *Scheduler) revise(ctx context.Context, order model.Order, feedback string) error {
	ref := order.ExternalID
	payload, err := s.c.Dispatcher.ProcessRevision(ctx, order.ID, feedback)
	if err != nil {
		if errors.Is(err, domainErrors.ErrBudgetExceeded) {
			return err
		}
		s.logger.Error("revision pipeline failed", slog.String("order", ref), slog.String("error", err.Error()))
		return nil
	}
	s.logger.Info("revision processed", slog.String("order", ref), slog.Int("files", len(payload.FilePaths)))
	return nil
}

func (s *Scheduler) latestFeedback(ctx context.Context, orderID string) (string, bool) {
	if s.c.Messages == nil {
		return "", false
	}
	messages, err := s.c.Messages.ListByOrder(ctx, orderID)
	if err != nil {
		s.logger.Warn("load order messages failed", slog.String("order", orderID), slog.String("error", err.Error()))
		return "", false
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Direction == model.MessageDirectionReceived {
			return messages[i].Content, true
		}
	}
	return "", false
}

// contacted reports whether the buyer already got a message for order, so a
// re-queued or recovered order is not acknowledged twice.
func (s *Scheduler) contacted(ctx context.Context, order model.Order) bool {
	if s.c.Messages == nil {
		return false
	}
	messages, err := s.c.Messages.ListByOrder(ctx, order.ID)
	if err != nil {
		s.logger.Warn("load order messages failed", slog.String("order", order.ExternalID), slog.String("error", err.Error()))
		return false
	}
	for _, m := range messages {
		if m.Direction == model.MessageDirectionSent {
			return true
		}
	}
	return false
}

func (s *Scheduler) deliverReady(ctx context.Context) error {
	ready, err := s.c.Machine.OrdersByStatus(ctx, model.OrderStatusReview)
	if err != nil {
		return fmt.Errorf("list orders in review: %w", err)
	}

	for _, order := range ready {
		ref := order.ExternalID
		if len(order.DeliverablePaths) == 0 {
			s.logger.Warn("order in review has no deliverables", slog.String("order", ref))
			continue
		}

		msg, err := s.c.Dispatcher.DeliveryMessage(ctx, order)
		if err != nil {
			if errors.Is(err, domainErrors.ErrBudgetExceeded) {
				return err
			}
			s.logger.Error("draft delivery message failed", slog.String("order", ref), slog.String("error", err.Error()))
			continue
		}

		if _, err := s.c.Machine.Transition(ctx, order.ID, model.OrderStatusDelivering); err != nil {
			s.logger.Warn("transition to delivering failed", slog.String("order", ref), slog.String("error", err.Error()))
			continue
		}

		ok, err := s.c.Actions.Deliver(ctx, ref, msg, order.DeliverablePaths)
		if err != nil || !ok {
			attrs := []any{slog.String("order", ref)}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			s.logger.Error("delivery failed", attrs...)
			if _, terr := s.c.Machine.Transition(ctx, order.ID, model.OrderStatusFailed, statemachine.WithNotes(deliveryFailedNote)); terr != nil {
				s.logger.Error("mark delivery failed", slog.String("order", ref), slog.String("error", terr.Error()))
			}
			continue
		}

		if _, err := s.c.Machine.Transition(ctx, order.ID, model.OrderStatusDelivered); err != nil {
			s.logger.Error("transition to delivered failed", slog.String("order", ref), slog.String("error", err.Error()))
			continue
		}
		s.record(ctx, order.ID, model.MessageDirectionSent, msg)
		s.logger.Info("order delivered", slog.String("order", ref), slog.Int("files", len(order.DeliverablePaths)))
	}
	return nil
}

// recoverNew re-runs orders stuck in new, skipping those handled earlier in
// the same cycle.
func (s *Scheduler) recoverNew(ctx context.Context, handled map[string]struct{}) error {
	stuck, err := s.c.Machine.OrdersByStatus(ctx, model.OrderStatusNew)
	if err != nil {
		return fmt.Errorf("list new orders: %w", err)
	}

	for _, order := range stuck {
		if _, ok := handled[order.ID]; ok {
			continue
		}
		s.logger.Info("recovering order left in new", slog.String("order", order.ExternalID))
		gigTitle := string(order.GigType)
		if gigTitle == "" {
			gigTitle = fallbackGigTitle
		}
		if err := s.handleNewOrder(ctx, order, gigTitle); err != nil {
			return err
		}
	}
	return nil
}

// send delivers text to the buyer and logs it. Failures are logged only.
func (s *Scheduler) send(ctx context.Context, order model.Order, text string) {
	if err := s.c.Inbox.SendMessage(ctx, order.ExternalID, text); err != nil {
		s.logger.Warn("send buyer message failed", slog.String("order", order.ExternalID), slog.String("error", err.Error()))
		return
	}
	s.record(ctx, order.ID, model.MessageDirectionSent, text)
}

func (s *Scheduler) record(ctx context.Context, orderID string, direction model.MessageDirection, content string) {
	if s.c.Messages == nil {
		return
	}
	msg := model.Message{OrderID: orderID, Direction: direction, Content: content, Timestamp: s.now()}
	if _, err := s.c.Messages.Create(ctx, msg); err != nil {
		s.logger.Error("record message failed", slog.String("order", orderID), slog.String("error", err.Error()))
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
