package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
	"github.com/JamesxFarris/Sixxer/internal/tracing"
	"github.com/JamesxFarris/Sixxer/internal/workers"
)

// Pipeline stages reported in PipelineFailure.
const (
	StageBudget          = "budget"
	StageTransition      = "transition"
	StageLoad            = "load"
	StageAnalysis        = "analysis"
	StagePersistAnalysis = "persist_analysis"
	StageClarification   = "clarification"
	StageWorkerLookup    = "worker_lookup"
	StageWorker          = "worker"
	StageDeliveryMessage = "delivery_message"
	StageRevision        = "revision"
	StageRevisionMessage = "revision_message"
)

const (
	ackPlaceholder     = "As described in order"
	budgetPauseNote    = "Paused: daily API budget exceeded"
	budgetRequeueNote  = "Re-queued after budget pause"
	feedbackSummaryLen = 200
)

// PipelineFailure is the error arm of a pipeline run. The order's status and
// notes already reflect the failure when it is returned.
type PipelineFailure struct {
	OrderRef string
	Stage    string
	Err      error
}

func (e *PipelineFailure) Error() string {
	return fmt.Sprintf("order %s: %s stage failed: %v", e.OrderRef, e.Stage, e.Err)
}

func (e *PipelineFailure) Unwrap() error {
	return e.Err
}

// StateMachine moves orders between statuses.
type StateMachine interface {
	Transition(ctx context.Context, ref string, target model.OrderStatus, opts ...statemachine.Option) (*model.Order, error)
	Order(ctx context.Context, ref string) (*model.Order, error)
}

// AnalysisStore persists analysis results independently of status.
type AnalysisStore interface {
	UpdateAnalysis(ctx context.Context, ref string, gigType model.GigType, requirements []string) error
}

// Analyzer extracts structured requirements from order text.
type Analyzer interface {
	AnalyzeOrder(ctx context.Context, req model.AnalyzeRequest) (*model.Analysis, error)
}

// Communicator drafts buyer-facing messages.
type Communicator interface {
	Acknowledgment(ctx context.Context, buyer, summary, gigType string) (string, error)
	Clarification(ctx context.Context, buyer string, questions []string, gigType, requirements string) (string, error)
	DeliveryMessage(ctx context.Context, buyer, gigType, summary string, files []string) (string, error)
	RevisionResponse(ctx context.Context, buyer, changes string) (string, error)
}

// WorkerRegistry selects the worker for a gig type.
type WorkerRegistry interface {
	Lookup(gt model.GigType) (workers.Worker, bool)
}

// Reviser applies buyer feedback to an order's deliverables.
type Reviser interface {
	Revise(ctx context.Context, order model.Order, feedback string) ([]string, error)
}

// BudgetChecker reports ErrBudgetExceeded once the daily cap is reached.
type BudgetChecker interface {
	CheckBudget(ctx context.Context) error
}

// Dispatcher runs the per-order processing pipelines.
type Dispatcher struct {
	machine      StateMachine
	store        AnalysisStore
	analyzer     Analyzer
	communicator Communicator
	registry     WorkerRegistry
	reviser      Reviser
	budget       BudgetChecker
	logger       *slog.Logger
}

// New constructs Dispatcher. budget may be nil.
func New(machine StateMachine, store AnalysisStore, analyzer Analyzer, communicator Communicator,
	registry WorkerRegistry, reviser Reviser, budget BudgetChecker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		machine:      machine,
		store:        store,
		analyzer:     analyzer,
		communicator: communicator,
		registry:     registry,
		reviser:      reviser,
		budget:       budget,
		logger:       logger,
	}
}

// ProcessNewOrder analyzes a new order and either asks for clarification or
// produces its deliverables. A nil payload always comes with an error.
func (d *Dispatcher) ProcessNewOrder(ctx context.Context, ref, requirementsText, gigTitle string) (payload *model.DeliveryPayload, err error) {
	ctx, span := tracing.Start(ctx, "dispatcher.process_new_order", tracing.OrderAttr(ref))
	defer func() { tracing.End(span, err) }()

	d.logger.Info("processing new order", slog.String("order", ref))

	if err := d.checkBudget(ctx, ref); err != nil {
		return nil, err
	}

	if _, err := d.machine.Transition(ctx, ref, model.OrderStatusAnalyzing); err != nil {
		return nil, d.abort(ref, StageTransition, err)
	}

	order, err := d.machine.Order(ctx, ref)
	if err != nil {
		return nil, d.abort(ref, StageLoad, err)
	}

	analysis, err := traced(ctx, "dispatcher.analyze", ref, func(ctx context.Context) (*model.Analysis, error) {
		return d.analyzer.AnalyzeOrder(ctx, model.AnalyzeRequest{
			Text:          requirementsText,
			GigTitle:      gigTitle,
			Price:         order.Price,
			BuyerUsername: order.BuyerUsername,
		})
	})
	if err != nil {
		return nil, d.fail(ctx, ref, StageAnalysis, "Analysis failed", err)
	}

	if err := d.store.UpdateAnalysis(ctx, ref, analysis.GigType, analysis.Requirements); err != nil {
		return nil, d.fail(ctx, ref, StagePersistAnalysis, "Saving analysis failed", err)
	}

	buyer := buyerName(order)

	if analysis.NeedsClarification && len(analysis.ClarificationQuestions) > 0 {
		if _, err := d.machine.Transition(ctx, ref, model.OrderStatusClarifying); err != nil {
			return nil, d.fail(ctx, ref, StageTransition, "Transition to clarifying failed", err)
		}
		msg, err := traced(ctx, "dispatcher.clarification", ref, func(ctx context.Context) (string, error) {
			return d.communicator.Clarification(ctx, buyer, analysis.ClarificationQuestions, string(analysis.GigType), requirementsText)
		})
		if err != nil {
			return nil, d.fail(ctx, ref, StageClarification, "Clarification message failed", err)
		}
		d.logger.Info("order needs clarification",
			slog.String("order", ref),
			slog.Int("questions", len(analysis.ClarificationQuestions)))
		return &model.DeliveryPayload{Message: msg, FilePaths: []string{}}, nil
	}

	if _, err := d.machine.Transition(ctx, ref, model.OrderStatusInProgress); err != nil {
		return nil, d.fail(ctx, ref, StageTransition, "Transition to in progress failed", err)
	}

	order, err = d.machine.Order(ctx, ref)
	if err != nil {
		return nil, d.fail(ctx, ref, StageLoad, "Order lookup failed", err)
	}

	worker, ok := d.registry.Lookup(analysis.GigType)
	if !ok {
		note := fmt.Sprintf("No worker for gig type: %s", analysis.GigType)
		return nil, d.fail(ctx, ref, StageWorkerLookup, note, fmt.Errorf("%w: %s", domainErrors.ErrNoWorker, analysis.GigType))
	}

	paths, err := traced(ctx, "dispatcher.worker", ref, func(ctx context.Context) ([]string, error) {
		return worker.Process(ctx, *order)
	})
	if err != nil {
		return nil, d.fail(ctx, ref, StageWorker, "Worker execution failed", err)
	}

	if _, err := d.machine.Transition(ctx, ref, model.OrderStatusReview, statemachine.WithDeliverables(paths)); err != nil {
		return nil, d.fail(ctx, ref, StageTransition, "Transition to review failed", err)
	}

	summary := fmt.Sprintf("Completed %s order with %d file(s)", analysis.GigType, len(paths))
	msg, err := traced(ctx, "dispatcher.delivery_message", ref, func(ctx context.Context) (string, error) {
		return d.communicator.DeliveryMessage(ctx, buyer, string(analysis.GigType), summary, paths)
	})
	if err != nil {
		return nil, d.fail(ctx, ref, StageDeliveryMessage, "Delivery message failed", err)
	}

	d.logger.Info("order ready for delivery", slog.String("order", ref), slog.Int("files", len(paths)))
	return &model.DeliveryPayload{Message: msg, FilePaths: paths}, nil
}

// ProcessRevision re-runs the order's worker with buyer feedback. An order
// already in progress is a revision paused by the budget and resumes without
// a transition.
func (d *Dispatcher) ProcessRevision(ctx context.Context, ref, feedback string) (payload *model.DeliveryPayload, err error) {
	ctx, span := tracing.Start(ctx, "dispatcher.process_revision", tracing.OrderAttr(ref))
	defer func() { tracing.End(span, err) }()

	d.logger.Info("processing revision", slog.String("order", ref), slog.Int("feedback_length", len(feedback)))

	if err := d.checkBudget(ctx, ref); err != nil {
		return nil, err
	}

	order, err := d.machine.Order(ctx, ref)
	if err != nil {
		return nil, d.abort(ref, StageLoad, err)
	}
	if order.Status != model.OrderStatusInProgress {
		if order, err = d.machine.Transition(ctx, ref, model.OrderStatusInProgress); err != nil {
			return nil, d.abort(ref, StageTransition, err)
		}
	} else {
		d.logger.Info("resuming paused revision", slog.String("order", ref))
	}

	paths, err := traced(ctx, "dispatcher.revise", ref, func(ctx context.Context) ([]string, error) {
		return d.reviser.Revise(ctx, *order, feedback)
	})
	if err != nil {
		return nil, d.failRevision(ctx, ref, StageRevision, "Revision worker failed", err)
	}

	if _, err := d.machine.Transition(ctx, ref, model.OrderStatusReview, statemachine.WithDeliverables(paths)); err != nil {
		return nil, d.fail(ctx, ref, StageTransition, "Transition to review failed", err)
	}

	changes := "Applied revision based on feedback: " + truncateRunes(feedback, feedbackSummaryLen)
	msg, err := traced(ctx, "dispatcher.revision_message", ref, func(ctx context.Context) (string, error) {
		return d.communicator.RevisionResponse(ctx, buyerName(order), changes)
	})
	if err != nil {
		return nil, d.failRevision(ctx, ref, StageRevisionMessage, "Revision response failed", err)
	}

	d.logger.Info("revision ready", slog.String("order", ref), slog.Int("files", len(paths)))
	return &model.DeliveryPayload{Message: msg, FilePaths: paths}, nil
}

// GenerateAcknowledgment drafts the first message to the buyer of a stored order.
func (d *Dispatcher) GenerateAcknowledgment(ctx context.Context, ref string) (string, error) {
	order, err := d.machine.Order(ctx, ref)
	if err != nil {
		return "", err
	}
	summary := ackPlaceholder
	if len(order.Requirements) > 0 {
		summary = strings.Join(order.Requirements, "; ")
	}
	gigType := string(order.GigType)
	if gigType == "" {
		gigType = "general"
	}
	return d.communicator.Acknowledgment(ctx, buyerName(order), summary, gigType)
}

// DeliveryMessage drafts the message that accompanies an order's deliverables.
func (d *Dispatcher) DeliveryMessage(ctx context.Context, order model.Order) (string, error) {
	summary := fmt.Sprintf("Completed %s order", order.GigType)
	return d.communicator.DeliveryMessage(ctx, buyerName(&order), string(order.GigType), summary, order.DeliverablePaths)
}

func (d *Dispatcher) checkBudget(ctx context.Context, ref string) error {
	if d.budget == nil {
		return nil
	}
	if err := d.budget.CheckBudget(ctx); err != nil {
		d.logger.Warn("budget unavailable, order left untouched", slog.String("order", ref), slog.String("error", err.Error()))
		return &PipelineFailure{OrderRef: ref, Stage: StageBudget, Err: err}
	}
	return nil
}

// abort reports a failure that happened before the pipeline owned the order.
func (d *Dispatcher) abort(ref, stage string, err error) error {
	d.logger.Error("pipeline aborted",
		slog.String("order", ref),
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	return &PipelineFailure{OrderRef: ref, Stage: stage, Err: err}
}

// fail moves the order to FAILED with note. A budget failure in the new order
// pipeline is re-queued to NEW straight away so the order restarts cleanly
// once spend resets.
func (d *Dispatcher) fail(ctx context.Context, ref, stage, note string, err error) error {
	d.logger.Error("pipeline stage failed",
		slog.String("order", ref),
		slog.String("stage", stage),
		slog.String("error", err.Error()))

	if errors.Is(err, domainErrors.ErrBudgetExceeded) {
		note = budgetPauseNote
	}
	if _, terr := d.machine.Transition(ctx, ref, model.OrderStatusFailed, statemachine.WithNotes(note)); terr != nil {
		d.logger.Error("mark order failed", slog.String("order", ref), slog.String("error", terr.Error()))
	} else if errors.Is(err, domainErrors.ErrBudgetExceeded) {
		if _, terr := d.machine.Transition(ctx, ref, model.OrderStatusNew, statemachine.WithNotes(budgetRequeueNote)); terr != nil {
			d.logger.Error("requeue order", slog.String("order", ref), slog.String("error", terr.Error()))
		}
	}
	return &PipelineFailure{OrderRef: ref, Stage: stage, Err: err}
}

// failRevision leaves the order where it is on budget exhaustion: a revision
// in progress resumes with the stored feedback and one in review is delivered
// as is. Other errors go through fail.
func (d *Dispatcher) failRevision(ctx context.Context, ref, stage, note string, err error) error {
	if !errors.Is(err, domainErrors.ErrBudgetExceeded) {
		return d.fail(ctx, ref, stage, note, err)
	}
	d.logger.Warn("revision paused, daily API budget exceeded",
		slog.String("order", ref),
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	return &PipelineFailure{OrderRef: ref, Stage: stage, Err: err}
}

func traced[T any](ctx context.Context, name, ref string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.Start(ctx, name, tracing.OrderAttr(ref))
	v, err := fn(ctx)
	tracing.End(span, err)
	return v, err
}

func buyerName(order *model.Order) string {
	if order.BuyerUsername == "" {
		return "buyer"
	}
	return order.BuyerUsername
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
