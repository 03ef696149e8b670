package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"
	useCaseAdjust    = "inventory.adjust"
	useCaseApply     = "inventory.apply"
)

var (
	ErrNotFound          = domain.ErrNotFound
	ErrInsufficientStock = domain.ErrInsufficientStock
)

// Ledger is the only writer of product stock. Every change goes through the
// repository's atomic Adjust, so concurrent debits can never overdraw.
type Ledger struct {
	repo        domain.Repository
	ins         application.Instruments
	adjustments observability.Counter // stock_adjustments_total{outcome}
}

func NewLedger(repo domain.Repository, tel observability.Observability) *Ledger {
	metrics := observability.NopMetrics()
	if tel != nil {
		metrics = tel.Metrics()
	}
	return &Ledger{
		repo:        repo,
		ins:         application.NewInstruments(tel, inventoryService),
		adjustments: metrics.Counter(observability.MStockAdjustments),
	}
}

// Get reads a product. The stock it reports may be stale by the time the
// caller acts on it.
func (l *Ledger) Get(ctx context.Context, productID string) (*domain.Product, error) {
	if productID == "" {
		return nil, application.NewValidation("product id is required")
	}
	p, err := l.repo.Get(ctx, productID)
	if err != nil {
		return nil, application.WrapRepository(err, domain.ErrNotFound)
	}
	return p, nil
}

// HasStock reports whether quantity is available right now. It is a
// precheck only; Adjust is what enforces the invariant.
func (l *Ledger) HasStock(ctx context.Context, productID string, quantity int) (bool, error) {
	p, err := l.Get(ctx, productID)
	if err != nil {
		return false, err
	}
	return p.Covers(quantity), nil
}

// Adjust applies a single signed delta and returns the resulting stock.
func (l *Ledger) Adjust(ctx context.Context, productID string, delta int) (_ int, err error) {
	ctx, run := l.ins.Begin(ctx, useCaseAdjust, "AdjustStock",
		attribute.String("product.id", productID),
		attribute.Int("stock.delta", delta),
	)
	defer func() { run.End(err) }()

	if productID == "" {
		run.Fail("PRODUCT_ID_REQUIRED")
		return 0, application.NewValidation("product id is required")
	}
	if delta == 0 {
		run.Fail("DELTA_ZERO")
		return 0, application.NewValidation("delta must not be zero")
	}

	stock, err := l.repo.Adjust(ctx, productID, delta)
	l.count(err)
	if err != nil {
		run.Fail(failureStatus(err))
		return 0, application.WrapRepository(err, domain.ErrNotFound, domain.ErrInsufficientStock)
	}
	run.With(observability.F("stock", stock))
	return stock, nil
}

// Apply applies every adjustment or none of them. Stores implementing
// BatchAdjuster do it in one transaction; otherwise the adjustments go one by
// one and the ones already applied are reversed when a later one fails.
func (l *Ledger) Apply(ctx context.Context, adjs []domain.Adjustment) (err error) {
	ctx, run := l.ins.Begin(ctx, useCaseApply, "ApplyStock",
		attribute.Int("stock.adjustments", len(adjs)),
	)
	defer func() { run.End(err) }()

	for _, a := range adjs {
		if a.ProductID == "" || a.Delta == 0 {
			run.Fail("ADJUSTMENT_INVALID")
			return application.NewValidation("every adjustment needs a product id and a non-zero delta")
		}
	}
	if len(adjs) == 0 {
		return nil
	}

	if batch, ok := l.repo.(domain.BatchAdjuster); ok {
		err = batch.AdjustAll(ctx, adjs)
		l.count(err)
		if err != nil {
			run.Fail(failureStatus(err))
			return application.WrapRepository(err, domain.ErrNotFound, domain.ErrInsufficientStock)
		}
		run.Status("BATCH")
		return nil
	}

	applied := make([]domain.Adjustment, 0, len(adjs))
	for _, a := range adjs {
		if _, aerr := l.repo.Adjust(ctx, a.ProductID, a.Delta); aerr != nil {
			l.count(aerr)
			run.Fail(failureStatus(aerr))
			if cerr := l.compensate(ctx, applied); cerr != nil {
				run.Fail("COMPENSATION_FAILED")
				return errors.Join(
					application.WrapRepository(aerr, domain.ErrNotFound, domain.ErrInsufficientStock),
					cerr,
				)
			}
			return application.WrapRepository(aerr, domain.ErrNotFound, domain.ErrInsufficientStock)
		}
		l.count(nil)
		applied = append(applied, a)
	}
	return nil
}

// compensate reverses applied. It keeps going past failures so as much stock
// as possible is restored, and reports what it could not undo.
func (l *Ledger) compensate(ctx context.Context, applied []domain.Adjustment) error {
	if len(applied) == 0 {
		return nil
	}
	// Undo even when the caller's context is already done.
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, inv := range domain.Inverse(applied) {
		if _, err := l.repo.Adjust(ctx, inv.ProductID, inv.Delta); err != nil {
			l.ins.Logger(ctx).Error("stock_compensation_failed",
				observability.F("product_id", inv.ProductID),
				observability.F("delta", inv.Delta),
				observability.F("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("compensate %s by %d: %w", inv.ProductID, inv.Delta, err))
		}
	}
	return errors.Join(errs...)
}

func (l *Ledger) count(err error) {
	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = failureReason(err)
	}
	l.adjustments.Add(1, observability.L(observability.LabelOutcome, outcome))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return domain.FailureReasonInsufficientStock
	case errors.Is(err, domain.ErrNotFound):
		return domain.FailureReasonNotFound
	default:
		return domain.FailureReasonPersistenceError
	}
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, application.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrNotFound):
		return "PRODUCT_NOT_FOUND"
	default:
		return "REPO_ADJUST_FAILED"
	}
}
