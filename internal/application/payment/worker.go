package payment

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const notificationWorker = "notification_worker"

// NotificationWorker sends the customer confirmation for each payment that
// succeeds. It runs off the event bus, so a slow or failing mail server never
// holds up the webhook that recorded the payment.
type NotificationWorker struct {
	subscriber domoutbox.Subscriber
	orders     domorder.Repository
	directory  Directory
	notifier   Notifier

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewNotificationWorker(
	subscriber domoutbox.Subscriber,
	orders domorder.Repository,
	directory Directory,
	notifier Notifier,
	tel observability.Observability,
) *NotificationWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &NotificationWorker{
		subscriber:   subscriber,
		orders:       orders,
		directory:    directory,
		notifier:     notifier,
		log:          tel.Logger().With(observability.F("component", notificationWorker)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *NotificationWorker) Start() {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	w.subscriber.Subscribe(domain.EventSucceeded, w.handlePaymentSucceeded)
}

func (w *NotificationWorker) handlePaymentSucceeded(ctx context.Context, e domoutbox.Event) error {
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("event", e.EventName()),
	)

	evt, ok := e.(domain.PaymentSucceededEvent)
	if !ok {
		return nil
	}
	start := time.Now()
	outcome := observability.OutcomeSuccess
	defer func() {
		w.reqCounter.Add(1,
			observability.L(observability.LabelUseCase, notificationWorker),
			observability.L(observability.LabelOutcome, outcome),
		)
		w.durHistogram.Observe(time.Since(start).Seconds(),
			observability.L(observability.LabelUseCase, notificationWorker),
		)
	}()

	o, err := w.orders.Get(ctx, evt.OrderID)
	if err != nil {
		outcome = observability.OutcomeError
		logger.Warn("notification_order_lookup_failed",
			observability.F("order_id", evt.OrderID),
			observability.F("error", err.Error()),
		)
		return nil
	}

	recipient := ""
	if w.directory != nil {
		recipient, err = w.directory.EmailFor(ctx, o.UserID)
		if err != nil {
			outcome = observability.OutcomeError
			logger.Warn("notification_recipient_unknown",
				observability.F("order_id", o.ID),
				observability.F("user_id", o.UserID),
				observability.F("error", err.Error()),
			)
			return nil
		}
	}

	err = w.notifier.Notify(ctx, Notification{
		Recipient: recipient,
		OrderID:   o.ID,
		Amount:    evt.Amount,
		Currency:  evt.Currency,
	})
	if err != nil {
		outcome = observability.OutcomeError
		logger.Warn("notification_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
		return nil
	}

	logger.Info("notification_sent",
		observability.F("order_id", o.ID),
		observability.F("payment_id", evt.PaymentID),
	)
	return nil
}
