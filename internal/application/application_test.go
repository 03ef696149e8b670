package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/obstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errKnown = errors.New("known")

func TestWrapRepository(t *testing.T) {
	t.Parallel()

	assert.NoError(t, application.WrapRepository(nil))
	assert.Same(t, errKnown, application.WrapRepository(errKnown, errKnown))

	err := application.WrapRepository(errors.New("disk full"), errKnown)
	assert.ErrorIs(t, err, application.ErrRepository)
	assert.NotErrorIs(t, err, errKnown)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	err := application.NewValidation("id is required")
	assert.ErrorIs(t, err, application.ErrValidation)
	assert.Contains(t, err.Error(), "id is required")
}

func TestInstruments_Run_RecordsOutcome(t *testing.T) {
	t.Parallel()

	rec := obstest.New()
	ins := application.NewInstruments(rec, "test-service")

	_, run := ins.Begin(context.Background(), "test.ok", "Ok")
	run.End(nil)

	_, run = ins.Begin(context.Background(), "test.fail", "Fail")
	run.End(errors.New("boom"))

	assert.Equal(t, 1.0, rec.Count(observability.MUsecaseRequests,
		observability.L(observability.LabelUseCase, "test.ok"),
		observability.L(observability.LabelOutcome, observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, rec.Count(observability.MUsecaseRequests,
		observability.L(observability.LabelUseCase, "test.fail"),
		observability.L(observability.LabelOutcome, observability.OutcomeError)))
	assert.Equal(t, 1, rec.Observations(observability.MUsecaseDuration,
		observability.L(observability.LabelUseCase, "test.fail")))

	entry, ok := rec.Find("use_case_done")
	require.True(t, ok)
	assert.Equal(t, "test-service", entry.Fields["service"])
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, domoutbox.Event) error {
	return errors.New("queue full")
}

type pingEvent struct{}

func (pingEvent) EventName() string { return "test.ping" }

func TestInstruments_Publish_LogsFailure(t *testing.T) {
	t.Parallel()

	rec := obstest.New()
	ins := application.NewInstruments(rec, "test-service")

	err := ins.Publish(context.Background(), failingPublisher{}, pingEvent{})
	require.Error(t, err)
	assert.True(t, rec.Logged("event_publish_failed"))
	assert.Equal(t, 1.0, rec.Count(observability.MExternalRequests,
		observability.L(observability.LabelPeer, "outbox"),
		observability.L(observability.LabelEndpoint, "test.ping"),
		observability.L(observability.LabelOutcome, observability.OutcomeError)))

	assert.NoError(t, ins.Publish(context.Background(), nil, pingEvent{}))
}
