package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MStockAdjustments        MetricKey = "stock_adjustments_total"
	MWebhookEvents           MetricKey = "webhook_events_total"
)

// Label keys shared by the instruments above.
const (
	LabelUseCase  = "use_case"
	LabelOutcome  = "outcome"
	LabelPeer     = "peer"
	LabelEndpoint = "endpoint"
	LabelMethod   = "method"
	LabelRoute    = "route"
	LabelStatus   = "status"
	LabelEvent    = "event"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
