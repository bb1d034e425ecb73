package observability

// Metric keys shared by the application and the prometheus registry, with a
// fixed label set per key.
const (
	// {use_case,outcome} and {use_case}
	MUsecaseRequests MetricKey = "usecase_requests_total"
	MUsecaseDuration MetricKey = "usecase_duration_seconds"

	// {method,route,status}
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"

	// {peer,endpoint,outcome} and {peer,endpoint}; peers are the payment
	// gateway, the event bus and kafka.
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"

	// {event}
	MEventPublishFailures MetricKey = "order_event_publish_failed_total"
)
