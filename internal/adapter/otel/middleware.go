package otel

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware wraps handlers in a server span named after serviceName.
// Health probes and the long-lived WebSocket upgrade are not traced.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && r.URL.Path != "/ws"
			}),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + routeGroup(r.URL.Path)
			}),
		)
	}
}

// routeGroup collapses ids out of API paths to keep span names low-cardinality:
// /api/v1/runs/abc/step becomes /api/v1/runs/{id}/step.
func routeGroup(path string) string {
	const prefix = "/api/v1/"
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return path
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) >= 2 && parts[0] == "runs" && parts[1] != "import":
		parts[1] = "{id}"
	case len(parts) >= 2 && parts[0] == "profiles":
		parts[1] = "{id}"
	case len(parts) >= 3 && parts[0] == "prompts":
		parts[2] = "{id}"
	}
	return prefix + strings.Join(parts, "/")
}
