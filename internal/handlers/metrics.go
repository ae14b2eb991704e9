package handlers

import (
	"fmt"
	"net/http"

	"bookshelf/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsErrorLog routes exposition errors to the application log.
type metricsErrorLog struct{}

func (metricsErrorLog) Println(v ...interface{}) {
	logging.Error("Metrics exposition: %s", fmt.Sprint(v...))
}

// MetricsHandler serves the default registry: catalog run, item, cover and
// HTTP series plus the Go runtime collectors. A failing collector does not
// hide the others. Compression is left to the router middleware.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:           metricsErrorLog{},
			ErrorHandling:      promhttp.ContinueOnError,
			DisableCompression: true,
		}),
	)
}
