package cli

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotus/gotus/pkg/handler"
	"github.com/gotus/gotus/pkg/prometheuscollector"
)

var MetricsOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "gotus_connections_open",
	Help: "Current number of open connections.",
})

func SetupMetrics(h *handler.Handler) {
	prometheus.MustRegister(MetricsOpenConnections)
	prometheus.MustRegister(prometheuscollector.New(h.Metrics))

	stdout.Printf("Using %s as the metrics path.\n", Flags.MetricsPath)
	http.Handle(Flags.MetricsPath, promhttp.Handler())
}
