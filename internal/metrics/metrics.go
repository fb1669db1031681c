package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "transactions_total", Help: "Wallet transactions by final outcome"},
		[]string{"outcome"},
	)
	StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "flow_steps_total", Help: "Orchestrated flow steps by outcome"},
		[]string{"flow", "step", "outcome"},
	)
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quotes_total", Help: "Swap quotes requested by strategy and outcome"},
		[]string{"strategy", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(TransactionsTotal, StepsTotal, QuotesTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
