package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the custom Prometheus series this server exposes
// alongside the standard Go/process collectors.
type metrics struct {
	QueriesTotal  *prometheus.CounterVec
	QueryErrors   *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markql_queries_total",
				Help: "Total number of /query requests by result kind",
			},
			[]string{"kind"},
		),
		QueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "markql_query_errors_total",
				Help: "Total number of /query requests that failed, by stage",
			},
			[]string{"stage"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "markql_query_duration_seconds",
				Help:    "Time to compile and execute a query, in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(m.QueriesTotal, m.QueryErrors, m.QueryDuration)
	return m
}
