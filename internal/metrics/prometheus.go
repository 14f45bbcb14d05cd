package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PayloadsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wamsg_payloads_built_total",
			Help: "The total number of message payloads built, by variant",
		},
		[]string{"variant"},
	)

	BuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wamsg_build_errors_total",
			Help: "The total number of rejected intents and schema violations",
		},
		[]string{"type"},
	)

	ThumbnailDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wamsg_thumbnail_degraded_total",
		Help: "The total number of product list headers sent without a thumbnail",
	})

	ThumbnailDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wamsg_thumbnail_duration_seconds",
		Help:    "The duration of thumbnail generation in seconds",
		Buckets: prometheus.DefBuckets,
	})

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wamsg_messages_sent_total",
			Help: "The total number of messages handed to the transport",
		},
		[]string{"transport", "status"},
	)

	SelectionsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wamsg_selections_received_total",
			Help: "The total number of replies to interactive messages",
		},
		[]string{"kind"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wamsg_http_request_duration_seconds",
			Help:    "The duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
