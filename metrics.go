package apnsgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricNotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apnsgate",
		Name:      "notifications_sent_total",
		Help:      "Notifications handed to the gateway transport.",
	})
	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apnsgate",
		Name:      "gateway_reconnects_total",
		Help:      "Gateway connections lost and scheduled for reconnect.",
	})
	metricDisconnectionEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apnsgate",
		Name:      "disconnection_events_total",
		Help:      "Error frames received from the gateway.",
	})
	metricFeedbackTuples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "apnsgate",
		Name:      "feedback_tuples_total",
		Help:      "Feedback tuples drained from the feedback service.",
	})
)
