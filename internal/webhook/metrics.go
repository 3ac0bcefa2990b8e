package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kasa_webhook_deliveries_total",
		Help: "Statement deliveries accepted from the bank.",
	})
	rejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kasa_webhook_rejected_total",
		Help: "Deliveries rejected because the payload could not be parsed.",
	})
	publishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kasa_webhook_publish_failures_total",
		Help: "Deliveries that could not be queued for ingestion.",
	})
)
