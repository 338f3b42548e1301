package kafka

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the producer and consumer collectors.
type Metrics struct {
	Published       *prometheus.CounterVec
	PublishErrors   *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	Received        *prometheus.CounterVec
	Processed       *prometheus.CounterVec
	Failed          *prometheus.CounterVec
	DeadLettered    *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests rely on.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	consumerLabels := []string{"topic", "consumer_group"}
	m := &Metrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Total number of Kafka messages published",
		}, []string{"topic"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Total number of Kafka publish errors",
		}, []string{"topic"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Duration of Kafka publish operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_received_total",
			Help: "Total number of Kafka messages fetched from the broker",
		}, consumerLabels),
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Total number of successfully processed Kafka messages",
		}, consumerLabels),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Total number of Kafka messages that failed all retries",
		}, consumerLabels),
		DeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_consumer_dlq_published_total",
			Help: "Total number of messages published to the dead-letter queue",
		}, consumerLabels),
		HandlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Duration of Kafka message processing in seconds",
			Buckets: prometheus.DefBuckets,
		}, consumerLabels),
	}
	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{
		m.Published, m.PublishErrors, m.PublishDuration,
		m.Received, m.Processed, m.Failed, m.DeadLettered, m.HandlerDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register kafka metrics: %w", err)
		}
	}
	return m, nil
}
