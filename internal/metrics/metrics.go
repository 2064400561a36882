// Package metrics объявляет метрики Prometheus сервиса историй.
package metrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "storybook"

var (
	// AIRequestsTotal - запросы к текстовой модели по провайдеру, модели и статусу.
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Total number of requests to the text generation API.",
		},
		[]string{"provider", "model", "status"},
	)
	AIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Histogram of text generation request durations.",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		},
		[]string{"provider", "model"},
	)
	// AITokens - токены запроса и ответа. kind: prompt, completion, estimated_prompt.
	AITokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_tokens",
			Help:      "Histogram of token counts per request.",
			Buckets:   prometheus.LinearBuckets(100, 200, 15),
		},
		[]string{"provider", "model", "kind"},
	)

	ImageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_requests_total",
			Help:      "Total number of illustration requests.",
		},
		[]string{"provider", "status"},
	)

	// StoriesGeneratedTotal - готовые истории по происхождению (mock, ai, fallback).
	StoriesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_generated_total",
			Help:      "Total number of stories produced by the generation pipeline.",
		},
		[]string{"origin"},
	)
	// FallbacksTotal - переходы на упрощенную историю по причине.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_fallbacks_total",
			Help:      "Total number of degraded stories, partitioned by reason.",
		},
		[]string{"reason"},
	)
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Histogram of full story generation durations.",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 90, 120},
		},
	)

	// PersistenceOpsTotal - операции с хранилищем библиотеки по драйверу, операции и статусу.
	PersistenceOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "library_persistence_ops_total",
			Help:      "Total number of library load/save operations.",
		},
		[]string{"driver", "op", "status"},
	)
	LibrarySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_stories",
			Help:      "Number of stories currently saved in the library.",
		},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of active WebSocket connections.",
		},
	)
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published to the message broker.",
		},
		[]string{"type", "status"},
	)
)

// Push отправляет метрики процесса в Pushgateway. Используется короткоживущими командами.
func Push(pushgatewayURL, job string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	instance := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	if err := push.New(pushgatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("instance", instance).
		Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", pushgatewayURL, err)
	}
	return nil
}
