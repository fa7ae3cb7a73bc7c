package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	WSClients          prometheus.Gauge
	WSMessages         *prometheus.CounterVec
	Intents            *prometheus.CounterVec
	DispatchSeconds    *prometheus.HistogramVec
	RemindersCreated   prometheus.Counter
	RemindersCancelled prometheus.Counter
	RemindersFired     prometheus.Counter
	RemindersActive    prometheus.Gauge
	SpeechErrors       *prometheus.CounterVec
	Listening          prometheus.Gauge
}

// NewMetrics registers every instrument on the default registry, so each
// namespace may only be used once per process.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Number of connected control surface clients.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and event.",
		}, []string{"direction", "event"}),
		Intents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Dispatched utterances by matched intent.",
		}, []string{"intent"}),
		DispatchSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_seconds",
			Help:      "Time from utterance to handled action, including speech.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"intent"}),
		RemindersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_created_total",
			Help:      "Reminders created.",
		}),
		RemindersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_cancelled_total",
			Help:      "Reminders cancelled by request.",
		}),
		RemindersFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Reminders delivered by the scheduler.",
		}),
		RemindersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminders_active",
			Help:      "Reminders currently pending.",
		}),
		SpeechErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_errors_total",
			Help:      "Speech failures by stage.",
		}, []string{"stage"}),
		Listening: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listening",
			Help:      "1 while the listening loop is running.",
		}),
	}
}

func (m *Metrics) ObserveIntent(name string) {
	if m == nil {
		return
	}
	m.Intents.WithLabelValues(name).Inc()
}

func (m *Metrics) ObserveDispatch(name string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DispatchSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMessage(direction, event string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, event).Inc()
}

func (m *Metrics) ObserveSpeechError(stage string) {
	if m == nil {
		return
	}
	m.SpeechErrors.WithLabelValues(stage).Inc()
}

// ObserveReminder counts a reminder lifecycle event: created, cancelled or fired.
func (m *Metrics) ObserveReminder(event string) {
	if m == nil {
		return
	}
	switch event {
	case "created":
		m.RemindersCreated.Inc()
	case "cancelled":
		m.RemindersCancelled.Inc()
	case "fired":
		m.RemindersFired.Inc()
	}
}

func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}

func (m *Metrics) SetActiveReminders(n int) {
	if m == nil {
		return
	}
	m.RemindersActive.Set(float64(n))
}

func (m *Metrics) SetListening(on bool) {
	if m == nil {
		return
	}
	if on {
		m.Listening.Set(1)
		return
	}
	m.Listening.Set(0)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
