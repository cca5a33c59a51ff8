package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebridge_active_sessions",
		Help: "Number of active voice sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebridge_sessions_total",
		Help: "Total number of voice sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicebridge_session_duration_seconds",
		Help:    "Duration of voice sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Provider metrics
	providerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_provider_events_total",
		Help: "Total number of normalized provider events",
	}, []string{"provider", "event"})

	connectLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicebridge_connect_latency_seconds",
		Help:    "Socket open + setup acknowledgement latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0},
	}, []string{"provider"})

	interruptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_interruptions_total",
		Help: "Total number of barge-in interruptions",
	}, []string{"provider", "source"}) // source: "user" or "server"

	// Tool metrics
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_tool_calls_total",
		Help: "Total number of server-invoked tool calls",
	}, []string{"tool", "status"})

	toolLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voicebridge_tool_latency_seconds",
		Help:    "Tool execution latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebridge_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// Metrics tracks metrics for a single voice session
type Metrics struct {
	sessionID        string
	provider         string
	startTime        time.Time
	connectStartTime time.Time
	toolStartTime    time.Time
	mu               sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a session
func NewSessionMetrics(sessionID, provider string) *Metrics {
	return &Metrics{
		sessionID: sessionID,
		provider:  provider,
		startTime: time.Now(),
	}
}

// RecordSessionStart records the start of a voice session
func (m *Metrics) RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records the end of a voice session
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
	duration := time.Since(m.startTime).Seconds()
	sessionDuration.Observe(duration)
}

// RecordConnectStart records the start of a provider connection attempt
func (m *Metrics) RecordConnectStart() {
	m.mu.Lock()
	m.connectStartTime = time.Now()
	m.mu.Unlock()
}

// RecordConnectEnd records the end of a provider connection attempt
func (m *Metrics) RecordConnectEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connectStartTime.IsZero() && success {
		connectLatency.WithLabelValues(m.provider).Observe(time.Since(m.connectStartTime).Seconds())
	}
	if !success {
		errorsTotal.WithLabelValues("connection_error", "provider").Inc()
	}
}

// RecordProviderEvent records one normalized provider event
func (m *Metrics) RecordProviderEvent(event string) {
	providerEvents.WithLabelValues(m.provider, event).Inc()
}

// RecordInterruption records a barge-in, by who triggered it
func (m *Metrics) RecordInterruption(source string) {
	interruptions.WithLabelValues(m.provider, source).Inc()
}

// RecordToolCallStart records the start of a tool execution
func (m *Metrics) RecordToolCallStart() {
	m.mu.Lock()
	m.toolStartTime = time.Now()
	m.mu.Unlock()
}

// RecordToolCallEnd records the end of a tool execution
func (m *Metrics) RecordToolCallEnd(tool string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.toolStartTime.IsZero() {
		toolLatency.Observe(time.Since(m.toolStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	toolCalls.WithLabelValues(tool, status).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *Metrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}
