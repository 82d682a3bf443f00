package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Narration metrics
	narrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_narrations_total",
		Help: "Total narration requests by outcome",
	}, []string{"status"}) // status: played | preempted | synth_error | play_error | cancelled

	narrationPreemptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_narration_preemptions_total",
		Help: "Times a new narration stopped one that was still audible",
	})

	// Recognition metrics
	recognitionFinals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_recognition_finals_total",
		Help: "Finalized transcripts received from the recognition engine",
	})

	recognitionDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_recognition_discards_total",
		Help: "Finalized transcripts discarded by the confirmation word-list",
	})

	recognitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_recognition_errors_total",
		Help: "Recognition engine errors by kind",
	}, []string{"kind"})

	// Streaming answer metrics
	streamSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_stream_sessions_total",
		Help: "Streaming answer sessions by outcome",
	}, []string{"status"}) // status: completed | failed | cancelled

	streamChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_stream_chunks_total",
		Help: "Chunks read from the streaming answer endpoint",
	})

	streamFragments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_stream_fragments_total",
		Help: "Sentence fragments enqueued for narration",
	})

	fragmentsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_client_stream_fragments_dropped_total",
		Help: "Queued fragments dropped because their session was superseded",
	})

	// Command metrics
	commandDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_command_dispatches_total",
		Help: "Command dispatches by resulting action",
	}, []string{"action"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_client_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_client_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordNarration records a narration request outcome
func RecordNarration(status string) {
	narrations.WithLabelValues(status).Inc()
}

// RecordNarrationPreemption records that a narration cut off an audible one
func RecordNarrationPreemption() {
	narrationPreemptions.Inc()
}

// RecordRecognitionFinal records a finalized transcript
func RecordRecognitionFinal() {
	recognitionFinals.Inc()
}

// RecordRecognitionDiscard records a transcript swallowed by the word-list
func RecordRecognitionDiscard() {
	recognitionDiscards.Inc()
}

// RecordRecognitionError records a recognition engine error
func RecordRecognitionError(kind string) {
	recognitionErrors.WithLabelValues(kind).Inc()
}

// RecordStreamSession records a streaming session outcome
func RecordStreamSession(status string) {
	streamSessions.WithLabelValues(status).Inc()
}

// RecordStreamChunk records one chunk read from the answer stream
func RecordStreamChunk() {
	streamChunks.Inc()
}

// RecordStreamFragment records one sentence fragment enqueued
func RecordStreamFragment() {
	streamFragments.Inc()
}

// RecordFragmentDropped records a stale fragment dropped on cancellation
func RecordFragmentDropped() {
	fragmentsDropped.Inc()
}

// RecordCommandDispatch records a command dispatch by action
func RecordCommandDispatch(action string) {
	commandDispatches.WithLabelValues(action).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
