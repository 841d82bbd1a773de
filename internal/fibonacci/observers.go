package fibonacci

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ChannelObserver forwards progress events to a channel, the form the CLI
// progress display consumes.
type ChannelObserver struct {
	channel chan<- ProgressUpdate
}

// NewChannelObserver creates an observer that sends updates to ch. A nil
// channel discards them.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{channel: ch}
}

// Update sends the event without blocking. When the channel is full the
// event is dropped and the display catches up on the next one. Values
// above 1.0 are clamped.
func (o *ChannelObserver) Update(calcIndex int, progress float64) {
	if o.channel == nil {
		return
	}
	if progress > 1.0 {
		progress = 1.0
	}
	select {
	case o.channel <- ProgressUpdate{CalculatorIndex: calcIndex, Value: progress}:
	default:
	}
}

// LoggingObserver logs progress at debug level. An event is logged when it
// is the first non-zero one, when it completes the calculation, or when it
// moved by at least threshold since the last logged event.
type LoggingObserver struct {
	logger    zerolog.Logger
	threshold float64
	lastLog   map[int]float64
	mu        sync.Mutex
}

// NewLoggingObserver creates a logging observer. A threshold of zero or
// less means 0.1.
func NewLoggingObserver(logger zerolog.Logger, threshold float64) *LoggingObserver {
	if threshold <= 0 {
		threshold = 0.1
	}
	return &LoggingObserver{
		logger:    logger,
		threshold: threshold,
		lastLog:   make(map[int]float64),
	}
}

// Update logs significant progress changes.
func (o *LoggingObserver) Update(calcIndex int, progress float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	last := o.lastLog[calcIndex]
	if progress >= 1.0 || last == 0 && progress > 0 || progress-last >= o.threshold {
		o.logger.Debug().
			Int("calculator", calcIndex).
			Float64("progress", progress).
			Str("percent", fmt.Sprintf("%.1f%%", progress*100)).
			Msg("calculation progress")
		o.lastLog[calcIndex] = progress
	}
}

var progressGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "zkfib_calculation_progress",
		Help: "Progress of the latest Fibonacci calculation per algorithm (0.0 to 1.0)",
	},
	[]string{"algorithm"},
)

// MetricsObserver exports progress to a Prometheus gauge labeled with the
// algorithm name.
type MetricsObserver struct {
	gauge     *prometheus.GaugeVec
	algorithm string
}

// NewMetricsObserver creates an observer for the named algorithm.
func NewMetricsObserver(algorithm string) *MetricsObserver {
	return &MetricsObserver{
		gauge:     progressGauge,
		algorithm: algorithm,
	}
}

// Update sets the gauge to progress.
func (o *MetricsObserver) Update(_ int, progress float64) {
	o.gauge.WithLabelValues(o.algorithm).Set(progress)
}

// ResetMetrics removes the gauge of this observer's algorithm.
func (o *MetricsObserver) ResetMetrics() {
	o.gauge.DeleteLabelValues(o.algorithm)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

// NewNoOpObserver returns a NoOpObserver.
func NewNoOpObserver() *NoOpObserver {
	return &NoOpObserver{}
}

// Update does nothing.
func (*NoOpObserver) Update(int, float64) {}
