// Package metrics provides Prometheus metrics for the effect loop and device sink.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	heartTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lightnode",
		Subsystem: "heart",
		Name:      "ticks_total",
		Help:      "Effect loop ticks",
	})

	heartDirectives = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lightnode",
		Subsystem: "heart",
		Name:      "directives_total",
		Help:      "Directives consumed by the effect loop",
	}, []string{"kind"})

	heartFrame = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lightnode",
		Subsystem: "heart",
		Name:      "frame",
		Help:      "Current cursor frame index",
	})

	heartRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lightnode",
		Subsystem: "heart",
		Name:      "running",
		Help:      "1 while the animation is playing",
	})

	heartPatternFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lightnode",
		Subsystem: "heart",
		Name:      "pattern_frames",
		Help:      "Number of frames in the active pattern",
	})

	deviceConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lightnode",
		Subsystem: "device",
		Name:      "connected",
		Help:      "1 while a device handle is open",
	})

	deviceConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lightnode",
		Subsystem: "device",
		Name:      "connect_attempts_total",
		Help:      "Device connect attempts by result",
	}, []string{"result"})

	deviceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lightnode",
		Subsystem: "device",
		Name:      "writes_total",
		Help:      "Commands written to the device by result",
	}, []string{"result"})

	deviceBytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lightnode",
		Subsystem: "device",
		Name:      "read_bytes_total",
		Help:      "Bytes drained from the device",
	})

	// Local cache for the status endpoint.
	snapshot   Snapshot
	snapshotMu sync.RWMutex
)

// Snapshot holds current values mirrored from the Prometheus collectors.
type Snapshot struct {
	Ticks           uint64
	Frame           uint8
	Running         bool
	PatternFrames   int
	Connected       bool
	ConnectAttempts uint64
	ConnectFailures uint64
	Writes          uint64
	WriteFailures   uint64
	BytesRead       uint64
}

// Handler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick counts one effect loop tick.
func RecordTick() {
	heartTicks.Inc()
	update(func(s *Snapshot) { s.Ticks++ })
}

// RecordDirective counts a consumed directive.
func RecordDirective(kind string) {
	heartDirectives.WithLabelValues(kind).Inc()
}

// SetCursor mirrors the cursor state.
func SetCursor(frame uint8, running bool, patternFrames int) {
	heartFrame.Set(float64(frame))
	heartRunning.Set(boolFloat(running))
	heartPatternFrames.Set(float64(patternFrames))
	update(func(s *Snapshot) {
		s.Frame = frame
		s.Running = running
		s.PatternFrames = patternFrames
	})
}

// SetConnected mirrors the device connection state.
func SetConnected(connected bool) {
	deviceConnected.Set(boolFloat(connected))
	update(func(s *Snapshot) { s.Connected = connected })
}

// RecordConnectAttempt counts a connect attempt.
func RecordConnectAttempt(ok bool) {
	deviceConnectAttempts.WithLabelValues(result(ok)).Inc()
	update(func(s *Snapshot) {
		s.ConnectAttempts++
		if !ok {
			s.ConnectFailures++
		}
	})
}

// RecordWrite counts a device write.
func RecordWrite(ok bool) {
	deviceWrites.WithLabelValues(result(ok)).Inc()
	update(func(s *Snapshot) {
		s.Writes++
		if !ok {
			s.WriteFailures++
		}
	})
}

// RecordBytesRead counts bytes drained from the device.
func RecordBytesRead(n int) {
	if n <= 0 {
		return
	}
	deviceBytesRead.Add(float64(n))
	update(func(s *Snapshot) { s.BytesRead += uint64(n) })
}

// Current returns a copy of the cached values.
func Current() Snapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

func update(fn func(*Snapshot)) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	fn(&snapshot)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func boolFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
