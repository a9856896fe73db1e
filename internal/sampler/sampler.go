// Package sampler periodically captures process resource usage and
// routes threshold classifications through the log dispatcher.
//
// One snapshot is taken per tick. If a tick fires while the previous
// snapshot is still being processed, that tick is skipped; samples
// never overlap.
package sampler

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/bovinemagnet/pg-console-sub010/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Snapshot is a point-in-time capture of process resource usage.
// Immutable once captured.
type Snapshot struct {
	Taken       time.Time
	HeapAlloc   uint64
	HeapSys     uint64
	Sys         uint64
	HeapPercent float64
	Goroutines  int
	Uptime      time.Duration
}

// Sampler captures resource snapshots on a recurring schedule.
type Sampler struct {
	cfg       config.SamplerConfig
	logger    *logging.Logger
	startTime time.Time
	sampling  atomic.Bool
	metrics   *metrics
}

// metrics are the Prometheus gauges updated on every snapshot.
type metrics struct {
	heapUsedBytes prometheus.Gauge
	heapPercent   prometheus.Gauge
	goroutines    prometheus.Gauge
	uptimeSeconds prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		heapUsedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgconsole_resource_heap_used_bytes",
			Help: "Heap bytes currently allocated.",
		}),
		heapPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgconsole_resource_heap_used_percent",
			Help: "Heap usage as a percentage of heap obtained from the OS.",
		}),
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgconsole_resource_goroutines",
			Help: "Number of live goroutines.",
		}),
		uptimeSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pgconsole_resource_uptime_seconds",
			Help: "Process uptime in seconds.",
		}),
	}
}

// New creates a sampler. reg may be nil to use the default Prometheus
// registerer.
func New(cfg config.SamplerConfig, logger *logging.Logger, reg prometheus.Registerer) *Sampler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Sampler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		metrics:   newMetrics(reg),
	}
}

// Run samples on the configured interval until ctx is done. Returns
// immediately when sampling is disabled.
func (s *Sampler) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}

	ticker := time.NewTicker(s.cfg.Interval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample(ctx)
		}
	}
}

// Sample captures one snapshot, updates gauges, and emits the
// threshold classification. Returns ok=false when a previous sample is
// still in progress and this one was skipped.
func (s *Sampler) Sample(ctx context.Context) (snap Snapshot, ok bool) {
	if !s.sampling.CompareAndSwap(false, true) {
		return Snapshot{}, false
	}
	defer s.sampling.Store(false)

	snap = s.capture()
	s.publish(snap)
	s.classify(ctx, snap)
	return snap, true
}

// capture reads the runtime counters into an immutable snapshot.
func (s *Sampler) capture() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		Taken:       time.Now(),
		HeapAlloc:   mem.HeapAlloc,
		HeapSys:     mem.HeapSys,
		Sys:         mem.Sys,
		HeapPercent: Percentage(mem.HeapAlloc, mem.HeapSys),
		Goroutines:  runtime.NumGoroutine(),
		Uptime:      time.Since(s.startTime),
	}
}

func (s *Sampler) publish(snap Snapshot) {
	s.metrics.heapUsedBytes.Set(float64(snap.HeapAlloc))
	s.metrics.heapPercent.Set(snap.HeapPercent)
	s.metrics.goroutines.Set(float64(snap.Goroutines))
	s.metrics.uptimeSeconds.Set(snap.Uptime.Seconds())
}

// classify emits the snapshot through the dispatcher. Heap pressure
// and goroutine pressure are classified independently; both may fire
// from one snapshot.
func (s *Sampler) classify(ctx context.Context, snap Snapshot) {
	level := zapcore.DebugLevel
	msg := "resource usage"
	switch {
	case snap.HeapPercent > s.cfg.HeapWarnPercent:
		level = zapcore.WarnLevel
		msg = "high heap usage"
	case snap.HeapPercent > s.cfg.HeapInfoPercent:
		level = zapcore.InfoLevel
		msg = "elevated heap usage"
	}

	s.logger.Emit(ctx, level, logging.CategoryResource, msg,
		zap.Uint64("heap_alloc_bytes", snap.HeapAlloc),
		zap.Uint64("heap_sys_bytes", snap.HeapSys),
		zap.Float64("heap_percent", snap.HeapPercent),
		zap.Int("goroutines", snap.Goroutines),
		zap.Duration("uptime", snap.Uptime),
	)

	if s.cfg.GoroutineWarn > 0 && snap.Goroutines > s.cfg.GoroutineWarn {
		s.logger.Warn(ctx, logging.CategoryResource, "high goroutine count",
			zap.Int("goroutines", snap.Goroutines),
			zap.Int("threshold", s.cfg.GoroutineWarn),
		)
	}
}

// Percentage returns used/max as a percentage. A zero or unknown max
// yields 0.
func Percentage(used, max uint64) float64 {
	if max == 0 {
		return 0
	}
	return float64(used) / float64(max) * 100
}
