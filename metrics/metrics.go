package metrics

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/cpu"
)

// ObserveFrequency is how often host gauges are sampled.
const ObserveFrequency = 1 * time.Second

type Metrics struct {
	CPU              prometheus.Gauge
	AllocatedMemory  prometheus.Gauge
	RequestsNow      prometheus.Gauge
	Requests         *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ResponseBodySize *prometheus.HistogramVec

	reg *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		CPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corserve_cpu_usage",
			Help: "CPU usage",
		}),
		AllocatedMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corserve_allocated_memory",
			Help: "Bytes of allocated heap objects",
		}),
		RequestsNow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corserve_requests_in_flight",
			Help: "How many requests are being processed",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corserve_requests_total",
			Help: "How many requests were answered, by status code",
		}, []string{"code", "method"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corserve_request_duration_seconds",
			Help:    "Time to answer a request",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		ResponseBodySize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corserve_response_size_bytes",
			Help:    "Size of the response",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method"}),
		reg: prometheus.NewRegistry(),
	}
	m.reg.MustRegister(
		m.CPU,
		m.AllocatedMemory,
		m.RequestsNow,
		m.Requests,
		m.RequestDuration,
		m.ResponseBodySize,
	)
	return m
}

// Instrument counts, times and sizes every request handled by next.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(m.RequestsNow,
		promhttp.InstrumentHandlerCounter(m.Requests,
			promhttp.InstrumentHandlerDuration(m.RequestDuration,
				promhttp.InstrumentHandlerResponseSize(m.ResponseBodySize, next),
			),
		),
	)
}

// Observe samples the host gauges until ctx is done.
func (m *Metrics) Observe(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.UpdateCPU()
			m.UpdateMemory()
		}
	}
}

func (m *Metrics) UpdateCPU() {
	p, err := cpu.Percent(0, false)
	if err == nil && len(p) > 0 {
		m.CPU.Set(p[0])
	}
}

func (m *Metrics) UpdateMemory() {
	s := runtime.MemStats{}
	runtime.ReadMemStats(&s)
	m.AllocatedMemory.Set(float64(s.Alloc))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
