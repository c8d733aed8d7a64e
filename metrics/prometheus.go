// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vechain/thor-oracle/log"
)

const namespace = "oracle"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics switches the package to prometheus backed meters.
// Meters already handed out stay no-ops.
func InitializePrometheusMetrics() {
	if _, ok := metrics.(*prometheusMetrics); !ok {
		metrics = &prometheusMetrics{meters: make(map[string]any)}
	}
}

type prometheusMetrics struct {
	mu     sync.Mutex
	meters map[string]any
}

// load returns the meter cached under kind and name, creating it once.
func (p *prometheusMetrics) load(kind, name string, create func() any) any {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := kind + ":" + name
	if m, ok := p.meters[key]; ok {
		return m
	}
	m := create()
	p.meters[key] = m
	return m
}

// register adds c to the default registry. A collector registered earlier
// under the same description is reused.
func register[C prometheus.Collector](name string, c C) C {
	err := prometheus.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	logger.Warn("unable to register metric", "name", name, "err", err)
	return c
}

func floatBuckets(buckets []int64) []float64 {
	if buckets == nil {
		return nil
	}
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = float64(b)
	}
	return out
}

func (p *prometheusMetrics) Counter(name string) CountMeter {
	return p.load("counter", name, func() any {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
		return &promCountMeter{register(name, c)}
	}).(CountMeter)
}

func (p *prometheusMetrics) CounterVec(name string, labels []string) CountVecMeter {
	return p.load("counterVec", name, func() any {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels)
		return &promCountVecMeter{register(name, c)}
	}).(CountVecMeter)
}

func (p *prometheusMetrics) Gauge(name string) GaugeMeter {
	return p.load("gauge", name, func() any {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
		return &promGaugeMeter{register(name, g)}
	}).(GaugeMeter)
}

func (p *prometheusMetrics) GaugeVec(name string, labels []string) GaugeVecMeter {
	return p.load("gaugeVec", name, func() any {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name}, labels)
		return &promGaugeVecMeter{register(name, g)}
	}).(GaugeVecMeter)
}

func (p *prometheusMetrics) Histogram(name string, buckets []int64) HistogramMeter {
	return p.load("histogram", name, func() any {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   floatBuckets(buckets),
		})
		return &promHistogramMeter{register(name, h)}
	}).(HistogramMeter)
}

func (p *prometheusMetrics) HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return p.load("histogramVec", name, func() any {
		h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   floatBuckets(buckets),
		}, labels)
		return &promHistogramVecMeter{register(name, h)}
	}).(HistogramVecMeter)
}

func (p *prometheusMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

type promCountMeter struct{ c prometheus.Counter }

func (m *promCountMeter) Add(i int64) { m.c.Add(float64(i)) }

type promCountVecMeter struct{ c *prometheus.CounterVec }

func (m *promCountVecMeter) AddWithLabel(i int64, labels map[string]string) {
	m.c.With(labels).Add(float64(i))
}

type promGaugeMeter struct{ g prometheus.Gauge }

func (m *promGaugeMeter) Add(i int64) { m.g.Add(float64(i)) }
func (m *promGaugeMeter) Set(i int64) { m.g.Set(float64(i)) }

type promGaugeVecMeter struct{ g *prometheus.GaugeVec }

func (m *promGaugeVecMeter) AddWithLabel(i int64, labels map[string]string) {
	m.g.With(labels).Add(float64(i))
}

func (m *promGaugeVecMeter) SetWithLabel(i int64, labels map[string]string) {
	m.g.With(labels).Set(float64(i))
}

type promHistogramMeter struct{ h prometheus.Histogram }

func (m *promHistogramMeter) Observe(i int64) { m.h.Observe(float64(i)) }

type promHistogramVecMeter struct{ h *prometheus.HistogramVec }

func (m *promHistogramVecMeter) ObserveWithLabels(i int64, labels map[string]string) {
	m.h.With(labels).Observe(float64(i))
}
