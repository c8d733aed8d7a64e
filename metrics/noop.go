// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

type noopMetrics struct{}

var noopMetric = &noopMeters{}

func (noopMetrics) Counter(string) CountMeter { return noopMetric }
func (noopMetrics) CounterVec(string, []string) CountVecMeter { return noopMetric }
func (noopMetrics) Gauge(string) GaugeMeter { return noopMetric }
func (noopMetrics) GaugeVec(string, []string) GaugeVecMeter { return noopMetric }
func (noopMetrics) Histogram(string, []int64) HistogramMeter { return noopMetric }
func (noopMetrics) HistogramVec(string, []string, []int64) HistogramVecMeter { return noopMetric }
func (noopMetrics) Handler() http.Handler { return nil }

type noopMeters struct{}

func (*noopMeters) Add(int64) {}
func (*noopMeters) Set(int64) {}
func (*noopMeters) Observe(int64) {}
func (*noopMeters) AddWithLabel(int64, map[string]string) {}
func (*noopMeters) SetWithLabel(int64, map[string]string) {}
func (*noopMeters) ObserveWithLabels(int64, map[string]string) {}
