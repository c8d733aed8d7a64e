// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// #nosec G404
package metrics

import (
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T) map[string]*dto.MetricFamily {
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	families := make(map[string]*dto.MetricFamily)
	for _, mf := range metricFamilies {
		families[mf.GetName()] = mf
	}
	return families
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	tips := Counter("tips_total")
	Counter("submissions_total")
	disputesVec := CounterVec("disputes_total", []string{"passed"})

	roundDuration := Histogram("round_duration_seconds", BucketSeconds)
	HistogramVec("tally_weight", []string{"passed"}, nil)

	queueDepth := Gauge("queue_depth")
	stakersVec := GaugeVec("stakers", []string{"status"})

	tips.Add(1)
	submissions := rand.N(100) + 1
	for range submissions {
		Counter("submissions_total").Add(1)
	}

	durationTotal := 0
	for i := range rand.N(100) + 2 {
		roundDuration.Observe(int64(i))
		HistogramVec("tally_weight", []string{"passed"}, nil).
			ObserveWithLabels(int64(i), map[string]string{"passed": strconv.FormatBool(i%2 == 0)})
		durationTotal += i
	}

	disputesTotal := 0
	for i := range rand.N(100) + 2 {
		disputesVec.AddWithLabel(int64(i), map[string]string{"passed": strconv.FormatBool(i%2 == 0)})
		disputesTotal += i
	}

	depthTotal := 0
	for i := range rand.N(100) + 2 {
		queueDepth.Add(int64(i))
		stakersVec.AddWithLabel(int64(i), map[string]string{"status": strconv.Itoa(i % 2)})
		depthTotal += i
	}

	families := gather(t)

	require.Equal(t, float64(1), families["oracle_tips_total"].Metric[0].GetCounter().GetValue())
	require.Equal(t, float64(submissions), families["oracle_submissions_total"].Metric[0].GetCounter().GetValue())
	require.Equal(t, float64(durationTotal), families["oracle_round_duration_seconds"].Metric[0].GetHistogram().GetSampleSum())

	weights := families["oracle_tally_weight"].Metric
	require.Len(t, weights, 2)
	require.Equal(t, float64(durationTotal), weights[0].GetHistogram().GetSampleSum()+weights[1].GetHistogram().GetSampleSum())

	disputes := families["oracle_disputes_total"].Metric
	require.Equal(t, float64(disputesTotal), disputes[0].GetCounter().GetValue()+disputes[1].GetCounter().GetValue())

	require.Equal(t, float64(depthTotal), families["oracle_queue_depth"].Metric[0].GetGauge().GetValue())
	stakers := families["oracle_stakers"].Metric
	require.Equal(t, float64(depthTotal), stakers[0].GetGauge().GetValue()+stakers[1].GetGauge().GetValue())
}

func TestGaugeVecSet(t *testing.T) {
	InitializePrometheusMetrics()

	vec := GaugeVec("difficulty", []string{"kind"})
	vec.SetWithLabel(7, map[string]string{"kind": "current"})
	vec.SetWithLabel(3, map[string]string{"kind": "current"})

	families := gather(t)
	require.Equal(t, float64(3), families["oracle_difficulty"].Metric[0].GetGauge().GetValue())
}

func TestHTTPHandlerExposition(t *testing.T) {
	InitializePrometheusMetrics()
	Counter("exposed_total").Add(5)

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)

	require.Contains(t, families, "oracle_exposed_total")
	require.Equal(t, float64(5), families["oracle_exposed_total"].Metric[0].GetCounter().GetValue())
}

func TestLazyLoading(t *testing.T) {
	metrics = noopMetrics{}

	for _, a := range []any{
		Gauge("noopGauge"),
		GaugeVec("noopGauge", nil),
		Counter("noopCounter"),
		CounterVec("noopCounter", nil),
		Histogram("noopHist", nil),
		HistogramVec("noopHist", nil, nil),
	} {
		require.IsType(t, &noopMeters{}, a)
	}

	lazyGauge := LazyLoadGauge("lazyGauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazyGaugeVec", nil)
	lazyCounter := LazyLoadCounter("lazyCounter")
	lazyCounterVec := LazyLoadCounterVec("lazyCounterVec", nil)
	lazyHistogram := LazyLoadHistogram("lazyHistogram", nil)
	lazyHistogramVec := LazyLoadHistogramVec("lazyHistogramVec", nil, nil)

	// meters resolved after initialization are backed by prometheus
	InitializePrometheusMetrics()

	require.IsType(t, &promGaugeMeter{}, lazyGauge())
	require.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
	require.IsType(t, &promCountMeter{}, lazyCounter())
	require.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	require.IsType(t, &promHistogramMeter{}, lazyHistogram())
	require.IsType(t, &promHistogramVecMeter{}, lazyHistogramVec())
}
