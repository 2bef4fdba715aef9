package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Stats is a JSON-friendly summary of the booking counters, served to operators.
type Stats struct {
	Submissions  map[string]int64 `json:"submissions"`
	Availability map[string]int64 `json:"availability"`
	Upstream     UpstreamStats    `json:"upstream"`
}

// UpstreamStats summarizes restaurant API latency across endpoints.
type UpstreamStats struct {
	Total int64   `json:"total"`
	P95Ms float64 `json:"p95_ms"`
}

// Snapshot reads the booking families from gatherer. Missing families yield zero values.
func Snapshot(gatherer prometheus.Gatherer) Stats {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	stats := Stats{Submissions: map[string]int64{}, Availability: map[string]int64{}}
	mfs, err := gatherer.Gather()
	if err != nil {
		return stats
	}
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case submissionsName:
			sumCounters(mf, "outcome", stats.Submissions)
		case availabilityName:
			sumCounters(mf, "source", stats.Availability)
		case upstreamName:
			stats.Upstream = summarizeLatency(mf)
		}
	}
	return stats
}

func sumCounters(mf *dto.MetricFamily, label string, into map[string]int64) {
	for _, metric := range mf.Metric {
		if metric == nil || metric.GetCounter() == nil {
			continue
		}
		into[labelValue(metric, label)] += int64(metric.GetCounter().GetValue())
	}
}

func summarizeLatency(mf *dto.MetricFamily) UpstreamStats {
	cumulativeByUpper := map[float64]uint64{}
	var total uint64
	for _, metric := range mf.Metric {
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		total += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if total == 0 {
		return UpstreamStats{}
	}
	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)
	return UpstreamStats{
		Total: int64(total),
		P95Ms: quantile(0.95, total, uppers, cumulativeByUpper) * 1000.0,
	}
}

// quantile returns the upper bound of the first bucket covering q of the samples.
// Samples past the last finite bucket report that bucket's bound.
func quantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	target := uint64(math.Ceil(q * float64(total)))
	var lastFinite float64
	for _, upper := range uppers {
		if math.IsInf(upper, 1) {
			break
		}
		lastFinite = upper
		if cumulativeByUpper[upper] >= target {
			return upper
		}
	}
	return lastFinite
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
