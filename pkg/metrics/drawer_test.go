package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestDrawerMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewDrawerMetrics(reg)

	metrics.IncSessionOpened("loc-1")
	metrics.IncSessionClosed("review")
	metrics.IncMovement("cash_drop")
	metrics.ObserveVariance(12.5)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "drawer_sessions_opened_total", "location", "loc-1"); err != nil {
		t.Fatalf("fetch opened: %v", err)
	} else if got != 1 {
		t.Fatalf("expected opened=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "drawer_sessions_closed_total", "status", "review"); err != nil {
		t.Fatalf("fetch closed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected closed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "cash_movements_total", "type", "cash_drop"); err != nil {
		t.Fatalf("fetch movements: %v", err)
	} else if got != 1 {
		t.Fatalf("expected movements=1, got %f", got)
	}

	if got := fetchHistogramSum(mfs, "drawer_variance_abs"); got != 12.5 {
		t.Fatalf("expected variance sum 12.5, got %f", got)
	}
}

func TestDrawerMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewDrawerMetrics(nil)
	metrics.IncSessionOpened("loc-1")
	metrics.IncSessionClosed("closed")
	metrics.IncMovement("cash_in")
	metrics.ObserveVariance(1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return -1
	}
	for _, metric := range mf.GetMetric() {
		return metric.GetHistogram().GetSampleSum()
	}
	return -1
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
