package calculator

import (
	"math"
	"reflect"
	"sort"
	"testing"

	"PriceLens/internal/model"
)

func referenceMedian(prices []float64) float64 {
	s := append([]float64(nil), prices...)
	sort.Float64s(s)
	if len(s)%2 == 1 {
		return s[len(s)/2]
	}
	return (s[len(s)/2-1] + s[len(s)/2]) / 2
}

func TestMedian(t *testing.T) {
	tests := []struct {
		prices []float64
		want   float64
	}{
		{nil, 0},
		{[]float64{}, 0},
		{[]float64{42}, 42},
		{[]float64{3, 1, 2}, 2},
		{[]float64{4, 1, 3, 2}, 2.5},
		{[]float64{100, 100, 100, 1000}, 100},
		{[]float64{60, 58.5, 61, 59, 200, 57}, 59.5},
	}
	for _, tt := range tests {
		got := Median(tt.prices)
		if got != tt.want {
			t.Errorf("Median(%v) = %v; want %v", tt.prices, got, tt.want)
		}
	}
}

func TestMedianMatchesReference(t *testing.T) {
	samples := [][]float64{
		{9, 2, 7, 4, 5},
		{9, 2, 7, 4, 5, 11},
		{1.5, 1.5, 1.5},
		{120, 80, 95, 101, 99, 100, 98, 130},
	}
	for _, s := range samples {
		if got, want := Median(s), referenceMedian(s); got != want {
			t.Errorf("Median(%v) = %v; reference %v", s, got, want)
		}
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	prices := []float64{5, 3, 9, 1}
	Median(prices)
	if !reflect.DeepEqual(prices, []float64{5, 3, 9, 1}) {
		t.Errorf("input was reordered: %v", prices)
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v; want 0", got)
	}
	if got := Mean([]float64{100, 110, 120}); got != 110 {
		t.Errorf("Mean = %v; want 110", got)
	}
}

func TestRemoveOutliersThresholdBoundary(t *testing.T) {
	got := RemoveOutliers([]float64{100, 100, 100, 1000}, DefaultOutlierThreshold)
	want := []float64{100, 100, 100}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveOutliers = %v; want %v", got, want)
	}
}

func TestRemoveOutliersCleanSampleUnchanged(t *testing.T) {
	clean := []float64{100, 105, 95, 110, 98}
	got := RemoveOutliers(clean, DefaultOutlierThreshold)
	if !reflect.DeepEqual(got, clean) {
		t.Errorf("clean sample changed: got %v; want %v", got, clean)
	}
}

func TestRemoveOutliersSmallSamplePassthrough(t *testing.T) {
	samples := [][]float64{
		{},
		{1},
		{1, 1000},
	}
	for _, s := range samples {
		for _, th := range []float64{0, 0.1, DefaultOutlierThreshold, 5} {
			got := RemoveOutliers(s, th)
			if !reflect.DeepEqual(got, s) {
				t.Errorf("RemoveOutliers(%v, %v) = %v; want unchanged", s, th, got)
			}
		}
	}
}

func TestRemoveOutliersZeroMedianPassthrough(t *testing.T) {
	s := []float64{0, 0, 0, 5}
	got := RemoveOutliers(s, DefaultOutlierThreshold)
	if !reflect.DeepEqual(got, s) {
		t.Errorf("RemoveOutliers(%v) = %v; want unchanged", s, got)
	}
}

func TestRemoveOutliersKeepsOrder(t *testing.T) {
	got := RemoveOutliers([]float64{62, 10, 60, 58, 300}, DefaultOutlierThreshold)
	want := []float64{62, 60, 58}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveOutliers = %v; want %v", got, want)
	}
}

func TestConfidenceThresholds(t *testing.T) {
	tests := []struct {
		count int
		want  model.Confidence
	}{
		{0, model.ConfidenceLow},
		{4, model.ConfidenceLow},
		{5, model.ConfidenceMedium},
		{9, model.ConfidenceMedium},
		{10, model.ConfidenceHigh},
		{250, model.ConfidenceHigh},
	}
	for _, tt := range tests {
		if got := Confidence(tt.count); got != tt.want {
			t.Errorf("Confidence(%d) = %s; want %s", tt.count, got, tt.want)
		}
	}
}

func TestTrendInsufficientData(t *testing.T) {
	for _, s := range [][]float64{nil, {42}} {
		got := Trend(s)
		if got.Direction != model.TrendStable || got.Percent != 0 {
			t.Errorf("Trend(%v) = %+v; want stable 0", s, got)
		}
	}
}

func TestTrendDirection(t *testing.T) {
	tests := []struct {
		prices  []float64
		dir     model.TrendDirection
		percent float64
	}{
		{[]float64{110, 108, 100, 95}, model.TrendUp, 11.8},
		{[]float64{90, 100}, model.TrendDown, 10},
		{[]float64{100, 100, 100}, model.TrendStable, 0},
		// odd length: recent half is [120], older half is [100, 100]
		{[]float64{120, 100, 100}, model.TrendUp, 20},
		{[]float64{5, 0}, model.TrendUp, 0},
	}
	for _, tt := range tests {
		got := Trend(tt.prices)
		if got.Direction != tt.dir {
			t.Errorf("Trend(%v) direction = %s; want %s", tt.prices, got.Direction, tt.dir)
		}
		if math.Abs(got.Percent-tt.percent) > 1e-9 {
			t.Errorf("Trend(%v) percent = %v; want %v", tt.prices, got.Percent, tt.percent)
		}
	}
}
