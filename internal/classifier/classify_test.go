package classifier

import (
	"strings"
	"testing"

	"PriceLens/internal/model"
)

func TestClassify_DefaultPolicyBoundaries(t *testing.T) {
	tests := []struct {
		price float64
		label string
	}{
		{114, model.StatusMarketRate},
		{116, model.StatusAboveMarket},
		{86, model.StatusMarketRate},
		{84, model.StatusBelowMarket},
		{100, model.StatusMarketRate},
	}
	for _, tt := range tests {
		st := Classify(tt.price, 100)
		if st.Label != tt.label {
			t.Errorf("price %.0f vs 100: expected %q, got %q", tt.price, tt.label, st.Label)
		}
	}
}

func TestClassify_CoarseAndFinePolicies(t *testing.T) {
	tests := []struct {
		policy Policy
		price  float64
		label  string
	}{
		{CoarsePolicy, 119, model.StatusMarketRate},
		{CoarsePolicy, 121, model.StatusAboveMarket},
		{CoarsePolicy, 79, model.StatusBelowMarket},
		{FinePolicy, 109, model.StatusFairPrice},
		{FinePolicy, 111, model.StatusAboveMarket},
		{FinePolicy, 89, model.StatusGoodDeal},
	}
	for _, tt := range tests {
		st := tt.policy.Classify(tt.price, 100)
		if st.Label != tt.label {
			t.Errorf("%s policy, price %.0f: expected %q, got %q", tt.policy.Name, tt.price, tt.label, st.Label)
		}
	}
}

func TestClassify_NoReference(t *testing.T) {
	for _, median := range []float64{0, -3} {
		st := Classify(50, median)
		if st.Label != model.StatusNewReport {
			t.Errorf("median %.0f: expected %q, got %q", median, model.StatusNewReport, st.Label)
		}
		if st.Explanation == "" {
			t.Error("expected a fallback explanation for a new report")
		}
	}
}

func TestClassify_ExplanationMentionsNumbers(t *testing.T) {
	st := Classify(130, 100)
	if st.Deviation != 0.3 {
		t.Errorf("expected deviation 0.3, got %v", st.Deviation)
	}
	for _, want := range []string{"Above Market", "130.00", "100.00", "30.0%"} {
		if !strings.Contains(st.Explanation, want) {
			t.Errorf("explanation %q missing %q", st.Explanation, want)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("", 0)
	if err != nil || p.Threshold != 0.15 {
		t.Fatalf("empty name: got %+v, %v", p, err)
	}
	p, err = PolicyByName("Fine", 0)
	if err != nil || p.FairLabel != model.StatusFairPrice {
		t.Fatalf("fine: got %+v, %v", p, err)
	}
	p, err = PolicyByName("coarse", 0.25)
	if err != nil || p.Threshold != 0.25 {
		t.Fatalf("coarse override: got %+v, %v", p, err)
	}
	if _, err := PolicyByName("strict", 0); err == nil {
		t.Error("expected error for unknown policy")
	}
}
