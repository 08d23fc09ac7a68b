package observer

import (
	"math"
	"testing"
)

func TestCostCalculator(t *testing.T) {
	calc := NewCostCalculator(nil)

	// Known model
	cost := calc.Calculate("gpt-3.5-turbo", 1_000_000, 1_000_000)
	if math.Abs(cost-2.0) > 0.001 {
		t.Errorf("gpt-3.5-turbo cost = %f, want 2.0", cost)
	}

	cost = calc.Calculate("o3", 500_000, 250_000)
	if math.Abs(cost-3.0) > 0.001 {
		t.Errorf("o3 cost = %f, want 3.0", cost)
	}

	// Unknown model returns 0
	cost = calc.Calculate("unknown-model", 1000, 1000)
	if cost != 0.0 {
		t.Errorf("unknown model cost = %f, want 0.0", cost)
	}

	// Override pricing
	calc = NewCostCalculator(map[string]ModelPricing{
		"custom-model": {InputPerMillion: 5.0, OutputPerMillion: 10.0},
		"o3":           {InputPerMillion: 1.0, OutputPerMillion: 1.0},
	})
	cost = calc.Calculate("custom-model", 500_000, 200_000)
	expected := 500_000.0/1_000_000*5.0 + 200_000.0/1_000_000*10.0 // 2.5 + 2.0 = 4.5
	if math.Abs(cost-expected) > 0.001 {
		t.Errorf("custom-model cost = %f, want %f", cost, expected)
	}
	if cost := calc.Calculate("o3", 1_000_000, 1_000_000); math.Abs(cost-2.0) > 0.001 {
		t.Errorf("overridden o3 cost = %f, want 2.0", cost)
	}

	// Override still has defaults
	cost = calc.Calculate("gpt-3.5-turbo", 1_000_000, 1_000_000)
	if math.Abs(cost-2.0) > 0.001 {
		t.Errorf("after override, default cost = %f, want 2.0", cost)
	}
}

func TestCostCalculatorZeroTokens(t *testing.T) {
	calc := NewCostCalculator(nil)
	cost := calc.Calculate("o3", 0, 0)
	if cost != 0.0 {
		t.Errorf("zero tokens cost = %f, want 0.0", cost)
	}
}
