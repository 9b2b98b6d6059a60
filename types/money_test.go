package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"VND", VND(10000), 10000, "vnd", "10.000đ"},
		{"VND plan price", VND(200000), 200000, "vnd", "200.000đ"},
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"Zero VND", Zero("VND"), 0, "vnd", "0đ"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return VND(100000).Add(VND(200000)) }, VND(300000)},
		{"Subtract", func() Money { return VND(500000).Subtract(VND(200000)) }, VND(300000)},
		{"Multiply", func() Money { return VND(100000).Multiply(3) }, VND(300000)},
		{"Negate", func() Money { return VND(100000).Negate() }, VND(-100000)},
		{"Abs positive", func() Money { return VND(100000).Abs() }, VND(100000)},
		{"Abs negative", func() Money { return VND(-100000).Abs() }, VND(100000)},
		{"Complex", func() Money {
			return VND(10000).Add(VND(5000)).Multiply(2).Subtract(VND(10000))
		}, VND(20000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = VND(100).Add(USD(100))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", VND(10000), VND(10000), false, false, true},
		{"Less", VND(5000), VND(10000), true, false, false},
		{"Greater", VND(20000), VND(10000), false, true, false},
		{"Zero equal", VND(0), Zero("vnd"), false, false, true},
		{"Negative less", VND(-10000), VND(10000), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMax(t *testing.T) {
	tests := []struct {
		name string
		a, b Money
		max  Money
	}{
		{"First smaller", VND(50000), VND(100000), VND(100000)},
		{"Second smaller", VND(100000), VND(50000), VND(100000)},
		{"Equal", VND(100000), VND(100000), VND(100000)},
		{"Negative", VND(-50000), VND(50000), VND(50000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", VND(0), true, false, false},
		{"Positive", VND(10000), false, true, false},
		{"Negative", VND(-10000), false, false, true},
		{"Large positive", VND(999999999), false, true, false},
		{"Large negative", VND(-999999999), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{VND(10000), "10.000"},
		{VND(200000), "200.000"},
		{VND(1500000), "1.500.000"},
		{VND(999), "999"},
		{VND(0), "0"},
		{VND(-10000), "-10.000"},
		{USD(4900), "49.00"},
		{USD(1), "0.01"},
		{USD(-4900), "-49.00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := VND(200000)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"amount":200000,"currency":"vnd","display":"200.000đ"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	var result struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if result.Amount != 200000 || result.Currency != "vnd" || result.Display != "200.000đ" {
		t.Errorf("Unmarshaled data incorrect: %+v", result)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", []Money{}, Zero("vnd")},
		{"Single", []Money{VND(10000)}, VND(10000)},
		{"Multiple", []Money{VND(10000), VND(20000), VND(30000)}, VND(60000)},
		{"With negatives", []Money{VND(10000), VND(-5000), VND(20000)}, VND(25000)},
		{"All zero", []Money{VND(0), VND(0), VND(0)}, VND(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sum(tt.values...)
			if !result.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func BenchmarkMoneyAdd(b *testing.B) {
	m1 := VND(10000)
	m2 := VND(20000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m1.Add(m2)
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := VND(200000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.String()
	}
}
