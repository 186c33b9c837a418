package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalculator(t *testing.T) {
	t.Run("Success - default rate", func(t *testing.T) {
		calc, err := NewCalculator(DefaultRate)
		require.NoError(t, err)
		assert.Equal(t, 0.10, calc.Rate())
	})

	t.Run("Failure - negative rate", func(t *testing.T) {
		_, err := NewCalculator(-0.1)
		assert.ErrorIs(t, err, ErrInvalidRate)
	})

	t.Run("Failure - rate above one", func(t *testing.T) {
		_, err := NewCalculator(1.5)
		assert.ErrorIs(t, err, ErrInvalidRate)
	})
}

func TestCompute(t *testing.T) {
	calc, err := NewCalculator(0.10)
	require.NoError(t, err)

	tests := []struct {
		name     string
		total    float64
		currency string
		want     float64
		wantCode string
	}{
		{"whole amount", 100.00, "USD", 10.00, "USD"},
		{"rounded to cents", 129.99, "USD", 13.00, "USD"},
		{"rounded down", 12.34, "EUR", 1.23, "EUR"},
		{"zero decimal currency", 12345, "JPY", 1235, "JPY"},
		{"empty currency defaults to USD", 50, "", 5.00, "USD"},
		{"lower case code", 20, "cad", 2.00, "CAD"},
		{"zero total", 0, "USD", 0, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := calc.Compute(tt.total, tt.currency)
			assert.InDelta(t, tt.want, q.Amount, 1e-9)
			assert.Equal(t, tt.wantCode, q.Currency)
			assert.Equal(t, 0.10, q.Rate)
		})
	}
}

func TestPrecision(t *testing.T) {
	assert.Equal(t, 2, Precision("USD"))
	assert.Equal(t, 0, Precision("JPY"))
	assert.Equal(t, 3, Precision("KWD"))
	assert.Equal(t, 2, Precision("NOT-A-CODE"))
}

func TestRound(t *testing.T) {
	assert.InDelta(t, 1.23, Round(1.2345, "USD"), 1e-9)
	assert.InDelta(t, 1.235, Round(1.23456, "KWD"), 1e-9)
	assert.InDelta(t, 1.0, Round(1.2345, "JPY"), 1e-9)
}

func TestParseAmount(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		v, err := ParseAmount(" 129.95 ")
		require.NoError(t, err)
		assert.Equal(t, 129.95, v)
	})

	for _, in := range []string{"", "abc", "-5.00", "NaN", "Inf"} {
		t.Run("Failure - "+in, func(t *testing.T) {
			_, err := ParseAmount(in)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestOrderReference(t *testing.T) {
	assert.Equal(t, "CAPTY-5551234-abcdef12", OrderReference("5551234", "abcdef1234567890"))
	assert.Equal(t, "CAPTY-1-abc", OrderReference("1", "abc"))
	assert.Equal(t, "CAPTY-1-unknown", OrderReference("1", ""))
	assert.Equal(t, "CAPTY-7-ñññññññ1", OrderReference("7", "ñññññññ12345"))
	assert.Equal(t, "CAPTY-7-日本語の紹介リン", OrderReference("7", "日本語の紹介リンクです"))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "EUR", NormalizeCurrency(" eur "))
	assert.Equal(t, "USD", NormalizeCurrency(""))
	assert.Equal(t, "USD", NormalizeCurrency("EURO"))
	assert.Equal(t, "USD", NormalizeCurrency("E1R"))
}
