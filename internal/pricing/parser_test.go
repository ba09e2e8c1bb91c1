package pricing

import (
	"testing"

	apperrors "sjsage522/pricecompare/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		text     string
		expected float64
	}{
		{"£1,234.56", 1234.56},
		{"1234", 1234},
		{"£849.99 RRP", 849.99},
		{"RRP £199.00", 199.00},
		{"£ 12.50 per item", 12.50},
		{"Now only £5.99.", 5.99},
		{"12.99£", 12.99},
		{"£0.00", 0},
		{"€1,000,000", 1000000},
		{"  $7  ", 7},
		{"In-store £5", 5},
		{"£1,299", 1299},
		{"£5.99, free delivery", 5.99},
	}

	for _, tc := range testCases {
		money, err := ParsePrice(tc.text, ParseOptions{Currency: "GBP"})
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.expected, money.Amount, tc.text)
		assert.Equal(t, "GBP", money.Currency)
	}
}

func TestParsePrice_Unparseable(t *testing.T) {
	testCases := []string{
		"Price unavailable",
		"",
		"£",
		"£1.2.3",
		"£10.00 was £12.00",
		"-£5.00",
		"£ -5",
		"£10 was £12",
		"£5 off £20",
		"RRP £199.00 (2 items)",
		"2 for £15.00",
	}

	for _, text := range testCases {
		_, err := ParsePrice(text, ParseOptions{})
		require.Error(t, err, text)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeUnparseablePrice), text)
	}
}

func TestParsePrice_MinorUnits(t *testing.T) {
	minor := ParseOptions{MinorUnits: true}
	major := ParseOptions{}

	money, err := ParsePrice("£84999", minor)
	require.NoError(t, err)
	assert.Equal(t, 849.99, money.Amount)

	money, err = ParsePrice("£84999", major)
	require.NoError(t, err)
	assert.Equal(t, 84999.0, money.Amount)

	// a separator means the text is already in major units
	money, err = ParsePrice("£849.99", minor)
	require.NoError(t, err)
	assert.Equal(t, 849.99, money.Amount)

	// short inputs are not guessed to be pence
	money, err = ParsePrice("£999", major)
	require.NoError(t, err)
	assert.Equal(t, 999.0, money.Amount)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "199.00", Money{Amount: 199}.String())
	assert.Equal(t, "849.99", Money{Amount: 849.99}.String())
}
