package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundCentsIsHalfUp(t *testing.T) {
	assert.Equal(t, "20.00", MustParse("19.995").RoundCents().String())
	assert.Equal(t, "59.99", MustParse("59.985").Round(2).String())
	assert.Equal(t, "0.01", MustParse("0.005").RoundCents().String())
}

func TestStringAlwaysTwoPlaces(t *testing.T) {
	assert.Equal(t, "90.00", FromInt(90).String())
	assert.Equal(t, "-50.00", FromInt(100).Sub(FromInt(150)).String())
}

func TestJSONEncoding(t *testing.T) {
	payload := struct {
		Total Money `json:"total"`
	}{Total: MustParse("12.5")}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"12.50"}`, string(data))

	var decoded struct {
		Total Money `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total":7.25}`), &decoded))
	assert.True(t, decoded.Total.Equal(MustParse("7.25")))
}

func TestScanDriverValues(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, "0.00"},
		{"string", "19.99", "19.99"},
		{"bytes", []byte("5.10"), "5.10"},
		{"float", 19.99, "19.99"},
		{"int", int64(20), "20.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Money
			require.NoError(t, m.Scan(tc.input))
			assert.Equal(t, tc.want, m.String())
		})
	}

	var m Money
	assert.Error(t, m.Scan(true))
}

func TestSumDoesNotRound(t *testing.T) {
	total := Sum(MustParse("0.333"), MustParse("0.333"))
	assert.Equal(t, "0.666", total.Amount().String())
}
