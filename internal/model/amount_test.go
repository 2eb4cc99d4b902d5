package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_KeepsLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "float with trailing zero", in: `20.0`, want: "20.0"},
		{name: "integer", in: `70`, want: "70"},
		{name: "two decimals", in: `12.50`, want: "12.50"},
		{name: "numeric string", in: `"9.90"`, want: "9.90"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			require.NoError(t, json.Unmarshal([]byte(tt.in), &a))
			assert.Equal(t, tt.want, a.String())

			out, err := json.Marshal(a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestAmount_RejectsGarbage(t *testing.T) {
	for _, in := range []string{`"abc"`, `true`, `null`, `"1,5"`} {
		var a Amount
		assert.Error(t, json.Unmarshal([]byte(in), &a), "input %s", in)
	}
}

func TestAmount_RejectsNonPlainLiterals(t *testing.T) {
	for _, in := range []string{"1e-5000000", "1E3", "2.5e1", "+5", ".5", "5.", "0020", "-", " 1 2"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrAmountFormat, "input %q", in)
	}

	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`1e-5000000`), &a))
	assert.Error(t, json.Unmarshal([]byte(`"0020"`), &a))
}

func TestAmount_AcceptedLiteralRoundTrips(t *testing.T) {
	for _, in := range []string{"0", "-0.5", "20.0", "0.0001", "999999999999999.9999"} {
		a, err := ParseAmount(in)
		require.NoError(t, err, "input %q", in)

		out, err := json.Marshal(a)
		require.NoError(t, err)
		assert.Equal(t, in, string(out))

		var back Amount
		require.NoError(t, json.Unmarshal(out, &back))
		assert.True(t, a.Equal(back), "input %q", in)
	}
}

func TestAmount_IntegerDigits(t *testing.T) {
	tests := map[string]int{
		"0":      1,
		"0.05":   1,
		"20.0":   2,
		"70":     2,
		"1000.5": 4,
	}
	for in, want := range tests {
		assert.Equal(t, want, MustAmount(in).IntegerDigits(), "input %q", in)
	}
}

func TestSumAmounts(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		want    string
	}{
		{name: "empty", amounts: nil, want: "0"},
		{name: "single float", amounts: []string{"40.0"}, want: "40.0"},
		{name: "mixed scale", amounts: []string{"12.25", "1.5"}, want: "13.75"},
		{name: "integers", amounts: []string{"40", "2"}, want: "42"},
		{name: "no float drift", amounts: []string{"0.1", "0.2"}, want: "0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in []Amount
			for _, s := range tt.amounts {
				in = append(in, MustAmount(s))
			}
			assert.Equal(t, tt.want, SumAmounts(in).String())
		})
	}
}

func TestBillRequest_JSONRoundTrip(t *testing.T) {
	body := `{"client_name":"Asha","items":[{"name":"Samosa","price":20.0,"quantity":2,"total":40.0}]}`

	var req BillRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	out, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(out))
	assert.Contains(t, string(out), `"price":20.0`)
}

func TestAmount_IsSet(t *testing.T) {
	var zero Amount
	assert.False(t, zero.IsSet())
	assert.True(t, MustAmount("0").IsSet())
}
