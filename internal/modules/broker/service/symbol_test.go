package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"AAPL":      "AAPL.US",
		"aapl":      "AAPL.US",
		" TSLA ":    "TSLA.US",
		"AAPL.US":   "AAPL.US",
		"700.HK":    "700.HK",
		"600519":    "600519.SH",
		"000001":    "000001.SZ",
		"300750":    "300750.SZ",
		"700":       "00700.HK",
		"5":         "00005.HK",
		"MSFT.NASD": "MSFT.US",
		"":          "",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeSymbol(in), "input %q", in)
	}
}
