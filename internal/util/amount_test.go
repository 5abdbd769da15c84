package util

import (
	"testing"
	"time"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "grouping and two decimals", input: "1234.5", want: "1,234.50"},
		{name: "blank", input: "", want: ""},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "non numeric passthrough", input: "abc", want: "abc"},
		{name: "existing separators", input: "12,345.678", want: "12,345.68"},
		{name: "zero stays numeric", input: "0", want: "0.00"},
		{name: "small", input: "7", want: "7.00"},
		{name: "negative", input: "-1500", want: "-1,500.00"},
		{name: "half cent below tie rounds down", input: "0.015", want: "0.01"},
		{name: "half cent above tie rounds up", input: "2.675000001", want: "2.68"},
		{name: "beyond int64", input: "1e19", want: "10,000,000,000,000,000,000.00"},
		{name: "negative rounding to zero drops sign", input: "-0.001", want: "0.00"},
		{name: "negative fraction", input: "-0.5", want: "-0.50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatCurrency(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "iso", input: "2024-03-07", want: "07/03/2024"},
		{name: "iso with time", input: "2024-03-07 00:00:00", want: "07/03/2024"},
		{name: "blank", input: "", want: ""},
		{name: "nil", input: nil, want: ""},
		{name: "calendar value", input: time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), want: "07/03/2024"},
		{name: "other text keeps first token", input: "  07.03.2024 (approx) ", want: "07.03.2024"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatDate(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestResolveRemittance(t *testing.T) {
	if got := ResolveRemittance("500.00", "0"); got != "500.00" {
		t.Fatalf("foreign: got %q", got)
	}
	if got := ResolveRemittance("", "300"); got != "300" {
		t.Fatalf("fallback: got %q", got)
	}
	if got := ResolveRemittance("0", ""); got != "" {
		t.Fatalf("both blank: got %q", got)
	}
	if got := ResolveRemittance("n/a", "1,200"); got != "1,200" {
		t.Fatalf("unparsable foreign: got %q", got)
	}
}

func TestStripIntegerSuffix(t *testing.T) {
	cases := map[string]string{
		"30.0":  "30",
		"30.00": "30.00",
		"30.5":  "30.5",
		" 12 ":  "12",
		"abc":   "abc",
	}
	for in, want := range cases {
		if got := StripIntegerSuffix(in); got != want {
			t.Fatalf("StripIntegerSuffix(%q)=%q want %q", in, got, want)
		}
	}
}

func TestPositiveInt(t *testing.T) {
	for _, in := range []string{"1", " 12 ", "3.0"} {
		if _, ok := PositiveInt(in); !ok {
			t.Fatalf("%q should be a positive integer", in)
		}
	}
	for _, in := range []string{"0", "-1", "S/N", "", "1.5", "Total"} {
		if _, ok := PositiveInt(in); ok {
			t.Fatalf("%q should not be a positive integer", in)
		}
	}
}
