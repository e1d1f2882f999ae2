package config

import (
	"testing"
	"time"
)

func TestParseStringEnvWins(t *testing.T) {
	t.Setenv("AB_TEST_STRING", "from-env")
	if got := ParseString("AB_TEST_STRING", "fallback"); got != "from-env" {
		t.Errorf("got %q, want from-env", got)
	}
}

func TestParseStringEmptyEnvFallsBack(t *testing.T) {
	t.Setenv("AB_TEST_STRING", "")
	if got := ParseString("AB_TEST_STRING", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestParseIntInvalidFallsBack(t *testing.T) {
	t.Setenv("AB_TEST_INT", "not-a-number")
	if got := ParseInt("AB_TEST_INT", 42); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"true":  true,
		"1":     true,
		"false": false,
		"0":     false,
	}
	for raw, want := range cases {
		t.Setenv("AB_TEST_BOOL", raw)
		if got := ParseBool("AB_TEST_BOOL", !want); got != want {
			t.Errorf("ParseBool(%q): got %v, want %v", raw, got, want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("AB_TEST_DUR", "150ms")
	if got := ParseDuration("AB_TEST_DUR", time.Second); got != 150*time.Millisecond {
		t.Errorf("got %s, want 150ms", got)
	}

	t.Setenv("AB_TEST_DUR", "bogus")
	if got := ParseDuration("AB_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("invalid duration must fall back, got %s", got)
	}
}

func TestParseFloat(t *testing.T) {
	t.Setenv("AB_TEST_FLOAT", "2.5")
	if got := ParseFloat("AB_TEST_FLOAT", 1.0); got != 2.5 {
		t.Errorf("got %v, want 2.5", got)
	}
}
