package app

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("PM_TEST_LIST", " https://a.example , ,http://127.0.0.1:* ")
	got := EnvList("PM_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "http://127.0.0.1:*" {
		t.Fatalf("EnvList=%v", got)
	}

	t.Setenv("PM_TEST_LIST", "")
	if got := EnvList("PM_TEST_LIST", []string{"d"}); len(got) != 1 || got[0] != "d" {
		t.Fatalf("EnvList default=%v", got)
	}
}
