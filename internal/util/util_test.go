package util

import (
	"testing"

	"github.com/pterm/pterm"
)

func TestFormatBytes(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{0, " 0.0   B"},
		{99, "99.0   B"},
		{1536, " 1.5 KiB"},
		{100 * 1024, " 0.1 MiB"},
	}

	for _, tc := range testCases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
		if len(formatBytes(tc.in)) != 8 {
			t.Errorf("formatBytes(%v) is not 8 chars wide", tc.in)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error", ""} {
		if err := SetLogLevel(level); err != nil {
			t.Errorf("SetLogLevel(%q): %v", level, err)
		}
	}
	if err := SetLogLevel("loud"); err == nil {
		t.Errorf("SetLogLevel(loud) succeeded")
	}

	SetLogLevel("debug")
	if pterm.DefaultLogger.Level != pterm.LogLevelDebug {
		t.Errorf("level after debug = %v", pterm.DefaultLogger.Level)
	}
	SetLogLevel("info")
	if pterm.DefaultLogger.Level != pterm.LogLevelInfo {
		t.Errorf("level after info = %v", pterm.DefaultLogger.Level)
	}
}

func TestSnapshotDelta(t *testing.T) {
	prev := snapshot{links: 1, msgsIn: 10, bytesIn: 100}
	cur := snapshot{links: 3, closed: 1, msgsIn: 15, bytesIn: 180}

	d := cur.delta(prev)
	if d.links != 2 || d.closed != 1 || d.msgsIn != 5 || d.bytesIn != 80 {
		t.Fatalf("delta = %+v", d)
	}
}
