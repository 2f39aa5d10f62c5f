package main

import (
	"slices"
	"testing"

	"github.com/1ureka/peerchat/internal/transport"
)

// The binary offers only drivers that can reach another process.
func TestRegisteredDrivers(t *testing.T) {
	got := transport.Drivers()
	if want := []string{"quic", "rtc"}; !slices.Equal(got, want) {
		t.Fatalf("Drivers() = %v, want %v", got, want)
	}
}

func TestOverrideString(t *testing.T) {
	v := "quic"
	overrideString(&v, "")
	if v != "quic" {
		t.Fatalf("empty override changed value to %q", v)
	}
	overrideString(&v, "rtc")
	if v != "rtc" {
		t.Fatalf("override = %q, want rtc", v)
	}
}
