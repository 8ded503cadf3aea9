package main

import (
	"flag"
	"testing"
)

func TestVersionStringOverride(t *testing.T) {
	old := version
	version = "v1.2.3"
	t.Cleanup(func() {
		version = old
	})

	if got := versionString(); got != "v1.2.3" {
		t.Fatalf("versionString() = %q, want %q", got, "v1.2.3")
	}
}

func TestSetupLoggingVerbose(t *testing.T) {
	t.Cleanup(func() {
		_ = flag.Set("v", "0")
		_ = flag.Set("logtostderr", "false")
	})

	if err := setupLogging(true); err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	if got := flag.Lookup("v").Value.String(); got != "1" {
		t.Fatalf("v = %q, want 1", got)
	}
	if got := flag.Lookup("logtostderr").Value.String(); got != "true" {
		t.Fatalf("logtostderr = %q, want true", got)
	}
}
