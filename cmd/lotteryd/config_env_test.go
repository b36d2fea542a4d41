package main

import (
	"os"
	"testing"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := baseConfig()

	os.Setenv("LOTTERYD_AGENCIES", "8")
	os.Setenv("LOTTERYD_MDNS_ENABLE", "true")
	os.Setenv("LOTTERYD_LISTEN", ":9999")
	os.Setenv("LOTTERYD_STRICT_WINNERS", "1")
	t.Cleanup(func() {
		os.Unsetenv("LOTTERYD_AGENCIES")
		os.Unsetenv("LOTTERYD_MDNS_ENABLE")
		os.Unsetenv("LOTTERYD_LISTEN")
		os.Unsetenv("LOTTERYD_STRICT_WINNERS")
	})

	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.agencies != 8 {
		t.Fatalf("expected agencies override, got %d", base.agencies)
	}
	if !base.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if base.listenAddr != ":9999" {
		t.Fatalf("expected listenAddr override, got %s", base.listenAddr)
	}
	if !base.strictWinners {
		t.Fatalf("expected strictWinners true")
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := baseConfig()
	os.Setenv("LOTTERYD_AGENCIES", "99")
	t.Cleanup(func() { os.Unsetenv("LOTTERYD_AGENCIES") })

	if err := applyEnvOverrides(base, map[string]struct{}{"agencies": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.agencies != 5 {
		t.Fatalf("expected agencies unchanged at 5, got %d", base.agencies)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	base := baseConfig()
	os.Setenv("LOTTERYD_AGENCIES", "notanumber")
	t.Cleanup(func() { os.Unsetenv("LOTTERYD_AGENCIES") })

	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for bad integer")
	}
}
