package main

import (
	"testing"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/config"
)

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate(short) = %q, want unchanged", got)
	}
	if got := truncate("a long enough string", 6); got != "a long..." {
		t.Fatalf("truncate() = %q, want %q", got, "a long...")
	}
}

func TestNewRegistryOrder(t *testing.T) {
	registry, err := newRegistry(config.Default())
	if err != nil {
		t.Fatalf("newRegistry() error: %v", err)
	}

	want := []string{"rpgmaker", "wolf", "nscripter"}
	adapters := registry.Adapters()
	if len(adapters) != len(want) {
		t.Fatalf("got %d adapters, want %d", len(adapters), len(want))
	}
	for i, id := range want {
		if adapters[i].ID() != id {
			t.Fatalf("adapter %d = %q, want %q", i, adapters[i].ID(), id)
		}
	}
}

func TestNewRegistryRejectsUnknownCode(t *testing.T) {
	cfg := config.Default()
	cfg.EnabledCodes = []int{999}
	if _, err := newRegistry(cfg); err == nil {
		t.Fatal("expected error for unknown event code")
	}
}

func TestRootCmdSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"scan", "translate", "codes", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}
