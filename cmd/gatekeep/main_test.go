package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "gatekeep dev") {
		t.Fatalf("version output = %q", out.String())
	}
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{{"serve"}, {"migrate", "up"}, {"migrate", "down"}, {"version"}} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not found: %v", path, err)
		}
	}
	if f := root.PersistentFlags().Lookup("env-file"); f == nil || f.DefValue != ".env" {
		t.Fatalf("env-file flag missing")
	}
}

func TestMigrateRejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "up", "extra"})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error for extra args")
	}
}
