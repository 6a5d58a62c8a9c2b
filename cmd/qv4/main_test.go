package main

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xhaakon/qv4/manifest"
	"github.com/xhaakon/qv4/vm"
)

func TestApplyOp(t *testing.T) {
	e := vm.NewEngine()
	defer e.Close()
	c := e.NewContext()
	keep := e.NewPersistent(e.NewArray(vm.FromInt32(3), vm.FromInt32(1), vm.FromInt32(2)).Value())
	defer keep.Release()
	arr := vm.ObjectFromValue(keep.Value())

	tests := []struct {
		op     string
		result string
		after  string
	}{
		{"push:4,5", "5", "[3 1 2 4 5]"},
		{"shift", "3", "[1 2 4 5]"},
		{"unshift:x", "5", `["x" 1 2 4 5]`},
		{"sort", "", `[1 2 4 5 "x"]`},
		{"reverse", "", `["x" 5 4 2 1]`},
		{"splice:1,2,9", "[5 4]", `["x" 9 2 1]`},
		{"slice:1,3", "[9 2]", `["x" 9 2 1]`},
		{"join:-", "x-9-2-1", `["x" 9 2 1]`},
		{"indexOf:2", "2", `["x" 9 2 1]`},
		{"delete:1", "", `["x" _ 2 1]`},
		{"length:2", "", `["x" _]`},
		{"pop", "undefined", `["x"]`},
	}
	for _, tt := range tests {
		got, err := applyOp(c, arr, tt.op)
		if err != nil {
			t.Fatalf("%s: %v", tt.op, err)
		}
		if got != tt.result {
			t.Errorf("%s = %q, want %q", tt.op, got, tt.result)
		}
		if d := describe(c, arr.Value()); d != tt.after {
			t.Errorf("after %s: %s, want %s", tt.op, d, tt.after)
		}
	}

	if _, err := applyOp(c, arr, "frobnicate"); err == nil {
		t.Error("unknown operation accepted")
	}
	if _, err := applyOp(c, arr, "length:-1"); !vm.IsRangeError(err) {
		t.Errorf("length:-1 error = %v, want RangeError", err)
	}
}

func TestStressEngine(t *testing.T) {
	cfg := vm.DefaultConfig()
	cfg.GCThreshold = 32
	e, err := vm.NewEngineWithConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	rng := rand.New(rand.NewPCG(7, 0))
	if _, _, err := stressEngine(e, rng, 3000, func() bool { return false }); err != nil {
		t.Fatal(err)
	}
	if e.GCCycles() == 0 {
		t.Error("no collections ran")
	}
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "arr.snap")

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(append([]string{"--color", "off", "--config", dir}, args...))
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("qv4 %s: %v", strings.Join(args, " "), err)
		}
		return buf.String()
	}

	// --config needs a qv4.toml, so init runs first without it.
	rootCmd.SetArgs([]string{"init", dir})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("qv4 init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err != nil {
		t.Fatalf("init did not write %s: %v", manifest.FileName, err)
	}

	if out := run("coerce", "0x1F", "--fixed", "2"); !strings.Contains(out, "31.00") {
		t.Errorf("coerce output:\n%s", out)
	}
	if out := run("array", "1", "_", "3", "-x", "reverse"); !strings.Contains(out, "[3 _ 1]") {
		t.Errorf("array output:\n%s", out)
	}
	if out := run("gc", "--objects", "100", "--keep", "10"); !strings.Contains(out, "ok") {
		t.Errorf("gc output:\n%s", out)
	}

	saved := run("snapshot", "save", file, "1", "_", "x")
	shown := run("snapshot", "show", file)
	if !strings.Contains(shown, `[1 _ "x"]`) {
		t.Errorf("snapshot show output:\n%s", shown)
	}
	digest := saved[strings.Index(saved, "sha256"):]
	if !strings.Contains(shown, digest) {
		t.Errorf("digest changed between save and show:\n%s\n%s", saved, shown)
	}
}
