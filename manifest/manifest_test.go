package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/feeny/vm"
	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[heap]
semispace-bytes = 4096

[runtime]
slot-cache-size = 64
trace = true
stats = true

[log]
verbosity = 2
file = "feeny.log"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := vm.Options{SemispaceBytes: 4096, SlotCacheSize: 64, Trace: true}
	if diff := cmp.Diff(want, c.VMOptions()); diff != "" {
		t.Errorf("VMOptions mismatch (-want +got):\n%s", diff)
	}
	if !c.Runtime.Stats {
		t.Error("runtime.stats = false, want true")
	}
	if c.Log.Verbosity != 2 {
		t.Errorf("log.verbosity = %d, want 2", c.Log.Verbosity)
	}
	if p := c.LogPath(); p == nil || *p != "feeny.log" {
		t.Errorf("LogPath() = %v, want feeny.log", p)
	}
	if c.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", c.Path)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[runtime]\ntrace = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Heap.SemispaceBytes != vm.DefaultSemispaceBytes {
		t.Errorf("semispace-bytes = %d, want %d", c.Heap.SemispaceBytes, vm.DefaultSemispaceBytes)
	}
	if c.Runtime.SlotCacheSize != vm.DefaultSlotCacheSize {
		t.Errorf("slot-cache-size = %d, want %d", c.Runtime.SlotCacheSize, vm.DefaultSlotCacheSize)
	}
	if c.LogPath() != nil {
		t.Error("LogPath() should be nil for stderr")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[heap\n", "parse error"},
		{"unaligned heap", "[heap]\nsemispace-bytes = 100\n", "multiple of 8"},
		{"tiny heap", "[heap]\nsemispace-bytes = 16\n", "at least 32"},
		{"negative verbosity", "[log]\nverbosity = -1\n", "verbosity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[heap]\nsemispace-bytes = 1024\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c.Heap.SemispaceBytes != 1024 {
		t.Errorf("semispace-bytes = %d, want 1024", c.Heap.SemispaceBytes)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c.Path != "" {
		t.Skipf("found %s above the temp dir", c.Path)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}
