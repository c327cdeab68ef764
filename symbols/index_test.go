package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex()
	t.Cleanup(idx.Close)
	return idx
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIndexExactLookup(t *testing.T) {
	idx := newTestIndex(t)
	idx.UpdateFile("/p/config.go", []byte("package p\n\nfunc loadConfig() {}\n"))
	idx.UpdateFile("/p/server.go", []byte("package p\n\ntype Server struct{}\n"))

	got, err := idx.Symbols(context.Background(), "// Use load_config and the server", "/p/main.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "loadConfig" || got[1].Name != "Server" {
		t.Errorf("Symbols = %+v", got)
	}
}

func TestIndexFuzzyLookup(t *testing.T) {
	idx := newTestIndex(t)
	idx.UpdateFile("/p/s.go", []byte("package p\n\nfunc readSettingsFile() {}\n"))

	got, _ := idx.Symbols(context.Background(), "// then readSettingFile", "/p/a.go")
	if len(got) != 1 || got[0].Name != "readSettingsFile" {
		t.Errorf("fuzzy Symbols = %+v", got)
	}

	got, _ = idx.Symbols(context.Background(), "// totally unrelated words", "/p/a.go")
	if len(got) != 0 {
		t.Errorf("unrelated text matched %+v", got)
	}
}

func TestIndexPrefixLookup(t *testing.T) {
	idx := newTestIndex(t)
	idx.UpdateFile("/p/c.go", []byte("package p\n\nfunc parseHeader() {}\n\nfunc parseHeaderLine() {}\n"))

	got, _ := idx.Symbols(context.Background(), "// see parse_head", "/p/a.go")
	found := names(got)
	if len(got) != 2 || found["parseHeader"] == "" || found["parseHeaderLine"] == "" {
		t.Errorf("prefix Symbols = %+v", got)
	}

	// Short words are not expanded.
	got, _ = idx.Symbols(context.Background(), "// the par", "/p/a.go")
	if len(got) != 0 {
		t.Errorf("short prefix matched %+v", got)
	}
}

func TestIndexUpdateFileReplaces(t *testing.T) {
	idx := newTestIndex(t)
	idx.UpdateFile("/p/a.go", []byte("package p\n\nfunc oldHelper() {}\n"))
	idx.UpdateFile("/p/b.go", []byte("package p\n\nfunc sharedName() {}\n"))
	idx.UpdateFile("/p/a.go", []byte("package p\n\nfunc newHelper() {}\n\nfunc sharedName() {}\n"))

	ctx := context.Background()
	if got, _ := idx.Symbols(ctx, "// oldHelper", ""); len(got) != 0 {
		t.Errorf("removed declaration still found: %+v", got)
	}
	if got, _ := idx.Symbols(ctx, "// newHelper", ""); len(got) != 1 || got[0].Path != "/p/a.go" {
		t.Errorf("new declaration = %+v", got)
	}
	got, _ := idx.Symbols(ctx, "// sharedName", "")
	if len(got) != 2 {
		t.Errorf("sharedName = %+v, want one per file", got)
	}

	idx.UpdateFile("/p/a.go", []byte("package p\n"))
	if got, _ := idx.Symbols(ctx, "// sharedName", ""); len(got) != 1 || got[0].Path != "/p/b.go" {
		t.Errorf("sharedName after removal = %+v", got)
	}
}

func TestIndexEmpty(t *testing.T) {
	idx := newTestIndex(t)
	got, err := idx.Symbols(context.Background(), "// anything", "/p/a.go")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("Symbols = %#v, %v", got, err)
	}
}

func TestIndexBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main\n\nfunc startServer() {}\n")
	writeFile(t, filepath.Join(root, "scripts", "ci.sh"), "run_tests() {\n  go test\n}\n")
	writeFile(t, filepath.Join(root, "node_modules", "x.js"), "function ignoredThing() {}\n")
	writeFile(t, filepath.Join(root, ".hidden", "y.go"), "package y\nfunc hiddenThing() {}\n")

	idx := newTestIndex(t)
	if err := idx.Build(context.Background(), root, 0); err != nil {
		t.Fatal(err)
	}
	if idx.Root() != root {
		t.Errorf("Root = %q", idx.Root())
	}

	got, _ := idx.Symbols(context.Background(), "// startServer run_tests ignoredThing hiddenThing", "")
	found := names(got)
	if found["startServer"] == "" || found["run_tests"] == "" {
		t.Errorf("missing indexed symbols: %v", found)
	}
	if found["ignoredThing"] != "" || found["hiddenThing"] != "" {
		t.Errorf("skipped directories were indexed: %v", found)
	}
}

func TestIndexStaleBuildDiscarded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), "package a\nfunc oldName() {}\n")

	idx := newTestIndex(t)
	idx.mu.Lock()
	idx.gen = 2
	idx.mu.Unlock()

	if err := idx.Build(context.Background(), root, 1); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 {
		t.Errorf("superseded build was published (%d names)", idx.Len())
	}
}

func TestUpdateIndexRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib.py"), "def compute_total():\n    pass\n")

	idx := newTestIndex(t)
	idx.UpdateIndexRoot(root)

	deadline := time.Now().Add(5 * time.Second)
	for idx.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("background indexing never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if idx.Root() != root {
		t.Errorf("Root = %q", idx.Root())
	}
}

func TestNameVectorFoldsSeparators(t *testing.T) {
	a, b := nameVector("loadConfig"), nameVector("load_config")
	if s := similarity(a, b); s < 0.999 {
		t.Errorf("similarity = %v, want 1", s)
	}
}
