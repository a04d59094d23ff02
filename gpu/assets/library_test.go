package assets

import (
	"path/filepath"
	"testing"
)

func TestShaderLibraryCachesByLabel(t *testing.T) {
	dir := t.TempDir()
	writeSPIRV(t, filepath.Join(dir, "tri.vert.spv"))

	lib := NewShaderLibrary(dir)
	first, err := lib.Load("tri.vert")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := lib.Load("tri.vert")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first != second {
		t.Errorf("expected cached asset to be returned")
	}
	if first.Version != 0 {
		t.Errorf("initial version = %d, want 0", first.Version)
	}
}

func TestShaderLibraryInvalidateBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.vert.spv")
	writeSPIRV(t, path)

	lib := NewShaderLibrary(dir)
	first, err := lib.Load("tri.vert")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	writeSPIRV(t, path, 0xCAFEBABE)
	lib.Invalidate(path)

	if lib.Version("tri.vert") != first.Version+1 {
		t.Errorf("pending version = %d, want %d", lib.Version("tri.vert"), first.Version+1)
	}

	second, err := lib.Load("tri.vert")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if second == first {
		t.Errorf("invalidated asset should be reloaded")
	}
	if second.Version != first.Version+1 {
		t.Errorf("version = %d, want %d", second.Version, first.Version+1)
	}
	if second.Words[len(second.Words)-1] != 0xCAFEBABE {
		t.Errorf("reload did not pick up new content")
	}
}

func TestShaderLibraryInvalidateIgnoresOtherFiles(t *testing.T) {
	lib := NewShaderLibrary(t.TempDir())
	lib.Invalidate("shaders/readme.txt")
	if len(lib.stale) != 0 {
		t.Errorf("non-spv files must not create pending invalidations")
	}
}

func TestShaderLibraryMissingShader(t *testing.T) {
	lib := NewShaderLibrary(t.TempDir())
	if _, err := lib.Load("ghost"); err == nil {
		t.Errorf("missing shader should error")
	}
}
