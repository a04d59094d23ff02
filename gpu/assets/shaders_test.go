package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeSPIRV writes a minimal valid module: magic, version, generator,
// bound, schema, then the given extra words.
func writeSPIRV(t *testing.T, path string, extra ...uint32) {
	t.Helper()
	words := append([]uint32{spirvMagic, 0x00010000, 0, 1, 0}, extra...)
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSPIRV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.vert.spv")
	writeSPIRV(t, path, 0xDEADBEEF)

	words, err := LoadSPIRV(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if words[0] != spirvMagic {
		t.Errorf("first word = %#08x, want magic", words[0])
	}
	if words[len(words)-1] != 0xDEADBEEF {
		t.Errorf("last word = %#08x, want 0xDEADBEEF", words[len(words)-1])
	}
}

func TestLoadSPIRVRejectsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spv")
	if err := os.WriteFile(path, []byte{0x03, 0x02, 0x23}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSPIRV(path); err == nil {
		t.Errorf("truncated bytecode should fail")
	}
}

func TestLoadSPIRVRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spv")
	if err := os.WriteFile(path, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSPIRV(path); err == nil {
		t.Errorf("wrong magic should fail")
	}
}
