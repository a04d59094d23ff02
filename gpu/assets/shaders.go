package assets

import (
	"fmt"
	"os"
)

// spirvMagic is the first word of every valid SPIR-V module.
const spirvMagic uint32 = 0x07230203

// LoadSPIRV reads a compiled shader and returns it as the 32-bit words
// the driver consumes.
func LoadSPIRV(path string) ([]uint32, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader %s: %w", path, err)
	}
	words, err := bytesToWords(buf)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", path, err)
	}
	return words, nil
}

func bytesToWords(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("bytecode length %d is not a multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	if byteCode[0] != spirvMagic {
		return nil, fmt.Errorf("bad magic number %#08x", byteCode[0])
	}
	return byteCode, nil
}
