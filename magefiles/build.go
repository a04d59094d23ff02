//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage under assets/shaders to SPIR-V next to its
// source, so triangle.vert becomes triangle.vert.spv.
func (Build) Shaders() error {
	entries, err := os.ReadDir(shaderDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".vert", ".frag", ".comp":
		default:
			continue
		}
		src := filepath.Join(shaderDir, e.Name())
		if _, err := executeCmd("glslc", withArgs(src, "-o", src+".spv"), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the demo binary into bin/.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/materia", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs go vet across the module.
func Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs the test suite.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
