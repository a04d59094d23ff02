//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the windowed demo.
func (Run) Demo() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run demo...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}

// Compiles the shaders and runs the demo offscreen for a fixed frame
// count.
func (Run) Headless() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("run", "main.go", "-headless"), withStream()); err != nil {
		return err
	}
	return nil
}
