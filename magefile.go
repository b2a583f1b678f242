//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildVertexing)
	mg.Deps(BuildCoincidences)
	fmt.Println("Compilation finished")
	return nil
}

func cgoCommand(args ...string) *exec.Cmd {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func BuildVertexing() error {
	fmt.Println("Building vertexing executable...")
	return cgoCommand("build", "-o", "./bin/vertexing", "./vertexing").Run()
}

func BuildCoincidences() error {
	fmt.Println("Building coincidences executable...")
	return cgoCommand("build", "-o", "./bin/coincidences", "./coincidences").Run()
}

// Test runs the analysis package tests. The HDF5 writer needs libhdf5 and is
// only compiled, through the binaries.
func Test() error {
	fmt.Println("Running tests...")
	return cgoCommand("test", "./pkg/").Run()
}
