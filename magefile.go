//go:build mage
// +build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary  = "bin/videolens-server"
	wireDir = "./internal/infra/wire"
)

// Default target when running mage without arguments.
var Default = Build

// Build regenerates the wire graph and builds the server binary.
func Build() error {
	mg.Deps(Wire)
	fmt.Println("Building", binary)
	return sh.Run("go", "build", "-o", binary, "./cmd/server")
}

// Wire regenerates internal/infra/wire/wire_gen.go. Needs the wire binary on PATH.
func Wire() error {
	fmt.Println("Running wire in", wireDir)
	return sh.Run("wire", wireDir)
}

// Test runs all tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover runs the tests and writes coverage.out.
func Cover() error {
	return sh.RunV("go", "test", "-race", "-coverprofile=coverage.out", "./...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// CI checks that the wire graph is current, then lints and tests.
func CI() error {
	mg.SerialDeps(Wire, Lint, Cover)
	return sh.RunV("git", "diff", "--exit-code", "--", wireDir)
}
