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

// Build compiles every executable into ./bin
func Build() error {
	mg.Deps(BuildEvt2hdf5, BuildEvtinfo)
	fmt.Println("Compilation finished")
	return nil
}

func BuildEvt2hdf5() error {
	fmt.Println("Building evt2hdf5 executable...")
	return goBuild("./bin/evt2hdf5", "./evt2hdf5")
}

func BuildEvtinfo() error {
	fmt.Println("Building evtinfo executable...")
	return goBuild("./bin/evtinfo", "./evtinfo")
}

// Test runs the package tests. HDF5 headers and libraries must be reachable
// through CGO_CFLAGS and CGO_LDFLAGS.
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(output string, pkg string) error {
	cmd := exec.Command("go", "build", "-o", output, pkg)
	cmd.Env = cgoEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func cgoEnv() []string {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	return append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
}
