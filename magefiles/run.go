//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates the shaders and runs the testbed.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests with the race detector on the packages that own goroutines.
func (Test) Race() error {
	_, err := executeCmd("go",
		withArgs("test", "-race", "./engine/resources/...", "./engine/systems/...", "./engine/assets/..."),
		withEnv("CGO_ENABLED", "1"),
		withStream())
	return err
}
