//go:build mage

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/assets/loaders"
)

const (
	assetsDir = "assets"
	buildDir  = "build"
	packFile  = "build/assets.pak"
)

type Build mg.Namespace

// Decodes every .shadercfg under assets/ and reports the broken ones.
func (Build) Shaders() error {
	var decoder loaders.ShaderConfigDecoder
	var broken []string
	err := filepath.WalkDir(assetsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".shadercfg" {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := decoder.Decode(raw); err != nil {
			broken = append(broken, fmt.Sprintf("%s: %s", path, err))
			return nil
		}
		fmt.Printf("shader ok: %s\n", path)
		return nil
	})
	if err != nil {
		return err
	}
	if len(broken) > 0 {
		return fmt.Errorf("invalid shader configs:\n%s", strings.Join(broken, "\n"))
	}
	return nil
}

// Packs the loose asset files into build/assets.pak.
func (Build) Pack() error {
	mg.Deps(Build.Shaders)

	builder := assets.NewPackBuilder(os.Getenv("USER"))
	count := 0
	err := filepath.WalkDir(assetsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(assetsDir, path)
		if err != nil {
			return err
		}
		count++
		return builder.Add(filepath.ToSlash(rel), raw)
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return err
	}
	out, err := os.Create(packFile)
	if err != nil {
		return err
	}
	defer out.Close()
	n, err := builder.WriteTo(out)
	if err != nil {
		return err
	}
	fmt.Printf("packed %d files into %s (%d bytes)\n", count, packFile, n)
	return nil
}

// Builds the testbed binary into build/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join(buildDir, "alaska"), "."), withStream())
	return err
}
