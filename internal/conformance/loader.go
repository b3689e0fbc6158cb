package conformance

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FixturesPath is the default directory of scenario fixture files,
// relative to this package's directory, which is the working directory
// of `go test` (spec.md §8 end-to-end scenarios).
const FixturesPath = "fixtures"

// LoadedScenario is one scenario together with the file and suite it came
// from, mirroring barn/conformance's LoadedTest.
type LoadedScenario struct {
	File     string
	Suite    Suite
	Scenario Scenario
}

// LoadAll walks fixturesDir and loads every *.yaml scenario file beneath
// it. A file that fails to parse is reported on stderr and skipped rather
// than aborting the whole run, matching barn/conformance/loader.go's
// per-file tolerance (some fixtures may be authored by hand and have
// transient YAML mistakes).
func LoadAll(fixturesDir string) ([]LoadedScenario, error) {
	if _, err := os.Stat(fixturesDir); err != nil {
		return nil, fmt.Errorf("conformance: fixtures directory %q: %w", fixturesDir, err)
	}

	var loaded []LoadedScenario
	err := filepath.Walk(fixturesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		scenarios, suite, err := loadFile(path)
		if err != nil {
			relPath, _ := filepath.Rel(fixturesDir, path)
			fmt.Fprintf(os.Stderr, "conformance: skipping %s: %v\n", relPath, err)
			return nil
		}

		relPath, _ := filepath.Rel(fixturesDir, path)
		for _, s := range scenarios {
			loaded = append(loaded, LoadedScenario{File: relPath, Suite: suite, Scenario: s})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadFile(path string) ([]Scenario, Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Suite{}, err
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, Suite{}, err
	}
	return suite.Scenarios, suite, nil
}
