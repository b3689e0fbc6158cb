package conformance

import "testing"

func TestConformance(t *testing.T) {
	scenarios, err := LoadAll(FixturesPath)
	if err != nil {
		t.Fatalf("failed to load fixtures: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no scenarios loaded")
	}

	runner := NewRunner()
	results := runner.RunAll(scenarios)

	byFile := make(map[string][]Result)
	for _, r := range results {
		byFile[r.Scenario.File] = append(byFile[r.Scenario.File], r)
	}

	for file, fileResults := range byFile {
		t.Run(file, func(t *testing.T) {
			for _, r := range fileResults {
				name := r.Scenario.Scenario.Name
				t.Run(name, func(t *testing.T) {
					if r.Skipped {
						t.Skipf("skipped: %s", r.Reason)
						return
					}
					if !r.Passed {
						t.Errorf("scenario failed: %v", r.Err)
					}
				})
			}
		})
	}

	stats := ComputeStats(results)
	t.Logf("\n%s", FormatStats(stats))
	if stats.Failed > 0 {
		t.Errorf("%d of %d scenarios failed", stats.Failed, stats.Total)
	}
}

func TestLoadAll(t *testing.T) {
	scenarios, err := LoadAll(FixturesPath)
	if err != nil {
		t.Fatalf("failed to load fixtures: %v", err)
	}

	if len(scenarios) < 6 {
		t.Errorf("expected at least 6 scenarios (spec.md §8 names six), got %d", len(scenarios))
	}

	files := make(map[string]bool)
	for _, s := range scenarios {
		files[s.File] = true
		if s.Scenario.Name == "" {
			t.Errorf("scenario in %s has no name", s.File)
		}
		if s.Scenario.Kind == "" {
			t.Errorf("scenario %q in %s has no kind", s.Scenario.Name, s.File)
		}
	}
	if len(files) < 6 {
		t.Errorf("expected at least 6 fixture files, got %d", len(files))
	}
}

func TestLoadAllMissingDir(t *testing.T) {
	if _, err := LoadAll("internal/conformance/does-not-exist"); err == nil {
		t.Fatal("expected an error for a missing fixtures directory")
	}
}
