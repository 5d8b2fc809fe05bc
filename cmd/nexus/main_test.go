package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zoobzio/nexus/journal"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestParseInput(t *testing.T) {
	cases := []struct {
		line string
		want any
	}{
		{"[23.5, 26.6, 20.2]", []float64{23.5, 26.6, 20.2}},
		{" [1,2] ", []float64{1, 2}},
		{"[]", []float64{}},
		{`{"value":"1"}`, `{"value":"1"}`},
		{`a,b\n1,2`, "a,b\n1,2"},
		{"[1, two]", "[1, two]"},
	}
	for _, tc := range cases {
		if got := parseInput(tc.line); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseInput(%q) = %#v, want %#v", tc.line, got, tc.want)
		}
	}
}

func TestRunCommand(t *testing.T) {
	t.Run("Arguments", func(t *testing.T) {
		out, _, err := execute(t, "", "run", sampleJSON, "[23.5, 26.6, 20.2]", `user,action\nalice,login`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Processed temperature reading: 23.5°C (Normal range)",
			"Stream summary: 3 readings, avg: 23.4°C",
			"User activity logged: 1 actions processed",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Contains(out, "degraded") {
			t.Errorf("expected no degraded results:\n%s", out)
		}
	})

	t.Run("Degraded Inputs Continue", func(t *testing.T) {
		out, logs, err := execute(t, "", "run", "{}", sampleJSON)
		if err != nil {
			t.Fatalf("a degraded run should not fail the command: %v", err)
		}
		if !strings.Contains(out, "degraded") || !strings.Contains(out, "no readings") {
			t.Errorf("expected degraded line with cause:\n%s", out)
		}
		if !strings.Contains(out, "Processed temperature reading") {
			t.Errorf("expected the second input to be processed:\n%s", out)
		}
		if !strings.Contains(logs, "run failed, continuing with fallback value") {
			t.Errorf("expected recovery notice in logs:\n%s", logs)
		}
	})

	t.Run("File From Stdin With Stats", func(t *testing.T) {
		stdin := sampleJSON + "\n\n[1, 2]\n"
		out, _, err := execute(t, stdin, "run", "--file", "-", "--stats")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Stream summary: 2 readings, avg: 1.5°C") {
			t.Errorf("expected stream summary:\n%s", out)
		}
		if !strings.Contains(out, "PIPELINE") || !strings.Contains(out, "nexus") {
			t.Errorf("expected stats table:\n%s", out)
		}
	})

	t.Run("No Inputs", func(t *testing.T) {
		if _, _, err := execute(t, "", "run"); err == nil {
			t.Error("expected error without inputs")
		}
	})

	t.Run("Config And Journal", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "nexus.yaml")
		cfg := "log_level: error\nworkers: 2\npipelines:\n  - name: sensors\n    kind: JSON\n"
		if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
			t.Fatal(err)
		}
		dbPath := filepath.Join(dir, "runs.db")

		_, _, err := execute(t, "", "run", "--config", cfgPath, "--journal", dbPath, sampleJSON, "42")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		store, err := journal.Open(dbPath)
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()
		entries, err := store.List(context.Background(), "sensors", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 journaled runs, got %d", len(entries))
		}
		if entries[0].Kind != "JSON" {
			t.Errorf("expected JSON kind, got %q", entries[0].Kind)
		}
	})

	t.Run("Bad Config", func(t *testing.T) {
		if _, _, err := execute(t, "", "run", "--config", "missing.yaml", "x"); err == nil {
			t.Error("expected error for missing config")
		}
	})
}

func TestDemoCommand(t *testing.T) {
	out, _, err := execute(t, "", "demo", "--no-color")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"═══ ADAPTERS ═══",
		"json-adapter Processed temperature reading: 23.5°C (Normal range)",
		"csv-adapter User activity logged: 3 actions processed",
		"stream-adapter Stream summary: 3 readings, avg: 23.4°C",
		"═══ RECOVERY ═══",
		"═══ STATS ═══",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, colorReset) {
		t.Error("expected no color codes with --no-color")
	}
}

func TestStagesCommand(t *testing.T) {
	out, _, err := execute(t, "", "stages")
	if err != nil {
		t.Fatal(err)
	}
	if out != "input\noutput\ntransform\n" {
		t.Errorf("unexpected stages %q", out)
	}
}
