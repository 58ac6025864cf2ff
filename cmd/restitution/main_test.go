package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/optmap/restitution"
	"github.com/carbocation/optmap/store"
)

// writeTexture writes a texture export of three pixels. Each time step is a
// time cell followed by one value per pixel, and every step after the first
// carries the ';' marker in its time cell.
func writeTexture(t *testing.T, traces [3][]float64) string {
	t.Helper()

	cells := []string{}
	for step := range traces[0] {
		marker := ""
		if step > 0 {
			marker = ";"
		}
		cells = append(cells, fmt.Sprintf("%s%d", marker, step))
		for p := range traces {
			cells = append(cells, fmt.Sprint(traces[p][step]))
		}
	}

	path := filepath.Join(t.TempDir(), "texture.csv")
	if err := os.WriteFile(path, []byte(strings.Join(cells, ",")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestRun(t *testing.T) {
	// Three pixels beating with period 10 and width 4, at different phases.
	var traces [3][]float64
	for p := range traces {
		traces[p] = make([]float64, 60)
		for i := range traces[p] {
			if (i+2*p)%10 < 4 {
				traces[p][i] = 1
			}
		}
	}

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.File = writeTexture(t, traces)
	cfg.Threshold = 0.5
	cfg.Out = filepath.Join(dir, "triples.csv")
	cfg.Beats = filepath.Join(dir, "beats.csv")
	cfg.DB = filepath.Join(dir, "runs.sqlite")

	if err := run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(cfg.Out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	triples, err := restitution.ReadCSV(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) == 0 {
		t.Fatalf("no triples written")
	}
	for _, v := range triples {
		if v.APD != 4 || v.DI != 6 || v.BCL != 10 {
			t.Fatalf("unexpected triple %+v", v)
		}
	}

	db, err := store.Open(cfg.DB)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stored, err := db.Triples(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != len(triples) {
		t.Fatalf("stored %d triples, wrote %d to CSV", len(stored), len(triples))
	}

	if b, err := os.ReadFile(cfg.Beats); err != nil || !strings.HasPrefix(string(b), "pixel,kind,index,duration\n") {
		t.Fatalf("unexpected beats file (%v)", err)
	}
}

func TestConfigLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"file": "gs://bucket/texture.csv", "threshold": 0.4, "mask": true}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Lead = 3
	if err := cfg.Load(path); err != nil {
		t.Fatal(err)
	}

	if cfg.File != "gs://bucket/texture.csv" || cfg.Threshold != 0.4 || !cfg.Mask || cfg.Lead != 3 || cfg.Out != "-" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, cfg := range []Config{
		{},
		{File: "x", LowPassHz: 10},
		{File: "x", BQProject: "p"},
	} {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected an error for %+v", cfg)
		}
	}
}
