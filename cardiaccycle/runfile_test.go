package cardiaccycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunFromFile(t *testing.T) {
	// Three pixels; pixel 1 beats once, the others rest.
	pixel1 := []float64{0, 0, 1, 1, 1, 0, 0}

	cells := []string{}
	for step, v := range pixel1 {
		marker := ""
		if step > 0 {
			marker = ";"
		}
		cells = append(cells, fmt.Sprintf("%s%d", marker, step), "0.1", fmt.Sprint(v), "0.2")
	}

	path := filepath.Join(t.TempDir(), "texture.csv")
	if err := os.WriteFile(path, []byte(strings.Join(cells, ",")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	results, err := RunFromFile(context.Background(), path, nil, Config{DT: 1, Threshold: 0.5})
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d pixels, expected 3", len(results))
	}

	if got := results[1].APD; len(got) != 1 || got[0] != 3 {
		t.Fatalf("pixel 1 APD = %v, expected [3]", got)
	}

	for _, p := range []int{0, 2} {
		if len(results[p].APD) != 0 {
			t.Fatalf("pixel %d should not beat, got APD %v", p, results[p].APD)
		}
	}
}
