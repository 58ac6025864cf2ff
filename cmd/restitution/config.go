package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/carbocation/optmap/cardiaccycle"
	"github.com/carbocation/optmap/restitution"
)

// Config is filled from flags and, optionally, a JSON file. Keys present in
// the file override the flags; absent keys leave them alone.
type Config struct {
	File          string  `json:"file"`
	DT            float64 `json:"dt"`
	Threshold     float64 `json:"threshold"`
	Lead          int     `json:"lead"`
	Workers       int     `json:"workers"`
	ProgressEvery int     `json:"progress"`

	Normalize string  `json:"normalize"`
	LowPassHz float64 `json:"lowpass_hz"`
	SampleHz  float64 `json:"sample_hz"`
	Mask      bool    `json:"mask"`
	Width     int     `json:"width"`

	KeepNonFinite bool `json:"keep_nonfinite"`
	SkipTainted   bool `json:"skip_tainted"`

	Out       string `json:"out"`
	Beats     string `json:"beats"`
	DB        string `json:"db"`
	BQProject string `json:"bq_project"`
	BQDataset string `json:"bq_dataset"`
	BQTable   string `json:"bq_table"`
}

func DefaultConfig() Config {
	return Config{
		DT:            1,
		Threshold:     cardiaccycle.DefaultThreshold,
		Lead:          restitution.DefaultLead,
		ProgressEvery: 10000,
		Normalize:     "none",
		Out:           "-",
	}
}

// Load overlays the JSON file at path onto c.
func (c *Config) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

func (c Config) Validate() error {
	if c.File == "" {
		return fmt.Errorf("no input file given")
	}
	if c.LowPassHz > 0 && c.SampleHz <= 0 {
		return fmt.Errorf("-lowpass %v requires a positive -sample-hz", c.LowPassHz)
	}
	if c.BQProject != "" && (c.BQDataset == "" || c.BQTable == "") {
		return fmt.Errorf("-bq-project requires -bq-dataset and -bq-table")
	}

	return nil
}
