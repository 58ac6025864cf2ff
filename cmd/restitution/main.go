package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/optmap/cardiaccycle"
	"github.com/carbocation/optmap/restitution"
	"github.com/carbocation/optmap/store"
	"github.com/carbocation/optmap/voltage"
	"github.com/carbocation/pfx"

	_ "github.com/carbocation/optmap/compileinfoprint"
)

func main() {
	var (
		cfg        = DefaultConfig()
		configPath string
	)

	flag.StringVar(&cfg.File, "file", "", "Texture export of the voltage recording (local path or gs://bucket/path). May be compressed.")
	flag.Float64Var(&cfg.DT, "dt", cfg.DT, "Sampling interval between consecutive voltage samples")
	flag.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Normalized voltage level that delimits activation from rest, in (0, 1)")
	flag.IntVar(&cfg.Lead, "lead", cfg.Lead, "Number of leading APD beats of each pixel that are not paired")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Pixels segmented concurrently. 0 means 4 per CPU.")
	flag.IntVar(&cfg.ProgressEvery, "progress", cfg.ProgressEvery, "Log progress after this many pixels. 0 disables progress lines.")
	flag.StringVar(&cfg.Normalize, "normalize", cfg.Normalize, "Per-pixel normalization: none, minmax or zscore")
	flag.Float64Var(&cfg.LowPassHz, "lowpass", cfg.LowPassHz, "If nonzero, Butterworth low-pass cutoff (Hz) applied before normalization. Requires -sample-hz.")
	flag.Float64Var(&cfg.SampleHz, "sample-hz", cfg.SampleHz, "Sampling rate in Hz, used by -lowpass")
	flag.BoolVar(&cfg.Mask, "mask", cfg.Mask, "Only segment pixels inside the circle inscribed in the image")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "Image width in pixels, used by -mask. 0 means the image is square.")
	flag.BoolVar(&cfg.KeepNonFinite, "keep-nonfinite", cfg.KeepNonFinite, "Keep triples with NaN or infinite values instead of dropping them")
	flag.BoolVar(&cfg.SkipTainted, "skip-tainted", cfg.SkipTainted, "Skip every pixel whose trace held any NaN or infinite sample")
	flag.StringVar(&cfg.Out, "out", cfg.Out, "Path for the pooled (pixel, beat, DI, APD, BCL) CSV. '-' means stdout.")
	flag.StringVar(&cfg.Beats, "beats", cfg.Beats, "Optional path for the per-pixel APD and DI CSV")
	flag.StringVar(&cfg.DB, "db", cfg.DB, "Optional SQLite file that receives the run, its beats and its triples")
	flag.StringVar(&cfg.BQProject, "bq-project", cfg.BQProject, "Optional Google Cloud project for uploading triples to BigQuery")
	flag.StringVar(&cfg.BQDataset, "bq-dataset", cfg.BQDataset, "BigQuery dataset, used with -bq-project")
	flag.StringVar(&cfg.BQTable, "bq-table", cfg.BQTable, "BigQuery table, used with -bq-project")
	flag.StringVar(&configPath, "config", "", "Optional JSON file whose values override the flags")
	flag.Parse()

	if configPath != "" {
		if err := cfg.Load(configPath); err != nil {
			log.Fatalln(err)
		}
	}

	if cfg.File == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	log.Println("Started restitution analysis of", cfg.File)

	if err := run(ctx, cfg); err != nil {
		log.Fatalln(err)
	}

	log.Printf("Completed in %.1f seconds\n", time.Since(started).Seconds())
}

func run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var client *storage.Client
	if strings.HasPrefix(cfg.File, "gs://") {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			return pfx.Err(err)
		}
		defer client.Close()
	}

	m, err := voltage.Load(ctx, cfg.File, client, 0)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	log.Printf("Loaded %d pixels of %d samples\n", m.Pixels(), m.Samples())

	method, err := voltage.ParseMethod(cfg.Normalize)
	if err != nil {
		return err
	}
	m, err = voltage.Normalize(m, voltage.NormalizeOptions{
		Method:    method,
		LowPassHz: cfg.LowPassHz,
		SampleHz:  cfg.SampleHz,
	})
	if err != nil {
		return err
	}

	var pixels []int
	if cfg.Mask {
		grid, err := voltage.GridFor(m.Pixels(), cfg.Width)
		if err != nil {
			return err
		}
		pixels = grid.CircularMask(grid.Inscribed())
		log.Printf("Masked to %d of %d pixels on a %dx%d grid\n", len(pixels), m.Pixels(), grid.Width, grid.Height)
	}

	results, err := cardiaccycle.RunFromSlices(ctx, m, pixels, cardiaccycle.Config{
		DT:            cfg.DT,
		Threshold:     cfg.Threshold,
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Logger:        log.Default(),
	})
	if err != nil {
		return err
	}

	ok := cardiaccycle.Succeeded(results)
	log.Printf("Segmented %d of %d pixels\n", len(ok), len(results))

	pool, err := restitution.Aggregate(restitution.FromResults(results), restitution.Options{
		Lead:              cfg.Lead,
		KeepNonFinite:     cfg.KeepNonFinite,
		SkipTaintedPixels: cfg.SkipTainted,
	})
	if err != nil {
		return err
	}
	log.Printf("Pooled %d triples from %d pixels (%d dropped as non-finite, %d pixels skipped)\n",
		len(pool.Triples), pool.Pixels, pool.Dropped, pool.SkippedPixels)

	report(pool)

	if cfg.Out != "" {
		if err := writeFile(cfg.Out, func(f *os.File) error { return restitution.WriteCSV(f, pool.Triples) }); err != nil {
			return err
		}
	}

	if cfg.Beats != "" {
		if err := writeFile(cfg.Beats, func(f *os.File) error { return cardiaccycle.WriteBeatsCSV(f, results) }); err != nil {
			return err
		}
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	if cfg.DB != "" {
		id, err := persist(ctx, cfg, results, pool)
		if err != nil {
			return err
		}
		runID = strconv.FormatInt(id, 10)
		log.Println("Stored run", runID, "in", cfg.DB)
	}

	if cfg.BQProject != "" {
		bq := &store.WrappedBigQuery{
			Project:  cfg.BQProject,
			Database: cfg.BQDataset,
			Table:    cfg.BQTable,
		}
		if err := bq.Connect(ctx); err != nil {
			return err
		}
		defer bq.Close()

		if err := store.UploadTriples(ctx, bq.Inserter(), runID, pool.Triples, 0); err != nil {
			return err
		}
		log.Printf("Uploaded %d triples to %s.%s.%s\n", len(pool.Triples), cfg.BQProject, cfg.BQDataset, cfg.BQTable)
	}

	return nil
}

// report logs summary statistics and restitution fits. Fits that cannot be
// made are logged and skipped.
func report(pool restitution.Pool) {
	if s, err := pool.Summarize(); err != nil {
		log.Println("Summary:", err)
	} else {
		log.Println("DI: ", s.DI)
		log.Println("APD:", s.APD)
		log.Println("BCL:", s.BCL)
	}

	for _, v := range []struct {
		name string
		fit  func() (restitution.Fit, error)
	}{
		{"APD ~ DI", pool.Restitution},
		{"APD ~ ln(DI)", pool.LogRestitution},
		{"APD ~ BCL", pool.Dynamic},
	} {
		fit, err := v.fit()
		if err != nil {
			log.Printf("%s: %v\n", v.name, err)
			continue
		}
		log.Printf("%s: %s\n", v.name, fit)
	}
}

func persist(ctx context.Context, cfg Config, results []cardiaccycle.PixelResult, pool restitution.Pool) (int64, error) {
	db, err := store.Open(cfg.DB)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	run, err := db.CreateRun(ctx, cfg.File, cfg.DT, cfg.Threshold, cfg.Lead)
	if err != nil {
		return 0, err
	}

	if err := db.InsertBeats(ctx, run.ID, results); err != nil {
		return 0, err
	}

	if err := db.InsertTriples(ctx, run.ID, pool.Triples); err != nil {
		return 0, err
	}

	return run.ID, nil
}

func writeFile(path string, write func(*os.File) error) error {
	if path == "-" {
		return write(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	return f.Close()
}
