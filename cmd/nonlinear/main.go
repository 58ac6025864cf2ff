package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/optmap/nonlinear"
	"github.com/carbocation/optmap/voltage"
	"github.com/carbocation/pfx"

	_ "github.com/carbocation/optmap/compileinfoprint"
)

type options struct {
	File      string
	Pixel     int
	Name      string
	Normalize string
	DumpDir   string
	D2        bool
	Lyap      bool
	Timeout   time.Duration
}

func main() {
	opts := options{}

	flag.StringVar(&opts.File, "file", "", "Texture export of the voltage recording (local path or gs://bucket/path)")
	flag.IntVar(&opts.Pixel, "pixel", 0, "Index of the pixel whose trace is analyzed")
	flag.StringVar(&opts.Name, "name", "output", "Base name of the <name>.dat trace file")
	flag.StringVar(&opts.Normalize, "normalize", "none", "Per-pixel normalization: none, minmax or zscore")
	flag.StringVar(&opts.DumpDir, "dump", "", "If set, write <name>.dat into this directory")
	flag.BoolVar(&opts.D2, "d2", false, "Run d2 and report the correlation dimension plateau")
	flag.BoolVar(&opts.Lyap, "lyap", false, "Run lyap_k and report the maximal Lyapunov exponent")
	flag.DurationVar(&opts.Timeout, "timeout", 30*time.Minute, "Limit on the total time spent in the estimators. 0 means no limit.")
	flag.Parse()

	if opts.File == "" || (opts.DumpDir == "" && !opts.D2 && !opts.Lyap) {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, nonlinear.Runner{}); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, opts options, runner nonlinear.Runner) error {
	trace, err := loadTrace(ctx, opts)
	if err != nil {
		return err
	}
	log.Printf("Pixel %d: %d samples\n", opts.Pixel, len(trace))

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if opts.DumpDir != "" {
		path := filepath.Join(opts.DumpDir, opts.Name+".dat")
		if err := voltage.WriteFlatFile(path, trace); err != nil {
			return err
		}
		log.Println("Wrote", path)
	}

	if opts.D2 {
		req := nonlinear.NewD2Request(trace)
		req.Name = opts.Name

		resp, err := runner.CorrelationDimension(ctx, req)
		if err != nil {
			return err
		}

		dims := make([]int, 0, len(resp.Plateau.PerDim))
		for d := range resp.Plateau.PerDim {
			dims = append(dims, d)
		}
		sort.Ints(dims)
		for _, d := range dims {
			log.Printf("D2 dim %d: %.4f\n", d, resp.Plateau.PerDim[d])
		}
		fmt.Printf("d2\t%d\t%g\n", opts.Pixel, resp.Plateau.Average)
	}

	if opts.Lyap {
		req := nonlinear.NewLyapRequest(trace)
		req.Name = opts.Name

		// lyap_k needs enough samples to embed the trace at the fitted dimension.
		if _, err := nonlinear.DelayEmbed(trace, req.Dim, 1); err != nil {
			return err
		}

		resp, err := runner.Lyapunov(ctx, req)
		if err != nil {
			return err
		}

		log.Printf("Lyapunov fit at epsilon %g over %d points\n", resp.Slope.Epsilon, resp.Slope.N)
		fmt.Printf("lyap\t%d\t%g\n", opts.Pixel, resp.Slope.Slope)
	}

	return nil
}

func loadTrace(ctx context.Context, opts options) ([]float64, error) {
	var client *storage.Client
	if strings.HasPrefix(opts.File, "gs://") {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer client.Close()
	}

	m, err := voltage.Load(ctx, opts.File, client, 0)
	if err != nil {
		return nil, err
	}

	if opts.Pixel < 0 || opts.Pixel >= m.Pixels() {
		return nil, fmt.Errorf("pixel %d is out of range; the recording has %d pixels", opts.Pixel, m.Pixels())
	}

	method, err := voltage.ParseMethod(opts.Normalize)
	if err != nil {
		return nil, err
	}

	m, err = voltage.Normalize(voltage.Matrix{m[opts.Pixel]}, voltage.NormalizeOptions{Method: method})
	if err != nil {
		return nil, err
	}

	return m[0], nil
}
