package store

import (
	"context"
	"fmt"
	"math"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/optmap/restitution"
)

// DefaultBatchSize bounds the rows sent per streaming insert.
const DefaultBatchSize = 500

type WrappedBigQuery struct {
	Context  context.Context
	Client   *bigquery.Client
	Project  string
	Database string
	Table    string
}

// Connect opens a BigQuery client for the project.
func (bq *WrappedBigQuery) Connect(ctx context.Context) error {
	var err error
	bq.Context = ctx
	bq.Client, err = bigquery.NewClient(ctx, bq.Project)
	if err != nil {
		return fmt.Errorf("connecting to BigQuery: %v", err)
	}

	return nil
}

func (bq *WrappedBigQuery) Close() error {
	if bq.Client == nil {
		return nil
	}
	return bq.Client.Close()
}

// Inserter streams rows into Database.Table.
func (bq *WrappedBigQuery) Inserter() *bigquery.Inserter {
	return bq.Client.Dataset(bq.Database).Table(bq.Table).Inserter()
}

// Putter is the part of *bigquery.Inserter that UploadTriples needs.
type Putter interface {
	Put(ctx context.Context, src interface{}) error
}

// TripleRow is the BigQuery shape of a triple. Non-finite values are NULL.
type TripleRow struct {
	RunID string               `bigquery:"run_id"`
	Pixel int64                `bigquery:"pixel"`
	Beat  int64                `bigquery:"beat"`
	DI    bigquery.NullFloat64 `bigquery:"di"`
	APD   bigquery.NullFloat64 `bigquery:"apd"`
	BCL   bigquery.NullFloat64 `bigquery:"bcl"`
}

// UploadTriples streams triples tagged with runID in batches of at most
// batchSize rows. A batchSize <= 0 means DefaultBatchSize.
func UploadTriples(ctx context.Context, put Putter, runID string, triples []restitution.Triple, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	batch := make([]*TripleRow, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := put.Put(ctx, batch); err != nil {
			return err
		}
		batch = make([]*TripleRow, 0, batchSize)
		return nil
	}

	for _, v := range triples {
		batch = append(batch, &TripleRow{
			RunID: runID,
			Pixel: int64(v.Pixel),
			Beat:  int64(v.Beat),
			DI:    nullFloat64(v.DI),
			APD:   nullFloat64(v.APD),
			BCL:   nullFloat64(v.BCL),
		})

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("uploading triples for run %s: %w", runID, err)
			}
		}
	}

	if err := flush(); err != nil {
		return fmt.Errorf("uploading triples for run %s: %w", runID, err)
	}

	return nil
}

func nullFloat64(v float64) bigquery.NullFloat64 {
	return bigquery.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}
