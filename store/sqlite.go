// Package store persists segmentation runs, per-pixel beats and restitution
// triples to SQLite, and uploads triples to BigQuery.
package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/carbocation/optmap/cardiaccycle"
	"github.com/carbocation/optmap/compileinfo"
	"github.com/carbocation/optmap/restitution"
	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS run (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	dt REAL NOT NULL,
	threshold REAL NOT NULL,
	lead_beats INTEGER NOT NULL,
	commit_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS beat (
	run_id INTEGER NOT NULL REFERENCES run(id),
	pixel INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	kind TEXT NOT NULL,
	duration REAL,
	PRIMARY KEY (run_id, pixel, kind, idx)
);
CREATE TABLE IF NOT EXISTS triple (
	run_id INTEGER NOT NULL REFERENCES run(id),
	pixel INTEGER NOT NULL,
	beat INTEGER NOT NULL,
	di REAL,
	apd REAL,
	bcl REAL,
	PRIMARY KEY (run_id, pixel, beat)
);
`

// Beat kinds stored in the beat table.
const (
	KindAPD = cardiaccycle.KindAPD
	KindDI  = cardiaccycle.KindDI
)

// DB wraps a SQLite database holding runs.
type DB struct {
	*sqlx.DB
}

// Run describes one segmentation run.
type Run struct {
	ID         int64     `db:"id"`
	Source     string    `db:"source"`
	DT         float64   `db:"dt"`
	Threshold  float64   `db:"threshold"`
	Lead       int       `db:"lead_beats"`
	CommitHash string    `db:"commit_hash"`
	CreatedAt  time.Time `db:"created_at"`
}

// Beat is one stored duration. NaN durations are stored as NULL.
type Beat struct {
	RunID    int64      `db:"run_id"`
	Pixel    int        `db:"pixel"`
	Index    int        `db:"idx"`
	Kind     string     `db:"kind"`
	Duration null.Float `db:"duration"`
}

type tripleRow struct {
	RunID int64      `db:"run_id"`
	Pixel int        `db:"pixel"`
	Beat  int        `db:"beat"`
	DI    null.Float `db:"di"`
	APD   null.Float `db:"apd"`
	BCL   null.Float `db:"bcl"`
}

// Open connects to (creating if needed) the SQLite file at path and ensures
// the schema exists.
func Open(path string) (*DB, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &DB{DB: db}, nil
}

// CreateRun inserts a run, stamped with the binary's commit, and returns it
// with its ID set.
func (db *DB) CreateRun(ctx context.Context, source string, dt, threshold float64, lead int) (Run, error) {
	run := Run{
		Source:     source,
		DT:         dt,
		Threshold:  threshold,
		Lead:       lead,
		CommitHash: compileinfo.Get().Commit,
		CreatedAt:  time.Now().UTC(),
	}

	res, err := db.NamedExecContext(ctx, `INSERT INTO run (source, dt, threshold, lead_beats, commit_hash, created_at)
		VALUES (:source, :dt, :threshold, :lead_beats, :commit_hash, :created_at)`, run)
	if err != nil {
		return Run{}, pfx.Err(err)
	}

	run.ID, err = res.LastInsertId()
	if err != nil {
		return Run{}, pfx.Err(err)
	}

	return run, nil
}

// GetRun looks up a run by ID.
func (db *DB) GetRun(ctx context.Context, id int64) (Run, error) {
	var run Run
	if err := db.GetContext(ctx, &run, `SELECT * FROM run WHERE id = ?`, id); err != nil {
		return Run{}, pfx.Err(err)
	}

	return run, nil
}

// InsertBeats stores the APD and DI sequences of every successful pixel in a
// single transaction.
func (db *DB) InsertBeats(ctx context.Context, runID int64, results []cardiaccycle.PixelResult) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return pfx.Err(err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO beat (run_id, pixel, idx, kind, duration)
		VALUES (:run_id, :pixel, :idx, :kind, :duration)`)
	if err != nil {
		tx.Rollback()
		return pfx.Err(err)
	}
	defer stmt.Close()

	for _, r := range results {
		if !r.OK() {
			continue
		}

		for _, seq := range []struct {
			kind   string
			values []float64
		}{{KindAPD, r.APD}, {KindDI, r.DI}} {
			for i, v := range seq.values {
				b := Beat{RunID: runID, Pixel: r.Pixel, Index: i, Kind: seq.kind, Duration: finite(v)}
				if _, err := stmt.ExecContext(ctx, b); err != nil {
					tx.Rollback()
					return fmt.Errorf("pixel %d %s %d: %w", r.Pixel, seq.kind, i, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// Beats returns the stored durations of one kind for a pixel, in order.
func (db *DB) Beats(ctx context.Context, runID int64, pixel int, kind string) ([]Beat, error) {
	var out []Beat
	err := db.SelectContext(ctx, &out, `SELECT * FROM beat WHERE run_id = ? AND pixel = ? AND kind = ? ORDER BY idx`, runID, pixel, kind)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// InsertTriples stores a pooled run in a single transaction.
func (db *DB) InsertTriples(ctx context.Context, runID int64, triples []restitution.Triple) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return pfx.Err(err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO triple (run_id, pixel, beat, di, apd, bcl)
		VALUES (:run_id, :pixel, :beat, :di, :apd, :bcl)`)
	if err != nil {
		tx.Rollback()
		return pfx.Err(err)
	}
	defer stmt.Close()

	for _, v := range triples {
		row := tripleRow{
			RunID: runID,
			Pixel: v.Pixel,
			Beat:  v.Beat,
			DI:    finite(v.DI),
			APD:   finite(v.APD),
			BCL:   finite(v.BCL),
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			tx.Rollback()
			return fmt.Errorf("pixel %d beat %d: %w", v.Pixel, v.Beat, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// Triples reads back a run's triples ordered by pixel then beat. NULL values
// come back as NaN.
func (db *DB) Triples(ctx context.Context, runID int64) ([]restitution.Triple, error) {
	var rows []tripleRow
	err := db.SelectContext(ctx, &rows, `SELECT * FROM triple WHERE run_id = ? ORDER BY pixel, beat`, runID)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]restitution.Triple, 0, len(rows))
	for _, r := range rows {
		out = append(out, restitution.Triple{
			Pixel: r.Pixel,
			Beat:  r.Beat,
			DI:    orNaN(r.DI),
			APD:   orNaN(r.APD),
			BCL:   orNaN(r.BCL),
		})
	}

	return out, nil
}

func finite(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
}

func orNaN(v null.Float) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
