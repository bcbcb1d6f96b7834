package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/tclemos/map-bench/benchmark"
	"github.com/tclemos/map-bench/dataset"
	"github.com/tclemos/map-bench/report"
	"github.com/tclemos/map-bench/server"
	"github.com/tclemos/map-bench/store"
)

// History lists the stored records, optionally filtered by benchmark id,
// prints them and exports them when cfg.CSVPath is set.
func History(ctx context.Context, cfg Config, benchmarkID string) ([]benchmark.ResultRecord, error) {
	setupLog(cfg)

	st, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	all, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	records := all[:0:0]
	for _, r := range all {
		if benchmarkID == "" || r.BenchmarkID == benchmarkID {
			records = append(records, r)
		}
	}

	log.Info().
		Int("records", len(records)).
		Int("stored", len(all)).
		Str("benchmark_id", benchmarkID).
		Msg("Loaded result history")

	if len(records) == 0 {
		fmt.Fprintln(output(cfg), "No results to display.")
	} else {
		fmt.Fprintln(output(cfg), report.Table(records))
	}
	exportCSV(cfg.CSVPath, records)
	return records, nil
}

// Serve runs the results server on addr until ctx is done
func Serve(ctx context.Context, cfg Config, addr string) error {
	setupLog(cfg)

	if cfg.StoreType == store.TypeRemote.String() {
		return errors.Wrap(benchmark.ErrInvalidConfig, "the results server needs a local store")
	}
	st, err := createStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return server.New(addr, st).Run(ctx)
}

// WriteDataset generates count synthetic points and writes them as GeoJSON
func WriteDataset(path string, seed int64, count int) error {
	if count < 0 || count > dataset.MaxPoints {
		return errors.Wrapf(benchmark.ErrInvalidConfig, "point count must be from 0 to %d", dataset.MaxPoints)
	}
	points := dataset.Generate(seed, count)
	if err := writeGeoJSONFile(path, points); err != nil {
		return err
	}

	log.Info().
		Str("path", path).
		Int("points", len(points)).
		Str("digest", dataset.Digest(points)).
		Msg("Dataset written")
	return nil
}

func writeGeoJSONFile(path string, points []dataset.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating dataset file")
	}
	if err := dataset.WriteGeoJSON(f, points); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}
