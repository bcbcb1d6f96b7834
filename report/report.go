// Package report renders result records for the terminal and exports them
// as CSV.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cockroachdb/errors"
	"github.com/tclemos/map-bench/benchmark"
)

const (
	// NotAvailable marks a missing optional measurement
	NotAvailable = "N/A"
	// FailedMarker replaces the measurements of a failed run
	FailedMarker = "error"
)

// ErrNoResults is returned when there is nothing to export
var ErrNoResults = errors.New("no results to export")

const bom = "\uFEFF"

// Header is the column set shared by the table and the CSV export
var Header = []string{
	"Library",
	"Data load (ms)",
	"Render (ms)",
	"FPS",
	"Memory (MB)",
	"Overall performance",
	"Points",
	"Timestamp",
	"Status",
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("12"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	failedStyle = cellStyle.Foreground(lipgloss.Color("9"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Rank returns the records best first under policy. Failed runs keep their
// relative order after every successful one.
func Rank(records []benchmark.ResultRecord, policy benchmark.Policy) []benchmark.ResultRecord {
	if policy == nil {
		policy = benchmark.Reciprocal{}
	}
	ranked := append([]benchmark.ResultRecord(nil), records...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}
		if a.Failed() {
			return false
		}
		return policy.Better(a.OverallPerformance, b.OverallPerformance)
	})
	return ranked
}

// Row formats one record with the columns of Header
func Row(r benchmark.ResultRecord) []string {
	row := []string{r.Library}
	if r.Failed() {
		row = append(row, FailedMarker, FailedMarker, FailedMarker, FailedMarker, FailedMarker)
	} else {
		m := r.Metrics
		row = append(row,
			formatFloat(m.DataLoadTimeMs, 2),
			formatFloat(m.RenderTimeMs, 2),
			formatFloat(m.FPS, 1),
			formatOptional(m.MemoryUsedMB, 2),
			formatFloat(r.OverallPerformance, 2),
		)
	}
	row = append(row, strconv.Itoa(r.PointCount), formatTime(r.Timestamp), status(r))
	return row
}

// Table renders the records in the given order
func Table(records []benchmark.ResultRecord) string {
	failed := make(map[int]bool, len(records))
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = Row(r)
		failed[i] = r.Failed()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Header...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case failed[row]:
				return failedStyle
			case col >= 1 && col <= 6:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// WriteCSV writes a byte order mark, the header and one line per record
func WriteCSV(w io.Writer, records []benchmark.ResultRecord) error {
	if len(records) == 0 {
		return ErrNoResults
	}
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the records to path
func ExportCSV(path string, records []benchmark.ResultRecord) error {
	if len(records) == 0 {
		return ErrNoResults
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating csv file")
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func status(r benchmark.ResultRecord) string {
	if !r.Failed() {
		return "ok"
	}
	if r.ErrorKind != "" {
		return r.ErrorKind
	}
	return FailedMarker
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return NotAvailable
	}
	return formatFloat(*v, prec)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return NotAvailable
	}
	return ts.Format(time.RFC3339)
}
