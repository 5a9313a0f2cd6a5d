package templog

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
)

// csvHeader matches the store's column order exactly; spreadsheet
// consumers depend on it.
var csvHeader = []string{"timestamp", "device", "channel", "value", "unit"}

// WriteCSV serializes the iterator to w as a header row plus one row
// per sample, returning the number of data rows written.
func WriteCSV(w io.Writer, rows *Rows) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, errors.Wrap(err, "write csv header")
	}

	n := 0
	for rows.Next() {
		s := rows.Sample()
		record := []string{
			s.Timestamp.Format(TimeFormat),
			s.Device,
			s.Channel,
			fmt.Sprintf("%.9g", s.Value),
			s.Unit,
		}
		if err := cw.Write(record); err != nil {
			return n, errors.Wrap(err, "write csv row")
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	cw.Flush()
	return n, errors.Wrap(cw.Error(), "flush csv")
}

// ExportCSV writes the store's samples in [start, end] to w in
// timestamp order. Zero bounds export everything. Read-only; the
// store is never mutated.
func ExportCSV(st *Store, start, end time.Time, w io.Writer) (int, error) {
	rows, err := st.ReadRange(start, end)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	return WriteCSV(w, rows)
}
