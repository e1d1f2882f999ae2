package warehouse

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV serializes the result set as RFC-4180 CSV with a header row.
// An empty result still yields the header.
func (rs *ResultSet) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return fmt.Errorf("warehouse: write csv header: %w", err)
	}
	for _, row := range rs.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("warehouse: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("warehouse: flush csv: %w", err)
	}
	return nil
}

// CSVBytes renders the result set into a byte slice.
func (rs *ResultSet) CSVBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := rs.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
