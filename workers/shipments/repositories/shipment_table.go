package repositories

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// ShipmentRow is one input row keyed by column name.
type ShipmentRow map[string]string

func (r ShipmentRow) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// ShipmentTable reads shipments from an input CSV file and appends results to
// an output CSV file.
type ShipmentTable struct {
	inputPath  string
	outputPath string
	columns    []string
	mu         sync.Mutex
}

func NewShipmentTable(inputPath, outputPath string, columns []string) *ShipmentTable {
	return &ShipmentTable{
		inputPath:  inputPath,
		outputPath: outputPath,
		columns:    columns,
	}
}

func (t *ShipmentTable) Columns() []string {
	return t.columns
}

// Rows returns every input row in file order.
func (t *ShipmentTable) Rows() ([]ShipmentRow, error) {
	f, err := os.Open(t.inputPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readRows(f)
}

// ProcessedIDs returns the ids already present in the output table. A missing
// output table has no processed ids.
func (t *ShipmentTable) ProcessedIDs(idColumn string) (map[string]struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make(map[string]struct{})

	f, err := os.Open(t.outputPath)
	if errors.Is(err, fs.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.outputPath, err)
	}
	for _, row := range rows {
		if id := row.Get(idColumn); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// Append writes row in column order. The header is only written when the
// output table is new or empty.
func (t *ShipmentTable) Append(row ShipmentRow) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(t.columns); err != nil {
			return err
		}
	}

	record := make([]string, len(t.columns))
	for i, column := range t.columns {
		record[i] = row[column]
	}
	if err := w.Write(record); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func readRows(r io.Reader) ([]ShipmentRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []ShipmentRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(ShipmentRow, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
