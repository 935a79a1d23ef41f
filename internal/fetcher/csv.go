package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// StreamContractorRows reads the header-driven contractor CSV and sends one
// column map per data row. Caller must drain the row channel; both channels
// close when processing completes.
func StreamContractorRows(ctx context.Context, r io.Reader) (<-chan map[string]string, <-chan error) {
	rowCh := make(chan map[string]string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1 // short rows leave trailing columns empty

		header, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			row := make(map[string]string, len(header))
			for i, col := range header {
				if i >= len(record) {
					break
				}
				row[col] = strings.TrimSpace(record[i])
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadContractorCSV drains StreamContractorRows into a slice.
func ReadContractorCSV(ctx context.Context, r io.Reader) ([]map[string]string, error) {
	rowCh, errCh := StreamContractorRows(ctx, r)

	var rows []map[string]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}
