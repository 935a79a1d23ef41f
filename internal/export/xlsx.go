package export

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// writeXLSX writes the same column layout as the CSV exporter into a single
// "Contractors" sheet.
func (e *Engine) writeXLSX(records []model.ContractorRecord, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contractors")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().SetString(col)
	}

	stamp := e.now().Format(time.RFC3339)
	for i := range records {
		row := sheet.AddRow()
		for _, cell := range BuildRow(&records[i], stamp) {
			row.AddCell().SetString(cell)
		}
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}
