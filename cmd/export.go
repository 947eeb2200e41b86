package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/schema-audit/internal/model"
)

// exportFormats maps --format values to writers.
var exportFormats = map[string]func(io.Writer, []model.DatasetReportRecord) error{
	"csv":  writeRecordsCSV,
	"json": writeRecordsJSON,
	"xlsx": writeRecordsXLSX,
}

func writeRecordsCSV(w io.Writer, records []model.DatasetReportRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(records) == 0 {
		if err := enc.EncodeHeader(model.DatasetReportRecord{}); err != nil {
			return eris.Wrap(err, "export: csv header")
		}
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "export: csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: csv flush")
}

func writeRecordsJSON(w io.Writer, records []model.DatasetReportRecord) error {
	if records == nil {
		records = []model.DatasetReportRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(records), "export: json")
}

func writeRecordsXLSX(w io.Writer, records []model.DatasetReportRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("history")
	if err != nil {
		return eris.Wrap(err, "export: xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range model.RecordColumns {
		header.AddCell().SetString(col)
	}
	for _, r := range records {
		row := sheet.AddRow()
		for _, v := range r.Values() {
			cell := row.AddCell()
			switch v := v.(type) {
			case int:
				cell.SetInt(v)
			case string:
				cell.SetString(v)
			default:
				cell.SetString(fmt.Sprint(v))
			}
		}
	}
	return eris.Wrap(f.Write(w), "export: xlsx write")
}
