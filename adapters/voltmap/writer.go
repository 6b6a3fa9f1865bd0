package voltmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"phaselock/domain/core"
	"phaselock/domain/voltage"
)

// WriteCSV emits the control table with the exact header the chip driver
// expects.
func WriteCSV(w io.Writer, table voltage.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(voltage.CSVHeader); err != nil {
		return err
	}
	for _, rec := range table {
		row := []string{
			strconv.Itoa(rec.Channel),
			strconv.FormatFloat(rec.PhaseRad, 'f', 6, 64),
			strconv.FormatFloat(rec.Voltage, 'f', 6, 64),
			strconv.FormatUint(rec.DACValue, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a control table, verifying the header contract first.
func ReadCSV(r io.Reader) (voltage.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResult, err)
	}
	if len(header) != len(voltage.CSVHeader) {
		return nil, fmt.Errorf("%w: header has %d columns, want %d", core.ErrMalformedResult, len(header), len(voltage.CSVHeader))
	}
	for i, want := range voltage.CSVHeader {
		if header[i] != want {
			return nil, fmt.Errorf("%w: header column %d is %q, want %q", core.ErrMalformedResult, i, header[i], want)
		}
	}

	var table voltage.Table
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedResult, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		table = append(table, rec)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: table has no channels", core.ErrMalformedResult)
	}
	return table, nil
}

func parseRow(row []string) (voltage.ChannelRecord, error) {
	var rec voltage.ChannelRecord
	var err error
	if rec.Channel, err = strconv.Atoi(row[0]); err != nil {
		return rec, fmt.Errorf("%w: channel id %q", core.ErrMalformedResult, row[0])
	}
	if rec.PhaseRad, err = strconv.ParseFloat(row[1], 64); err != nil {
		return rec, fmt.Errorf("%w: phase %q", core.ErrMalformedResult, row[1])
	}
	if rec.Voltage, err = strconv.ParseFloat(row[2], 64); err != nil {
		return rec, fmt.Errorf("%w: voltage %q", core.ErrMalformedResult, row[2])
	}
	if rec.DACValue, err = strconv.ParseUint(row[3], 10, 64); err != nil {
		return rec, fmt.Errorf("%w: dac value %q", core.ErrMalformedResult, row[3])
	}
	return rec, nil
}

// WriteFile writes the table as CSV or XLSX depending on the extension.
func WriteFile(path string, table voltage.Table) error {
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		return writeXLSX(path, table)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a CSV control table from disk.
func ReadFile(path string) (voltage.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// writeXLSX mirrors the CSV layout on Sheet1 for lab notebooks that want a
// spreadsheet instead of a raw table.
func writeXLSX(path string, table voltage.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for col, name := range voltage.CSVHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue("Sheet1", cell, name); err != nil {
			return err
		}
	}
	for i, rec := range table {
		values := []interface{}{rec.Channel, rec.PhaseRad, rec.Voltage, rec.DACValue}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
