package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// FileFormat identifies a tabular container format.
type FileFormat string

const (
	FormatCSV         FileFormat = "csv"
	FormatSpreadsheet FileFormat = "spreadsheet"
)

// RowSource reads a whole tabular file into rows. The first non-blank row is
// the header; rows whose cells are all blank are skipped.
type RowSource interface {
	Format() FileFormat
	ReadRows(r io.Reader) ([]RawRow, error)
}

// DetectFormat picks the container format from a filename extension.
func DetectFormat(filename string) (FileFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatSpreadsheet, nil
	default:
		if ext == "" {
			ext = filename
		}
		return "", fmt.Errorf("%w: %q (expected .csv, .xlsx or .xls)", ErrUnsupportedFormat, ext)
	}
}

// SourceFor returns the RowSource that handles filename.
func SourceFor(filename string) (RowSource, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	if format == FormatSpreadsheet {
		return SpreadsheetSource{}, nil
	}
	return CSVSource{}, nil
}

// ReadRows selects a RowSource by filename and reads r with it.
func ReadRows(filename string, r io.Reader) ([]RawRow, error) {
	src, err := SourceFor(filename)
	if err != nil {
		return nil, err
	}
	return src.ReadRows(r)
}

// CSVSource reads delimited text. The delimiter is sniffed from the header
// line among comma, semicolon, tab and pipe.
type CSVSource struct{}

func (CSVSource) Format() FileFormat { return FormatCSV }

func (CSVSource) ReadRows(r io.Reader) ([]RawRow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}

	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid csv: %v", ErrFileRead, err)
	}

	rows := buildRows(records)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: the CSV file has no data rows", ErrEmptyFile)
	}
	return rows, nil
}

// SpreadsheetSource reads the first worksheet (by sheet order) of a workbook.
// OOXML (.xlsx) goes through excelize; compound-file BIFF workbooks (.xls)
// are recognised by their signature and read with xlsReader.
type SpreadsheetSource struct{}

func (SpreadsheetSource) Format() FileFormat { return FormatSpreadsheet }

func (SpreadsheetSource) ReadRows(r io.Reader) ([]RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRead, err)
	}
	if bytes.HasPrefix(data, compoundFileSignature) {
		return readLegacyWorkbook(data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrFileRead, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: the workbook has no sheets", ErrEmptyFile)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrFileRead, sheets[0], err)
	}

	rows := buildRows(records)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no data rows", ErrEmptyFile, sheets[0])
	}
	return rows, nil
}

// compoundFileSignature starts every OLE2 container, which is what a BIFF
// (.xls) workbook is stored in.
var compoundFileSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// readLegacyWorkbook reads the first sheet of a BIFF workbook. xlsReader
// slices its record stream without bounds checks, so a damaged file panics
// inside it; that panic is reported as ErrFileRead.
func readLegacyWorkbook(data []byte) (rows []RawRow, err error) {
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("%w: damaged xls workbook: %v", ErrFileRead, p)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xls workbook: %v", ErrFileRead, err)
	}
	if book.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("%w: no readable sheets in the xls workbook", ErrFileRead)
	}
	sheet, err := book.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: read xls sheet: %v", ErrFileRead, err)
	}

	var records [][]string
	for _, row := range sheet.GetRows() {
		cells := row.GetCols()
		rec := make([]string, len(cells))
		for i, cell := range cells {
			rec[i] = cell.GetString()
		}
		records = append(records, rec)
	}

	rows = buildRows(records)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no data rows", ErrEmptyFile, sheet.GetName())
	}
	return rows, nil
}

// buildRows keys every record after the header by header name. Short records
// are padded with "" and cells past the header width are ignored.
func buildRows(records [][]string) []RawRow {
	start := 0
	for start < len(records) && isBlankRecord(records[start]) {
		start++
	}
	if start >= len(records) {
		return nil
	}

	header := records[start]
	rows := make([]RawRow, 0, len(records)-start-1)
	for _, rec := range records[start+1:] {
		if isBlankRecord(rec) {
			continue
		}
		row := make(RawRow, len(header))
		for i, col := range header {
			row[i].Column = col
			if i < len(rec) {
				row[i].Value = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter counts candidate delimiters outside quotes on the first
// non-empty line. Comma wins ties and is the default.
func sniffDelimiter(data []byte) rune {
	line := firstLine(data)
	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	for _, c := range delimiterCandidates {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func firstLine(data []byte) string {
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		if s := strings.TrimRight(string(line), "\r"); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
