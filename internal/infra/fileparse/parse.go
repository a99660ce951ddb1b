// Package fileparse turns uploaded files into header-keyed rows.
package fileparse

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatZIP  Format = "zip"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// MaxEntryBytes caps the uncompressed size of a single archive entry. The zip
// reader rejects entries whose data runs past their declared size.
const MaxEntryBytes = 100 << 20

// Source is one logical file: the upload itself or one archive entry.
type Source struct {
	Name string
	Rows []map[string]string
}

type Result struct {
	Sources []Source
	// Errors holds per-file problems as "File <name>: <reason>".
	Errors []string
}

func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".zip":
		return FormatZIP, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path.Ext(name))
	}
}

// Parse reads an upload. Only an unknown extension is returned as an error;
// anything wrong inside the file ends up in Result.Errors.
func Parse(name string, data []byte) (*Result, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	switch format {
	case FormatCSV, FormatTSV:
		rows, warnings, err := parseDelimited(bytes.NewReader(data), delimiterFor(format))
		res.add(name, rows, warnings, err)
	case FormatXLSX:
		rows, err := ParseXLSX(bytes.NewReader(data))
		res.add(name, rows, nil, err)
	case FormatZIP:
		parseZIP(name, data, res)
	}
	return res, nil
}

func (r *Result) add(name string, rows []map[string]string, warnings []string, err error) {
	for _, w := range warnings {
		r.Errors = append(r.Errors, fmt.Sprintf("File %s: %s", name, w))
	}
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("File %s: %v", name, err))
	}
	if len(rows) > 0 {
		r.Sources = append(r.Sources, Source{Name: name, Rows: rows})
	}
}

func delimiterFor(format Format) rune {
	if format == FormatTSV {
		return '\t'
	}
	return ','
}

// ParseDelimited reads a header row followed by records. Malformed records are
// skipped and reported as warnings.
func ParseDelimited(r io.Reader, delimiter rune) ([]map[string]string, []string, error) {
	return parseDelimited(r, delimiter)
}

func parseDelimited(r io.Reader, delimiter rune) ([]map[string]string, []string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	var rows []map[string]string
	var warnings []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				warnings = append(warnings, parseErr.Error())
				continue
			}
			return rows, warnings, err
		}
		if row := zipRow(header, record); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, warnings, nil
}

// ParseXLSX reads the first worksheet.
func ParseXLSX(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	var rows []map[string]string
	for _, record := range records[1:] {
		if row := zipRow(header, record); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseZIP(name string, data []byte, res *Result) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("File %s: open archive: %v", name, err))
		return
	}

	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() || strings.HasPrefix(entry.Name, "__MACOSX/") {
			continue
		}
		format, err := DetectFormat(entry.Name)
		if err != nil || (format != FormatCSV && format != FormatTSV) {
			continue
		}

		if entry.UncompressedSize64 > MaxEntryBytes {
			res.Errors = append(res.Errors, fmt.Sprintf("File %s: skipped, uncompressed size %d exceeds %d bytes",
				entry.Name, entry.UncompressedSize64, MaxEntryBytes))
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			res.add(entry.Name, nil, nil, err)
			continue
		}
		rows, warnings, err := parseDelimited(rc, delimiterFor(format))
		_ = rc.Close()
		res.add(entry.Name, rows, warnings, err)
	}
}

// zipRow pairs header names with record values. Blank records return nil.
func zipRow(header, record []string) map[string]string {
	row := make(map[string]string, len(header))
	blank := true
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			continue
		}
		value := ""
		if i < len(record) {
			value = record[i]
		}
		if strings.TrimSpace(value) != "" {
			blank = false
		}
		row[h] = value
	}
	if blank {
		return nil
	}
	return row
}
