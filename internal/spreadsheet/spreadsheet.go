// Package spreadsheet читает первый лист загруженного файла в список строк
// "заголовок -> значение". Пустые ячейки в строку не попадают.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tealeg/xlsx/v2"
)

var (
	ErrInvalidType = errors.New("Tipo de archivo no válido. Use Excel (.xlsx) o CSV")
	ErrLegacyXLS   = errors.New("El formato .xls no está soportado. Guarde el archivo como .xlsx o .csv")
	ErrNoSheets    = errors.New("El archivo no contiene hojas")
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeCSV  = "text/csv"
)

// Sheet - содержимое первого листа.
type Sheet struct {
	Headers []string
	Rows    []map[string]any
}

type format int

const (
	formatUnknown format = iota
	formatXLSX
	formatXLS
	formatCSV
)

func detect(filename, contentType string) format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return formatXLSX
	case ".xls":
		return formatXLS
	case ".csv":
		return formatCSV
	}
	switch strings.TrimSpace(strings.Split(contentType, ";")[0]) {
	case mimeXLSX:
		return formatXLSX
	case mimeXLS:
		return formatXLS
	case mimeCSV:
		return formatCSV
	}
	return formatUnknown
}

// Read выбирает парсер по расширению, затем по MIME-типу.
func Read(filename, contentType string, data []byte) (*Sheet, error) {
	switch detect(filename, contentType) {
	case formatXLSX:
		return readXLSX(data)
	case formatCSV:
		return readCSV(bytes.NewReader(data))
	case formatXLS:
		return nil, ErrLegacyXLS
	default:
		return nil, ErrInvalidType
	}
}

func readXLSX(data []byte) (*Sheet, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, errors.Wrap(err, "xlsx: open")
	}
	if len(f.Sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := f.Sheets[0]

	out := &Sheet{}
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		if i == 0 {
			out.Headers = headerCells(row)
			continue
		}
		rec := make(map[string]any, len(out.Headers))
		for j, cell := range row.Cells {
			if j >= len(out.Headers) || out.Headers[j] == "" || cell == nil {
				continue
			}
			if v := cellValue(cell); v != nil {
				rec[out.Headers[j]] = v
			}
		}
		if len(rec) > 0 {
			out.Rows = append(out.Rows, rec)
		}
	}
	return out, nil
}

func headerCells(row *xlsx.Row) []string {
	headers := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell != nil {
			headers[j] = strings.TrimSpace(cell.String())
		}
	}
	// хвостовые пустые колонки не считаем заголовками
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	return headers
}

// cellValue отдаёт числа как float64, чтобы даты-серийники дошли до маппера
// без форматирования листа.
func cellValue(cell *xlsx.Cell) any {
	switch cell.Type() {
	case xlsx.CellTypeNumeric:
		if f, err := cell.Float(); err == nil {
			return f
		}
	case xlsx.CellTypeBool:
		return cell.Bool()
	}
	s := strings.TrimSpace(cell.String())
	if s == "" {
		return nil
	}
	return s
}

func readCSV(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "csv: read")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "csv: parse")
	}
	if len(records) == 0 {
		return &Sheet{}, nil
	}

	out := &Sheet{Headers: make([]string, len(records[0]))}
	for j, h := range records[0] {
		out.Headers[j] = strings.TrimSpace(h)
	}
	for _, line := range records[1:] {
		rec := make(map[string]any, len(out.Headers))
		for j, v := range line {
			v = strings.TrimSpace(v)
			if j >= len(out.Headers) || out.Headers[j] == "" || v == "" {
				continue
			}
			rec[out.Headers[j]] = v
		}
		if len(rec) > 0 {
			out.Rows = append(out.Rows, rec)
		}
	}
	return out, nil
}

// sniffDelimiter: Excel в испанской локали сохраняет CSV через ';'.
func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}
