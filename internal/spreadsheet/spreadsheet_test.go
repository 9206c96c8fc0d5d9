package spreadsheet

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Hoja1")
	require.NoError(t, err)
	for _, data := range rows {
		row := sheet.AddRow()
		for _, v := range data {
			cell := row.AddCell()
			switch tv := v.(type) {
			case float64:
				cell.SetFloat(tv)
			case string:
				cell.SetString(tv)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestRead_XLSX(t *testing.T) {
	data := buildXLSX(t, [][]any{
		{"Pedido", "Guia", "Fecha", "Novedad"},
		{"P-1", "G-1", float64(45296), ""},
		{"", "", "", ""},
		{"P-2", "G-2", "05/01/2024", "Sin novedad"},
	})

	sh, err := Read("natura.xlsx", "", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pedido", "Guia", "Fecha", "Novedad"}, sh.Headers)
	require.Len(t, sh.Rows, 2)

	assert.Equal(t, "P-1", sh.Rows[0]["Pedido"])
	assert.Equal(t, "45296", fmt.Sprint(sh.Rows[0]["Fecha"]))
	assert.NotContains(t, sh.Rows[0], "Novedad")
	assert.Equal(t, "05/01/2024", sh.Rows[1]["Fecha"])
	assert.Equal(t, "Sin novedad", sh.Rows[1]["Novedad"])
}

func TestRead_CSVSemicolonWithBOM(t *testing.T) {
	data := []byte("\xef\xbb\xbfPedido;Guía;Estado\nP-1;G-1;ENTREGADO\n;;\nP-2;;\n")

	sh, err := Read("reporte.CSV", "", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pedido", "Guía", "Estado"}, sh.Headers)
	require.Len(t, sh.Rows, 2)
	assert.Equal(t, map[string]any{"Pedido": "P-1", "Guía": "G-1", "Estado": "ENTREGADO"}, sh.Rows[0])
	assert.Equal(t, map[string]any{"Pedido": "P-2"}, sh.Rows[1])
}

func TestRead_CSVByContentType(t *testing.T) {
	sh, err := Read("upload", "text/csv; charset=utf-8", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.Len(t, sh.Rows, 1)
}

func TestRead_Rejects(t *testing.T) {
	_, err := Read("viejo.xls", "", []byte("x"))
	require.ErrorIs(t, err, ErrLegacyXLS)

	_, err = Read("foto.png", "image/png", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = Read("roto.xlsx", "", []byte("not a zip"))
	require.Error(t, err)
}
