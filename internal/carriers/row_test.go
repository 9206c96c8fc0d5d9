package carriers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"native", time.Date(2024, 1, 5, 17, 30, 0, 0, time.UTC), "2024-01-05"},
		{"serial", float64(45296), "2024-01-05"},
		{"serial int", 45296, "2024-01-05"},
		{"serial with time", 45296.75, "2024-01-05"},
		{"serial as text", "45296", "2024-01-05"},
		{"dd/mm/yyyy", "05/01/2024", "2024-01-05"},
		{"d/m/yyyy", " 5/1/2024 ", "2024-01-05"},
		{"dd/mm/yy", "05/01/24", "2024-01-05"},
		{"dd/mm/yyyy hh:mm", "05/01/2024 10:30", "2024-01-05"},
		{"iso", "2024-01-05", "2024-01-05"},
		{"iso datetime", "2024-01-05T08:00:00Z", "2024-01-05"},
		{"last excel day", float64(2958465), "9999-12-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDate(tc.in)
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestParseDate_Unparseable(t *testing.T) {
	for _, in := range []any{
		nil, "", "mañana", "31/02/2024", "13/13/2024", float64(0), time.Time{},
		// за пределами серийных дат Excel
		float64(-5), float64(0.5), float64(2958466), float64(3e6), float64(1e15), "99999999999999999", math.Inf(1), math.NaN(),
	} {
		require.Nil(t, ParseDate(in), "%v", in)
	}
}

func TestParseInt(t *testing.T) {
	require.Equal(t, int64(12), *ParseInt("12 días"))
	require.Equal(t, int64(3), *ParseInt(3.9))
	require.Equal(t, int64(-4), *ParseInt("-4"))
	require.Nil(t, ParseInt("abc"))
	require.Nil(t, ParseInt(nil))
}

func TestRow_SynonymsAndBlanks(t *testing.T) {
	r := NewRow(map[string]any{
		"No. Guía": "  G-1 ",
		"Estado":   "",
		"Status":   "ENTREGADO",
		"Pedido":   float64(10045),
		"Cierre":   "CI-00123",
	})

	require.Equal(t, "G-1", r.Key("guia", "no. guia"))
	require.Equal(t, "10045", r.Key("pedido"))
	require.Equal(t, "ENTREGADO", r.TextOr("PENDIENTE", "estado", "status"))
	require.Nil(t, r.Text("novedad"))
	require.Equal(t, int64(123), *r.Digits("cierre"))
	require.Equal(t, "", r.Key("missing"))
}
