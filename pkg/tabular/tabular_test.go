package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obralink/importkit/modules/importing/domain/row"
)

var paymentsTestSchema = row.Schema{
	Family: "payments",
	Columns: []row.Column{
		{Key: "description", Label: "Descripción", Required: true},
		{Key: "amount", Label: "Monto", Required: true, Kind: row.KindNumber},
		{Key: "wallet", Label: "Caja"},
	},
}

func TestReadCSV_SkipsBlankRows(t *testing.T) {
	in := "Descripción,Monto,Caja\ncemento,1500,Caja Pesos\n,,\nflete,200,Caja Pesos\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"Descripción", "Monto", "Caja"}, table.Headers)
	require.Len(t, table.Records, 2)
}

func TestReadCSV_RaggedRows(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
}

func TestReadCSV_EmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestMapRows_BindsByLabelOrKey(t *testing.T) {
	table := &Table{
		Headers: []string{"DESCRIPCION", "amount", "Caja", "ignorada"},
		Records: [][]string{
			{"cemento", "1500", "Caja Pesos", "x"},
			{"flete", "200"},
		},
	}
	rows, err := MapRows(table, paymentsTestSchema)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, 1, rows[0].Line)
	require.Equal(t, "cemento", rows[0].String("description"))
	require.Equal(t, "1500", rows[0].String("amount"))
	require.Equal(t, "Caja Pesos", rows[0].String("wallet"))
	require.Empty(t, rows[0].String("ignorada"))

	// short record: unmapped trailing cells read as empty
	require.Equal(t, 2, rows[1].Line)
	require.Equal(t, "", rows[1].String("wallet"))
}

func TestMapRows_MissingRequiredColumn(t *testing.T) {
	table := &Table{Headers: []string{"Descripción", "Caja"}}
	_, err := MapRows(table, paymentsTestSchema)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Monto")
}
