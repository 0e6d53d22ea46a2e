package ingest

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JeanCaOLO/crossdoking/config"
	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ingest.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var header = []any{"Expedicion", "Pallet", "Ubicacion", "SKU", "Código de Barra", "Descripcion SKU",
	"Cantidad Total", "Tienda", "Cantidad a Enviar a la tienda", "Camión"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestImport(t *testing.T) {
	db := testDB(t)
	im := NewImporter(db, nil)
	buf := workbook(t, [][]any{
		header,
		{"E1", "P1", "R-01", "A1", "7790001", "Agua", 40, "S1", 40, "T1"},
		{"E1", "P1", "R-01", "A1", "7790001", "Agua", 60, "S2", "60", "T1"},
		{"E1", "P1", "R-01", "B2", "7790002", "Jugo", "2,5", "S1", "2,5", "T1"},
		{"E1", "P2", "R-02", "C3", "", "Galletas", 10, "S3", 10, "T2"},
		{"E1", "", "R-02", "C3", "", "", 1, "S3", 1, ""},
		{"E1", "P2", "R-02", "C3", "", "", 1, "S4", 0, ""},
	})

	res, err := im.Import(context.Background(), "carga.xlsx", buf, "admin")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Lines)
	assert.Equal(t, 2, res.Pallets)
	assert.Equal(t, 2, res.NewPallets)
	assert.Equal(t, 2, res.Skipped)

	m, err := db.GetManifest(res.ManifestID)
	require.NoError(t, err)
	assert.Equal(t, domain.ManifestInProgress, m.Status)
	assert.Equal(t, 4, m.TotalLines)
	assert.Equal(t, "admin", m.CreatedBy)

	inv, err := db.GetInventory("P1", "A1")
	require.NoError(t, err)
	assert.True(t, inv.QtyInitial.Equal(dec("100")), "cantidad total summed per sku")
	assert.True(t, inv.QtyAvailable.Equal(dec("100")))

	inv, err = db.GetInventory("P1", "B2")
	require.NoError(t, err)
	assert.True(t, inv.QtyAvailable.Equal(dec("2.5")))

	p, err := db.GetPallet("P2")
	require.NoError(t, err)
	assert.Equal(t, "R-02", p.Location)
	assert.Equal(t, domain.PalletOpen, p.Status)

	demand, err := db.ListOpenDemand("P1", "A1")
	require.NoError(t, err)
	require.Len(t, demand, 2)
	assert.Equal(t, "S1", demand[0].Destination)
	assert.Equal(t, "7790001", demand[0].Barcode)
	assert.Equal(t, "T1", demand[0].Truck)
	assert.Equal(t, domain.DemandPending, demand[0].Status)

	sku, err := db.FindSKUByBarcode("P1", "7790002")
	require.NoError(t, err)
	assert.Equal(t, "B2", sku)
}

func TestImportExistingPalletKeepsInventory(t *testing.T) {
	db := testDB(t)
	im := NewImporter(db, nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "a.xlsx", workbook(t, [][]any{header,
		{"E1", "P1", "R-01", "A1", "", "", 10, "S1", 10, ""}}), "admin")
	require.NoError(t, err)

	res, err := im.Import(ctx, "b.xlsx", workbook(t, [][]any{header,
		{"E2", "P1", "R-09", "A1", "", "", 10, "S2", 5, ""}}), "admin")
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewPallets)

	inv, err := db.GetInventory("P1", "A1")
	require.NoError(t, err)
	assert.True(t, inv.QtyInitial.Equal(dec("10")))

	lines, err := db.ListPalletDemand("P1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestImportRejects(t *testing.T) {
	db := testDB(t)
	im := NewImporter(db, nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "x.xlsx", workbook(t, [][]any{{"Pallet", "SKU", "Tienda"}, {"P1", "A1", "S1"}}), "admin")
	assert.ErrorIs(t, err, domain.ErrValidation, "missing quantity column")

	_, err = im.Import(ctx, "x.xlsx", workbook(t, [][]any{header,
		{"E1", "P1", "R-01", "A1", "", "", "muchos", "S1", 1, ""}}), "admin")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = im.Import(ctx, "x.xlsx", bytes.NewBufferString("not a workbook"), "admin")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = im.Import(ctx, "x.xlsx", workbook(t, [][]any{header}), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	manifests, err := db.ListManifests(10)
	require.NoError(t, err)
	assert.Empty(t, manifests, "failed imports leave nothing behind")
}

func TestTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Template(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Headers, rows[0])

	// an untouched template has no rows to import
	var again bytes.Buffer
	require.NoError(t, Template(&again))
	_, err = NewImporter(testDB(t), nil).Import(context.Background(), "t.xlsx", &again, "admin")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "codigo de barra", normalizeHeader("  Código  de Barra "))
	assert.Equal(t, "camion", normalizeHeader("CAMIÓN"))
}

func TestParseQty(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"3", "3"},
		{"2,5", "2.5"},
		{"2.5", "2.5"},
		{"1,000.5", "1000.5"},
		{"1.234,5", "1234.5"},
		{"1.234.567", "1234567"},
		{"1,234,567.25", "1234567.25"},
		{"12.345.678,9", "12345678.9"},
	} {
		got, err := parseQty(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%q = %s, want %s", tc.in, got, tc.want)
	}

	for _, in := range []string{"abc", "-1", "1,2,3", "1.2.3", "1,2.3,4", ",5.000", "1.000,5,5"} {
		_, err := parseQty(in)
		assert.Error(t, err, in)
	}
}
