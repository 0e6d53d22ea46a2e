// Package ingest loads distribution manifests from XLSX workbooks.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/JeanCaOLO/crossdoking/domain"
	"github.com/JeanCaOLO/crossdoking/store"
)

// Column keys, in template order.
const (
	colShipment    = "expedicion"
	colPallet      = "pallet"
	colLocation    = "ubicacion"
	colSKU         = "sku"
	colBarcode     = "codigo de barra"
	colDescription = "descripcion sku"
	colQtyTotal    = "cantidad total"
	colDestination = "tienda"
	colQtyToSend   = "cantidad a enviar a la tienda"
	colTruck       = "camion"
)

// Headers is the header row written by Template.
var Headers = []string{
	"Expedicion", "Pallet", "Ubicacion", "SKU", "Codigo de Barra", "Descripcion SKU",
	"Cantidad Total", "Tienda", "Cantidad a Enviar a la tienda", "Camion",
}

var required = []string{colPallet, colSKU, colDestination, colQtyToSend}

var accents = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = accents.Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

type ImportResult struct {
	ManifestID int64  `json:"manifest_id"`
	FileName   string `json:"file_name"`
	Lines      int    `json:"lines"`
	Pallets    int    `json:"pallets"`
	NewPallets int    `json:"new_pallets"`
	Skipped    int    `json:"skipped"`
}

type Importer struct {
	db  *store.DB
	log *zap.SugaredLogger
}

func NewImporter(db *store.DB, log *zap.SugaredLogger) *Importer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Importer{db: db, log: log}
}

type row struct {
	store.DemandLine
}

// Import reads the first sheet of the workbook and loads it as one manifest.
// The manifest, its demand lines, unseen pallets and their inventory are
// written in one transaction. Inventory is only seeded for pallets created by
// this import; the quantity per SKU is the sum of its Cantidad Total cells.
func (im *Importer) Import(ctx context.Context, fileName string, r io.Reader, actor string) (*ImportResult, error) {
	if err := domain.RequireActor(actor); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "read workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "read sheet: %v", err)
	}
	lines, skipped, err := parseRows(rows)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.Errorf(domain.ErrValidation, "workbook %s has no usable rows", fileName)
	}

	res := &ImportResult{FileName: fileName, Lines: len(lines), Skipped: skipped}
	err = im.db.WithTx(ctx, func(tx *store.Tx) error {
		m := &store.Manifest{FileName: fileName, Status: domain.ManifestDraft, TotalLines: len(lines), CreatedBy: actor}
		if err := tx.CreateManifest(m); err != nil {
			return fmt.Errorf("create manifest: %w", err)
		}
		res.ManifestID = m.ID

		for _, l := range lines {
			l.ManifestID = m.ID
			if err := tx.InsertDemandLine(&l.DemandLine); err != nil {
				return fmt.Errorf("insert demand line: %w", err)
			}
		}

		// pallets in first-seen order
		var order []string
		byPallet := map[string][]*row{}
		for _, l := range lines {
			if _, ok := byPallet[l.PalletCode]; !ok {
				order = append(order, l.PalletCode)
			}
			byPallet[l.PalletCode] = append(byPallet[l.PalletCode], l)
		}
		res.Pallets = len(order)

		for _, code := range order {
			pl := byPallet[code]
			created, err := tx.EnsurePallet(code, pl[0].Location)
			if err != nil {
				return fmt.Errorf("create pallet %s: %w", code, err)
			}
			if !created {
				continue
			}
			res.NewPallets++
			for _, l := range pl {
				if err := tx.AddInventory(code, l.SKU, l.Description, l.QtyTotal); err != nil {
					return fmt.Errorf("inventory %s/%s: %w", code, l.SKU, err)
				}
			}
		}
		return tx.SetManifestStatus(m.ID, domain.ManifestInProgress)
	})
	if err != nil {
		return nil, err
	}
	im.log.Infof("ingest: %s imported %s as manifest %d (%d lines, %d pallets, %d skipped)",
		actor, fileName, res.ManifestID, res.Lines, res.Pallets, res.Skipped)
	return res, nil
}

// parseRows maps the header row to columns and converts data rows. Rows
// without pallet, SKU or destination, or with nothing to send, are skipped.
func parseRows(rows [][]string) ([]*row, int, error) {
	if len(rows) == 0 {
		return nil, 0, domain.Errorf(domain.ErrValidation, "workbook is empty")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[normalizeHeader(h)] = i
	}
	for _, k := range required {
		if _, ok := idx[k]; !ok {
			return nil, 0, domain.Errorf(domain.ErrValidation, "missing column %q", k)
		}
	}
	cell := func(r []string, key string) string {
		i, ok := idx[key]
		if !ok || i >= len(r) {
			return ""
		}
		return strings.TrimSpace(r[i])
	}

	var out []*row
	skipped := 0
	for n, r := range rows[1:] {
		rowNum := n + 2
		l := &row{store.DemandLine{
			Shipment:    cell(r, colShipment),
			PalletCode:  cell(r, colPallet),
			Location:    cell(r, colLocation),
			SKU:         cell(r, colSKU),
			Barcode:     cell(r, colBarcode),
			Description: cell(r, colDescription),
			Destination: cell(r, colDestination),
			Truck:       cell(r, colTruck),
		}}
		if l.PalletCode == "" && l.SKU == "" && l.Destination == "" {
			continue
		}
		var err error
		if l.QtyTotal, err = parseQty(cell(r, colQtyTotal)); err != nil {
			return nil, 0, domain.Errorf(domain.ErrValidation, "row %d: cantidad total: %v", rowNum, err)
		}
		if l.QtyToSend, err = parseQty(cell(r, colQtyToSend)); err != nil {
			return nil, 0, domain.Errorf(domain.ErrValidation, "row %d: cantidad a enviar: %v", rowNum, err)
		}
		if l.PalletCode == "" || l.SKU == "" || l.Destination == "" || l.QtyToSend.Sign() <= 0 {
			skipped++
			continue
		}
		out = append(out, l)
	}
	return out, skipped, nil
}

// parseQty reads a quantity cell in either "1.234,5" or "1,234.5" form.
// When both separators appear the last one is the decimal mark. A single
// comma alone is a decimal comma; a separator repeated more than once groups
// thousands. Empty cells are zero.
func parseQty(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	norm, ok := normalizeNumber(s)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	if d.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("negative number %q", s)
	}
	return d, nil
}

func normalizeNumber(s string) (string, bool) {
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		group, mark := ".", ","
		if dot > comma {
			group, mark = ",", "."
		}
		i := strings.LastIndex(s, mark)
		if strings.Count(s, mark) > 1 {
			return "", false
		}
		intPart, ok := ungroup(s[:i], group)
		return intPart + "." + s[i+1:], ok
	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1), true
		}
		return ungroup(s, ",")
	case dot >= 0 && strings.Count(s, ".") > 1:
		return ungroup(s, ".")
	}
	return s, true
}

// ungroup removes thousands separators, requiring three digits per group
// after the first.
func ungroup(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	if parts[0] == "" {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}
