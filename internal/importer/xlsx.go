// Package importer reads back-office catalog workbooks.
//
// The first sheet holds one row per product or per variant. Rows sharing a
// product SKU are folded into one product; a row with any variant column set
// adds a variant to it. Column order is free, headers are matched by name.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/xuri/excelize/v2"
)

const (
	colSKU           = "sku"
	colName          = "name"
	colDescription   = "description"
	colPrice         = "price"
	colOriginalPrice = "original_price"
	colSection       = "section"
	colCategory      = "category"
	colSourceType    = "source_type"
	colStock         = "stock_quantity"
	colImages        = "image_urls"
	colActive        = "is_active"
	colColor         = "variant_color"
	colSize          = "variant_size"
	colSizeUnit      = "variant_size_unit"
	colMaterial      = "variant_material"
	colVariantPrice  = "variant_price"
	colVariantStock  = "variant_stock"
	colVariantSKU    = "variant_sku"
	colVariantImage  = "variant_image_url"
)

var requiredColumns = []string{colSKU, colName, colPrice}

var variantColumns = []string{colColor, colSize, colSizeUnit, colMaterial, colVariantPrice, colVariantStock, colVariantSKU, colVariantImage}

// Product is one catalog entry read from the workbook. Section and Category
// are names; resolving them to IDs is left to the caller.
type Product struct {
	Row      int
	Section  string
	Category string
	Input    service.ProductInput
}

// RowError reports a skipped row, numbered as shown in a spreadsheet.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

type Result struct {
	Sheet    string
	Products []Product
	Skipped  []RowError
}

func ReadFile(path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()
	return read(f)
}

func Read(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()
	return read(f)
}

func read(f *excelize.File) (*Result, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	result := &Result{Sheet: sheet}
	bySKU := make(map[string]int)

	for i, cells := range rows[1:] {
		row := record{header: header, cells: cells, number: i + 2}
		if row.empty() {
			continue
		}
		if err := result.add(row, bySKU); err != nil {
			result.Skipped = append(result.Skipped, RowError{Row: row.number, Err: err})
		}
	}
	return result, nil
}

func (res *Result) add(row record, bySKU map[string]int) error {
	sku := row.text(colSKU)
	if sku == "" {
		return fmt.Errorf("sku is empty")
	}

	variant, hasVariant, err := row.variant()
	if err != nil {
		return err
	}

	if idx, seen := bySKU[sku]; seen {
		if !hasVariant {
			return fmt.Errorf("duplicate product row for sku %s", sku)
		}
		p := &res.Products[idx]
		p.Input.Variants = append(p.Input.Variants, variant)
		return nil
	}

	product, err := row.product(sku)
	if err != nil {
		return err
	}
	if hasVariant {
		product.Input.Variants = []service.VariantDraft{variant}
	}
	bySKU[sku] = len(res.Products)
	res.Products = append(res.Products, product)
	return nil
}

type record struct {
	header map[string]int
	cells  []string
	number int
}

func (r record) text(col string) string {
	idx, ok := r.header[col]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r record) optional(col string) *string {
	if v := r.text(col); v != "" {
		return &v
	}
	return nil
}

func (r record) empty() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r record) float(col string) (*float64, error) {
	v := r.text(col)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a number", col, v)
	}
	return &f, nil
}

func (r record) int(col string) (int, error) {
	v := r.text(col)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", col, v)
	}
	return n, nil
}

func (r record) bool(col string) (*bool, error) {
	v := r.text(col)
	if v == "" {
		return nil, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y":
		b := true
		return &b, nil
	case "0", "false", "no", "n":
		b := false
		return &b, nil
	}
	return nil, fmt.Errorf("%s: %q is not a boolean", col, v)
}

func (r record) product(sku string) (Product, error) {
	name := r.text(colName)
	if name == "" {
		return Product{}, fmt.Errorf("name is empty")
	}
	price, err := r.float(colPrice)
	if err != nil {
		return Product{}, err
	}
	if price == nil {
		return Product{}, fmt.Errorf("price is empty")
	}
	original, err := r.float(colOriginalPrice)
	if err != nil {
		return Product{}, err
	}
	stock, err := r.int(colStock)
	if err != nil {
		return Product{}, err
	}
	active, err := r.bool(colActive)
	if err != nil {
		return Product{}, err
	}

	input := service.ProductInput{
		Name:          name,
		SKU:           sku,
		Description:   r.optional(colDescription),
		Price:         *price,
		OriginalPrice: original,
		SourceType:    strings.ToLower(r.text(colSourceType)),
		StockQuantity: stock,
		IsActive:      active,
	}
	for i, url := range splitList(r.text(colImages)) {
		input.Images = append(input.Images, service.ImageInput{URL: url, Order: i})
	}

	return Product{
		Row:      r.number,
		Section:  r.text(colSection),
		Category: r.text(colCategory),
		Input:    input,
	}, nil
}

func (r record) variant() (service.VariantDraft, bool, error) {
	present := false
	for _, col := range variantColumns {
		if r.text(col) != "" {
			present = true
			break
		}
	}
	if !present {
		return service.VariantDraft{}, false, nil
	}

	price, err := r.float(colVariantPrice)
	if err != nil {
		return service.VariantDraft{}, false, err
	}
	stock, err := r.int(colVariantStock)
	if err != nil {
		return service.VariantDraft{}, false, err
	}

	return service.VariantDraft{
		Color:         r.optional(colColor),
		Size:          r.optional(colSize),
		SizeUnit:      r.optional(colSizeUnit),
		Material:      r.optional(colMaterial),
		Price:         price,
		StockQuantity: stock,
		SKU:           r.optional(colVariantSKU),
		ImageURL:      r.optional(colVariantImage),
	}, true, nil
}

// splitList accepts "|", "," or newlines between URLs.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == '\n'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
