// Package report builds the monthly new-product report: products created in
// a calendar month, grouped per brand with cross-sell and up-sell link
// counts, plus a trailing total row.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/angelmondragon/clientpulse/pkg/merchant"
)

// BrandLine is one aggregated row of the report.
type BrandLine struct {
	Brand      string
	Products   int
	CrossSells int
	UpSells    int
}

const totalLabel = "Total"

// unknownBrand labels products whose brand attribute is missing or cannot
// be resolved to a name.
const unknownBrand = "No Brand"

// Build groups products per brand name, sorts the lines alphabetically, and
// appends the total row. An empty product list yields an empty report.
func Build(products []merchant.Product, brandNames map[string]string) []BrandLine {
	if len(products) == 0 {
		return nil
	}

	grouped := make(map[string]*BrandLine)
	for _, product := range products {
		brand := unknownBrand
		if product.BrandID != "" {
			if name, ok := brandNames[product.BrandID]; ok {
				brand = name
			}
		}
		line, ok := grouped[brand]
		if !ok {
			line = &BrandLine{Brand: brand}
			grouped[brand] = line
		}
		line.Products++
		line.CrossSells += product.CrossSells
		line.UpSells += product.UpSells
	}

	lines := make([]BrandLine, 0, len(grouped)+1)
	for _, line := range grouped {
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Brand < lines[j].Brand
	})

	total := BrandLine{Brand: totalLabel}
	for _, line := range lines {
		total.Products += line.Products
		total.CrossSells += line.CrossSells
		total.UpSells += line.UpSells
	}
	return append(lines, total)
}

// WriteCSV writes the report to path.
func WriteCSV(path string, lines []BrandLine) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"brand", "products", "cross_sells", "up_sells"}); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, line := range lines {
		record := []string{
			line.Brand,
			strconv.Itoa(line.Products),
			strconv.Itoa(line.CrossSells),
			strconv.Itoa(line.UpSells),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing report row for %s: %w", line.Brand, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return file.Close()
}
