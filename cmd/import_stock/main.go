package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	"rawmat/internal/config"
	"rawmat/internal/db"
	"rawmat/internal/inventory"
	applog "rawmat/internal/log"
)

var (
	stockLinePattern = regexp.MustCompile(`(?i)^(.+?)\s+([0-9]+(?:[.,][0-9]+)?)\s*kgs?\b\s*(.*)$`)
	cleanWhitespace  = regexp.MustCompile(`\s+`)
)

// stockRow is one line of a supplier stock sheet.
type stockRow struct {
	Line     int
	Name     string
	Quantity decimal.Decimal
	Supplier string
}

type importSummary struct {
	Created   int
	Restocked int
	Skipped   int
}

func main() {
	sheetPath := "stock.csv"
	if len(os.Args) > 1 {
		sheetPath = os.Args[1]
	}

	if err := run(context.Background(), sheetPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, sheetPath string, out io.Writer) error {
	if strings.TrimSpace(sheetPath) == "" {
		return fmt.Errorf("stock sheet path must not be empty")
	}

	if _, err := os.Stat(sheetPath); err != nil {
		return fmt.Errorf("locate stock sheet: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	logFile, err := applog.OpenFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if cfg.Database.UseMock {
		return fmt.Errorf("DATABASE_USE_MOCK is set: an import into the in-memory store would be discarded")
	}

	rows, err := readSheet(sheetPath)
	if err != nil {
		return fmt.Errorf("read stock sheet: %w", err)
	}

	database, err := db.Configure(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close(database)

	inv, err := inventory.New(database, inventory.Options{Precision: int32(cfg.Inventory.QuantityPrecision)})
	if err != nil {
		return err
	}

	summary, err := importRows(ctx, inv, rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Imported %s: %d created, %d restocked, %d skipped\n",
		filepath.Base(sheetPath), summary.Created, summary.Restocked, summary.Skipped)
	return nil
}

// importRows creates unknown ingredients and restocks known ones. Zero rows
// for known ingredients are skipped. A row that fails validation stops the
// import; rows before it stay applied.
func importRows(ctx context.Context, inv *inventory.Inventory, rows []stockRow) (importSummary, error) {
	var summary importSummary
	for _, row := range rows {
		_, err := inv.Ingredients.Get(ctx, row.Name)
		switch {
		case err == nil:
			if row.Quantity.IsNegative() {
				return summary, fmt.Errorf("line %d (%s): quantity %s: %w", row.Line, row.Name, row.Quantity, inventory.ErrInvalidAmount)
			}
			if row.Quantity.IsZero() {
				summary.Skipped++
				continue
			}
			if _, err := inv.Ingredients.Restock(ctx, row.Name, row.Quantity); err != nil {
				return summary, fmt.Errorf("line %d (%s): %w", row.Line, row.Name, err)
			}
			summary.Restocked++
		case errors.Is(err, inventory.ErrNotFound):
			if _, err := inv.Ingredients.Create(ctx, row.Name, row.Quantity, row.Supplier); err != nil {
				return summary, fmt.Errorf("line %d (%s): %w", row.Line, row.Name, err)
			}
			summary.Created++
		default:
			return summary, fmt.Errorf("line %d (%s): %w", row.Line, row.Name, err)
		}
	}
	return summary, nil
}

func readSheet(path string) ([]stockRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text, err := extractTextFromPDF(data)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		return parseStockLines(text)
	default:
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return readCSV(file)
	}
}

// readCSV reads a sheet with the columns "Ingredient Name", "Quantity (kg)"
// and an optional "Supplier".
func readCSV(r io.Reader) ([]stockRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}

	columns := make(map[string]int, len(records[0]))
	for idx, key := range records[0] {
		columns[normalizeHeader(key)] = idx
	}
	nameCol, ok := columns["ingredient name"]
	if !ok {
		return nil, errors.New(`csv has no "Ingredient Name" column`)
	}
	qtyCol, ok := columns["quantity (kg)"]
	if !ok {
		return nil, errors.New(`csv has no "Quantity (kg)" column`)
	}
	supplierCol, hasSupplier := columns["supplier"]

	rows := make([]stockRow, 0, len(records)-1)
	for i, record := range records[1:] {
		line := i + 2
		name := normalizeText(cell(record, nameCol))
		if name == "" {
			continue
		}
		qty, err := inventory.ParseKg(strings.ReplaceAll(cell(record, qtyCol), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", line, name, err)
		}
		row := stockRow{Line: line, Name: name, Quantity: qty}
		if hasSupplier {
			row.Supplier = normalizeText(cell(record, supplierCol))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseStockLines reads "<name> <qty> kg [supplier]" lines from extracted
// text. Lines without a kg quantity are ignored.
func parseStockLines(text string) ([]stockRow, error) {
	var rows []stockRow
	for i, raw := range strings.Split(text, "\n") {
		line := normalizeText(raw)
		match := stockLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		qty, err := inventory.ParseKg(strings.ReplaceAll(match[2], ",", "."))
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", i+1, match[1], err)
		}
		rows = append(rows, stockRow{
			Line:     i + 1,
			Name:     strings.TrimSpace(match[1]),
			Quantity: qty,
			Supplier: strings.TrimSpace(match[3]),
		})
	}
	if len(rows) == 0 {
		return nil, errors.New("no stock lines found")
	}
	return rows, nil
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return record[idx]
}

func normalizeHeader(value string) string {
	return strings.ToLower(normalizeText(strings.TrimPrefix(value, "\uFEFF")))
}

func normalizeText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return ""
	}
	return cleanWhitespace.ReplaceAllString(value, " ")
}
