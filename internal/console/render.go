package console

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"rawmat/models"
)

const timeLayout = "2006-01-02 15:04:05"

var inputTimeLayouts = []string{
	timeLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cells ...any) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprint(cell)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}

func formatKg(value decimal.Decimal) string {
	return value.String()
}

// defaultDash renders empty values as a dash.
func defaultDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(timeLayout)
}

// parseTime reads a user supplied production time in loc. Blank means zero,
// which the ledger replaces with the current time.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range inputTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q: expected YYYY-MM-DD HH:MM:SS", value)
}

func renderIngredients(w io.Writer, ingredients []models.Ingredient) error {
	if len(ingredients) == 0 {
		fmt.Fprintln(w, "No ingredients.")
		return nil
	}
	tw := newTable(w, "SNo", "Ingredient Name", "Quantity (kg)", "Supplier")
	for i, ingredient := range ingredients {
		row(tw, i+1, ingredient.Name, formatKg(ingredient.QuantityKg), defaultDash(ingredient.Supplier))
	}
	return tw.Flush()
}

func renderFormula(w io.Writer, formula *models.Formula) error {
	fmt.Fprintf(w, "Product: %s\n", formula.Name)
	tw := newTable(w, "#", "Ingredient", "%")
	for _, component := range formula.Components {
		row(tw, component.Position, component.IngredientName, component.Percentage.String())
	}
	row(tw, "", "Total", formula.TotalPercentage().String())
	if err := tw.Flush(); err != nil {
		return err
	}
	warnTotal(w, formula)
	return nil
}

func warnTotal(w io.Writer, formula *models.Formula) {
	if total := formula.TotalPercentage(); !total.Equal(decimal.NewFromInt(100)) {
		fmt.Fprintf(w, "Warning: percentages of %s add up to %s%%, not 100%%.\n", formula.Name, total)
	}
}

func renderFormulas(w io.Writer, formulas []models.Formula) error {
	if len(formulas) == 0 {
		fmt.Fprintln(w, "No products.")
		return nil
	}
	tw := newTable(w, "Product Name", "Ingredients", "Total %")
	for _, formula := range formulas {
		row(tw, formula.Name, len(formula.Components), formula.TotalPercentage().String())
	}
	return tw.Flush()
}

func renderRecords(w io.Writer, records []models.ProductionRecord, loc *time.Location) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No production recorded.")
		return nil
	}
	tw := newTable(w, "ID", "Product", "Kilos", "Date", "Batch No.")
	for _, record := range records {
		row(tw, record.ID, record.ProductName, formatKg(record.BatchSizeKg), formatTime(record.ProducedAt, loc), defaultDash(record.BatchNumber))
	}
	return tw.Flush()
}

func renderRecord(w io.Writer, record *models.ProductionRecord, loc *time.Location) error {
	fmt.Fprintf(w, "Production #%d\n", record.ID)
	fmt.Fprintf(w, "Product: %s\nKilos: %s\nDate: %s\nBatch: %s\n",
		record.ProductName, formatKg(record.BatchSizeKg), formatTime(record.ProducedAt, loc), batchLabel(record.BatchNumber))
	tw := newTable(w, "Ingredient", "%", "Consumed (kg)")
	for _, line := range record.Consumed {
		row(tw, line.IngredientName, line.Percentage.String(), formatKg(line.QuantityKg))
	}
	return tw.Flush()
}

func batchLabel(batch string) string {
	if strings.TrimSpace(batch) == "" {
		return "(none)"
	}
	return batch
}
