package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"rawmat/internal/inventory"
)

func runProduce(ctx context.Context, s *Session, args []string) error {
	const usage = `produce check|confirm <product> <kg> [--at "YYYY-MM-DD HH:MM:SS"] [--batch NO]`
	if len(args) == 0 {
		return usageError(usage)
	}
	sub := strings.ToLower(args[0])
	positional, flags, err := splitFlags(args[1:], "at", "batch")
	if err != nil {
		return err
	}
	if len(positional) != 2 {
		return usageError(usage)
	}
	batch, err := inventory.ParseKg(positional[1])
	if err != nil {
		return err
	}

	switch sub {
	case "check":
		plan, err := s.inv.Production.Plan(ctx, positional[0], batch)
		if err != nil {
			return err
		}
		return s.renderPlan(plan)
	case "confirm":
		producedAt, err := parseTime(flags["at"], s.loc)
		if err != nil {
			return fmt.Errorf("%w: %v", inventory.ErrValidation, err)
		}
		record, err := s.inv.Production.Apply(ctx, inventory.ProductionInput{
			Product:     positional[0],
			BatchSizeKg: batch,
			ProducedAt:  producedAt,
			BatchNumber: flags["batch"],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Production #%d confirmed and stock updated.\n", record.ID)
		return renderRecord(s.out, record, s.loc)
	default:
		return usageError(usage)
	}
}

func (s *Session) renderPlan(plan *inventory.Plan) error {
	fmt.Fprintf(s.out, "%s, %s kg\n", plan.Product, formatKg(plan.BatchSizeKg))
	tw := newTable(s.out, "Ingredient", "%", "Required (kg)", "Available (kg)", "")
	for _, req := range plan.Requirements {
		status := "ok"
		switch {
		case req.Missing:
			status = "MISSING"
		case !req.Sufficient:
			status = "SHORT"
		}
		row(tw, req.Ingredient, req.Percentage.String(), formatKg(req.Required), formatKg(req.Available), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if plan.Sufficient() {
		fmt.Fprintln(s.out, "You have sufficient stock for the planned production.")
	} else {
		fmt.Fprintln(s.out, "Some ingredients are insufficient. They are marked SHORT or MISSING.")
	}
	return nil
}

func runHistory(ctx context.Context, s *Session, args []string) error {
	if len(args) == 0 || strings.EqualFold(args[0], "list") {
		records, err := s.inv.Production.List(ctx)
		if err != nil {
			return err
		}
		return renderRecords(s.out, records, s.loc)
	}
	if len(args) != 2 {
		return usageError("history [show|delete] [id]")
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	record, err := s.inv.Production.Get(ctx, id)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "show":
		return renderRecord(s.out, record, s.loc)
	case "delete", "rm":
		question := fmt.Sprintf("Delete production record:\n\nProduct: %s\nKilos: %s\nDate: %s\nBatch: %s\n\nThis will also add the ingredients back to stock.",
			record.ProductName, formatKg(record.BatchSizeKg), formatTime(record.ProducedAt, s.loc), batchLabel(record.BatchNumber))
		if !s.confirm(question) {
			return nil
		}
		if _, err := s.inv.Production.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Production deleted and stock quantities restored.")
		return nil
	default:
		return usageError("history [show|delete] [id]")
	}
}

func parseID(value string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(value), "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q is not a production id", inventory.ErrValidation, value)
	}
	return uint(id), nil
}

// splitFlags separates --name value (or --name=value) options from positional
// arguments. Only the listed names are accepted.
func splitFlags(args []string, names ...string) ([]string, map[string]string, error) {
	allowed := make(map[string]bool, len(names))
	for _, name := range names {
		allowed[name] = true
	}
	flags := make(map[string]string)
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !allowed[name] {
			return nil, nil, fmt.Errorf("%w: unknown option --%s", inventory.ErrValidation, name)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("%w: option --%s needs a value", inventory.ErrValidation, name)
			}
			i++
			value = args[i]
		}
		flags[name] = value
	}
	return positional, flags, nil
}
