package console

import (
	"context"
	"fmt"
	"strings"

	"rawmat/internal/inventory"
	"rawmat/models"
)

func runProduct(ctx context.Context, s *Session, args []string) error {
	if len(args) == 0 {
		return s.listProducts(ctx)
	}
	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "list":
		return s.listProducts(ctx)
	case "show":
		if len(rest) != 1 {
			return usageError("product show <name>")
		}
		formula, err := s.inv.Formulas.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		return renderFormula(s.out, formula)
	case "add", "edit":
		if len(rest) < 2 {
			return usageError(fmt.Sprintf("product %s <name> <ingredient=pct>...", sub))
		}
		components, err := parseComponents(rest[1:])
		if err != nil {
			return err
		}
		var formula *models.Formula
		if sub == "add" {
			formula, err = s.inv.Formulas.Create(ctx, rest[0], components)
		} else {
			formula, err = s.inv.Formulas.Edit(ctx, rest[0], components)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %s with %d ingredients.\n", formula.Name, len(formula.Components))
		warnTotal(s.out, formula)
		return nil
	case "delete", "rm":
		if len(rest) != 1 {
			return usageError("product delete <name>")
		}
		formula, err := s.inv.Formulas.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		if !s.confirm(fmt.Sprintf("Delete product '%s' and its formula?", formula.Name)) {
			return nil
		}
		if err := s.inv.Formulas.Delete(ctx, formula.Name); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Deleted %s.\n", formula.Name)
		return nil
	default:
		return usageError("product [list|show|add|edit|delete] ...")
	}
}

func (s *Session) listProducts(ctx context.Context) error {
	formulas, err := s.inv.Formulas.List(ctx)
	if err != nil {
		return err
	}
	return renderFormulas(s.out, formulas)
}

// parseComponents reads "ingredient=percentage" pairs. The last '=' splits,
// so ingredient names may contain one.
func parseComponents(args []string) ([]inventory.Component, error) {
	components := make([]inventory.Component, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i < 0 {
			return nil, fmt.Errorf("%w: %q is not ingredient=percentage", inventory.ErrValidation, arg)
		}
		pct, err := inventory.ParsePercentage(arg[i+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid percentage for ingredient '%s': %w", strings.TrimSpace(arg[:i]), err)
		}
		components = append(components, inventory.Component{Ingredient: arg[:i], Percentage: pct})
	}
	return components, nil
}
