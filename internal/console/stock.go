package console

import (
	"context"
	"fmt"
	"strings"

	"rawmat/internal/inventory"
)

func runStock(ctx context.Context, s *Session, args []string) error {
	if len(args) == 0 {
		return s.listStock(ctx)
	}
	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "list":
		return s.listStock(ctx)
	case "find", "search":
		if len(rest) == 0 {
			return usageError("stock find <text>")
		}
		found, err := s.inv.Ingredients.Search(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		return renderIngredients(s.out, found)
	case "add":
		if len(rest) < 2 || len(rest) > 3 {
			return usageError("stock add <name> <kg> [supplier]")
		}
		qty, err := inventory.ParseKg(rest[1])
		if err != nil {
			return err
		}
		ingredient, err := s.inv.Ingredients.Create(ctx, rest[0], qty, optional(rest, 2))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Added %s: %s kg.\n", ingredient.Name, formatKg(ingredient.QuantityKg))
		return nil
	case "restock":
		if len(rest) != 2 {
			return usageError("stock restock <name> <kg>")
		}
		delta, err := inventory.ParseKg(rest[1])
		if err != nil {
			return err
		}
		ingredient, err := s.inv.Ingredients.Restock(ctx, rest[0], delta)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s now at %s kg.\n", ingredient.Name, formatKg(ingredient.QuantityKg))
		return nil
	case "edit":
		if len(rest) < 2 || len(rest) > 3 {
			return usageError("stock edit <name> <kg> [supplier]")
		}
		qty, err := inventory.ParseKg(rest[1])
		if err != nil {
			return err
		}
		supplier := optional(rest, 2)
		if len(rest) == 2 {
			current, err := s.inv.Ingredients.Get(ctx, rest[0])
			if err != nil {
				return err
			}
			supplier = current.Supplier
		}
		ingredient, err := s.inv.Ingredients.Adjust(ctx, rest[0], qty, supplier)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s set to %s kg (%s).\n", ingredient.Name, formatKg(ingredient.QuantityKg), defaultDash(ingredient.Supplier))
		return nil
	case "delete", "rm":
		if len(rest) != 1 {
			return usageError("stock delete <name>")
		}
		ingredient, err := s.inv.Ingredients.Get(ctx, rest[0])
		if err != nil {
			return err
		}
		if !s.confirm(fmt.Sprintf("Delete ingredient '%s'? This cannot be undone.", ingredient.Name)) {
			return nil
		}
		referencing, err := s.inv.Ingredients.Delete(ctx, ingredient.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Deleted %s.\n", ingredient.Name)
		if len(referencing) > 0 {
			fmt.Fprintf(s.out, "Warning: still used by %s; production of those products will report it as missing.\n", strings.Join(referencing, ", "))
		}
		return nil
	default:
		return usageError("stock [list|find|add|restock|edit|delete] ...")
	}
}

func (s *Session) listStock(ctx context.Context) error {
	ingredients, err := s.inv.Ingredients.List(ctx)
	if err != nil {
		return err
	}
	return renderIngredients(s.out, ingredients)
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
