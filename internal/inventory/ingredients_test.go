package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIngredientCreateRejectsCaseInsensitiveDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)

	_, err := inv.Ingredients.Create(ctx, "Water", kg("100"), "Mains")
	require.NoError(t, err)

	_, err = inv.Ingredients.Create(ctx, "water", kg("5"), "Other")
	require.ErrorIs(t, err, ErrDuplicate)

	requireStock(t, inv, "WATER", "100")
}

func TestIngredientCreateValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)

	_, err := inv.Ingredients.Create(ctx, "  ", kg("1"), "")
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = inv.Ingredients.Create(ctx, "Glycerin", kg("-1"), "")
	require.ErrorIs(t, err, ErrValidation)

	created, err := inv.Ingredients.Create(ctx, "  Glycerin ", kg("0"), " Brenntag ")
	require.NoError(t, err)
	require.Equal(t, "Glycerin", created.Name)
	require.Equal(t, "Brenntag", created.Supplier)
	requireKg(t, "0", created.QuantityKg)
}

func TestIngredientCreateRoundsQuantity(t *testing.T) {
	t.Parallel()

	inv := newTestInventory(t)
	created, err := inv.Ingredients.Create(context.Background(), "Salt", kg("1.23456789"), "")
	require.NoError(t, err)
	requireKg(t, "1.234568", created.QuantityKg)
	requireStock(t, inv, "salt", "1.234568")
}

func TestIngredientRestock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Citric Acid": "10"})

	updated, err := inv.Ingredients.Restock(ctx, "citric acid", kg("2.5"))
	require.NoError(t, err)
	requireKg(t, "12.5", updated.QuantityKg)

	for _, bad := range []string{"0", "-3", "0.0000001"} {
		_, err := inv.Ingredients.Restock(ctx, "Citric Acid", kg(bad))
		require.ErrorIs(t, err, ErrInvalidAmount, bad)
	}

	_, err = inv.Ingredients.Restock(ctx, "Nothing", kg("1"))
	require.ErrorIs(t, err, ErrNotFound)

	requireStock(t, inv, "Citric Acid", "12.5")
}

func TestIngredientAdjust(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Water": "100"})

	adjusted, err := inv.Ingredients.Adjust(ctx, "water", kg("42"), "Spring Co")
	require.NoError(t, err)
	requireKg(t, "42", adjusted.QuantityKg)
	require.Equal(t, "Spring Co", adjusted.Supplier)

	_, err = inv.Ingredients.Adjust(ctx, "Water", kg("-1"), "")
	require.ErrorIs(t, err, ErrNegativeQuantity)

	fetched, err := inv.Ingredients.Get(ctx, "WATER")
	require.NoError(t, err)
	requireKg(t, "42", fetched.QuantityKg)
	require.Equal(t, "Spring Co", fetched.Supplier)
}

func TestIngredientDebitRefusesOverdraw(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Water": "5"})

	err := inv.Ingredients.Debit(ctx, "Water", kg("6"))
	require.ErrorIs(t, err, ErrInsufficientStock)

	var shortage *InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Shortages, 1)
	requireKg(t, "1", shortage.Shortages[0].Shortfall)
	requireStock(t, inv, "Water", "5")

	require.NoError(t, inv.Ingredients.Debit(ctx, "Water", kg("5")))
	requireStock(t, inv, "Water", "0")

	require.ErrorIs(t, inv.Ingredients.Debit(ctx, "Water", kg("0")), ErrInvalidAmount)
}

func TestIngredientCredit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Water": "5"})

	require.NoError(t, inv.Ingredients.Credit(ctx, "water", kg("1000000")))
	requireStock(t, inv, "Water", "1000005")

	require.ErrorIs(t, inv.Ingredients.Credit(ctx, "Missing", kg("1")), ErrNotFound)
	require.ErrorIs(t, inv.Ingredients.Credit(ctx, "Water", kg("-1")), ErrInvalidAmount)
}

func TestIngredientSufficient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Water": "5"})

	ok, err := inv.Ingredients.Sufficient(ctx, "Water", kg("5"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = inv.Ingredients.Sufficient(ctx, "Water", kg("5.000001"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = inv.Ingredients.Sufficient(ctx, "Ghost", kg("1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIngredientListOrdersByNameIgnoringCase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	for _, name := range []string{"water", "Citric Acid", "alcohol", "Benzoate"} {
		_, err := inv.Ingredients.Create(ctx, name, kg("1"), "")
		require.NoError(t, err)
	}

	list, err := inv.Ingredients.List(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, ingredient := range list {
		names = append(names, ingredient.Name)
	}
	require.Equal(t, []string{"alcohol", "Benzoate", "Citric Acid", "water"}, names)
}

func TestIngredientSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Citric Acid": "1", "Acetic Acid": "1", "Water": "1"})

	matches, err := inv.Ingredients.Search(ctx, "ACID")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Acetic Acid", matches[0].Name)
	require.Equal(t, "Citric Acid", matches[1].Name)

	all, err := inv.Ingredients.Search(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestIngredientDeleteReportsReferencingFormulas(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inv := newTestInventory(t)
	stock(t, inv, map[string]string{"Citric Acid": "10", "Water": "100"})

	_, err := inv.Formulas.Create(ctx, "CleanerX", []Component{
		{Ingredient: "Citric Acid", Percentage: kg("50")},
		{Ingredient: "Water", Percentage: kg("50")},
	})
	require.NoError(t, err)

	referencing, err := inv.Ingredients.Delete(ctx, "citric acid")
	require.NoError(t, err)
	require.Equal(t, []string{"CleanerX"}, referencing)

	_, err = inv.Ingredients.Get(ctx, "Citric Acid")
	require.ErrorIs(t, err, ErrIngredientNotFound)

	formula, err := inv.Formulas.Get(ctx, "CleanerX")
	require.NoError(t, err)
	require.Len(t, formula.Components, 2)

	// The name is free again after a delete.
	_, err = inv.Ingredients.Create(ctx, "Citric Acid", kg("1"), "")
	require.NoError(t, err)

	_, err = inv.Ingredients.Delete(ctx, "Ghost")
	require.ErrorIs(t, err, ErrNotFound)
}
