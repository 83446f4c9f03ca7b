package console

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rawmat/internal/db/mock"
	"rawmat/internal/inventory"
)

var sessionNow = time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, input string) (*Session, *inventory.Inventory, *bytes.Buffer) {
	t.Helper()

	database, err := mock.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	inv, err := inventory.New(database, inventory.Options{Now: func() time.Time { return sessionNow }})
	require.NoError(t, err)

	var out bytes.Buffer
	s := New(inv, strings.NewReader(input), &out, Options{
		BackupDir: t.TempDir(),
		Location:  time.UTC,
		Now:       func() time.Time { return sessionNow },
	})
	return s, inv, &out
}

func stockOf(t *testing.T, inv *inventory.Inventory, name string) string {
	t.Helper()
	ingredient, err := inv.Ingredients.Get(context.Background(), name)
	require.NoError(t, err)
	return ingredient.QuantityKg.String()
}

func TestRunProductionRoundTrip(t *testing.T) {
	t.Parallel()

	script := strings.Join([]string{
		"produce check CleanerX 30",
		`produce confirm CleanerX 10 --at "2024-05-01 08:15:00" --batch B-7`,
		"produce confirm CleanerX 30",
		"history",
		"history delete 1",
		"y",
		"quit",
	}, "\n")
	s, inv, out := newTestSession(t, script)

	require.NoError(t, s.Run(context.Background()))

	text := out.String()
	require.Contains(t, text, "Some ingredients are insufficient")
	require.Contains(t, text, "Production #1 confirmed and stock updated.")
	require.Contains(t, text, "Citric Acid: need 15 kg, have 5 kg, short 10 kg")
	require.Contains(t, text, "2024-05-01 08:15:00")
	require.Contains(t, text, "B-7")
	require.Contains(t, text, "Production deleted and stock quantities restored.")

	require.Equal(t, "10", stockOf(t, inv, "Citric Acid"))
	require.Equal(t, "100", stockOf(t, inv, "Water"))

	records, err := inv.Production.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRunStopsAtEndOfInput(t *testing.T) {
	t.Parallel()

	s, _, out := newTestSession(t, "stock\n")
	require.NoError(t, s.Run(context.Background()))
	require.Contains(t, out.String(), "Sodium Laureth Sulfate")
}

func TestStockCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, inv, out := newTestSession(t, "")

	require.NoError(t, s.Execute(ctx, `stock add "Sodium Chloride" 12.5kg "Salt Works"`))
	require.Equal(t, "12.5", stockOf(t, inv, "sodium chloride"))

	require.NoError(t, s.Execute(ctx, `stock restock "sodium chloride" 2.5`))
	require.Equal(t, "15", stockOf(t, inv, "Sodium Chloride"))

	require.NoError(t, s.Execute(ctx, `stock edit "Sodium Chloride" 3`))
	ingredient, err := inv.Ingredients.Get(ctx, "Sodium Chloride")
	require.NoError(t, err)
	require.Equal(t, "3", ingredient.QuantityKg.String())
	require.Equal(t, "Salt Works", ingredient.Supplier)

	err = s.Execute(ctx, `stock add water 1`)
	require.ErrorIs(t, err, inventory.ErrDuplicate)

	err = s.Execute(ctx, `stock restock Water -1`)
	require.ErrorIs(t, err, inventory.ErrValidation)

	out.Reset()
	require.NoError(t, s.Execute(ctx, "stock find acid"))
	require.Contains(t, out.String(), "Citric Acid")
	require.NotContains(t, out.String(), "Water")

	out.Reset()
	require.NoError(t, s.Execute(ctx, "stock"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[1], "1 "))
	require.Contains(t, lines[1], "Citric Acid")
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, inv, out := newTestSession(t, "n\nyes\n")

	require.NoError(t, s.Execute(ctx, `stock delete "Lemon Fragrance"`))
	require.Contains(t, out.String(), "Cancelled.")
	_, err := inv.Ingredients.Get(ctx, "Lemon Fragrance")
	require.NoError(t, err)

	require.NoError(t, s.Execute(ctx, `stock delete "Lemon Fragrance"`))
	require.Contains(t, out.String(), "still used by Dish Soap")
	_, err = inv.Ingredients.Get(ctx, "Lemon Fragrance")
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestProductCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, inv, out := newTestSession(t, "y\n")

	require.NoError(t, s.Execute(ctx, `product add "Lemon Water" "Lemon Fragrance=2%" Water=90`))
	require.Contains(t, out.String(), "Saved Lemon Water with 2 ingredients.")
	require.Contains(t, out.String(), "add up to 92%")

	out.Reset()
	require.NoError(t, s.Execute(ctx, `product edit "lemon water" "Lemon Fragrance=2" Water=98`))
	require.NotContains(t, out.String(), "Warning")

	out.Reset()
	require.NoError(t, s.Execute(ctx, `product show "Lemon Water"`))
	require.Contains(t, out.String(), "Lemon Fragrance")
	require.Contains(t, out.String(), "98")

	err := s.Execute(ctx, `product add Broken Water`)
	require.ErrorIs(t, err, inventory.ErrValidation)

	err = s.Execute(ctx, `product add Ghostly Ghost=100`)
	require.ErrorIs(t, err, inventory.ErrUnknownIngredient)

	require.NoError(t, s.Execute(ctx, `product delete "Lemon Water"`))
	_, err = inv.Formulas.Get(ctx, "Lemon Water")
	require.ErrorIs(t, err, inventory.ErrNotFound)

	out.Reset()
	require.NoError(t, s.Execute(ctx, "products"))
	require.Contains(t, out.String(), "CleanerX")
	require.Contains(t, out.String(), "Dish Soap")
}

func TestExecuteRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, "")

	tests := []string{
		"frobnicate",
		`stock add "unterminated`,
		"produce confirm CleanerX",
		"produce confirm CleanerX 5 --at yesterday",
		"produce confirm CleanerX 5 --color red",
		"history show abc",
		"stock add",
	}
	for _, line := range tests {
		require.ErrorIs(t, s.Execute(ctx, line), inventory.ErrValidation, line)
	}

	require.NoError(t, s.Execute(ctx, "   "))
	require.ErrorIs(t, s.Execute(ctx, "quit"), errQuit)
	require.ErrorIs(t, s.Execute(ctx, "EXIT"), errQuit)
}

func TestBackupCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, out := newTestSession(t, "")

	require.NoError(t, s.Execute(ctx, "backup"))
	require.Contains(t, out.String(), filepath.Join(s.backupDir, "raw_materials_20240510_120000.db"))
	require.Contains(t, out.String(), "blake2b")
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)

	got, err := parseTime("2024-01-02 10:00:00", loc)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC)))

	got, err = parseTime("2024-01-02", loc)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2024, time.January, 1, 22, 0, 0, 0, time.UTC)))

	got, err = parseTime("", loc)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = parseTime("soon", loc)
	require.Error(t, err)
}

func TestSplitFlags(t *testing.T) {
	t.Parallel()

	positional, flags, err := splitFlags([]string{"Soap", "--batch=B1", "10", "--at", "2024-01-01"}, "at", "batch")
	require.NoError(t, err)
	require.Equal(t, []string{"Soap", "10"}, positional)
	require.Equal(t, map[string]string{"batch": "B1", "at": "2024-01-01"}, flags)

	_, _, err = splitFlags([]string{"--at"}, "at")
	require.ErrorIs(t, err, inventory.ErrValidation)
}
