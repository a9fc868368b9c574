package engine

import (
	"database/sql"
	"testing"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vitalia-app/vitalia/internal/store"
)

func setupSourceStore(t *testing.T) *store.Store {
	sqliteDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{})
	require.NoError(t, err)

	st, err := store.NewWithDB(db)
	require.NoError(t, err)
	return st
}

func TestMedicationSource(t *testing.T) {
	st := setupSourceStore(t)
	require.NoError(t, st.CreateMedication(&store.Medication{
		Name:    "Metformina",
		Dosage:  "500mg",
		Times:   []string{"08:00", "20:00"},
		Enabled: true,
	}))
	require.NoError(t, st.CreateMedication(&store.Medication{
		Name:    "Enalapril",
		Times:   []string{"09:00"},
		Enabled: false,
	}))

	src := NewMedicationSource(st)
	assert.Equal(t, DomainMedication, src.Domain())

	items, err := src.List()
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.True(t, items[0].Enabled)
	assert.Equal(t, []string{"08:00", "20:00"}, items[0].Times)
	assert.Equal(t, "Es hora de tomar tu medicamento: Metformina (500mg).", items[0].Message)

	// Disabled items are listed but flagged; the evaluator skips them.
	assert.False(t, items[1].Enabled)
	assert.Equal(t, "Es hora de tomar tu medicamento: Enalapril.", items[1].Message)
}

func TestInsulinSource(t *testing.T) {
	st := setupSourceStore(t)
	require.NoError(t, st.CreateInsulinDose(&store.InsulinDose{
		Description: "insulina rápida",
		Units:       12,
		Times:       []string{"07:30"},
		Enabled:     true,
	}))

	src := NewInsulinSource(st)
	assert.Equal(t, DomainInsulin, src.Domain())

	items, err := src.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Es hora de aplicarte tu insulina: insulina rápida, 12 unidades.", items[0].Message)
}

func TestMealSource(t *testing.T) {
	st := setupSourceStore(t)
	require.NoError(t, st.CreateMealPlan(&store.MealPlan{
		MealType:    "Desayuno",
		Description: "avena con fruta",
		Times:       []string{"07:00"},
		Enabled:     true,
	}))

	src := NewMealSource(st)
	assert.Equal(t, DomainMeal, src.Domain())

	items, err := src.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Es hora de tu desayuno: avena con fruta.", items[0].Message)
}
