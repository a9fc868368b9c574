package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vitalia-app/vitalia/internal/call"
	"github.com/vitalia-app/vitalia/internal/config"
	"github.com/vitalia-app/vitalia/internal/speech"
	"github.com/vitalia-app/vitalia/internal/store"
)

func setupServer(t *testing.T) (*Server, *speech.MockNarrator) {
	sqliteDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{})
	require.NoError(t, err)
	st, err := store.NewWithDB(db)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{AllowOrigins: []string{"*"}},
		Engine: config.EngineConfig{
			HydrationGoal:       8,
			CallEndDelaySeconds: 1,
			AutoAnswer:          true,
		},
		Speech: config.SpeechConfig{Language: "es"},
	}

	logger, _ := zap.NewDevelopment()
	narrator := speech.NewMockNarrator()
	orchestrator := call.NewOrchestrator(narrator, cfg.Speech, cfg.Engine, logger)

	return New(cfg, st, orchestrator, logger), narrator
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestAPI_Health(t *testing.T) {
	s, _ := setupServer(t)

	resp := doJSON(t, s, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CallWithoutSession(t *testing.T) {
	s, _ := setupServer(t)

	var snap struct {
		State string `json:"state"`
	}
	resp := doJSON(t, s, "GET", "/api/call", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &snap)
	assert.Equal(t, "idle", snap.State)

	resp = doJSON(t, s, "POST", "/api/call/accept", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, s, "POST", "/api/call/hangup", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_BloodPressureCrisisTriggersCall(t *testing.T) {
	s, narrator := setupServer(t)

	var result struct {
		Classification struct {
			Tier    string `json:"tier"`
			Message string `json:"message"`
		} `json:"classification"`
		Triggered bool `json:"triggered"`
	}
	resp := doJSON(t, s, "POST", "/api/readings/blood-pressure", map[string]int{
		"systolic":  185,
		"diastolic": 100,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &result)

	assert.Equal(t, "crisis", result.Classification.Tier)
	assert.Contains(t, result.Classification.Message, "ALERTA ROJA")
	assert.True(t, result.Triggered)
	require.Len(t, narrator.Spoken, 1)
	assert.Contains(t, narrator.Spoken[0], "185 sobre 100")
}

func TestAPI_BloodPressureRejectsNonPositive(t *testing.T) {
	s, _ := setupServer(t)

	resp := doJSON(t, s, "POST", "/api/readings/blood-pressure", map[string]int{
		"systolic":  0,
		"diastolic": 80,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GlucoseInRangeDoesNotAlert(t *testing.T) {
	s, narrator := setupServer(t)

	var result struct {
		Classification struct {
			Tier string `json:"tier"`
		} `json:"classification"`
		Triggered bool `json:"triggered"`
	}
	resp := doJSON(t, s, "POST", "/api/readings/glucose", map[string]any{
		"value":   100,
		"context": "en ayunas",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &result)

	assert.Equal(t, "in_range", result.Classification.Tier)
	assert.False(t, result.Triggered)
	assert.Empty(t, narrator.Spoken)
}

func TestAPI_GlucoseSevereLowAlerts(t *testing.T) {
	s, narrator := setupServer(t)

	var result struct {
		Triggered bool `json:"triggered"`
	}
	resp := doJSON(t, s, "POST", "/api/readings/glucose", map[string]any{"value": 40})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &result)

	assert.True(t, result.Triggered)
	require.Len(t, narrator.Spoken, 1)
	assert.Contains(t, narrator.Spoken[0], "Hipoglucemia severa")
}

func TestAPI_GlucoseStats(t *testing.T) {
	s, _ := setupServer(t)

	for _, v := range []float64{95, 160, 300} {
		resp := doJSON(t, s, "POST", "/api/readings/glucose", map[string]any{"value": v})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		// Free the session so the next alert-worthy reading can narrate.
		doJSON(t, s, "POST", "/api/call/hangup", nil)
	}

	var result struct {
		Days  int `json:"days"`
		Stats struct {
			Count int     `json:"count"`
			Mean  float64 `json:"mean"`
		} `json:"stats"`
	}
	resp := doJSON(t, s, "GET", "/api/readings/glucose/stats?days=7", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)

	assert.Equal(t, 7, result.Days)
	assert.Equal(t, 3, result.Stats.Count)
	assert.InDelta(t, 185.0, result.Stats.Mean, 0.01)
}

func TestAPI_MedicationCRUD(t *testing.T) {
	s, _ := setupServer(t)

	var med store.Medication
	resp := doJSON(t, s, "POST", "/api/medications", map[string]any{
		"name":    "Metformina",
		"dosage":  "500mg",
		"times":   []string{"08:00", "20:00"},
		"enabled": true,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &med)
	assert.NotEmpty(t, med.ID)

	var meds []store.Medication
	resp = doJSON(t, s, "GET", "/api/medications", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &meds)
	require.Len(t, meds, 1)
	assert.Equal(t, []string{"08:00", "20:00"}, meds[0].Times)

	resp = doJSON(t, s, "PUT", "/api/medications/"+med.ID, map[string]any{
		"name":    "Metformina",
		"times":   []string{"09:00"},
		"enabled": false,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, "DELETE", "/api/medications/"+med.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, s, "GET", "/api/medications", nil)
	decode(t, resp, &meds)
	assert.Empty(t, meds)
}

func TestAPI_MedicationRejectsMalformedTime(t *testing.T) {
	s, _ := setupServer(t)

	resp := doJSON(t, s, "POST", "/api/medications", map[string]any{
		"name":  "Metformina",
		"times": []string{"8:00am"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_InsulinUpdatePreservesCreatedAt(t *testing.T) {
	s, _ := setupServer(t)

	var dose store.InsulinDose
	resp := doJSON(t, s, "POST", "/api/insulin", map[string]any{
		"description": "insulina rápida",
		"units":       10,
		"times":       []string{"07:30"},
		"enabled":     true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &dose)
	require.False(t, dose.CreatedAt.IsZero())

	var updated store.InsulinDose
	resp = doJSON(t, s, "PUT", "/api/insulin/"+dose.ID, map[string]any{
		"description": "insulina rápida",
		"units":       12,
		"times":       []string{"08:00"},
		"enabled":     true,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Equal(t, 12, updated.Units)
	assert.Equal(t, dose.CreatedAt.Unix(), updated.CreatedAt.Unix())

	resp = doJSON(t, s, "PUT", "/api/insulin/ins_missing", map[string]any{
		"description": "nada",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_MealUpdatePreservesCreatedAt(t *testing.T) {
	s, _ := setupServer(t)

	var meal store.MealPlan
	resp := doJSON(t, s, "POST", "/api/meals", map[string]any{
		"meal_type":   "Desayuno",
		"description": "avena con fruta",
		"times":       []string{"07:00"},
		"enabled":     true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &meal)
	require.False(t, meal.CreatedAt.IsZero())

	var updated store.MealPlan
	resp = doJSON(t, s, "PUT", "/api/meals/"+meal.ID, map[string]any{
		"meal_type":   "Desayuno",
		"description": "yogur con avena",
		"times":       []string{"07:30"},
		"enabled":     true,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Equal(t, "yogur con avena", updated.Description)
	assert.Equal(t, meal.CreatedAt.Unix(), updated.CreatedAt.Unix())

	resp = doJSON(t, s, "PUT", "/api/meals/meal_missing", map[string]any{
		"meal_type": "Cena",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_UpdateMissingMedication(t *testing.T) {
	s, _ := setupServer(t)

	resp := doJSON(t, s, "PUT", "/api/medications/med_missing", map[string]any{
		"name": "Nada",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_AppointmentValidation(t *testing.T) {
	s, _ := setupServer(t)

	resp := doJSON(t, s, "POST", "/api/appointments", map[string]string{
		"doctor": "Dra. Morales",
		"date":   "2026-09-15",
		"time":   "10:00",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, s, "POST", "/api/appointments", map[string]string{
		"doctor": "Dra. Morales",
		"date":   "15/09/2026",
		"time":   "10:00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_HydrationIncrement(t *testing.T) {
	s, _ := setupServer(t)

	var result struct {
		Count int `json:"count"`
		Goal  int `json:"goal"`
	}
	resp := doJSON(t, s, "GET", "/api/hydration", nil)
	decode(t, resp, &result)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, 8, result.Goal)

	resp = doJSON(t, s, "POST", "/api/hydration/increment", nil)
	decode(t, resp, &result)
	assert.Equal(t, 1, result.Count)
}

func TestAPI_ManualAlert(t *testing.T) {
	s, narrator := setupServer(t)

	var result struct {
		Triggered bool `json:"triggered"`
	}
	resp := doJSON(t, s, "POST", "/api/alerts", map[string]string{
		"message":      "Prueba de alerta.",
		"caller_label": "Prueba",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &result)
	assert.True(t, result.Triggered)
	assert.Equal(t, []string{"Prueba de alerta."}, narrator.Spoken)

	resp = doJSON(t, s, "POST", "/api/alerts", map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
