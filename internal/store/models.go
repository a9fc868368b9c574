package store

import (
	"time"
)

// Medication is a medicine with one or more daily intake times.
type Medication struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	Name   string `json:"name"`
	Dosage string `json:"dosage"` // e.g. "500mg", "1 tableta"
	Notes  string `json:"notes,omitempty"`

	// Times holds 24-hour "HH:MM" strings, serialized into TimesJSON.
	Times     []string `json:"times" gorm:"-"`
	TimesJSON string   `json:"-" gorm:"type:text"`

	Enabled bool `json:"enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InsulinDose is a scheduled insulin application.
type InsulinDose struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	Description string `json:"description"` // e.g. "insulina rápida"
	Units       int    `json:"units"`

	Times     []string `json:"times" gorm:"-"`
	TimesJSON string   `json:"-" gorm:"type:text"`

	Enabled bool `json:"enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MealPlan is a scheduled meal from the diet plan.
type MealPlan struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	MealType    string `json:"meal_type"` // desayuno, almuerzo, cena, merienda
	Description string `json:"description"`

	Times     []string `json:"times" gorm:"-"`
	TimesJSON string   `json:"-" gorm:"type:text"`

	Enabled bool `json:"enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Appointment is a medical appointment. Immutable once created except by deletion.
type Appointment struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	Date     string `json:"date" gorm:"index"` // "2006-01-02"
	Time     string `json:"time"`              // "15:04"
	Doctor   string `json:"doctor"`
	Location string `json:"location,omitempty"`
	Reason   string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// When returns the appointment date+time in the given location.
func (a *Appointment) When(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.Time, loc)
}

// HydrationLog is the per-date glass counter. One row per calendar date.
type HydrationLog struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	Date  string `json:"date" gorm:"index"` // "2006-01-02"
	Count int    `json:"count"`

	UpdatedAt time.Time `json:"updated_at"`
}

// GlucoseReading is a stored blood glucose measurement in mg/dL.
type GlucoseReading struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	Value   float64 `json:"value"`
	Context string  `json:"context,omitempty"` // free text, e.g. "en ayunas", "postprandial"

	MeasuredAt time.Time `json:"measured_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

// BloodPressureReading is a stored blood pressure measurement.
type BloodPressureReading struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index"`

	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`

	MeasuredAt time.Time `json:"measured_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}
