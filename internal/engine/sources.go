package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/vitalia-app/vitalia/internal/store"
)

// ScheduleItem is a read-only view over one externally stored plan entry.
// Message is the fully rendered reminder text for this item.
type ScheduleItem struct {
	ID      string
	Enabled bool
	Times   []string // 24-hour "HH:MM" strings
	Message string
}

// ScheduleSource is a read-only feed of configured reminder items for one
// health domain. Each domain is a pluggable variant; the evaluator polls
// them all with the same loop.
type ScheduleSource interface {
	Domain() string
	CallerLabel() string
	List() ([]ScheduleItem, error)
}

// AppointmentProvider yields the single nearest future appointment.
type AppointmentProvider interface {
	NextAppointment(now time.Time) (*store.Appointment, error)
}

// HydrationProvider yields the glass count for a calendar date.
type HydrationProvider interface {
	HydrationCount(date string) (int, error)
}

// ==================== Medication ====================

type medicationSource struct {
	store *store.Store
}

// NewMedicationSource adapts the medication table to a ScheduleSource.
func NewMedicationSource(s *store.Store) ScheduleSource {
	return &medicationSource{store: s}
}

func (m *medicationSource) Domain() string      { return DomainMedication }
func (m *medicationSource) CallerLabel() string { return "Recordatorio de Medicamento" }

func (m *medicationSource) List() ([]ScheduleItem, error) {
	meds, err := m.store.ListMedications(false)
	if err != nil {
		return nil, err
	}

	items := make([]ScheduleItem, 0, len(meds))
	for _, med := range meds {
		desc := med.Name
		if med.Dosage != "" {
			desc = fmt.Sprintf("%s (%s)", med.Name, med.Dosage)
		}
		items = append(items, ScheduleItem{
			ID:      med.ID,
			Enabled: med.Enabled,
			Times:   med.Times,
			Message: fmt.Sprintf("Es hora de tomar tu medicamento: %s.", desc),
		})
	}
	return items, nil
}

// ==================== Insulin ====================

type insulinSource struct {
	store *store.Store
}

// NewInsulinSource adapts the insulin dose table to a ScheduleSource.
func NewInsulinSource(s *store.Store) ScheduleSource {
	return &insulinSource{store: s}
}

func (i *insulinSource) Domain() string      { return DomainInsulin }
func (i *insulinSource) CallerLabel() string { return "Recordatorio de Insulina" }

func (i *insulinSource) List() ([]ScheduleItem, error) {
	doses, err := i.store.ListInsulinDoses(false)
	if err != nil {
		return nil, err
	}

	items := make([]ScheduleItem, 0, len(doses))
	for _, dose := range doses {
		items = append(items, ScheduleItem{
			ID:      dose.ID,
			Enabled: dose.Enabled,
			Times:   dose.Times,
			Message: fmt.Sprintf("Es hora de aplicarte tu insulina: %s, %d unidades.", dose.Description, dose.Units),
		})
	}
	return items, nil
}

// ==================== Meals ====================

type mealSource struct {
	store *store.Store
}

// NewMealSource adapts the meal plan table to a ScheduleSource.
func NewMealSource(s *store.Store) ScheduleSource {
	return &mealSource{store: s}
}

func (m *mealSource) Domain() string      { return DomainMeal }
func (m *mealSource) CallerLabel() string { return "Recordatorio de Comida" }

func (m *mealSource) List() ([]ScheduleItem, error) {
	meals, err := m.store.ListMealPlans(false)
	if err != nil {
		return nil, err
	}

	items := make([]ScheduleItem, 0, len(meals))
	for _, meal := range meals {
		items = append(items, ScheduleItem{
			ID:      meal.ID,
			Enabled: meal.Enabled,
			Times:   meal.Times,
			Message: fmt.Sprintf("Es hora de tu %s: %s.", strings.ToLower(meal.MealType), meal.Description),
		})
	}
	return items, nil
}
