// Package store provides unified access to SQLite (schedules, readings)
// and BadgerDB (device-local flags).
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vitalia-app/vitalia/internal/config"
)

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	config *config.StorageConfig
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "vitalia.db")
	}

	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{
		db:     db,
		badger: badgerDB,
		config: &cfg.Storage,
	}, nil
}

// NewWithDB creates a Store over an existing gorm DB without Badger.
// Used by tests that only need the relational half.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Medication{},
		&InsulinDose{},
		&MealPlan{},
		&Appointment{},
		&HydrationLog{},
		&GlucoseReading{},
		&BloodPressureReading{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes all database connections
func (s *Store) Close() error {
	if s.badger == nil {
		return nil
	}
	return s.badger.Close()
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Badger returns the BadgerDB instance
func (s *Store) Badger() *badger.DB {
	return s.badger
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// ==================== Medication Methods ====================

func (s *Store) CreateMedication(med *Medication) error {
	if med.ID == "" {
		med.ID = newID("med")
	}
	serializeTimes(&med.Times, &med.TimesJSON)
	med.CreatedAt = time.Now()
	med.UpdatedAt = time.Now()
	return s.db.Create(med).Error
}

func (s *Store) UpdateMedication(med *Medication) error {
	serializeTimes(&med.Times, &med.TimesJSON)
	med.UpdatedAt = time.Now()
	return s.db.Save(med).Error
}

func (s *Store) DeleteMedication(id string) error {
	return s.db.Where("id = ?", id).Delete(&Medication{}).Error
}

func (s *Store) GetMedication(id string) (*Medication, error) {
	var med Medication
	err := s.db.Where("id = ?", id).First(&med).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	deserializeTimes(med.TimesJSON, &med.Times)
	return &med, err
}

func (s *Store) ListMedications(enabledOnly bool) ([]Medication, error) {
	query := s.db.Order("created_at ASC")
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var meds []Medication
	err := query.Find(&meds).Error
	for i := range meds {
		deserializeTimes(meds[i].TimesJSON, &meds[i].Times)
	}
	return meds, err
}

// ==================== InsulinDose Methods ====================

func (s *Store) CreateInsulinDose(dose *InsulinDose) error {
	if dose.ID == "" {
		dose.ID = newID("ins")
	}
	serializeTimes(&dose.Times, &dose.TimesJSON)
	dose.CreatedAt = time.Now()
	dose.UpdatedAt = time.Now()
	return s.db.Create(dose).Error
}

func (s *Store) UpdateInsulinDose(dose *InsulinDose) error {
	serializeTimes(&dose.Times, &dose.TimesJSON)
	dose.UpdatedAt = time.Now()
	return s.db.Save(dose).Error
}

func (s *Store) GetInsulinDose(id string) (*InsulinDose, error) {
	var dose InsulinDose
	err := s.db.Where("id = ?", id).First(&dose).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	deserializeTimes(dose.TimesJSON, &dose.Times)
	return &dose, err
}

func (s *Store) DeleteInsulinDose(id string) error {
	return s.db.Where("id = ?", id).Delete(&InsulinDose{}).Error
}

func (s *Store) ListInsulinDoses(enabledOnly bool) ([]InsulinDose, error) {
	query := s.db.Order("created_at ASC")
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var doses []InsulinDose
	err := query.Find(&doses).Error
	for i := range doses {
		deserializeTimes(doses[i].TimesJSON, &doses[i].Times)
	}
	return doses, err
}

// ==================== MealPlan Methods ====================

func (s *Store) CreateMealPlan(meal *MealPlan) error {
	if meal.ID == "" {
		meal.ID = newID("meal")
	}
	serializeTimes(&meal.Times, &meal.TimesJSON)
	meal.CreatedAt = time.Now()
	meal.UpdatedAt = time.Now()
	return s.db.Create(meal).Error
}

func (s *Store) UpdateMealPlan(meal *MealPlan) error {
	serializeTimes(&meal.Times, &meal.TimesJSON)
	meal.UpdatedAt = time.Now()
	return s.db.Save(meal).Error
}

func (s *Store) GetMealPlan(id string) (*MealPlan, error) {
	var meal MealPlan
	err := s.db.Where("id = ?", id).First(&meal).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	deserializeTimes(meal.TimesJSON, &meal.Times)
	return &meal, err
}

func (s *Store) DeleteMealPlan(id string) error {
	return s.db.Where("id = ?", id).Delete(&MealPlan{}).Error
}

func (s *Store) ListMealPlans(enabledOnly bool) ([]MealPlan, error) {
	query := s.db.Order("created_at ASC")
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var meals []MealPlan
	err := query.Find(&meals).Error
	for i := range meals {
		deserializeTimes(meals[i].TimesJSON, &meals[i].Times)
	}
	return meals, err
}

// ==================== Appointment Methods ====================

func (s *Store) CreateAppointment(appt *Appointment) error {
	if appt.ID == "" {
		appt.ID = newID("appt")
	}
	appt.CreatedAt = time.Now()
	return s.db.Create(appt).Error
}

func (s *Store) DeleteAppointment(id string) error {
	return s.db.Where("id = ?", id).Delete(&Appointment{}).Error
}

func (s *Store) ListAppointments() ([]Appointment, error) {
	var appts []Appointment
	err := s.db.Order("date ASC, time ASC").Find(&appts).Error
	return appts, err
}

// NextAppointment returns the nearest future appointment relative to now,
// or nil when none is scheduled. Date and time are ISO-ordered strings so
// lexicographic comparison matches chronological order.
func (s *Store) NextAppointment(now time.Time) (*Appointment, error) {
	date := now.Format("2006-01-02")
	hhmm := now.Format("15:04")

	var appt Appointment
	err := s.db.Where("date > ? OR (date = ? AND time >= ?)", date, date, hhmm).
		Order("date ASC, time ASC").
		First(&appt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &appt, err
}

// ==================== Hydration Methods ====================

// HydrationCount returns today's glass count for the given calendar date.
func (s *Store) HydrationCount(date string) (int, error) {
	var log HydrationLog
	err := s.db.Where("date = ?", date).First(&log).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	return log.Count, err
}

// IncrementHydration adds one glass to the given calendar date and returns
// the new count.
func (s *Store) IncrementHydration(date string) (int, error) {
	var log HydrationLog
	err := s.db.Where("date = ?", date).First(&log).Error
	if err == gorm.ErrRecordNotFound {
		log = HydrationLog{ID: newID("hyd"), Date: date}
	} else if err != nil {
		return 0, err
	}

	log.Count++
	log.UpdatedAt = time.Now()
	if err := s.db.Save(&log).Error; err != nil {
		return 0, err
	}
	return log.Count, nil
}

// ==================== Reading Methods ====================

func (s *Store) CreateGlucoseReading(r *GlucoseReading) error {
	if r.ID == "" {
		r.ID = newID("glu")
	}
	if r.MeasuredAt.IsZero() {
		r.MeasuredAt = time.Now()
	}
	r.CreatedAt = time.Now()
	return s.db.Create(r).Error
}

func (s *Store) ListGlucoseReadings(since time.Time) ([]GlucoseReading, error) {
	query := s.db.Order("measured_at ASC")
	if !since.IsZero() {
		query = query.Where("measured_at >= ?", since)
	}

	var readings []GlucoseReading
	err := query.Find(&readings).Error
	return readings, err
}

func (s *Store) CreateBloodPressureReading(r *BloodPressureReading) error {
	if r.ID == "" {
		r.ID = newID("bp")
	}
	if r.MeasuredAt.IsZero() {
		r.MeasuredAt = time.Now()
	}
	r.CreatedAt = time.Now()
	return s.db.Create(r).Error
}

func (s *Store) ListBloodPressureReadings(since time.Time) ([]BloodPressureReading, error) {
	query := s.db.Order("measured_at ASC")
	if !since.IsZero() {
		query = query.Where("measured_at >= ?", since)
	}

	var readings []BloodPressureReading
	err := query.Find(&readings).Error
	return readings, err
}

// ==================== Flag Methods (BadgerDB) ====================

// SetFlag stores a device-local flag with a TTL. Dedup keys embed the
// calendar date, so the TTL is housekeeping rather than correctness.
func (s *Store) SetFlag(key string, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("flag:"+key), []byte("1")).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// HasFlag reports whether a device-local flag exists.
func (s *Store) HasFlag(key string) (bool, error) {
	err := s.badger.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("flag:" + key))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func serializeTimes(times *[]string, dest *string) {
	if len(*times) > 0 {
		data, _ := json.Marshal(*times)
		*dest = string(data)
	} else {
		*dest = "[]"
	}
}

func deserializeTimes(src string, times *[]string) {
	if src != "" {
		json.Unmarshal([]byte(src), times)
	}
}
