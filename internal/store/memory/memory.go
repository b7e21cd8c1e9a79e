// Package memory is an in-process Backend used for development and tests.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"asrama/internal/core"
	"asrama/internal/store"
)

type account struct {
	user core.User
	hash string
}

type minutesFile struct {
	meta core.Minutes
	data []byte
}

type Store struct {
	mu         sync.Mutex
	nextID     int64
	residents  map[int64]core.Resident
	activities map[int64]core.Activity
	attendance map[int64][]core.Attendance
	minutes    map[int64]minutesFile
	finance    map[int64]core.FinancialRecord
	accounts   map[string]account
	now        func() time.Time
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		residents:  make(map[int64]core.Resident),
		activities: make(map[int64]core.Activity),
		attendance: make(map[int64][]core.Attendance),
		minutes:    make(map[int64]minutesFile),
		finance:    make(map[int64]core.FinancialRecord),
		accounts:   make(map[string]account),
		now:        time.Now,
	}
}

// Seed is the JSON fixture format accepted by NewFromFile.
type Seed struct {
	Residents  []core.Resident        `json:"penghuni"`
	Activities []core.Activity        `json:"kegiatan"`
	Finance    []core.FinancialRecord `json:"keuangan"`
}

// NewFromFile loads a JSON fixture. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	ctx := context.Background()
	for _, r := range seed.Residents {
		if _, err := s.CreateResident(ctx, r); err != nil {
			return nil, err
		}
	}
	for _, a := range seed.Activities {
		if _, err := s.CreateActivity(ctx, a); err != nil {
			return nil, err
		}
	}
	for _, f := range seed.Finance {
		if _, err := s.CreateFinance(ctx, f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddUser registers an account with a plain password.
func (s *Store) AddUser(u core.User, password string) error {
	hash, err := store.HashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.accounts[strings.ToLower(u.Email)] = account{user: u, hash: hash}
	return nil
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Login(_ context.Context, email, password string) (core.User, string, error) {
	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	s.mu.Unlock()
	if !ok || !store.CheckPassword(acc.hash, password) {
		return core.User{}, "", core.ErrInvalidCredential
	}
	return acc.user, uuid.NewString(), nil
}

func (s *Store) ListResidents(_ context.Context) ([]core.Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Resident, 0, len(s.residents))
	for _, r := range s.residents {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateResident(_ context.Context, r core.Resident) (core.Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.residents[r.ID] = r
	return r, nil
}

func (s *Store) UpdateResident(_ context.Context, r core.Resident) (core.Resident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.residents[r.ID]; !ok {
		return core.Resident{}, store.ErrNotFound
	}
	s.residents[r.ID] = r
	return r, nil
}

func (s *Store) DeleteResident(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.residents[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.residents, id)
	for aid, rows := range s.attendance {
		kept := rows[:0]
		for _, a := range rows {
			if a.ResidentID != id {
				kept = append(kept, a)
			}
		}
		s.attendance[aid] = kept
	}
	return nil
}

func (s *Store) ListActivities(_ context.Context) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetActivity(_ context.Context, id int64) (core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return core.Activity{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateActivity(_ context.Context, a core.Activity) (core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) UpdateActivity(_ context.Context, a core.Activity) (core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[a.ID]; !ok {
		return core.Activity{}, store.ErrNotFound
	}
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) DeleteActivity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.activities, id)
	delete(s.attendance, id)
	delete(s.minutes, id)
	return nil
}

func (s *Store) ListAttendance(_ context.Context, activityID int64) ([]core.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activityID]; !ok {
		return nil, store.ErrNotFound
	}
	return append([]core.Attendance(nil), s.attendance[activityID]...), nil
}

func (s *Store) SaveAttendance(_ context.Context, activityID int64, records []core.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activityID]; !ok {
		return store.ErrNotFound
	}
	rows := make([]core.Attendance, 0, len(records))
	for _, r := range records {
		r.ActivityID = activityID
		rows = append(rows, r)
	}
	s.attendance[activityID] = rows
	return nil
}

func (s *Store) GetMinutes(_ context.Context, activityID int64) (core.Minutes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.minutes[activityID]
	if !ok {
		return core.Minutes{}, store.ErrNotFound
	}
	return f.meta, nil
}

func (s *Store) UploadMinutes(_ context.Context, up core.MinutesUpload) (core.Minutes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[up.ActivityID]; !ok {
		return core.Minutes{}, store.ErrNotFound
	}
	meta := core.Minutes{
		ID:          s.id(),
		ActivityID:  up.ActivityID,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		Size:        int64(len(up.Data)),
		UploadedAt:  s.now().UTC(),
	}
	s.minutes[up.ActivityID] = minutesFile{meta: meta, data: append([]byte(nil), up.Data...)}
	return meta, nil
}

func (s *Store) OpenMinutes(_ context.Context, activityID int64) (core.Minutes, io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.minutes[activityID]
	if !ok {
		return core.Minutes{}, nil, store.ErrNotFound
	}
	return f.meta, io.NopCloser(bytes.NewReader(f.data)), nil
}

func (s *Store) ListFinance(_ context.Context) ([]core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FinancialRecord, 0, len(s.finance))
	for _, f := range s.finance {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateFinance(_ context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.periodTaken(f, 0) {
		return core.FinancialRecord{}, fmt.Errorf("%s %d: %w", f.Month, f.Year, store.ErrConflict)
	}
	f.ID = s.id()
	s.finance[f.ID] = f
	return f, nil
}

func (s *Store) UpdateFinance(_ context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.finance[f.ID]; !ok {
		return core.FinancialRecord{}, store.ErrNotFound
	}
	if s.periodTaken(f, f.ID) {
		return core.FinancialRecord{}, fmt.Errorf("%s %d: %w", f.Month, f.Year, store.ErrConflict)
	}
	s.finance[f.ID] = f
	return f, nil
}

func (s *Store) DeleteFinance(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.finance[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.finance, id)
	return nil
}

// periodTaken reports whether another record already covers f's month and year.
func (s *Store) periodTaken(f core.FinancialRecord, self int64) bool {
	for id, existing := range s.finance {
		if id != self && existing.Year == f.Year && strings.EqualFold(existing.Month, f.Month) {
			return true
		}
	}
	return false
}
