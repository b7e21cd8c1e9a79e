package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/store"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
	now     func() time.Time
}

var _ store.Backend = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens dbPath, applies pending migrations and enables
// foreign keys so attendance and minutes follow their activity on delete.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SQLiteRepository{
		db:      db,
		queries: NewQueries(db),
		logger:  logger.WithComponent(applog.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// EnsureAdmin creates the account or resets its name and password.
func (r *SQLiteRepository) EnsureAdmin(ctx context.Context, email, name, password string) error {
	hash, err := store.HashPassword(password)
	if err != nil {
		return err
	}
	if name == "" {
		name = "Admin"
	}
	err = r.queries.UpsertUser(ctx, UserRow{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         core.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	r.logger.InfoContext(ctx, "Admin account ensured", applog.FieldUserEmail, email)
	return nil
}

func (r *SQLiteRepository) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := r.queries.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", core.ErrInvalidCredential
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("get user: %w", err)
	}
	if !store.CheckPassword(u.PasswordHash, password) {
		return core.User{}, "", core.ErrInvalidCredential
	}
	return core.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, uuid.NewString(), nil
}

func residentFromRow(row ResidentRow) core.Resident {
	return core.Resident{
		ID:       row.ID,
		Name:     row.Name,
		Program:  row.Program,
		Cohort:   int(row.Cohort),
		Hometown: row.Hometown,
		Phone:    row.Phone,
	}
}

func residentToRow(res core.Resident) ResidentRow {
	return ResidentRow{
		ID:       res.ID,
		Name:     strings.TrimSpace(res.Name),
		Program:  strings.TrimSpace(res.Program),
		Cohort:   int64(res.Cohort),
		Hometown: strings.TrimSpace(res.Hometown),
		Phone:    strings.TrimSpace(res.Phone),
	}
}

func (r *SQLiteRepository) ListResidents(ctx context.Context) ([]core.Resident, error) {
	rows, err := r.queries.ListResidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	out := make([]core.Resident, len(rows))
	for i, row := range rows {
		out[i] = residentFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateResident(ctx context.Context, res core.Resident) (core.Resident, error) {
	row, err := r.queries.CreateResident(ctx, residentToRow(res))
	if err != nil {
		return core.Resident{}, fmt.Errorf("create resident: %w", err)
	}
	return residentFromRow(row), nil
}

func (r *SQLiteRepository) UpdateResident(ctx context.Context, res core.Resident) (core.Resident, error) {
	row, err := r.queries.UpdateResident(ctx, residentToRow(res))
	if err != nil {
		return core.Resident{}, notFound(err)
	}
	return residentFromRow(row), nil
}

func (r *SQLiteRepository) DeleteResident(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteResident(ctx, id)
	if err != nil {
		return fmt.Errorf("delete resident: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func activityFromRow(row ActivityRow) core.Activity {
	d, _ := core.ParseDate(row.Date)
	return core.Activity{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Date:        d,
		Time:        row.Time,
	}
}

func activityToRow(a core.Activity) ActivityRow {
	return ActivityRow{
		ID:          a.ID,
		Title:       strings.TrimSpace(a.Title),
		Description: strings.TrimSpace(a.Description),
		Date:        a.Date.String(),
		Time:        core.NormalizeTime(a.Time),
	}
}

func (r *SQLiteRepository) ListActivities(ctx context.Context) ([]core.Activity, error) {
	rows, err := r.queries.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]core.Activity, len(rows))
	for i, row := range rows {
		out[i] = activityFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) GetActivity(ctx context.Context, id int64) (core.Activity, error) {
	row, err := r.queries.GetActivity(ctx, id)
	if err != nil {
		return core.Activity{}, notFound(err)
	}
	return activityFromRow(row), nil
}

func (r *SQLiteRepository) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	row, err := r.queries.CreateActivity(ctx, activityToRow(a))
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}
	return activityFromRow(row), nil
}

func (r *SQLiteRepository) UpdateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	row, err := r.queries.UpdateActivity(ctx, activityToRow(a))
	if err != nil {
		return core.Activity{}, notFound(err)
	}
	return activityFromRow(row), nil
}

func (r *SQLiteRepository) DeleteActivity(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteActivity(ctx, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListAttendance(ctx context.Context, activityID int64) ([]core.Attendance, error) {
	if _, err := r.queries.GetActivity(ctx, activityID); err != nil {
		return nil, notFound(err)
	}
	rows, err := r.queries.ListAttendance(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	out := make([]core.Attendance, len(rows))
	for i, row := range rows {
		out[i] = core.Attendance{ActivityID: row.ActivityID, ResidentID: row.ResidentID, Status: core.AttendanceStatus(row.Status)}
	}
	return out, nil
}

func (r *SQLiteRepository) SaveAttendance(ctx context.Context, activityID int64, records []core.Attendance) error {
	return r.withTx(ctx, func(q *Queries) error {
		if _, err := q.GetActivity(ctx, activityID); err != nil {
			return notFound(err)
		}
		if err := q.ClearAttendance(ctx, activityID); err != nil {
			return fmt.Errorf("clear attendance: %w", err)
		}
		for _, rec := range records {
			err := q.InsertAttendance(ctx, AttendanceRow{ActivityID: activityID, ResidentID: rec.ResidentID, Status: string(rec.Status)})
			if err != nil {
				return fmt.Errorf("insert attendance for resident %d: %w", rec.ResidentID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) minutesFromRow(row MinutesRow) core.Minutes {
	uploaded, _ := time.Parse(time.RFC3339, row.UploadedAt)
	return core.Minutes{
		ID:          row.ID,
		ActivityID:  row.ActivityID,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		Size:        row.Size,
		UploadedAt:  uploaded,
	}
}

func (r *SQLiteRepository) GetMinutes(ctx context.Context, activityID int64) (core.Minutes, error) {
	row, err := r.queries.GetMinutes(ctx, activityID)
	if err != nil {
		return core.Minutes{}, notFound(err)
	}
	return r.minutesFromRow(row), nil
}

func (r *SQLiteRepository) UploadMinutes(ctx context.Context, up core.MinutesUpload) (core.Minutes, error) {
	if _, err := r.queries.GetActivity(ctx, up.ActivityID); err != nil {
		return core.Minutes{}, notFound(err)
	}
	row, err := r.queries.UpsertMinutes(ctx, UpsertMinutesParams{
		MinutesRow: MinutesRow{
			ActivityID:  up.ActivityID,
			FileName:    up.FileName,
			ContentType: up.ContentType,
			Size:        int64(len(up.Data)),
			UploadedAt:  r.now().UTC().Format(time.RFC3339),
		},
		Data: up.Data,
	})
	if err != nil {
		return core.Minutes{}, fmt.Errorf("store minutes: %w", err)
	}
	return r.minutesFromRow(row), nil
}

func (r *SQLiteRepository) OpenMinutes(ctx context.Context, activityID int64) (core.Minutes, io.ReadCloser, error) {
	m, err := r.GetMinutes(ctx, activityID)
	if err != nil {
		return core.Minutes{}, nil, err
	}
	data, err := r.queries.GetMinutesData(ctx, activityID)
	if err != nil {
		return core.Minutes{}, nil, notFound(err)
	}
	return m, io.NopCloser(bytes.NewReader(data)), nil
}

func financeFromRow(row FinanceRow) (core.FinancialRecord, error) {
	name, err := core.MonthName(int(row.Month))
	if err != nil {
		return core.FinancialRecord{}, err
	}
	return core.FinancialRecord{
		ID:       row.ID,
		Month:    name,
		Year:     int(row.Year),
		Incoming: row.Incoming,
		Outgoing: row.Outgoing,
	}, nil
}

func financeToRow(f core.FinancialRecord) (FinanceRow, error) {
	m, err := core.MonthIndex(f.Month)
	if err != nil {
		return FinanceRow{}, err
	}
	return FinanceRow{ID: f.ID, Month: int64(m), Year: int64(f.Year), Incoming: f.Incoming, Outgoing: f.Outgoing}, nil
}

func (r *SQLiteRepository) ListFinance(ctx context.Context) ([]core.FinancialRecord, error) {
	rows, err := r.queries.ListFinance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finance: %w", err)
	}
	out := make([]core.FinancialRecord, 0, len(rows))
	for _, row := range rows {
		f, err := financeFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("finance record %d: %w", row.ID, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateFinance(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	arg, err := financeToRow(f)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	row, err := r.queries.CreateFinance(ctx, arg)
	if isUniqueViolation(err) {
		return core.FinancialRecord{}, fmt.Errorf("%s %d: %w", f.Month, f.Year, store.ErrConflict)
	}
	if err != nil {
		return core.FinancialRecord{}, fmt.Errorf("create finance record: %w", err)
	}
	return financeFromRow(row)
}

func (r *SQLiteRepository) UpdateFinance(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	arg, err := financeToRow(f)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	row, err := r.queries.UpdateFinance(ctx, arg)
	if isUniqueViolation(err) {
		return core.FinancialRecord{}, fmt.Errorf("%s %d: %w", f.Month, f.Year, store.ErrConflict)
	}
	if err != nil {
		return core.FinancialRecord{}, notFound(err)
	}
	return financeFromRow(row)
}

func (r *SQLiteRepository) DeleteFinance(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteFinance(ctx, id)
	if err != nil {
		return fmt.Errorf("delete finance record: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
