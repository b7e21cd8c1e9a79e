package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const listResidents = `
SELECT id, name, program, cohort, hometown, phone
FROM residents
ORDER BY name COLLATE NOCASE, id`

func (q *Queries) ListResidents(ctx context.Context) ([]ResidentRow, error) {
	rows, err := q.db.QueryContext(ctx, listResidents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ResidentRow
	for rows.Next() {
		var i ResidentRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Program, &i.Cohort, &i.Hometown, &i.Phone); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createResident = `
INSERT INTO residents (name, program, cohort, hometown, phone)
VALUES (?, ?, ?, ?, ?)
RETURNING id, name, program, cohort, hometown, phone`

func (q *Queries) CreateResident(ctx context.Context, arg ResidentRow) (ResidentRow, error) {
	row := q.db.QueryRowContext(ctx, createResident, arg.Name, arg.Program, arg.Cohort, arg.Hometown, arg.Phone)
	var i ResidentRow
	err := row.Scan(&i.ID, &i.Name, &i.Program, &i.Cohort, &i.Hometown, &i.Phone)
	return i, err
}

const updateResident = `
UPDATE residents
SET name = ?, program = ?, cohort = ?, hometown = ?, phone = ?,
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?
RETURNING id, name, program, cohort, hometown, phone`

func (q *Queries) UpdateResident(ctx context.Context, arg ResidentRow) (ResidentRow, error) {
	row := q.db.QueryRowContext(ctx, updateResident, arg.Name, arg.Program, arg.Cohort, arg.Hometown, arg.Phone, arg.ID)
	var i ResidentRow
	err := row.Scan(&i.ID, &i.Name, &i.Program, &i.Cohort, &i.Hometown, &i.Phone)
	return i, err
}

const deleteResident = `DELETE FROM residents WHERE id = ?`

func (q *Queries) DeleteResident(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteResident, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const activityColumns = `id, title, description, date, time`

const listActivities = `
SELECT ` + activityColumns + `
FROM activities
ORDER BY date DESC, time DESC, id DESC`

func scanActivity(s interface{ Scan(...any) error }) (ActivityRow, error) {
	var i ActivityRow
	err := s.Scan(&i.ID, &i.Title, &i.Description, &i.Date, &i.Time)
	return i, err
}

func (q *Queries) ListActivities(ctx context.Context) ([]ActivityRow, error) {
	rows, err := q.db.QueryContext(ctx, listActivities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ActivityRow
	for rows.Next() {
		i, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getActivity = `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`

func (q *Queries) GetActivity(ctx context.Context, id int64) (ActivityRow, error) {
	return scanActivity(q.db.QueryRowContext(ctx, getActivity, id))
}

const createActivity = `
INSERT INTO activities (title, description, date, time)
VALUES (?, ?, ?, ?)
RETURNING ` + activityColumns

func (q *Queries) CreateActivity(ctx context.Context, arg ActivityRow) (ActivityRow, error) {
	return scanActivity(q.db.QueryRowContext(ctx, createActivity, arg.Title, arg.Description, arg.Date, arg.Time))
}

const updateActivity = `
UPDATE activities
SET title = ?, description = ?, date = ?, time = ?,
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?
RETURNING ` + activityColumns

func (q *Queries) UpdateActivity(ctx context.Context, arg ActivityRow) (ActivityRow, error) {
	return scanActivity(q.db.QueryRowContext(ctx, updateActivity, arg.Title, arg.Description, arg.Date, arg.Time, arg.ID))
}

const deleteActivity = `DELETE FROM activities WHERE id = ?`

func (q *Queries) DeleteActivity(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteActivity, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listAttendance = `
SELECT activity_id, resident_id, status
FROM attendance
WHERE activity_id = ?
ORDER BY resident_id`

func (q *Queries) ListAttendance(ctx context.Context, activityID int64) ([]AttendanceRow, error) {
	rows, err := q.db.QueryContext(ctx, listAttendance, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AttendanceRow
	for rows.Next() {
		var i AttendanceRow
		if err := rows.Scan(&i.ActivityID, &i.ResidentID, &i.Status); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const clearAttendance = `DELETE FROM attendance WHERE activity_id = ?`

func (q *Queries) ClearAttendance(ctx context.Context, activityID int64) error {
	_, err := q.db.ExecContext(ctx, clearAttendance, activityID)
	return err
}

const insertAttendance = `
INSERT INTO attendance (activity_id, resident_id, status)
VALUES (?, ?, ?)`

func (q *Queries) InsertAttendance(ctx context.Context, arg AttendanceRow) error {
	_, err := q.db.ExecContext(ctx, insertAttendance, arg.ActivityID, arg.ResidentID, arg.Status)
	return err
}

const getMinutes = `
SELECT id, activity_id, file_name, content_type, size, uploaded_at
FROM minutes
WHERE activity_id = ?`

func (q *Queries) GetMinutes(ctx context.Context, activityID int64) (MinutesRow, error) {
	row := q.db.QueryRowContext(ctx, getMinutes, activityID)
	var i MinutesRow
	err := row.Scan(&i.ID, &i.ActivityID, &i.FileName, &i.ContentType, &i.Size, &i.UploadedAt)
	return i, err
}

const getMinutesData = `SELECT data FROM minutes WHERE activity_id = ?`

func (q *Queries) GetMinutesData(ctx context.Context, activityID int64) ([]byte, error) {
	var data []byte
	err := q.db.QueryRowContext(ctx, getMinutesData, activityID).Scan(&data)
	return data, err
}

const upsertMinutes = `
INSERT INTO minutes (activity_id, file_name, content_type, size, data, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (activity_id) DO UPDATE SET
    file_name = excluded.file_name,
    content_type = excluded.content_type,
    size = excluded.size,
    data = excluded.data,
    uploaded_at = excluded.uploaded_at
RETURNING id, activity_id, file_name, content_type, size, uploaded_at`

type UpsertMinutesParams struct {
	MinutesRow
	Data []byte
}

func (q *Queries) UpsertMinutes(ctx context.Context, arg UpsertMinutesParams) (MinutesRow, error) {
	row := q.db.QueryRowContext(ctx, upsertMinutes, arg.ActivityID, arg.FileName, arg.ContentType, arg.Size, arg.Data, arg.UploadedAt)
	var i MinutesRow
	err := row.Scan(&i.ID, &i.ActivityID, &i.FileName, &i.ContentType, &i.Size, &i.UploadedAt)
	return i, err
}

const listFinance = `
SELECT id, month, year, incoming, outgoing
FROM finance_records
ORDER BY year, month`

func (q *Queries) ListFinance(ctx context.Context) ([]FinanceRow, error) {
	rows, err := q.db.QueryContext(ctx, listFinance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FinanceRow
	for rows.Next() {
		var i FinanceRow
		if err := rows.Scan(&i.ID, &i.Month, &i.Year, &i.Incoming, &i.Outgoing); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createFinance = `
INSERT INTO finance_records (month, year, incoming, outgoing)
VALUES (?, ?, ?, ?)
RETURNING id, month, year, incoming, outgoing`

func (q *Queries) CreateFinance(ctx context.Context, arg FinanceRow) (FinanceRow, error) {
	row := q.db.QueryRowContext(ctx, createFinance, arg.Month, arg.Year, arg.Incoming, arg.Outgoing)
	var i FinanceRow
	err := row.Scan(&i.ID, &i.Month, &i.Year, &i.Incoming, &i.Outgoing)
	return i, err
}

const updateFinance = `
UPDATE finance_records
SET month = ?, year = ?, incoming = ?, outgoing = ?
WHERE id = ?
RETURNING id, month, year, incoming, outgoing`

func (q *Queries) UpdateFinance(ctx context.Context, arg FinanceRow) (FinanceRow, error) {
	row := q.db.QueryRowContext(ctx, updateFinance, arg.Month, arg.Year, arg.Incoming, arg.Outgoing, arg.ID)
	var i FinanceRow
	err := row.Scan(&i.ID, &i.Month, &i.Year, &i.Incoming, &i.Outgoing)
	return i, err
}

const deleteFinance = `DELETE FROM finance_records WHERE id = ?`

func (q *Queries) DeleteFinance(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteFinance, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getUserByEmail = `
SELECT id, name, email, role, password_hash
FROM users
WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i UserRow
	err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Role, &i.PasswordHash)
	return i, err
}

const upsertUser = `
INSERT INTO users (id, name, email, role, password_hash)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
    name = excluded.name,
    role = excluded.role,
    password_hash = excluded.password_hash`

func (q *Queries) UpsertUser(ctx context.Context, arg UserRow) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.ID, arg.Name, arg.Email, arg.Role, arg.PasswordHash)
	return err
}
