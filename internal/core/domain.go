package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Present AttendanceStatus = "Hadir"
	Sick    AttendanceStatus = "Sakit"
	Excused AttendanceStatus = "Izin"
	Absent  AttendanceStatus = "Tidak Hadir"
)

const RoleAdmin = "admin"

const (
	// MaxMinutesSize is the largest minutes document accepted for upload.
	MaxMinutesSize = 10 << 20
	timeLayout     = "15:04"
	dateLayout     = "2006-01-02"
)

type (
	AttendanceStatus string

	Date struct {
		time.Time
	}

	// Resident is a person living in the dormitory (penghuni).
	Resident struct {
		ID       int64  `json:"id"`
		Name     string `json:"nama" form:"nama" validate:"notblank,max=120"`
		Program  string `json:"prodi" form:"prodi" validate:"notblank,max=120"`
		Cohort   int    `json:"angkatan" form:"angkatan" validate:"required,min=1950,max=2100"`
		Hometown string `json:"asal_daerah" form:"asal_daerah" validate:"notblank,max=120"`
		Phone    string `json:"no_hp" form:"no_hp" validate:"required,phone"`
	}

	// Activity is a scheduled dormitory event (kegiatan).
	Activity struct {
		ID          int64  `json:"id"`
		Title       string `json:"judul" form:"judul" validate:"notblank,max=200"`
		Description string `json:"deskripsi" form:"deskripsi" validate:"notblank,max=2000"`
		Date        Date   `json:"tanggal" form:"tanggal" validate:"required"`
		Time        string `json:"waktu_acara" form:"waktu_acara" validate:"required,hhmm"`
	}

	Attendance struct {
		ActivityID int64            `json:"id_kegiatan"`
		ResidentID int64            `json:"id_penghuni"`
		Status     AttendanceStatus `json:"status_kehadiran"`
	}

	// RosterEntry is one line of an activity's attendance sheet.
	RosterEntry struct {
		Resident Resident
		Status   AttendanceStatus
	}

	Roster struct {
		Activity Activity
		Entries  []RosterEntry
	}

	// Minutes describes the meeting-minutes document attached to an activity (notulen).
	Minutes struct {
		ID          int64     `json:"id"`
		ActivityID  int64     `json:"id_kegiatan"`
		FileName    string    `json:"file"`
		ContentType string    `json:"content_type"`
		Size        int64     `json:"size"`
		UploadedAt  time.Time `json:"uploaded_at"`
	}

	MinutesUpload struct {
		ActivityID  int64
		FileName    string
		ContentType string
		Data        []byte
	}

	// FinancialRecord holds one month's income and expenses in whole rupiah.
	FinancialRecord struct {
		ID       int64  `json:"id"`
		Month    string `json:"nama_bulan" form:"bulan" validate:"required,month"`
		Year     int    `json:"tahun" form:"tahun" validate:"required,min=2000,max=2100"`
		Incoming int64  `json:"pemasukan" form:"pemasukan" validate:"min=0"`
		Outgoing int64  `json:"pengeluaran" form:"pengeluaran" validate:"min=0"`
	}

	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidTime       = errors.New("invalid time")
	ErrInvalidStatus     = errors.New("invalid attendance status")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyTitle        = errors.New("empty title")
	ErrInvalidCohort     = errors.New("invalid cohort")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyFile         = errors.New("empty file")
	ErrInvalidCredential = errors.New("invalid email or password")
)

// Statuses lists the attendance states in the order they are offered on the roll-call form.
func Statuses() []AttendanceStatus {
	return []AttendanceStatus{Present, Sick, Excused, Absent}
}

func (s AttendanceStatus) Validate() error {
	switch s {
	case Present, Sick, Excused, Absent:
		return nil
	}
	return ErrInvalidStatus
}

// ParseAttendanceStatus accepts the stored label or its lower-case form.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses() {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. A leading RFC 3339 timestamp is also accepted
// since some backends serialise dates with a time component.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day()), nil
		}
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON shadows the promoted time.Time encoder so dates travel as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidTime reports whether s is a 24h HH:MM clock time.
func ValidTime(s string) bool {
	_, err := time.Parse(timeLayout, strings.TrimSpace(s))
	return err == nil
}

// NormalizeTime trims a HH:MM:SS value from the backend down to HH:MM.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04:05") && s[5] == ':' {
		return s[:5]
	}
	return s
}

func (r Resident) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.Cohort <= 0 {
		return ErrInvalidCohort
	}
	return nil
}

// Schedule returns the activity's start as a single timestamp in loc.
func (a Activity) Schedule(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.Parse(timeLayout, a.Time)
	if err != nil {
		return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

func (a Activity) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyTitle
	}
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if !ValidTime(a.Time) {
		return ErrInvalidTime
	}
	return nil
}

func (f FinancialRecord) Validate() error {
	if _, err := MonthIndex(f.Month); err != nil {
		return err
	}
	if f.Year <= 0 {
		return ErrInvalidDate
	}
	if f.Incoming < 0 || f.Outgoing < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// KnownMonth reports whether the record's month name is in the calendar.
// Records read from the REST backend may carry names it does not know.
func (f FinancialRecord) KnownMonth() bool {
	_, err := MonthIndex(f.Month)
	return err == nil
}

// MonthError identifies a stored record whose month name cannot be placed
// in the calendar.
type MonthError struct {
	Record FinancialRecord
}

func (e *MonthError) Error() string {
	return fmt.Sprintf("keuangan %d (%s %d): %v", e.Record.ID, e.Record.Month, e.Record.Year, ErrUnknownMonth)
}

func (e *MonthError) Unwrap() error {
	return ErrUnknownMonth
}

// Balance is income minus expenses; it can be negative.
func (f FinancialRecord) Balance() int64 {
	return f.Incoming - f.Outgoing
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BuildRoster overlays recorded attendance on the full resident list. Residents
// without a record are marked Absent and records for unknown residents are dropped.
func BuildRoster(activity Activity, residents []Resident, recorded []Attendance) Roster {
	byResident := make(map[int64]AttendanceStatus, len(recorded))
	for _, a := range recorded {
		if a.Status.Validate() == nil {
			byResident[a.ResidentID] = a.Status
		}
	}
	entries := make([]RosterEntry, 0, len(residents))
	for _, r := range residents {
		st, ok := byResident[r.ID]
		if !ok {
			st = Absent
		}
		entries = append(entries, RosterEntry{Resident: r, Status: st})
	}
	return Roster{Activity: activity, Entries: entries}
}

// Count returns how many entries have the given status.
func (r Roster) Count(status AttendanceStatus) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Records flattens the roster into storable attendance rows.
func (r Roster) Records() []Attendance {
	out := make([]Attendance, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, Attendance{ActivityID: r.Activity.ID, ResidentID: e.Resident.ID, Status: e.Status})
	}
	return out
}
