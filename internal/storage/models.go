package storage

// Row types mirror the tables in migrations/.

type ResidentRow struct {
	ID       int64
	Name     string
	Program  string
	Cohort   int64
	Hometown string
	Phone    string
}

type ActivityRow struct {
	ID          int64
	Title       string
	Description string
	Date        string
	Time        string
}

type AttendanceRow struct {
	ActivityID int64
	ResidentID int64
	Status     string
}

type MinutesRow struct {
	ID          int64
	ActivityID  int64
	FileName    string
	ContentType string
	Size        int64
	UploadedAt  string
}

type FinanceRow struct {
	ID       int64
	Month    int64
	Year     int64
	Incoming int64
	Outgoing int64
}

type UserRow struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string
}
