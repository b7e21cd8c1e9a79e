// Package store defines the ports the dashboard uses to reach its data
// backend. The rest, sqlite and memory backends all implement Backend.
package store

import (
	"context"
	"errors"
	"io"

	"asrama/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Ports for outbound adapters.
type (
	ResidentStore interface {
		ListResidents(ctx context.Context) ([]core.Resident, error)
		CreateResident(ctx context.Context, r core.Resident) (core.Resident, error)
		UpdateResident(ctx context.Context, r core.Resident) (core.Resident, error)
		DeleteResident(ctx context.Context, id int64) error
	}

	ActivityStore interface {
		ListActivities(ctx context.Context) ([]core.Activity, error)
		GetActivity(ctx context.Context, id int64) (core.Activity, error)
		CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error)
		UpdateActivity(ctx context.Context, a core.Activity) (core.Activity, error)
		DeleteActivity(ctx context.Context, id int64) error
	}

	AttendanceStore interface {
		// ListAttendance returns the stored rows for one activity. Residents
		// without a row are not included.
		ListAttendance(ctx context.Context, activityID int64) ([]core.Attendance, error)
		// SaveAttendance replaces the activity's rows with records.
		SaveAttendance(ctx context.Context, activityID int64, records []core.Attendance) error
	}

	MinutesStore interface {
		// GetMinutes returns ErrNotFound when nothing was uploaded yet.
		GetMinutes(ctx context.Context, activityID int64) (core.Minutes, error)
		UploadMinutes(ctx context.Context, up core.MinutesUpload) (core.Minutes, error)
		// OpenMinutes streams the document content. The caller closes it.
		OpenMinutes(ctx context.Context, activityID int64) (core.Minutes, io.ReadCloser, error)
	}

	FinanceStore interface {
		ListFinance(ctx context.Context) ([]core.FinancialRecord, error)
		CreateFinance(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error)
		UpdateFinance(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error)
		DeleteFinance(ctx context.Context, id int64) error
	}

	Authenticator interface {
		// Login returns the user and a backend token. Wrong credentials
		// yield core.ErrInvalidCredential.
		Login(ctx context.Context, email, password string) (core.User, string, error)
	}

	Backend interface {
		ResidentStore
		ActivityStore
		AttendanceStore
		MinutesStore
		FinanceStore
		Authenticator
	}
)
