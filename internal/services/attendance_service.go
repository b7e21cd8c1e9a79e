package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/store"
)

// AttendanceBackend is what roll-call needs from the data backend.
type AttendanceBackend interface {
	store.ResidentStore
	store.ActivityStore
	store.AttendanceStore
}

type AttendanceService struct {
	backend AttendanceBackend
	logger  *applog.Logger
}

func NewAttendanceService(backend AttendanceBackend, logger *applog.Logger) *AttendanceService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AttendanceService{
		backend: backend,
		logger:  logger.WithComponent(applog.ComponentAttendance),
	}
}

// Roster lists every resident with their status for the activity. Residents
// without a stored row are Absent.
func (s *AttendanceService) Roster(ctx context.Context, activityID int64) (core.Roster, error) {
	var (
		activity  core.Activity
		residents []core.Resident
		recorded  []core.Attendance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activity, err = s.backend.GetActivity(gctx, activityID)
		if err != nil {
			return fmt.Errorf("get activity %d: %w", activityID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		residents, err = s.backend.ListResidents(gctx)
		if err != nil {
			return fmt.Errorf("list residents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recorded, err = s.backend.ListAttendance(gctx, activityID)
		if err != nil {
			return fmt.Errorf("list attendance: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Roster{}, err
	}

	return core.BuildRoster(activity, residents, recorded), nil
}

// Save stores the submitted statuses. Residents missing from statuses are
// stored as Absent so the saved roster is always complete.
func (s *AttendanceService) Save(ctx context.Context, activityID int64, statuses map[int64]core.AttendanceStatus) (core.Roster, error) {
	for residentID, st := range statuses {
		if err := st.Validate(); err != nil {
			return core.Roster{}, fmt.Errorf("resident %d: %w", residentID, err)
		}
	}

	roster, err := s.Roster(ctx, activityID)
	if err != nil {
		return core.Roster{}, err
	}
	for i := range roster.Entries {
		st, ok := statuses[roster.Entries[i].Resident.ID]
		if !ok {
			st = core.Absent
		}
		roster.Entries[i].Status = st
	}

	if err := s.backend.SaveAttendance(ctx, activityID, roster.Records()); err != nil {
		return core.Roster{}, fmt.Errorf("save attendance: %w", err)
	}

	s.logger.InfoContext(ctx, "Attendance saved",
		applog.FieldActivityID, activityID,
		applog.FieldCount, len(roster.Entries),
		"present", roster.Count(core.Present))
	return roster, nil
}
