package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"asrama/internal/core"
	"asrama/internal/store"
)

// UpcomingLimit caps the activities listed on the dashboard.
const UpcomingLimit = 5

type DashboardBackend interface {
	store.ResidentStore
	store.ActivityStore
}

type DashboardService struct {
	backend DashboardBackend
	finance *FinanceService
	loc     *time.Location
}

func NewDashboardService(backend DashboardBackend, finance *FinanceService, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{backend: backend, finance: finance, loc: loc}
}

// Overview gathers the landing page numbers concurrently.
func (s *DashboardService) Overview(ctx context.Context, now time.Time) (core.Overview, error) {
	ov := core.Overview{Year: now.Year()}
	var activities []core.Activity

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		residents, err := s.backend.ListResidents(gctx)
		if err != nil {
			return fmt.Errorf("list residents: %w", err)
		}
		ov.Residents = len(residents)
		return nil
	})
	g.Go(func() error {
		var err error
		activities, err = s.backend.ListActivities(gctx)
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		totals, err := s.finance.YearTotals(gctx, ov.Year)
		if err != nil {
			return err
		}
		ov.YearTotals = totals
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Overview{}, err
	}

	ov.Activities = len(activities)
	ov.Upcoming = Upcoming(activities, now.In(s.loc), s.loc, UpcomingLimit)
	return ov, nil
}

// Upcoming returns activities that have not started yet, soonest first.
func Upcoming(activities []core.Activity, now time.Time, loc *time.Location, limit int) []core.Activity {
	out := make([]core.Activity, 0, limit)
	for _, a := range activities {
		if !a.Schedule(loc).Before(now) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Schedule(loc).Before(out[j].Schedule(loc))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortActivities orders activities by schedule, latest first, as listed on the activity pages.
func SortActivities(activities []core.Activity, loc *time.Location) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Schedule(loc).After(activities[j].Schedule(loc))
	})
}
