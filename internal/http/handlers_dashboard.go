package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/period"
	"asrama/internal/services"
	"asrama/internal/session"
	"asrama/internal/store"
)

// minutesLookups bounds the concurrent minutes lookups of one activity list.
const minutesLookups = 4

type activityRow struct {
	Activity   core.Activity
	HasMinutes bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ov, err := s.dashboard.Overview(ctx, s.now().In(s.loc))
	if err != nil {
		s.fail(w, r, "Dashboard overview failed", err)
		return
	}
	years, err := s.finance.Years(ctx)
	if err != nil {
		s.fail(w, r, "Finance years failed", err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "dashboard", View{Data: struct {
		Overview      core.Overview
		Granularities []period.Granularity
		Years         []int
	}{ov, granularities, years}})
}

func (s *Server) handleResidents(w http.ResponseWriter, r *http.Request) {
	residents, err := s.backend.ListResidents(r.Context())
	if err != nil {
		s.fail(w, r, "List residents failed", err)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	s.renderPage(w, r, http.StatusOK, "residents", View{Data: struct {
		Residents []core.Resident
		Query     string
	}{filterResidents(residents, q), q}})
}

// filterResidents keeps residents whose name, program, cohort or phone
// contains q, ignoring case.
func filterResidents(residents []core.Resident, q string) []core.Resident {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return residents
	}
	out := make([]core.Resident, 0, len(residents))
	for _, r := range residents {
		for _, field := range []string{r.Name, r.Program, strconv.Itoa(r.Cohort), r.Phone} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// handleAttendanceView shows an activity's attendance without the roll-call form.
func (s *Server) handleAttendanceView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	roster, err := s.attendance.Roster(r.Context(), id)
	if err != nil {
		s.fail(w, r, "Load roster failed", err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "attendance", View{Data: rollCallPage{roster, core.Statuses()}})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	rows, err := s.activityRows(r.Context())
	if err != nil {
		s.fail(w, r, "List activities failed", err)
		return
	}
	s.renderPage(w, r, http.StatusOK, "activities", View{Data: struct {
		Activities []activityRow
	}{rows}})
}

// activityRows lists activities newest first and marks those with minutes.
func (s *Server) activityRows(ctx context.Context) ([]activityRow, error) {
	activities, err := s.backend.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	services.SortActivities(activities, s.loc)

	rows := make([]activityRow, len(activities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(minutesLookups)
	for i, a := range activities {
		rows[i].Activity = a
		g.Go(func() error {
			_, err := s.minutes.Get(gctx, a.ID)
			switch {
			case err == nil:
				rows[i].HasMinutes = true
			case errors.Is(err, store.ErrNotFound):
			default:
				return fmt.Errorf("minutes of activity %d: %w", a.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// handleMinutesView streams the stored document inline.
func (s *Server) handleMinutesView(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	m, body, err := s.minutes.Open(r.Context(), id)
	if err != nil {
		s.fail(w, r, "Open minutes failed", err)
		return
	}
	defer body.Close()

	contentType := m.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": m.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if m.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(m.Size))
	}
	if _, err := io.Copy(w, body); err != nil {
		s.logger.WarnContext(r.Context(), "Minutes stream interrupted",
			applog.FieldActivityID, id,
			applog.FieldError, err)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		http.Redirect(w, r, landingFor(sess.User), http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusOK, "login", View{Data: struct{ Email string }{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := formValue(r, "email")
	password := r.PostFormValue("password")

	if email == "" || password == "" {
		s.renderPage(w, r, http.StatusUnprocessableEntity, "login", View{
			Error: "Email dan kata sandi wajib diisi.",
			Data:  struct{ Email string }{email},
		})
		return
	}

	user, token, err := s.backend.Login(ctx, email, password)
	if err != nil {
		status, msg := userMessage(err)
		s.logger.WarnContext(ctx, "Login failed",
			applog.FieldUserEmail, email,
			applog.FieldOperation, applog.OpLogin,
			applog.FieldError, err)
		s.renderPage(w, r, status, "login", View{Error: msg, Data: struct{ Email string }{email}})
		return
	}
	if _, err := s.sessions.Issue(w, user, token); err != nil {
		s.fail(w, r, "Issue session failed", err)
		return
	}
	s.logger.InfoContext(ctx, "User logged in",
		applog.FieldUserEmail, user.Email,
		"role", user.Role)
	http.Redirect(w, r, landingFor(user), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func landingFor(u core.User) string {
	if u.IsAdmin() {
		return "/admin/penghuni"
	}
	return "/"
}
