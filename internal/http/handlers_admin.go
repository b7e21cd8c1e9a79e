package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"asrama/internal/core"
	applog "asrama/internal/log"
)

// maxUploadBody leaves room for the multipart envelope around the document.
const maxUploadBody = core.MaxMinutesSize + 1<<20

// saved finishes a successful form post with a redirect so a reload never
// resubmits. HTMX follows the redirect and swaps in the resulting page.
func saved(w http.ResponseWriter, r *http.Request, listURL, flash string) {
	http.Redirect(w, r, listURL+"?pesan="+flash, http.StatusSeeOther)
}

// deleted answers an hx-delete: the empty body removes the row.
func deleted(w http.ResponseWriter, resource string, id int64) {
	NewHTMXResponse().
		TriggerChanged(resource, id).
		TriggerSuccessNotification("Data berhasil dihapus.").
		Write(w)
}

func editID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.URL.Query().Get("edit"), 10, 64)
	return id
}

type residentsPage struct {
	Form      core.Resident
	Errors    core.FieldErrors
	Residents []core.Resident
}

func (s *Server) renderResidents(w http.ResponseWriter, r *http.Request, status int, page residentsPage) {
	residents, err := s.backend.ListResidents(r.Context())
	if err != nil {
		s.fail(w, r, "List residents failed", err)
		return
	}
	page.Residents = residents
	if id := editID(r); id > 0 && page.Form.ID == 0 {
		for _, res := range residents {
			if res.ID == id {
				page.Form = res
			}
		}
	}
	s.renderPage(w, r, status, "admin_residents", View{Data: page})
}

func (s *Server) handleAdminResidents(w http.ResponseWriter, r *http.Request) {
	s.renderResidents(w, r, http.StatusOK, residentsPage{})
}

func (s *Server) handleCreateResident(w http.ResponseWriter, r *http.Request) {
	s.saveResident(w, r, 0)
}

func (s *Server) handleUpdateResident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.saveResident(w, r, id)
}

func (s *Server) saveResident(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	res, errs := decodeResident(r)
	res.ID = id
	if errs != nil {
		s.renderResidents(w, r, http.StatusUnprocessableEntity, residentsPage{Form: res, Errors: errs})
		return
	}

	var err error
	if id == 0 {
		res, err = s.backend.CreateResident(ctx, res)
	} else {
		res, err = s.backend.UpdateResident(ctx, res)
	}
	if err != nil {
		s.fail(w, r, "Save resident failed", err)
		return
	}
	s.logger.InfoContext(ctx, "Resident saved",
		applog.FieldResidentID, res.ID,
		applog.FieldOperation, operation(id))
	saved(w, r, "/admin/penghuni", "tersimpan")
}

func (s *Server) handleDeleteResident(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "ID tidak valid.").Write(w)
		return
	}
	if err := s.backend.DeleteResident(r.Context(), id); err != nil {
		s.fail(w, r, "Delete resident failed", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Resident deleted", applog.FieldResidentID, id)
	deleted(w, "penghuni", id)
}

type activitiesPage struct {
	Form       core.Activity
	Errors     core.FieldErrors
	Activities []activityRow
}

func (s *Server) renderAdminActivities(w http.ResponseWriter, r *http.Request, status int, page activitiesPage, errMsg string) {
	rows, err := s.activityRows(r.Context())
	if err != nil {
		s.fail(w, r, "List activities failed", err)
		return
	}
	page.Activities = rows
	if id := editID(r); id > 0 && page.Form.ID == 0 {
		for _, row := range rows {
			if row.Activity.ID == id {
				page.Form = row.Activity
			}
		}
	}
	s.renderPage(w, r, status, "admin_activities", View{Error: errMsg, Data: page})
}

func (s *Server) handleAdminActivities(w http.ResponseWriter, r *http.Request) {
	s.renderAdminActivities(w, r, http.StatusOK, activitiesPage{}, "")
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	s.saveActivity(w, r, 0)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.saveActivity(w, r, id)
}

func (s *Server) saveActivity(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	a, errs := decodeActivity(r)
	a.ID = id
	if errs != nil {
		s.renderAdminActivities(w, r, http.StatusUnprocessableEntity, activitiesPage{Form: a, Errors: errs}, "")
		return
	}

	var err error
	if id == 0 {
		a, err = s.backend.CreateActivity(ctx, a)
	} else {
		a, err = s.backend.UpdateActivity(ctx, a)
	}
	if err != nil {
		s.fail(w, r, "Save activity failed", err)
		return
	}
	s.logger.InfoContext(ctx, "Activity saved",
		applog.FieldActivityID, a.ID,
		applog.FieldOperation, operation(id))
	saved(w, r, "/admin/kegiatan", "tersimpan")
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "ID tidak valid.").Write(w)
		return
	}
	if err := s.backend.DeleteActivity(r.Context(), id); err != nil {
		s.fail(w, r, "Delete activity failed", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Activity deleted", applog.FieldActivityID, id)
	deleted(w, "kegiatan", id)
}

type rollCallPage struct {
	Roster   core.Roster
	Statuses []core.AttendanceStatus
}

func (s *Server) handleRollCall(w http.ResponseWriter, r *http.Request) {
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
	s.renderPage(w, r, http.StatusOK, "admin_attendance", View{Data: rollCallPage{roster, core.Statuses()}})
}

func (s *Server) handleSaveRollCall(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	statuses, err := parseRosterForm(r)
	if err != nil {
		s.fail(w, r, "Invalid roll-call form", err)
		return
	}
	if _, err := s.attendance.Save(r.Context(), id, statuses); err != nil {
		s.fail(w, r, "Save attendance failed", err)
		return
	}
	saved(w, r, "/admin/kegiatan/"+strconv.FormatInt(id, 10)+"/absensi", "absensi")
}

func (s *Server) handleUploadMinutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			err = core.ErrFileTooLarge
		case errors.Is(err, http.ErrMissingFile):
			err = core.ErrEmptyFile
		}
		s.uploadFailed(w, r, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, core.MaxMinutesSize+1))
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	if _, err := s.minutes.Upload(ctx, id, header.Filename, data); err != nil {
		s.uploadFailed(w, r, err)
		return
	}
	saved(w, r, "/admin/kegiatan", "notulen")
}

// uploadFailed shows rejected documents above the activity list; other
// failures take the generic error path.
func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.Is(err, core.ErrUnsupportedFile), errors.Is(err, core.ErrEmptyFile):
		status, msg := userMessage(err)
		s.logger.WarnContext(r.Context(), "Minutes upload rejected", applog.FieldError, err)
		s.renderAdminActivities(w, r, status, activitiesPage{}, msg)
	default:
		s.fail(w, r, "Minutes upload failed", err)
	}
}

func operation(id int64) string {
	if id == 0 {
		return applog.OpCreate
	}
	return applog.OpUpdate
}
