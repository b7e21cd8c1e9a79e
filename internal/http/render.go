package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/restapi"
	"asrama/internal/session"
	"asrama/internal/store"
)

// View is the data every page template receives.
type View struct {
	Session *session.Session
	Flash   string
	Error   string
	Data    any
}

type templates struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"rupiah":  core.FormatRupiah,
	"tanggal": formatTanggal,
}

// loadTemplates parses the layout and partials once, then clones them for
// each page so every page can define its own "title" and "content".
func loadTemplates(fsys fs.FS) (*templates, error) {
	base, err := template.New("").Funcs(templateFuncs).ParseFS(fsys, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	t := &templates{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		t.pages[strings.TrimSuffix(path.Base(f), ".html")] = page
	}
	return t, nil
}

// formatTanggal renders a date the Indonesian way, e.g. "2 Januari 2024".
func formatTanggal(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	month, err := core.MonthName(int(d.Month()))
	if err != nil {
		return d.String()
	}
	return fmt.Sprintf("%d %s %d", d.Day(), month, d.Year())
}

var flashMessages = map[string]string{
	"tersimpan": "Data berhasil disimpan.",
	"absensi":   "Absensi berhasil disimpan.",
	"notulen":   "Notulen berhasil diunggah.",
}

// renderPage writes page inside the layout. Rendering goes to a buffer first
// so a template error never leaves a half-written page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, v View) {
	ctx := r.Context()
	t, ok := s.templates.pages[page]
	if !ok {
		s.logger.ErrorContext(ctx, "Unknown page template", "template", page)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	v.Session = session.FromContext(ctx)
	if v.Flash == "" {
		v.Flash = flashMessages[r.URL.Query().Get("pesan")]
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		s.logger.ErrorContext(ctx, "Template execution failed",
			"template", page,
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, "Terjadi kesalahan saat menampilkan halaman.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// userMessage maps an error to the status code and text shown to the user.
func userMessage(err error) (int, string) {
	var (
		apiErr   *restapi.APIError
		monthErr *core.MonthError
	)
	switch {
	case errors.Is(err, core.ErrInvalidCredential):
		return http.StatusUnauthorized, "Email atau kata sandi salah."
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Data tidak ditemukan."
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "Data untuk periode tersebut sudah ada."
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "Ukuran file notulen maksimal 10 MB."
	case errors.Is(err, core.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType, "File notulen harus berupa PDF atau dokumen Word."
	case errors.Is(err, core.ErrEmptyFile):
		return http.StatusUnprocessableEntity, "File notulen kosong."
	case errors.As(err, &monthErr):
		f := monthErr.Record
		return http.StatusUnprocessableEntity, fmt.Sprintf(
			"Data keuangan #%d (%s %d) memakai nama bulan yang tidak dikenal. Perbaiki atau hapus data tersebut di halaman Keuangan.",
			f.ID, f.Month, f.Year)
	case errors.Is(err, core.ErrInvalidStatus):
		return http.StatusUnprocessableEntity, "Status kehadiran tidak valid."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Server data tidak merespons, coba lagi."
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, apiErr.Error()
	}
	return http.StatusInternalServerError, "Terjadi kesalahan pada server."
}

// fail logs err and reports it in the shape the client expects.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, text := userMessage(err)
	level := s.logger.WarnContext
	if status >= 500 {
		level = s.logger.ErrorContext
	}
	level(r.Context(), msg, applog.FieldError, err, applog.FieldPath, r.URL.Path, applog.FieldStatusCode, status)

	if isHTMX(r) {
		ErrorResponse(status, text).Write(w)
		return
	}
	s.renderPage(w, r, status, "error", View{Error: text})
}
