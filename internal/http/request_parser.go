package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"asrama/internal/core"
	"asrama/internal/period"
)

const statusFieldPrefix = "status_"

var errInvalidID = errors.New("invalid id")

// sanitizeInput trims whitespace and removes control characters except tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func formValue(r *http.Request, key string) string {
	return sanitizeInput(r.PostFormValue(key))
}

// parseID reads the {id} path segment. Only positive ids are valid.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, r.PathValue("id"))
	}
	return id, nil
}

// merge adds the validator's messages for fields that have none yet.
func merge(errs core.FieldErrors, err error) core.FieldErrors {
	var fe core.FieldErrors
	if !errors.As(err, &fe) {
		return errs
	}
	for k, v := range fe {
		if _, ok := errs[k]; !ok {
			errs[k] = v
		}
	}
	return errs
}

func decodeResident(r *http.Request) (core.Resident, core.FieldErrors) {
	errs := core.FieldErrors{}
	res := core.Resident{
		Name:     formValue(r, "nama"),
		Program:  formValue(r, "prodi"),
		Hometown: formValue(r, "asal_daerah"),
		Phone:    formValue(r, "no_hp"),
	}
	if v := formValue(r, "angkatan"); v != "" {
		cohort, err := strconv.Atoi(v)
		if err != nil {
			errs["angkatan"] = "harus berupa tahun"
		}
		res.Cohort = cohort
	}
	errs = merge(errs, core.Validate(res))
	if len(errs) == 0 {
		return res, nil
	}
	return res, errs
}

func decodeActivity(r *http.Request) (core.Activity, core.FieldErrors) {
	errs := core.FieldErrors{}
	a := core.Activity{
		Title:       formValue(r, "judul"),
		Description: formValue(r, "deskripsi"),
		Time:        core.NormalizeTime(formValue(r, "waktu_acara")),
	}
	if v := formValue(r, "tanggal"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			errs["tanggal"] = "format tanggal harus TTTT-BB-HH"
		}
		a.Date = d
	}
	errs = merge(errs, core.Validate(a))
	if len(errs) == 0 {
		return a, nil
	}
	return a, errs
}

// financeForm keeps the amounts as typed so a rejected form shows them back unchanged.
type financeForm struct {
	Record   core.FinancialRecord
	Incoming string
	Outgoing string
}

func decodeFinance(r *http.Request) (financeForm, core.FieldErrors) {
	errs := core.FieldErrors{}
	form := financeForm{
		Record:   core.FinancialRecord{Month: formValue(r, "bulan")},
		Incoming: formValue(r, "pemasukan"),
		Outgoing: formValue(r, "pengeluaran"),
	}
	if v := formValue(r, "tahun"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			errs["tahun"] = "harus berupa tahun"
		}
		form.Record.Year = year
	}
	amounts := []struct {
		field string
		raw   string
		dst   *int64
	}{
		{"pemasukan", form.Incoming, &form.Record.Incoming},
		{"pengeluaran", form.Outgoing, &form.Record.Outgoing},
	}
	for _, a := range amounts {
		if a.raw == "" {
			errs[a.field] = "wajib diisi"
			continue
		}
		v, err := core.ParseRupiah(a.raw)
		if err != nil {
			errs[a.field] = "jumlah tidak valid"
			continue
		}
		*a.dst = v
	}
	errs = merge(errs, core.Validate(form.Record))
	if len(errs) == 0 {
		return form, nil
	}
	return form, errs
}

// parseRosterForm collects status_<residentID> radio values from a roll-call form.
func parseRosterForm(r *http.Request) (map[int64]core.AttendanceStatus, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	out := make(map[int64]core.AttendanceStatus)
	for key, values := range r.PostForm {
		if !strings.HasPrefix(key, statusFieldPrefix) || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, statusFieldPrefix), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: field %q", core.ErrInvalidStatus, key)
		}
		st, err := core.ParseAttendanceStatus(values[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, values[0])
		}
		out[id] = st
	}
	return out, nil
}

// parseSeriesQuery reads ?period= and ?year=. A missing year means every year.
func parseSeriesQuery(r *http.Request) (period.Granularity, int, error) {
	q := r.URL.Query()
	g, err := period.ParseGranularity(q.Get("period"))
	if err != nil {
		return "", 0, err
	}
	year := 0
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || year < 0 {
			return "", 0, fmt.Errorf("invalid year %q", v)
		}
	}
	return g, year, nil
}
