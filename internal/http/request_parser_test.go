package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"asrama/internal/core"
	"asrama/internal/period"
	"asrama/internal/restapi"
	"asrama/internal/store"
)

func formRequest(values url.Values) *http.Request {
	return postForm("/", values)
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Andi  ", "Andi"},
		{"A\x00n\x07di", "Andi"},
		{"baris\nkedua", "baris\nkedua"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("id", tt.value)
			got, err := parseID(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeResident(t *testing.T) {
	res, errs := decodeResident(formRequest(url.Values{
		"nama": {" Siti "}, "prodi": {"Kedokteran"}, "angkatan": {"2022"},
		"asal_daerah": {"Makassar"}, "no_hp": {"+62 812 3456 7890"},
	}))
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if res.Name != "Siti" || res.Cohort != 2022 {
		t.Fatalf("decoded %+v", res)
	}

	_, errs = decodeResident(formRequest(url.Values{"angkatan": {"dua ribu"}}))
	if errs["angkatan"] != "harus berupa tahun" {
		t.Errorf("angkatan: %q", errs["angkatan"])
	}
	for _, field := range []string{"nama", "prodi", "asal_daerah", "no_hp"} {
		if errs[field] == "" {
			t.Errorf("expected an error for %s", field)
		}
	}
}

func TestDecodeActivity(t *testing.T) {
	a, errs := decodeActivity(formRequest(url.Values{
		"judul": {"Kerja Bakti"}, "deskripsi": {"Membersihkan asrama"},
		"tanggal": {"2024-05-01"}, "waktu_acara": {"07:30:00"},
	}))
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if a.Time != "07:30" || !a.Date.Equal(core.NewDate(2024, 5, 1).Time) {
		t.Fatalf("decoded %+v", a)
	}

	_, errs = decodeActivity(formRequest(url.Values{
		"judul": {"x"}, "deskripsi": {"y"}, "tanggal": {"01/05/2024"}, "waktu_acara": {"25:00"},
	}))
	if errs["tanggal"] == "" || errs["waktu_acara"] == "" {
		t.Fatalf("expected date and time errors, got %v", errs)
	}
}

func TestDecodeFinance(t *testing.T) {
	form, errs := decodeFinance(formRequest(url.Values{
		"bulan": {"maret"}, "tahun": {"2024"}, "pemasukan": {"Rp 1.500.000"}, "pengeluaran": {"250000,5"},
	}))
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := core.FinancialRecord{Month: "maret", Year: 2024, Incoming: 1500000, Outgoing: 250001}
	if form.Record != want {
		t.Fatalf("got %+v, want %+v", form.Record, want)
	}

	form, errs = decodeFinance(formRequest(url.Values{
		"bulan": {"Aprilo"}, "tahun": {"2024"}, "pemasukan": {"abc"},
	}))
	if errs["bulan"] == "" || errs["pemasukan"] != "jumlah tidak valid" || errs["pengeluaran"] != "wajib diisi" {
		t.Fatalf("unexpected errors %v", errs)
	}
	if form.Incoming != "abc" {
		t.Errorf("raw amount should be kept for re-render, got %q", form.Incoming)
	}
}

func TestParseRosterForm(t *testing.T) {
	got, err := parseRosterForm(formRequest(url.Values{
		"status_1": {"Hadir"}, "status_2": {"tidak hadir"}, "catatan": {"abaikan"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != core.Present || got[2] != core.Absent {
		t.Fatalf("got %v", got)
	}

	for _, bad := range []url.Values{
		{"status_x": {"Hadir"}},
		{"status_3": {"Terlambat"}},
	} {
		if _, err := parseRosterForm(formRequest(bad)); !errors.Is(err, core.ErrInvalidStatus) {
			t.Errorf("%v: expected ErrInvalidStatus, got %v", bad, err)
		}
	}
}

func TestParseSeriesQuery(t *testing.T) {
	tests := []struct {
		query    string
		wantG    period.Granularity
		wantYear int
		wantErr  bool
	}{
		{"", period.Monthly, 0, false},
		{"period=triwulan&year=2024", period.Quarterly, 2024, false},
		{"period=yearly", period.Yearly, 0, false},
		{"period=weekly", "", 0, true},
		{"year=abc", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/keuangan/series?"+tt.query, nil)
			g, year, err := parseSeriesQuery(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v", err)
			}
			if g != tt.wantG || year != tt.wantYear {
				t.Fatalf("got (%s, %d)", g, year)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{core.ErrInvalidCredential, http.StatusUnauthorized},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{core.ErrInvalidStatus, http.StatusUnprocessableEntity},
		{fmt.Errorf("series: %w", &core.MonthError{Record: core.FinancialRecord{ID: 7, Month: "Aprilo", Year: 2024}}), http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&restapi.APIError{StatusCode: 500, Status: "Internal Server Error"}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, msg := userMessage(tt.err); got != tt.want || msg == "" {
			t.Errorf("userMessage(%v) = %d %q, want %d", tt.err, got, msg, tt.want)
		}
	}

	_, msg := userMessage(&core.MonthError{Record: core.FinancialRecord{ID: 7, Month: "Aprilo", Year: 2024}})
	if !strings.Contains(msg, "#7 (Aprilo 2024)") {
		t.Errorf("month error should name the record, got %q", msg)
	}
}

func TestFormatTanggal(t *testing.T) {
	if got := formatTanggal(core.NewDate(2024, 1, 2)); got != "2 Januari 2024" {
		t.Errorf("got %q", got)
	}
	if got := formatTanggal(core.Date{}); got != "-" {
		t.Errorf("zero date: got %q", got)
	}
}
