package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"asrama/internal/core"
)

// Number decodes a JSON number or a numeric string. The backend serialises
// DECIMAL columns as strings, so both must be accepted; anything else is an
// error rather than a silent zero.
type Number int64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	if s == "" {
		*n = 0
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Number(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %q is not numeric", core.ErrInvalidAmount, s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which no int64 can hold.
	f = math.Round(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return fmt.Errorf("%w: %q is out of range", core.ErrInvalidAmount, s)
	}
	*n = Number(f)
	return nil
}

type residentDTO struct {
	ID         Number `json:"id,omitempty"`
	Nama       string `json:"nama"`
	Prodi      string `json:"prodi"`
	Angkatan   Number `json:"angkatan"`
	AsalDaerah string `json:"asalDaerah"`
	NoHP       string `json:"noHp"`
}

func residentToDTO(r core.Resident) residentDTO {
	return residentDTO{
		ID:         Number(r.ID),
		Nama:       r.Name,
		Prodi:      r.Program,
		Angkatan:   Number(r.Cohort),
		AsalDaerah: r.Hometown,
		NoHP:       r.Phone,
	}
}

func (d residentDTO) toCore() core.Resident {
	return core.Resident{
		ID:       int64(d.ID),
		Name:     d.Nama,
		Program:  d.Prodi,
		Cohort:   int(d.Angkatan),
		Hometown: d.AsalDaerah,
		Phone:    d.NoHP,
	}
}

type activityDTO struct {
	ID         Number `json:"id,omitempty"`
	Judul      string `json:"judul"`
	Deskripsi  string `json:"deskripsi"`
	Tanggal    string `json:"tanggal"`
	WaktuAcara string `json:"waktu_acara"`
}

func activityToDTO(a core.Activity) activityDTO {
	return activityDTO{
		ID:         Number(a.ID),
		Judul:      a.Title,
		Deskripsi:  a.Description,
		Tanggal:    a.Date.String(),
		WaktuAcara: a.Time,
	}
}

func (d activityDTO) toCore() (core.Activity, error) {
	date, err := core.ParseDate(d.Tanggal)
	if err != nil {
		return core.Activity{}, fmt.Errorf("kegiatan %d tanggal %q: %w", d.ID, d.Tanggal, err)
	}
	return core.Activity{
		ID:          int64(d.ID),
		Title:       d.Judul,
		Description: d.Deskripsi,
		Date:        date,
		Time:        core.NormalizeTime(d.WaktuAcara),
	}, nil
}

type attendanceDTO struct {
	IDKegiatan      Number `json:"id_kegiatan,omitempty"`
	IDPenghuni      Number `json:"id_penghuni"`
	StatusKehadiran string `json:"status_kehadiran"`
}

type attendanceBatchDTO struct {
	IDKegiatan Number          `json:"id_kegiatan"`
	Absensi    []attendanceDTO `json:"absensi"`
}

type minutesDTO struct {
	ID          Number `json:"id"`
	IDKegiatan  Number `json:"id_kegiatan"`
	File        string `json:"file"`
	ContentType string `json:"content_type"`
	Size        Number `json:"size"`
	UploadedAt  string `json:"created_at"`
}

type minutesUploadDTO struct {
	IDKegiatan  int64  `json:"id_kegiatan"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileBase64  string `json:"file_base64"`
}

// financeDTO is the read shape; the backend resolves its month and year
// foreign keys into names.
type financeDTO struct {
	ID          Number `json:"id"`
	NamaBulan   string `json:"nama_bulan"`
	Tahun       Number `json:"tahun"`
	Pemasukan   Number `json:"pemasukan"`
	Pengeluaran Number `json:"pengeluaran"`
}

// toCore keeps rows whose month name is unknown, under their raw name, so
// they stay visible and deletable. Aggregation rejects them.
func (d financeDTO) toCore() core.FinancialRecord {
	month, err := core.CanonicalMonth(d.NamaBulan)
	if err != nil {
		month = strings.TrimSpace(d.NamaBulan)
	}
	return core.FinancialRecord{
		ID:       int64(d.ID),
		Month:    month,
		Year:     int(d.Tahun),
		Incoming: int64(d.Pemasukan),
		Outgoing: int64(d.Pengeluaran),
	}
}

// financeWriteDTO is the write shape which references the month by number.
type financeWriteDTO struct {
	IDBulan     int   `json:"id_bulan"`
	Tahun       int   `json:"tahun"`
	Pemasukan   int64 `json:"pemasukan"`
	Pengeluaran int64 `json:"pengeluaran"`
}

func financeToWriteDTO(f core.FinancialRecord) (financeWriteDTO, error) {
	m, err := core.MonthIndex(f.Month)
	if err != nil {
		return financeWriteDTO{}, err
	}
	return financeWriteDTO{IDBulan: m, Tahun: f.Year, Pemasukan: f.Incoming, Pengeluaran: f.Outgoing}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Nama  string          `json:"nama"`
		Email string          `json:"email"`
		Role  string          `json:"role"`
	} `json:"user"`
}

func (r loginResponse) toCore() core.User {
	name := r.User.Name
	if name == "" {
		name = r.User.Nama
	}
	return core.User{
		ID:    strings.Trim(string(r.User.ID), `"`),
		Name:  name,
		Email: r.User.Email,
		Role:  r.User.Role,
	}
}
