package restapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asrama/internal/core"
	"asrama/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestListResidentsEnvelopes(t *testing.T) {
	bodies := map[string]string{
		"wrapped": `{"data":[{"id":1,"nama":"Ani","prodi":"TI","angkatan":"2022","asalDaerah":"Medan","noHp":"0812"}]}`,
		"bare":    `[{"id":1,"nama":"Ani","prodi":"TI","angkatan":2022,"asalDaerah":"Medan","noHp":"0812"}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/penghunis", r.URL.Path)
				_, _ = io.WriteString(w, body)
			})

			got, err := c.ListResidents(context.Background())

			require.NoError(t, err)
			assert.Equal(t, []core.Resident{{ID: 1, Name: "Ani", Program: "TI", Cohort: 2022, Hometown: "Medan", Phone: "0812"}}, got)
		})
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"missing"}`, http.StatusNotFound)
	})

	_, err := c.GetActivity(context.Background(), 9)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "API error: 404 Not Found", apiErr.Error())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteIgnoresPayload(t *testing.T) {
	var method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_, _ = io.WriteString(w, `{"message":"deleted"}`)
	})

	require.NoError(t, c.DeleteResident(context.Background(), 3))
	assert.Equal(t, http.MethodDelete, method)
}

func TestBearerTokenFromContext(t *testing.T) {
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.ListActivities(WithToken(context.Background(), "tok-123"))

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", auth)
}

func TestFinanceAmounts(t *testing.T) {
	t.Run("numeric strings are accepted", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":[{"id":4,"nama_bulan":"maret","tahun":"2024","pemasukan":"1500000.00","pengeluaran":250000}]}`)
		})

		got, err := c.ListFinance(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []core.FinancialRecord{{ID: 4, Month: "Maret", Year: 2024, Incoming: 1500000, Outgoing: 250000}}, got)
	})

	t.Run("non-numeric amount fails", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"id":4,"nama_bulan":"Maret","tahun":2024,"pemasukan":"banyak","pengeluaran":0}]`)
		})

		_, err := c.ListFinance(context.Background())

		require.ErrorIs(t, err, core.ErrInvalidAmount)
	})

	t.Run("out of range amount fails", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"id":4,"nama_bulan":"Maret","tahun":2024,"pemasukan":1e30,"pengeluaran":"-1e19"}]`)
		})

		_, err := c.ListFinance(context.Background())

		require.ErrorIs(t, err, core.ErrInvalidAmount)
	})

	t.Run("unknown month is kept under its raw name", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"id":4,"nama_bulan":" Aprilo ","tahun":2024,"pemasukan":1,"pengeluaran":0},{"id":5,"nama_bulan":"januari","tahun":2024,"pemasukan":2,"pengeluaran":0}]`)
		})

		got, err := c.ListFinance(context.Background())

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Aprilo", got[0].Month)
		assert.False(t, got[0].KnownMonth())
		assert.Equal(t, "Januari", got[1].Month)
		assert.True(t, got[1].KnownMonth())
	})
}

func TestNumberBounds(t *testing.T) {
	tests := []struct {
		in      string
		want    Number
		wantErr bool
	}{
		{in: `9223372036854775807`, want: math.MaxInt64},
		{in: `"1500000.49"`, want: 1500000},
		{in: `1e18`, want: 1_000_000_000_000_000_000},
		{in: `9.3e18`, wantErr: true},
		{in: `-9.3e18`, wantErr: true},
		{in: `1e30`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Number
			err := n.UnmarshalJSON([]byte(tt.in))
			if tt.wantErr {
				require.ErrorIs(t, err, core.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestCreateFinanceSendsMonthNumber(t *testing.T) {
	var sent map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_, _ = io.WriteString(w, `{"data":{"id":12}}`)
	})

	got, err := c.CreateFinance(context.Background(), core.FinancialRecord{Month: "Oktober", Year: 2024, Incoming: 10, Outgoing: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(12), got.ID)
	assert.Equal(t, float64(10), sent["id_bulan"])
	assert.Equal(t, float64(2024), sent["tahun"])
}

func TestAttendanceRoundTrip(t *testing.T) {
	var batch attendanceBatchDTO
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/absensi/kegiatan/5", r.URL.Path)
		if r.Method == http.MethodPost {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
			w.WriteHeader(http.StatusCreated)
			return
		}
		_, _ = io.WriteString(w, `[{"id_penghuni":1,"status_kehadiran":"Hadir"},{"id_penghuni":2,"status_kehadiran":"??"}]`)
	})
	ctx := context.Background()

	rows, err := c.ListAttendance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []core.Attendance{{ActivityID: 5, ResidentID: 1, Status: core.Present}}, rows)

	err = c.SaveAttendance(ctx, 5, []core.Attendance{{ResidentID: 2, Status: core.Excused}})
	require.NoError(t, err)
	require.Len(t, batch.Absensi, 1)
	assert.Equal(t, "Izin", batch.Absensi[0].StatusKehadiran)
}

func TestMinutes(t *testing.T) {
	var upload minutesUploadDTO
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notulen/kegiatan/3":
			_, _ = io.WriteString(w, `{"id":1,"id_kegiatan":3,"file":"rapat.pdf"}`)
		case "/notulen/kegiatan/4":
			_, _ = io.WriteString(w, `{"data":null}`)
		case "/uploads/notulen/rapat.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = io.WriteString(w, "%PDF-1.4")
		case "/notulen":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&upload))
			_, _ = io.WriteString(w, `{"id":2,"id_kegiatan":3,"file":"stored.pdf"}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	_, err := c.GetMinutes(ctx, 4)
	require.ErrorIs(t, err, store.ErrNotFound)

	m, rc, err := c.OpenMinutes(ctx, 3)
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(b))
	assert.Equal(t, "application/pdf", m.ContentType)

	saved, err := c.UploadMinutes(ctx, core.MinutesUpload{ActivityID: 3, FileName: "n.pdf", ContentType: "application/pdf", Data: []byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, "stored.pdf", saved.FileName)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abc")), upload.FileBase64)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "benar" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"token":"jwt-abc","user":{"id":7,"nama":"Pengurus","email":"a@b.c","role":"admin"}}`)
	})
	ctx := context.Background()

	u, tok, err := c.Login(ctx, "a@b.c", "benar")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)
	assert.Equal(t, core.User{ID: "7", Name: "Pengurus", Email: "a@b.c", Role: "admin"}, u)

	_, _, err = c.Login(ctx, "a@b.c", "salah")
	assert.ErrorIs(t, err, core.ErrInvalidCredential)
}

func TestActivityDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"judul":"Rapat","deskripsi":"Bulanan","tanggal":"2024-03-09T17:00:00.000Z","waktu_acara":"19:30:00"}]`)
	})

	got, err := c.ListActivities(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-09", got[0].Date.String())
	assert.Equal(t, "19:30", got[0].Time)
}
