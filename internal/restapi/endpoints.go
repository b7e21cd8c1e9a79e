package restapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"asrama/internal/core"
	"asrama/internal/store"
)

var _ store.Backend = (*Client)(nil)

func (c *Client) Login(ctx context.Context, email, password string) (core.User, string, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
		return core.User{}, "", core.ErrInvalidCredential
	}
	if err != nil {
		return core.User{}, "", err
	}
	if resp.Token == "" {
		return core.User{}, "", errors.New("login response without token")
	}
	return resp.toCore(), resp.Token, nil
}

func (c *Client) ListResidents(ctx context.Context) ([]core.Resident, error) {
	var rows []residentDTO
	if err := c.do(ctx, http.MethodGet, "/penghunis", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Resident, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out, nil
}

func (c *Client) CreateResident(ctx context.Context, r core.Resident) (core.Resident, error) {
	var created residentDTO
	if err := c.do(ctx, http.MethodPost, "/penghunis", residentToDTO(r), &created); err != nil {
		return core.Resident{}, err
	}
	return created.toCore(), nil
}

func (c *Client) UpdateResident(ctx context.Context, r core.Resident) (core.Resident, error) {
	var updated residentDTO
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/penghunis/%d", r.ID), residentToDTO(r), &updated); err != nil {
		return core.Resident{}, err
	}
	if updated.ID == 0 {
		// Some backend versions answer an update with a bare message.
		return r, nil
	}
	return updated.toCore(), nil
}

func (c *Client) DeleteResident(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/penghunis/%d", id), nil, nil)
}

func (c *Client) ListActivities(ctx context.Context) ([]core.Activity, error) {
	var rows []activityDTO
	if err := c.do(ctx, http.MethodGet, "/kegiatan", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Activity, 0, len(rows))
	for _, r := range rows {
		a, err := r.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Client) GetActivity(ctx context.Context, id int64) (core.Activity, error) {
	var row activityDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/kegiatan/%d", id), nil, &row); err != nil {
		return core.Activity{}, err
	}
	return row.toCore()
}

func (c *Client) CreateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	var created activityDTO
	if err := c.do(ctx, http.MethodPost, "/kegiatan", activityToDTO(a), &created); err != nil {
		return core.Activity{}, err
	}
	return created.toCore()
}

func (c *Client) UpdateActivity(ctx context.Context, a core.Activity) (core.Activity, error) {
	var updated activityDTO
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/kegiatan/%d", a.ID), activityToDTO(a), &updated); err != nil {
		return core.Activity{}, err
	}
	if updated.ID == 0 {
		return a, nil
	}
	return updated.toCore()
}

func (c *Client) DeleteActivity(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/kegiatan/%d", id), nil, nil)
}

func (c *Client) ListAttendance(ctx context.Context, activityID int64) ([]core.Attendance, error) {
	var rows []attendanceDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/absensi/kegiatan/%d", activityID), nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.Attendance, 0, len(rows))
	for _, r := range rows {
		st, err := core.ParseAttendanceStatus(r.StatusKehadiran)
		if err != nil {
			// Unknown labels fall back to the roster default.
			continue
		}
		out = append(out, core.Attendance{ActivityID: activityID, ResidentID: int64(r.IDPenghuni), Status: st})
	}
	return out, nil
}

func (c *Client) SaveAttendance(ctx context.Context, activityID int64, records []core.Attendance) error {
	batch := attendanceBatchDTO{IDKegiatan: Number(activityID), Absensi: make([]attendanceDTO, len(records))}
	for i, r := range records {
		batch.Absensi[i] = attendanceDTO{IDPenghuni: Number(r.ResidentID), StatusKehadiran: string(r.Status)}
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/absensi/kegiatan/%d", activityID), batch, nil)
}

func (m minutesDTO) toCore(activityID int64) core.Minutes {
	out := core.Minutes{
		ID:          int64(m.ID),
		ActivityID:  activityID,
		FileName:    m.File,
		ContentType: m.ContentType,
		Size:        int64(m.Size),
	}
	if t, err := time.Parse(time.RFC3339, m.UploadedAt); err == nil {
		out.UploadedAt = t
	}
	return out
}

func (c *Client) GetMinutes(ctx context.Context, activityID int64) (core.Minutes, error) {
	var row minutesDTO
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/notulen/kegiatan/%d", activityID), nil, &row); err != nil {
		return core.Minutes{}, err
	}
	if row.File == "" {
		return core.Minutes{}, store.ErrNotFound
	}
	return row.toCore(activityID), nil
}

func (c *Client) UploadMinutes(ctx context.Context, up core.MinutesUpload) (core.Minutes, error) {
	body := minutesUploadDTO{
		IDKegiatan:  up.ActivityID,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		FileBase64:  base64.StdEncoding.EncodeToString(up.Data),
	}
	var row minutesDTO
	if err := c.do(ctx, http.MethodPost, "/notulen", body, &row); err != nil {
		return core.Minutes{}, err
	}
	m := row.toCore(up.ActivityID)
	if m.FileName == "" {
		m.FileName = up.FileName
	}
	if m.Size == 0 {
		m.Size = int64(len(up.Data))
	}
	if m.ContentType == "" {
		m.ContentType = up.ContentType
	}
	return m, nil
}

// OpenMinutes fetches the stored document from the backend's uploads directory.
func (c *Client) OpenMinutes(ctx context.Context, activityID int64) (core.Minutes, io.ReadCloser, error) {
	m, err := c.GetMinutes(ctx, activityID)
	if err != nil {
		return core.Minutes{}, nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/uploads/notulen/"+path.Base(m.FileName), nil)
	if err != nil {
		return core.Minutes{}, nil, err
	}
	req.Header.Del("Accept")
	resp, err := c.http.Do(req)
	if err != nil {
		return core.Minutes{}, nil, fmt.Errorf("download minutes: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return core.Minutes{}, nil, &APIError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	if m.ContentType == "" {
		m.ContentType = strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	}
	if m.Size == 0 && resp.ContentLength > 0 {
		m.Size = resp.ContentLength
	}
	return m, resp.Body, nil
}

func (c *Client) ListFinance(ctx context.Context) ([]core.FinancialRecord, error) {
	var rows []financeDTO
	if err := c.do(ctx, http.MethodGet, "/keuangan", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]core.FinancialRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}

func (c *Client) CreateFinance(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	body, err := financeToWriteDTO(f)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	var created financeDTO
	if err := c.do(ctx, http.MethodPost, "/keuangan", body, &created); err != nil {
		return core.FinancialRecord{}, err
	}
	if created.NamaBulan == "" {
		f.ID = int64(created.ID)
		return f, nil
	}
	return created.toCore(), nil
}

func (c *Client) UpdateFinance(ctx context.Context, f core.FinancialRecord) (core.FinancialRecord, error) {
	body, err := financeToWriteDTO(f)
	if err != nil {
		return core.FinancialRecord{}, err
	}
	var updated financeDTO
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/keuangan/%d", f.ID), body, &updated); err != nil {
		return core.FinancialRecord{}, err
	}
	if updated.NamaBulan == "" {
		return f, nil
	}
	return updated.toCore(), nil
}

func (c *Client) DeleteFinance(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/keuangan/%d", id), nil, nil)
}
