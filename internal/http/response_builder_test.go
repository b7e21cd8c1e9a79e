package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerChanged("keuangan", 7).
		TriggerSuccessNotification("Data tersimpan").
		Write(rec)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var triggers map[string]map[string]any
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if triggers["data:changed"]["resource"] != "keuangan" {
		t.Errorf("unexpected data:changed payload %v", triggers["data:changed"])
	}
	if triggers["data:changed"]["id"] != float64(7) {
		t.Errorf("unexpected id %v", triggers["data:changed"]["id"])
	}
	n := triggers["show-notification"]
	if n["type"] != "success" || n["message"] != "Data tersimpan" || n["duration"] != float64(3000) {
		t.Errorf("unexpected notification %v", n)
	}
}

func TestHTMXResponseBuilder_NoTriggerHeaderWhenEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusNoContent).Write(rec)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if _, ok := rec.Header()["Hx-Trigger"]; ok {
		t.Error("HX-Trigger should be absent")
	}
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorResponse(http.StatusConflict, `Data <Januari 2024> sudah ada`).Write(rec)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("HX-Reswap") != "none" {
		t.Error("error responses must not swap")
	}
	body := rec.Body.String()
	if strings.Contains(body, "<Januari") || !strings.Contains(body, "&lt;Januari 2024&gt;") {
		t.Errorf("message not escaped: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}
