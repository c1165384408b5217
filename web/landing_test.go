package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestShell(t *testing.T) {
	shell := string(Shell())

	for _, s := range []string{`<div id="app">`, `<nav id="nav">`, "/static/style.css"} {
		if !strings.Contains(shell, s) {
			t.Errorf("shell missing %q", s)
		}
	}
}

func TestShellReturnsCopy(t *testing.T) {
	a := Shell()
	a[0] = 'X'
	if Shell()[0] == 'X' {
		t.Fatal("Shell must return a fresh copy")
	}
}

func TestStaticHandlers(t *testing.T) {
	tests := []struct {
		name            string
		handler         http.Handler
		method          string
		wantStatus      int
		wantContentType string
	}{
		{"style GET", StyleHandler(), http.MethodGet, http.StatusOK, "text/css"},
		{"style HEAD", StyleHandler(), http.MethodHead, http.StatusOK, "text/css"},
		{"robots GET", RobotsTxtHandler(), http.MethodGet, http.StatusOK, "text/plain"},
		{"style POST", StyleHandler(), http.MethodPost, http.StatusMethodNotAllowed, ""},
		{"robots DELETE", RobotsTxtHandler(), http.MethodDelete, http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantContentType != "" && !strings.Contains(rec.Header().Get("Content-Type"), tt.wantContentType) {
				t.Errorf("Content-Type = %q, want to contain %q", rec.Header().Get("Content-Type"), tt.wantContentType)
			}
			if rec.Code == http.StatusMethodNotAllowed && !strings.Contains(rec.Header().Get("Allow"), "GET") {
				t.Errorf("Allow header = %q, want to contain GET", rec.Header().Get("Allow"))
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Error("HEAD response must not carry a body")
			}
		})
	}
}
