package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRouteRegistration(t *testing.T) {
	router, svc := setupTestHandler()
	svc.On("Snapshot", mock.Anything).Return(testSnapshot(), nil)
	svc.On("Analysis", mock.Anything).Return(testAnalysis(), nil)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "health", method: "GET", path: "/api/health", expectedStatus: http.StatusOK},
		{name: "current data", method: "GET", path: "/api/data/current", expectedStatus: http.StatusOK},
		{name: "latest analysis", method: "GET", path: "/api/analysis/latest", expectedStatus: http.StatusOK},
		{name: "repositories", method: "GET", path: "/api/repositories", expectedStatus: http.StatusOK},
		{name: "anomalies", method: "GET", path: "/api/anomalies", expectedStatus: http.StatusOK},
		{name: "predictions", method: "GET", path: "/api/predictions", expectedStatus: http.StatusOK},
		{name: "transfers", method: "GET", path: "/api/transfers", expectedStatus: http.StatusOK},
		{name: "organization activity", method: "GET", path: "/api/organizations/google/activity", expectedStatus: http.StatusOK},
		{name: "login is POST only", method: "GET", path: "/api/auth/login", expectedStatus: http.StatusNotFound},
		{name: "refresh is POST only", method: "GET", path: "/api/refresh", expectedStatus: http.StatusNotFound},
		{name: "unknown route", method: "GET", path: "/api/v1/repositories", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestMiddlewareSetup(t *testing.T) {
	router, _ := setupTestHandler()
	origin := http.Header{"Origin": []string{"https://dashboard.example.org"}}

	w := doRequest(router, "GET", "/api/health", origin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Cache-Status", w.Header().Get("Access-Control-Expose-Headers"))

	preflight := http.Header{
		"Origin":                         []string{"https://dashboard.example.org"},
		"Access-Control-Request-Method":  []string{"POST"},
		"Access-Control-Request-Headers": []string{"Authorization"},
	}
	w = doRequest(router, "OPTIONS", "/api/refresh", preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type,Authorization", w.Header().Get("Access-Control-Allow-Headers"))
}
