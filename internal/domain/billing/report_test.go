package billing

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReport_ClientError(t *testing.T) {
	ce := CheckoutError{
		Status:     401,
		StatusText: "Unauthorized",
		URL:        "https://api.creem.io/v1/checkouts",
		Timestamp:  "2026-03-01T12:00:00.000Z",
		RequestID:  "1-1700000000000",
		Response:   map[string]any{"message": "Invalid API key", "code": "AUTH_FAILED"},
		Message:    "Invalid API key",
		ErrorCode:  "AUTH_FAILED",
	}

	r := BuildReport(ce)

	assert.Equal(t, SeverityClient, r.Severity)
	assert.False(t, r.Retryable)
	assert.Equal(t, "Payment Error", r.Title)
	_, err := uuid.Parse(r.ReportID)
	assert.NoError(t, err)

	var copied map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Copyable), &copied))
	assert.Equal(t, "AUTH_FAILED", copied["errorCode"])
	assert.Equal(t, float64(401), copied["status"])
	assert.Equal(t, "1-1700000000000", copied["requestId"])
	assert.Contains(t, r.Copyable, "\n  ")
}

func TestBuildReport_NetworkErrorIsServerSide(t *testing.T) {
	r := BuildReport(CheckoutError{Status: 0, ErrorCode: CodeNetworkError, Message: "dial tcp: connection refused"})
	assert.Equal(t, SeverityServer, r.Severity)
	assert.True(t, r.Retryable)
}

func TestBuildReport_UnmarshalableResponse(t *testing.T) {
	r := BuildReport(CheckoutError{Status: 500, Message: "boom", Response: func() {}})
	assert.Contains(t, r.Copyable, `"message": "boom"`)
	assert.Nil(t, r.Bundle.Response)
}

func TestSeverity(t *testing.T) {
	cases := map[int]string{
		0:   SeverityServer,
		200: SeverityServer,
		400: SeverityClient,
		404: SeverityClient,
		499: SeverityClient,
		500: SeverityServer,
		503: SeverityServer,
	}
	for status, want := range cases {
		assert.Equal(t, want, Severity(status), "status %d", status)
	}
}

func TestReportFromError(t *testing.T) {
	_, ok := ReportFromError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = ReportFromError(nil)
	assert.False(t, ok)

	r, ok := ReportFromError(&MalformedResponseError{Details: CheckoutError{Status: 200, ErrorCode: CodeMalformedResponse, Message: "missing checkout_url"}})
	require.True(t, ok)
	assert.Equal(t, CodeMalformedResponse, r.Bundle.ErrorCode)
	assert.Equal(t, SeverityServer, r.Severity)
}
