package billing

import (
	"encoding/json"

	"github.com/google/uuid"
)

const (
	SeverityClient = "client"
	SeverityServer = "server"
)

// ReportBundle is the copy-to-clipboard diagnostic payload.
type ReportBundle struct {
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText,omitempty"`
	URL        string `json:"url,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	ErrorCode  string `json:"errorCode,omitempty"`
	Response   any    `json:"response"`
}

type DisplayReport struct {
	ReportID  string       `json:"report_id"`
	Title     string       `json:"title"`
	Severity  string       `json:"severity"`
	Retryable bool         `json:"retryable"`
	Bundle    ReportBundle `json:"bundle"`
	Copyable  string       `json:"copyable"`
}

// BuildReport turns a normalized checkout failure into what the UI shows.
func BuildReport(ce CheckoutError) DisplayReport {
	bundle := ReportBundle{
		Timestamp:  ce.Timestamp,
		Message:    ce.Message,
		Status:     ce.Status,
		StatusText: ce.StatusText,
		URL:        ce.URL,
		RequestID:  ce.RequestID,
		ErrorCode:  ce.ErrorCode,
		Response:   ce.Response,
	}

	copyable, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		bundle.Response = nil
		copyable, _ = json.MarshalIndent(bundle, "", "  ")
	}

	severity := Severity(ce.Status)
	return DisplayReport{
		ReportID:  uuid.NewString(),
		Title:     "Payment Error",
		Severity:  severity,
		Retryable: severity == SeverityServer,
		Bundle:    bundle,
		Copyable:  string(copyable),
	}
}

// Severity is "client" for 4xx and "server" for 5xx, 0 and everything else.
func Severity(status int) string {
	if status >= 400 && status < 500 {
		return SeverityClient
	}
	return SeverityServer
}

// ReportFromError builds a report for any gateway failure.
func ReportFromError(err error) (DisplayReport, bool) {
	if err == nil {
		return DisplayReport{}, false
	}
	if ce, ok := AsCheckoutError(err); ok {
		return BuildReport(ce), true
	}
	return DisplayReport{}, false
}
