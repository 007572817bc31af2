package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestMiddlewareInjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handler ran")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	out := buf.String()
	if !strings.Contains(out, "handler ran") {
		t.Fatalf("log output missing handler line: %q", out)
	}
	if !strings.Contains(out, FieldComponent+"="+ComponentApp) {
		t.Errorf("log output missing component: %q", out)
	}
}

func TestComponentMiddlewareOverridesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	chain := Middleware(logger)(ComponentMiddleware(ComponentHTTP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("scoped line")
		})))
	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if out := buf.String(); !strings.Contains(out, FieldComponent+"="+ComponentHTTP) {
		t.Errorf("component not overridden: %q", out)
	}
}

func TestFromContextWithoutLogger(t *testing.T) {
	logger := FromContext(httptest.NewRequest(http.MethodGet, "/x", nil).Context())
	if logger == nil || logger.Component() != "unknown" {
		t.Errorf("fallback logger = %+v", logger)
	}
}

func TestStructuredLoggerHTTPEndSeverity(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success is info", 200, "level=INFO"},
		{"client error is warn", 404, "level=WARN"},
		{"server error is error", 500, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sl := NewStructuredLogger(newBufferLogger(&buf))
			r := httptest.NewRequest(http.MethodGet, "/works/w-1/report", nil)

			sl.LogHTTPEnd(r.Context(), r, "req_test", tt.status, 12, "10.0.0.1")

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("output %q missing %s", out, tt.wantLevel)
			}
			if !strings.Contains(out, FieldRequestID+"=req_test") {
				t.Errorf("output %q missing request id", out)
			}
		})
	}
}

func TestLogBudgetSaved(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))

	sl.LogBudgetSaved(httptest.NewRequest(http.MethodPost, "/x", nil).Context(), "work-1", 4, 562500)

	out := buf.String()
	for _, want := range []string{"Budget saved", FieldWorkID + "=work-1", FieldVersion + "=4", FieldAmountCents + "=562500"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
