package hxssr

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsHTMX(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"with HX-Request true", "true", true},
		{"with HX-Request false", "false", false},
		{"without header", "", false},
		{"with other value", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Request", tt.header)
			}

			result := IsHTMX(req)
			if result != tt.expect {
				t.Errorf("IsHTMX() = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestIsBoosted(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"with HX-Boosted true", "true", true},
		{"with HX-Boosted false", "false", false},
		{"without header", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Boosted", tt.header)
			}

			result := IsBoosted(req)
			if result != tt.expect {
				t.Errorf("IsBoosted() = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestCurrentURL(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with URL", "http://example.com/page", "http://example.com/page"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Current-URL", tt.header)
			}

			result := CurrentURL(req)
			if result != tt.expect {
				t.Errorf("CurrentURL() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestTriggerName(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with name", "submit-button", "submit-button"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Trigger-Name", tt.header)
			}

			result := TriggerName(req)
			if result != tt.expect {
				t.Errorf("TriggerName() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestTriggerID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with ID", "btn-123", "btn-123"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Trigger", tt.header)
			}

			result := TriggerID(req)
			if result != tt.expect {
				t.Errorf("TriggerID() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestTargetID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect string
	}{
		{"with ID", "target-div", "target-div"},
		{"without header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Target", tt.header)
			}

			result := TargetID(req)
			if result != tt.expect {
				t.Errorf("TargetID() = %q, want %q", result, tt.expect)
			}
		})
	}
}

func TestIsHistoryRestore(t *testing.T) {
	tests := []struct {
		name   string
		header string
		expect bool
	}{
		{"restore request", "true", true},
		{"without header", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-History-Restore-Request", tt.header)
			}

			result := IsHistoryRestore(req)
			if result != tt.expect {
				t.Errorf("IsHistoryRestore() = %v, want %v", result, tt.expect)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Prompt", "rename to this")

	if got := Prompt(req); got != "rename to this" {
		t.Errorf("Prompt() = %q, want %q", got, "rename to this")
	}
}

func TestWriteComponent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	if err := WriteComponent(rec, req, Text("a < b")); err != nil {
		t.Fatalf("WriteComponent() error = %v", err)
	}
	if got := rec.Body.String(); got != "a &lt; b" {
		t.Errorf("body = %q, want %q", got, "a &lt; b")
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
}
