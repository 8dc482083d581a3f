package model

import (
	"errors"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/api/", "https://example.com/api"},
		{"https://example.com//", "https://example.com"},
		{"  https://example.com ", "https://example.com"},
		{"https://example.com/api", "https://example.com/api"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAPIURL(t *testing.T) {
	got, parsed, err := ParseAPIURL("https://example.com/api/")
	if err != nil {
		t.Fatalf("ParseAPIURL error = %v", err)
	}
	if got != "https://example.com/api" {
		t.Errorf("normalized = %q", got)
	}
	if parsed.Host != "example.com" {
		t.Errorf("host = %q, want example.com", parsed.Host)
	}

	for _, bad := range []string{"", "/", "ftp://example.com", "example.com/api", "https://"} {
		if _, _, err := ParseAPIURL(bad); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ParseAPIURL(%q) error = %v, want ErrInvalidURL", bad, err)
		}
	}
}

func TestDocumentID(t *testing.T) {
	if got := DocumentID("https://api.example.com/v1/"); got != "https___api_example_com_v1" {
		t.Errorf("DocumentID = %q", got)
	}
}

func TestStatus_PermitsGeneration(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusComplete, true},
		{StatusPartial, true},
		{StatusFailed, false},
		{Status("bogus"), false},
	}
	for _, tt := range tests {
		if got := tt.status.PermitsGeneration(); got != tt.want {
			t.Errorf("%q.PermitsGeneration() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDiscoveryRecord_Validate(t *testing.T) {
	rec := DiscoveryRecord{APIURL: "https://example.com", Status: StatusComplete}
	rec.SetEndpoints([]Endpoint{{Path: "/", Method: "GET"}})
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate error = %v", err)
	}

	rec.TotalEndpoints = 3
	if err := rec.Validate(); !errors.Is(err, ErrEndpointCount) {
		t.Errorf("Validate error = %v, want ErrEndpointCount", err)
	}

	rec.SetEndpoints([]Endpoint{{Path: "/", Method: "HEAD"}})
	if err := rec.Validate(); !errors.Is(err, ErrInvalidMethod) {
		t.Errorf("Validate error = %v, want ErrInvalidMethod", err)
	}

	failed := DiscoveryRecord{APIURL: "https://example.com", Status: StatusFailed}
	if err := failed.Validate(); !errors.Is(err, ErrMissingErrorDetail) {
		t.Errorf("Validate error = %v, want ErrMissingErrorDetail", err)
	}

	bogus := DiscoveryRecord{APIURL: "https://example.com", Status: "done"}
	if err := bogus.Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Validate error = %v, want ErrInvalidStatus", err)
	}
}

func TestToolRecord_Searchable(t *testing.T) {
	if (ToolRecord{}).Searchable() {
		t.Error("tool without embedding should not be searchable")
	}
	if !(ToolRecord{DescriptionEmbedding: []float32{0.1}}).Searchable() {
		t.Error("tool with embedding should be searchable")
	}
}
