package discovery

import (
	"testing"

	"github.com/lcgani/agent-nexus/model"
)

func TestClassifyAuth(t *testing.T) {
	tests := []struct {
		name     string
		schemes  []SecurityScheme
		security bool
		want     model.AuthType
	}{
		{name: "no schemes no security", want: model.AuthNone},
		{name: "no schemes with security", security: true, want: model.AuthUnknown},
		{name: "http bearer", schemes: []SecurityScheme{{Type: "http", Scheme: "bearer"}}, want: model.AuthBearer},
		{name: "http bearer mixed case", schemes: []SecurityScheme{{Type: "HTTP", Scheme: "Bearer"}}, want: model.AuthBearer},
		{name: "http basic", schemes: []SecurityScheme{{Type: "http", Scheme: "basic"}}, want: model.AuthBasic},
		{name: "http digest", schemes: []SecurityScheme{{Type: "http", Scheme: "digest"}}, want: model.AuthUnknown},
		{name: "oauth2", schemes: []SecurityScheme{{Type: "oauth2"}}, want: model.AuthOAuth2},
		{name: "apiKey", schemes: []SecurityScheme{{Type: "apiKey"}}, want: model.AuthAPIKey},
		{name: "openIdConnect", schemes: []SecurityScheme{{Type: "openIdConnect"}}, want: model.AuthUnknown},
		{name: "bare basic type", schemes: []SecurityScheme{{Type: "basic"}}, want: model.AuthUnknown},
		{
			name:    "first scheme wins",
			schemes: []SecurityScheme{{Type: "apiKey"}, {Type: "http", Scheme: "bearer"}},
			want:    model.AuthAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyAuth(tt.schemes, tt.security); got != tt.want {
				t.Fatalf("ClassifyAuth() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSpec_AuthTable(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.AuthType
	}{
		{
			name: "none",
			body: `{"openapi":"3.0.0","paths":{}}`,
			want: model.AuthNone,
		},
		{
			name: "security without schemes",
			body: `{"openapi":"3.0.0","security":[{"key":[]}],"paths":{}}`,
			want: model.AuthUnknown,
		},
		{
			name: "bearer",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"b":{"type":"http","scheme":"bearer"}}}}`,
			want: model.AuthBearer,
		},
		{
			name: "basic",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"b":{"type":"http","scheme":"basic"}}}}`,
			want: model.AuthBasic,
		},
		{
			name: "http other",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"b":{"type":"http","scheme":"hoba"}}}}`,
			want: model.AuthUnknown,
		},
		{
			name: "oauth2",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"o":{"type":"oauth2","flows":{}}}}}`,
			want: model.AuthOAuth2,
		},
		{
			name: "api key",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"k":{"type":"apiKey","in":"header","name":"X-Key"}}}}`,
			want: model.AuthAPIKey,
		},
		{
			name: "other",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"m":{"type":"mutualTLS"}}}}`,
			want: model.AuthUnknown,
		},
		{
			name: "openapi3 basic type",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"s":{"type":"basic"}}},"paths":{}}`,
			want: model.AuthUnknown,
		},
		{
			name: "document order not alphabetical",
			body: `{"openapi":"3.0.0","components":{"securitySchemes":{"zeta":{"type":"oauth2"},"alpha":{"type":"apiKey"}}}}`,
			want: model.AuthOAuth2,
		},
		{
			name: "swagger definitions",
			body: `{"swagger":"2.0","securityDefinitions":{"b":{"type":"basic"}}}`,
			want: model.AuthBasic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustSpecDocument(t, tt.body)
			rec, err := parseSpec(doc, "https://example.com")
			if err != nil {
				t.Fatalf("parseSpec() error = %v", err)
			}
			if rec.AuthType != tt.want {
				t.Fatalf("AuthType = %q, want %q", rec.AuthType, tt.want)
			}
		})
	}
}

func mustSpecDocument(t *testing.T, body string) *specDocument {
	t.Helper()
	data, err := decodeSpec([]byte(body), "")
	if err != nil {
		t.Fatalf("decodeSpec() error = %v", err)
	}
	return &specDocument{URL: "https://example.com/openapi.json", Raw: []byte(body), Data: data}
}
