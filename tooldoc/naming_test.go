package tooldoc

import "testing"

func TestToolID(t *testing.T) {
	id := ToolID("Demo")
	if len(id) != 12 {
		t.Fatalf("len(ToolID) = %d, want 12", len(id))
	}
	if id != ToolID("Demo") {
		t.Fatalf("ToolID is not stable")
	}
	if id == ToolID("demo") {
		t.Fatalf("ToolID must be case sensitive")
	}
	if got := ToolID(""); got != "d41d8cd98f00" {
		t.Fatalf("ToolID(\"\") = %q, want d41d8cd98f00", got)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Demo", "demo"},
		{"OpenWeather Map-API", "open_weather_map_api"},
		{"HTTPServer", "http_server"},
		{"getUserByID", "get_user_by_id"},
		{"  Petstore  ", "petstore"},
		{"api.example.com", "api_example_com"},
		{"127.0.0.1:8080", "127_0_0_1_8080"},
		{"天气", "天气"},
		{"Météo API", "météo_api"},
	}
	for _, tt := range tests {
		if got := SnakeCase(tt.in); got != tt.want {
			t.Fatalf("SnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToolName(t *testing.T) {
	if got := ToolName("天气 Service"); got != "天气_service" {
		t.Fatalf("ToolName() = %q, want %q", got, "天气_service")
	}
	if got, want := ToolName("!!!"), "tool_"+ToolID("!!!"); got != want {
		t.Fatalf("ToolName(%q) = %q, want %q", "!!!", got, want)
	}
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Demo Widgets", "demowidgets"},
		{"2fa service", "api2faservice"},
		{"", "tool" + ToolID("")},
	}
	for _, tt := range tests {
		if got := packageName(tt.in); got != tt.want {
			t.Fatalf("packageName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"open weather", "OpenWeather"},
		{"stripe-api_v2", "StripeApiV2"},
		{"api.example.com", "ApiExampleCom"},
		{"", "API"},
		{"2fa service", "API2faService"},
	}
	for _, tt := range tests {
		if got := ClassName(tt.in); got != tt.want {
			t.Fatalf("ClassName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOperationName(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{"GET", "/", "GetRoot"},
		{"GET", "/widgets", "GetWidgets"},
		{"DELETE", "/widgets/{id}", "DeleteWidgetsID"},
		{"POST", "/users/{userId}/identity", "PostUsersUserIdIdentity"},
	}
	for _, tt := range tests {
		if got := operationName(tt.method, tt.path); got != tt.want {
			t.Fatalf("operationName(%s, %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}
