package tooldoc

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"github.com/lcgani/agent-nexus/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"quote":   strconv.Quote,
	"oneline": oneline,
	"cell": func(s string) string {
		return strings.ReplaceAll(oneline(s), "|", `\|`)
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

// Artifacts are the generated text blobs of a tool.
type Artifacts struct {
	Client    string
	MCPServer string
	Readme    string
}

type endpointView struct {
	Method   string
	Path     string
	Summary  string
	FuncName string
}

type templateData struct {
	Name        string
	ToolName    string
	ClassName   string
	PackageName string
	Description string
	Summary     string
	BaseURL     string
	AuthType    model.AuthType
	SourceURL   string
	SpecURL     string
	HasSpec     bool
	Status      model.Status
	Endpoints   []endpointView
}

func newTemplateData(rec model.DiscoveryRecord) templateData {
	name := apiName(rec)
	data := templateData{
		Name:        name,
		ToolName:    ToolName(name),
		ClassName:   ClassName(name),
		PackageName: packageName(name),
		Description: rec.APIDescription,
		Summary:     toolDescription(rec),
		BaseURL:     rec.BaseURL,
		AuthType:    rec.AuthType,
		SourceURL:   rec.APIURL,
		SpecURL:     rec.OpenAPISpecURL,
		HasSpec:     rec.HasOpenAPISpec,
		Status:      rec.Status,
	}
	if data.PackageName == "" || (data.PackageName[0] >= '0' && data.PackageName[0] <= '9') {
		data.PackageName = "api" + data.PackageName
	}
	if data.BaseURL == "" {
		data.BaseURL = rec.APIURL
	}

	seen := map[string]int{}
	for _, ep := range rec.Endpoints {
		fn := operationName(ep.Method, ep.Path)
		seen[fn]++
		if n := seen[fn]; n > 1 {
			fn = fmt.Sprintf("%s%d", fn, n)
		}
		summary := ep.Summary
		if summary == "" {
			summary = ep.Description
		}
		data.Endpoints = append(data.Endpoints, endpointView{
			Method:   ep.Method,
			Path:     ep.Path,
			Summary:  summary,
			FuncName: fn,
		})
	}
	return data
}

// Render produces the artifacts for a discovery record.
func Render(rec model.DiscoveryRecord) (Artifacts, error) {
	data := newTemplateData(rec)
	var out Artifacts
	for _, t := range []struct {
		name string
		dst  *string
	}{
		{"client.go.tmpl", &out.Client},
		{"mcp_server.go.tmpl", &out.MCPServer},
		{"README.md.tmpl", &out.Readme},
	} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, t.name, data); err != nil {
			return Artifacts{}, fmt.Errorf("render %s: %w", t.name, err)
		}
		*t.dst = buf.String()
	}
	return out, nil
}

func oneline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// packageName is the tool name without underscores, prefixed when it
// would start with a digit.
func packageName(apiName string) string {
	pkg := strings.ReplaceAll(ToolName(apiName), "_", "")
	if r, _ := utf8.DecodeRuneInString(pkg); unicode.IsDigit(r) {
		pkg = "api" + pkg
	}
	return pkg
}
