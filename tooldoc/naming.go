package tooldoc

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

var (
	camelBoundary = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	lowerUpper    = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nonWord       = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// ToolID derives the stable tool identifier from an API name.
func ToolID(apiName string) string {
	sum := md5.Sum([]byte(apiName))
	return hex.EncodeToString(sum[:])[:12]
}

// SnakeCase converts an API name such as "OpenWeather Map-API" into
// "open_weather_map_api".
func SnakeCase(name string) string {
	s := camelBoundary.ReplaceAllString(name, "${1}_${2}")
	s = lowerUpper.ReplaceAllString(s, "${1}_${2}")
	s = nonWord.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}

// ToolName is the snake_case tool name of an API. Names with no letters
// or digits fall back to "tool_" plus the tool id.
func ToolName(apiName string) string {
	if name := SnakeCase(apiName); name != "" {
		return name
	}
	return "tool_" + ToolID(apiName)
}

// ClassName converts an API name into an exported Go identifier.
func ClassName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	out := b.String()
	if out == "" {
		return "API"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "API" + out
	}
	return out
}

// operationName names a client method after an endpoint, such as
// GetWidgetsID for GET /widgets/{id}.
func operationName(method, path string) string {
	var b strings.Builder
	b.WriteString(ClassName(strings.ToLower(method)))
	words := strings.FieldsFunc(path, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		b.WriteString("Root")
	}
	for _, w := range words {
		if strings.EqualFold(w, "id") {
			b.WriteString("ID")
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
