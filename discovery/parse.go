package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lcgani/agent-nexus/model"
)

// ErrMalformedSpec marks a recognized specification whose structure
// cannot be read.
var ErrMalformedSpec = errors.New("malformed specification")

const defaultAPIName = "Unknown API"

// specReader walks a decoded specification. root, when present, is the
// same document parsed as a YAML node tree and supplies key order.
type specReader struct {
	data map[string]any
	root *yaml.Node
}

func newSpecReader(doc *specDocument) *specReader {
	r := &specReader{data: doc.Data}
	var node yaml.Node
	err := yaml.Unmarshal(doc.Raw, &node)
	if err != nil && bytes.ContainsRune(doc.Raw, '\t') {
		// JSON indented with tabs is not valid YAML; key order survives
		// the substitution.
		node = yaml.Node{}
		err = yaml.Unmarshal(bytes.ReplaceAll(doc.Raw, []byte("\t"), []byte(" ")), &node)
	}
	if err == nil && node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		r.root = node.Content[0]
	}
	return r
}

// parseSpec converts a recognized specification into a complete record.
// Any structural problem aborts extraction with ErrMalformedSpec.
func parseSpec(doc *specDocument, apiURL string) (model.DiscoveryRecord, error) {
	r := newSpecReader(doc)
	rec := model.DiscoveryRecord{
		APIURL:         apiURL,
		HasOpenAPISpec: true,
		OpenAPISpecURL: doc.URL,
		Status:         model.StatusComplete,
	}

	info, err := optionalMap(r.data, "info", "info")
	if err != nil {
		return rec, err
	}
	if rec.APIName, err = optionalString(info, "title", "info.title"); err != nil {
		return rec, err
	}
	if rec.APIName == "" {
		rec.APIName = defaultAPIName
	}
	if rec.APIDescription, err = optionalString(info, "description", "info.description"); err != nil {
		return rec, err
	}

	if _, swagger := r.data["swagger"]; swagger {
		rec.BaseURL, err = swaggerBaseURL(r.data, apiURL)
	} else {
		rec.BaseURL, err = serverBaseURL(r.data, apiURL)
	}
	if err != nil {
		return rec, err
	}

	endpoints, err := r.endpoints()
	if err != nil {
		return rec, err
	}
	rec.SetEndpoints(endpoints)

	schemes, err := r.securitySchemes()
	if err != nil {
		return rec, err
	}
	_, securityRequired := r.data["security"]
	rec.AuthType = ClassifyAuth(schemes, securityRequired)
	return rec, nil
}

func (r *specReader) endpoints() ([]model.Endpoint, error) {
	paths, err := optionalMap(r.data, "paths", "paths")
	if err != nil {
		return nil, err
	}

	endpoints := []model.Endpoint{}
	for _, path := range r.orderedKeys(paths, "paths") {
		item, ok := paths[path].(map[string]any)
		if !ok {
			return nil, malformed("paths."+path, "object", paths[path])
		}
		for _, method := range model.Methods {
			key := strings.ToLower(method)
			raw, present := item[key]
			if !present {
				continue
			}
			where := "paths." + path + "." + key
			op, ok := raw.(map[string]any)
			if !ok {
				return nil, malformed(where, "object", raw)
			}
			ep, err := endpointFromOperation(path, method, op, where)
			if err != nil {
				return nil, err
			}
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, nil
}

func endpointFromOperation(path, method string, op map[string]any, where string) (model.Endpoint, error) {
	ep := model.Endpoint{Path: path, Method: method}
	var err error
	if ep.Summary, err = optionalString(op, "summary", where+".summary"); err != nil {
		return ep, err
	}
	if ep.Description, err = optionalString(op, "description", where+".description"); err != nil {
		return ep, err
	}
	if raw, ok := op["parameters"]; ok && raw != nil {
		params, ok := raw.([]any)
		if !ok {
			return ep, malformed(where+".parameters", "array", raw)
		}
		ep.Parameters = params
	}
	ep.RequestBody = op["requestBody"]
	responses, err := optionalMap(op, "responses", where+".responses")
	if err != nil {
		return ep, err
	}
	ep.Responses = responses
	return ep, nil
}

// securitySchemes returns declared schemes in document order from
// components.securitySchemes (OpenAPI 3) or securityDefinitions (Swagger 2).
func (r *specReader) securitySchemes() ([]SecurityScheme, error) {
	var (
		defs    map[string]any
		path    []string
		err     error
		swagger bool
	)
	if _, ok := r.data["securityDefinitions"]; ok {
		swagger = true
		path = []string{"securityDefinitions"}
		defs, err = optionalMap(r.data, "securityDefinitions", "securityDefinitions")
	} else {
		path = []string{"components", "securitySchemes"}
		var components map[string]any
		components, err = optionalMap(r.data, "components", "components")
		if err == nil {
			defs, err = optionalMap(components, "securitySchemes", "components.securitySchemes")
		}
	}
	if err != nil {
		return nil, err
	}

	schemes := make([]SecurityScheme, 0, len(defs))
	for _, name := range r.orderedKeys(defs, path...) {
		where := strings.Join(path, ".") + "." + name
		def, ok := defs[name].(map[string]any)
		if !ok {
			return nil, malformed(where, "object", defs[name])
		}
		typ, err := optionalString(def, "type", where+".type")
		if err != nil {
			return nil, err
		}
		scheme, err := optionalString(def, "scheme", where+".scheme")
		if err != nil {
			return nil, err
		}
		if swagger && strings.EqualFold(typ, "basic") {
			// Swagger 2 spells HTTP basic as its own type.
			typ, scheme = "http", "basic"
		}
		schemes = append(schemes, SecurityScheme{Name: name, Type: typ, Scheme: scheme})
	}
	return schemes, nil
}

// orderedKeys returns the keys of m in document order when the YAML node
// tree agrees with m, and in sorted order otherwise.
func (r *specReader) orderedKeys(m map[string]any, path ...string) []string {
	if len(m) == 0 {
		return nil
	}
	if keys := nodeKeys(r.root, path); len(keys) == len(m) {
		matched := true
		for _, k := range keys {
			if _, ok := m[k]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return keys
		}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nodeKeys(node *yaml.Node, path []string) []string {
	for _, name := range path {
		node = mappingValue(node, name)
	}
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func serverBaseURL(data map[string]any, apiURL string) (string, error) {
	raw, ok := data["servers"]
	if !ok || raw == nil {
		return apiURL, nil
	}
	servers, ok := raw.([]any)
	if !ok {
		return "", malformed("servers", "array", raw)
	}
	if len(servers) == 0 {
		return apiURL, nil
	}
	first, ok := servers[0].(map[string]any)
	if !ok {
		return "", malformed("servers[0]", "object", servers[0])
	}
	u, ok := first["url"].(string)
	if !ok {
		return "", malformed("servers[0].url", "string", first["url"])
	}
	return resolveBase(apiURL, u), nil
}

func swaggerBaseURL(data map[string]any, apiURL string) (string, error) {
	host, err := optionalString(data, "host", "host")
	if err != nil {
		return "", err
	}
	basePath, err := optionalString(data, "basePath", "basePath")
	if err != nil {
		return "", err
	}
	if host == "" {
		return resolveBase(apiURL, basePath), nil
	}

	scheme := "https"
	if raw, ok := data["schemes"]; ok && raw != nil {
		schemes, ok := raw.([]any)
		if !ok {
			return "", malformed("schemes", "array", raw)
		}
		if len(schemes) > 0 {
			s, ok := schemes[0].(string)
			if !ok {
				return "", malformed("schemes[0]", "string", schemes[0])
			}
			scheme = s
		}
	}
	return scheme + "://" + host + strings.TrimRight(basePath, "/"), nil
}

// resolveBase resolves a possibly relative server URL against apiURL.
func resolveBase(apiURL, ref string) string {
	if ref == "" {
		return apiURL
	}
	refURL, err := url.Parse(ref)
	if err != nil || refURL.IsAbs() {
		return ref
	}
	base, err := url.Parse(apiURL + "/")
	if err != nil {
		return ref
	}
	return strings.TrimRight(base.ResolveReference(refURL).String(), "/")
}

func optionalMap(m map[string]any, key, where string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	v, ok := raw.(map[string]any)
	if !ok {
		return nil, malformed(where, "object", raw)
	}
	return v, nil
}

func optionalString(m map[string]any, key, where string) (string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", malformed(where, "string", raw)
	}
	return v, nil
}

func malformed(where, want string, got any) error {
	return fmt.Errorf("%w: %s: expected %s, got %T", ErrMalformedSpec, where, want, got)
}
