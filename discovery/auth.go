package discovery

import (
	"strings"

	"github.com/lcgani/agent-nexus/model"
)

// SecurityScheme is the subset of a declared security scheme that drives
// auth classification.
type SecurityScheme struct {
	Name   string
	Type   string
	Scheme string
}

// ClassifyAuth maps declared security schemes to an auth type. Only the
// first scheme is considered. With no schemes, the presence of a
// top-level security requirement decides between none and unknown.
func ClassifyAuth(schemes []SecurityScheme, securityRequired bool) model.AuthType {
	if len(schemes) == 0 {
		if securityRequired {
			return model.AuthUnknown
		}
		return model.AuthNone
	}

	first := schemes[0]
	switch strings.ToLower(first.Type) {
	case "http":
		switch strings.ToLower(first.Scheme) {
		case "bearer":
			return model.AuthBearer
		case "basic":
			return model.AuthBasic
		}
		return model.AuthUnknown
	case "oauth2":
		return model.AuthOAuth2
	case "apikey":
		return model.AuthAPIKey
	}
	return model.AuthUnknown
}
