package store

import (
	"net/url"
	"strings"

	"github.com/mlte-team/mlte-sub000/internal/domain"
)

type URIType string

const (
	URIMemory   URIType = "memory"
	URIFS       URIType = "fs"
	URIHTTP     URIType = "http"
	URIRelation URIType = "rdbms"
)

const uriDelimiter = "://"

var uriPrefixes = map[string]URIType{
	"memory":     URIMemory,
	"fs":         URIFS,
	"local":      URIFS,
	"http":       URIHTTP,
	"https":      URIHTTP,
	"sqlite":     URIRelation,
	"mysql":      URIRelation,
	"postgresql": URIRelation,
	"postgres":   URIRelation,
	"oracle":     URIRelation,
	"mssql":      URIRelation,
}

// URI is a parsed store location: <prefix>://<path>.
type URI struct {
	Raw    string
	Type   URIType
	Prefix string
	Path   string
}

// ParseURI requires exactly one "://" and a known prefix.
func ParseURI(raw string) (URI, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, uriDelimiter) != 1 {
		return URI{}, domain.BadRequest("invalid store uri %q: expected exactly one %q", raw, uriDelimiter)
	}
	prefix, path, _ := strings.Cut(raw, uriDelimiter)
	prefix = strings.ToLower(prefix)
	t, ok := uriPrefixes[prefix]
	if !ok {
		return URI{}, domain.BadRequest("unsupported store uri prefix %q", prefix)
	}
	return URI{Raw: raw, Type: t, Prefix: prefix, Path: path}, nil
}

func (u URI) String() string { return u.Raw }

// Redacted hides any password carried in the URI userinfo.
func (u URI) Redacted() string {
	parsed, err := url.Parse(u.Raw)
	if err != nil || parsed.User == nil {
		return u.Raw
	}
	return parsed.Redacted()
}
