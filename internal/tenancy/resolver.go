package tenancy

import (
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default evidence names.
const (
	DefaultHeaderName = "X-Tenant-ID"
	DefaultQueryParam = "tenantId"
)

// Source identifies where a tenant identifier was found.
type Source string

const (
	SourceContext Source = "context"
	SourceSession Source = "session"
	SourceHeader  Source = "header"
	SourceQuery   Source = "query"
	SourceNone    Source = "none"
)

// SessionTenantFunc returns the tenant attribute of the session attached to
// the request, or "" when there is none.
type SessionTenantFunc func(r *http.Request) string

// Option configures a Resolver.
type Option func(*Resolver)

// WithHeaderName overrides the tenant header name.
func WithHeaderName(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.headerName = name
		}
	}
}

// WithQueryParam overrides the tenant query parameter name.
func WithQueryParam(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.queryParam = name
		}
	}
}

// WithSessionSource sets the function used to read the session tenant.
func WithSessionSource(fn SessionTenantFunc) Option {
	return func(r *Resolver) { r.session = fn }
}

// WithObserver registers a callback invoked with the winning source on every
// Setup call. Used for metrics.
func WithObserver(fn func(Source)) Option {
	return func(r *Resolver) { r.observe = fn }
}

// Resolver picks a tenant identifier from request evidence in a fixed order:
// request context, session, header, query parameter. The first non-empty
// candidate wins and is lower-cased.
type Resolver struct {
	headerName string
	queryParam string
	session    SessionTenantFunc
	observe    func(Source)
}

// NewResolver creates a resolver with the default header and parameter names.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		headerName: DefaultHeaderName,
		queryParam: DefaultQueryParam,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the first tenant identifier found and its source.
// It never mutates the request context.
func (r *Resolver) Lookup(req *http.Request) (string, Source) {
	if tenantID, ok := Current(req.Context()); ok && strings.TrimSpace(tenantID) != "" {
		return Normalize(tenantID), SourceContext
	}

	if r.session != nil {
		if tenantID := strings.TrimSpace(r.session(req)); tenantID != "" {
			return Normalize(tenantID), SourceSession
		}
	}

	if tenantID := strings.TrimSpace(req.Header.Get(r.headerName)); tenantID != "" {
		return Normalize(tenantID), SourceHeader
	}

	if tenantID := strings.TrimSpace(req.URL.Query().Get(r.queryParam)); tenantID != "" {
		return Normalize(tenantID), SourceQuery
	}

	return "", SourceNone
}

// Resolve returns the resolved tenant without touching the context.
// When nothing resolves it returns ErrMissingTenant if failOnMissing is set,
// otherwise PublicTenant.
func (r *Resolver) Resolve(req *http.Request, failOnMissing bool) (string, error) {
	tenantID, _ := r.resolve(req, failOnMissing)
	if tenantID == "" {
		return "", ErrMissingTenant
	}
	return tenantID, nil
}

// Setup resolves the tenant and stores it in the request's slot.
// The request context must carry a slot (see NewContext).
func (r *Resolver) Setup(req *http.Request, failOnMissing bool) (string, error) {
	tenantID, source := r.resolve(req, failOnMissing)
	if r.observe != nil {
		r.observe(source)
	}
	if tenantID == "" {
		return "", ErrMissingTenant
	}

	slot := FromContext(req.Context())
	if slot == nil {
		return "", ErrNoSlot
	}
	slot.Set(tenantID)
	return tenantID, nil
}

func (r *Resolver) resolve(req *http.Request, failOnMissing bool) (string, Source) {
	tenantID, source := r.Lookup(req)
	if tenantID != "" {
		return tenantID, source
	}
	if failOnMissing {
		return "", SourceNone
	}
	return PublicTenant, SourceNone
}

// Normalize lower-cases a tenant identifier. Tenant identifiers are
// case-insensitive.
func Normalize(tenantID string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(tenantID))
}
