package access

import (
	"context"
	"strings"
	"sync"
	"time"

	"callinsights-backend/internal/shared/metrics"
	"callinsights-backend/internal/shared/telemetry"
)

// Principal is the session's view of who is using the dashboard.
type Principal struct {
	UserName  string `json:"name"`
	UserEmail string `json:"email"`
	Role      string `json:"role"`
}

// RoleLookup asks the remote service for the role bound to an email.
type RoleLookup interface {
	LookupRole(ctx context.Context, email, token string) (string, error)
}

// Resolver turns a held credential into a Principal. Failures never surface:
// they are logged and degrade to an empty role.
type Resolver struct {
	Roles   RoleLookup
	Cache   RoleCache
	Timeout time.Duration
}

// Resolve decodes token and looks up the role for its email.
func (r *Resolver) Resolve(ctx context.Context, token string) Principal {
	p, ok := r.identify(token)
	if !ok || p.UserEmail == "" {
		return p
	}
	p.Role = r.role(ctx, p.UserEmail, token)
	return p
}

func (r *Resolver) identify(token string) (Principal, bool) {
	if strings.TrimSpace(token) == "" {
		return Principal{}, false
	}
	id, err := DecodeToken(token)
	if err != nil {
		telemetry.Warn("access.decode_failed", map[string]any{
			"error": err.Error(),
		})
		return Principal{}, false
	}
	return Principal{UserName: id.Name, UserEmail: id.Email}, true
}

func (r *Resolver) role(ctx context.Context, email, token string) string {
	if r.Cache != nil {
		role, ok, err := r.Cache.Get(ctx, email)
		if err != nil {
			telemetry.Warn("access.role_cache_failed", map[string]any{"error": err.Error()})
		} else if ok {
			return role
		}
	}
	if r.Roles == nil {
		return ""
	}

	lookupCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	metrics.IncRoleLookup()
	role, err := r.Roles.LookupRole(lookupCtx, email, token)
	if err != nil {
		telemetry.Warn("access.role_lookup_failed", map[string]any{
			"error": err.Error(),
		})
		return ""
	}
	if r.Cache != nil {
		if err := r.Cache.Set(ctx, email, role); err != nil {
			telemetry.Warn("access.role_cache_failed", map[string]any{"error": err.Error()})
		}
	}
	return role
}

// Memo resolves a Principal for one dashboard session. The same token is decoded
// once, and each distinct email is looked up at most once, failures included.
type Memo struct {
	resolver *Resolver

	mu        sync.Mutex
	resolved  bool
	token     string
	principal Principal
	roles     map[string]string
}

func NewMemo(r *Resolver) *Memo {
	return &Memo{resolver: r, roles: make(map[string]string)}
}

func (m *Memo) Resolve(ctx context.Context, token string) Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved && m.token == token {
		return m.principal
	}

	p := Principal{}
	if m.resolver != nil {
		if id, ok := m.resolver.identify(token); ok {
			p = id
		}
	}
	if p.UserEmail != "" {
		key := cacheKey(p.UserEmail)
		role, seen := m.roles[key]
		if !seen {
			role = m.resolver.role(ctx, p.UserEmail, token)
			m.roles[key] = role
		}
		p.Role = role
	}

	m.resolved = true
	m.token = token
	m.principal = p
	return p
}
