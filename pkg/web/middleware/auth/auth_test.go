package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/fluxorio/mtp/pkg/web"
	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret-key-that-is-long-enough"

func newRequest(header, query string) (*fasthttp.RequestCtx, *web.FastRequestContext) {
	var req fasthttp.Request
	req.Header.SetMethod("GET")
	req.SetRequestURI("/api/states" + query)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rc := &fasthttp.RequestCtx{}
	rc.Init(&req, nil, nil)
	return rc, web.NewFastRequestContext(rc, nil)
}

func TestTokenService_IssueParse(t *testing.T) {
	s := NewTokenService(secret, "mtp", time.Hour)
	token, err := s.Issue(&Principal{Login: "admin", Roles: []string{"ROLE_ADMIN", "ROLE_USER"}})
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if p.Login != "admin" || !p.HasAllRoles("ROLE_ADMIN", "ROLE_USER") {
		t.Errorf("principal = %+v", p)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	s := NewTokenService(secret, "mtp", time.Hour)

	if _, err := s.Parse(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty: %v", err)
	}

	other := NewTokenService("another-secret-of-sufficient-size!", "mtp", time.Hour)
	forged, _ := other.Issue(&Principal{Login: "admin"})
	if _, err := s.Parse(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged: %v", err)
	}

	expired := NewTokenService(secret, "mtp", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _ := expired.Issue(&Principal{Login: "admin"})
	if _, err := s.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired: %v", err)
	}

	wrongIssuer, _ := NewTokenService(secret, "other", time.Hour).Issue(&Principal{Login: "admin"})
	if _, err := s.Parse(wrongIssuer); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("issuer: %v", err)
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "iss": "mtp",
		"exp": time.Now().Add(time.Hour).Unix()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := s.Parse(none); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none: %v", err)
	}

	if _, err := s.Issue(nil); err == nil {
		t.Error("Issue(nil) should fail")
	}
}

func TestJWTMiddleware(t *testing.T) {
	s := NewTokenService(secret, "mtp", time.Hour)
	token, _ := s.Issue(&Principal{Login: "user", Roles: []string{"ROLE_USER"}})

	var seen *Principal
	h := web.Chain(func(ctx *web.FastRequestContext) error {
		seen = PrincipalFrom(ctx)
		return ctx.Text(200, "ok")
	}, JWT(DefaultJWTConfig(s)))

	tests := []struct {
		name   string
		header string
		query  string
		status int
		login  string
	}{
		{"bearer header", "Bearer " + token, "", 200, "user"},
		{"query param", "", "?access_token=" + token, 200, "user"},
		{"missing", "", "", 401, ""},
		{"garbage", "Bearer not-a-token", "", 401, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			rc, ctx := newRequest(tt.header, tt.query)
			if err := h(ctx); err != nil {
				t.Fatal(err)
			}
			if rc.Response.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", rc.Response.StatusCode(), tt.status)
			}
			if tt.login != "" && (seen == nil || seen.Login != tt.login) {
				t.Errorf("principal = %+v", seen)
			}
		})
	}
}

func TestJWTMiddleware_Optional(t *testing.T) {
	s := NewTokenService(secret, "mtp", time.Hour)
	config := DefaultJWTConfig(s)
	config.Optional = true

	called := false
	h := web.Chain(func(ctx *web.FastRequestContext) error {
		called = true
		if PrincipalFrom(ctx) != nil {
			t.Error("anonymous request should carry no principal")
		}
		return nil
	}, JWT(config))

	_, ctx := newRequest("", "")
	if err := h(ctx); err != nil || !called {
		t.Fatalf("anonymous request rejected: %v", err)
	}

	called = false
	rc, ctx := newRequest("Bearer bad", "")
	_ = h(ctx)
	if called || rc.Response.StatusCode() != 401 {
		t.Error("invalid token should still be rejected")
	}
}

func TestRBAC(t *testing.T) {
	ok := func(ctx *web.FastRequestContext) error { return ctx.Text(200, "ok") }
	tests := []struct {
		name      string
		principal *Principal
		mw        web.FastMiddleware
		status    int
	}{
		{"anonymous", nil, RequireRole("ROLE_ADMIN"), 401},
		{"missing role", &Principal{Login: "u", Roles: []string{"ROLE_USER"}}, RequireRole("ROLE_ADMIN"), 403},
		{"has role", &Principal{Login: "a", Roles: []string{"ROLE_ADMIN"}}, RequireRole("ROLE_ADMIN"), 200},
		{"any", &Principal{Login: "u", Roles: []string{"ROLE_USER"}}, RequireAnyRole("ROLE_ADMIN", "ROLE_USER"), 200},
		{"all missing one", &Principal{Login: "u", Roles: []string{"ROLE_USER"}}, RequireAllRoles("ROLE_ADMIN", "ROLE_USER"), 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, ctx := newRequest("", "")
			if tt.principal != nil {
				ctx.Set(web.PrincipalKey, tt.principal)
			}
			if err := web.Chain(ok, tt.mw)(ctx); err != nil {
				t.Fatal(err)
			}
			if rc.Response.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", rc.Response.StatusCode(), tt.status)
			}
		})
	}
}

func TestAccounts_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	accounts := NewAccounts(Account{Login: "admin", PasswordHash: string(hash), Roles: []string{"ROLE_ADMIN"}})

	p, err := accounts.Authenticate("admin", "admin")
	if err != nil || !p.HasAnyRole("ROLE_ADMIN") {
		t.Fatalf("Authenticate = %+v, %v", p, err)
	}
	if _, err := accounts.Authenticate("admin", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := accounts.Authenticate("ghost", "admin"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown login: %v", err)
	}
}

func TestPrincipal_NilSafe(t *testing.T) {
	var p *Principal
	if p.HasAnyRole("ROLE_USER") {
		t.Error("nil principal has no roles")
	}
	if p.HasAllRoles("ROLE_USER") {
		t.Error("nil principal holds no role")
	}
}
