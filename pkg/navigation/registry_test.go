package navigation

import (
	"errors"
	"testing"
)

type roles []string

func (r roles) HasAnyRole(want ...string) bool {
	for _, have := range r {
		for _, w := range want {
			if have == w {
				return true
			}
		}
	}
	return false
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(State{}, nil, Hooks{}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("empty name error = %v, want ErrInvalidState", err)
	}
	if err := reg.Register(State{Name: "child", Parent: "missing"}, nil, Hooks{}); !errors.Is(err, ErrUnknownParent) {
		t.Errorf("unknown parent error = %v, want ErrUnknownParent", err)
	}
	if err := reg.Register(State{Name: "entity", Abstract: true, Roles: []string{"ROLE_USER"}}, nil, Hooks{}); err != nil {
		t.Fatalf("Register(entity) error = %v", err)
	}
	if err := reg.Register(State{Name: "entity"}, nil, Hooks{}); !errors.Is(err, ErrDuplicateState) {
		t.Errorf("duplicate error = %v, want ErrDuplicateState", err)
	}
	if err := reg.Register(State{Name: "a", Parent: "entity", URL: "/a"}, nil, Hooks{}); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := reg.Register(State{Name: "b", URL: "/a"}, nil, Hooks{}); !errors.Is(err, ErrDuplicateURL) {
		t.Errorf("duplicate url error = %v, want ErrDuplicateURL", err)
	}
}

func TestRegistry_URLAndRoleInheritance(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, State{Name: "admin", Abstract: true, URL: "/admin", Roles: []string{"ROLE_ADMIN"}})
	mustRegister(t, reg, State{Name: "metrics", Parent: "admin", URL: "/metrics"})
	mustRegister(t, reg, State{Name: "audits", Parent: "admin", URL: "/audits", Roles: []string{"ROLE_AUDITOR"}})

	st, ok := reg.Match("/admin/metrics")
	if !ok || st.Name != "metrics" {
		t.Fatalf("Match(/admin/metrics) = %v, %v", st.Name, ok)
	}
	if _, ok := reg.Match("/admin"); ok {
		t.Error("abstract states must not be matched by url")
	}

	d, _ := reg.Describe("metrics")
	if d.FullURL != "/admin/metrics" {
		t.Errorf("FullURL = %q", d.FullURL)
	}
	if len(d.EffectiveRoles) != 1 || d.EffectiveRoles[0] != "ROLE_ADMIN" {
		t.Errorf("EffectiveRoles = %v, want inherited ROLE_ADMIN", d.EffectiveRoles)
	}

	visible := reg.Visible(roles{"ROLE_AUDITOR"})
	if len(visible) != 1 || visible[0].Name != "audits" {
		t.Errorf("Visible(auditor) = %v", visible)
	}
	if got := reg.Visible(nil); len(got) != 0 {
		t.Errorf("Visible(anonymous) = %v, want none", got)
	}
}

func TestRegistry_StateIsCopied(t *testing.T) {
	reg := NewRegistry()
	in := State{Name: "x", URL: "/x", Roles: []string{"ROLE_USER"}, Views: map[string]View{"content@": {TemplateURL: "x.html"}}}
	mustRegister(t, reg, in)

	in.Roles[0] = "ROLE_HACKED"
	in.Views["content@"] = View{TemplateURL: "evil.html"}

	st, _ := reg.State("x")
	if st.Roles[0] != "ROLE_USER" || st.Views["content@"].TemplateURL != "x.html" {
		t.Errorf("registered state was mutated through the caller's copy: %+v", st)
	}
}

func mustRegister(t *testing.T, reg *Registry, s State) {
	t.Helper()
	if err := reg.Register(s, nil, Hooks{}); err != nil {
		t.Fatalf("Register(%s) error = %v", s.Name, err)
	}
}
