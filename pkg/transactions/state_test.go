package transactions

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/navigation"
)

type principal []string

func (p principal) HasAnyRole(roles ...string) bool {
	for _, have := range p {
		for _, r := range roles {
			if have == r {
				return true
			}
		}
	}
	return false
}

type countingSubscription struct {
	subscribed, unsubscribed int
}

func (c *countingSubscription) Subscribe(ctx context.Context) error {
	c.subscribed++
	return nil
}

func (c *countingSubscription) Unsubscribe(ctx context.Context) error {
	c.unsubscribed++
	return nil
}

func newRegistry(t *testing.T, sub *countingSubscription, loader *i18n.Loader) *navigation.Registry {
	t.Helper()
	reg := navigation.NewRegistry()
	if err := reg.Register(navigation.State{Name: "home", URL: "/"}, nil, navigation.Hooks{}); err != nil {
		t.Fatal(err)
	}
	if err := RegisterEntityState(reg); err != nil {
		t.Fatalf("RegisterEntityState() error = %v", err)
	}
	if err := RegisterState(reg, sub, loader); err != nil {
		t.Fatalf("RegisterState() error = %v", err)
	}
	return reg
}

func TestRegisterState_Descriptor(t *testing.T) {
	reg := newRegistry(t, &countingSubscription{}, nil)

	d, ok := reg.Describe(StateName)
	if !ok {
		t.Fatal("state not registered")
	}
	if d.FullURL != "/transactions-by-status" {
		t.Errorf("FullURL = %q", d.FullURL)
	}
	if d.Parent != "entity" || d.PageTitle != "mtp.transactions-by-status.home.title" {
		t.Errorf("descriptor = %+v", d.State)
	}
	view := d.Views["content@"]
	if view.Controller != "TransactionsByStatusController" ||
		view.TemplateURL != "scripts/app/entities/transactions-by-status/transactions-by-status.html" {
		t.Errorf("content@ view = %+v", view)
	}
	if len(d.EffectiveRoles) != 1 || d.EffectiveRoles[0] != RoleAdmin {
		t.Errorf("EffectiveRoles = %v", d.EffectiveRoles)
	}
}

func TestRegisterState_Lifecycle(t *testing.T) {
	catalog := i18n.NewCatalog(fstest.MapFS{
		"en/global.json":                 {Data: []byte(`{"global":{"title":"MTP"}}`)},
		"en/transactions-by-status.json": {Data: []byte(`{"mtp":{"transactions-by-status":{"home":{"title":"By status"}}}}`)},
	})
	loader := i18n.NewLoader(catalog, "en")
	sub := &countingSubscription{}
	session := navigation.NewSession(newRegistry(t, sub, loader), navigation.SessionOptions{})
	ctx := context.Background()
	admin := principal{RoleUser, RoleAdmin}

	if _, err := session.GoURL(ctx, "/transactions-by-status", principal{RoleUser}); !errors.Is(err, navigation.ErrForbidden) {
		t.Errorf("non-admin error = %v, want ErrForbidden", err)
	}

	if _, err := session.Go(ctx, StateName, admin); err != nil {
		t.Fatalf("Go() error = %v", err)
	}
	if sub.subscribed != 1 || sub.unsubscribed != 0 {
		t.Errorf("after enter: %d/%d", sub.subscribed, sub.unsubscribed)
	}
	if got := loader.Translate("mtp.transactions-by-status.home.title"); got != "By status" {
		t.Errorf("title = %q, want translations resolved before entering", got)
	}

	if _, err := session.Go(ctx, "home", admin); err != nil {
		t.Fatal(err)
	}
	if _, err := session.Go(ctx, StateName, admin); err != nil {
		t.Fatal(err)
	}
	if sub.subscribed != 2 || sub.unsubscribed != 1 {
		t.Errorf("enter/exit/enter: %d/%d, want 2/1", sub.subscribed, sub.unsubscribed)
	}

	if err := session.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if sub.subscribed != sub.unsubscribed {
		t.Errorf("after close: %d/%d", sub.subscribed, sub.unsubscribed)
	}
}

func TestRegisterState_MissingTranslationsBlockEntry(t *testing.T) {
	loader := i18n.NewLoader(i18n.NewCatalog(fstest.MapFS{}), "en")
	sub := &countingSubscription{}
	session := navigation.NewSession(newRegistry(t, sub, loader), navigation.SessionOptions{})

	_, err := session.Go(context.Background(), StateName, principal{RoleAdmin})
	if !errors.Is(err, i18n.ErrPartNotFound) {
		t.Fatalf("Go() error = %v, want ErrPartNotFound", err)
	}
	if sub.subscribed != 0 {
		t.Errorf("subscribed %d times, want 0", sub.subscribed)
	}
}
