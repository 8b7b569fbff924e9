// Package views declares the navigable states of the gateway webapp.
package views

import (
	"context"

	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/lifecycle"
	"github.com/fluxorio/mtp/pkg/navigation"
	"github.com/fluxorio/mtp/pkg/transactions"
)

// HomeStateName is the landing view
const HomeStateName = "home"

// HomeState is the public landing view
func HomeState() navigation.State {
	return navigation.State{
		Name:      HomeStateName,
		URL:       "/",
		PageTitle: "global.title",
		Views: map[string]navigation.View{
			"content@": {
				TemplateURL: "scripts/app/main/main.html",
				Controller:  "MainController",
			},
		},
	}
}

// NewRegistry builds the state tree for one client. transactionsSub backs
// the transactions-by-status view; loader may be nil.
func NewRegistry(transactionsSub lifecycle.Subscription, loader *i18n.Loader) (*navigation.Registry, error) {
	reg := navigation.NewRegistry()
	var resolvers []navigation.Resolver
	if loader != nil {
		resolvers = append(resolvers, loader.Resolver("global"))
	}
	if err := reg.Register(HomeState(), resolvers, navigation.Hooks{}); err != nil {
		return nil, err
	}
	if err := transactions.RegisterEntityState(reg); err != nil {
		return nil, err
	}
	if err := transactions.RegisterState(reg, transactionsSub, loader); err != nil {
		return nil, err
	}
	return reg, nil
}

// Catalog is the state tree without live subscriptions, for listing
// descriptors
func Catalog() *navigation.Registry {
	reg, err := NewRegistry(nopSubscription{}, nil)
	if err != nil {
		panic(err)
	}
	return reg
}

type nopSubscription struct{}

func (nopSubscription) Subscribe(context.Context) error   { return nil }
func (nopSubscription) Unsubscribe(context.Context) error { return nil }
