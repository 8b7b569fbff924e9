package transactions

import (
	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/lifecycle"
	"github.com/fluxorio/mtp/pkg/navigation"
)

// State names and roles
const (
	EntityStateName = "entity"
	StateName       = "transactions-by-status"

	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// TranslationParts are loaded before the view is entered
var TranslationParts = []string{"transactions-by-status", "global"}

// EntityState is the abstract parent of entity views
func EntityState() navigation.State {
	return navigation.State{
		Name:     EntityStateName,
		Abstract: true,
		Roles:    []string{RoleUser},
	}
}

// ViewState is the transactions-by-status view descriptor
func ViewState() navigation.State {
	return navigation.State{
		Name:      StateName,
		Parent:    EntityStateName,
		URL:       "/transactions-by-status",
		Roles:     []string{RoleAdmin},
		PageTitle: "mtp.transactions-by-status.home.title",
		Views: map[string]navigation.View{
			"content@": {
				TemplateURL: "scripts/app/entities/transactions-by-status/transactions-by-status.html",
				Controller:  "TransactionsByStatusController",
			},
		},
	}
}

// RegisterEntityState registers the abstract entity parent
func RegisterEntityState(reg *navigation.Registry) error {
	return reg.Register(EntityState(), nil, navigation.Hooks{})
}

// RegisterState registers the transactions-by-status view. Entering the
// view subscribes sub and leaving it unsubscribes. loader may be nil, in
// which case no translations are resolved.
func RegisterState(reg *navigation.Registry, sub lifecycle.Subscription, loader *i18n.Loader) error {
	var resolvers []navigation.Resolver
	if loader != nil {
		resolvers = append(resolvers, loader.Resolver(TranslationParts...))
	}
	return reg.Register(ViewState(), resolvers, lifecycle.NewBinder(sub).Hooks())
}
