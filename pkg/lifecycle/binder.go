// Package lifecycle ties a navigable view's activation to an external
// subscription: subscribed while the view is displayed, unsubscribed otherwise.
package lifecycle

import (
	"context"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/navigation"
)

// Subscription is a stateful channel opened while a view is active.
// Subscribe on an active subscription and Unsubscribe on an inactive one
// must both succeed without side effects.
type Subscription interface {
	Subscribe(ctx context.Context) error
	Unsubscribe(ctx context.Context) error
}

// Binder forwards view enter/exit to a Subscription. It keeps no state of
// its own and returns the subscription's errors unchanged.
type Binder struct {
	sub Subscription
}

// NewBinder creates a binder for sub
func NewBinder(sub Subscription) *Binder {
	core.FailFastIf(sub == nil, "subscription cannot be nil")
	return &Binder{sub: sub}
}

// OnViewEnter opens the subscription
func (b *Binder) OnViewEnter(ctx context.Context) error {
	return b.sub.Subscribe(ctx)
}

// OnViewExit closes the subscription
func (b *Binder) OnViewExit(ctx context.Context) error {
	return b.sub.Unsubscribe(ctx)
}

// Hooks adapts the binder to navigation state hooks
func (b *Binder) Hooks() navigation.Hooks {
	return navigation.Hooks{
		OnEnter: func(ctx context.Context, _ *navigation.Transition) error {
			return b.OnViewEnter(ctx)
		},
		OnExit: func(ctx context.Context, _ *navigation.Transition) error {
			return b.OnViewExit(ctx)
		},
	}
}
