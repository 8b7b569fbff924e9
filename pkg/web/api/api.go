// Package api mounts the gateway REST endpoints on a FastRouter.
package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/navigation"
	metrics "github.com/fluxorio/mtp/pkg/observability/prometheus"
	"github.com/fluxorio/mtp/pkg/transactions"
	"github.com/fluxorio/mtp/pkg/web"
	"github.com/fluxorio/mtp/pkg/web/health"
	"github.com/fluxorio/mtp/pkg/web/middleware/auth"
)

// Options wires the handlers to their dependencies. Health and Metrics
// are optional.
type Options struct {
	States   *navigation.Registry
	Store    transactions.Store
	Accounts *auth.Accounts
	Tokens   *auth.TokenService
	Catalog  *i18n.Catalog
	Health   *health.Aggregator
	Metrics  *metrics.Metrics
	Logger   core.Logger
	Now      func() time.Time
}

type handlers struct {
	opts   Options
	logger core.Logger
}

// Mount registers the API routes
func Mount(router *web.FastRouter, opts Options) {
	core.FailFastIf(opts.States == nil, "state registry cannot be nil")
	core.FailFastIf(opts.Store == nil, "store cannot be nil")
	core.FailFastIf(opts.Accounts == nil || opts.Tokens == nil, "accounts and tokens are required")
	core.FailFastIf(opts.Catalog == nil, "i18n catalog cannot be nil")
	if opts.Logger == nil {
		opts.Logger = core.NewDefaultLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handlers{opts: opts, logger: opts.Logger.WithFields(map[string]interface{}{"component": "api"})}

	optional := auth.DefaultJWTConfig(opts.Tokens)
	optional.Optional = true
	required := auth.DefaultJWTConfig(opts.Tokens)

	router.POSTFast("/api/authenticate", h.authenticate)
	router.GETFast("/api/account", h.account, auth.JWT(required))
	router.GETFast("/api/states", h.states, auth.JWT(optional))
	router.GETFast("/api/transactions-by-status", h.transactionsByStatus,
		auth.JWT(required), auth.RequireRole(transactions.RoleAdmin))
	router.GETFast("/i18n/:lang/:part", h.translations)

	if opts.Health != nil {
		router.GETFast("/health", opts.Health.HandleHealth)
	}
	if opts.Metrics != nil {
		router.GETFast("/metrics", opts.Metrics.FastHTTPHandler())
	}
}

// LoginRequest is the body of POST /api/authenticate
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// TokenResponse carries an issued token
type TokenResponse struct {
	IDToken string `json:"id_token"`
}

func (h *handlers) authenticate(ctx *web.FastRequestContext) error {
	var req LoginRequest
	if err := ctx.BindJSON(&req); err != nil {
		return ctx.Fail(400, "BAD_REQUEST", err.Error())
	}
	if req.Login == "" {
		return ctx.Fail(400, "BAD_REQUEST", "login is required")
	}

	p, err := h.opts.Accounts.Authenticate(req.Login, req.Password)
	if err != nil {
		h.logger.WithContext(ctx.Context()).Info(fmt.Sprintf("authentication failed for %q", req.Login))
		return ctx.Fail(401, "UNAUTHORIZED", auth.ErrBadCredentials.Error())
	}
	token, err := h.opts.Tokens.Issue(p)
	if err != nil {
		return err
	}
	ctx.RequestCtx.Response.Header.Set("Authorization", "Bearer "+token)
	return ctx.JSON(200, TokenResponse{IDToken: token})
}

func (h *handlers) account(ctx *web.FastRequestContext) error {
	return ctx.JSON(200, auth.PrincipalFrom(ctx))
}

func (h *handlers) states(ctx *web.FastRequestContext) error {
	var p navigation.Principal
	if principal := auth.PrincipalFrom(ctx); principal != nil {
		p = principal
	}
	return ctx.JSON(200, h.opts.States.Visible(p))
}

func (h *handlers) transactionsByStatus(ctx *web.FastRequestContext) error {
	counts, err := h.opts.Store.CountByStatus(ctx.Context())
	if err != nil {
		h.logger.WithContext(ctx.Context()).Error(fmt.Sprintf("count transactions by status: %v", err))
		return ctx.Fail(503, "STORE_UNAVAILABLE", "transaction store unavailable")
	}
	return ctx.JSON(200, transactions.NewSnapshot(counts, h.opts.Now().UTC()))
}

func (h *handlers) translations(ctx *web.FastRequestContext) error {
	part, ok := strings.CutSuffix(ctx.Param("part"), ".json")
	if !ok {
		return ctx.Fail(404, "NOT_FOUND", "translation parts are .json files")
	}
	data, err := h.opts.Catalog.Raw(ctx.Param("lang"), part)
	switch {
	case errors.Is(err, i18n.ErrInvalidName):
		return ctx.Fail(400, "BAD_REQUEST", err.Error())
	case errors.Is(err, i18n.ErrPartNotFound):
		return ctx.Fail(404, "NOT_FOUND", err.Error())
	case err != nil:
		return err
	}
	ctx.RequestCtx.SetStatusCode(200)
	ctx.RequestCtx.SetContentType("application/json; charset=utf-8")
	ctx.RequestCtx.SetBody(data)
	return nil
}
