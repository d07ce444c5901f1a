package oauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// UserContextKey is the router locals key holding the authenticated
	// user id (default: "user_id").
	UserContextKey string

	// UserIDResolver overrides how the user id is read from a request.
	UserIDResolver func(ctx router.Context) string

	// SuccessRedirect is where the browser lands after a connect
	// (default: "/settings/accounts").
	SuccessRedirect string

	// ErrorRedirect is where the browser lands when a connect fails
	// (default: "/settings/accounts").
	ErrorRedirect string
}

// HTTPController exposes connect, callback, refresh and disconnect.
type HTTPController struct {
	manager *Manager
	config  HTTPConfig
	logger  Logger
}

// NewHTTPController creates the controller.
func NewHTTPController(manager *Manager, cfg HTTPConfig) *HTTPController {
	if cfg.UserContextKey == "" {
		cfg.UserContextKey = "user_id"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/settings/accounts"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/settings/accounts"
	}

	return &HTTPController{
		manager: manager,
		config:  cfg,
		logger:  manager.logger,
	}
}

// RegisterRoutes registers the OAuth routes, typically under /api/oauth.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/:platform/callback", c.Callback)
	group.Post("/:platform/refresh", c.Refresh)
	group.Delete("/:platform", c.Disconnect)
	group.Get("/:platform", c.Connect)
}

// Connect starts the flow and redirects to the platform consent page.
func (c *HTTPController) Connect(ctx router.Context) error {
	userID := c.userID(ctx)
	if userID == "" {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	o, err := c.orchestrator(ctx)
	if err != nil {
		return c.redirectError(ctx, "", err)
	}

	authURL, err := o.InitiateOAuth(ctx.Context(), userID)
	if err != nil {
		return c.redirectError(ctx, o.Platform(), err)
	}

	return ctx.Redirect(authURL, http.StatusTemporaryRedirect)
}

// Callback completes the flow. Both outcomes redirect back to the app.
func (c *HTTPController) Callback(ctx router.Context) error {
	o, err := c.orchestrator(ctx)
	if err != nil {
		return c.redirectError(ctx, "", err)
	}
	platform := o.Platform()

	if errCode := ctx.Query("error"); errCode != "" {
		c.logger.Info("oauth consent declined", "platform", platform, "error", errCode)
		target := appendQueryParam(c.config.ErrorRedirect, "error", "access_denied")
		target = appendQueryParam(target, "platform", platform.Slug())
		return ctx.Redirect(target, http.StatusTemporaryRedirect)
	}

	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		target := appendQueryParam(c.config.ErrorRedirect, "error", "missing_params")
		target = appendQueryParam(target, "platform", platform.Slug())
		return ctx.Redirect(target, http.StatusTemporaryRedirect)
	}

	if _, err := o.HandleCallback(ctx.Context(), code, state); err != nil {
		return c.redirectError(ctx, platform, err)
	}

	target := appendQueryParam(c.config.SuccessRedirect, "connected", platform.Slug())
	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

// Refresh renews the caller's tokens for a platform.
func (c *HTTPController) Refresh(ctx router.Context) error {
	userID := c.userID(ctx)
	if userID == "" {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	o, err := c.orchestrator(ctx)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	account, err := o.RefreshAccount(ctx.Context(), userID)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

// Disconnect revokes and clears the caller's tokens for a platform.
func (c *HTTPController) Disconnect(ctx router.Context) error {
	userID := c.userID(ctx)
	if userID == "" {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	o, err := c.orchestrator(ctx)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	account, err := o.Disconnect(ctx.Context(), userID)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"account": account,
	})
}

func (c *HTTPController) orchestrator(ctx router.Context) (*Orchestrator, error) {
	platform, err := ParsePlatform(ctx.Param("platform"))
	if err != nil {
		return nil, err
	}
	return c.manager.Orchestrator(platform)
}

func (c *HTTPController) userID(ctx router.Context) string {
	if c.config.UserIDResolver != nil {
		return c.config.UserIDResolver(ctx)
	}
	switch v := ctx.Locals(c.config.UserContextKey).(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	}
	return ""
}

func (c *HTTPController) redirectError(ctx router.Context, platform Platform, err error) error {
	kind := KindOf(err)
	if kind == KindUnknown {
		kind = "connection_failed"
	}

	target := appendQueryParam(c.config.ErrorRedirect, "error", string(kind))
	if platform != "" {
		target = appendQueryParam(target, "platform", platform.Slug())
	}
	if kind == KindProfileUnavailable {
		target = appendQueryParam(target, "message", err.Error())
	}
	return ctx.Redirect(target, http.StatusTemporaryRedirect)
}

func (c *HTTPController) jsonError(ctx router.Context, err error) error {
	kind := KindOf(err)
	return ctx.JSON(statusForKind(kind), map[string]any{
		"error":   string(kind),
		"message": err.Error(),
		"reauth":  RequiresReauthentication(err),
	})
}

func statusForKind(kind ErrorKind) int {
	switch kind {
	case KindAccountNotFound, KindPlatformUnsupported:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	case KindRefreshUnsupported, KindRefreshFailed, KindDecryptionFailed, KindTokenExchangeFailed:
		return http.StatusUnauthorized
	case KindProfileUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
