package authkit

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes are the mount points for the JSON auth endpoints.
type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Refresh  string
}

// AuthController exposes the authentication flows over HTTP.
type AuthController struct {
	Logger       Logger
	Auther       Authenticator
	Guard        *RouteGuard
	Routes       *AuthControllerRoutes
	ErrorHandler func(c router.Context, err error) error
}

// AuthControllerOption configures the controller.
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerAuther sets the Authenticator the controller drives.
func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerGuard sets the RouteGuard used for refresh/logout routes.
func WithControllerGuard(guard *RouteGuard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

// NewAuthController builds a controller with default routes.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: RenderError,
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Logout:   "/auth/logout",
			Register: "/auth/register",
			Refresh:  "/auth/refresh",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints. Refresh and logout sit
// behind the refresh-token verification middleware.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)
	refreshVerified := controller.Guard.RefreshVerified()

	app.Post(controller.Routes.Register, controller.Register).
		SetName("auth.register")

	app.Post(controller.Routes.Login, controller.Login).
		SetName("auth.login")

	app.Post(controller.Routes.Refresh, refreshVerified(controller.Refresh)).
		SetName("auth.refresh")

	app.Post(controller.Routes.Logout, refreshVerified(controller.Logout)).
		SetName("auth.logout")
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// RegisterRequest payload. The password bound caps hashing cost.
type RegisterRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 32),
		),
	)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badPayloadError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, badPayloadError(err))
	}

	pair, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password, requestMetadata(ctx))
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badPayloadError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, badPayloadError(err))
	}

	summary, err := a.Auther.Register(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("Register error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, summary)
}

func (a *AuthController) Refresh(ctx router.Context) error {
	session, ok := RefreshSessionFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated.Clone())
	}

	pair, err := a.Auther.Refresh(ctx.Context(), session.Claims.UserID(), session.Token, requestMetadata(ctx))
	if err != nil {
		a.Logger.Error("Refresh error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

func (a *AuthController) Logout(ctx router.Context) error {
	session, ok := RefreshSessionFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnauthenticated.Clone())
	}

	if err := a.Auther.Logout(ctx.Context(), session.Claims.UserID(), session.Token); err != nil {
		a.Logger.Error("Logout error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

func requestMetadata(ctx router.Context) RequestMetadata {
	return RequestMetadata{
		UserAgent: ctx.GetString("User-Agent", ""),
		IPAddress: ctx.GetString("X-Forwarded-For", ""),
	}
}

func badPayloadError(err error) error {
	return errors.Wrap(err, errors.CategoryValidation, "invalid request payload").
		WithTextCode(TextCodeBadRequest).
		WithCode(errors.CodeBadRequest)
}
