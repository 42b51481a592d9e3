package authkit

import (
	"fmt"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// UsersControllerRoutes are the mount points for the admin user endpoints.
type UsersControllerRoutes struct {
	List   string
	Show   string
	Update string
	Delete string
}

// UsersController exposes user administration over HTTP. Every route is
// admin-gated: the access token must verify and the principal must carry
// the admin role.
type UsersController struct {
	Logger       Logger
	Repo         RepositoryManager
	Guard        *RouteGuard
	Routes       *UsersControllerRoutes
	ErrorHandler func(c router.Context, err error) error
}

// UsersControllerOption configures the controller.
type UsersControllerOption func(*UsersController) *UsersController

// WithUsersControllerRepo sets the repository manager backing the endpoints.
func WithUsersControllerRepo(repo RepositoryManager) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Repo = repo
		return c
	}
}

// WithUsersControllerGuard sets the RouteGuard that authenticates requests.
func WithUsersControllerGuard(guard *RouteGuard) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Guard = guard
		return c
	}
}

// WithUsersControllerLogger sets the controller logger.
func WithUsersControllerLogger(logger Logger) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Logger = logger
		return c
	}
}

// NewUsersController builds a controller with default routes.
func NewUsersController(opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger:       defLogger{},
		ErrorHandler: RenderError,
		Routes: &UsersControllerRoutes{
			List:   "/users",
			Show:   "/users/:id",
			Update: "/users/:id",
			Delete: "/users/:id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in users controller...")
	}

	return c
}

// RegisterUserAdminRoutes mounts the user administration endpoints behind
// access-token verification plus an admin role check.
func RegisterUserAdminRoutes[T any](app router.Router[T], opts ...UsersControllerOption) {
	controller := NewUsersController(opts...)
	protected := controller.Guard.Protected()
	adminOnly := RequireRoles(RoleAdmin)

	guarded := func(handler router.HandlerFunc) router.HandlerFunc {
		inner := adminOnly(handler)
		return protected(func(ctx router.Context) error {
			if err := inner(ctx); err != nil {
				return controller.ErrorHandler(ctx, err)
			}
			return nil
		})
	}

	app.Get(controller.Routes.List, guarded(controller.List)).
		SetName("users.list")

	app.Get(controller.Routes.Show, guarded(controller.Show)).
		SetName("users.show")

	app.Patch(controller.Routes.Update, guarded(controller.Update)).
		SetName("users.update")

	app.Delete(controller.Routes.Delete, guarded(controller.Delete)).
		SetName("users.delete")
}

// UpdateUserRequest payload. Empty fields are left untouched.
type UpdateUserRequest struct {
	Email string `form:"email" json:"email"`
	Role  string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Role, validation.By(validateRole)),
	)
}

// UserListResponse is one page of the user listing.
type UserListResponse struct {
	Items       []UserSummary `json:"items"`
	Total       int           `json:"total"`
	CurrentPage int           `json:"current_page"`
	PerPage     int           `json:"per_page"`
}

func (a *UsersController) List(ctx router.Context) error {
	criteria := UserListCriteria{
		Page:    ctx.QueryInt("current_page", 1),
		PerPage: ctx.QueryInt("per_page", defaultUsersPerPage),
		Search:  ctx.Query("search", ""),
	}.normalize()

	items, total, err := a.Repo.Users().List(ctx.Context(), criteria)
	if err != nil {
		a.Logger.Error("List users error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	summaries := make([]UserSummary, 0, len(items))
	for _, user := range items {
		summaries = append(summaries, user.Summary())
	}

	return ctx.JSON(http.StatusOK, UserListResponse{
		Items:       summaries,
		Total:       total,
		CurrentPage: criteria.Page,
		PerPage:     criteria.PerPage,
	})
}

func (a *UsersController) Show(ctx router.Context) error {
	id, err := userIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, user.Summary())
}

func (a *UsersController) Update(ctx router.Context) error {
	id, err := userIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateUserRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, badPayloadError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, badPayloadError(err))
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if payload.Email != "" {
		user.Email = payload.Email
	}
	if payload.Role != "" {
		user.Role = payload.Role
	}

	updated, err := a.Repo.Users().Update(ctx.Context(), user)
	if err != nil {
		a.Logger.Error("Update user error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, updated.Summary())
}

func (a *UsersController) Delete(ctx router.Context) error {
	id, err := userIDParam(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Repo.Users().Delete(ctx.Context(), id); err != nil {
		a.Logger.Error("Delete user error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

func userIDParam(ctx router.Context) (int64, error) {
	raw := ctx.Param("id")

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, badPayloadError(fmt.Errorf("invalid user id %q", raw))
	}

	return id, nil
}
