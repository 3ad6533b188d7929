package registration

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegistrationControllerRoutes holds the mount points for the two endpoints.
type RegistrationControllerRoutes struct {
	Register string
	Activate string
}

// RegistrationController translates HTTP requests into register/activate
// command executions. Activation rejections are deliberately opaque: the
// response never distinguishes unknown, expired, and spent keys.
type RegistrationController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Settings     *Settings
	Notifier     Notifier
	Routes       *RegistrationControllerRoutes
	ErrorHandler router.ErrorHandler
}

type RegistrationControllerOption func(*RegistrationController) *RegistrationController

func WithControllerLogger(logger Logger) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Repo = repo
		return c
	}
}

func WithControllerSettings(settings *Settings) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Settings = settings
		return c
	}
}

func WithControllerNotifier(notifier Notifier) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Notifier = notifier
		return c
	}
}

func WithControllerDebug(debug bool) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Debug = debug
		return c
	}
}

func NewRegistrationController(opts ...RegistrationControllerOption) *RegistrationController {
	c := &RegistrationController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &RegistrationControllerRoutes{
			Register: "/register",
			Activate: "/activate/:activation_key",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in registration controller...")
	}

	if c.Settings == nil {
		panic("Missing Settings in registration controller...")
	}

	return c
}

// RegisterRoutes mounts the registration endpoints. The activation route
// accepts GET for emailed links and POST for API clients.
func (a *RegistrationController) RegisterRoutes(group RouteRegistrar) {
	group.Post(a.Routes.Register, a.RegisterPost)
	group.Get(a.Routes.Activate, a.Activate)
	group.Post(a.Routes.Activate, a.Activate)
}

// RegistrationCreatePayload is the request body for POST /register.
// Unrecognized fields in the payload are dropped by the binder rather than
// rejected, so superset payloads keep working.
type RegistrationCreatePayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Phone     string `form:"phone" json:"phone"`
	Password  string `form:"password" json:"password"`
}

func (a *RegistrationController) RegisterPost(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %s", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"form": "Failed to parse body",
		})
	}

	if a.Debug {
		fmt.Println("======= REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=======================")
	}

	var res *RegisterUserResponse

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo, a.Settings).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		return a.handleRegisterError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"activation_days": res.ActivationDays,
		"user":            res.User,
	})
}

func (a *RegistrationController) handleRegisterError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryValidation:
			a.Logger.Error("register user validate payload: %s", err)
			return ctx.JSON(fiber.StatusBadRequest, richErr.Metadata)
		case goerrors.CategoryConflict:
			a.Logger.Error("register user conflict: %s", err)
			return ctx.JSON(fiber.StatusConflict, map[string]string{
				"error": "an account with those details already exists",
			})
		}
	}

	a.Logger.Error("register user error: %s", err)
	return a.ErrorHandler(ctx, err)
}

func (a *RegistrationController) Activate(ctx router.Context) error {
	key := ctx.Param("activation_key", "")

	var res *ActivateAccountResponse

	req := ActivateAccountMessage{
		Key: key,
		OnResponse: func(resp *ActivateAccountResponse) {
			res = resp
		},
	}

	activate := NewActivateAccountHandler(a.Repo, a.Settings).
		WithLogger(a.Logger)

	if err := activate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("account activation error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	if !res.Activated {
		// one opaque failure for every rejection reason
		return ctx.JSON(fiber.StatusBadRequest, map[string]string{
			"error": "invalid activation key",
		})
	}

	redirect, err := a.Settings.ActivationSuccessURL()
	if err != nil {
		// activation succeeded but the operator forgot the redirect target;
		// the account stays active, the request fails loudly
		a.Logger.Error("activation redirect unconfigured: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account activated",
	}).Redirect(redirect, fiber.StatusFound)
}

func defaultErrHandler(c router.Context, err error) error {
	return c.JSON(fiber.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}
