package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterIdentityRoutes mounts the controller's endpoints. Review and
// provisioning routes are wrapped in an admin-only guard.
func RegisterIdentityRoutes[T any](app router.Router[T], controller *IdentityController) {
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")

	adminGate := GateConfig{AllowedRoles: []UserRole{RoleAdmin}}
	adminOnly := controller.Guard.ProtectedRoute(adminGate, controller.Guard.MakeClientRouteAuthErrorHandler(false))

	app.Post(fmt.Sprintf("%s/:id/review", controller.Routes.Applications), controller.ReviewPost, adminOnly).
		SetName("application-review.post")

	app.Post(controller.Routes.Staff, controller.AddStaffPost, adminOnly).
		SetName("staff.post")

	app.Post(controller.Routes.EstateManagers, controller.AddEstateManagerPost, adminOnly).
		SetName("estate-managers.post")

	app.Get(controller.Routes.Notifications, controller.NotificationCountsGet, adminOnly).
		SetName("notifications.get")
}

type IdentityControllerRoutes struct {
	Login          string
	Logout         string
	SignUp         string
	Applications   string
	Staff          string
	EstateManagers string
	Notifications  string
}

type IdentityController struct {
	Debug         bool
	Logger        Logger
	Repo          RepositoryManager
	Guard         *RouteGuard
	Reviews       *ReviewApplicationHandler
	Staff         *AddStaffUserHandler
	Estates       *AddEstateUserHandler
	SignUps       *SignUpHandler
	Notifications *NotificationService
	Routes        *IdentityControllerRoutes
	ErrorHandler  router.ErrorHandler
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func NewIdentityController(opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger: defLogger{},
		Routes: &IdentityControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			SignUp:         "/signup",
			Applications:   "/applications",
			Staff:          "/staff",
			EstateManagers: "/estate-managers",
			Notifications:  "/notifications/counts",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in identity controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in identity controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.jsonErrHandler
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession will return the remember flag
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *IdentityController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse login payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"validation": err.Error(),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Guard.Login(ctx, payload); err != nil {
		return ctx.JSON(fiber.StatusUnauthorized, router.ViewContext{
			"error": "authentication failed",
		})
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"success": true,
	})
}

func (a *IdentityController) LogOut(ctx router.Context) error {
	a.Guard.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

// SignUpPayload is the self-registration payload.
type SignUpPayload struct {
	Email           string `form:"email" json:"email"`
	DisplayName     string `form:"display_name" json:"display_name"`
	Role            string `form:"role" json:"role"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Location        string `form:"location" json:"location"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Role, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *IdentityController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse sign up payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"validation": err.Error(),
		})
	}

	var res *SignUpResponse

	req := SignUpMessage{
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
		Role:        payload.Role,
		Phone:       payload.Phone,
		Location:    payload.Location,
		OnResponse: func(resp *SignUpResponse) {
			res = resp
		},
	}

	if err := a.SignUps.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("sign up error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, router.ViewContext{
		"profile": res.Profile,
	})
}

// ReviewPayload carries the admin's decision.
type ReviewPayload struct {
	Decision string `form:"decision" json:"decision"`
	Notes    string `form:"notes" json:"notes"`
}

// Validate will validate the payload
func (r ReviewPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Decision,
			validation.Required,
			validation.In(
				string(ApplicationStatusApproved),
				string(ApplicationStatusRejected),
			),
		),
	)
}

func (a *IdentityController) ReviewPost(ctx router.Context) error {
	applicationID := ctx.Param("id")
	payload := new(ReviewPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse review payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"validation": err.Error(),
		})
	}

	reviewer := ""
	if claims, ok := GetRouterClaims(ctx, a.Guard.cfg.GetContextKey()); ok {
		reviewer = claims.IdentityID()
	}

	var res *ReviewApplicationResponse

	req := ReviewApplicationMessage{
		ApplicationID: applicationID,
		Decision:      ApplicationStatus(payload.Decision),
		ReviewerID:    reviewer,
		Notes:         payload.Notes,
		OnResponse: func(resp *ReviewApplicationResponse) {
			res = resp
		},
	}

	if err := a.Reviews.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("application review error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("review response: %s", print.MaybePrettyJSON(res))
	}

	return ctx.JSON(fiber.StatusOK, router.ViewContext{
		"application": res.Application,
		"email_sent":  res.EmailSent,
	})
}

// ProvisionPayload covers direct staff and estate-manager creation.
type ProvisionPayload struct {
	Email       string `form:"email" json:"email"`
	Name        string `form:"name" json:"name"`
	Phone       string `form:"phone_number" json:"phone_number"`
	Company     string `form:"company" json:"company"`
	Location    string `form:"location" json:"location"`
	DisplayRole string `form:"display_role" json:"display_role"`
}

// Validate will validate the payload
func (r ProvisionPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

func (a *IdentityController) AddStaffPost(ctx router.Context) error {
	payload, createdBy, err := a.bindProvisionPayload(ctx)
	if err != nil {
		return err
	}

	var res *ProvisionedUserResponse

	req := AddStaffUserMessage{
		Email:       payload.Email,
		Name:        payload.Name,
		Phone:       payload.Phone,
		DisplayRole: payload.DisplayRole,
		CreatedBy:   createdBy,
		OnResponse: func(resp *ProvisionedUserResponse) {
			res = resp
		},
	}

	if err := a.Staff.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("staff provisioning error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, router.ViewContext{
		"profile":    res.Profile,
		"email_sent": res.EmailSent,
	})
}

func (a *IdentityController) AddEstateManagerPost(ctx router.Context) error {
	payload, createdBy, err := a.bindProvisionPayload(ctx)
	if err != nil {
		return err
	}

	var res *ProvisionedUserResponse

	req := AddEstateUserMessage{
		Email:       payload.Email,
		Name:        payload.Name,
		Phone:       payload.Phone,
		Company:     payload.Company,
		Location:    payload.Location,
		DisplayRole: payload.DisplayRole,
		CreatedBy:   createdBy,
		OnResponse: func(resp *ProvisionedUserResponse) {
			res = resp
		},
	}

	if err := a.Estates.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("estate manager provisioning error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, router.ViewContext{
		"profile":    res.Profile,
		"email_sent": res.EmailSent,
	})
}

func (a *IdentityController) NotificationCountsGet(ctx router.Context) error {
	if a.Notifications != nil {
		a.Notifications.Refresh(ctx.Context())
		return ctx.JSON(fiber.StatusOK, a.Notifications.Counts())
	}
	return ctx.JSON(fiber.StatusOK, NotificationCounts{})
}

func (a *IdentityController) bindProvisionPayload(ctx router.Context) (*ProvisionPayload, string, error) {
	payload := new(ProvisionPayload)

	if err := ctx.Bind(payload); err != nil {
		return nil, "", a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse provisioning payload"))
	}

	if err := payload.Validate(); err != nil {
		return nil, "", ctx.JSON(fiber.StatusBadRequest, router.ViewContext{
			"validation": err.Error(),
		})
	}

	createdBy := ""
	if claims, ok := GetRouterClaims(ctx, a.Guard.cfg.GetContextKey()); ok {
		createdBy = claims.IdentityID()
	}

	return payload, createdBy, nil
}

func (a *IdentityController) jsonErrHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = fiber.StatusInternalServerError
	}

	return ctx.JSON(code, router.ViewContext{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}
