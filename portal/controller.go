package portal

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/locations"
	"github.com/goliatone/go-donor-auth/middleware/sessionguard"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

const (
	loginFallback    = "Login failed. Invalid email or password."
	registerFallback = "Registration failed. Please check your inputs."
	createFallback   = "Failed to create request."
	listFallback     = "Could not load your donation requests."
)

type ControllerRoutes struct {
	Home          string
	Login         string
	Logout        string
	Register      string
	Dashboard     string
	Profile       string
	CreateRequest string
	MyRequests    string
}

type ControllerViews struct {
	Home          string
	Login         string
	Register      string
	Dashboard     string
	CreateRequest string
	MyRequests    string
	Loading       string
	Error         string
}

// Controller holds the portal handlers
type Controller struct {
	portal *Portal
	Routes *ControllerRoutes
	Views  *ControllerViews
}

func NewController(p *Portal) *Controller {
	return &Controller{
		portal: p,
		Routes: &ControllerRoutes{
			Home:          "/",
			Login:         p.cfg.LoginPath,
			Logout:        "/logout",
			Register:      "/register",
			Dashboard:     "/dashboard",
			Profile:       "/dashboard/profile",
			CreateRequest: "/dashboard/create-request",
			MyRequests:    "/dashboard/my-requests",
		},
		Views: &ControllerViews{
			Home:          "home",
			Login:         "login",
			Register:      "register",
			Dashboard:     "dashboard",
			CreateRequest: "create_request",
			MyRequests:    "my_requests",
			Loading:       "loading",
			Error:         "error",
		},
	}
}

// Register mounts every route on app
func (a *Controller) Register(app *fiber.App) {
	app.Get(a.Routes.Home, a.Home)

	app.Get(a.Routes.Login, a.LoginShow)
	app.Post(a.Routes.Login, a.LoginPost)
	app.Post(a.Routes.Logout, a.LogOut)

	app.Get(a.Routes.Register, a.RegistrationShow)
	app.Post(a.Routes.Register, a.RegistrationCreate)

	protected := app.Group(a.Routes.Dashboard, sessionguard.New(sessionguard.Config{
		Guard:            a.portal.guard,
		RejectedRouteKey: a.portal.cfg.RejectedRouteKey,
		WaitHandler:      a.Loading,
	}))

	protected.Get("/", a.Dashboard)
	protected.Get("/profile", a.Dashboard)
	protected.Get("/create-request", a.CreateRequestShow)
	protected.Post("/create-request", a.CreateRequestPost)
	protected.Get("/my-requests", a.MyRequests)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

func (a *Controller) render(c *fiber.Ctx, view string, data fiber.Map) error {
	snap := a.portal.deps.Session.Snapshot()

	bind := fiber.Map{
		"authenticated": snap.Authenticated(),
		"login_path":    a.Routes.Login,
	}

	if snap.Identity != nil {
		profile := a.profileFor(*snap.Identity)
		bind["profile"] = profile
		bind["nav_links"] = auth.DashboardLinks(profile.Role)
	}

	for k, v := range data {
		bind[k] = v
	}

	return c.Render(view, bind)
}

func (a *Controller) profileFor(identity auth.Identity) auth.UserProfile {
	if profile, ok := a.portal.deps.Session.Profile(); ok && profile.Email == identity.Email {
		return profile.WithDefaults()
	}
	return auth.ProfileFromIdentity(identity)
}

func (a *Controller) debug(label string, v any) {
	if a.portal.cfg.Debug {
		a.portal.logger.Debug("%s: %s", label, print.MaybePrettyJSON(v))
	}
}

func (a *Controller) Home(c *fiber.Ctx) error {
	return a.render(c, a.Views.Home, fiber.Map{
		"title": "Home",
	})
}

// Loading is the placeholder shown while the session initializes
func (a *Controller) Loading(c *fiber.Ctx) error {
	c.Set(fiber.HeaderRetryAfter, "1")
	return c.Render(a.Views.Loading, fiber.Map{
		"title":   "Loading",
		"refresh": 1,
	})
}

func (a *Controller) LoginShow(c *fiber.Ctx) error {
	if a.portal.deps.Session.Snapshot().Authenticated() {
		return c.Redirect(a.portal.cfg.DefaultRedirect, fiber.StatusFound)
	}

	return a.render(c, a.Views.Login, fiber.Map{
		"title":  "Login",
		"from":   auth.SafeReturnPath(c.Query(auth.DefaultReturnParam), ""),
		"errors": map[string]string{},
		"record": auth.LoginRequest{},
	})
}

func (a *Controller) LoginPost(c *fiber.Ctx) error {
	payload := new(auth.LoginRequest)
	from := auth.SafeReturnPath(c.FormValue(auth.DefaultReturnParam), "")

	if err := c.BodyParser(payload); err != nil {
		a.portal.logger.Error("login parse payload: %s", err)
		return a.loginError(c, fiber.StatusBadRequest, payload, from, map[string]string{"form": "Failed to parse form"}, "")
	}

	if err := payload.Validate(); err != nil {
		return a.loginError(c, fiber.StatusBadRequest, payload, from, auth.FieldErrors(err), "")
	}

	res, err := a.portal.deps.Session.SignIn(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		a.portal.logger.Error("login failed for %s: %s", payload.Email, err)
		return a.loginError(c, statusFor(err), payload, from, nil, auth.MessageOr(err, loginFallback))
	}

	a.debug("login response", res.User)

	if !res.HasToken() {
		msg := res.Message
		if msg == "" {
			msg = loginFallback
		}
		return a.loginError(c, fiber.StatusUnauthorized, payload, from, nil, msg)
	}

	redirect := sessionguard.GetRedirect(c, a.portal.cfg.RejectedRouteKey, a.portal.cfg.DefaultRedirect)
	return c.Redirect(redirect, fiber.StatusSeeOther)
}

func (a *Controller) loginError(c *fiber.Ctx, status int, payload *auth.LoginRequest, from string, errs map[string]string, msg string) error {
	if errs == nil {
		errs = map[string]string{}
	}
	// never echo the password back
	record := auth.LoginRequest{Email: payload.Email}

	return a.render(c.Status(status), a.Views.Login, fiber.Map{
		"title":         "Login",
		"from":          from,
		"errors":        errs,
		"record":        record,
		"error_message": msg,
	})
}

func (a *Controller) LogOut(c *fiber.Ctx) error {
	_ = a.portal.deps.Session.SignOut()
	return c.Redirect(a.Routes.Home, fiber.StatusSeeOther)
}

type upazilaGroup struct {
	District locations.District
	Upazilas []locations.Upazila
}

func (a *Controller) locationData() fiber.Map {
	dir := a.portal.deps.Locations
	districts := dir.Districts()

	groups := make([]upazilaGroup, 0, len(districts))
	for _, d := range districts {
		ups := dir.UpazilasOf(d.ID)
		if len(ups) == 0 {
			continue
		}
		groups = append(groups, upazilaGroup{District: d, Upazilas: ups})
	}

	return fiber.Map{
		"blood_groups":   auth.BloodGroups,
		"districts":      districts,
		"upazila_groups": groups,
	}
}

// resolveLocation maps a posted district ID to its display name and checks
// the upazila belongs to it. Unknown IDs are kept verbatim.
func (a *Controller) resolveLocation(district, upazila string) (string, string) {
	d, ok := a.portal.deps.Locations.District(district)
	if !ok {
		return district, ""
	}
	if upazila != "" && !a.portal.deps.Locations.HasUpazila(d.ID, upazila) {
		return d.Name, "Select an upazila of the chosen district."
	}
	return d.Name, ""
}

func (a *Controller) RegistrationShow(c *fiber.Ctx) error {
	data := a.locationData()
	data["title"] = "Register"
	data["errors"] = map[string]string{}
	data["record"] = auth.RegistrationRequest{}
	return a.render(c, a.Views.Register, data)
}

func (a *Controller) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(auth.RegistrationRequest)

	if err := c.BodyParser(payload); err != nil {
		a.portal.logger.Error("register parse payload: %s", err)
		return a.registrationError(c, fiber.StatusBadRequest, payload, map[string]string{"form": "Failed to parse form"}, "")
	}

	districtID := payload.District
	districtName, upazilaErr := a.resolveLocation(payload.District, payload.Upazila)
	payload.District = districtName

	errs := auth.FieldErrors(payload.Validate())
	if upazilaErr != "" {
		errs["upazila"] = upazilaErr
	}
	if len(errs) > 0 {
		payload.District = districtID
		return a.registrationError(c, fiber.StatusBadRequest, payload, errs, "")
	}

	payload.Avatar = a.avatarURL(c)

	res, err := a.portal.deps.Session.Register(c.UserContext(), *payload)
	if err != nil {
		a.portal.logger.Error("registration failed for %s: %s", payload.Email, err)
		payload.District = districtID
		return a.registrationError(c, statusFor(err), payload, nil, auth.MessageOr(err, registerFallback))
	}

	a.debug("registration response", res.User)

	if res.HasToken() {
		return c.Redirect(a.portal.cfg.DefaultRedirect, fiber.StatusSeeOther)
	}

	msg := res.Message
	if msg == "" {
		msg = "Registration complete. Please log in."
	}

	return a.render(c, a.Views.Login, fiber.Map{
		"title":          "Login",
		"errors":         map[string]string{},
		"record":         auth.LoginRequest{Email: payload.Email},
		"system_message": msg,
	})
}

func (a *Controller) avatarURL(c *fiber.Ctx) string {
	fh, err := c.FormFile("avatar")
	if err != nil || fh.Size == 0 {
		return a.portal.deps.Uploader.AvatarURL(c.UserContext(), "", nil)
	}

	f, err := fh.Open()
	if err != nil {
		a.portal.logger.Error("open avatar upload: %s", err)
		return a.portal.deps.Uploader.AvatarURL(c.UserContext(), "", nil)
	}
	defer f.Close()

	return a.portal.deps.Uploader.AvatarURL(c.UserContext(), fh.Filename, f)
}

func (a *Controller) registrationError(c *fiber.Ctx, status int, payload *auth.RegistrationRequest, errs map[string]string, msg string) error {
	if errs == nil {
		errs = map[string]string{}
	}
	record := *payload
	record.Password = ""
	record.ConfirmPassword = ""

	data := a.locationData()
	data["title"] = "Register"
	data["errors"] = errs
	data["record"] = record
	data["error_message"] = msg

	return a.render(c.Status(status), a.Views.Register, data)
}

func (a *Controller) Dashboard(c *fiber.Ctx) error {
	identity, _ := sessionguard.IdentityFromLocals(c)
	profile := a.profileFor(identity)

	return a.render(c, a.Views.Dashboard, fiber.Map{
		"title":   "Dashboard",
		"profile": profile,
		"blocked": identity.IsBlocked(),
	})
}

func (a *Controller) CreateRequestShow(c *fiber.Ctx) error {
	data := a.locationData()
	data["title"] = "Create Donation Request"
	data["errors"] = map[string]string{}
	data["record"] = auth.DonationRequest{}
	return a.render(c, a.Views.CreateRequest, data)
}

func (a *Controller) CreateRequestPost(c *fiber.Ctx) error {
	identity, _ := sessionguard.IdentityFromLocals(c)
	payload := new(auth.DonationRequest)

	if err := c.BodyParser(payload); err != nil {
		a.portal.logger.Error("create request parse payload: %s", err)
		return a.createRequestError(c, fiber.StatusBadRequest, payload, map[string]string{"form": "Failed to parse form"}, "")
	}

	if identity.IsBlocked() {
		return a.createRequestError(c, fiber.StatusForbidden, payload, nil, "Blocked users cannot create donation requests.")
	}

	districtID := payload.District
	districtName, upazilaErr := a.resolveLocation(payload.District, payload.Upazila)
	payload.District = districtName

	req := payload.Normalize(identity, a.profileFor(identity).Name)

	errs := auth.FieldErrors(req.Validate())
	if upazilaErr != "" {
		errs["upazila"] = upazilaErr
	}
	if len(errs) > 0 {
		payload.District = districtID
		return a.createRequestError(c, fiber.StatusBadRequest, payload, errs, "")
	}

	a.debug("donation request", req)

	res, err := a.portal.deps.Requests.Create(c.UserContext(), req)
	if err != nil {
		if auth.IsAuthorizationFailure(err) {
			return c.Redirect(a.Routes.Login, fiber.StatusSeeOther)
		}
		a.portal.logger.Error("create donation request: %s", err)
		payload.District = districtID
		return a.createRequestError(c, statusFor(err), payload, nil, auth.MessageOr(err, createFallback))
	}

	if !res.Created() {
		payload.District = districtID
		return a.createRequestError(c, fiber.StatusBadGateway, payload, nil, createFallback)
	}

	q := url.Values{}
	q.Set("created", res.InsertedID)
	return c.Redirect(a.Routes.MyRequests+"?"+q.Encode(), fiber.StatusSeeOther)
}

func (a *Controller) createRequestError(c *fiber.Ctx, status int, payload *auth.DonationRequest, errs map[string]string, msg string) error {
	if errs == nil {
		errs = map[string]string{}
	}

	data := a.locationData()
	data["title"] = "Create Donation Request"
	data["errors"] = errs
	data["record"] = *payload
	data["error_message"] = msg

	return a.render(c.Status(status), a.Views.CreateRequest, data)
}

func (a *Controller) MyRequests(c *fiber.Ctx) error {
	identity, _ := sessionguard.IdentityFromLocals(c)

	records, err := a.portal.deps.Requests.ListByRequester(c.UserContext(), identity.Email)
	if err != nil {
		if auth.IsAuthorizationFailure(err) {
			return c.Redirect(a.Routes.Login, fiber.StatusFound)
		}
		a.portal.logger.Error("list donation requests: %s", err)
		return a.render(c.Status(statusFor(err)), a.Views.MyRequests, fiber.Map{
			"title":         "My Donation Requests",
			"error_message": auth.MessageOr(err, listFallback),
		})
	}

	return a.render(c, a.Views.MyRequests, fiber.Map{
		"title":    "My Donation Requests",
		"requests": records,
		"created":  c.Query("created"),
	})
}

// ErrorHandler renders the error page for unhandled errors
func (a *Controller) ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Something went wrong."

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		a.portal.logger.Error("request %s %s failed: %s", c.Method(), c.OriginalURL(), err)
	}

	return c.Status(code).Render(a.Views.Error, fiber.Map{
		"title":   "Error",
		"status":  code,
		"message": message,
	})
}

// statusFor maps a service failure to the status shown on re-rendered forms
func statusFor(err error) int {
	if errors.Is(err, auth.ErrSessionSuperseded) {
		return fiber.StatusConflict
	}

	var richErr *goerrors.Error
	if errors.As(err, &richErr) && richErr.Code >= 400 && richErr.Code < 500 {
		return richErr.Code
	}
	return fiber.StatusBadGateway
}
