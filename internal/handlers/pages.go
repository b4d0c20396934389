package handlers

import (
	"html/template"
	"net/http"

	"stockflow/internal/common"
	"stockflow/internal/tenancy"

	"github.com/labstack/echo/v4"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}} - Stockflow</title></head>
<body>
<h1>{{.Title}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .LoginForm}}
<form method="post" action="/login">
  <label>Tenant <input name="tenantId" required></label>
  <label>Username <input name="username" required></label>
  <label>Password <input type="password" name="password" required></label>
  <button type="submit">Sign in</button>
</form>
{{end}}
{{if .Tenant}}<p>Tenant: {{.Tenant}}</p><p>Signed in as {{.User}}</p>
<form method="post" action="/logout"><button type="submit">Sign out</button></form>{{end}}
</body>
</html>`))

type page struct {
	Title     string
	Message   string
	LoginForm bool
	Tenant    string
	User      string
}

func render(c echo.Context, status int, p page) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return pageTemplate.Execute(c.Response(), p)
}

var loginMessages = map[string]string{
	"invalid": "Invalid username, password or tenant.",
	"locked":  "Too many login attempts. Try again later.",
}

// LoginPage renders the sign-in form.
func LoginPage(c echo.Context) error {
	p := page{Title: "Sign in", LoginForm: true}
	if c.QueryParams().Has("logout") {
		p.Message = "You have been signed out."
	}
	if msg, ok := loginMessages[c.QueryParam("error")]; ok {
		p.Message = msg
	}
	return render(c, http.StatusOK, p)
}

// Dashboard is the landing page for signed-in browser users.
func Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	p := page{Title: "Dashboard"}
	p.Tenant, _ = tenancy.Current(ctx)
	if principal, ok := common.PrincipalFromContext(ctx); ok {
		p.User = principal.Username
	}
	return render(c, http.StatusOK, p)
}

func TrialExpiredPage(c echo.Context) error {
	return render(c, http.StatusForbidden, page{
		Title:   "Trial expired",
		Message: "Your trial period has expired. Please choose a subscription plan to continue.",
	})
}

func AccessDeniedPage(c echo.Context) error {
	return render(c, http.StatusForbidden, page{
		Title:   "Access denied",
		Message: "You do not have permission to view this page.",
	})
}

func ErrorPage(c echo.Context) error {
	return render(c, http.StatusInternalServerError, page{
		Title:   "Something went wrong",
		Message: "Please try again later.",
	})
}
