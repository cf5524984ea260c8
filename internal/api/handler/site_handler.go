package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PeterMosmans/secure-coding-go/internal/api/middleware"
	"github.com/PeterMosmans/secure-coding-go/internal/view"
)

// SiteConfig is served as /config.json. It carries public URLs only.
type SiteConfig struct {
	APIURL  string `json:"apiUrl"`
	AuthURL string `json:"authUrl"`
}

// SiteHandler serves the static demo pages of the browser-facing site.
type SiteHandler struct {
	config SiteConfig
	links  view.Links
	csrf   *middleware.CSRFGuard
}

func NewSiteHandler(config SiteConfig, links view.Links, csrf *middleware.CSRFGuard) *SiteHandler {
	return &SiteHandler{config: config, links: links, csrf: csrf}
}

// Config lets the front-end discover the service URLs.
//
// @Summary      Service discovery
// @Tags         site
// @Produce      json
// @Success      200  {object}  SiteConfig
// @Router       /config.json [get]
func (h *SiteHandler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, h.config)
}

// Index is the input/output demo without a Content-Security-Policy.
func (h *SiteHandler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageIndex, view.PageData{})
}

// CSP is the input/output demo restricted to same-origin scripts.
func (h *SiteHandler) CSP(c echo.Context) error {
	c.Response().Header().Set("Content-Security-Policy", "script-src 'self'")
	return c.Render(http.StatusOK, view.PageIndex, view.PageData{Title: "CSP"})
}

// Frame additionally forbids frames.
func (h *SiteHandler) Frame(c echo.Context) error {
	c.Response().Header().Set("Content-Security-Policy", "script-src 'self'; frame-src 'none'")
	return c.Render(http.StatusOK, view.PageIndex, view.PageData{Title: "Frame"})
}

// Test links to every service so certificates can be accepted up front.
func (h *SiteHandler) Test(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageTest, view.PageData{Title: "Test", Links: h.links})
}

// Authentication renders the login page and sets the CSRF secret cookie.
func (h *SiteHandler) Authentication(c echo.Context) error {
	token, err := h.csrf.Issue(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, view.PageAuthentication, view.PageData{Title: "Authentication", CSRFToken: token})
}
