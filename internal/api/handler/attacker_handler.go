package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/PeterMosmans/secure-coding-go/internal/view"
)

// AttackerHandler serves the hostile site whose pages auto-submit a forged
// form to the victim site.
type AttackerHandler struct {
	webURL string
}

func NewAttackerHandler(webURL string) *AttackerHandler {
	return &AttackerHandler{webURL: strings.TrimRight(webURL, "/")}
}

// Unprotected targets the endpoint without CSRF protection.
func (h *AttackerHandler) Unprotected(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageAttacker, view.AttackerData{
		Target:    h.webURL + "/authorization",
		OtherPath: "/protected",
		OtherName: "protected",
	})
}

// Protected targets the CSRF-protected endpoint.
func (h *AttackerHandler) Protected(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageAttacker, view.AttackerData{
		Target:    h.webURL + "/authorization-protected",
		OtherPath: "/",
		OtherName: "unprotected",
	})
}
