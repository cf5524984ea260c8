package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
)

const (
	// CSRFCookieName holds the per-browser secret.
	CSRFCookieName = "_csrf"
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "_csrf"
	// CSRFHeader is checked when the form field is absent.
	CSRFHeader = "X-CSRF-Token"

	secretBytes = 18
	saltBytes   = 8
)

// CookieProfile holds the attributes of the CSRF secret cookie.
type CookieProfile struct {
	SameSite http.SameSite
	Secure   bool
	HTTPOnly bool
}

var (
	// PermissiveCookies sends the secret cookie without SameSite, Secure or
	// HttpOnly, as classic cookie-mode CSRF libraries do by default.
	PermissiveCookies = CookieProfile{}
	// HardenedCookies restricts the secret cookie to first-party HTTPS requests.
	HardenedCookies = CookieProfile{SameSite: http.SameSiteStrictMode, Secure: true, HTTPOnly: true}
)

// CSRFGuard issues and verifies double-submit CSRF tokens. The secret lives
// in a cookie; a token is a random salt plus HMAC-SHA256(secret, salt), so
// every page load gets a fresh token that verifies against the same secret.
type CSRFGuard struct {
	profile CookieProfile
}

func NewCSRFGuard(profile CookieProfile) *CSRFGuard {
	return &CSRFGuard{profile: profile}
}

// Profile returns the cookie attributes in use.
func (g *CSRFGuard) Profile() CookieProfile {
	return g.profile
}

// Issue returns a fresh token for the browser behind c, creating the secret
// cookie when the browser does not carry one yet.
func (g *CSRFGuard) Issue(c echo.Context) (string, error) {
	secret := g.secret(c)
	if secret == "" {
		var err error
		if secret, err = randomString(secretBytes); err != nil {
			return "", fmt.Errorf("csrf secret: %w", err)
		}
		c.SetCookie(&http.Cookie{
			Name:     CSRFCookieName,
			Value:    secret,
			Path:     "/",
			SameSite: g.profile.SameSite,
			Secure:   g.profile.Secure,
			HttpOnly: g.profile.HTTPOnly,
		})
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("csrf salt: %w", err)
	}
	s := hex.EncodeToString(salt)
	return s + "-" + sign(secret, s), nil
}

// Check verifies the submitted token (form field, then header) against the
// secret cookie. It returns domain.ErrCSRFTokenMissing when either half is
// absent and domain.ErrCSRFTokenMismatch when they do not belong together.
func (g *CSRFGuard) Check(c echo.Context) error {
	secret := g.secret(c)
	if secret == "" {
		return domain.ErrCSRFTokenMissing
	}
	token := c.FormValue(CSRFFormField)
	if token == "" {
		token = c.Request().Header.Get(CSRFHeader)
	}
	if token == "" {
		return domain.ErrCSRFTokenMissing
	}

	salt, mac, ok := strings.Cut(token, "-")
	if !ok || salt == "" || mac == "" {
		return domain.ErrCSRFTokenMismatch
	}
	if !hmac.Equal([]byte(mac), []byte(sign(secret, salt))) {
		return domain.ErrCSRFTokenMismatch
	}
	return nil
}

func (g *CSRFGuard) secret(c echo.Context) string {
	cookie, err := c.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func sign(secret, salt string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(salt))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
