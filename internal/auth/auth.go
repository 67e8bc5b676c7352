// Package auth implements the name/password login of the dashboard. The
// session is a plain cookie holding the user's display name, which keeps
// casual visitors out but is not a security boundary.
package auth

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/config"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// ContextKey is the gin context key holding the logged-in user's name.
const ContextKey = "user"

// MsgBadCredentials is shown for any failed login.
const MsgBadCredentials = "Incorrect username or password."

// Authenticator checks credentials and manages the session cookie
type Authenticator struct {
	users    map[string]string
	throttle *ratelimit.LoginThrottle
	cookie   string
	maxAge   int
}

// New builds an authenticator from the configured users.
func New(cfg config.AuthConfig) *Authenticator {
	users := make(map[string]string, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Name] = u.Password
	}
	cookie := cfg.CookieName
	if cookie == "" {
		cookie = "user"
	}
	maxAge := cfg.CookieMaxAge
	if maxAge <= 0 {
		maxAge = 86400
	}
	return &Authenticator{
		users:    users,
		throttle: ratelimit.NewLoginThrottle(cfg.MaxAttempts, cfg.Lockout()),
		cookie:   cookie,
		maxAge:   maxAge,
	}
}

// Users returns the number of configured users.
func (a *Authenticator) Users() int { return len(a.users) }

// Throttle exposes the login throttle for maintenance.
func (a *Authenticator) Throttle() *ratelimit.LoginThrottle { return a.throttle }

// Login checks name and password for the client identified by key.
func (a *Authenticator) Login(key, name, password string) error {
	if ok, wait := a.throttle.Allow(key); !ok {
		return apperr.New(apperr.Throttled, "auth.Login",
			fmt.Sprintf("Too many failed attempts. Try again in %s.", roundUp(wait)))
	}

	want, known := a.users[name]
	if !known || subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		a.throttle.Failure(key)
		return apperr.New(apperr.Unauthorized, "auth.Login", MsgBadCredentials)
	}
	a.throttle.Success(key)
	return nil
}

// roundUp renders a wait in whole seconds or minutes.
func roundUp(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%d minute(s)", int(math.Ceil(d.Minutes())))
	}
	return fmt.Sprintf("%d second(s)", int(math.Ceil(d.Seconds())))
}

// SetSession writes the session cookie for name. gin escapes the value.
func (a *Authenticator) SetSession(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cookie, name, a.maxAge, "/", "", false, false)
}

// ClearSession expires the session cookie.
func (a *Authenticator) ClearSession(c *gin.Context) {
	c.SetCookie(a.cookie, "", -1, "/", "", false, false)
}

// UserFromRequest returns the user named by the session cookie, if that
// user is still configured.
func (a *Authenticator) UserFromRequest(r *http.Request) (string, bool) {
	ck, err := r.Cookie(a.cookie)
	if err != nil || ck.Value == "" {
		return "", false
	}
	name, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return "", false
	}
	if _, ok := a.users[name]; !ok {
		return "", false
	}
	return name, true
}

// RequireUser rejects requests without a valid session cookie.
func (a *Authenticator) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		name, ok := a.UserFromRequest(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
			return
		}
		c.Set(ContextKey, name)
		c.Request = c.Request.WithContext(logging.WithUser(c.Request.Context(), name))
		c.Next()
	}
}

// CurrentUser returns the name set by RequireUser.
func CurrentUser(c *gin.Context) string {
	return c.GetString(ContextKey)
}
