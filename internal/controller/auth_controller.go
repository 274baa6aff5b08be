package controller

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/service"
)

const (
	HomePath  = "/ccall/"
	LoginPath = "/login/"
)

type AuthController struct {
	Auth   *service.AuthService
	Cookie string
	Secure bool
	Log    *zap.Logger
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return HomePath
	}
	return next
}

func (c *AuthController) LoginForm(w http.ResponseWriter, r *http.Request) {
	render(w, c.Log, http.StatusOK, "login.html", pageData{Next: r.URL.Query().Get("next")})
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(w, c.Log, http.StatusBadRequest, "login.html", pageData{Error: "Invalid form."})
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	next := r.PostForm.Get("next")

	_, sess, err := c.Auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if errors.Is(err, appErrors.ErrInvalidCredentials) {
		render(w, c.Log, http.StatusOK, "login.html", pageData{
			Error:    "Please enter a correct username and password.",
			Next:     next,
			Username: username,
		})
		return
	}
	if err != nil {
		c.Log.Error("login failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.Cookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(c.Cookie); err == nil {
		if err := c.Auth.Logout(r.Context(), cookie.Value); err != nil {
			c.Log.Warn("logout failed", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{Name: c.Cookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
