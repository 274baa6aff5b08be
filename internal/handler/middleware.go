package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/controller"
	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/service"
)

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if u := controller.UserFrom(r.Context()); u != nil {
				fields = append(fields, zap.String("username", u.Username))
			}
			log.Info("request", fields...)
		})
	}
}

// Session loads the user behind the session cookie, if any. Expired or
// unknown sessions clear the cookie and continue anonymously.
func Session(auth *service.AuthService, cookie string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookie)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, err := auth.Authenticate(r.Context(), c.Value)
			switch {
			case err == nil:
				r = r.WithContext(controller.WithUser(r.Context(), u))
			case errors.Is(err, appErrors.ErrSessionExpired):
				http.SetCookie(w, &http.Cookie{Name: cookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
			default:
				log.Error("loading session", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRequired redirects anonymous requests to the login page with the
// original URL in next.
func LoginRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if controller.UserFrom(r.Context()) == nil {
			http.Redirect(w, r, controller.LoginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ManagerRequired allows superusers and members of Managers.
func ManagerRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !controller.UserFrom(r.Context()).IsManagerAndAbove() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StaffRequired allows staff and superusers.
func StaffRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := controller.UserFrom(r.Context())
		if !u.IsStaff && !u.IsSuperuser {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
