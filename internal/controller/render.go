package controller

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"login.html", "home.html", "upload.html", "upload_pool.html"} {
		pages[name] = template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name))
	}
}

// pageData is the context every page template renders with.
type pageData struct {
	User  *model.User
	Error string

	// login
	Next     string
	Username string

	// home
	Pool *model.Pool

	// upload forms
	Models   []string
	Model    string
	Project  string
	PoolName string
}

func render(w http.ResponseWriter, log *zap.Logger, status int, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages[page].ExecuteTemplate(w, "base", data); err != nil {
		log.Error("rendering template", zap.String("page", page), zap.Error(err))
	}
}

type userKey struct{}

// WithUser stores the authenticated user on the request context.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the authenticated user, or nil.
func UserFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusOf maps service errors onto HTTP status codes.
func statusOf(err error) int {
	var (
		missing    *appErrors.MissingReferenceError
		integrity  *appErrors.IntegrityError
		validation *appErrors.ValidationError
	)
	switch {
	case errors.Is(err, appErrors.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, appErrors.ErrUnknownResource), appErrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrUnsupportedModel),
		errors.As(err, &missing),
		errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &integrity):
		return http.StatusConflict
	case errors.Is(err, appErrors.ErrInvalidCredentials), errors.Is(err, appErrors.ErrSessionExpired):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
