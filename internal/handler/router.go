package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/controller"
	"github.com/unclebandit/phonathon-backend/internal/service"
)

// Deps are the controllers and services behind the router.
type Deps struct {
	Auth    *controller.AuthController
	Home    *controller.HomeController
	Uploads *controller.UploadController
	Admin   *controller.AdminController

	Sessions *service.AuthService
	Cookie   string
	Log      *zap.Logger
}

// NewRouter mounts every route of the site.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Session(d.Sessions, d.Cookie, d.Log))
	r.Use(RequestLogger(d.Log))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, controller.HomePath, http.StatusFound)
	})

	r.Get("/login/", d.Auth.LoginForm)
	r.Post("/login/", d.Auth.Login)
	r.Get("/logout/", d.Auth.Logout)
	r.Post("/logout/", d.Auth.Logout)

	r.Group(func(r chi.Router) {
		r.Use(LoginRequired)
		r.Get("/ccall/", d.Home.Home)

		r.Route("/admin", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(ManagerRequired)
				r.Get("/upload/", d.Uploads.UploadForm)
				r.Post("/upload/", d.Uploads.Upload)
				r.Get("/upload_pool/", d.Uploads.UploadPoolForm)
				r.Post("/upload_pool/", d.Uploads.UploadPool)
			})

			r.Group(func(r chi.Router) {
				r.Use(StaffRequired)
				r.Get("/", d.Admin.Index)
				r.Get("/{resource}/", d.Admin.List)
				r.Post("/{resource}/", d.Admin.Save)
				r.Get("/{resource}/{id}/", d.Admin.Get)
				r.Delete("/{resource}/{id}/", d.Admin.Delete)
				r.Post("/user/{id}/groups/{group}/", d.Admin.AddGroup)
				r.Delete("/user/{id}/groups/{group}/", d.Admin.RemoveGroup)
			})
		})
	})

	return r
}
