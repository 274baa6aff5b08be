package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/service"
)

type HomeController struct {
	Callers *service.CallerService
	Log     *zap.Logger
}

// Home shows the logged-in caller and their current pool.
func (c *HomeController) Home(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	home, err := c.Callers.Home(r.Context(), u)
	if err != nil {
		c.Log.Error("loading caller home", zap.String("username", u.Username), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	render(w, c.Log, http.StatusOK, "home.html", pageData{User: home.User, Pool: home.Pool})
}
