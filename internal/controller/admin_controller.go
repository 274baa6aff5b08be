package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/service"
)

// AdminController is the JSON admin API.
type AdminController struct {
	Admin *service.AdminService
	Log   *zap.Logger
}

func (c *AdminController) Index(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      u.Username,
		"resources": c.Admin.Index(u),
		"uploads":   []string{"/admin/upload/", "/admin/upload_pool/"},
	})
}

func (c *AdminController) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	res, err := c.Admin.List(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "resource"), page, pageSize)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": res.Items,
		"pagination": map[string]int{
			"page":        res.Page,
			"page_size":   res.PageSize,
			"total_count": res.TotalCount,
			"total_pages": res.TotalPages,
		},
	})
}

func (c *AdminController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := c.id(w, r)
	if !ok {
		return
	}
	obj, err := c.Admin.Get(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "resource"), id)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// Save upserts one object by natural key. 201 when it was created.
func (c *AdminController) Save(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	sum, err := c.Admin.Upsert(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "resource"), body)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	status := http.StatusOK
	if len(sum.Created) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"created": sum.Created,
		"updated": sum.Updated,
	})
}

func (c *AdminController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := c.id(w, r)
	if !ok {
		return
	}
	if err := c.Admin.Delete(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "resource"), id); err != nil {
		writeError(w, c.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddGroup puts the user in the group named by the path.
func (c *AdminController) AddGroup(w http.ResponseWriter, r *http.Request) {
	c.setGroup(w, r, true)
}

// RemoveGroup takes the user out of the group named by the path.
func (c *AdminController) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	c.setGroup(w, r, false)
}

func (c *AdminController) setGroup(w http.ResponseWriter, r *http.Request, member bool) {
	id, ok := c.id(w, r)
	if !ok {
		return
	}
	u, err := c.Admin.SetGroup(r.Context(), UserFrom(r.Context()), id, chi.URLParam(r, "group"), member)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (c *AdminController) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
