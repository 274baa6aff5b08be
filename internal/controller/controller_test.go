package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/controller"
	"github.com/unclebandit/phonathon-backend/internal/model"
	"github.com/unclebandit/phonathon-backend/internal/repository"
	"github.com/unclebandit/phonathon-backend/internal/seed"
	"github.com/unclebandit/phonathon-backend/internal/service"
	"github.com/unclebandit/phonathon-backend/internal/testutil"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

type stack struct {
	repos   *repository.Repositories
	auth    *service.AuthService
	authC   *controller.AuthController
	home    *controller.HomeController
	uploads *controller.UploadController
	admin   *controller.AdminController

	caller  *model.User
	manager *model.User
}

// newStack wires real services over a seeded in-memory database with a
// caller "alexa" and a manager "mina", both with password "secret".
func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	_, err := seed.NewSeeder(uow, log).Apply(ctx, "adminpass")
	require.NoError(t, err)

	repos := testutil.NewRepos(database)
	auth := service.NewAuthService(database, uow, time.Hour, log)
	rec := upload.NewReconciler(uow, log)

	s := &stack{
		repos:   repos,
		auth:    auth,
		authC:   &controller.AuthController{Auth: auth, Cookie: "sessionid", Log: log},
		home:    &controller.HomeController{Callers: &service.CallerService{Assignments: repos.Assignments}, Log: log},
		uploads: &controller.UploadController{Uploads: service.NewUploadService(rec, nil, log), MaxBytes: 1 << 20, Log: log},
		admin:   &controller.AdminController{Admin: service.NewAdminService(repos, rec, auth, log), Log: log},
	}
	s.caller = s.newUser(t, "alexa", "Alex Ang")
	s.manager = s.newUser(t, "mina", "Mina Lee", model.GroupManagers)
	return s
}

func (s *stack) newUser(t *testing.T, username, name string, groups ...string) *model.User {
	t.Helper()
	ctx := context.Background()
	u := &model.User{Username: username, Name: name, IsActive: true, DateJoined: time.Now()}
	require.NoError(t, u.SetPassword("secret"))
	require.NoError(t, s.repos.Users.Create(ctx, u))
	for _, g := range groups {
		var err error
		u, err = s.auth.AddToGroup(ctx, u.ID, g)
		require.NoError(t, err)
	}
	return u
}

func asUser(r *http.Request, u *model.User) *http.Request {
	return r.WithContext(controller.WithUser(r.Context(), u))
}

func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func multipartRequest(t *testing.T, target string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("uploaded_file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func loginRequest(username, password, next string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}, "next": {next}}
	req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin(t *testing.T) {
	s := newStack(t)

	rr := httptest.NewRecorder()
	s.authC.Login(rr, loginRequest("alexa", "secret", "/admin/"))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/", rr.Header().Get("Location"))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	u, err := s.auth.Authenticate(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, s.caller.ID, u.ID)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	s := newStack(t)

	for _, next := range []string{"", "//evil.example.com/", "https://evil.example.com/", "/\\evil"} {
		rr := httptest.NewRecorder()
		s.authC.Login(rr, loginRequest("alexa", "secret", next))
		assert.Equal(t, controller.HomePath, rr.Header().Get("Location"), "next=%q", next)
	}
}

func TestLoginFailureRerendersForm(t *testing.T) {
	s := newStack(t)

	rr := httptest.NewRecorder()
	s.authC.Login(rr, loginRequest("alexa", "wrong", "/ccall/"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Please enter a correct username and password.")
	assert.Contains(t, rr.Body.String(), `value="alexa"`)
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogout(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	_, sess, err := s.auth.Login(ctx, "alexa", "secret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: sess.Token})
	rr := httptest.NewRecorder()
	s.authC.Logout(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, controller.LoginPath, rr.Header().Get("Location"))
	_, err = s.auth.Authenticate(ctx, sess.Token)
	assert.Error(t, err)
}

func TestHome(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	rr := httptest.NewRecorder()
	s.home.Home(rr, asUser(httptest.NewRequest(http.MethodGet, "/ccall/", nil), s.caller))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Welcome, Alex Ang")
	assert.Contains(t, rr.Body.String(), "You have not been assigned a pool.")

	project := &model.Project{Name: "Spring"}
	require.NoError(t, s.repos.Projects.Create(ctx, project))
	for i, name := range []string{"Second", "First"} {
		pool := &model.Pool{Name: name, ProjectID: project.ID, MaxAttempts: 3}
		require.NoError(t, s.repos.Pools.Create(ctx, pool))
		require.NoError(t, s.repos.Assignments.Create(ctx, &model.Assignment{CallerID: s.caller.ID, PoolID: pool.ID, Order: 2 - i}))
	}

	rr = httptest.NewRecorder()
	s.home.Home(rr, asUser(httptest.NewRequest(http.MethodGet, "/ccall/", nil), s.caller))
	assert.Contains(t, rr.Body.String(), "Current pool: <strong>First</strong>")
}

const prospectCSV = "nric,name,education_school,education_degree,education_year\n" +
	"S1234567A,Anna Low,Engineering,BEng,2010\n" +
	"S7654321B,Ben Tan,Science,BSc,2012\n"

func TestUpload(t *testing.T) {
	s := newStack(t)

	req := multipartRequest(t, "/admin/upload/", map[string]string{"model": upload.ModelProspect}, "prospects.csv", prospectCSV)
	rr := httptest.NewRecorder()
	s.uploads.Upload(rr, asUser(req, s.manager))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, controller.AdminPath, rr.Header().Get("Location"))
	_, total, err := s.repos.Prospects.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestUploadFormErrors(t *testing.T) {
	s := newStack(t)

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  string
		want     string
	}{
		{"missing model", nil, "p.csv", prospectCSV, "Data type: this field is required."},
		{"missing file", map[string]string{"model": upload.ModelProspect}, "", "", "Upload file: this field is required."},
		{"empty file", map[string]string{"model": upload.ModelProspect}, "p.csv", "", "Upload file: the submitted file is empty."},
		{"unknown model", map[string]string{"model": "Spaceship"}, "p.csv", prospectCSV, "Spaceship"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, "/admin/upload/", tt.fields, tt.filename, tt.content)
			rr := httptest.NewRecorder()
			s.uploads.Upload(rr, asUser(req, s.manager))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	s := newStack(t)
	s.uploads.MaxBytes = 64

	req := multipartRequest(t, "/admin/upload/", map[string]string{"model": upload.ModelProspect}, "p.csv", strings.Repeat(prospectCSV, 10))
	rr := httptest.NewRecorder()
	s.uploads.Upload(rr, asUser(req, s.manager))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadPool(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	fields := map[string]string{"project": "Spring", "pool": "P1"}

	rr := httptest.NewRecorder()
	s.uploads.UploadPool(rr, asUser(multipartRequest(t, "/admin/upload_pool/", fields, "p1.csv", prospectCSV), s.manager))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	_, pools, err := s.repos.Pools.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, pools)

	require.NoError(t, s.repos.Projects.Create(ctx, &model.Project{Name: "Spring"}))
	rr = httptest.NewRecorder()
	s.uploads.UploadPool(rr, asUser(multipartRequest(t, "/admin/upload_pool/", fields, "p1.csv", prospectCSV), s.manager))
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	items, pools, err := s.repos.Pools.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, pools)
	assert.Equal(t, "P1", items[0].Name)
}

func TestUploadPoolRequiredFields(t *testing.T) {
	s := newStack(t)

	rr := httptest.NewRecorder()
	s.uploads.UploadPool(rr, asUser(multipartRequest(t, "/admin/upload_pool/", map[string]string{"pool": "P1"}, "", ""), s.manager))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Project, Upload file: this field is required.")
}

func TestAdminSaveListGetDelete(t *testing.T) {
	s := newStack(t)
	superuser := &model.User{Username: "admin", IsActive: true, IsStaff: true, IsSuperuser: true}

	body := `{"nric":"S1234567A","name":"Anna Low","education_school":"Engineering","education_degree":"BEng","education_year":2010}`
	req := withParams(httptest.NewRequest(http.MethodPost, "/admin/prospect/", strings.NewReader(body)), "resource", "prospect")
	rr := httptest.NewRecorder()
	s.admin.Save(rr, asUser(req, superuser))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req = withParams(httptest.NewRequest(http.MethodPost, "/admin/prospect/", strings.NewReader(`{"nric":"S1234567A","name":"Anna Tan"}`)), "resource", "prospect")
	rr = httptest.NewRecorder()
	s.admin.Save(rr, asUser(req, superuser))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = withParams(httptest.NewRequest(http.MethodGet, "/admin/prospect/?page=1&page_size=5", nil), "resource", "prospect")
	rr = httptest.NewRecorder()
	s.admin.List(rr, asUser(req, superuser))
	require.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Data       []model.Prospect `json:"data"`
		Pagination map[string]int   `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Anna Tan", list.Data[0].Name)
	assert.Equal(t, map[string]int{"page": 1, "page_size": 5, "total_count": 1, "total_pages": 1}, list.Pagination)

	id := strconv.FormatInt(list.Data[0].ID, 10)
	req = withParams(httptest.NewRequest(http.MethodGet, "/admin/prospect/"+id+"/", nil), "resource", "prospect", "id", id)
	rr = httptest.NewRecorder()
	s.admin.Get(rr, asUser(req, superuser))
	assert.Equal(t, http.StatusOK, rr.Code)

	req = withParams(httptest.NewRequest(http.MethodDelete, "/admin/prospect/"+id+"/", nil), "resource", "prospect", "id", id)
	rr = httptest.NewRecorder()
	s.admin.Delete(rr, asUser(req, superuser))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = withParams(httptest.NewRequest(http.MethodGet, "/admin/prospect/"+id+"/", nil), "resource", "prospect", "id", id)
	rr = httptest.NewRecorder()
	s.admin.Get(rr, asUser(req, superuser))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminErrors(t *testing.T) {
	s := newStack(t)
	supervisor := s.newUser(t, "sam", "Sam Ong", model.GroupSupervisors)

	tests := []struct {
		name   string
		method string
		params []string
		body   string
		call   func(http.ResponseWriter, *http.Request)
		want   int
	}{
		{"unknown resource", http.MethodGet, []string{"resource", "spaceship"}, "", s.admin.List, http.StatusNotFound},
		{"no view permission", http.MethodGet, []string{"resource", "fund"}, "", s.admin.List, http.StatusForbidden},
		{"no delete permission", http.MethodDelete, []string{"resource", "prospect", "id", "1"}, "", s.admin.Delete, http.StatusForbidden},
		{"bad id", http.MethodGet, []string{"resource", "prospect", "id", "abc"}, "", s.admin.Get, http.StatusBadRequest},
		{"bad body", http.MethodPost, []string{"resource", "prospect"}, "{", s.admin.Save, http.StatusBadRequest},
		{"invalid row", http.MethodPost, []string{"resource", "prospect"}, `{"nric":"S1"}`, s.admin.Save, http.StatusBadRequest},
		{"add without add permission", http.MethodPost, []string{"resource", "user"}, `{"username":"evil","name":"Evil"}`, s.admin.Save, http.StatusForbidden},
		{"superuser flag", http.MethodPost, []string{"resource", "user"}, `{"username":"sam","is_superuser":true}`, s.admin.Save, http.StatusForbidden},
		{"group change", http.MethodPost, []string{"id", "1", "group", "Managers"}, "", s.admin.AddGroup, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withParams(httptest.NewRequest(tt.method, "/admin/", strings.NewReader(tt.body)), tt.params...)
			rr := httptest.NewRecorder()
			tt.call(rr, asUser(req, supervisor))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestAdminIndex(t *testing.T) {
	s := newStack(t)

	rr := httptest.NewRecorder()
	s.admin.Index(rr, asUser(httptest.NewRequest(http.MethodGet, "/admin/", nil), s.manager))
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		User      string                 `json:"user"`
		Resources []service.ResourceInfo `json:"resources"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "mina", got.User)
	assert.Len(t, got.Resources, len(service.ResourceNames))
}
