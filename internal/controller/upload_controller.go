package controller

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/unclebandit/phonathon-backend/internal/service"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

const AdminPath = "/admin/"

type UploadController struct {
	Uploads  *service.UploadService
	MaxBytes int64
	Log      *zap.Logger
}

func (c *UploadController) UploadForm(w http.ResponseWriter, r *http.Request) {
	render(w, c.Log, http.StatusOK, "upload.html", pageData{User: UserFrom(r.Context()), Models: upload.Models})
}

// Upload reconciles the posted CSV and redirects to the admin index.
// Form problems re-render the form with 400.
func (c *UploadController) Upload(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	data := pageData{User: u, Models: upload.Models}
	fail := func(msg string) {
		data.Error = msg
		render(w, c.Log, http.StatusBadRequest, "upload.html", data)
	}

	if err := c.parse(w, r); err != nil {
		fail(err.Error())
		return
	}
	data.Model = r.PostForm.Get("model")
	if data.Model == "" {
		fail("Data type: this field is required.")
		return
	}

	file, header, err := r.FormFile("uploaded_file")
	if err != nil {
		fail("Upload file: this field is required.")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		fail("Upload file: the submitted file is empty.")
		return
	}

	_, err = c.Uploads.Upload(r.Context(), service.UploadRequest{
		Model:    data.Model,
		Uploader: u.Username,
		Filename: header.Filename,
		File:     file,
	})
	if err != nil {
		c.formError(w, "upload.html", data, err)
		return
	}
	http.Redirect(w, r, AdminPath, http.StatusSeeOther)
}

func (c *UploadController) UploadPoolForm(w http.ResponseWriter, r *http.Request) {
	render(w, c.Log, http.StatusOK, "upload_pool.html", pageData{User: UserFrom(r.Context())})
}

// UploadPool reconciles a prospect CSV into a pool of an existing project.
func (c *UploadController) UploadPool(w http.ResponseWriter, r *http.Request) {
	u := UserFrom(r.Context())
	data := pageData{User: u}

	if err := c.parse(w, r); err != nil {
		data.Error = err.Error()
		render(w, c.Log, http.StatusBadRequest, "upload_pool.html", data)
		return
	}
	data.Project = strings.TrimSpace(r.PostForm.Get("project"))
	data.PoolName = strings.TrimSpace(r.PostForm.Get("pool"))

	var missing []string
	if data.Project == "" {
		missing = append(missing, "Project")
	}
	if data.PoolName == "" {
		missing = append(missing, "Pool")
	}
	file, header, err := r.FormFile("uploaded_file")
	if err != nil {
		missing = append(missing, "Upload file")
	} else {
		defer file.Close()
	}
	if len(missing) > 0 {
		data.Error = strings.Join(missing, ", ") + ": this field is required."
		render(w, c.Log, http.StatusBadRequest, "upload_pool.html", data)
		return
	}

	_, err = c.Uploads.UploadPool(r.Context(), service.PoolUploadRequest{
		Project:  data.Project,
		Pool:     data.PoolName,
		Uploader: u.Username,
		Filename: header.Filename,
		File:     file,
	})
	if err != nil {
		c.formError(w, "upload_pool.html", data, err)
		return
	}
	http.Redirect(w, r, AdminPath, http.StatusSeeOther)
}

var errTooLarge = errors.New("Upload file: the submitted file is too large.")

func (c *UploadController) parse(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, c.MaxBytes)
	if err := r.ParseMultipartForm(c.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errTooLarge
		}
		return errors.New("The form could not be read.")
	}
	return nil
}

// formError re-renders page with the error. Aborted batches are server
// errors; everything the user can fix is a 400.
func (c *UploadController) formError(w http.ResponseWriter, page string, data pageData, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		c.Log.Error("upload failed", zap.String("page", page), zap.Error(err))
		data.Error = "The upload stopped early because of a server error. Rows before the failure were saved."
	} else {
		status = http.StatusBadRequest
		data.Error = err.Error()
	}
	render(w, c.Log, status, page, data)
}
