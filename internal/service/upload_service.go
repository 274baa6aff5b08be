package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/phonathon-backend/internal/errors"
	"github.com/unclebandit/phonathon-backend/internal/queue"
	"github.com/unclebandit/phonathon-backend/internal/upload"
)

// UploadRequest is one CSV file for one model.
type UploadRequest struct {
	Model    string
	Uploader string
	Filename string
	File     io.Reader
}

// PoolUploadRequest is a prospect CSV destined for a pool.
type PoolUploadRequest struct {
	Project  string
	Pool     string
	Uploader string
	Filename string
	File     io.Reader
}

// UploadService decodes uploaded CSVs, runs them through the reconciler
// and publishes a report of each batch.
type UploadService struct {
	Reconciler *upload.Reconciler
	// Queue may be nil, in which case reports are only logged.
	Queue queue.Queue
	Log   *zap.Logger
}

func NewUploadService(rec *upload.Reconciler, q queue.Queue, log *zap.Logger) *UploadService {
	return &UploadService{Reconciler: rec, Queue: q, Log: nopIfNil(log).Named("uploads")}
}

// Upload reconciles a CSV for req.Model. Unknown models are rejected before
// the file is read. A malformed file is a validation error on uploaded_file.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*upload.Summary, error) {
	if !slices.Contains(upload.Models, req.Model) {
		return nil, fmt.Errorf("%w: %q", appErrors.ErrUnsupportedModel, req.Model)
	}
	recs, err := readRecords(req.File)
	if err != nil {
		return nil, err
	}

	sum, err := s.Reconciler.Upload(ctx, req.Model, recs)
	s.publish(newReport(req.Model, "", "", req.Uploader, req.Filename, len(recs), sum, err))
	return sum, err
}

// UploadPool reconciles a prospect CSV into the named pool.
func (s *UploadService) UploadPool(ctx context.Context, req PoolUploadRequest) (*upload.PoolResult, error) {
	recs, err := readRecords(req.File)
	if err != nil {
		return nil, err
	}

	res, err := s.Reconciler.UploadPool(ctx, req.Project, req.Pool, recs)
	if res == nil {
		// Nothing was reconciled: the project or pool was rejected up front.
		return nil, err
	}
	s.publish(newReport(upload.ModelPool, req.Project, req.Pool, req.Uploader, req.Filename, len(recs), res.Summary(), err))
	return res, err
}

func readRecords(r io.Reader) ([]upload.Record, error) {
	if r == nil {
		return nil, appErrors.NewValidation("Upload", "uploaded_file", "this field is required")
	}
	recs, err := upload.ReadCSV(r)
	if err != nil {
		return nil, appErrors.NewValidation("Upload", "uploaded_file", err.Error())
	}
	return recs, nil
}

func newReport(model, project, pool, uploader, filename string, rows int, sum *upload.Summary, err error) *queue.UploadReport {
	r := &queue.UploadReport{
		ID:         uuid.NewString(),
		Model:      model,
		Project:    project,
		Pool:       pool,
		Uploader:   uploader,
		Filename:   filename,
		Rows:       rows,
		FinishedAt: time.Now().UTC(),
	}
	if sum != nil {
		r.Created, r.Updated = len(sum.Created), len(sum.Updated)
		for _, s := range sum.Skipped {
			r.Skipped = append(r.Skipped, queue.SkippedRow{Line: s.Line, Kind: string(s.Kind), Error: s.Err.Error()})
		}
	}
	if err != nil {
		r.Aborted = err.Error()
	}
	return r
}

func (s *UploadService) publish(r *queue.UploadReport) {
	log := s.Log.With(zap.String("report_id", r.ID), zap.String("model", r.Model))
	if s.Queue == nil {
		log.Info("upload finished", zap.Int("created", r.Created), zap.Int("updated", r.Updated), zap.Int("skipped", len(r.Skipped)))
		return
	}
	if err := s.Queue.Publish(queue.TopicUploadReports, r); err != nil {
		// Reports are best effort.
		log.Warn("failed to publish upload report", zap.Error(err))
	}
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
