package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TopicUploadReports carries one UploadReport per finished upload.
const TopicUploadReports = "upload_reports"

var ErrClosed = errors.New("queue is closed")

// SkippedRow is a row the reconciler logged and skipped.
type SkippedRow struct {
	Line  int    `json:"line"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// UploadReport describes what an upload did.
type UploadReport struct {
	ID       string       `json:"id"`
	Model    string       `json:"model"`
	Project  string       `json:"project,omitempty"`
	Pool     string       `json:"pool,omitempty"`
	Uploader string       `json:"uploader"`
	Filename string       `json:"filename"`
	Rows     int          `json:"rows"`
	Created  int          `json:"created"`
	Updated  int          `json:"updated"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
	// Aborted holds the error that stopped the batch, if any.
	Aborted    string    `json:"aborted,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// DecodeUploadReport accepts a report published in memory or the JSON body
// of an AMQP delivery.
func DecodeUploadReport(payload any) (*UploadReport, error) {
	switch p := payload.(type) {
	case *UploadReport:
		return p, nil
	case UploadReport:
		return &p, nil
	case []byte:
		var r UploadReport
		if err := json.Unmarshal(p, &r); err != nil {
			return nil, fmt.Errorf("decoding upload report: %w", err)
		}
		return &r, nil
	}
	return nil, fmt.Errorf("unexpected upload report payload %T", payload)
}

// StartUploadReportSubscriber logs every upload report. Reports that cannot
// be decoded are dropped without retry.
func StartUploadReportSubscriber(q Queue, log *zap.Logger) error {
	log = log.Named("reports")
	return q.Subscribe(TopicUploadReports, func(payload any) error {
		r, err := DecodeUploadReport(payload)
		if err != nil {
			log.Warn("invalid upload report", zap.Error(err))
			return nil
		}

		fields := []zap.Field{
			zap.String("id", r.ID),
			zap.String("model", r.Model),
			zap.String("uploader", r.Uploader),
			zap.String("filename", r.Filename),
			zap.Int("rows", r.Rows),
			zap.Int("created", r.Created),
			zap.Int("updated", r.Updated),
			zap.Int("skipped", len(r.Skipped)),
		}
		if r.Pool != "" {
			fields = append(fields, zap.String("project", r.Project), zap.String("pool", r.Pool))
		}
		if r.Aborted != "" {
			log.Error("upload aborted", append(fields, zap.String("error", r.Aborted))...)
			return nil
		}
		log.Info("upload report", fields...)
		for _, s := range r.Skipped {
			log.Warn("upload skipped row", zap.String("id", r.ID), zap.Int("line", s.Line), zap.String("kind", s.Kind), zap.String("error", s.Error))
		}
		return nil
	})
}
