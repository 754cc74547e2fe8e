package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/storage"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

// AttachmentStore is the persistence surface for lead attachments.
type AttachmentStore interface {
	CreateAttachment(ctx context.Context, att *repository.Attachment) error
	ListAttachments(ctx context.Context, leadID uuid.UUID) ([]repository.Attachment, error)
	GetAttachment(ctx context.Context, leadID, attachmentID uuid.UUID) (repository.Attachment, error)
	SetCoordinates(ctx context.Context, leadID uuid.UUID, lat, lng float64) error
}

// AttachmentService handles lead photo uploads. Geotagged images also set
// the lead's coordinates, which the partner view uses for travel planning.
type AttachmentService struct {
	repo   AttachmentStore
	store  storage.ObjectStore
	bucket string
	log    *logger.Logger
	now    func() time.Time
}

// NewAttachmentService creates the attachment service.
func NewAttachmentService(repo AttachmentStore, store storage.ObjectStore, cfg config.StorageConfig, log *logger.Logger) *AttachmentService {
	return &AttachmentService{
		repo:   repo,
		store:  store,
		bucket: cfg.GetMinioBucketLeadAttachments(),
		log:    log,
		now:    time.Now,
	}
}

// Upload stores a file and records it against the lead. Images are probed
// for an EXIF geotag before upload; the probe buffers the payload because
// the object store consumes the reader.
func (s *AttachmentService) Upload(ctx context.Context, leadID uuid.UUID, fileName, contentType string, r io.Reader, size int64) (repository.Attachment, error) {
	if err := s.store.ValidateContentType(contentType); err != nil {
		return repository.Attachment{}, apperr.Validation(err.Error())
	}
	if err := s.store.ValidateFileSize(size); err != nil {
		return repository.Attachment{}, apperr.Validation(err.Error())
	}

	var gps *storage.GPSCoordinates
	if storage.IsImageContentType(contentType) {
		buf, err := io.ReadAll(io.LimitReader(r, size))
		if err != nil {
			return repository.Attachment{}, apperr.BadRequest("failed to read upload")
		}
		gps, _ = storage.ExtractGPS(bytes.NewReader(buf))
		r = bytes.NewReader(buf)
	}

	folder := "leads/" + leadID.String()
	fileKey, err := s.store.UploadFile(ctx, s.bucket, folder, fileName, contentType, r, size)
	if err != nil {
		return repository.Attachment{}, apperr.Wrap(apperr.KindInternal, "failed to store attachment", err)
	}

	att := repository.Attachment{
		ID:          uuid.New(),
		LeadID:      leadID,
		FileKey:     fileKey,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateAttachment(ctx, &att); err != nil {
		return repository.Attachment{}, err
	}

	if gps != nil {
		if err := s.repo.SetCoordinates(ctx, leadID, gps.Latitude, gps.Longitude); err != nil {
			s.log.Error("failed to store lead coordinates", "leadId", leadID, "error", err)
		}
	}
	return att, nil
}

// List returns a lead's attachments with presigned download URLs.
func (s *AttachmentService) List(ctx context.Context, leadID uuid.UUID) ([]repository.Attachment, map[uuid.UUID]string, error) {
	atts, err := s.repo.ListAttachments(ctx, leadID)
	if err != nil {
		return nil, nil, err
	}

	urls := make(map[uuid.UUID]string, len(atts))
	for _, att := range atts {
		presigned, err := s.store.GenerateDownloadURL(ctx, s.bucket, att.FileKey)
		if err != nil {
			s.log.Error("failed to presign attachment", "attachmentId", att.ID, "error", err)
			continue
		}
		urls[att.ID] = presigned.URL
	}
	return atts, urls, nil
}
