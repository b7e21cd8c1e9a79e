package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/store"
)

// Accepted minutes documents.
var minutesTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type MinutesBackend interface {
	store.ActivityStore
	store.MinutesStore
}

type MinutesService struct {
	backend   MinutesBackend
	publisher Publisher
	logger    *applog.Logger
}

func NewMinutesService(backend MinutesBackend, publisher Publisher, logger *applog.Logger) *MinutesService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MinutesService{
		backend:   backend,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentMinutes),
	}
}

// DetectMinutesType sniffs data and returns its MIME type and extension, or
// core.ErrUnsupportedFile for anything but PDF and Word documents.
func DetectMinutesType(data []byte) (string, string, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range minutesTypes {
		if mt.Is(allowed) {
			return allowed, mt.Extension(), nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", core.ErrUnsupportedFile, mt.String())
}

func (s *MinutesService) Get(ctx context.Context, activityID int64) (core.Minutes, error) {
	return s.backend.GetMinutes(ctx, activityID)
}

func (s *MinutesService) Open(ctx context.Context, activityID int64) (core.Minutes, io.ReadCloser, error) {
	return s.backend.OpenMinutes(ctx, activityID)
}

// Upload checks the document and stores it under a generated file name that
// keeps the original's base name for readability.
func (s *MinutesService) Upload(ctx context.Context, activityID int64, fileName string, data []byte) (core.Minutes, error) {
	if len(data) == 0 {
		return core.Minutes{}, core.ErrEmptyFile
	}
	if len(data) > core.MaxMinutesSize {
		return core.Minutes{}, core.ErrFileTooLarge
	}
	contentType, ext, err := DetectMinutesType(data)
	if err != nil {
		return core.Minutes{}, err
	}
	if _, err := s.backend.GetActivity(ctx, activityID); err != nil {
		return core.Minutes{}, fmt.Errorf("get activity %d: %w", activityID, err)
	}

	m, err := s.backend.UploadMinutes(ctx, core.MinutesUpload{
		ActivityID:  activityID,
		FileName:    storedName(fileName, ext),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return core.Minutes{}, fmt.Errorf("upload minutes: %w", err)
	}

	s.logger.InfoContext(ctx, "Minutes uploaded",
		applog.FieldActivityID, activityID,
		applog.FieldFileName, m.FileName,
		applog.FieldContentType, contentType,
		applog.FieldSize, len(data))

	if s.publisher != nil {
		if err := s.publisher.PublishMinutesUploaded(ctx, activityID); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish minutes upload",
				applog.FieldActivityID, activityID,
				applog.FieldError, err)
		}
	}
	return m, nil
}

func storedName(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, base)
	if len(base) > 40 {
		base = base[:40]
	}
	id := uuid.NewString()
	if base == "" || base == "." {
		return id + ext
	}
	return id + "-" + base + ext
}
