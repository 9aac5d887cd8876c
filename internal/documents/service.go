package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-backend/internal/extract"
	"research-backend/internal/projects"
	"research-backend/internal/shared/storage/object"
	"research-backend/internal/shared/telemetry"
)

// ErrNoExtractedText is returned by Excerpt for files without extracted text.
var ErrNoExtractedText = errors.New("no extracted text")

// Service stores uploaded project files in object storage and keeps an
// extracted text copy beside each one when the format allows it.
type Service struct {
	Store object.ObjectStore
	Now   func() time.Time
}

// NewService constructs a Service.
func NewService(store object.ObjectStore) *Service {
	return &Service{Store: store, Now: time.Now}
}

var _ projects.FileStore = (*Service)(nil)

// Upload saves the file and attempts text extraction. Extraction failures are
// logged and leave ExtractedTextKey empty.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (projects.ProjectFile, error) {
	if strings.TrimSpace(fileName) == "" {
		return projects.ProjectFile{}, fmt.Errorf("%w: file name is required", projects.ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return projects.ProjectFile{}, err
	}

	file := projects.ProjectFile{
		ID:         uuid.NewString(),
		Name:       fileName,
		Size:       size,
		Type:       mimeType,
		UploadDate: s.now().UnixMilli(),
		StorageKey: storageKey,
	}

	_, extractedKey, err := extract.ExtractText(ctx, s.Store, storageKey, mimeType, fileName)
	if err != nil {
		level := telemetry.Warn
		if errors.Is(err, extract.ErrUnsupported) {
			level = telemetry.Info
		}
		level("documents.extract_skipped", map[string]any{
			"file_id":   file.ID,
			"mime_type": mimeType,
			"error":     err,
		})
		return file, nil
	}
	file.ExtractedTextKey = extractedKey
	return file, nil
}

// Remove deletes the stored object and its extracted copy.
func (s *Service) Remove(ctx context.Context, f projects.ProjectFile) error {
	var errs []error
	if f.StorageKey != "" {
		errs = append(errs, s.Store.Delete(ctx, f.StorageKey))
	}
	if f.ExtractedTextKey != "" {
		errs = append(errs, s.Store.Delete(ctx, f.ExtractedTextKey))
	}
	return errors.Join(errs...)
}

// Excerpt returns the truncated extracted text of f.
func (s *Service) Excerpt(ctx context.Context, f projects.ProjectFile) (string, error) {
	if f.ExtractedTextKey == "" {
		return "", ErrNoExtractedText
	}
	return extract.LoadExcerpt(ctx, s.Store, f.ExtractedTextKey)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
