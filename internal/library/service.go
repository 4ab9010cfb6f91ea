package library

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	pdfMimeType    = "application/pdf"
	maxUploadBytes = 50 * 1024 * 1024
)

type textbookRepository interface {
	Create(ctx context.Context, textbook *models.Textbook) (*models.Textbook, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Textbook, error)
	Update(ctx context.Context, textbook *models.Textbook) (*models.Textbook, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params listLibraryParams) ([]models.Textbook, *pagination.Cursor, error)
}

type gcsClient interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Service exposes the textbook library operations.
type Service interface {
	Create(ctx context.Context, input CreateTextbookInput) (*CreateTextbookOutput, error)
	FinalizeUpload(ctx context.Context, textbookID uuid.UUID, objectPath string) (*models.Textbook, error)
	Get(ctx context.Context, textbookID uuid.UUID) (*models.Textbook, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Update(ctx context.Context, textbookID uuid.UUID, input UpdateTextbookInput) (*models.Textbook, error)
	Delete(ctx context.Context, textbookID uuid.UUID) error
	DownloadURL(ctx context.Context, textbookID uuid.UUID) (*DownloadOutput, error)
}

// CreateTextbookInput carries the metadata plus the intended PDF upload.
type CreateTextbookInput struct {
	Title       string
	Subject     string
	GradeLevel  string
	Description *string
	FileName    string
	SizeBytes   int64
	UploadedBy  uuid.UUID
}

// CreateTextbookOutput returns the new row alongside the presigned target
// the client PUTs the PDF to.
type CreateTextbookOutput struct {
	Textbook     *models.Textbook `json:"textbook"`
	ObjectPath   string           `json:"object_path"`
	SignedPUTURL string           `json:"signed_put_url"`
	ContentType  string           `json:"content_type"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// UpdateTextbookInput uses pointer fields so absent values stay untouched.
type UpdateTextbookInput struct {
	Title       *string
	Subject     *string
	GradeLevel  *string
	Description *string
}

// ListInput configures the library listing.
type ListInput struct {
	Subject    string
	GradeLevel string
	Limit      int
	Cursor     string
}

// ListResult wraps a page of textbooks and the next-page cursor.
type ListResult struct {
	Items  []models.Textbook `json:"items"`
	Cursor string            `json:"cursor"`
}

// DownloadOutput carries a time-limited read URL for the stored PDF.
type DownloadOutput struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type service struct {
	repo        textbookRepository
	gcs         gcsClient
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// NewService constructs the library service backed by GCS presigned URLs.
func NewService(repo textbookRepository, gcs gcsClient, bucket string, uploadTTL, downloadTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("library repository required")
	}
	if gcs == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	if uploadTTL <= 0 || downloadTTL <= 0 {
		return nil, fmt.Errorf("presign ttls must be positive")
	}
	return &service{
		repo:        repo,
		gcs:         gcs,
		bucket:      bucket,
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateTextbookInput) (*CreateTextbookOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject required")
	}
	if strings.TrimSpace(input.GradeLevel) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "grade level required")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name required")
	}
	if !strings.EqualFold(path.Ext(fileName), ".pdf") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only PDF uploads are accepted")
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("size_bytes must not exceed %d", int64(maxUploadBytes)))
	}
	if input.UploadedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	textbook := &models.Textbook{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Subject:     strings.TrimSpace(input.Subject),
		GradeLevel:  strings.TrimSpace(input.GradeLevel),
		Description: input.Description,
		UploadedBy:  input.UploadedBy,
	}
	created, err := s.repo.Create(ctx, textbook)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist textbook")
	}

	objectPath := buildObjectPath(created.ID, fileName)
	signedURL, err := s.gcs.SignedURL(s.bucket, objectPath, pdfMimeType, s.uploadTTL)
	if err != nil {
		_ = s.repo.Delete(ctx, created.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &CreateTextbookOutput{
		Textbook:     created,
		ObjectPath:   objectPath,
		SignedPUTURL: signedURL,
		ContentType:  pdfMimeType,
		ExpiresAt:    time.Now().Add(s.uploadTTL),
	}, nil
}

// FinalizeUpload records the object path after the client's PUT succeeded.
// The path must live under the textbook's own prefix so one upload cannot
// point another entry at its file.
func (s *service) FinalizeUpload(ctx context.Context, textbookID uuid.UUID, objectPath string) (*models.Textbook, error) {
	if textbookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "textbook id required")
	}
	objectPath = strings.TrimSpace(objectPath)
	prefix := fmt.Sprintf("library/%s/", textbookID)
	if objectPath == "" || !strings.HasPrefix(objectPath, prefix) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "object path does not belong to this textbook")
	}

	textbook, err := s.load(ctx, textbookID)
	if err != nil {
		return nil, err
	}
	textbook.ObjectPath = &objectPath
	updated, err := s.repo.Update(ctx, textbook)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update textbook")
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, textbookID uuid.UUID) (*models.Textbook, error) {
	if textbookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "textbook id required")
	}
	return s.load(ctx, textbookID)
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	params := listLibraryParams{
		Subject:    strings.TrimSpace(input.Subject),
		GradeLevel: strings.TrimSpace(input.GradeLevel),
		Limit:      input.Limit,
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list textbooks")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, textbookID uuid.UUID, input UpdateTextbookInput) (*models.Textbook, error) {
	if textbookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "textbook id required")
	}
	textbook, err := s.load(ctx, textbookID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		textbook.Title = title
	}
	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject cannot be empty")
		}
		textbook.Subject = subject
	}
	if input.GradeLevel != nil {
		grade := strings.TrimSpace(*input.GradeLevel)
		if grade == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "grade level cannot be empty")
		}
		textbook.GradeLevel = grade
	}
	if input.Description != nil {
		textbook.Description = input.Description
	}

	updated, err := s.repo.Update(ctx, textbook)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update textbook")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, textbookID uuid.UUID) error {
	if textbookID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "textbook id required")
	}
	textbook, err := s.load(ctx, textbookID)
	if err != nil {
		return err
	}
	if textbook.ObjectPath != nil {
		if err := s.gcs.DeleteObject(ctx, s.bucket, *textbook.ObjectPath); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete stored pdf")
		}
	}
	if err := s.repo.Delete(ctx, textbookID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete textbook")
	}
	return nil
}

func (s *service) DownloadURL(ctx context.Context, textbookID uuid.UUID) (*DownloadOutput, error) {
	if textbookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "textbook id required")
	}
	textbook, err := s.load(ctx, textbookID)
	if err != nil {
		return nil, err
	}
	if textbook.ObjectPath == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "textbook has no uploaded file")
	}

	url, err := s.gcs.SignedReadURL(s.bucket, *textbook.ObjectPath, s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
	}
	return &DownloadOutput{
		URL:       url,
		ExpiresAt: time.Now().Add(s.downloadTTL),
	}, nil
}

func (s *service) load(ctx context.Context, textbookID uuid.UUID) (*models.Textbook, error) {
	textbook, err := s.repo.FindByID(ctx, textbookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "textbook not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load textbook")
	}
	return textbook, nil
}

func buildObjectPath(id uuid.UUID, fileName string) string {
	clean := sanitizeFileName(fileName)
	if clean == "" {
		clean = id.String() + ".pdf"
	}
	return fmt.Sprintf("library/%s/%s", id, clean)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
