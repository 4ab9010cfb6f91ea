package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avaldezco/sazonpos-backend/api/middleware"
	"github.com/avaldezco/sazonpos-backend/api/responses"
	"github.com/avaldezco/sazonpos-backend/api/validators"
	"github.com/avaldezco/sazonpos-backend/internal/library"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

type presignTextbookRequest struct {
	Title       string  `json:"title" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	GradeLevel  string  `json:"grade_level" validate:"required"`
	Description *string `json:"description,omitempty"`
	FileName    string  `json:"file_name" validate:"required"`
	SizeBytes   int64   `json:"size_bytes" validate:"required,gt=0"`
}

type finalizeTextbookRequest struct {
	TextbookID uuid.UUID `json:"textbook_id" validate:"required"`
	ObjectPath string    `json:"object_path" validate:"required"`
}

type updateTextbookRequest struct {
	Title       *string `json:"title,omitempty"`
	Subject     *string `json:"subject,omitempty"`
	GradeLevel  *string `json:"grade_level,omitempty"`
	Description *string `json:"description,omitempty"`
}

// LibraryPresign registers a textbook and returns the signed PDF upload URL.
func LibraryPresign(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploadedBy, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload presignTextbookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), library.CreateTextbookInput{
			Title:       payload.Title,
			Subject:     payload.Subject,
			GradeLevel:  payload.GradeLevel,
			Description: payload.Description,
			FileName:    payload.FileName,
			SizeBytes:   payload.SizeBytes,
			UploadedBy:  uploadedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// LibraryFinalize confirms the client finished the PDF upload.
func LibraryFinalize(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload finalizeTextbookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		textbook, err := svc.FinalizeUpload(r.Context(), payload.TextbookID, payload.ObjectPath)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, textbook)
	}
}

// LibraryGet returns one textbook record.
func LibraryGet(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		textbookID, err := uuid.Parse(chi.URLParam(r, "textbookId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid textbook id"))
			return
		}

		textbook, err := svc.Get(r.Context(), textbookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, textbook)
	}
}

// LibraryList returns a page of textbooks filtered by subject or grade.
func LibraryList(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), library.ListInput{
			Subject:    r.URL.Query().Get("subject"),
			GradeLevel: r.URL.Query().Get("grade_level"),
			Limit:      limit,
			Cursor:     r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LibraryUpdate mutates textbook metadata.
func LibraryUpdate(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		textbookID, err := uuid.Parse(chi.URLParam(r, "textbookId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid textbook id"))
			return
		}

		var payload updateTextbookRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		textbook, err := svc.Update(r.Context(), textbookID, library.UpdateTextbookInput{
			Title:       payload.Title,
			Subject:     payload.Subject,
			GradeLevel:  payload.GradeLevel,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, textbook)
	}
}

// LibraryDelete removes the stored PDF and the textbook row.
func LibraryDelete(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		textbookID, err := uuid.Parse(chi.URLParam(r, "textbookId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid textbook id"))
			return
		}

		if err := svc.Delete(r.Context(), textbookID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// LibraryDownload returns a time-limited read URL for the stored PDF.
func LibraryDownload(svc library.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		textbookID, err := uuid.Parse(chi.URLParam(r, "textbookId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid textbook id"))
			return
		}

		result, err := svc.DownloadURL(r.Context(), textbookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
