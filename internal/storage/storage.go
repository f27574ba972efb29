// Package storage defines the persistence interface for annotations.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/anveshak/internal/models"
)

// ErrAnnotationNotFound is returned when no annotation has the requested ID.
var ErrAnnotationNotFound = errors.New("annotation not found")

// AnnotationStore defines annotation persistence operations.
type AnnotationStore interface {
	CreateAnnotation(ctx context.Context, a *models.Annotation) error
	GetAnnotation(ctx context.Context, id string) (*models.Annotation, error)
	UpdateAnnotation(ctx context.Context, id string, upd *models.AnnotationUpdate) (*models.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
	// ListAnnotations returns annotations newest first; an empty dataset lists all.
	ListAnnotations(ctx context.Context, dataset string) ([]*models.Annotation, error)

	CountAnnotations(ctx context.Context) (int64, error)

	Close() error
}
