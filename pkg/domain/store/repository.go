// Package store declares the persistence port for cases and their artifacts.
package store

import (
	"context"

	"github.com/felixgeelhaar/blotter/pkg/domain/casefile"
	"github.com/felixgeelhaar/blotter/pkg/domain/hearing"
	"github.com/felixgeelhaar/blotter/pkg/domain/resolution"
	"github.com/felixgeelhaar/blotter/pkg/domain/timeline"
)

// Repository is the Data Store the case lifecycle reads and writes through.
// Lookups of missing rows return domain.ErrCaseNotFound or domain.ErrHearingNotFound.
type Repository interface {
	CreateCase(ctx context.Context, c *casefile.Case) error
	GetCase(ctx context.Context, id string) (*casefile.Case, error)
	FindCaseByNumber(ctx context.Context, number string) (*casefile.Case, error)
	ListCases(ctx context.Context) ([]*casefile.Case, error)
	UpdateCase(ctx context.Context, c *casefile.Case) error
	SetCaseStatus(ctx context.Context, caseID string, status casefile.Status) error

	AddArtifact(ctx context.Context, a *casefile.Artifact) error
	ListArtifacts(ctx context.Context, caseID string, kind casefile.ArtifactKind) ([]*casefile.Artifact, error)

	// Counts is a pure read of everything the timeline is derived from.
	Counts(ctx context.Context, caseID string) (timeline.Counts, error)

	CreateHearing(ctx context.Context, h *hearing.Hearing) error
	GetHearing(ctx context.Context, id string) (*hearing.Hearing, error)
	UpdateHearing(ctx context.Context, h *hearing.Hearing) error
	ListHearings(ctx context.Context, caseID string) ([]*hearing.Hearing, error)
	ListHearingsByStatus(ctx context.Context, status hearing.Status) ([]*hearing.Hearing, error)

	CreateResolution(ctx context.Context, r *resolution.Resolution) error
	ListResolutions(ctx context.Context, caseID string) ([]*resolution.Resolution, error)

	Close() error
}
