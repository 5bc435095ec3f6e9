package port

import (
	"context"
	"errors"

	cfgpkg "swingref/domain/aggregate/config"
)

// ErrConfigProfileNotFound is returned by ConfigProfileRepository.Get
// when no profile matches the given id.
var ErrConfigProfileNotFound = errors.New("port: config profile not found")

// ConfigProfile is a named, persisted pair of DetectorConfig and
// ReferenceConfig, analogous to the teacher's TradingConfig documents.
type ConfigProfile struct {
	ID        string
	Detector  cfgpkg.DetectorConfig
	Reference cfgpkg.ReferenceConfig
}

// ConfigProfileRepository is CRUD over named DetectorConfig/
// ReferenceConfig profiles.
type ConfigProfileRepository interface {
	Create(ctx context.Context, profile ConfigProfile) error
	Get(ctx context.Context, id string) (ConfigProfile, error)
	GetAll(ctx context.Context) ([]ConfigProfile, error)
	Update(ctx context.Context, profile ConfigProfile) error
	Delete(ctx context.Context, id string) error
}
