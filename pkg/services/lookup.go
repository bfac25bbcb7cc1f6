package services

import (
	"context"

	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/repositories"
)

// LookupService reads back what the sync jobs stored.
type LookupService interface {
	// GetAnimal returns the animal with its identity, state, group and records.
	GetAnimal(ctx context.Context, animalID string) (*models.AnimalDetail, error)
	GetFarm(ctx context.Context, farmID string) (*models.Farm, error)
}

type lookupService struct {
	db      Database
	animals repositories.AnimalRepository
	farms   repositories.FarmRepository
}

// NewLookupService creates a read-only lookup service.
func NewLookupService(db Database, animals repositories.AnimalRepository, farms repositories.FarmRepository) LookupService {
	return &lookupService{db: db, animals: animals, farms: farms}
}

var _ LookupService = (*lookupService)(nil)

func (s *lookupService) GetAnimal(ctx context.Context, animalID string) (*models.AnimalDetail, error) {
	return s.animals.GetDetail(s.db.WithPool(ctx), animalID)
}

func (s *lookupService) GetFarm(ctx context.Context, farmID string) (*models.Farm, error) {
	return s.farms.GetByAgriID(s.db.WithPool(ctx), farmID)
}
