package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/repositories"
)

// FarmIngester flattens one provider farm with its address, map features
// and fields.
type FarmIngester interface {
	Ingest(ctx context.Context, rec *agriwebb.Farm) (*models.Farm, error)
}

type farmIngester struct {
	repo   repositories.FarmRepository
	logger *zap.Logger
}

// NewFarmIngester creates an ingester writing through repo.
func NewFarmIngester(repo repositories.FarmRepository, logger *zap.Logger) FarmIngester {
	return &farmIngester{
		repo:   repo,
		logger: logger.Named("farm-ingester"),
	}
}

var _ FarmIngester = (*farmIngester)(nil)

func (s *farmIngester) Ingest(ctx context.Context, rec *agriwebb.Farm) (*models.Farm, error) {
	if rec == nil {
		return nil, &MissingFieldError{Path: "farm"}
	}
	farmID, err := requireID(rec.ID, "id")
	if err != nil {
		return nil, err
	}

	farm := &models.Farm{AgriID: farmID, Name: rec.Name, TimeZone: rec.TimeZone}

	if rec.Address != nil {
		address, err := s.ingestAddress(ctx, farmID, rec.Address)
		if err != nil {
			return nil, err
		}
		farm.AddressID = &address.ID
	}

	featureIDs := make([]uuid.UUID, 0, len(rec.MapFeatures))
	for i := range rec.MapFeatures {
		f, err := s.ingestMapFeature(ctx, indexPath("mapFeatures", i), farmID, &rec.MapFeatures[i])
		if err != nil {
			return nil, err
		}
		featureIDs = append(featureIDs, f.ID)
	}

	fieldIDs := make([]uuid.UUID, 0, len(rec.Fields))
	for i := range rec.Fields {
		f, err := s.ingestField(ctx, indexPath("fields", i), farmID, &rec.Fields[i])
		if err != nil {
			return nil, err
		}
		fieldIDs = append(fieldIDs, f.ID)
	}

	identifierIDs, err := s.ingestIdentifiers(ctx, "identifiers", rec.Identifiers)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertFarm(ctx, farm); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFarmIdentifiers(ctx, farm.ID, identifierIDs); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFarmMapFeatures(ctx, farm.ID, featureIDs); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFarmFields(ctx, farm.ID, fieldIDs); err != nil {
		return nil, err
	}

	s.logger.Debug("Ingested farm",
		zap.String("farm_id", farmID),
		zap.Int("map_features", len(featureIDs)),
		zap.Int("fields", len(fieldIDs)))

	return farm, nil
}

func (s *farmIngester) ingestAddress(ctx context.Context, farmID string, in *agriwebb.Address) (*models.Address, error) {
	locationID, err := s.point(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	address := &models.Address{
		FarmAgriID: farmID,
		Address1:   in.Address1,
		Address2:   in.Address2,
		Country:    in.Country,
		Postcode:   in.Postcode,
		Town:       in.Town,
		State:      in.State,
		LocationID: locationID,
	}
	if err := s.repo.UpsertAddress(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

// point inserts a GeoPoint when both coordinates are present.
func (s *farmIngester) point(ctx context.Context, in *agriwebb.GeoPoint) (*uuid.UUID, error) {
	if in == nil || in.Lat == nil || in.Long == nil {
		return nil, nil
	}
	p := &models.GeoPoint{Lat: *in.Lat, Long: *in.Long}
	if err := s.repo.InsertGeoPoint(ctx, p); err != nil {
		return nil, err
	}
	return &p.ID, nil
}

func (s *farmIngester) geometry(ctx context.Context, path string, in *agriwebb.GeoFeature) (*uuid.UUID, error) {
	if in == nil {
		return nil, nil
	}
	if in.Type == nil || *in.Type == "" {
		return nil, &MissingFieldError{Path: joinPath(path, "type")}
	}

	var enums enumReader
	typ := enums.read(models.GeoTypes, joinPath(path, "type"), in.Type)
	if enums.err != nil {
		return nil, enums.err
	}

	g := &models.GeoFeature{Type: *typ, Coordinates: in.Coordinates}
	if err := s.repo.InsertGeoFeature(ctx, g); err != nil {
		return nil, err
	}
	return &g.ID, nil
}

func (s *farmIngester) ingestMapFeature(ctx context.Context, path, farmID string, in *agriwebb.MapFeature) (*models.MapFeature, error) {
	agriID, err := requireID(in.ID, joinPath(path, "id"))
	if err != nil {
		return nil, err
	}

	geometryID, err := s.geometry(ctx, joinPath(path, "geometry"), in.Geometry)
	if err != nil {
		return nil, err
	}

	var alertID *uuid.UUID
	if in.Alert != nil {
		a := &models.CapacityAlert{Critical: in.Alert.Critical, Warning: in.Alert.Warning}
		if err := s.repo.InsertCapacityAlert(ctx, a); err != nil {
			return nil, err
		}
		alertID = &a.ID
	}

	var enums enumReader
	var capacity *models.Capacity
	if in.Capacity != nil {
		capPath := joinPath(path, "capacity")
		capacity = &models.Capacity{
			Mode:  enums.read(models.CapacityModes, joinPath(capPath, "mode"), in.Capacity.Mode),
			Value: in.Capacity.Value,
			Unit:  enums.read(models.DepthUnits, joinPath(capPath, "unit"), in.Capacity.Unit),
		}
	}
	featureType := enums.read(models.MapFeatureTypes, joinPath(path, "type"), in.Type)
	if enums.err != nil {
		return nil, enums.err
	}

	var capacityID *uuid.UUID
	if capacity != nil {
		if err := s.repo.InsertCapacity(ctx, capacity); err != nil {
			return nil, err
		}
		capacityID = &capacity.ID
	}

	feature := &models.MapFeature{
		AgriID:      agriID,
		Name:        in.Name,
		Description: in.Description,
		GeometryID:  geometryID,
		FarmID:      farmOrDefault(in.FarmID, farmID),
		Type:        featureType,
		AlertID:     alertID,
		CapacityID:  capacityID,
		Identifier:  in.Identifier,
	}
	if err := s.repo.UpsertMapFeature(ctx, feature); err != nil {
		return nil, err
	}
	return feature, nil
}

func (s *farmIngester) ingestField(ctx context.Context, path, farmID string, in *agriwebb.Field) (*models.Field, error) {
	agriID, err := requireID(in.ID, joinPath(path, "id"))
	if err != nil {
		return nil, err
	}

	var enums enumReader
	field := &models.Field{
		AgriID:           agriID,
		CreationDate:     in.CreationDate.Ptr(),
		LastModifiedDate: in.LastModifiedDate.Ptr(),
		Name:             in.Name,
		FarmID:           farmOrDefault(in.FarmID, farmID),
		TotalArea:        in.TotalArea,
		GrazableArea:     in.GrazableArea,
		Unit:             enums.read(models.AreaUnits, joinPath(path, "unit"), in.Unit),
		LandUse:          enums.read(models.LandUses, joinPath(path, "landUse"), in.LandUse),
		CropType:         in.CropType,
	}
	if enums.err != nil {
		return nil, enums.err
	}

	if field.LocationID, err = s.point(ctx, in.Location); err != nil {
		return nil, err
	}
	if field.GeometryID, err = s.geometry(ctx, joinPath(path, "geometry"), in.Geometry); err != nil {
		return nil, err
	}

	identifierIDs, err := s.ingestIdentifiers(ctx, joinPath(path, "identifiers"), in.Identifiers)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertField(ctx, field); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceFieldIdentifiers(ctx, field.ID, identifierIDs); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *farmIngester) ingestIdentifiers(ctx context.Context, path string, in []agriwebb.ExternalIdentifier) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(in))
	for i := range in {
		typ := derefString(in[i].Type)
		if typ == "" {
			return nil, &MissingFieldError{Path: joinPath(indexPath(path, i), "type")}
		}
		ident := &models.ExternalIdentifier{Type: typ, Value: in[i].Value}
		if err := s.repo.InsertExternalIdentifier(ctx, ident); err != nil {
			return nil, err
		}
		ids = append(ids, ident.ID)
	}
	return ids, nil
}

func farmOrDefault(id *agriwebb.ID, farmID string) *string {
	if v := optionalID(id); v != nil {
		return v
	}
	return &farmID
}
