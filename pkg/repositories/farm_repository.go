package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ranchforce/agriwebb-sync/pkg/models"
)

// FarmRepository writes the farm, field and map-feature graph. Value objects
// (points, geometries, alerts, capacities, identifiers) are insert-only.
type FarmRepository interface {
	InsertGeoPoint(ctx context.Context, p *models.GeoPoint) error
	InsertGeoFeature(ctx context.Context, g *models.GeoFeature) error
	InsertCapacityAlert(ctx context.Context, a *models.CapacityAlert) error
	InsertCapacity(ctx context.Context, c *models.Capacity) error
	InsertExternalIdentifier(ctx context.Context, id *models.ExternalIdentifier) error

	UpsertAddress(ctx context.Context, a *models.Address) error
	UpsertMapFeature(ctx context.Context, f *models.MapFeature) error
	UpsertField(ctx context.Context, f *models.Field) error
	UpsertFarm(ctx context.Context, f *models.Farm) error

	ReplaceFieldIdentifiers(ctx context.Context, fieldID uuid.UUID, identifierIDs []uuid.UUID) error
	ReplaceFarmIdentifiers(ctx context.Context, farmID uuid.UUID, identifierIDs []uuid.UUID) error
	ReplaceFarmMapFeatures(ctx context.Context, farmID uuid.UUID, featureIDs []uuid.UUID) error
	ReplaceFarmFields(ctx context.Context, farmID uuid.UUID, fieldIDs []uuid.UUID) error

	GetByAgriID(ctx context.Context, agriID string) (*models.Farm, error)
}

type farmRepository struct{}

// NewFarmRepository creates a new farm repository.
func NewFarmRepository() FarmRepository {
	return &farmRepository{}
}

var _ FarmRepository = (*farmRepository)(nil)

func (r *farmRepository) InsertGeoPoint(ctx context.Context, p *models.GeoPoint) error {
	return upsertReturningID(ctx, "geo point",
		`INSERT INTO agw_geo_points (lat, long) VALUES ($1, $2) RETURNING id`,
		&p.ID, p.Lat, p.Long)
}

func (r *farmRepository) InsertGeoFeature(ctx context.Context, g *models.GeoFeature) error {
	coords := []byte(g.Coordinates)
	if len(coords) == 0 {
		coords = []byte("[]")
	}
	return upsertReturningID(ctx, "geo feature",
		`INSERT INTO agw_geo_features (type, coordinates) VALUES ($1, $2::jsonb) RETURNING id`,
		&g.ID, g.Type, string(coords))
}

func (r *farmRepository) InsertCapacityAlert(ctx context.Context, a *models.CapacityAlert) error {
	return upsertReturningID(ctx, "capacity alert",
		`INSERT INTO agw_capacity_alerts (critical, warning) VALUES ($1, $2) RETURNING id`,
		&a.ID, a.Critical, a.Warning)
}

func (r *farmRepository) InsertCapacity(ctx context.Context, c *models.Capacity) error {
	return upsertReturningID(ctx, "capacity",
		`INSERT INTO agw_capacities (mode, value, unit) VALUES ($1, $2, $3) RETURNING id`,
		&c.ID, c.Mode, c.Value, c.Unit)
}

func (r *farmRepository) InsertExternalIdentifier(ctx context.Context, id *models.ExternalIdentifier) error {
	values := id.Value
	if values == nil {
		values = []string{}
	}
	return upsertReturningID(ctx, "external identifier",
		`INSERT INTO agw_external_identifiers (type, value) VALUES ($1, $2) RETURNING id`,
		&id.ID, id.Type, values)
}

func (r *farmRepository) UpsertAddress(ctx context.Context, a *models.Address) error {
	query := `
		INSERT INTO agw_addresses (farm_agri_id, address1, address2, country, postcode, town,
			state, location_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (farm_agri_id) DO UPDATE
		SET address1 = EXCLUDED.address1,
		    address2 = EXCLUDED.address2,
		    country = EXCLUDED.country,
		    postcode = EXCLUDED.postcode,
		    town = EXCLUDED.town,
		    state = EXCLUDED.state,
		    location_id = EXCLUDED.location_id,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "address", query, &a.ID,
		a.FarmAgriID, a.Address1, a.Address2, a.Country, a.Postcode, a.Town, a.State, a.LocationID)
}

func (r *farmRepository) UpsertMapFeature(ctx context.Context, f *models.MapFeature) error {
	query := `
		INSERT INTO agw_map_features (agri_id, name, description, geometry_id, farm_id, type,
			alert_id, capacity_id, identifier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (agri_id) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    geometry_id = EXCLUDED.geometry_id,
		    farm_id = EXCLUDED.farm_id,
		    type = EXCLUDED.type,
		    alert_id = EXCLUDED.alert_id,
		    capacity_id = EXCLUDED.capacity_id,
		    identifier = EXCLUDED.identifier,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "map feature", query, &f.ID,
		f.AgriID, f.Name, f.Description, f.GeometryID, f.FarmID, f.Type, f.AlertID, f.CapacityID,
		f.Identifier)
}

func (r *farmRepository) UpsertField(ctx context.Context, f *models.Field) error {
	query := `
		INSERT INTO agw_fields (agri_id, creation_date, last_modified_date, name, location_id,
			geometry_id, farm_id, total_area, grazable_area, unit, land_use, crop_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (agri_id) DO UPDATE
		SET creation_date = EXCLUDED.creation_date,
		    last_modified_date = EXCLUDED.last_modified_date,
		    name = EXCLUDED.name,
		    location_id = EXCLUDED.location_id,
		    geometry_id = EXCLUDED.geometry_id,
		    farm_id = EXCLUDED.farm_id,
		    total_area = EXCLUDED.total_area,
		    grazable_area = EXCLUDED.grazable_area,
		    unit = EXCLUDED.unit,
		    land_use = EXCLUDED.land_use,
		    crop_type = EXCLUDED.crop_type,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "field", query, &f.ID,
		f.AgriID, f.CreationDate, f.LastModifiedDate, f.Name, f.LocationID, f.GeometryID, f.FarmID,
		f.TotalArea, f.GrazableArea, f.Unit, f.LandUse, f.CropType)
}

func (r *farmRepository) UpsertFarm(ctx context.Context, f *models.Farm) error {
	query := `
		INSERT INTO agw_farms (agri_id, name, address_id, time_zone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (agri_id) DO UPDATE
		SET name = EXCLUDED.name,
		    address_id = EXCLUDED.address_id,
		    time_zone = EXCLUDED.time_zone,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "farm", query, &f.ID, f.AgriID, f.Name, f.AddressID, f.TimeZone)
}

func (r *farmRepository) ReplaceFieldIdentifiers(ctx context.Context, fieldID uuid.UUID, identifierIDs []uuid.UUID) error {
	return replaceLinks(ctx, "agw_field_identifiers", "field_ref", "identifier_ref", fieldID, identifierIDs)
}

func (r *farmRepository) ReplaceFarmIdentifiers(ctx context.Context, farmID uuid.UUID, identifierIDs []uuid.UUID) error {
	return replaceLinks(ctx, "agw_farm_identifiers", "farm_ref", "identifier_ref", farmID, identifierIDs)
}

func (r *farmRepository) ReplaceFarmMapFeatures(ctx context.Context, farmID uuid.UUID, featureIDs []uuid.UUID) error {
	return replaceLinks(ctx, "agw_farm_map_features", "farm_ref", "map_feature_ref", farmID, featureIDs)
}

func (r *farmRepository) ReplaceFarmFields(ctx context.Context, farmID uuid.UUID, fieldIDs []uuid.UUID) error {
	return replaceLinks(ctx, "agw_farm_fields", "farm_ref", "field_ref", farmID, fieldIDs)
}

func (r *farmRepository) GetByAgriID(ctx context.Context, agriID string) (*models.Farm, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	var f models.Farm
	err = scope.QueryRow(ctx,
		`SELECT id, agri_id, name, address_id, time_zone FROM agw_farms WHERE agri_id = $1`,
		agriID).Scan(&f.ID, &f.AgriID, &f.Name, &f.AddressID, &f.TimeZone)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("farm %s", agriID))
	}
	return &f, nil
}
