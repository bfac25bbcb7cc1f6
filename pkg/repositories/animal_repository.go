package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/database"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
)

// AnimalRepository writes the livestock graph. Every Upsert keys on the
// entity's natural key and sets the row ID on the passed struct.
type AnimalRepository interface {
	UpsertTag(ctx context.Context, tag *models.AnimalTag) error
	UpsertIdentity(ctx context.Context, identity *models.AnimalIdentity) error
	// ReplaceIdentityTags makes tagIDs the complete tag set of the identity.
	ReplaceIdentityTags(ctx context.Context, identityID uuid.UUID, tagIDs []uuid.UUID) error
	GetOrCreateDateConfidence(ctx context.Context, dc *models.DateConfidence) error
	UpsertCharacteristics(ctx context.Context, c *models.AnimalCharacteristics) error
	UpsertParentIdentity(ctx context.Context, p *models.ParentAnimalIdentity) error
	UpsertParent(ctx context.Context, p *models.Parent) error
	// UpsertParentage saves the aggregate and replaces its dam and sire links.
	UpsertParentage(ctx context.Context, p *models.Parentage) error
	// InsertMeasurement always creates a new row.
	InsertMeasurement(ctx context.Context, m *models.Measurement) error
	UpsertWeightSummary(ctx context.Context, s *models.AnimalWeightSummary) error
	UpsertState(ctx context.Context, s *models.AnimalState) error
	UpsertEnterprise(ctx context.Context, e *models.Enterprise) error
	UpsertManagementGroup(ctx context.Context, g *models.ManagementGroup) error
	UpsertAnimal(ctx context.Context, a *models.Animal) error
	UpsertRecord(ctx context.Context, rec *models.AnimalRecord) error
	LinkRecord(ctx context.Context, animalRef, recordRef uuid.UUID) error

	GetDetail(ctx context.Context, animalID string) (*models.AnimalDetail, error)
}

type animalRepository struct{}

// NewAnimalRepository creates a new animal repository.
func NewAnimalRepository() AnimalRepository {
	return &animalRepository{}
}

var _ AnimalRepository = (*animalRepository)(nil)

var measurementTables = map[models.MeasurementKind]string{
	models.MeasurementWeightGain:     "agw_weight_gains",
	models.MeasurementWeight:         "agw_weights",
	models.MeasurementConditionScore: "agw_condition_scores",
	models.MeasurementAnimalUnit:     "agw_animal_units",
}

var parentTables = map[models.ParentRole]string{
	models.ParentRoleGenetic:   "agw_genetic_parents",
	models.ParentRoleSurrogate: "agw_surrogates",
}

// upsertReturningID runs an INSERT ... RETURNING id and stores the id in dst.
func upsertReturningID(ctx context.Context, entity, query string, dst *uuid.UUID, args ...any) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}
	if err := scope.QueryRow(ctx, query, args...).Scan(dst); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", entity, err)
	}
	return nil
}

// replaceLinks deletes every row of table owned by ownerID and inserts one
// row per id in ids.
func replaceLinks(ctx context.Context, table, ownerCol, refCol string, ownerID uuid.UUID, ids []uuid.UUID) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	if _, err := scope.Exec(ctx, `DELETE FROM `+table+` WHERE `+ownerCol+` = $1`, ownerID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if len(ids) == 0 {
		return nil
	}

	query := `INSERT INTO ` + table + ` (` + ownerCol + `, ` + refCol + `)
		SELECT $1::uuid, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`
	if _, err := scope.Exec(ctx, query, ownerID, ids); err != nil {
		return fmt.Errorf("failed to link %s: %w", table, err)
	}
	return nil
}

func (r *animalRepository) UpsertTag(ctx context.Context, t *models.AnimalTag) error {
	query := `
		INSERT INTO agw_animal_tags (agri_id, eid, vid, management_tag, uhf_eid, dna_id,
			registration_number, breed_society_id, health_id, tag_id, tag_color_catalogue_id,
			type, state, removal_date, replacement_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (agri_id) DO UPDATE
		SET eid = EXCLUDED.eid,
		    vid = EXCLUDED.vid,
		    management_tag = EXCLUDED.management_tag,
		    uhf_eid = EXCLUDED.uhf_eid,
		    dna_id = EXCLUDED.dna_id,
		    registration_number = EXCLUDED.registration_number,
		    breed_society_id = EXCLUDED.breed_society_id,
		    health_id = EXCLUDED.health_id,
		    tag_id = EXCLUDED.tag_id,
		    tag_color_catalogue_id = EXCLUDED.tag_color_catalogue_id,
		    type = EXCLUDED.type,
		    state = EXCLUDED.state,
		    removal_date = EXCLUDED.removal_date,
		    replacement_date = EXCLUDED.replacement_date,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "animal tag", query, &t.ID,
		t.AgriID, t.EID, t.VID, t.ManagementTag, t.UHFEID, t.DNAID,
		t.RegistrationNumber, t.BreedSocietyID, t.HealthID, t.TagID, t.TagColorCatalogueID,
		t.Type, t.State, t.RemovalDate, t.ReplacementDate)
}

func (r *animalRepository) UpsertIdentity(ctx context.Context, i *models.AnimalIdentity) error {
	query := `
		INSERT INTO agw_animal_identities (animal_id, name, eid, vid, management_tag, brand,
			tattoo, tag_color_catalogue_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (animal_id) DO UPDATE
		SET name = EXCLUDED.name,
		    eid = EXCLUDED.eid,
		    vid = EXCLUDED.vid,
		    management_tag = EXCLUDED.management_tag,
		    brand = EXCLUDED.brand,
		    tattoo = EXCLUDED.tattoo,
		    tag_color_catalogue_id = EXCLUDED.tag_color_catalogue_id,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "animal identity", query, &i.ID,
		i.AnimalID, i.Name, i.EID, i.VID, i.ManagementTag, i.Brand, i.Tattoo, i.TagColorCatalogueID)
}

func (r *animalRepository) ReplaceIdentityTags(ctx context.Context, identityID uuid.UUID, tagIDs []uuid.UUID) error {
	return replaceLinks(ctx, "agw_animal_identity_tags", "identity_id", "tag_id", identityID, tagIDs)
}

// GetOrCreateDateConfidence never modifies an existing triple, so the
// conflict branch is a no-op update that still returns the id.
func (r *animalRepository) GetOrCreateDateConfidence(ctx context.Context, dc *models.DateConfidence) error {
	query := `
		INSERT INTO agw_date_confidences (year, month, day)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT agw_date_confidences_triple_key DO UPDATE
		SET year = EXCLUDED.year
		RETURNING id`

	return upsertReturningID(ctx, "date confidence", query, &dc.ID, dc.Year, dc.Month, dc.Day)
}

func (r *animalRepository) UpsertCharacteristics(ctx context.Context, c *models.AnimalCharacteristics) error {
	query := `
		INSERT INTO agw_animal_characteristics (animal_id, age_class, birth_date,
			birth_date_confidence_id, birth_date_accuracy, birth_location_id, birth_year,
			breed_assessed, visual_color, sex, species_common_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (animal_id) DO UPDATE
		SET age_class = EXCLUDED.age_class,
		    birth_date = EXCLUDED.birth_date,
		    birth_date_confidence_id = EXCLUDED.birth_date_confidence_id,
		    birth_date_accuracy = EXCLUDED.birth_date_accuracy,
		    birth_location_id = EXCLUDED.birth_location_id,
		    birth_year = EXCLUDED.birth_year,
		    breed_assessed = EXCLUDED.breed_assessed,
		    visual_color = EXCLUDED.visual_color,
		    sex = EXCLUDED.sex,
		    species_common_name = EXCLUDED.species_common_name,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "animal characteristics", query, &c.ID,
		c.AnimalID, c.AgeClass, c.BirthDate, c.BirthDateConfidenceID, c.BirthDateAccuracy,
		c.BirthLocationID, c.BirthYear, c.BreedAssessed, c.VisualColor, c.Sex, c.SpeciesCommonName)
}

func (r *animalRepository) UpsertParentIdentity(ctx context.Context, p *models.ParentAnimalIdentity) error {
	query := `
		INSERT INTO agw_parent_animal_identities (parent_animal_id, eid, vid, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (parent_animal_id) DO UPDATE
		SET eid = EXCLUDED.eid,
		    vid = EXCLUDED.vid,
		    name = EXCLUDED.name,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "parent animal identity", query, &p.ID,
		p.ParentAnimalID, p.EID, p.VID, p.Name)
}

func (r *animalRepository) UpsertParent(ctx context.Context, p *models.Parent) error {
	table, ok := parentTables[p.Role]
	if !ok {
		return fmt.Errorf("unknown parent role %q", p.Role)
	}

	query := `
		INSERT INTO ` + table + ` (parent_animal_id, parent_animal_identity_id, parent_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (parent_animal_id) DO UPDATE
		SET parent_animal_identity_id = EXCLUDED.parent_animal_identity_id,
		    parent_type = EXCLUDED.parent_type,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, string(p.Role)+" parent", query, &p.ID,
		p.ParentAnimalID, p.ParentAnimalIdentityID, p.ParentType)
}

func (r *animalRepository) UpsertParentage(ctx context.Context, p *models.Parentage) error {
	query := `
		INSERT INTO agw_parentages (animal_id, surrogate_id)
		VALUES ($1, $2)
		ON CONFLICT (animal_id) DO UPDATE
		SET surrogate_id = EXCLUDED.surrogate_id,
		    updated_at = now()
		RETURNING id`

	if err := upsertReturningID(ctx, "parentage", query, &p.ID, p.AnimalID, p.SurrogateID); err != nil {
		return err
	}
	if err := replaceLinks(ctx, "agw_parentage_dams", "parentage_id", "genetic_parent_id", p.ID, p.DamIDs); err != nil {
		return err
	}
	return replaceLinks(ctx, "agw_parentage_sires", "parentage_id", "genetic_parent_id", p.ID, p.SireIDs)
}

func (r *animalRepository) InsertMeasurement(ctx context.Context, m *models.Measurement) error {
	table, ok := measurementTables[m.Kind]
	if !ok {
		return fmt.Errorf("unknown measurement kind %q", m.Kind)
	}

	query := `INSERT INTO ` + table + ` (unit, value) VALUES ($1, $2) RETURNING id`
	return upsertReturningID(ctx, string(m.Kind), query, &m.ID, m.Unit, m.Value)
}

func (r *animalRepository) UpsertWeightSummary(ctx context.Context, s *models.AnimalWeightSummary) error {
	query := `
		INSERT INTO agw_animal_weight_summaries (animal_id, live_average_daily_gain_id,
			overall_average_daily_gain_id, assumed_average_daily_gain_id, live_weight_date,
			live_weight_id, estimated_weight_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (animal_id) DO UPDATE
		SET live_average_daily_gain_id = EXCLUDED.live_average_daily_gain_id,
		    overall_average_daily_gain_id = EXCLUDED.overall_average_daily_gain_id,
		    assumed_average_daily_gain_id = EXCLUDED.assumed_average_daily_gain_id,
		    live_weight_date = EXCLUDED.live_weight_date,
		    live_weight_id = EXCLUDED.live_weight_id,
		    estimated_weight_id = EXCLUDED.estimated_weight_id,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "weight summary", query, &s.ID,
		s.AnimalID, s.LiveAverageDailyGainID, s.OverallAverageDailyGainID, s.AssumedAverageDailyGainID,
		s.LiveWeightDate, s.LiveWeightID, s.EstimatedWeightID)
}

func (r *animalRepository) UpsertState(ctx context.Context, s *models.AnimalState) error {
	query := `
		INSERT INTO agw_animal_states (animal_id, current_location_id, on_farm, on_farm_date,
			last_seen, days_reared, off_farm_date, disposal_method, fate, fertility_status,
			rearing_rank, reproductive_status, status_date, withholding_date_meat,
			withholding_date_export, withholding_date_organic, weaned, offspring_count,
			weights_id, body_condition_score_id, body_condition_score_date, animal_units_id,
			has_had_offspring)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23)
		ON CONFLICT (animal_id) DO UPDATE
		SET current_location_id = EXCLUDED.current_location_id,
		    on_farm = EXCLUDED.on_farm,
		    on_farm_date = EXCLUDED.on_farm_date,
		    last_seen = EXCLUDED.last_seen,
		    days_reared = EXCLUDED.days_reared,
		    off_farm_date = EXCLUDED.off_farm_date,
		    disposal_method = EXCLUDED.disposal_method,
		    fate = EXCLUDED.fate,
		    fertility_status = EXCLUDED.fertility_status,
		    rearing_rank = EXCLUDED.rearing_rank,
		    reproductive_status = EXCLUDED.reproductive_status,
		    status_date = EXCLUDED.status_date,
		    withholding_date_meat = EXCLUDED.withholding_date_meat,
		    withholding_date_export = EXCLUDED.withholding_date_export,
		    withholding_date_organic = EXCLUDED.withholding_date_organic,
		    weaned = EXCLUDED.weaned,
		    offspring_count = EXCLUDED.offspring_count,
		    weights_id = EXCLUDED.weights_id,
		    body_condition_score_id = EXCLUDED.body_condition_score_id,
		    body_condition_score_date = EXCLUDED.body_condition_score_date,
		    animal_units_id = EXCLUDED.animal_units_id,
		    has_had_offspring = EXCLUDED.has_had_offspring,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "animal state", query, &s.ID,
		s.AnimalID, s.CurrentLocationID, s.OnFarm, s.OnFarmDate, s.LastSeen, s.DaysReared,
		s.OffFarmDate, s.DisposalMethod, s.Fate, s.FertilityStatus, s.RearingRank,
		s.ReproductiveStatus, s.StatusDate, s.WithholdingDateMeat, s.WithholdingDateExport,
		s.WithholdingDateOrganic, s.Weaned, s.OffspringCount, s.WeightsID, s.BodyConditionScoreID,
		s.BodyConditionScoreDate, s.AnimalUnitsID, s.HasHadOffspring)
}

// UpsertEnterprise keeps stored values for fields the payload left out,
// since enterprises are shared and often referenced by id alone.
func (r *animalRepository) UpsertEnterprise(ctx context.Context, e *models.Enterprise) error {
	query := `
		INSERT INTO agw_enterprises (enterprise_id, name, farm_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (enterprise_id) DO UPDATE
		SET name = COALESCE(EXCLUDED.name, agw_enterprises.name),
		    farm_id = COALESCE(EXCLUDED.farm_id, agw_enterprises.farm_id),
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "enterprise", query, &e.ID, e.EnterpriseID, e.Name, e.FarmID)
}

// UpsertManagementGroup follows the same shared-entity rule as UpsertEnterprise.
func (r *animalRepository) UpsertManagementGroup(ctx context.Context, g *models.ManagementGroup) error {
	query := `
		INSERT INTO agw_management_groups (management_group_id, enterprise_id, enterprise_ref,
			farm_id, name, species, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (management_group_id) DO UPDATE
		SET enterprise_id = COALESCE(EXCLUDED.enterprise_id, agw_management_groups.enterprise_id),
		    enterprise_ref = COALESCE(EXCLUDED.enterprise_ref, agw_management_groups.enterprise_ref),
		    farm_id = COALESCE(EXCLUDED.farm_id, agw_management_groups.farm_id),
		    name = COALESCE(EXCLUDED.name, agw_management_groups.name),
		    species = COALESCE(EXCLUDED.species, agw_management_groups.species),
		    type = COALESCE(EXCLUDED.type, agw_management_groups.type),
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "management group", query, &g.ID,
		g.ManagementGroupID, g.EnterpriseID, g.EnterpriseRef, g.FarmID, g.Name, g.Species, g.Type)
}

func (r *animalRepository) UpsertAnimal(ctx context.Context, a *models.Animal) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agw_animals (animal_id, farm_id, age_class, identity_id, characteristics_id,
			parentage_id, state_id, management_group_id, management_group_ref, enterprise_id,
			enterprise_ref, purchased_from, purchase_location_id, creation_record_group_id,
			creation_record_id, birthing_record_id, purchase_record_id, sale_record_id,
			observation_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (animal_id) DO UPDATE
		SET farm_id = EXCLUDED.farm_id,
		    age_class = EXCLUDED.age_class,
		    identity_id = EXCLUDED.identity_id,
		    characteristics_id = EXCLUDED.characteristics_id,
		    parentage_id = EXCLUDED.parentage_id,
		    state_id = EXCLUDED.state_id,
		    management_group_id = EXCLUDED.management_group_id,
		    management_group_ref = EXCLUDED.management_group_ref,
		    enterprise_id = EXCLUDED.enterprise_id,
		    enterprise_ref = EXCLUDED.enterprise_ref,
		    purchased_from = EXCLUDED.purchased_from,
		    purchase_location_id = EXCLUDED.purchase_location_id,
		    creation_record_group_id = EXCLUDED.creation_record_group_id,
		    creation_record_id = EXCLUDED.creation_record_id,
		    birthing_record_id = EXCLUDED.birthing_record_id,
		    purchase_record_id = EXCLUDED.purchase_record_id,
		    sale_record_id = EXCLUDED.sale_record_id,
		    observation_date = EXCLUDED.observation_date,
		    updated_at = now()
		RETURNING id, created_at, updated_at`

	err = scope.QueryRow(ctx, query,
		a.AnimalID, a.FarmID, a.AgeClass, a.IdentityID, a.CharacteristicsID,
		a.ParentageID, a.StateID, a.ManagementGroupID, a.ManagementGroupRef, a.EnterpriseID,
		a.EnterpriseRef, a.PurchasedFrom, a.PurchaseLocationID, a.CreationRecordGroupID,
		a.CreationRecordID, a.BirthingRecordID, a.PurchaseRecordID, a.SaleRecordID,
		a.ObservationDate,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert animal: %w", err)
	}
	return nil
}

func (r *animalRepository) UpsertRecord(ctx context.Context, rec *models.AnimalRecord) error {
	query := `
		INSERT INTO agw_animal_records (record_id, record_type, observation_date, session_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (record_id) DO UPDATE
		SET record_type = EXCLUDED.record_type,
		    observation_date = EXCLUDED.observation_date,
		    session_id = EXCLUDED.session_id,
		    updated_at = now()
		RETURNING id`

	return upsertReturningID(ctx, "animal record", query, &rec.ID,
		rec.RecordID, rec.RecordType, rec.ObservationDate, rec.SessionID)
}

func (r *animalRepository) LinkRecord(ctx context.Context, animalRef, recordRef uuid.UUID) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	_, err = scope.Exec(ctx, `
		INSERT INTO agw_animal_record_links (animal_ref, record_ref)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, animalRef, recordRef)
	if err != nil {
		return fmt.Errorf("failed to link animal record: %w", err)
	}
	return nil
}

// GetDetail loads an animal with its identity, tags, characteristics,
// state, group, enterprise and records.
func (r *animalRepository) GetDetail(ctx context.Context, animalID string) (*models.AnimalDetail, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	a, err := scanAnimal(scope.QueryRow(ctx, `
		SELECT id, animal_id, farm_id, age_class, identity_id, characteristics_id, parentage_id,
		       state_id, management_group_id, management_group_ref, enterprise_id, enterprise_ref,
		       purchased_from, purchase_location_id, creation_record_group_id, creation_record_id,
		       birthing_record_id, purchase_record_id, sale_record_id, observation_date,
		       created_at, updated_at
		FROM agw_animals WHERE animal_id = $1`, animalID))
	if err != nil {
		return nil, err
	}

	detail := &models.AnimalDetail{Animal: a, Tags: []*models.AnimalTag{}, Records: []*models.AnimalRecord{}}

	if a.IdentityID != nil {
		if detail.Identity, err = getIdentity(ctx, scope, *a.IdentityID); err != nil {
			return nil, err
		}
		if detail.Tags, err = listIdentityTags(ctx, scope, *a.IdentityID); err != nil {
			return nil, err
		}
	}
	if a.CharacteristicsID != nil {
		if detail.Characteristics, err = getCharacteristics(ctx, scope, *a.CharacteristicsID); err != nil {
			return nil, err
		}
	}
	if a.StateID != nil {
		if detail.State, err = getState(ctx, scope, *a.StateID); err != nil {
			return nil, err
		}
	}
	if a.ManagementGroupRef != nil {
		if detail.ManagementGroup, err = getManagementGroup(ctx, scope, *a.ManagementGroupRef); err != nil {
			return nil, err
		}
	}
	if a.EnterpriseRef != nil {
		if detail.Enterprise, err = getEnterprise(ctx, scope, *a.EnterpriseRef); err != nil {
			return nil, err
		}
	}
	if detail.Records, err = listAnimalRecords(ctx, scope, a.ID); err != nil {
		return nil, err
	}

	return detail, nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func scanAnimal(row pgx.Row) (*models.Animal, error) {
	var a models.Animal
	err := row.Scan(
		&a.ID, &a.AnimalID, &a.FarmID, &a.AgeClass, &a.IdentityID, &a.CharacteristicsID,
		&a.ParentageID, &a.StateID, &a.ManagementGroupID, &a.ManagementGroupRef, &a.EnterpriseID,
		&a.EnterpriseRef, &a.PurchasedFrom, &a.PurchaseLocationID, &a.CreationRecordGroupID,
		&a.CreationRecordID, &a.BirthingRecordID, &a.PurchaseRecordID, &a.SaleRecordID,
		&a.ObservationDate, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "animal")
	}
	return &a, nil
}

func getIdentity(ctx context.Context, scope database.Querier, id uuid.UUID) (*models.AnimalIdentity, error) {
	var i models.AnimalIdentity
	err := scope.QueryRow(ctx, `
		SELECT id, animal_id, name, eid, vid, management_tag, brand, tattoo, tag_color_catalogue_id
		FROM agw_animal_identities WHERE id = $1`, id).Scan(
		&i.ID, &i.AnimalID, &i.Name, &i.EID, &i.VID, &i.ManagementTag, &i.Brand, &i.Tattoo,
		&i.TagColorCatalogueID)
	if err != nil {
		return nil, notFoundOr(err, "animal identity")
	}
	return &i, nil
}

func listIdentityTags(ctx context.Context, scope database.Querier, identityID uuid.UUID) ([]*models.AnimalTag, error) {
	rows, err := scope.Query(ctx, `
		SELECT t.id, t.agri_id, t.eid, t.vid, t.management_tag, t.uhf_eid, t.dna_id,
		       t.registration_number, t.breed_society_id, t.health_id, t.tag_id,
		       t.tag_color_catalogue_id, t.type, t.state, t.removal_date, t.replacement_date
		FROM agw_animal_tags t
		JOIN agw_animal_identity_tags it ON it.tag_id = t.id
		WHERE it.identity_id = $1
		ORDER BY t.agri_id`, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list animal tags: %w", err)
	}
	defer rows.Close()

	tags := []*models.AnimalTag{}
	for rows.Next() {
		var t models.AnimalTag
		if err := rows.Scan(&t.ID, &t.AgriID, &t.EID, &t.VID, &t.ManagementTag, &t.UHFEID, &t.DNAID,
			&t.RegistrationNumber, &t.BreedSocietyID, &t.HealthID, &t.TagID, &t.TagColorCatalogueID,
			&t.Type, &t.State, &t.RemovalDate, &t.ReplacementDate); err != nil {
			return nil, fmt.Errorf("failed to scan animal tag: %w", err)
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

func getCharacteristics(ctx context.Context, scope database.Querier, id uuid.UUID) (*models.AnimalCharacteristics, error) {
	var c models.AnimalCharacteristics
	err := scope.QueryRow(ctx, `
		SELECT id, animal_id, age_class, birth_date, birth_date_confidence_id, birth_date_accuracy,
		       birth_location_id, birth_year, breed_assessed, visual_color, sex, species_common_name
		FROM agw_animal_characteristics WHERE id = $1`, id).Scan(
		&c.ID, &c.AnimalID, &c.AgeClass, &c.BirthDate, &c.BirthDateConfidenceID, &c.BirthDateAccuracy,
		&c.BirthLocationID, &c.BirthYear, &c.BreedAssessed, &c.VisualColor, &c.Sex, &c.SpeciesCommonName)
	if err != nil {
		return nil, notFoundOr(err, "animal characteristics")
	}
	return &c, nil
}

func getState(ctx context.Context, scope database.Querier, id uuid.UUID) (*models.AnimalState, error) {
	var s models.AnimalState
	err := scope.QueryRow(ctx, `
		SELECT id, animal_id, current_location_id, on_farm, on_farm_date, last_seen, days_reared,
		       off_farm_date, disposal_method, fate, fertility_status, rearing_rank,
		       reproductive_status, status_date, withholding_date_meat, withholding_date_export,
		       withholding_date_organic, weaned, offspring_count, weights_id,
		       body_condition_score_id, body_condition_score_date, animal_units_id, has_had_offspring
		FROM agw_animal_states WHERE id = $1`, id).Scan(
		&s.ID, &s.AnimalID, &s.CurrentLocationID, &s.OnFarm, &s.OnFarmDate, &s.LastSeen, &s.DaysReared,
		&s.OffFarmDate, &s.DisposalMethod, &s.Fate, &s.FertilityStatus, &s.RearingRank,
		&s.ReproductiveStatus, &s.StatusDate, &s.WithholdingDateMeat, &s.WithholdingDateExport,
		&s.WithholdingDateOrganic, &s.Weaned, &s.OffspringCount, &s.WeightsID,
		&s.BodyConditionScoreID, &s.BodyConditionScoreDate, &s.AnimalUnitsID, &s.HasHadOffspring)
	if err != nil {
		return nil, notFoundOr(err, "animal state")
	}
	return &s, nil
}

func getManagementGroup(ctx context.Context, scope database.Querier, id uuid.UUID) (*models.ManagementGroup, error) {
	var g models.ManagementGroup
	err := scope.QueryRow(ctx, `
		SELECT id, management_group_id, enterprise_id, enterprise_ref, farm_id, name, species, type
		FROM agw_management_groups WHERE id = $1`, id).Scan(
		&g.ID, &g.ManagementGroupID, &g.EnterpriseID, &g.EnterpriseRef, &g.FarmID, &g.Name,
		&g.Species, &g.Type)
	if err != nil {
		return nil, notFoundOr(err, "management group")
	}
	return &g, nil
}

func getEnterprise(ctx context.Context, scope database.Querier, id uuid.UUID) (*models.Enterprise, error) {
	var e models.Enterprise
	err := scope.QueryRow(ctx, `
		SELECT id, enterprise_id, name, farm_id FROM agw_enterprises WHERE id = $1`, id).Scan(
		&e.ID, &e.EnterpriseID, &e.Name, &e.FarmID)
	if err != nil {
		return nil, notFoundOr(err, "enterprise")
	}
	return &e, nil
}

func listAnimalRecords(ctx context.Context, scope database.Querier, animalRef uuid.UUID) ([]*models.AnimalRecord, error) {
	rows, err := scope.Query(ctx, `
		SELECT r.id, r.record_id, r.record_type, r.observation_date, r.session_id
		FROM agw_animal_records r
		JOIN agw_animal_record_links l ON l.record_ref = r.id
		WHERE l.animal_ref = $1
		ORDER BY r.observation_date NULLS LAST, r.record_id`, animalRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list animal records: %w", err)
	}
	defer rows.Close()

	records := []*models.AnimalRecord{}
	for rows.Next() {
		var rec models.AnimalRecord
		if err := rows.Scan(&rec.ID, &rec.RecordID, &rec.RecordType, &rec.ObservationDate, &rec.SessionID); err != nil {
			return nil, fmt.Errorf("failed to scan animal record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
