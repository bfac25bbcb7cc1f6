package models

import (
	"time"

	"github.com/google/uuid"
)

// Animal is the root row of the livestock graph, keyed by the provider's animal ID.
type Animal struct {
	ID                    uuid.UUID  `json:"id"`
	AnimalID              string     `json:"animal_id"`
	FarmID                string     `json:"farm_id"`
	AgeClass              *string    `json:"age_class,omitempty"`
	IdentityID            *uuid.UUID `json:"identity_id,omitempty"`
	CharacteristicsID     *uuid.UUID `json:"characteristics_id,omitempty"`
	ParentageID           *uuid.UUID `json:"parentage_id,omitempty"`
	StateID               *uuid.UUID `json:"state_id,omitempty"`
	ManagementGroupID     *string    `json:"management_group_id,omitempty"`
	ManagementGroupRef    *uuid.UUID `json:"management_group_ref,omitempty"`
	EnterpriseID          *string    `json:"enterprise_id,omitempty"`
	EnterpriseRef         *uuid.UUID `json:"enterprise_ref,omitempty"`
	PurchasedFrom         *string    `json:"purchased_from,omitempty"`
	PurchaseLocationID    *string    `json:"purchase_location_id,omitempty"`
	CreationRecordGroupID *string    `json:"creation_record_group_id,omitempty"`
	CreationRecordID      *string    `json:"creation_record_id,omitempty"`
	BirthingRecordID      *string    `json:"birthing_record_id,omitempty"`
	PurchaseRecordID      *string    `json:"purchase_record_id,omitempty"`
	SaleRecordID          *string    `json:"sale_record_id,omitempty"`
	ObservationDate       *time.Time `json:"observation_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// AnimalIdentity is owned by exactly one animal and keyed by its animal ID.
type AnimalIdentity struct {
	ID                  uuid.UUID `json:"id"`
	AnimalID            string    `json:"animal_id"`
	Name                *string   `json:"name,omitempty"`
	EID                 *string   `json:"eid,omitempty"`
	VID                 *string   `json:"vid,omitempty"`
	ManagementTag       *string   `json:"management_tag,omitempty"`
	Brand               *string   `json:"brand,omitempty"`
	Tattoo              *string   `json:"tattoo,omitempty"`
	TagColorCatalogueID *string   `json:"tag_color_catalogue_id,omitempty"`
}

// AnimalTag is keyed by the provider tag ID.
type AnimalTag struct {
	ID                  uuid.UUID `json:"id"`
	AgriID              string    `json:"agri_id"`
	EID                 *string   `json:"eid,omitempty"`
	VID                 *string   `json:"vid,omitempty"`
	ManagementTag       *string   `json:"management_tag,omitempty"`
	UHFEID              *string   `json:"uhf_eid,omitempty"`
	DNAID               *string   `json:"dna_id,omitempty"`
	RegistrationNumber  *string   `json:"registration_number,omitempty"`
	BreedSocietyID      *string   `json:"breed_society_id,omitempty"`
	HealthID            *string   `json:"health_id,omitempty"`
	TagID               *string   `json:"tag_id,omitempty"`
	TagColorCatalogueID *string   `json:"tag_color_catalogue_id,omitempty"`
	Type                *string   `json:"type,omitempty"`
	State               *string   `json:"state,omitempty"`
	RemovalDate         *float64  `json:"removal_date,omitempty"`
	ReplacementDate     *float64  `json:"replacement_date,omitempty"`
}

// DateConfidence is shared by every characteristics row with the same triple.
type DateConfidence struct {
	ID    uuid.UUID `json:"id"`
	Year  string    `json:"year"`
	Month string    `json:"month"`
	Day   string    `json:"day"`
}

type AnimalCharacteristics struct {
	ID                    uuid.UUID  `json:"id"`
	AnimalID              string     `json:"animal_id"`
	AgeClass              *string    `json:"age_class,omitempty"`
	BirthDate             *float64   `json:"birth_date,omitempty"`
	BirthDateConfidenceID *uuid.UUID `json:"birth_date_confidence_id,omitempty"`
	BirthDateAccuracy     *string    `json:"birth_date_accuracy,omitempty"`
	BirthLocationID       *string    `json:"birth_location_id,omitempty"`
	BirthYear             *int       `json:"birth_year,omitempty"`
	BreedAssessed         *string    `json:"breed_assessed,omitempty"`
	VisualColor           *string    `json:"visual_color,omitempty"`
	Sex                   *string    `json:"sex,omitempty"`
	SpeciesCommonName     *string    `json:"species_common_name,omitempty"`
}

type ParentAnimalIdentity struct {
	ID             uuid.UUID `json:"id"`
	ParentAnimalID string    `json:"parent_animal_id"`
	EID            *string   `json:"eid,omitempty"`
	VID            *string   `json:"vid,omitempty"`
	Name           *string   `json:"name,omitempty"`
}

// ParentRole selects the table a parent wrapper lives in.
type ParentRole string

const (
	ParentRoleGenetic   ParentRole = "genetic"
	ParentRoleSurrogate ParentRole = "surrogate"
)

// Parent is a GeneticParent or Surrogate wrapper around a ParentAnimalIdentity.
type Parent struct {
	ID                     uuid.UUID  `json:"id"`
	Role                   ParentRole `json:"role"`
	ParentAnimalID         string     `json:"parent_animal_id"`
	ParentAnimalIdentityID *uuid.UUID `json:"parent_animal_identity_id,omitempty"`
	ParentType             string     `json:"parent_type"`
}

// Parentage is saved once per ingest after all parents are collected.
type Parentage struct {
	ID          uuid.UUID   `json:"id"`
	AnimalID    string      `json:"animal_id"`
	SurrogateID *uuid.UUID  `json:"surrogate_id,omitempty"`
	DamIDs      []uuid.UUID `json:"dam_ids"`
	SireIDs     []uuid.UUID `json:"sire_ids"`
}

// MeasurementKind names the insert-only {unit, value} tables.
type MeasurementKind string

const (
	MeasurementWeightGain     MeasurementKind = "weight_gain"
	MeasurementWeight         MeasurementKind = "weight"
	MeasurementConditionScore MeasurementKind = "condition_score"
	MeasurementAnimalUnit     MeasurementKind = "animal_unit"
)

// Measurement is immutable once created.
type Measurement struct {
	ID    uuid.UUID       `json:"id"`
	Kind  MeasurementKind `json:"kind"`
	Unit  string          `json:"unit"`
	Value float64         `json:"value"`
}

type AnimalWeightSummary struct {
	ID                        uuid.UUID  `json:"id"`
	AnimalID                  string     `json:"animal_id"`
	LiveAverageDailyGainID    *uuid.UUID `json:"live_average_daily_gain_id,omitempty"`
	OverallAverageDailyGainID *uuid.UUID `json:"overall_average_daily_gain_id,omitempty"`
	AssumedAverageDailyGainID *uuid.UUID `json:"assumed_average_daily_gain_id,omitempty"`
	LiveWeightDate            *time.Time `json:"live_weight_date,omitempty"`
	LiveWeightID              *uuid.UUID `json:"live_weight_id,omitempty"`
	EstimatedWeightID         *uuid.UUID `json:"estimated_weight_id,omitempty"`
}

type AnimalState struct {
	ID                     uuid.UUID  `json:"id"`
	AnimalID               string     `json:"animal_id"`
	CurrentLocationID      *string    `json:"current_location_id,omitempty"`
	OnFarm                 *bool      `json:"on_farm,omitempty"`
	OnFarmDate             *time.Time `json:"on_farm_date,omitempty"`
	LastSeen               *time.Time `json:"last_seen,omitempty"`
	DaysReared             *int       `json:"days_reared,omitempty"`
	OffFarmDate            *time.Time `json:"off_farm_date,omitempty"`
	DisposalMethod         *string    `json:"disposal_method,omitempty"`
	Fate                   *string    `json:"fate,omitempty"`
	FertilityStatus        *string    `json:"fertility_status,omitempty"`
	RearingRank            *float64   `json:"rearing_rank,omitempty"`
	ReproductiveStatus     *string    `json:"reproductive_status,omitempty"`
	StatusDate             *time.Time `json:"status_date,omitempty"`
	WithholdingDateMeat    *time.Time `json:"withholding_date_meat,omitempty"`
	WithholdingDateExport  *time.Time `json:"withholding_date_export,omitempty"`
	WithholdingDateOrganic *time.Time `json:"withholding_date_organic,omitempty"`
	Weaned                 *bool      `json:"weaned,omitempty"`
	OffspringCount         *float64   `json:"offspring_count,omitempty"`
	WeightsID              *uuid.UUID `json:"weights_id,omitempty"`
	BodyConditionScoreID   *uuid.UUID `json:"body_condition_score_id,omitempty"`
	BodyConditionScoreDate *time.Time `json:"body_condition_score_date,omitempty"`
	AnimalUnitsID          *uuid.UUID `json:"animal_units_id,omitempty"`
	HasHadOffspring        *bool      `json:"has_had_offspring,omitempty"`
}

type Enterprise struct {
	ID           uuid.UUID `json:"id"`
	EnterpriseID string    `json:"enterprise_id"`
	Name         *string   `json:"name,omitempty"`
	FarmID       *string   `json:"farm_id,omitempty"`
}

type ManagementGroup struct {
	ID                uuid.UUID  `json:"id"`
	ManagementGroupID string     `json:"management_group_id"`
	EnterpriseID      *string    `json:"enterprise_id,omitempty"`
	EnterpriseRef     *uuid.UUID `json:"enterprise_ref,omitempty"`
	FarmID            *string    `json:"farm_id,omitempty"`
	Name              *string    `json:"name,omitempty"`
	Species           *string    `json:"species,omitempty"`
	Type              *string    `json:"type,omitempty"`
}

// AnimalRecord is an event (treatment, weigh, move ...) linked many-to-many to animals.
type AnimalRecord struct {
	ID              uuid.UUID  `json:"id"`
	RecordID        string     `json:"record_id"`
	RecordType      *string    `json:"record_type,omitempty"`
	ObservationDate *time.Time `json:"observation_date,omitempty"`
	SessionID       *string    `json:"session_id,omitempty"`
}

// AnimalDetail is the read model returned by the animal lookup endpoint.
type AnimalDetail struct {
	Animal          *Animal                `json:"animal"`
	Identity        *AnimalIdentity        `json:"identity,omitempty"`
	Tags            []*AnimalTag           `json:"tags"`
	Characteristics *AnimalCharacteristics `json:"characteristics,omitempty"`
	State           *AnimalState           `json:"state,omitempty"`
	ManagementGroup *ManagementGroup       `json:"management_group,omitempty"`
	Enterprise      *Enterprise            `json:"enterprise,omitempty"`
	Records         []*AnimalRecord        `json:"records"`
}
