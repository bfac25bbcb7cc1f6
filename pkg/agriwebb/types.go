package agriwebb

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/ranchforce/agriwebb-sync/pkg/jsonutil"
)

// ID is the provider's ID scalar. It arrives as a string or a number.
type ID = jsonutil.FlexibleString

// Timestamp is the provider's Timestamp scalar: UTC epoch milliseconds.
// RFC 3339 strings are accepted too since some record fields are typed as strings.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			t.Time = fromMillis(ms)
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", s)
		}
		t.Time = parsed.UTC()
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	t.Time = fromMillis(ms)
	return nil
}

// MarshalJSON writes epoch milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// Ptr returns the time as a pointer, or nil for a nil Timestamp.
func (t *Timestamp) Ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

func fromMillis(ms float64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// Animal is one element of animals.animals. Every field except AnimalID is optional.
type Animal struct {
	AnimalID              ID               `json:"animalId"`
	Identity              *AnimalIdentity  `json:"identity,omitempty"`
	AgeClass              *string          `json:"ageClass,omitempty"`
	Characteristics       *Characteristics `json:"characteristics,omitempty"`
	Parentage             *Parentage       `json:"parentage,omitempty"`
	ManagementGroupID     *ID              `json:"managementGroupId,omitempty"`
	ManagementGroup       *ManagementGroup `json:"managementGroup,omitempty"`
	EnterpriseID          *ID              `json:"enterpriseId,omitempty"`
	Enterprise            *Enterprise      `json:"enterprise,omitempty"`
	State                 *AnimalState     `json:"state,omitempty"`
	Records               []AnimalRecord   `json:"records,omitempty"`
	FarmID                *ID              `json:"farmId,omitempty"`
	PurchasedFrom         *string          `json:"purchasedFrom,omitempty"`
	PurchaseLocationID    *string          `json:"purchaseLocationId,omitempty"`
	CreationRecordGroupID *string          `json:"creationRecordGroupId,omitempty"`
	CreationRecordID      *string          `json:"creationRecordId,omitempty"`
	BirthingRecordID      *string          `json:"birthingRecordId,omitempty"`
	PurchaseRecordID      *string          `json:"purchaseRecordId,omitempty"`
	SaleRecordID          *string          `json:"saleRecordId,omitempty"`
	ObservationDate       *Timestamp       `json:"_observationDate,omitempty"`
}

type AnimalIdentity struct {
	Name                *string     `json:"name,omitempty"`
	EID                 *string     `json:"eid,omitempty"`
	VID                 *string     `json:"vid,omitempty"`
	ManagementTag       *string     `json:"managementTag,omitempty"`
	Brand               *string     `json:"brand,omitempty"`
	Tattoo              *string     `json:"tattoo,omitempty"`
	Tags                []AnimalTag `json:"tags,omitempty"`
	TagColorCatalogueID *string     `json:"tagColorCatalogueId,omitempty"`
}

type AnimalTag struct {
	ID                  ID       `json:"id"`
	EID                 *string  `json:"eid,omitempty"`
	VID                 *string  `json:"vid,omitempty"`
	ManagementTag       *string  `json:"managementTag,omitempty"`
	UHFEID              *string  `json:"uhfEid,omitempty"`
	DNAID               *string  `json:"dnaId,omitempty"`
	RegistrationNumber  *string  `json:"registrationNumber,omitempty"`
	BreedSocietyID      *string  `json:"breedSocietyId,omitempty"`
	HealthID            *string  `json:"healthId,omitempty"`
	TagID               *string  `json:"tagId,omitempty"`
	TagColorCatalogueID *string  `json:"tagColorCatalogueId,omitempty"`
	Type                *string  `json:"type,omitempty"`
	State               *string  `json:"state,omitempty"`
	RemovalDate         *float64 `json:"removalDate,omitempty"`
	ReplacementDate     *float64 `json:"replacementDate,omitempty"`
}

type Characteristics struct {
	AgeClass            *string         `json:"ageClass,omitempty"`
	BirthDate           *float64        `json:"birthDate,omitempty"`
	BirthDateConfidence *DateConfidence `json:"birthDateConfidence,omitempty"`
	BirthDateAccuracy   *string         `json:"birthDateAccuracy,omitempty"`
	BirthLocationID     *string         `json:"birthLocationId,omitempty"`
	BirthYear           *int            `json:"birthYear,omitempty"`
	BreedAssessed       *string         `json:"breedAssessed,omitempty"`
	VisualColor         *string         `json:"visualColor,omitempty"`
	Sex                 *string         `json:"sex,omitempty"`
	SpeciesCommonName   *string         `json:"speciesCommonName,omitempty"`
}

type DateConfidence struct {
	Year  *string `json:"year,omitempty"`
	Month *string `json:"month,omitempty"`
	Day   *string `json:"day,omitempty"`
}

// Parent is a GeneticParent (dams, sires) or a Surrogate.
type Parent struct {
	ParentAnimalID       ID                    `json:"parentAnimalId"`
	ParentAnimalIdentity *ParentAnimalIdentity `json:"parentAnimalIdentity,omitempty"`
	ParentType           *string               `json:"parentType,omitempty"`
}

type ParentAnimalIdentity struct {
	EID  *string `json:"eid,omitempty"`
	VID  *string `json:"vid,omitempty"`
	Name *string `json:"name,omitempty"`
}

type Parentage struct {
	Dams      []Parent `json:"dams,omitempty"`
	Sires     []Parent `json:"sires,omitempty"`
	Surrogate *Parent  `json:"surrogate,omitempty"`
}

type AnimalState struct {
	CurrentLocationID      *string        `json:"currentLocationId,omitempty"`
	OnFarm                 *bool          `json:"onFarm,omitempty"`
	OnFarmDate             *Timestamp     `json:"onFarmDate,omitempty"`
	LastSeen               *Timestamp     `json:"lastSeen,omitempty"`
	DaysReared             *int           `json:"daysReared,omitempty"`
	OffFarmDate            *Timestamp     `json:"offFarmDate,omitempty"`
	DisposalMethod         *string        `json:"disposalMethod,omitempty"`
	Fate                   *string        `json:"fate,omitempty"`
	FertilityStatus        *string        `json:"fertilityStatus,omitempty"`
	RearingRank            *float64       `json:"rearingRank,omitempty"`
	ReproductiveStatus     *string        `json:"reproductiveStatus,omitempty"`
	StatusDate             *Timestamp     `json:"statusDate,omitempty"`
	WithholdingDateMeat    *Timestamp     `json:"withholdingDateMeat,omitempty"`
	WithholdingDateExport  *Timestamp     `json:"withholdingDateExport,omitempty"`
	WithholdingDateOrganic *Timestamp     `json:"withholdingDateOrganic,omitempty"`
	Weaned                 *bool          `json:"weaned,omitempty"`
	OffspringCount         *float64       `json:"offspringCount,omitempty"`
	Weights                *WeightSummary `json:"weights,omitempty"`
	BodyConditionScore     *Measure       `json:"bodyConditionScore,omitempty"`
	BodyConditionScoreDate *Timestamp     `json:"bodyConditionScoreDate,omitempty"`
	AnimalUnits            *Measure       `json:"animalUnits,omitempty"`
	HasHadOffspring        *bool          `json:"hasHadOffspring,omitempty"`
}

type WeightSummary struct {
	LiveAverageDailyGain    *Measure   `json:"liveAverageDailyGain,omitempty"`
	OverallAverageDailyGain *Measure   `json:"overallAverageDailyGain,omitempty"`
	AssumedAverageDailyGain *Measure   `json:"assumedAverageDailyGain,omitempty"`
	LiveWeightDate          *Timestamp `json:"liveWeightDate,omitempty"`
	LiveWeight              *Measure   `json:"liveWeight,omitempty"`
	EstimatedWeight         *Measure   `json:"estimatedWeight,omitempty"`
}

// Measure is a {unit, value} pair (WeightGain, Weight, ConditionScore, AnimalUnit).
type Measure struct {
	Unit  *string  `json:"unit,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

type ManagementGroup struct {
	ManagementGroupID ID          `json:"managementGroupId"`
	EnterpriseID      *ID         `json:"enterpriseId,omitempty"`
	FarmID            *ID         `json:"farmId,omitempty"`
	Name              *string     `json:"name,omitempty"`
	Species           *string     `json:"species,omitempty"`
	Type              *string     `json:"type,omitempty"`
	Enterprise        *Enterprise `json:"enterprise,omitempty"`
}

type Enterprise struct {
	EnterpriseID ID      `json:"enterpriseId"`
	Name         *string `json:"name,omitempty"`
	FarmID       *ID     `json:"farmId,omitempty"`
}

type AnimalRecord struct {
	RecordID        ID         `json:"recordId"`
	RecordType      *string    `json:"recordType,omitempty"`
	ObservationDate *Timestamp `json:"observationDate,omitempty"`
	SessionID       *string    `json:"sessionId,omitempty"`
}

// AnimalsPage is the AnimalsWithCount result of one animals query.
type AnimalsPage struct {
	NonPagedCount int      `json:"nonPagedCount"`
	Animals       []Animal `json:"animals"`
}

type Farm struct {
	ID          ID                   `json:"id"`
	Name        *string              `json:"name,omitempty"`
	Address     *Address             `json:"address,omitempty"`
	TimeZone    *string              `json:"timeZone,omitempty"`
	MapFeatures []MapFeature         `json:"mapFeatures,omitempty"`
	Fields      []Field              `json:"fields,omitempty"`
	Identifiers []ExternalIdentifier `json:"identifiers,omitempty"`
}

type Address struct {
	Address1 *string   `json:"address1,omitempty"`
	Address2 *string   `json:"address2,omitempty"`
	Country  *string   `json:"country,omitempty"`
	Postcode *string   `json:"postcode,omitempty"`
	Town     *string   `json:"town,omitempty"`
	State    *string   `json:"state,omitempty"`
	Location *GeoPoint `json:"location,omitempty"`
}

type GeoPoint struct {
	Lat  *float64 `json:"lat,omitempty"`
	Long *float64 `json:"long,omitempty"`
}

type MapFeature struct {
	ID          ID             `json:"id"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Geometry    *GeoFeature    `json:"geometry,omitempty"`
	FarmID      *ID            `json:"farmId,omitempty"`
	Type        *string        `json:"type,omitempty"`
	Alert       *CapacityAlert `json:"alert,omitempty"`
	Capacity    *Capacity      `json:"capacity,omitempty"`
	Identifier  *string        `json:"identifier,omitempty"`
}

// GeoFeature keeps coordinates as raw GeoJSON since their nesting depends on Type.
type GeoFeature struct {
	Type        *string         `json:"type,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
}

type CapacityAlert struct {
	Critical *float64 `json:"critical,omitempty"`
	Warning  *float64 `json:"warning,omitempty"`
}

type Capacity struct {
	Mode  *string  `json:"mode,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Unit  *string  `json:"unit,omitempty"`
}

type Field struct {
	ID               ID                   `json:"id"`
	CreationDate     *Timestamp           `json:"creationDate,omitempty"`
	LastModifiedDate *Timestamp           `json:"lastModifiedDate,omitempty"`
	Name             *string              `json:"name,omitempty"`
	Location         *GeoPoint            `json:"location,omitempty"`
	Geometry         *GeoFeature          `json:"geometry,omitempty"`
	FarmID           *ID                  `json:"farmId,omitempty"`
	TotalArea        *float64             `json:"totalArea,omitempty"`
	GrazableArea     *float64             `json:"grazableArea,omitempty"`
	Unit             *string              `json:"unit,omitempty"`
	LandUse          *string              `json:"landUse,omitempty"`
	CropType         *string              `json:"cropType,omitempty"`
	Identifiers      []ExternalIdentifier `json:"identifiers,omitempty"`
}

type ExternalIdentifier struct {
	Type  *string  `json:"type,omitempty"`
	Value []string `json:"value,omitempty"`
}
