package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Farm struct {
	ID        uuid.UUID  `json:"id"`
	AgriID    string     `json:"agri_id"`
	Name      *string    `json:"name,omitempty"`
	AddressID *uuid.UUID `json:"address_id,omitempty"`
	TimeZone  *string    `json:"time_zone,omitempty"`
}

// Address is keyed by the farm it belongs to.
type Address struct {
	ID         uuid.UUID  `json:"id"`
	FarmAgriID string     `json:"farm_agri_id"`
	Address1   *string    `json:"address1,omitempty"`
	Address2   *string    `json:"address2,omitempty"`
	Country    *string    `json:"country,omitempty"`
	Postcode   *string    `json:"postcode,omitempty"`
	Town       *string    `json:"town,omitempty"`
	State      *string    `json:"state,omitempty"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
}

type GeoPoint struct {
	ID   uuid.UUID `json:"id"`
	Lat  float64   `json:"lat"`
	Long float64   `json:"long"`
}

// GeoFeature keeps GeoJSON coordinates verbatim.
type GeoFeature struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type CapacityAlert struct {
	ID       uuid.UUID `json:"id"`
	Critical *float64  `json:"critical,omitempty"`
	Warning  *float64  `json:"warning,omitempty"`
}

type Capacity struct {
	ID    uuid.UUID `json:"id"`
	Mode  *string   `json:"mode,omitempty"`
	Value *float64  `json:"value,omitempty"`
	Unit  *string   `json:"unit,omitempty"`
}

type MapFeature struct {
	ID          uuid.UUID  `json:"id"`
	AgriID      string     `json:"agri_id"`
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	GeometryID  *uuid.UUID `json:"geometry_id,omitempty"`
	FarmID      *string    `json:"farm_id,omitempty"`
	Type        *string    `json:"type,omitempty"`
	AlertID     *uuid.UUID `json:"alert_id,omitempty"`
	CapacityID  *uuid.UUID `json:"capacity_id,omitempty"`
	Identifier  *string    `json:"identifier,omitempty"`
}

type Field struct {
	ID               uuid.UUID  `json:"id"`
	AgriID           string     `json:"agri_id"`
	CreationDate     *time.Time `json:"creation_date,omitempty"`
	LastModifiedDate *time.Time `json:"last_modified_date,omitempty"`
	Name             *string    `json:"name,omitempty"`
	LocationID       *uuid.UUID `json:"location_id,omitempty"`
	GeometryID       *uuid.UUID `json:"geometry_id,omitempty"`
	FarmID           *string    `json:"farm_id,omitempty"`
	TotalArea        *float64   `json:"total_area,omitempty"`
	GrazableArea     *float64   `json:"grazable_area,omitempty"`
	Unit             *string    `json:"unit,omitempty"`
	LandUse          *string    `json:"land_use,omitempty"`
	CropType         *string    `json:"crop_type,omitempty"`
}

type ExternalIdentifier struct {
	ID    uuid.UUID `json:"id"`
	Type  string    `json:"type"`
	Value []string  `json:"value"`
}
