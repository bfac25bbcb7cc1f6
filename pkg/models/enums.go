package models

import (
	"slices"
	"strings"
)

// Choices is a closed set of provider enum values.
type Choices struct {
	Name      string
	values    []string
	normalize func(string) string
}

func newChoices(name string, values ...string) Choices {
	return Choices{Name: name, values: values}
}

// Values returns the accepted values.
func (c Choices) Values() []string {
	return slices.Clone(c.values)
}

// Parse returns the canonical form of v and whether it is accepted.
func (c Choices) Parse(v string) (string, bool) {
	if c.normalize != nil {
		v = c.normalize(v)
	}
	return v, slices.Contains(c.values, v)
}

// Parent types. Provider payloads use "Dam"/"Sire"/"Surrogate"; stored rows are lower-case.
const (
	ParentTypeDam       = "dam"
	ParentTypeSire      = "sire"
	ParentTypeSurrogate = "surrogate"
	ParentTypeUnknown   = "unknown"
)

// ConfidenceUnknown is the default for each absent DateConfidence part.
const ConfidenceUnknown = "Unknown"

var (
	AgeClasses = newChoices("age class",
		"calf", "heifer_calf", "steer_calf", "bull_calf", "non_breeding_bull_calf",
		"weaner", "heifer_weaner", "steer_weaner", "bull_weaner", "non_breeding_bull_weaner",
		"yearling", "heifer", "spayed_heifer", "cow", "spayed_cow", "steer", "bull",
		"non_breeding_bull", "non_breeding_mature_bull",
		"lamb", "ewe_lamb", "ram_lamb", "wether_lamb", "ewe_weaner", "ram_weaner", "wether_weaner",
		"hogget", "ewe_hogget", "ram_hogget", "wether_hogget", "maiden_ewe", "ewe", "wether", "ram",
		"unknown",
	)

	SpeciesNames     = newChoices("species", "cattle", "sheep", "goats", "deer")
	Sexes            = newChoices("sex", "male", "female", "unspecified")
	DateAccuracies   = newChoices("date accuracy", "day", "month", "year", "before_year")
	ConfidenceLevels = newChoices("confidence", "Accurate", "Estimate", "Unknown")

	// TagTypes accepts both the tag-kind and the device-kind vocabularies the API returns.
	TagTypes = newChoices("tag type",
		"VisualTag", "ElectronicTag", "CombinedTag", "ManagementTag", "UHFTag", "BreedSocietyID",
		"TSUSampleID", "HerdFlockTag", "TrichTag", "RegistrationNumber", "HealthTag", "DNAID",
		"generic", "nlis", "aphis", "bcms", "scot_moves", "uk_sheep", "eid", "vid", "eid_and_vid",
		"uhf", "bolus", "slaughter", "breed_society", "dna", "health", "trich", "group",
		"group_management", "management",
	)

	TagStates = Choices{
		Name:      "tag state",
		values:    []string{"active", "removed", "replaced"},
		normalize: strings.TrimSpace,
	}

	ParentTypes = Choices{
		Name:      "parent type",
		values:    []string{ParentTypeDam, ParentTypeSire, ParentTypeSurrogate, ParentTypeUnknown},
		normalize: strings.ToLower,
	}

	Fates                = newChoices("fate", "Alive", "Dead", "Sold", "InTransit")
	FertilityStatuses    = newChoices("fertility status", "Unknown", "Fertile", "Infertile", "Neutered", "Cryptorchid", "NonBreeding")
	ReproductiveStatuses = newChoices("reproductive status", "Unknown", "NotCycling", "Pregnant", "Empty", "Involuting")
	WeightGainUnits      = newChoices("weight gain unit", "kgPerDay", "gramPerDay", "ozPerDay", "lbPerDay")
	WeightUnits          = newChoices("weight unit", "ug", "mg", "gram", "kg", "tonne", "oz", "lb", "ton", "stone", "longton")
	ConditionScoreUnits  = newChoices("condition score unit", "bcs5", "bcs9")
	AnimalUnitUnits      = newChoices("animal unit", "dse", "ae", "lsu", "au", "MJPerDay")
	RecordTypes          = newChoices("record type", "animalTreatment", "feed", "locationChanged", "pregnancyScan", "score", "weigh")

	GeoTypes        = newChoices("geometry type", "Polygon", "MultiPolygon", "Point", "MultiPoint", "LineString", "MultiLineString", "GeometryCollection")
	CapacityModes   = newChoices("capacity mode", "depth")
	DepthUnits      = newChoices("depth unit", "mm", "cm", "meter", "inch", "foot", "yard")
	MapFeatureTypes = newChoices("map feature type", "RAIN_GAUGE", "WATER_TANK", "TROUGH")
	AreaUnits       = newChoices("area unit", "acre", "sqft", "sqyd", "m2", "hectare")

	LandUses = newChoices("land use",
		"Grazing", "Cropping", "Hay", "Yard", "Feedlot", "Pen", "Laneway", "Vegetation", "Silvopasture",
		"Rangeland", "Badland", "Wetland", "ErosionZone", "RestorationZone", "ConversionZone", "NonAgriculture",
	)
)
