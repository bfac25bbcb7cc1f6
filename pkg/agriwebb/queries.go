package agriwebb

import "time"

const animalFields = `
      animalId
      farmId
      ageClass
      managementGroupId
      enterpriseId
      purchasedFrom
      purchaseLocationId
      creationRecordGroupId
      creationRecordId
      birthingRecordId
      purchaseRecordId
      saleRecordId
      _observationDate
      identity {
        name eid vid managementTag brand tattoo tagColorCatalogueId
        tags {
          id eid vid managementTag uhfEid dnaId registrationNumber breedSocietyId
          healthId tagId tagColorCatalogueId type state removalDate replacementDate
        }
      }
      characteristics {
        ageClass birthDate birthDateAccuracy birthLocationId birthYear
        breedAssessed visualColor sex speciesCommonName
        birthDateConfidence { year month day }
      }
      parentage {
        dams { parentAnimalId parentType parentAnimalIdentity { eid vid name } }
        sires { parentAnimalId parentType parentAnimalIdentity { eid vid name } }
        surrogate { parentAnimalId parentType parentAnimalIdentity { eid vid name } }
      }
      state {
        currentLocationId onFarm onFarmDate lastSeen daysReared offFarmDate
        disposalMethod fate fertilityStatus rearingRank reproductiveStatus statusDate
        withholdingDateMeat withholdingDateExport withholdingDateOrganic
        weaned offspringCount bodyConditionScoreDate hasHadOffspring
        weights {
          liveAverageDailyGain { unit value }
          overallAverageDailyGain { unit value }
          assumedAverageDailyGain { unit value }
          liveWeightDate
          liveWeight { unit value }
          estimatedWeight { unit value }
        }
        bodyConditionScore { unit value }
        animalUnits { unit value }
      }
      managementGroup {
        managementGroupId enterpriseId farmId name species type
        enterprise { enterpriseId name farmId }
      }
      enterprise { enterpriseId name farmId }
      records { recordId recordType observationDate sessionId }`

// AnimalsQueryText fetches one page of animals for a farm.
const AnimalsQueryText = `query Animals(
  $farmId: String!
  $filter: AnimalFilter
  $sort: [AnimalSort!]
  $limit: Int
  $skip: Int
  $observationDate: Timestamp
  $capabilities: [AnimalCapability!]
) {
  animals(
    farmId: $farmId
    filter: $filter
    sort: $sort
    limit: $limit
    skip: $skip
    observationDate: $observationDate
    capabilities: $capabilities
  ) {
    nonPagedCount
    animals {` + animalFields + `
    }
  }
}`

// FarmsQueryText fetches farms with their address, map features and fields.
const FarmsQueryText = `query Farms($farmIds: [String!]) {
  farms(farmIds: $farmIds) {
    id
    name
    timeZone
    address {
      address1 address2 country postcode town state
      location { lat long }
    }
    identifiers { type value }
    mapFeatures {
      id name description farmId type identifier
      geometry { type coordinates }
      alert { critical warning }
      capacity { mode value unit }
    }
    fields {
      id creationDate lastModifiedDate name farmId totalArea grazableArea unit landUse cropType
      location { lat long }
      geometry { type coordinates }
      identifiers { type value }
    }
  }
}`

// AnimalsQuery holds the animals query arguments. Nil or empty values are
// left out of the variables; the rest are sent verbatim.
type AnimalsQuery struct {
	FarmID          string         `json:"farm_id" validate:"required"`
	Filter          map[string]any `json:"filter,omitempty"`
	Sort            []any          `json:"sort,omitempty"`
	Limit           *int           `json:"limit,omitempty" validate:"omitempty,gte=0"`
	Skip            *int           `json:"skip,omitempty" validate:"omitempty,gte=0"`
	ObservationDate *time.Time     `json:"observation_date,omitempty"`
	Capabilities    []string       `json:"capabilities,omitempty"`
}

// Variables renders the GraphQL variables map.
func (q AnimalsQuery) Variables() map[string]any {
	vars := map[string]any{"farmId": q.FarmID}
	if len(q.Filter) > 0 {
		vars["filter"] = q.Filter
	}
	if len(q.Sort) > 0 {
		vars["sort"] = q.Sort
	}
	if q.Limit != nil {
		vars["limit"] = *q.Limit
	}
	if q.Skip != nil {
		vars["skip"] = *q.Skip
	}
	if q.ObservationDate != nil {
		vars["observationDate"] = q.ObservationDate.UnixMilli()
	}
	if len(q.Capabilities) > 0 {
		vars["capabilities"] = q.Capabilities
	}
	return vars
}

// FarmsQuery selects farms by id; empty means every farm the token can see.
type FarmsQuery struct {
	FarmIDs []string `json:"farm_ids,omitempty"`
}

// Variables renders the GraphQL variables map.
func (q FarmsQuery) Variables() map[string]any {
	vars := map[string]any{}
	if len(q.FarmIDs) > 0 {
		vars["farmIds"] = q.FarmIDs
	}
	return vars
}
