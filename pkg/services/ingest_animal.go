package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/repositories"
)

// AnimalIngester flattens one provider animal into the livestock tables.
// Callers run it inside the page transaction; it never opens its own.
type AnimalIngester interface {
	// Ingest upserts every sub-entity reachable from rec, children first,
	// and returns the saved root row. farmID scopes the animal and is the
	// default farm for its enterprise.
	Ingest(ctx context.Context, farmID string, rec *agriwebb.Animal) (*models.Animal, error)
}

type animalIngester struct {
	repo   repositories.AnimalRepository
	logger *zap.Logger
}

// NewAnimalIngester creates an ingester writing through repo.
func NewAnimalIngester(repo repositories.AnimalRepository, logger *zap.Logger) AnimalIngester {
	return &animalIngester{
		repo:   repo,
		logger: logger.Named("animal-ingester"),
	}
}

var _ AnimalIngester = (*animalIngester)(nil)

func (s *animalIngester) Ingest(ctx context.Context, farmID string, rec *agriwebb.Animal) (*models.Animal, error) {
	if rec == nil {
		return nil, &MissingFieldError{Path: "animal"}
	}
	animalID, err := requireID(rec.AnimalID, "animalId")
	if err != nil {
		return nil, err
	}
	if farmID == "" {
		if farmID = derefString(optionalID(rec.FarmID)); farmID == "" {
			return nil, &MissingFieldError{Path: "farmId"}
		}
	}

	var enums enumReader
	animal := &models.Animal{
		AnimalID:              animalID,
		FarmID:                farmID,
		AgeClass:              enums.read(models.AgeClasses, "ageClass", rec.AgeClass),
		PurchasedFrom:         rec.PurchasedFrom,
		PurchaseLocationID:    rec.PurchaseLocationID,
		CreationRecordGroupID: rec.CreationRecordGroupID,
		CreationRecordID:      rec.CreationRecordID,
		BirthingRecordID:      rec.BirthingRecordID,
		PurchaseRecordID:      rec.PurchaseRecordID,
		SaleRecordID:          rec.SaleRecordID,
		ObservationDate:       rec.ObservationDate.Ptr(),
	}
	if enums.err != nil {
		return nil, enums.err
	}

	// Records are checked before the first write so a bad record leaves
	// nothing behind.
	records, err := parseRecords(rec.Records)
	if err != nil {
		return nil, err
	}

	if animal.IdentityID, err = s.ingestIdentity(ctx, animalID, rec.Identity); err != nil {
		return nil, err
	}
	if animal.CharacteristicsID, err = s.ingestCharacteristics(ctx, animalID, rec.Characteristics); err != nil {
		return nil, err
	}
	if animal.ParentageID, err = s.ingestParentage(ctx, animalID, rec.Parentage); err != nil {
		return nil, err
	}
	if animal.StateID, err = s.ingestState(ctx, animalID, rec.State); err != nil {
		return nil, err
	}

	enterprise, err := s.ingestEnterprise(ctx, farmID, rec)
	if err != nil {
		return nil, err
	}
	if enterprise != nil {
		animal.EnterpriseID = &enterprise.EnterpriseID
		animal.EnterpriseRef = &enterprise.ID
	}

	group, err := s.ingestManagementGroup(ctx, rec, enterprise)
	if err != nil {
		return nil, err
	}
	if group != nil {
		animal.ManagementGroupID = &group.ManagementGroupID
		animal.ManagementGroupRef = &group.ID
	}

	if err := s.repo.UpsertAnimal(ctx, animal); err != nil {
		return nil, err
	}

	if err := s.ingestRecords(ctx, animal.ID, records); err != nil {
		return nil, err
	}

	s.logger.Debug("Ingested animal",
		zap.String("animal_id", animalID),
		zap.String("farm_id", farmID),
		zap.Int("records", len(rec.Records)))

	return animal, nil
}

func (s *animalIngester) ingestIdentity(ctx context.Context, animalID string, in *agriwebb.AnimalIdentity) (*uuid.UUID, error) {
	if in == nil {
		in = &agriwebb.AnimalIdentity{}
	}

	tagIDs := make([]uuid.UUID, 0, len(in.Tags))
	for i := range in.Tags {
		tag, err := s.ingestTag(ctx, indexPath("identity.tags", i), &in.Tags[i])
		if err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	identity := &models.AnimalIdentity{
		AnimalID:            animalID,
		Name:                in.Name,
		EID:                 in.EID,
		VID:                 in.VID,
		ManagementTag:       in.ManagementTag,
		Brand:               in.Brand,
		Tattoo:              in.Tattoo,
		TagColorCatalogueID: in.TagColorCatalogueID,
	}
	if err := s.repo.UpsertIdentity(ctx, identity); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceIdentityTags(ctx, identity.ID, tagIDs); err != nil {
		return nil, err
	}
	return &identity.ID, nil
}

func (s *animalIngester) ingestTag(ctx context.Context, path string, in *agriwebb.AnimalTag) (*models.AnimalTag, error) {
	agriID, err := requireID(in.ID, joinPath(path, "id"))
	if err != nil {
		return nil, err
	}

	var enums enumReader
	tag := &models.AnimalTag{
		AgriID:              agriID,
		EID:                 in.EID,
		VID:                 in.VID,
		ManagementTag:       in.ManagementTag,
		UHFEID:              in.UHFEID,
		DNAID:               in.DNAID,
		RegistrationNumber:  in.RegistrationNumber,
		BreedSocietyID:      in.BreedSocietyID,
		HealthID:            in.HealthID,
		TagID:               in.TagID,
		TagColorCatalogueID: in.TagColorCatalogueID,
		Type:                enums.read(models.TagTypes, joinPath(path, "type"), in.Type),
		State:               enums.read(models.TagStates, joinPath(path, "state"), in.State),
		RemovalDate:         in.RemovalDate,
		ReplacementDate:     in.ReplacementDate,
	}
	if enums.err != nil {
		return nil, enums.err
	}

	if err := s.repo.UpsertTag(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *animalIngester) ingestCharacteristics(ctx context.Context, animalID string, in *agriwebb.Characteristics) (*uuid.UUID, error) {
	if in == nil {
		in = &agriwebb.Characteristics{}
	}

	var enums enumReader
	conf := in.BirthDateConfidence
	if conf == nil {
		conf = &agriwebb.DateConfidence{}
	}
	const confPath = "characteristics.birthDateConfidence"
	dc := &models.DateConfidence{
		Year:  enums.readOr(models.ConfidenceLevels, confPath+".year", conf.Year, models.ConfidenceUnknown),
		Month: enums.readOr(models.ConfidenceLevels, confPath+".month", conf.Month, models.ConfidenceUnknown),
		Day:   enums.readOr(models.ConfidenceLevels, confPath+".day", conf.Day, models.ConfidenceUnknown),
	}
	c := &models.AnimalCharacteristics{
		AnimalID:          animalID,
		AgeClass:          enums.read(models.AgeClasses, "characteristics.ageClass", in.AgeClass),
		BirthDate:         in.BirthDate,
		BirthDateAccuracy: enums.read(models.DateAccuracies, "characteristics.birthDateAccuracy", in.BirthDateAccuracy),
		BirthLocationID:   in.BirthLocationID,
		BirthYear:         in.BirthYear,
		BreedAssessed:     in.BreedAssessed,
		VisualColor:       in.VisualColor,
		Sex:               enums.read(models.Sexes, "characteristics.sex", in.Sex),
		SpeciesCommonName: enums.read(models.SpeciesNames, "characteristics.speciesCommonName", in.SpeciesCommonName),
	}
	if enums.err != nil {
		return nil, enums.err
	}

	if err := s.repo.GetOrCreateDateConfidence(ctx, dc); err != nil {
		return nil, err
	}
	c.BirthDateConfidenceID = &dc.ID

	if err := s.repo.UpsertCharacteristics(ctx, c); err != nil {
		return nil, err
	}
	return &c.ID, nil
}

func (s *animalIngester) ingestParentage(ctx context.Context, animalID string, in *agriwebb.Parentage) (*uuid.UUID, error) {
	if in == nil {
		in = &agriwebb.Parentage{}
	}

	parentage := &models.Parentage{
		AnimalID: animalID,
		DamIDs:   make([]uuid.UUID, 0, len(in.Dams)),
		SireIDs:  make([]uuid.UUID, 0, len(in.Sires)),
	}

	for i := range in.Dams {
		p, err := s.ingestParent(ctx, indexPath("parentage.dams", i), &in.Dams[i],
			models.ParentRoleGenetic, models.ParentTypeDam)
		if err != nil {
			return nil, err
		}
		parentage.DamIDs = append(parentage.DamIDs, p.ID)
	}
	for i := range in.Sires {
		p, err := s.ingestParent(ctx, indexPath("parentage.sires", i), &in.Sires[i],
			models.ParentRoleGenetic, models.ParentTypeSire)
		if err != nil {
			return nil, err
		}
		parentage.SireIDs = append(parentage.SireIDs, p.ID)
	}
	if in.Surrogate != nil {
		p, err := s.ingestParent(ctx, "parentage.surrogate", in.Surrogate,
			models.ParentRoleSurrogate, models.ParentTypeUnknown)
		if err != nil {
			return nil, err
		}
		parentage.SurrogateID = &p.ID
	}

	if err := s.repo.UpsertParentage(ctx, parentage); err != nil {
		return nil, err
	}
	return &parentage.ID, nil
}

func (s *animalIngester) ingestParent(ctx context.Context, path string, in *agriwebb.Parent, role models.ParentRole, defaultType string) (*models.Parent, error) {
	parentAnimalID, err := requireID(in.ParentAnimalID, joinPath(path, "parentAnimalId"))
	if err != nil {
		return nil, err
	}

	var enums enumReader
	parentType := enums.readOr(models.ParentTypes, joinPath(path, "parentType"), in.ParentType, defaultType)
	if enums.err != nil {
		return nil, enums.err
	}

	ident := &models.ParentAnimalIdentity{ParentAnimalID: parentAnimalID}
	if in.ParentAnimalIdentity != nil {
		ident.EID = in.ParentAnimalIdentity.EID
		ident.VID = in.ParentAnimalIdentity.VID
		ident.Name = in.ParentAnimalIdentity.Name
	}
	if err := s.repo.UpsertParentIdentity(ctx, ident); err != nil {
		return nil, err
	}

	parent := &models.Parent{
		Role:                   role,
		ParentAnimalID:         parentAnimalID,
		ParentAnimalIdentityID: &ident.ID,
		ParentType:             parentType,
	}
	if err := s.repo.UpsertParent(ctx, parent); err != nil {
		return nil, err
	}
	return parent, nil
}

// measure inserts one {unit, value} row. An absent or incomplete measure
// yields a nil reference rather than an error.
func (s *animalIngester) measure(ctx context.Context, kind models.MeasurementKind, units models.Choices, path string, in *agriwebb.Measure) (*uuid.UUID, error) {
	if in == nil {
		return nil, nil
	}
	hasUnit := in.Unit != nil && *in.Unit != ""
	if !hasUnit || in.Value == nil {
		if hasUnit || in.Value != nil {
			s.logger.Debug("Dropped incomplete measurement",
				zap.String("path", path),
				zap.Bool("has_unit", hasUnit),
				zap.Bool("has_value", in.Value != nil))
		}
		return nil, nil
	}

	var enums enumReader
	unit := enums.read(units, joinPath(path, "unit"), in.Unit)
	if enums.err != nil {
		return nil, enums.err
	}

	m := &models.Measurement{Kind: kind, Unit: *unit, Value: *in.Value}
	if err := s.repo.InsertMeasurement(ctx, m); err != nil {
		return nil, err
	}
	return &m.ID, nil
}

func (s *animalIngester) ingestWeights(ctx context.Context, animalID string, in *agriwebb.WeightSummary) (*uuid.UUID, error) {
	if in == nil {
		in = &agriwebb.WeightSummary{}
	}

	const path = "state.weights"
	summary := &models.AnimalWeightSummary{
		AnimalID:       animalID,
		LiveWeightDate: in.LiveWeightDate.Ptr(),
	}

	gains := []struct {
		field string
		in    *agriwebb.Measure
		out   **uuid.UUID
	}{
		{"liveAverageDailyGain", in.LiveAverageDailyGain, &summary.LiveAverageDailyGainID},
		{"overallAverageDailyGain", in.OverallAverageDailyGain, &summary.OverallAverageDailyGainID},
		{"assumedAverageDailyGain", in.AssumedAverageDailyGain, &summary.AssumedAverageDailyGainID},
	}
	for _, g := range gains {
		id, err := s.measure(ctx, models.MeasurementWeightGain, models.WeightGainUnits, joinPath(path, g.field), g.in)
		if err != nil {
			return nil, err
		}
		*g.out = id
	}

	var err error
	if summary.LiveWeightID, err = s.measure(ctx, models.MeasurementWeight, models.WeightUnits, path+".liveWeight", in.LiveWeight); err != nil {
		return nil, err
	}
	if summary.EstimatedWeightID, err = s.measure(ctx, models.MeasurementWeight, models.WeightUnits, path+".estimatedWeight", in.EstimatedWeight); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertWeightSummary(ctx, summary); err != nil {
		return nil, err
	}
	return &summary.ID, nil
}

func (s *animalIngester) ingestState(ctx context.Context, animalID string, in *agriwebb.AnimalState) (*uuid.UUID, error) {
	if in == nil {
		in = &agriwebb.AnimalState{}
	}

	weightsID, err := s.ingestWeights(ctx, animalID, in.Weights)
	if err != nil {
		return nil, err
	}
	scoreID, err := s.measure(ctx, models.MeasurementConditionScore, models.ConditionScoreUnits, "state.bodyConditionScore", in.BodyConditionScore)
	if err != nil {
		return nil, err
	}
	unitsID, err := s.measure(ctx, models.MeasurementAnimalUnit, models.AnimalUnitUnits, "state.animalUnits", in.AnimalUnits)
	if err != nil {
		return nil, err
	}

	var enums enumReader
	state := &models.AnimalState{
		AnimalID:               animalID,
		CurrentLocationID:      in.CurrentLocationID,
		OnFarm:                 in.OnFarm,
		OnFarmDate:             in.OnFarmDate.Ptr(),
		LastSeen:               in.LastSeen.Ptr(),
		DaysReared:             in.DaysReared,
		OffFarmDate:            in.OffFarmDate.Ptr(),
		DisposalMethod:         in.DisposalMethod,
		Fate:                   enums.read(models.Fates, "state.fate", in.Fate),
		FertilityStatus:        enums.read(models.FertilityStatuses, "state.fertilityStatus", in.FertilityStatus),
		RearingRank:            in.RearingRank,
		ReproductiveStatus:     enums.read(models.ReproductiveStatuses, "state.reproductiveStatus", in.ReproductiveStatus),
		StatusDate:             in.StatusDate.Ptr(),
		WithholdingDateMeat:    in.WithholdingDateMeat.Ptr(),
		WithholdingDateExport:  in.WithholdingDateExport.Ptr(),
		WithholdingDateOrganic: in.WithholdingDateOrganic.Ptr(),
		Weaned:                 in.Weaned,
		OffspringCount:         in.OffspringCount,
		WeightsID:              weightsID,
		BodyConditionScoreID:   scoreID,
		BodyConditionScoreDate: in.BodyConditionScoreDate.Ptr(),
		AnimalUnitsID:          unitsID,
		HasHadOffspring:        in.HasHadOffspring,
	}
	if enums.err != nil {
		return nil, enums.err
	}

	if err := s.repo.UpsertState(ctx, state); err != nil {
		return nil, err
	}
	return &state.ID, nil
}

// ingestEnterprise resolves the enterprise from the animal, then from its
// management group, then from a bare enterprise id. It returns nil when
// none of them names one.
func (s *animalIngester) ingestEnterprise(ctx context.Context, farmID string, rec *agriwebb.Animal) (*models.Enterprise, error) {
	var e *models.Enterprise

	switch {
	case rec.Enterprise != nil:
		id, err := requireID(rec.Enterprise.EnterpriseID, "enterprise.enterpriseId")
		if err != nil {
			return nil, err
		}
		e = &models.Enterprise{EnterpriseID: id, Name: rec.Enterprise.Name, FarmID: optionalID(rec.Enterprise.FarmID)}
	case rec.ManagementGroup != nil && rec.ManagementGroup.Enterprise != nil:
		in := rec.ManagementGroup.Enterprise
		id, err := requireID(in.EnterpriseID, "managementGroup.enterprise.enterpriseId")
		if err != nil {
			return nil, err
		}
		e = &models.Enterprise{EnterpriseID: id, Name: in.Name, FarmID: optionalID(in.FarmID)}
	default:
		id := optionalID(rec.EnterpriseID)
		if id == nil && rec.ManagementGroup != nil {
			id = optionalID(rec.ManagementGroup.EnterpriseID)
		}
		if id == nil {
			return nil, nil
		}
		e = &models.Enterprise{EnterpriseID: *id}
	}

	if e.FarmID == nil {
		e.FarmID = &farmID
	}
	if err := s.repo.UpsertEnterprise(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *animalIngester) ingestManagementGroup(ctx context.Context, rec *agriwebb.Animal, enterprise *models.Enterprise) (*models.ManagementGroup, error) {
	in := rec.ManagementGroup
	if in == nil {
		id := optionalID(rec.ManagementGroupID)
		if id == nil {
			return nil, nil
		}
		in = &agriwebb.ManagementGroup{ManagementGroupID: agriwebb.ID{Value: *id, Set: true}}
	}

	groupID := derefString(optionalID(&in.ManagementGroupID))
	if groupID == "" {
		groupID = derefString(optionalID(rec.ManagementGroupID))
	}
	if groupID == "" {
		return nil, &MissingFieldError{Path: "managementGroup.managementGroupId"}
	}

	var enums enumReader
	group := &models.ManagementGroup{
		ManagementGroupID: groupID,
		EnterpriseID:      optionalID(in.EnterpriseID),
		FarmID:            optionalID(in.FarmID),
		Name:              in.Name,
		Species:           enums.read(models.SpeciesNames, "managementGroup.species", in.Species),
		Type:              in.Type,
	}
	if enums.err != nil {
		return nil, enums.err
	}
	if enterprise != nil {
		group.EnterpriseRef = &enterprise.ID
		if group.EnterpriseID == nil {
			group.EnterpriseID = &enterprise.EnterpriseID
		}
	}

	if err := s.repo.UpsertManagementGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func parseRecords(in []agriwebb.AnimalRecord) ([]*models.AnimalRecord, error) {
	out := make([]*models.AnimalRecord, 0, len(in))
	for i := range in {
		r := &in[i]
		path := indexPath("records", i)

		recordID, err := requireID(r.RecordID, joinPath(path, "recordId"))
		if err != nil {
			return nil, err
		}

		var enums enumReader
		rec := &models.AnimalRecord{
			RecordID:        recordID,
			RecordType:      enums.read(models.RecordTypes, joinPath(path, "recordType"), r.RecordType),
			ObservationDate: r.ObservationDate.Ptr(),
			SessionID:       r.SessionID,
		}
		if enums.err != nil {
			return nil, enums.err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *animalIngester) ingestRecords(ctx context.Context, animalRef uuid.UUID, records []*models.AnimalRecord) error {
	for _, rec := range records {
		if err := s.repo.UpsertRecord(ctx, rec); err != nil {
			return err
		}
		if err := s.repo.LinkRecord(ctx, animalRef, rec.ID); err != nil {
			return fmt.Errorf("failed to link record %s: %w", rec.RecordID, err)
		}
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
