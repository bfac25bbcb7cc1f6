//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/testhelpers"
)

type animalTestContext struct {
	t      *testing.T
	testDB *testhelpers.TestDB
	repo   AnimalRepository
}

func setupAnimalTest(t *testing.T) *animalTestContext {
	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)
	return &animalTestContext{t: t, testDB: testDB, repo: NewAnimalRepository()}
}

func (tc *animalTestContext) ctx() context.Context {
	return tc.testDB.DB.WithPool(context.Background())
}

func strPtr(s string) *string { return &s }

func TestAnimalRepository_UpsertTagIsIdempotent(t *testing.T) {
	tc := setupAnimalTest(t)

	first := &models.AnimalTag{AgriID: "T1", VID: strPtr("A1"), State: strPtr("active")}
	require.NoError(t, tc.repo.UpsertTag(tc.ctx(), first))

	second := &models.AnimalTag{AgriID: "T1", VID: strPtr("A2")}
	require.NoError(t, tc.repo.UpsertTag(tc.ctx(), second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_animal_tags"))

	var vid string
	var state *string
	err := tc.testDB.DB.QueryRow(context.Background(),
		`SELECT vid, state FROM agw_animal_tags WHERE agri_id = 'T1'`).Scan(&vid, &state)
	require.NoError(t, err)
	assert.Equal(t, "A2", vid)
	assert.Nil(t, state)
}

func TestAnimalRepository_ReplaceIdentityTags(t *testing.T) {
	tc := setupAnimalTest(t)

	identity := &models.AnimalIdentity{AnimalID: "42", Name: strPtr("Bess")}
	require.NoError(t, tc.repo.UpsertIdentity(tc.ctx(), identity))

	t1 := &models.AnimalTag{AgriID: "T1"}
	t2 := &models.AnimalTag{AgriID: "T2"}
	require.NoError(t, tc.repo.UpsertTag(tc.ctx(), t1))
	require.NoError(t, tc.repo.UpsertTag(tc.ctx(), t2))

	require.NoError(t, tc.repo.ReplaceIdentityTags(tc.ctx(), identity.ID, []uuid.UUID{t1.ID, t2.ID}))
	assert.Equal(t, 2, tc.testDB.Count(t, "agw_animal_identity_tags"))

	require.NoError(t, tc.repo.ReplaceIdentityTags(tc.ctx(), identity.ID, []uuid.UUID{t2.ID}))
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_animal_identity_tags"))

	require.NoError(t, tc.repo.ReplaceIdentityTags(tc.ctx(), identity.ID, nil))
	assert.Equal(t, 0, tc.testDB.Count(t, "agw_animal_identity_tags"))
}

func TestAnimalRepository_DateConfidenceIsShared(t *testing.T) {
	tc := setupAnimalTest(t)

	a := &models.DateConfidence{Year: "Accurate", Month: "Unknown", Day: "Unknown"}
	b := &models.DateConfidence{Year: "Accurate", Month: "Unknown", Day: "Unknown"}
	require.NoError(t, tc.repo.GetOrCreateDateConfidence(tc.ctx(), a))
	require.NoError(t, tc.repo.GetOrCreateDateConfidence(tc.ctx(), b))

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_date_confidences"))
}

func TestAnimalRepository_MeasurementsAlwaysInsert(t *testing.T) {
	tc := setupAnimalTest(t)

	for i := 0; i < 2; i++ {
		m := &models.Measurement{Kind: models.MeasurementWeight, Unit: "kg", Value: 412}
		require.NoError(t, tc.repo.InsertMeasurement(tc.ctx(), m))
		assert.NotEqual(t, uuid.Nil, m.ID)
	}
	assert.Equal(t, 2, tc.testDB.Count(t, "agw_weights"))

	err := tc.repo.InsertMeasurement(tc.ctx(), &models.Measurement{Kind: "height", Unit: "cm", Value: 1})
	assert.Error(t, err)
}

func TestAnimalRepository_ParentageReplacesLinks(t *testing.T) {
	tc := setupAnimalTest(t)

	dam := &models.Parent{Role: models.ParentRoleGenetic, ParentAnimalID: "D1", ParentType: models.ParentTypeDam}
	sire := &models.Parent{Role: models.ParentRoleGenetic, ParentAnimalID: "S1", ParentType: models.ParentTypeSire}
	surrogate := &models.Parent{Role: models.ParentRoleSurrogate, ParentAnimalID: "X1", ParentType: models.ParentTypeUnknown}
	for _, p := range []*models.Parent{dam, sire, surrogate} {
		require.NoError(t, tc.repo.UpsertParent(tc.ctx(), p))
	}

	parentage := &models.Parentage{
		AnimalID:    "42",
		SurrogateID: &surrogate.ID,
		DamIDs:      []uuid.UUID{dam.ID},
		SireIDs:     []uuid.UUID{sire.ID},
	}
	require.NoError(t, tc.repo.UpsertParentage(tc.ctx(), parentage))
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_parentage_dams"))
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_parentage_sires"))
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_surrogates"))

	again := &models.Parentage{AnimalID: "42", DamIDs: []uuid.UUID{dam.ID}}
	require.NoError(t, tc.repo.UpsertParentage(tc.ctx(), again))
	assert.Equal(t, parentage.ID, again.ID)
	assert.Equal(t, 0, tc.testDB.Count(t, "agw_parentage_sires"))
	assert.Equal(t, 1, tc.testDB.Count(t, "agw_parentages"))
}

func TestAnimalRepository_EnterpriseStubKeepsName(t *testing.T) {
	tc := setupAnimalTest(t)

	full := &models.Enterprise{EnterpriseID: "E1", Name: strPtr("Beef"), FarmID: strPtr("F1")}
	require.NoError(t, tc.repo.UpsertEnterprise(tc.ctx(), full))

	stub := &models.Enterprise{EnterpriseID: "E1"}
	require.NoError(t, tc.repo.UpsertEnterprise(tc.ctx(), stub))
	assert.Equal(t, full.ID, stub.ID)

	group := &models.ManagementGroup{ManagementGroupID: "MG1", EnterpriseID: strPtr("E1"), EnterpriseRef: &full.ID}
	require.NoError(t, tc.repo.UpsertManagementGroup(tc.ctx(), group))

	var name string
	err := tc.testDB.DB.QueryRow(context.Background(),
		`SELECT name FROM agw_enterprises WHERE enterprise_id = 'E1'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "Beef", name)
}

func TestAnimalRepository_GetDetail(t *testing.T) {
	tc := setupAnimalTest(t)
	ctx := tc.ctx()

	identity := &models.AnimalIdentity{AnimalID: "42", Name: strPtr("Bess")}
	require.NoError(t, tc.repo.UpsertIdentity(ctx, identity))
	tag := &models.AnimalTag{AgriID: "T1", VID: strPtr("A1")}
	require.NoError(t, tc.repo.UpsertTag(ctx, tag))
	require.NoError(t, tc.repo.ReplaceIdentityTags(ctx, identity.ID, []uuid.UUID{tag.ID}))

	enterprise := &models.Enterprise{EnterpriseID: "E1", FarmID: strPtr("F1")}
	require.NoError(t, tc.repo.UpsertEnterprise(ctx, enterprise))
	group := &models.ManagementGroup{ManagementGroupID: "MG1", EnterpriseRef: &enterprise.ID}
	require.NoError(t, tc.repo.UpsertManagementGroup(ctx, group))

	observed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	animal := &models.Animal{
		AnimalID:           "42",
		FarmID:             "F1",
		IdentityID:         &identity.ID,
		ManagementGroupID:  strPtr("MG1"),
		ManagementGroupRef: &group.ID,
		EnterpriseID:       strPtr("E1"),
		EnterpriseRef:      &enterprise.ID,
		ObservationDate:    &observed,
	}
	require.NoError(t, tc.repo.UpsertAnimal(ctx, animal))

	record := &models.AnimalRecord{RecordID: "R1", RecordType: strPtr("weigh")}
	require.NoError(t, tc.repo.UpsertRecord(ctx, record))
	require.NoError(t, tc.repo.LinkRecord(ctx, animal.ID, record.ID))
	require.NoError(t, tc.repo.LinkRecord(ctx, animal.ID, record.ID))

	detail, err := tc.repo.GetDetail(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, animal.ID, detail.Animal.ID)
	require.NotNil(t, detail.Identity)
	assert.Equal(t, "Bess", *detail.Identity.Name)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "T1", detail.Tags[0].AgriID)
	require.NotNil(t, detail.ManagementGroup)
	assert.Equal(t, "MG1", detail.ManagementGroup.ManagementGroupID)
	require.NotNil(t, detail.Enterprise)
	assert.Equal(t, "E1", detail.Enterprise.EnterpriseID)
	require.Len(t, detail.Records, 1)
	assert.Nil(t, detail.State)
	assert.True(t, observed.Equal(*detail.Animal.ObservationDate))

	_, err = tc.repo.GetDetail(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAnimalRepository_RollbackInTx(t *testing.T) {
	tc := setupAnimalTest(t)

	err := tc.testDB.DB.InTx(context.Background(), func(ctx context.Context) error {
		if err := tc.repo.UpsertTag(ctx, &models.AnimalTag{AgriID: "T1"}); err != nil {
			return err
		}
		return apperrors.ErrConflict
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 0, tc.testDB.Count(t, "agw_animal_tags"))
}
