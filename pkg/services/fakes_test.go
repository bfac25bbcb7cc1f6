package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/repositories"
)

// memAnimalRepo is an in-memory AnimalRepository keyed like the real tables.
type memAnimalRepo struct {
	mu sync.Mutex

	calls []string

	tags            map[string]*models.AnimalTag
	identities      map[string]*models.AnimalIdentity
	identityTags    map[uuid.UUID][]uuid.UUID
	confidences     map[string]*models.DateConfidence
	characteristics map[string]*models.AnimalCharacteristics
	parentIdents    map[string]*models.ParentAnimalIdentity
	parents         map[string]*models.Parent
	parentages      map[string]*models.Parentage
	measurements    []*models.Measurement
	weights         map[string]*models.AnimalWeightSummary
	states          map[string]*models.AnimalState
	enterprises     map[string]*models.Enterprise
	groups          map[string]*models.ManagementGroup
	animals         map[string]*models.Animal
	records         map[string]*models.AnimalRecord
	recordLinks     map[uuid.UUID]map[uuid.UUID]bool

	failOn string
}

func newMemAnimalRepo() *memAnimalRepo {
	return &memAnimalRepo{
		tags:            map[string]*models.AnimalTag{},
		identities:      map[string]*models.AnimalIdentity{},
		identityTags:    map[uuid.UUID][]uuid.UUID{},
		confidences:     map[string]*models.DateConfidence{},
		characteristics: map[string]*models.AnimalCharacteristics{},
		parentIdents:    map[string]*models.ParentAnimalIdentity{},
		parents:         map[string]*models.Parent{},
		parentages:      map[string]*models.Parentage{},
		weights:         map[string]*models.AnimalWeightSummary{},
		states:          map[string]*models.AnimalState{},
		enterprises:     map[string]*models.Enterprise{},
		groups:          map[string]*models.ManagementGroup{},
		animals:         map[string]*models.Animal{},
		records:         map[string]*models.AnimalRecord{},
		recordLinks:     map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

var _ repositories.AnimalRepository = (*memAnimalRepo)(nil)

func (m *memAnimalRepo) record(op string) error {
	m.calls = append(m.calls, op)
	if m.failOn == op {
		return fmt.Errorf("failed to %s: connection reset", op)
	}
	return nil
}

func (m *memAnimalRepo) UpsertTag(_ context.Context, t *models.AnimalTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("tag"); err != nil {
		return err
	}
	if old, ok := m.tags[t.AgriID]; ok {
		t.ID = old.ID
	} else {
		t.ID = uuid.New()
	}
	cp := *t
	m.tags[t.AgriID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertIdentity(_ context.Context, i *models.AnimalIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("identity"); err != nil {
		return err
	}
	if old, ok := m.identities[i.AnimalID]; ok {
		i.ID = old.ID
	} else {
		i.ID = uuid.New()
	}
	cp := *i
	m.identities[i.AnimalID] = &cp
	return nil
}

func (m *memAnimalRepo) ReplaceIdentityTags(_ context.Context, identityID uuid.UUID, tagIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("identity_tags"); err != nil {
		return err
	}
	m.identityTags[identityID] = append([]uuid.UUID(nil), tagIDs...)
	return nil
}

func (m *memAnimalRepo) GetOrCreateDateConfidence(_ context.Context, dc *models.DateConfidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("date_confidence"); err != nil {
		return err
	}
	key := dc.Year + "/" + dc.Month + "/" + dc.Day
	if old, ok := m.confidences[key]; ok {
		dc.ID = old.ID
		return nil
	}
	dc.ID = uuid.New()
	cp := *dc
	m.confidences[key] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertCharacteristics(_ context.Context, c *models.AnimalCharacteristics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("characteristics"); err != nil {
		return err
	}
	if old, ok := m.characteristics[c.AnimalID]; ok {
		c.ID = old.ID
	} else {
		c.ID = uuid.New()
	}
	cp := *c
	m.characteristics[c.AnimalID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertParentIdentity(_ context.Context, p *models.ParentAnimalIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("parent_identity"); err != nil {
		return err
	}
	if old, ok := m.parentIdents[p.ParentAnimalID]; ok {
		p.ID = old.ID
	} else {
		p.ID = uuid.New()
	}
	cp := *p
	m.parentIdents[p.ParentAnimalID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertParent(_ context.Context, p *models.Parent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(string(p.Role) + "_parent"); err != nil {
		return err
	}
	key := string(p.Role) + ":" + p.ParentAnimalID
	if old, ok := m.parents[key]; ok {
		p.ID = old.ID
	} else {
		p.ID = uuid.New()
	}
	cp := *p
	m.parents[key] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertParentage(_ context.Context, p *models.Parentage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("parentage"); err != nil {
		return err
	}
	if old, ok := m.parentages[p.AnimalID]; ok {
		p.ID = old.ID
	} else {
		p.ID = uuid.New()
	}
	cp := *p
	m.parentages[p.AnimalID] = &cp
	return nil
}

func (m *memAnimalRepo) InsertMeasurement(_ context.Context, meas *models.Measurement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(string(meas.Kind)); err != nil {
		return err
	}
	meas.ID = uuid.New()
	cp := *meas
	m.measurements = append(m.measurements, &cp)
	return nil
}

func (m *memAnimalRepo) UpsertWeightSummary(_ context.Context, s *models.AnimalWeightSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("weight_summary"); err != nil {
		return err
	}
	if old, ok := m.weights[s.AnimalID]; ok {
		s.ID = old.ID
	} else {
		s.ID = uuid.New()
	}
	cp := *s
	m.weights[s.AnimalID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertState(_ context.Context, s *models.AnimalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("state"); err != nil {
		return err
	}
	if old, ok := m.states[s.AnimalID]; ok {
		s.ID = old.ID
	} else {
		s.ID = uuid.New()
	}
	cp := *s
	m.states[s.AnimalID] = &cp
	return nil
}

// UpsertEnterprise mirrors the COALESCE update of the SQL repository.
func (m *memAnimalRepo) UpsertEnterprise(_ context.Context, e *models.Enterprise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("enterprise"); err != nil {
		return err
	}
	cp := *e
	if old, ok := m.enterprises[e.EnterpriseID]; ok {
		e.ID = old.ID
		cp.ID = old.ID
		if cp.Name == nil {
			cp.Name = old.Name
		}
		if cp.FarmID == nil {
			cp.FarmID = old.FarmID
		}
	} else {
		e.ID = uuid.New()
		cp.ID = e.ID
	}
	m.enterprises[e.EnterpriseID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertManagementGroup(_ context.Context, g *models.ManagementGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("management_group"); err != nil {
		return err
	}
	if old, ok := m.groups[g.ManagementGroupID]; ok {
		g.ID = old.ID
	} else {
		g.ID = uuid.New()
	}
	cp := *g
	m.groups[g.ManagementGroupID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertAnimal(_ context.Context, a *models.Animal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("animal"); err != nil {
		return err
	}
	if old, ok := m.animals[a.AnimalID]; ok {
		a.ID = old.ID
	} else {
		a.ID = uuid.New()
	}
	cp := *a
	m.animals[a.AnimalID] = &cp
	return nil
}

func (m *memAnimalRepo) UpsertRecord(_ context.Context, r *models.AnimalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("record"); err != nil {
		return err
	}
	if old, ok := m.records[r.RecordID]; ok {
		r.ID = old.ID
	} else {
		r.ID = uuid.New()
	}
	cp := *r
	m.records[r.RecordID] = &cp
	return nil
}

func (m *memAnimalRepo) LinkRecord(_ context.Context, animalRef, recordRef uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("record_link"); err != nil {
		return err
	}
	if m.recordLinks[animalRef] == nil {
		m.recordLinks[animalRef] = map[uuid.UUID]bool{}
	}
	m.recordLinks[animalRef][recordRef] = true
	return nil
}

func (m *memAnimalRepo) GetDetail(_ context.Context, animalID string) (*models.AnimalDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.animals[animalID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &models.AnimalDetail{
		Animal:   a,
		Identity: m.identities[animalID],
		Tags:     []*models.AnimalTag{},
		Records:  []*models.AnimalRecord{},
	}, nil
}

func (m *memAnimalRepo) measurementsOf(kind models.MeasurementKind) []*models.Measurement {
	var out []*models.Measurement
	for _, meas := range m.measurements {
		if meas.Kind == kind {
			out = append(out, meas)
		}
	}
	return out
}

// indexOf returns the position of the first call named op, or -1.
func (m *memAnimalRepo) indexOf(op string) int {
	for i, c := range m.calls {
		if c == op {
			return i
		}
	}
	return -1
}

// memFarmRepo is an in-memory FarmRepository.
type memFarmRepo struct {
	mu sync.Mutex

	points      []*models.GeoPoint
	geometries  []*models.GeoFeature
	alerts      []*models.CapacityAlert
	capacities  []*models.Capacity
	identifiers []*models.ExternalIdentifier

	addresses   map[string]*models.Address
	features    map[string]*models.MapFeature
	fields      map[string]*models.Field
	farms       map[string]*models.Farm
	links       map[string][]uuid.UUID
	upsertOrder []string
}

func newMemFarmRepo() *memFarmRepo {
	return &memFarmRepo{
		addresses: map[string]*models.Address{},
		features:  map[string]*models.MapFeature{},
		fields:    map[string]*models.Field{},
		farms:     map[string]*models.Farm{},
		links:     map[string][]uuid.UUID{},
	}
}

var _ repositories.FarmRepository = (*memFarmRepo)(nil)

func (m *memFarmRepo) InsertGeoPoint(_ context.Context, p *models.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.points = append(m.points, p)
	return nil
}

func (m *memFarmRepo) InsertGeoFeature(_ context.Context, g *models.GeoFeature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = uuid.New()
	m.geometries = append(m.geometries, g)
	return nil
}

func (m *memFarmRepo) InsertCapacityAlert(_ context.Context, a *models.CapacityAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *memFarmRepo) InsertCapacity(_ context.Context, c *models.Capacity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.capacities = append(m.capacities, c)
	return nil
}

func (m *memFarmRepo) InsertExternalIdentifier(_ context.Context, id *models.ExternalIdentifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id.ID = uuid.New()
	m.identifiers = append(m.identifiers, id)
	return nil
}

func (m *memFarmRepo) UpsertAddress(_ context.Context, a *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertOrder = append(m.upsertOrder, "address")
	if old, ok := m.addresses[a.FarmAgriID]; ok {
		a.ID = old.ID
	} else {
		a.ID = uuid.New()
	}
	m.addresses[a.FarmAgriID] = a
	return nil
}

func (m *memFarmRepo) UpsertMapFeature(_ context.Context, f *models.MapFeature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertOrder = append(m.upsertOrder, "map_feature")
	if old, ok := m.features[f.AgriID]; ok {
		f.ID = old.ID
	} else {
		f.ID = uuid.New()
	}
	m.features[f.AgriID] = f
	return nil
}

func (m *memFarmRepo) UpsertField(_ context.Context, f *models.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertOrder = append(m.upsertOrder, "field")
	if old, ok := m.fields[f.AgriID]; ok {
		f.ID = old.ID
	} else {
		f.ID = uuid.New()
	}
	m.fields[f.AgriID] = f
	return nil
}

func (m *memFarmRepo) UpsertFarm(_ context.Context, f *models.Farm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertOrder = append(m.upsertOrder, "farm")
	if old, ok := m.farms[f.AgriID]; ok {
		f.ID = old.ID
	} else {
		f.ID = uuid.New()
	}
	m.farms[f.AgriID] = f
	return nil
}

func (m *memFarmRepo) replace(kind string, owner uuid.UUID, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[kind+":"+owner.String()] = append([]uuid.UUID(nil), ids...)
	return nil
}

func (m *memFarmRepo) ReplaceFieldIdentifiers(_ context.Context, fieldID uuid.UUID, ids []uuid.UUID) error {
	return m.replace("field_identifiers", fieldID, ids)
}

func (m *memFarmRepo) ReplaceFarmIdentifiers(_ context.Context, farmID uuid.UUID, ids []uuid.UUID) error {
	return m.replace("farm_identifiers", farmID, ids)
}

func (m *memFarmRepo) ReplaceFarmMapFeatures(_ context.Context, farmID uuid.UUID, ids []uuid.UUID) error {
	return m.replace("farm_map_features", farmID, ids)
}

func (m *memFarmRepo) ReplaceFarmFields(_ context.Context, farmID uuid.UUID, ids []uuid.UUID) error {
	return m.replace("farm_fields", farmID, ids)
}

func (m *memFarmRepo) GetByAgriID(_ context.Context, agriID string) (*models.Farm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.farms[agriID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return f, nil
}

// fakeDB runs transactions inline and counts how they ended.
type fakeDB struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (d *fakeDB) WithPool(ctx context.Context) context.Context { return ctx }

func (d *fakeDB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.rollbacks++
		return err
	}
	d.commits++
	return nil
}

var _ Database = (*fakeDB)(nil)

// memTokenRepo is an in-memory TokenRepository keyed by (user, organization).
type memTokenRepo struct {
	mu      sync.Mutex
	tokens  map[uuid.UUID]models.AgriWebbToken
	updates int
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[uuid.UUID]models.AgriWebbToken)}
}

var _ repositories.TokenRepository = (*memTokenRepo)(nil)

func (m *memTokenRepo) Save(_ context.Context, tok *models.AgriWebbToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.tokens {
		if existing.UserID == tok.UserID && existing.Organization == tok.Organization {
			tok.ID = id
			tok.CreatedAt = existing.CreatedAt
		}
	}
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	m.tokens[tok.ID] = *tok
	return nil
}

func (m *memTokenRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AgriWebbToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &tok, nil
}

func (m *memTokenRepo) List(_ context.Context) ([]*models.AgriWebbToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AgriWebbToken, 0, len(m.tokens))
	for _, tok := range m.tokens {
		tok := tok
		out = append(out, &tok)
	}
	return out, nil
}

func (m *memTokenRepo) Update(_ context.Context, tok *models.AgriWebbToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tok.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.tokens[tok.ID] = *tok
	m.updates++
	return nil
}

func (m *memTokenRepo) MarkExpired(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	tok.IsExpired = true
	m.tokens[id] = tok
	return nil
}

// fakeProvider records OAuth calls and answers with canned grants.
type fakeProvider struct {
	mu            sync.Mutex
	grant         *agriwebb.Grant
	err           error
	exchanged     []string
	refreshedWith []string
}

var _ TokenProvider = (*fakeProvider)(nil)

func (p *fakeProvider) AuthorizationURL(state, organization string) string {
	u := "https://auth.example.com/authorize?state=" + state
	if organization != "" {
		u += "&organization=" + organization
	}
	return u
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*agriwebb.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchanged = append(p.exchanged, code)
	if p.err != nil {
		return nil, p.err
	}
	return p.grant, nil
}

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (*agriwebb.Grant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshedWith = append(p.refreshedWith, refreshToken)
	if p.err != nil {
		return nil, p.err
	}
	return p.grant, nil
}
