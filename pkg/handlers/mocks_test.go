package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/auth"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/services"
	"github.com/ranchforce/agriwebb-sync/pkg/services/workqueue"
)

// mockAuthService authenticates every request as the configured subject.
// An empty subject behaves like a request without credentials.
type mockAuthService struct {
	subject string
	org     string
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	if m.subject == "" {
		return nil, "", auth.ErrMissingAuthorization
	}
	claims := &auth.Claims{Organization: m.org}
	claims.Subject = m.subject
	return claims, "test-token", nil
}

func testMiddleware(subject string) *auth.Middleware {
	return auth.NewMiddleware(&mockAuthService{subject: subject}, zap.NewNop())
}

// mockOAuthService is a configurable OAuthService.
type mockOAuthService struct {
	authz     *services.Authorization
	token     *models.AgriWebbToken
	err       error
	authorize []string
	completed []*services.CallbackRequest
}

func (m *mockOAuthService) Authorize(organization string) (*services.Authorization, error) {
	m.authorize = append(m.authorize, organization)
	if m.err != nil {
		return nil, m.err
	}
	return m.authz, nil
}

func (m *mockOAuthService) Complete(_ context.Context, req *services.CallbackRequest) (*models.AgriWebbToken, error) {
	m.completed = append(m.completed, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

// mockTokenService keeps tokens in a map.
type mockTokenService struct {
	tokens map[uuid.UUID]*models.AgriWebbToken
	err    error
}

func newMockTokenService(tokens ...*models.AgriWebbToken) *mockTokenService {
	m := &mockTokenService{tokens: map[uuid.UUID]*models.AgriWebbToken{}}
	for _, t := range tokens {
		m.tokens[t.ID] = t
	}
	return m
}

func (m *mockTokenService) Store(_ context.Context, userID, organization string, grant *agriwebb.Grant) (*models.AgriWebbToken, error) {
	tok := models.NewAgriWebbToken(userID, organization, grant.AccessToken, grant.RefreshToken, grant.TokenType, grant.ExpiresIn, time.Now())
	tok.ID = uuid.New()
	m.tokens[tok.ID] = tok
	return tok, nil
}

func (m *mockTokenService) Get(_ context.Context, id uuid.UUID) (*models.AgriWebbToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	tok, ok := m.tokens[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return tok, nil
}

func (m *mockTokenService) List(context.Context) ([]*models.AgriWebbToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.AgriWebbToken, 0, len(m.tokens))
	for _, t := range m.tokens {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTokenService) Refresh(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error) {
	tok, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		return nil, apperrors.ErrNoRefreshToken
	}
	tok.ApplyRefresh("new-access", "", "", 3600, time.Now())
	return tok, nil
}

func (m *mockTokenService) EnsureFresh(ctx context.Context, id uuid.UUID) (agriwebb.Credentials, error) {
	return agriwebb.Credentials{}, nil
}

func (m *mockTokenService) SetOrganization(ctx context.Context, id uuid.UUID, organization string) (*models.AgriWebbToken, error) {
	tok, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tok.Organization = organization
	return tok, nil
}

var _ services.TokenService = (*mockTokenService)(nil)

// mockSyncService reports success for every job.
type mockSyncService struct{}

func (mockSyncService) SyncAnimalsPage(_ context.Context, p services.SyncParams) *services.JobResult {
	return &services.JobResult{Job: services.JobSyncAnimals, Status: services.JobStatusSucceeded, FarmID: p.Query.FarmID}
}

func (mockSyncService) ExportAnimalsPage(_ context.Context, p services.SyncParams) *services.JobResult {
	return &services.JobResult{Job: services.JobExportAnimals, Status: services.JobStatusSucceeded, FarmID: p.Query.FarmID}
}

func (mockSyncService) SyncFarms(context.Context, services.FarmSyncParams) *services.JobResult {
	return &services.JobResult{Job: services.JobSyncFarms, Status: services.JobStatusSucceeded}
}

// fakeQueue records tasks without running them.
type fakeQueue struct {
	closed bool
	tasks  []workqueue.Task
	snaps  []workqueue.TaskSnapshot
}

func (q *fakeQueue) Enqueue(task workqueue.Task) error {
	if q.closed {
		return workqueue.ErrQueueClosed
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) GetTasks() []workqueue.TaskSnapshot {
	return q.snaps
}

func (q *fakeQueue) GetTask(id string) (workqueue.TaskSnapshot, bool) {
	for _, s := range q.snaps {
		if s.ID == id {
			return s, true
		}
	}
	return workqueue.TaskSnapshot{}, false
}

// mockLookup serves one animal and one farm.
type mockLookup struct {
	animal *models.AnimalDetail
	farm   *models.Farm
	err    error
}

func (m *mockLookup) GetAnimal(_ context.Context, animalID string) (*models.AnimalDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.animal == nil || m.animal.Animal.AnimalID != animalID {
		return nil, apperrors.ErrNotFound
	}
	return m.animal, nil
}

func (m *mockLookup) GetFarm(_ context.Context, farmID string) (*models.Farm, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.farm == nil || m.farm.AgriID != farmID {
		return nil, apperrors.ErrNotFound
	}
	return m.farm, nil
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func ownedToken(userID string) *models.AgriWebbToken {
	tok := models.NewAgriWebbToken(userID, "org-1", "access", "refresh", "Bearer", 3600, time.Now())
	tok.ID = uuid.New()
	return tok
}
