package agriwebb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/validation"
)

func testConfig(baseURL string) Config {
	return Config{
		ClientID:         "client-id",
		ClientSecret:     "client-secret",
		RedirectURI:      "http://localhost:8080/oauth2/callback/",
		AuthorizationURL: baseURL + "/oauth2/authorize",
		TokenURL:         baseURL + "/oauth2/token",
		APIURL:           baseURL + "/graphql",
		Timeout:          5 * time.Second,
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(testConfig(baseURL), zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_FieldLevelErrors(t *testing.T) {
	cfg := testConfig("https://api.agriwebb.test")
	cfg.ClientSecret = ""
	cfg.TokenURL = "not a url"

	_, err := NewClient(cfg, zap.NewNop())
	require.Error(t, err)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Tag
	}
	assert.Equal(t, "required", fields["client_secret"])
	assert.Equal(t, "http_url", fields["token_url"])
	assert.Len(t, verr.Fields, 2)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	cfg := testConfig("https://api.agriwebb.test")
	cfg.Timeout = 0
	c, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestExecute_SendsQueryAndHeader(t *testing.T) {
	var gotAuth string
	var gotBody graphQLRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"data":{"ping":"pong"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var out struct {
		Ping string `json:"ping"`
	}
	err := c.Execute(context.Background(), Credentials{TokenType: "bearer", AccessToken: "at-1"},
		"query { ping }", map[string]any{"x": 1}, &out)
	require.NoError(t, err)

	assert.Equal(t, "bearer at-1", gotAuth)
	assert.Equal(t, "query { ping }", gotBody.Query)
	assert.EqualValues(t, 1, gotBody.Variables["x"])
	assert.Equal(t, "pong", out.Ping)
}

func TestExecute_DefaultsTokenType(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.Execute(context.Background(), Credentials{AccessToken: "at"}, "q", nil, nil))
	assert.Equal(t, "Bearer at", gotAuth)
}

func TestExecute_MissingAccessToken(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	err := c.Execute(context.Background(), Credentials{}, "q", nil, nil)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestExecute_HTTPError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		authFail bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, authFail: true},
		{name: "forbidden", status: http.StatusForbidden, authFail: true},
		{name: "server error", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope","access_token":"leak"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			err := c.Execute(context.Background(), Credentials{AccessToken: "at"}, "q", nil, nil)

			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.NotContains(t, httpErr.Body, "leak")
			assert.Equal(t, tt.authFail, errors.Is(err, ErrAuthentication))
		})
	}
}

func TestExecute_GraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"farm not found","path":["animals"]},{"message":"second"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Execute(context.Background(), Credentials{AccessToken: "at"}, "q", nil, &struct{}{})

	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	require.Len(t, gqlErr.Errors, 2)
	assert.Equal(t, "farm not found", gqlErr.Errors[0].Message)
	assert.Contains(t, err.Error(), "farm not found; second")
}

func TestExecute_MissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Execute(context.Background(), Credentials{AccessToken: "at"}, "q", nil, &struct{}{})
	assert.ErrorContains(t, err, "no data")
}

func TestAnimals_PassesVariablesAndDecodesPage(t *testing.T) {
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &req))
		gotVars = req.Variables
		_, _ = w.Write([]byte(`{"data":{"animals":{"nonPagedCount":120,"animals":[
			{"animalId":42,"identity":{"name":"Bess","eid":"EID42"},"managementGroup":{"managementGroupId":"MG1"}},
			{"animalId":"a-43"}
		]}}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	limit, skip := 50, 100
	obs := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	page, err := c.Animals(context.Background(), Credentials{AccessToken: "at"}, AnimalsQuery{
		FarmID:          "farm-1",
		Filter:          map[string]any{"onFarm": map[string]any{"_eq": true}},
		Limit:           &limit,
		Skip:            &skip,
		ObservationDate: &obs,
		Capabilities:    []string{"records"},
	})
	require.NoError(t, err)

	assert.Equal(t, "farm-1", gotVars["farmId"])
	assert.EqualValues(t, 50, gotVars["limit"])
	assert.EqualValues(t, 100, gotVars["skip"])
	assert.EqualValues(t, obs.UnixMilli(), gotVars["observationDate"])
	assert.NotContains(t, gotVars, "sort")

	assert.Equal(t, 120, page.NonPagedCount)
	require.Len(t, page.Animals, 2)
	assert.Equal(t, "42", page.Animals[0].AnimalID.Value)
	assert.Equal(t, "Bess", *page.Animals[0].Identity.Name)
	assert.Equal(t, "MG1", page.Animals[0].ManagementGroup.ManagementGroupID.Value)
	assert.Equal(t, "a-43", page.Animals[1].AnimalID.Value)
	assert.Nil(t, page.Animals[1].Identity)
}

func TestAnimals_RequiresFarm(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.Animals(context.Background(), Credentials{AccessToken: "at"}, AnimalsQuery{})
	assert.Error(t, err)
}

func TestFarms_DecodesNestedGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"farms":[{
			"id":"farm-1","name":"Home","timeZone":"Australia/Sydney",
			"address":{"town":"Dubbo","location":{"lat":-32.2,"long":148.6}},
			"mapFeatures":[{"id":"mf-1","type":"WATER_TANK","geometry":{"type":"Point","coordinates":[148.6,-32.2]},
				"capacity":{"mode":"depth","value":1.5,"unit":"meter"}}],
			"fields":[{"id":"f-1","creationDate":1700000000000,"landUse":"Grazing","identifiers":[{"type":"pic","value":["NA123"]}]}]
		}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	farms, err := c.Farms(context.Background(), Credentials{AccessToken: "at"}, FarmsQuery{FarmIDs: []string{"farm-1"}})
	require.NoError(t, err)
	require.Len(t, farms, 1)

	f := farms[0]
	assert.Equal(t, "farm-1", f.ID.Value)
	assert.Equal(t, "Dubbo", *f.Address.Town)
	assert.InDelta(t, -32.2, *f.Address.Location.Lat, 1e-9)
	require.Len(t, f.MapFeatures, 1)
	assert.JSONEq(t, `[148.6,-32.2]`, string(f.MapFeatures[0].Geometry.Coordinates))
	require.Len(t, f.Fields, 1)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), f.Fields[0].CreationDate.Time)
	assert.Equal(t, []string{"NA123"}, f.Fields[0].Identifiers[0].Value)
}
