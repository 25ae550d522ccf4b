package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	assert2 "github.com/stretchr/testify/assert"
)

// fakeAdmin emulates the gateway admin API and records everything the
// seeder sends.
type fakeAdmin struct {
	mu            sync.Mutex
	seenUsers     []string
	orgs          []map[string]any
	ssoConfigs    []map[string]any
	mappings      []map[string]any
	createdTeams  []map[string]any
	orgConflict   bool
	teamConflicts bool
	ssoConflict   bool
}

func newFakeAdmin(t *testing.T) (*fakeAdmin, *httptest.Server) {
	t.Helper()

	a := &fakeAdmin{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.mu.Lock()
			a.seenUsers = append(a.seenUsers, r.Header.Get("X-Test-User"))
			a.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/admin/v1/organizations", func(r chi.Router) {
		r.Post("/", a.handleCreateOrg)
		r.Get("/{slug}", a.handleGetOrg)
		r.Post("/{slug}/teams", a.handleCreateTeam)
		r.Get("/{slug}/teams", a.handleListTeams)
		r.Post("/{slug}/sso-config", a.handleCreateSSOConfig)
		r.Post("/{slug}/sso-group-mappings", a.handleCreateMapping)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return a, srv
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *fakeAdmin) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if a.orgConflict {
		respond(w, http.StatusConflict, map[string]any{"error": "organization exists"})
		return
	}
	a.orgs = append(a.orgs, body)
	respond(w, http.StatusCreated, map[string]any{"id": "org-1", "slug": body["slug"]})
}

func (a *fakeAdmin) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{"id": "org-existing", "slug": chi.URLParam(r, "slug")})
}

func (a *fakeAdmin) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if a.teamConflicts {
		respond(w, http.StatusConflict, map[string]any{"error": "team exists"})
		return
	}
	a.createdTeams = append(a.createdTeams, body)
	slug, _ := body["slug"].(string)
	respond(w, http.StatusCreated, map[string]any{"id": "team-" + slug, "slug": slug})
}

func (a *fakeAdmin) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams := []map[string]any{}
	for _, team := range fixtureTeams {
		teams = append(teams, map[string]any{"id": "team-" + team.slug, "slug": team.slug, "name": team.name})
	}
	respond(w, http.StatusOK, teams)
}

func (a *fakeAdmin) handleCreateSSOConfig(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	if a.ssoConflict {
		respond(w, http.StatusConflict, map[string]any{"error": "sso config exists"})
		return
	}
	a.ssoConfigs = append(a.ssoConfigs, body)
	respond(w, http.StatusCreated, map[string]any{"id": "sso-1"})
}

func (a *fakeAdmin) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	a.mappings = append(a.mappings, body)
	respond(w, http.StatusCreated, map[string]any{"id": "mapping-1"})
}

func newTestSeeder(gatewayURL string) *Seeder {
	s := NewSeeder(Settings{
		GatewayURL:     gatewayURL,
		IdPURL:         "http://idp.invalid:9000",
		IdPInternalURL: "http://authentik-server:9000",
		OrgSlug:        "university",
	})
	s.pollInterval = 5 * time.Millisecond
	return s
}

func TestSeedFreshEnvironment(t *testing.T) {
	assert := assert2.New(t)
	a, srv := newFakeAdmin(t)
	seeder := newTestSeeder(srv.URL)

	result, err := seeder.Seed(context.Background())
	assert.NoError(err)
	assert.Equal("org-1", result.OrgID)
	assert.Len(result.TeamIDs, 6)
	assert.Equal("team-cs-faculty", result.TeamIDs["cs-faculty"])
	assert.Equal(6, result.Mappings)

	a.mu.Lock()
	defer a.mu.Unlock()

	if assert.Len(a.orgs, 1) {
		assert.Equal("university", a.orgs[0]["slug"])
		assert.Equal("State University", a.orgs[0]["name"])
	}
	assert.Len(a.createdTeams, 6)

	if assert.Len(a.ssoConfigs, 1) {
		cfg := a.ssoConfigs[0]
		assert.Equal("saml", cfg["provider_type"])
		assert.Equal(true, cfg["enabled"])
		assert.Equal("http://authentik-server:9000/application/saml/gateway/metadata/", cfg["saml_metadata_url"])
		assert.Equal(srv.URL+"/saml", cfg["saml_sp_entity_id"])
		assert.Equal("email", cfg["saml_email_attribute"])
		assert.Equal("displayName", cfg["saml_name_attribute"])
		assert.Equal("groups", cfg["saml_groups_attribute"])
		assert.Equal([]any{"university.edu"}, cfg["email_domains"])
	}

	if assert.Len(a.mappings, 6) {
		first := a.mappings[0]
		assert.Equal("default", first["sso_connection_name"])
		assert.Equal("/cs/cs-faculty", first["idp_group"])
		assert.Equal("team-cs-faculty", first["team_id"])
		assert.Equal("member", first["role"])
		assert.EqualValues(0, first["priority"])
	}

	for _, user := range a.seenUsers {
		assert.Equal("bootstrap-admin", user)
	}
}

func TestSeedIdempotentRerun(t *testing.T) {
	assert := assert2.New(t)
	a, srv := newFakeAdmin(t)
	a.orgConflict = true
	a.teamConflicts = true
	a.ssoConflict = true
	seeder := newTestSeeder(srv.URL)

	result, err := seeder.Seed(context.Background())
	assert.NoError(err)
	assert.Equal("org-existing", result.OrgID)

	// Conflicting teams are resolved through the team list so the group
	// mappings still land.
	assert.Len(result.TeamIDs, 6)
	assert.Equal("team-it-platform", result.TeamIDs["it-platform"])
	assert.Equal(6, result.Mappings)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Empty(a.orgs)
	assert.Empty(a.createdTeams)
	assert.Empty(a.ssoConfigs)
	assert.Len(a.mappings, 6)
}

func TestWaitForGateway(t *testing.T) {
	assert := assert2.New(t)

	t.Run("recovers after a slow start", func(t *testing.T) {
		var mu sync.Mutex
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			attempts++
			ready := attempts >= 3
			mu.Unlock()
			if !ready {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		seeder := newTestSeeder(srv.URL)
		assert.NoError(seeder.WaitForGateway(context.Background(), time.Second))

		mu.Lock()
		defer mu.Unlock()
		assert.GreaterOrEqual(attempts, 3)
	})

	t.Run("gives up after the budget", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		seeder := newTestSeeder(srv.URL)
		err := seeder.WaitForGateway(context.Background(), 20*time.Millisecond)
		assert.ErrorContains(err, "gateway health")
	})
}

func TestWaitForIdP(t *testing.T) {
	assert := assert2.New(t)

	t.Run("waits for health and metadata", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/-/health/ready/":
				w.WriteHeader(http.StatusOK)
			case "/application/saml/gateway/metadata/":
				_, _ = w.Write([]byte(`<EntityDescriptor entityID="gateway"></EntityDescriptor>`))
			default:
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(srv.Close)

		seeder := newTestSeeder("http://gateway.invalid")
		seeder.settings.IdPURL = srv.URL
		assert.NoError(seeder.WaitForIdP(context.Background(), time.Second))
	})

	t.Run("fails when the blueprint never loads", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/-/health/ready/" {
				w.WriteHeader(http.StatusOK)
				return
			}
			// Health is up but the metadata endpoint serves no
			// EntityDescriptor yet.
			_, _ = w.Write([]byte("not ready"))
		}))
		t.Cleanup(srv.Close)

		seeder := newTestSeeder("http://gateway.invalid")
		seeder.settings.IdPURL = srv.URL
		err := seeder.WaitForIdP(context.Background(), 20*time.Millisecond)
		assert.ErrorContains(err, "SAML metadata")
	})
}
