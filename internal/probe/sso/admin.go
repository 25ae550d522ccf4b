package sso

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// metadataPath is where the identity provider serves the SAML metadata for
// the gateway application once its blueprint has loaded.
const metadataPath = "/application/saml/gateway/metadata/"

const orgName = "State University"

var fixtureTeams = []struct {
	slug string
	name string
}{
	{"cs-faculty", "CS Faculty"},
	{"cs-phd-students", "CS PhD Students"},
	{"cs-undergrad-tas", "CS Undergraduate TAs"},
	{"med-research", "Medical Research"},
	{"med-administration", "Medical Administration"},
	{"it-platform", "IT Platform"},
}

var fixtureGroupMappings = []struct {
	idpGroup string
	teamSlug string
}{
	{"/cs/cs-faculty", "cs-faculty"},
	{"/cs/cs-phd-students", "cs-phd-students"},
	{"/cs/cs-undergrad-tas", "cs-undergrad-tas"},
	{"/med/med-research", "med-research"},
	{"/med/med-administration", "med-administration"},
	{"/it/it-platform", "it-platform"},
}

// setProxyAuth adds the bootstrap admin identity. The compose stack runs
// with trusted proxy auth, so headers are enough.
func setProxyAuth(h http.Header) {
	h.Set("X-Test-User", "bootstrap-admin")
	h.Set("X-Test-Email", "admin@test.local")
	h.Set("X-Test-Name", "Bootstrap Admin")
	h.Set("X-Test-Roles", "super_admin")
}

// Seeder provisions the SAML fixture through the gateway admin API:
// organization, teams, SSO connection and group mappings. Every call is
// idempotent, a conflict means an earlier run already created the record.
type Seeder struct {
	settings     Settings
	client       *http.Client
	pollInterval time.Duration
}

func NewSeeder(settings Settings) *Seeder {
	return &Seeder{
		settings:     settings,
		client:       &http.Client{Timeout: 10 * time.Second},
		pollInterval: 2 * time.Second,
	}
}

// WaitForGateway polls the gateway health endpoint until it answers.
func (s *Seeder) WaitForGateway(ctx context.Context, budget time.Duration) error {
	slog.Info("Waiting for gateway", "url", s.settings.GatewayURL+"/health")
	err := s.waitFor(ctx, budget, func(ctx context.Context) bool {
		return s.statusOK(ctx, s.settings.GatewayURL+"/health")
	})
	if err != nil {
		return fmt.Errorf("gateway health: %w", err)
	}
	return nil
}

// WaitForIdP waits for the identity provider to come up and for its SAML
// blueprint to finish loading, which is when the metadata endpoint starts
// serving an EntityDescriptor.
func (s *Seeder) WaitForIdP(ctx context.Context, budget time.Duration) error {
	slog.Info("Waiting for identity provider", "url", s.settings.IdPURL)
	err := s.waitFor(ctx, budget, func(ctx context.Context) bool {
		return s.statusOK(ctx, s.settings.IdPURL+"/-/health/ready/")
	})
	if err != nil {
		return fmt.Errorf("identity provider health: %w", err)
	}

	slog.Info("Waiting for SAML provider metadata")
	err = s.waitFor(ctx, budget, func(ctx context.Context) bool {
		body, err := s.get(ctx, s.settings.IdPURL+metadataPath)
		return err == nil && strings.Contains(string(body), "EntityDescriptor")
	})
	if err != nil {
		return fmt.Errorf("SAML metadata: %w", err)
	}
	return nil
}

// SeedResult reports what the seeding pass created or found.
type SeedResult struct {
	OrgID    string
	TeamIDs  map[string]string
	Mappings int
}

// Seed provisions the test organization, its teams, the SAML connection
// and the group-to-team mappings.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	result := SeedResult{TeamIDs: map[string]string{}}

	orgID, err := s.ensureOrganization(ctx)
	if err != nil {
		return result, err
	}
	result.OrgID = orgID

	for _, team := range fixtureTeams {
		id, err := s.ensureTeam(ctx, team.slug, team.name)
		if err != nil {
			slog.Error("Failed to create team", "team", team.slug, "error", err)
			continue
		}
		result.TeamIDs[team.slug] = id
	}
	slog.Info("Teams ready", "count", len(result.TeamIDs))

	if err := s.ensureSSOConfig(ctx); err != nil {
		return result, err
	}

	for _, m := range fixtureGroupMappings {
		teamID, ok := result.TeamIDs[m.teamSlug]
		if !ok {
			continue
		}
		if err := s.createGroupMapping(ctx, m.idpGroup, teamID); err != nil {
			slog.Warn("Failed to create group mapping", "idp_group", m.idpGroup, "error", err)
			continue
		}
		result.Mappings++
	}

	slog.Info("SAML fixture ready", "org_id", result.OrgID, "mappings", result.Mappings)
	return result, nil
}

func (s *Seeder) ensureOrganization(ctx context.Context) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	status, err := s.postJSON(ctx, "/admin/v1/organizations", map[string]any{
		"slug": s.settings.OrgSlug,
		"name": orgName,
	}, &created)
	if err != nil {
		return "", fmt.Errorf("creating organization: %w", err)
	}
	if status != http.StatusConflict {
		slog.Info("Created organization", "org_id", created.ID)
		return created.ID, nil
	}

	body, err := s.get(ctx, s.settings.GatewayURL+"/admin/v1/organizations/"+s.settings.OrgSlug)
	if err != nil {
		return "", fmt.Errorf("fetching existing organization: %w", err)
	}
	var existing struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &existing); err != nil {
		return "", fmt.Errorf("decoding organization: %w", err)
	}
	slog.Info("Organization already exists", "org_id", existing.ID)
	return existing.ID, nil
}

func (s *Seeder) ensureTeam(ctx context.Context, slug, name string) (string, error) {
	teamsPath := "/admin/v1/organizations/" + s.settings.OrgSlug + "/teams"

	var created struct {
		ID string `json:"id"`
	}
	status, err := s.postJSON(ctx, teamsPath, map[string]any{"slug": slug, "name": name}, &created)
	if err != nil {
		return "", err
	}
	if status != http.StatusConflict {
		return created.ID, nil
	}

	// The team survived an earlier run. Resolve its id so the group
	// mappings can still be created.
	body, err := s.get(ctx, s.settings.GatewayURL+teamsPath)
	if err != nil {
		return "", fmt.Errorf("listing teams: %w", err)
	}
	var teams []struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(body, &teams); err != nil {
		return "", fmt.Errorf("decoding teams: %w", err)
	}
	for _, team := range teams {
		if team.Slug == slug {
			return team.ID, nil
		}
	}
	return "", fmt.Errorf("team %s conflicts but is not listed", slug)
}

func (s *Seeder) ensureSSOConfig(ctx context.Context) error {
	metadataURL := strings.TrimRight(s.settings.IdPInternalURL, "/") + metadataPath

	payload := map[string]any{
		"provider_type":             "saml",
		"enabled":                   true,
		"saml_metadata_url":         metadataURL,
		"saml_sp_entity_id":         s.settings.GatewayURL + "/saml",
		"saml_email_attribute":      "email",
		"saml_name_attribute":       "displayName",
		"saml_groups_attribute":     "groups",
		"provisioning_enabled":      true,
		"create_users":              true,
		"sync_memberships_on_login": true,
		"email_domains":             []string{"university.edu"},
	}

	status, err := s.postJSON(ctx, "/admin/v1/organizations/"+s.settings.OrgSlug+"/sso-config", payload, nil)
	if err != nil {
		return fmt.Errorf("creating SSO config: %w", err)
	}
	if status == http.StatusConflict {
		slog.Info("SSO config already exists")
	} else {
		slog.Info("Created SSO config", "metadata_url", metadataURL)
	}
	return nil
}

func (s *Seeder) createGroupMapping(ctx context.Context, idpGroup, teamID string) error {
	payload := map[string]any{
		"sso_connection_name": "default",
		"idp_group":           idpGroup,
		"team_id":             teamID,
		"role":                "member",
		"priority":            0,
	}
	_, err := s.postJSON(ctx, "/admin/v1/organizations/"+s.settings.OrgSlug+"/sso-group-mappings", payload, nil)
	return err
}

func (s *Seeder) waitFor(ctx context.Context, budget time.Duration, ready func(context.Context) bool) error {
	deadline := time.Now().Add(budget)
	for {
		if ready(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("not ready after %s", budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Seeder) statusOK(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *Seeder) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	setProxyAuth(req.Header)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// postJSON sends an authenticated POST. A conflict is not an error, the
// status is returned so callers can branch on it.
func (s *Seeder) postJSON(ctx context.Context, path string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.GatewayURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	setProxyAuth(req.Header)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusConflict {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}
