// Package sso probes a gateway's SAML single sign-on flow with a real
// browser: it seeds an organization through the admin API, configures the
// identity provider connection, then logs role-bearing test users in and
// verifies what the gateway session reports for each.
package sso

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings configure a probe run. URLs come from the environment, browser
// behaviour from flags.
type Settings struct {
	GatewayURL string `env:"GATEWAY_URL" envDefault:"http://localhost:3000"`
	IdPURL     string `env:"IDP_URL" envDefault:"http://localhost:9000"`
	// IdPInternalURL is the address the gateway reaches the identity
	// provider at from inside the compose network.
	IdPInternalURL string `env:"IDP_INTERNAL_URL" envDefault:"http://authentik-server:9000"`
	OrgSlug        string `env:"TEST_ORG_SLUG" envDefault:"university"`

	Headed           bool
	Debug            bool
	KeepAlive        bool
	SlowMo           time.Duration
	ExportCookiesFor string
}

// SettingsFromEnv returns probe settings with defaults overlaid by the
// environment.
func SettingsFromEnv() Settings {
	var s Settings
	if err := env.Parse(&s); err != nil {
		slog.Error("Failed to parse env", "error", err)
	}
	return s
}

// User is one seeded identity provider account the probe logs in with.
type User struct {
	Username     string
	Password     string
	ExpectedRole string
	Email        string
	DisplayName  string
}

// TestUsers returns the accounts provisioned in the identity provider
// fixture, one per gateway role.
func TestUsers() []User {
	return []User{
		{
			Username:     "admin_super",
			Password:     "admin123",
			ExpectedRole: "super_admin",
			Email:        "admin.super@university.edu",
			DisplayName:  "Super Admin",
		},
		{
			Username:     "cs_admin",
			Password:     "orgadmin123",
			ExpectedRole: "org_admin",
			Email:        "cs.admin@university.edu",
			DisplayName:  "CS Administrator",
		},
		{
			Username:     "prof_smith",
			Password:     "teamadmin123",
			ExpectedRole: "team_admin",
			Email:        "prof.smith@university.edu",
			DisplayName:  "John Smith",
		},
		{
			Username:     "phd_bob",
			Password:     "user123",
			ExpectedRole: "user",
			Email:        "phd.bob@university.edu",
			DisplayName:  "Bob Martinez",
		},
	}
}
