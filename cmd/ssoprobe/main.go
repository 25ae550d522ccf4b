// Command ssoprobe runs an end-to-end SAML login check against a gateway:
// it seeds the SSO fixture through the admin API, then drives a headless
// browser through the identity provider's login flow for each test user
// and verifies the resulting gateway session.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/specparity/specparity/internal/probe/sso"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	settings := sso.SettingsFromEnv()

	fs := flag.NewFlagSet("ssoprobe", flag.ExitOnError)
	fs.StringVar(&settings.GatewayURL, "gateway-url", settings.GatewayURL, "gateway base URL")
	fs.StringVar(&settings.IdPURL, "idp-url", settings.IdPURL, "identity provider base URL")
	fs.StringVar(&settings.OrgSlug, "org-slug", settings.OrgSlug, "organization slug for SSO login")
	fs.BoolVar(&settings.Headed, "headed", false, "run with a visible browser window")
	fs.BoolVar(&settings.Debug, "debug", false, "enable browser debug logging")
	fs.BoolVar(&settings.KeepAlive, "keep-alive", false, "keep the browser open after the run")
	fs.DurationVar(&settings.SlowMo, "slow-mo", 0, "slow browser actions down, e.g. 500ms")
	fs.StringVar(&settings.ExportCookiesFor, "export-cookies-for", "", "log in as the named user and print the session cookie")
	cookieOut := fs.String("cookie-out", "", "also write a curl snippet for the exported cookie to this file")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.ExportCookiesFor != "" {
		os.Exit(runExport(ctx, settings, *cookieOut))
	}
	os.Exit(runProbe(ctx, settings))
}

// prepare waits for both services and seeds the SAML fixture.
func prepare(ctx context.Context, settings sso.Settings) error {
	seeder := sso.NewSeeder(settings)

	if err := seeder.WaitForGateway(ctx, time.Minute); err != nil {
		return err
	}
	if err := seeder.WaitForIdP(ctx, 2*time.Minute); err != nil {
		return err
	}
	if _, err := seeder.Seed(ctx); err != nil {
		return err
	}

	// Give the gateway a moment to pick the new SSO config up.
	slog.Info("Waiting for gateway to load the SAML config")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(3 * time.Second):
	}
	return nil
}

type userOutcome struct {
	user sso.User
	err  error
}

func runProbe(ctx context.Context, settings sso.Settings) int {
	slog.Info("Starting SAML probe",
		"gateway", settings.GatewayURL,
		"idp", settings.IdPURL,
		"org", settings.OrgSlug,
	)

	if err := prepare(ctx, settings); err != nil {
		slog.Error("Setup failed", "error", err)
		return 1
	}

	flow := sso.NewFlow(settings)

	var outcomes []userOutcome
	failures := 0
	for _, user := range sso.TestUsers() {
		err := testUser(ctx, flow, settings, user)
		if err != nil {
			slog.Error("User flow failed", "user", user.Username, "error", err)
			failures++
		}
		outcomes = append(outcomes, userOutcome{user: user, err: err})
	}

	printSummary(os.Stdout, outcomes)

	if settings.KeepAlive {
		slog.Info("Browser kept open, press Ctrl+C to exit")
		<-ctx.Done()
	}

	if failures > 0 {
		return 1
	}
	return 0
}

func testUser(ctx context.Context, flow *sso.Flow, settings sso.Settings, user sso.User) error {
	slog.Info("Testing SAML flow", "role", user.ExpectedRole, "user", user.Username)

	browserCtx, cancel := flow.NewBrowserContext(ctx)
	if !settings.KeepAlive {
		defer cancel()
	}

	info, err := flow.Login(browserCtx, user)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := sso.VerifyUser(info, user); err != nil {
		return err
	}
	slog.Info("Session verified",
		"email", info.Email,
		"name", info.Name,
		"roles", info.Roles,
		"idp_groups", info.IdPGroups,
	)

	if err := flow.Logout(browserCtx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func runExport(ctx context.Context, settings sso.Settings, cookieOut string) int {
	user, err := findUser(settings.ExportCookiesFor)
	if err != nil {
		slog.Error("Unknown user", "error", err)
		return 1
	}

	if err := prepare(ctx, settings); err != nil {
		slog.Error("Setup failed", "error", err)
		return 1
	}

	flow := sso.NewFlow(settings)
	browserCtx, cancel := flow.NewBrowserContext(ctx)
	defer cancel()

	if _, err := flow.Login(browserCtx, user); err != nil {
		slog.Error("Login failed", "user", user.Username, "error", err)
		return 1
	}

	cookie, err := sso.SessionCookie(browserCtx, sso.SessionCookieName)
	if err != nil {
		slog.Error("Failed to read session cookie", "error", err)
		return 1
	}

	// Only the cookie value goes to stdout so shells can capture it.
	fmt.Print(cookie)

	if cookieOut != "" {
		snippet := sso.CurlSnippet(settings.GatewayURL, cookie) + "\n"
		if err := os.WriteFile(cookieOut, []byte(snippet), 0o600); err != nil {
			slog.Error("Failed to write curl snippet", "path", cookieOut, "error", err)
			return 1
		}
	}
	return 0
}

func findUser(username string) (sso.User, error) {
	var names []string
	for _, user := range sso.TestUsers() {
		if user.Username == username {
			return user, nil
		}
		names = append(names, user.Username)
	}
	return sso.User{}, fmt.Errorf("no test user named %q, available: %s", username, strings.Join(names, ", "))
}

func printSummary(w io.Writer, outcomes []userOutcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tUSER\tSTATUS")
	passed := 0
	for _, o := range outcomes {
		status := "PASS"
		if o.err != nil {
			status = "FAIL"
		} else {
			passed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.user.ExpectedRole, o.user.Username, status)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Total: %d passed, %d failed\n", passed, len(outcomes)-passed)
}
