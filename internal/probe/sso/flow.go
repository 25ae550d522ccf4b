package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Flow drives a real browser through the SAML login dance.
type Flow struct {
	settings Settings
}

func NewFlow(settings Settings) *Flow {
	return &Flow{settings: settings}
}

// NewBrowserContext builds the browser allocator and a tab context. The
// returned cancel tears both down.
func (f *Flow) NewBrowserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !f.settings.Headed),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	var ctxOpts []chromedp.ContextOption
	if f.settings.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...))
		}))
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, ctxOpts...)

	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

// SessionInfo is what the gateway's /auth/me endpoint reports about the
// logged-in session.
type SessionInfo struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Roles     []string `json:"roles"`
	IdPGroups []string `json:"idp_groups"`
}

// Login walks the identity provider's flow executor with the user's
// credentials, waits for the SAML response to land back on the gateway and
// returns the resulting session.
func (f *Flow) Login(ctx context.Context, user User) (SessionInfo, error) {
	loginURL := fmt.Sprintf("%s/auth/saml/login?org=%s", f.settings.GatewayURL, f.settings.OrgSlug)
	slog.Info("Starting SAML login", "user", user.Username, "url", loginURL)

	var idpURL string
	err := chromedp.Run(ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible("ak-flow-executor", chromedp.ByQuery),
		chromedp.Location(&idpURL),
	)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("reaching the login page: %w", err)
	}
	if !strings.HasPrefix(idpURL, f.settings.IdPURL) {
		return SessionInfo{}, fmt.Errorf("expected redirect to the identity provider, got %s", idpURL)
	}

	// The identification stage asks for the username, the next stage for
	// the password.
	err = chromedp.Run(ctx,
		chromedp.WaitVisible(`input[name="uidField"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="uidField"]`, user.Username, chromedp.ByQuery),
		f.pace(),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitVisible(`input[type="password"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"]`, user.Password, chromedp.ByQuery),
		f.pace(),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("driving the login form: %w", err)
	}

	slog.Info("Submitted credentials, waiting for SAML response")
	if err := f.waitForURLPrefix(ctx, f.settings.GatewayURL, 30*time.Second); err != nil {
		return SessionInfo{}, err
	}

	return f.fetchSessionInfo(ctx)
}

// Logout hits the single-logout endpoint and confirms the session is gone.
func (f *Flow) Logout(ctx context.Context) error {
	var body string
	err := chromedp.Run(ctx,
		chromedp.Navigate(f.settings.GatewayURL+"/auth/saml/slo"),
		f.pace(),
		chromedp.Navigate(f.settings.GatewayURL+"/auth/me"),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("checking the session after logout: %w", err)
	}

	if info, err := parseSessionInfo(body); err == nil && info.Email != "" {
		return errors.New("session still active after logout")
	}
	return nil
}

func (f *Flow) fetchSessionInfo(ctx context.Context) (SessionInfo, error) {
	var body string
	err := chromedp.Run(ctx,
		chromedp.Navigate(f.settings.GatewayURL+"/auth/me"),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("reading /auth/me: %w", err)
	}
	return parseSessionInfo(body)
}

// waitForURLPrefix polls the page location until it lands under prefix.
// The SAML response posts to the assertion consumer service which then
// redirects, so there is no single navigation to await.
func (f *Flow) waitForURLPrefix(ctx context.Context, prefix string, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	for {
		var current string
		if err := chromedp.Run(ctx, chromedp.Location(&current)); err != nil {
			return fmt.Errorf("reading page location: %w", err)
		}
		if strings.HasPrefix(current, prefix) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("still on %s after %s", current, budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// pace slows the flow down when slow-mo is set, which makes headed runs
// watchable.
func (f *Flow) pace() chromedp.Action {
	if f.settings.SlowMo <= 0 {
		return chromedp.ActionFunc(func(context.Context) error { return nil })
	}
	return chromedp.Sleep(f.settings.SlowMo)
}

// parseSessionInfo digs the JSON document out of whatever the browser
// rendered around it. Some browsers wrap raw JSON responses in a pre tag.
func parseSessionInfo(body string) (SessionInfo, error) {
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return SessionInfo{}, fmt.Errorf("no JSON in /auth/me response: %.100s", body)
	}

	var info SessionInfo
	if err := json.Unmarshal([]byte(body[start:end+1]), &info); err != nil {
		return SessionInfo{}, fmt.Errorf("decoding /auth/me response: %w", err)
	}
	return info, nil
}

// VerifyUser checks the session against the expectations for the user.
func VerifyUser(info SessionInfo, user User) error {
	if info.Email != user.Email {
		return fmt.Errorf("email mismatch: expected %s, got %s", user.Email, info.Email)
	}
	if info.Name != user.DisplayName {
		return fmt.Errorf("name mismatch: expected %q, got %q", user.DisplayName, info.Name)
	}
	return nil
}
