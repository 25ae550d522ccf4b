package sso

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// SessionCookieName is the gateway's session cookie.
const SessionCookieName = "__gw_session"

// SessionCookie returns the named cookie's value from the browser.
func SessionCookie(ctx context.Context, name string) (string, error) {
	var value string
	found := false

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, cookie := range cookies {
			if cookie.Name == name {
				value = cookie.Value
				found = true
				return nil
			}
		}
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("reading cookies: %w", err)
	}
	if !found {
		return "", fmt.Errorf("cookie %s not set", name)
	}
	return value, nil
}

// CurlSnippet renders a ready-to-paste curl invocation for the session.
func CurlSnippet(gatewayURL, cookieValue string) string {
	return fmt.Sprintf("curl -H 'Cookie: %s=%s' %s/auth/me", SessionCookieName, cookieValue, gatewayURL)
}
