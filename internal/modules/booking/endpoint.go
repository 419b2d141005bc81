// README: Notification endpoint resolution and the chat-webhook blocklist.
package booking

import (
	"fmt"
	"net/url"
	"strings"
)

// Hosts whose webhooks embed a secret in the URL. Posting to them directly
// would expose that secret, so they are always refused.
var blockedWebhookHosts = []string{
	"discord.com",
	"discordapp.com",
	"hooks.slack.com",
	"api.telegram.org",
	"chat.googleapis.com",
	"webhook.office.com",
	"outlook.office.com",
}

// ResolveEndpoint turns the configured endpoint into an absolute URL. Relative
// paths resolve against origin. Absolute URLs are accepted only for the origin
// host or one of relayHosts.
func ResolveEndpoint(endpoint, origin string, relayHosts []string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafeEndpoint, err)
	}
	if host := u.Hostname(); host != "" && isBlockedHost(host) {
		return "", fmt.Errorf("%w: %s is a direct chat webhook", ErrUnsafeEndpoint, host)
	}

	base, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || !isHTTP(base) || base.Host == "" {
		base = nil
	}

	if u.Host == "" {
		if u.Scheme != "" {
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrUnsafeEndpoint, u.Scheme)
		}
		if base == nil {
			return "", fmt.Errorf("%w: relative endpoint without a configured origin", ErrUnsafeEndpoint)
		}
		return base.ResolveReference(u).String(), nil
	}

	if u.Scheme == "" && base != nil {
		u.Scheme = base.Scheme
	}
	if !isHTTP(u) {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrUnsafeEndpoint, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if base != nil && host == strings.ToLower(base.Hostname()) {
		return u.String(), nil
	}
	for _, h := range relayHosts {
		if host == strings.ToLower(strings.TrimSpace(h)) {
			return u.String(), nil
		}
	}
	return "", fmt.Errorf("%w: host %s is neither the origin nor an allowed relay", ErrUnsafeEndpoint, host)
}

func isBlockedHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, blocked := range blockedWebhookHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func isHTTP(u *url.URL) bool {
	return u != nil && (u.Scheme == "http" || u.Scheme == "https")
}
