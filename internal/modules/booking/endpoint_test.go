package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEndpoint(t *testing.T) {
	const origin = "https://shop.example.com"
	relays := []string{"relay.example.net"}

	tests := []struct {
		name     string
		endpoint string
		origin   string
		want     string
		unsafe   bool
	}{
		{name: "default path", endpoint: "", origin: origin, want: "https://shop.example.com/api/booking/notify"},
		{name: "relative path", endpoint: "/apps/booking/notify", origin: origin, want: "https://shop.example.com/apps/booking/notify"},
		{name: "same origin absolute", endpoint: "https://SHOP.example.com/hook", origin: origin, want: "https://SHOP.example.com/hook"},
		{name: "allow-listed relay", endpoint: "https://relay.example.net/notify", origin: origin, want: "https://relay.example.net/notify"},
		{name: "protocol relative relay", endpoint: "//relay.example.net/notify", origin: origin, want: "https://relay.example.net/notify"},
		{name: "unknown host", endpoint: "https://evil.example.org/notify", origin: origin, unsafe: true},
		{name: "discord webhook", endpoint: "https://discord.com/api/webhooks/1/abc", origin: origin, unsafe: true},
		{name: "discordapp subdomain", endpoint: "https://canary.discordapp.com/api/webhooks/1/abc", origin: origin, unsafe: true},
		{name: "slack hook", endpoint: "https://hooks.slack.com/services/T/B/X", origin: origin, unsafe: true},
		{name: "telegram bot", endpoint: "https://api.telegram.org/bot123:abc/sendMessage", origin: origin, unsafe: true},
		{name: "google chat", endpoint: "https://chat.googleapis.com/v1/spaces/x/messages", origin: origin, unsafe: true},
		{name: "office webhook", endpoint: "https://contoso.webhook.office.com/webhookb2/x", origin: origin, unsafe: true},
		{name: "blocked even when allow-listed", endpoint: "https://hooks.slack.com/services/x", origin: "https://hooks.slack.com", unsafe: true},
		{name: "relative without origin", endpoint: "/api/booking/notify", origin: "", unsafe: true},
		{name: "non http scheme", endpoint: "ftp://shop.example.com/x", origin: origin, unsafe: true},
		{name: "javascript scheme", endpoint: "javascript:alert(1)", origin: origin, unsafe: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEndpoint(tt.endpoint, tt.origin, relays)
			if tt.unsafe {
				assert.ErrorIs(t, err, ErrUnsafeEndpoint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
