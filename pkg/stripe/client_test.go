package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
)

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"": ModeTest, "TEST": ModeTest, " live ": ModeLive} {
		got, err := ParseMode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseMode("staging")
	assert.Error(t, err)
}

func TestKeyMode(t *testing.T) {
	assert.Equal(t, ModeTest, KeyMode("sk_test_123"))
	assert.Equal(t, ModeTest, KeyMode("rk_test_123"))
	assert.Equal(t, ModeLive, KeyMode("sk_live_123"))
	assert.Equal(t, Mode(""), KeyMode("pk_test_123"))
}

func TestNewClientValidatesCredentials(t *testing.T) {
	ctx := context.Background()
	cases := map[string]config.StripeConfig{
		"missing key":      {Secret: "whsec_1"},
		"missing secret":   {APIKey: "sk_test_1"},
		"live key in test": {APIKey: "sk_live_1", Secret: "whsec_1", Env: "test"},
		"bad mode":         {APIKey: "sk_test_1", Secret: "whsec_1", Env: "prod"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(ctx, cfg, nil)
			assert.Error(t, err)
		})
	}

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "rk_live_1", Secret: " whsec_1 ", Env: "LIVE"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "live", client.Environment())
	assert.Equal(t, "whsec_1", client.SigningSecret())
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	assert.Empty(t, client.Environment())
	assert.Empty(t, client.SigningSecret())
}
