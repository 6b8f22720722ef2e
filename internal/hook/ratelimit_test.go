package hook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectRateLimit(t *testing.T) {
	h := NewConnectRateLimitHook(2, time.Hour)

	assert.NoError(t, h.OnConnect(ClientInfo{ClientID: "c1"}))
	assert.NoError(t, h.OnConnect(ClientInfo{ClientID: "c1"}))
	assert.ErrorIs(t, h.OnConnect(ClientInfo{ClientID: "c1"}), ErrConnectRateLimited)

	// Another client has its own window.
	assert.NoError(t, h.OnConnect(ClientInfo{ClientID: "c2"}))
}

func TestConnectRateLimitWindowExpiry(t *testing.T) {
	h := NewConnectRateLimitHook(1, 10*time.Millisecond)

	assert.True(t, h.Allow("c1"))
	assert.False(t, h.Allow("c1"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.Allow("c1"))
}
