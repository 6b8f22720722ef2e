package hook

import (
	"sync"
	"time"
)

// ConnectRateLimitHook throttles repeated CONNECT attempts from the same
// client id within a fixed window that restarts with the first attempt
// after the previous window has elapsed.
type ConnectRateLimitHook struct {
	*Base

	mu          sync.Mutex
	limiters    map[string]*rateWindow
	maxConnects int
	period      time.Duration
}

type rateWindow struct {
	count       int
	windowStart time.Time
}

// ErrConnectRateLimited is returned by OnConnect when Allow refuses a
// client id that has reached maxConnects within the current window.
var ErrConnectRateLimited = errConnectRateLimited{}

type errConnectRateLimited struct{}

func (errConnectRateLimited) Error() string { return "rtma: connect rate limit exceeded" }

// NewConnectRateLimitHook limits a given client id to maxConnects CONNECTs
// per period.
func NewConnectRateLimitHook(maxConnects int, period time.Duration) *ConnectRateLimitHook {
	return &ConnectRateLimitHook{
		Base:        NewBase("connect-rate-limit"),
		limiters:    make(map[string]*rateWindow),
		maxConnects: maxConnects,
		period:      period,
	}
}

// OnConnect implements Hook: it is consulted by the broker dispatcher
// before a CONNECT is acknowledged.
func (h *ConnectRateLimitHook) OnConnect(c ClientInfo) error {
	if !h.Allow(c.ClientID) {
		return ErrConnectRateLimited
	}
	return nil
}

// Allow reports whether clientID may connect now, recording the attempt.
func (h *ConnectRateLimitHook) Allow(clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	w, ok := h.limiters[clientID]
	if !ok || now.Sub(w.windowStart) > h.period {
		h.limiters[clientID] = &rateWindow{count: 1, windowStart: now}
		return true
	}

	if w.count >= h.maxConnects {
		return false
	}
	w.count++
	return true
}
