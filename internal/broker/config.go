package broker

import (
	"log/slog"
	"time"

	"github.com/pitt-rnel/rtma/internal/hook"
	"github.com/pitt-rnel/rtma/internal/metrics"
	"github.com/pitt-rnel/rtma/internal/msglog"
	"github.com/pitt-rnel/rtma/internal/registry"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// Config parameterizes a Broker. Zero-valued numeric, pointer and logger
// fields fall back to the defaults in DefaultConfig; boolean fields such
// as ConnectAckAll are used as given.
type Config struct {
	Addr string

	// HeaderVariant must match every connecting client; the broker does
	// not negotiate it.
	HeaderVariant wire.HeaderVariant

	// ReuseAddr sets SO_REUSEADDR on the listen socket, enabled by the
	// binary's --debug flag so a restarted broker can rebind immediately.
	ReuseAddr bool

	// DisableTimingMsg turns off the periodic TIMING_MESSAGE broadcast.
	DisableTimingMsg bool
	// MinTimingPeriod is the minimum spacing between TIMING_MESSAGE
	// snapshots. Default 900ms.
	MinTimingPeriod time.Duration

	MaxModules               int
	DynModIDStart            int
	MaxHosts                 int
	MaxMessageTypes          int
	MaxContiguousMessageData int

	// OutboxSize bounds the per-client pending-frame queue that backs the
	// non-blocking writability probe in forward.go.
	OutboxSize int

	// ConnectAckAll, when true (the default), acknowledges every control
	// message that succeeds, not only CONNECT and DISCONNECT.
	ConnectAckAll bool

	Registry *registry.Registry
	Hooks    *hook.Manager
	MsgLog   *msglog.Controller
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// DefaultConfig returns a Config with every limit and default filled in.
// Addr is left empty; the caller must set it.
func DefaultConfig() Config {
	return Config{
		HeaderVariant:            wire.StandardHeader,
		MinTimingPeriod:          900 * time.Millisecond,
		MaxModules:               wire.MaxModules,
		DynModIDStart:            wire.DynModIDStart,
		MaxHosts:                 wire.MaxHosts,
		MaxMessageTypes:          wire.MaxMessageTypes,
		MaxContiguousMessageData: wire.MaxContiguousMessageData,
		OutboxSize:               256,
		ConnectAckAll:            true,
		Registry:                registry.NewCoreRegistry(),
		Hooks:                    hook.NewManager(),
		Logger:                   slog.Default(),
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.MinTimingPeriod <= 0 {
		c.MinTimingPeriod = d.MinTimingPeriod
	}
	if c.MaxModules <= 0 {
		c.MaxModules = d.MaxModules
	}
	if c.DynModIDStart <= 0 {
		c.DynModIDStart = d.DynModIDStart
	}
	if c.MaxHosts <= 0 {
		c.MaxHosts = d.MaxHosts
	}
	if c.MaxMessageTypes <= 0 {
		c.MaxMessageTypes = d.MaxMessageTypes
	}
	if c.MaxContiguousMessageData <= 0 {
		c.MaxContiguousMessageData = d.MaxContiguousMessageData
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = d.OutboxSize
	}
	if c.Registry == nil {
		c.Registry = registry.NewCoreRegistryFor(c.HeaderVariant)
	}
	if c.Hooks == nil {
		c.Hooks = d.Hooks
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}
