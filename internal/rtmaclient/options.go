package rtmaclient

import (
	"log/slog"
	"time"

	"github.com/pitt-rnel/rtma/internal/registry"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// Options parameterizes a Session. The zero value is usable; every field
// falls back to its documented default.
type Options struct {
	// ModuleID requests a specific module id on CONNECT. Zero asks the
	// message manager to assign one dynamically.
	ModuleID int16
	// HostID identifies this host in a multi-host deployment.
	HostID int16

	// LoggerStatus marks this session as a logger client: it will receive
	// every forwarded message regardless of subscription, and the broker
	// will block rather than drop when its socket backs up.
	LoggerStatus bool
	// DaemonStatus is carried in the CONNECT payload for the benefit of
	// logger clients; the broker itself ignores it.
	DaemonStatus bool

	// HeaderVariant must match the broker's. Defaults to StandardHeader.
	HeaderVariant wire.HeaderVariant

	// ConnectTimeout bounds the dial plus the wait for the CONNECT
	// acknowledgement. Default 3s.
	ConnectTimeout time.Duration
	// AckTimeout bounds the wait for an ACKNOWLEDGE after any other
	// control message, when AckControlMessages is set. Default 3s.
	AckTimeout time.Duration
	// AckControlMessages awaits an ACKNOWLEDGE for subscribe/unsubscribe/
	// pause/resume, matching the broker's ack-all default. Disable for
	// deployments whose broker only acks CONNECT.
	AckControlMessages bool

	// Registry resolves type_ids for send-side size validation and
	// read-side payload naming. Defaults to a fresh core registry.
	Registry *registry.Registry

	Logger *slog.Logger
}

func (o *Options) fillDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 3 * time.Second
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = 3 * time.Second
	}
	if o.Registry == nil {
		o.Registry = registry.NewCoreRegistryFor(o.HeaderVariant)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// DefaultOptions returns Options with every default filled in and ack-all
// control-message behavior enabled.
func DefaultOptions() Options {
	o := Options{AckControlMessages: true}
	o.fillDefaults()
	return o
}
