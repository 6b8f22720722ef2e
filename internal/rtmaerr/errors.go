// Package rtmaerr defines the sentinel error taxonomy shared by the wire,
// codec, registry, client session and broker packages.
package rtmaerr

import "errors"

var (
	// ErrDuplicateType is returned by Registry.Register when a type_id has
	// already been registered.
	ErrDuplicateType = errors.New("rtma: type_id already registered")

	// ErrUnknownType is returned when a header references a type_id that
	// is not present in the registry.
	ErrUnknownType = errors.New("rtma: unknown message type")

	// ErrFramingError is returned when num_data_bytes disagrees with the
	// registered size for msg_type, or a declared payload exceeds the
	// configured maximum.
	ErrFramingError = errors.New("rtma: framing error")

	// ErrConnectionLost is returned on short reads/writes or a closed peer.
	ErrConnectionLost = errors.New("rtma: connection lost")

	// ErrNotConnected is returned when a session operation is attempted
	// without an active connection.
	ErrNotConnected = errors.New("rtma: not connected")

	// ErrBrokerUnreachable is returned when the initial TCP dial fails.
	ErrBrokerUnreachable = errors.New("rtma: message manager not found")

	// ErrAcknowledgementTimeout is returned when an expected ACKNOWLEDGE
	// does not arrive before the deadline.
	ErrAcknowledgementTimeout = errors.New("rtma: acknowledgement timeout")

	// ErrInvalidDestinationModule is returned when dest_mod_id is out of
	// range [0, MAX_MODULES].
	ErrInvalidDestinationModule = errors.New("rtma: invalid destination module")

	// ErrInvalidDestinationHost is returned when dest_host_id is out of
	// range [0, MAX_HOSTS].
	ErrInvalidDestinationHost = errors.New("rtma: invalid destination host")

	// ErrDropOnBusy names a message dropped because the destination socket
	// did not become writable in time. No function in this module returns
	// it: SendMessageTo drops silently, and the broker reports its own
	// drops through FAILED_MESSAGE and metrics.
	ErrDropOnBusy = errors.New("rtma: dropped message, destination not writable")

	// ErrModuleIDInUse is returned when a CONNECT requests an explicit
	// module_id already held by another connected client.
	ErrModuleIDInUse = errors.New("rtma: module id already in use")

	// ErrNoFreeModuleID is returned when dynamic module_id assignment has
	// no free slot left in [DYN_MOD_ID_START, MAX_MODULES).
	ErrNoFreeModuleID = errors.New("rtma: no free dynamic module id")

	// ErrListenerClosed names an operation on a closed broker listener. No
	// broker function returns it: Broker.Close is idempotent and Run
	// returns nil after shutdown.
	ErrListenerClosed = errors.New("rtma: listener closed")

	// ErrStoreClosed is returned by msglog store operations after Close.
	ErrStoreClosed = errors.New("rtma: store closed")

	// ErrNotFound is returned by msglog store Load for a missing key.
	ErrNotFound = errors.New("rtma: key not found")
)
