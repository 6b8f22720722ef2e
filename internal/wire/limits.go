package wire

// Protocol limits and well-known ids. A broker Config overrides
// MaxModules, DynModIDStart and MaxContiguousMessageData; every other
// value here, including the TIMING_MESSAGE table sizes, is fixed at
// compile time.
const (
	MaxModules               = 200
	DynModIDStart            = 100
	MaxHosts                 = 5
	MaxMessageTypes          = 10000
	MaxContiguousMessageData = 9000
	MaxLoggerFilenameLength  = 256
	DefaultCoreTypeThreshold = 100
	HIDLocalHost             = 0
	HIDAllHosts              = 0x7FFF
	MIDMessageManager        = 0
)
