package wire

// MessageType identifies a registered message layout. Values below the
// registry's core/user threshold (default DefaultCoreTypeThreshold) are
// reserved for the core control messages defined here.
type MessageType int32

// Core message type IDs, stable across a deployment. The gaps between
// values are reserved.
const (
	EXIT                   MessageType = 0
	KILL                   MessageType = 1
	ACKNOWLEDGE            MessageType = 2
	FAIL_SUBSCRIBE         MessageType = 6
	FAILED_MESSAGE         MessageType = 8
	CONNECT                MessageType = 13
	DISCONNECT             MessageType = 14
	SUBSCRIBE              MessageType = 15
	UNSUBSCRIBE            MessageType = 16
	MODULE_READY           MessageType = 26
	SAVE_MESSAGE_LOG       MessageType = 56
	MESSAGE_LOG_SAVED      MessageType = 57
	PAUSE_MESSAGE_LOGGING  MessageType = 58
	RESUME_MESSAGE_LOGGING MessageType = 59
	RESET_MESSAGE_LOG      MessageType = 60
	DUMP_MESSAGE_LOG       MessageType = 61
	TIMING_MESSAGE         MessageType = 80
	FORCE_DISCONNECT       MessageType = 82
	MM_ERROR               MessageType = 83
	MM_INFO                MessageType = 84
	PAUSE_SUBSCRIPTION     MessageType = 85
	RESUME_SUBSCRIPTION    MessageType = 86
	MM_READY               MessageType = 94
)

// CoreTypeNames maps every core MessageType to its stable name, used to
// pre-populate a Registry and for diagnostics/logging.
var CoreTypeNames = map[MessageType]string{
	EXIT:                   "EXIT",
	KILL:                   "KILL",
	ACKNOWLEDGE:            "ACKNOWLEDGE",
	FAIL_SUBSCRIBE:         "FAIL_SUBSCRIBE",
	FAILED_MESSAGE:         "FAILED_MESSAGE",
	CONNECT:                "CONNECT",
	DISCONNECT:             "DISCONNECT",
	SUBSCRIBE:              "SUBSCRIBE",
	UNSUBSCRIBE:            "UNSUBSCRIBE",
	MODULE_READY:           "MODULE_READY",
	SAVE_MESSAGE_LOG:       "SAVE_MESSAGE_LOG",
	MESSAGE_LOG_SAVED:      "MESSAGE_LOG_SAVED",
	PAUSE_MESSAGE_LOGGING:  "PAUSE_MESSAGE_LOGGING",
	RESUME_MESSAGE_LOGGING: "RESUME_MESSAGE_LOGGING",
	RESET_MESSAGE_LOG:      "RESET_MESSAGE_LOG",
	DUMP_MESSAGE_LOG:       "DUMP_MESSAGE_LOG",
	TIMING_MESSAGE:         "TIMING_MESSAGE",
	FORCE_DISCONNECT:       "FORCE_DISCONNECT",
	MM_ERROR:               "MM_ERROR",
	MM_INFO:                "MM_INFO",
	PAUSE_SUBSCRIPTION:     "PAUSE_SUBSCRIPTION",
	RESUME_SUBSCRIPTION:    "RESUME_SUBSCRIPTION",
	MM_READY:               "MM_READY",
}

// CoreTypeSizes gives the fixed payload size in bytes for every core type
// that carries one, under the standard header variant. Types absent here
// are signals (zero-byte payload). FAILED_MESSAGE embeds a full header,
// so its size depends on the deployment's variant; use CoreTypeSize when
// the variant matters.
var CoreTypeSizes = map[MessageType]int{
	FAIL_SUBSCRIBE:      8,              // mod_id:i16, _:i16, msg_type:i32
	FAILED_MESSAGE:      2 + 6 + 8 + 48, // dest_mod_id:i16, _:i16x3, time_of_failure:f64, original standard header
	CONNECT:             4,              // logger_status:i16, daemon_status:i16
	SUBSCRIBE:           4,              // msg_type:i32
	UNSUBSCRIBE:         4,
	PAUSE_SUBSCRIPTION:  4,
	RESUME_SUBSCRIPTION: 4,
	MODULE_READY:        4, // pid:i32
	SAVE_MESSAGE_LOG:    MaxLoggerFilenameLength + 4,
	MESSAGE_LOG_SAVED:   MaxLoggerFilenameLength + 4,
	FORCE_DISCONNECT:    4, // mod_id:i32
	MM_ERROR:            TextPayloadSize,
	MM_INFO:             TextPayloadSize,
	TIMING_MESSAGE:      MaxMessageTypes*2 + MaxModules*4 + 8,
}

// CoreTypeSize returns the fixed payload size of mt under variant.
func CoreTypeSize(mt MessageType, variant HeaderVariant) int {
	if mt == FAILED_MESSAGE {
		return 16 + variant.Size()
	}
	return CoreTypeSizes[mt]
}
