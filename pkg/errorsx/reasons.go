package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonSTTConnect ReasonCode = "stt_connect"
	ReasonSTTSend    ReasonCode = "stt_send"
	ReasonSTTDecode  ReasonCode = "stt_decode"
	ReasonSTTReceive ReasonCode = "stt_receive"

	ReasonTTSRequest ReasonCode = "tts_request"
	ReasonTTSStatus  ReasonCode = "tts_status"
	ReasonTTSStream  ReasonCode = "tts_stream"

	ReasonCancelled ReasonCode = "cancelled"
)
