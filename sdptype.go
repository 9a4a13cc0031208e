package webrtc

// SDPType describes the type of a SessionDescription.
type SDPType int

const (
	// SDPTypeUnknown is the enum's zero-value
	SDPTypeUnknown SDPType = iota

	// SDPTypeOffer indicates that a description must be treated as an SDP offer.
	SDPTypeOffer

	// SDPTypePranswer indicates that a description must be treated as an SDP
	// answer, but not a final answer.
	SDPTypePranswer

	// SDPTypeAnswer indicates that a description must be treated as an SDP
	// final answer, and the offer-answer exchange must be considered complete.
	SDPTypeAnswer

	// SDPTypeRollback indicates that a description must be treated as
	// canceling the current SDP negotiation and moving the SDP offer and
	// answer back to what they were in the previous stable state.
	SDPTypeRollback
)

// This is done this way because of a linter.
const (
	sdpTypeOfferStr    = "offer"
	sdpTypePranswerStr = "pranswer"
	sdpTypeAnswerStr   = "answer"
	sdpTypeRollbackStr = "rollback"
)

// NewSDPType defines a procedure for creating a new SDPType from a raw
// string naming the SDP type.
func NewSDPType(raw string) SDPType {
	switch raw {
	case sdpTypeOfferStr:
		return SDPTypeOffer
	case sdpTypePranswerStr:
		return SDPTypePranswer
	case sdpTypeAnswerStr:
		return SDPTypeAnswer
	case sdpTypeRollbackStr:
		return SDPTypeRollback
	default:
		return SDPType(Unknown)
	}
}

func (t SDPType) String() string {
	switch t {
	case SDPTypeOffer:
		return sdpTypeOfferStr
	case SDPTypePranswer:
		return sdpTypePranswerStr
	case SDPTypeAnswer:
		return sdpTypeAnswerStr
	case SDPTypeRollback:
		return sdpTypeRollbackStr
	default:
		return ErrUnknownType.Error()
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (t SDPType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *SDPType) UnmarshalJSON(b []byte) error {
	var raw string
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		raw = string(b[1 : len(b)-1])
	}
	*t = NewSDPType(raw)
	if *t == SDPTypeUnknown {
		return ErrUnknownType
	}
	return nil
}
