package webrtc

import (
	"encoding/json"
	"fmt"

	"github.com/pion/logging"
)

// SignalingMessage is the result of parsing one opaque signaling payload:
// exactly one of Description or Candidate is set.
type SignalingMessage struct {
	Description *SessionDescription
	Candidate   *ICECandidateInit
}

// SignalingBridge distinguishes incoming signaling payloads between session
// descriptions and trickled ICE candidates without requiring the
// application to tag the message itself, per spec.md §4.9. It is a plain
// decoder: wiring the result to a PeerConnection is the caller's job.
type SignalingBridge struct {
	log logging.LeveledLogger
}

// NewSignalingBridge creates a SignalingBridge using the given logger
// factory, or a default one if nil.
func NewSignalingBridge(loggerFactory logging.LoggerFactory) *SignalingBridge {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}
	return &SignalingBridge{log: loggerFactory.NewLogger("signaling")}
}

// signalingShape probes the two wire shapes this bridge understands without
// committing to either type's strict schema, so a superset of fields (e.g.
// a description carrying an unexpected sdpMid) doesn't misclassify.
type signalingShape struct {
	Type      *string `json:"type"`
	SDP       *string `json:"sdp"`
	Candidate *string `json:"candidate"`
}

// TryParse classifies and decodes a single signaling payload.
// Unknown shapes are reported as an error and should be logged and
// dropped by the caller, per spec.md §4.9.
func (b *SignalingBridge) TryParse(raw string) (SignalingMessage, error) {
	var shape signalingShape
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		b.log.Warnf("signaling payload is not valid JSON: %s", err)
		return SignalingMessage{}, fmt.Errorf("%w: %w", ErrUnknownType, err)
	}

	switch {
	case shape.Type != nil && shape.SDP != nil:
		var desc SessionDescription
		if err := json.Unmarshal([]byte(raw), &desc); err != nil {
			b.log.Warnf("signaling payload looked like a description but failed to decode: %s", err)
			return SignalingMessage{}, fmt.Errorf("%w: %w", ErrUnknownType, err)
		}
		return SignalingMessage{Description: &desc}, nil

	case shape.Candidate != nil:
		var candidate ICECandidateInit
		if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
			b.log.Warnf("signaling payload looked like a candidate but failed to decode: %s", err)
			return SignalingMessage{}, fmt.Errorf("%w: %w", ErrUnknownType, err)
		}
		return SignalingMessage{Candidate: &candidate}, nil

	default:
		b.log.Warnf("signaling payload matches neither description nor candidate shape: %s", raw)
		return SignalingMessage{}, ErrUnknownType
	}
}

// Apply routes a parsed SignalingMessage to the appropriate PeerConnection
// operation: SetRemoteDescription for a description, AddICECandidate for a
// candidate.
func (b *SignalingBridge) Apply(pc *PeerConnection, msg SignalingMessage) error {
	switch {
	case msg.Description != nil:
		return pc.SetRemoteDescription(*msg.Description)
	case msg.Candidate != nil:
		return pc.AddICECandidate(*msg.Candidate)
	default:
		return ErrUnknownType
	}
}
