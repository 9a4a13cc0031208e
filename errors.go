package webrtc

import (
	"errors"
	"fmt"
)

// InvalidStateError indicates the object is in an invalid state for the
// requested operation.
type InvalidStateError struct {
	Err error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("webrtc: InvalidStateError: %v", e.Err)
}

func (e *InvalidStateError) Unwrap() error {
	return e.Err
}

// Types of InvalidStateErrors.
var (
	ErrConnectionClosed    = errors.New("connection closed")
	ErrNoRemoteDescription = errors.New("no remote description set")
	ErrNotAssociated       = errors.New("sctp association is not established")
	ErrDataChannelNotOpen  = errors.New("data channel is not open")
)

// UnknownError indicates the operation failed for an unknown transient reason.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("webrtc: UnknownError: %v", e.Err)
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// Types of UnknownErrors.
var (
	ErrNoConfig = errors.New("no configuration provided")
)

// InvalidAccessError indicates the object does not support the operation or argument.
type InvalidAccessError struct {
	Err error
}

func (e *InvalidAccessError) Error() string {
	return fmt.Sprintf("webrtc: InvalidAccessError: %v", e.Err)
}

func (e *InvalidAccessError) Unwrap() error {
	return e.Err
}

// Types of InvalidAccessErrors.
var (
	ErrCertificateExpired   = errors.New("certificate expired")
	ErrStreamIDCollision    = errors.New("stream id already in use")
	ErrNoTurnCredentials    = errors.New("turn server url provided without username and credential")
	ErrTurnCredentialsUnset = errors.New("turn server credential is of the wrong type for CredentialType")
)

// NotSupportedError indicates the operation is not supported.
type NotSupportedError struct {
	Err error
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("webrtc: NotSupportedError: %v", e.Err)
}

func (e *NotSupportedError) Unwrap() error {
	return e.Err
}

// InvalidModificationError indicates the object can not be modified in this way.
type InvalidModificationError struct {
	Err error
}

func (e *InvalidModificationError) Error() string {
	return fmt.Sprintf("webrtc: InvalidModificationError: %v", e.Err)
}

func (e *InvalidModificationError) Unwrap() error {
	return e.Err
}

// Types of InvalidModificationErrors.
var (
	ErrModifyingCertificates         = errors.New("certificates cannot be modified")
	ErrModifyingBundlePolicy         = errors.New("bundle policy cannot be modified")
	ErrModifyingRtcpMuxPolicy        = errors.New("rtcp mux policy cannot be modified")
	ErrModifyingIceCandidatePoolSize = errors.New("ice candidate pool size cannot be modified")
	ErrInvalidSignalingState         = errors.New("invalid signaling state transition")
)

// SyntaxError indicates the string did not match the expected pattern.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("webrtc: SyntaxError: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Types of SyntaxErrors.
var (
	ErrSDPUnmarshalling = errors.New("failed to unmarshal SDP")
)

// TypeError indicates an issue with a supplied value.
type TypeError struct {
	Err error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("webrtc: TypeError: %v", e.Err)
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

// Types of TypeErrors.
var (
	ErrInvalidValue                = errors.New("invalid value")
	ErrStringSizeLimit             = errors.New("data channel label exceeds maximum string size")
	ErrRetransmitsOrPacketLifeTime = errors.New("maxPacketLifeTime and maxRetransmits are mutually exclusive")
	ErrNegotiatedWithoutID         = errors.New("negotiated data channel requires an explicit ID")
)

// OperationError indicates an issue with execution.
type OperationError struct {
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("webrtc: OperationError: %v", e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Types of OperationErrors.
var (
	ErrMaxDataChannels  = errors.New("maximum number of data channels reached")
	ErrTransportFailure = errors.New("underlying transport failed")
)

// ErrUnknownType indicates an unrecognized message or descriptor shape.
var ErrUnknownType = errors.New("unknown")

// Unknown is the default zero-like value used by this package's string-backed
// enum types ("enum(0)" has no valid meaning of its own).
const Unknown = iota

// unknownStr is the String() rendering of an enum value that doesn't match
// any of its known cases.
const unknownStr = "unknown"
