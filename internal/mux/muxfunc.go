package mux

// MatchFunc allows custom logic for mapping packets to an Endpoint.
type MatchFunc func([]byte) bool

// MatchRange is a MatchFunc that accepts packets with the first byte in [lower..upper].
func MatchRange(lower, upper byte) MatchFunc {
	return func(buf []byte) bool {
		if len(buf) < 1 {
			return false
		}
		b := buf[0]
		return b >= lower && b <= upper
	}
}

// MatchAll accepts every packet regardless of its first byte.
func MatchAll(buf []byte) bool {
	return true
}

// Boundary between STUN, DTLS and RTP/RTCP on a shared UDP socket. The
// ranges differ from RFC7983's defaults (STUN 0..3, DTLS 20..63, RTP/RTCP
// 128..191); these are the exact ranges this transport core is built against:
//
//	packet -->  [0..1]    -+--> forward to STUN
//	            [19..63]   -+--> forward to DTLS
//	            [127..191] -+--> forward to RTP/RTCP
//
// Bytes 2 and 3, which RFC7983 assigns to STUN, are left unclassified;
// byte 19 is classified as DTLS and byte 127 as RTP/RTCP.

// MatchSTUN accepts packets with the first byte in [0..1].
var MatchSTUN = MatchRange(0, 1)

// MatchDTLS accepts packets with the first byte in [19..63].
var MatchDTLS = MatchRange(19, 63)

// MatchRTP accepts packets with the first byte in [127..191], covering
// both RTP and RTCP. Media itself is out of scope, but inbound media
// packets must still be routed off the shared socket rather than
// misparsed as DTLS or SCTP.
var MatchRTP = MatchRange(127, 191)
