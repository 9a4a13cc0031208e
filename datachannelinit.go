package webrtc

// DataChannelInit can be used to configure properties of the underlying
// channel such as data reliability.
type DataChannelInit struct {
	// Ordered indicates if data is allowed to be delivered out of order.
	// Defaults to true.
	Ordered *bool

	// MaxPacketLifeTime limits the time, in milliseconds, during which the
	// channel will transmit or retransmit data if not acknowledged. Mutually
	// exclusive with MaxRetransmits.
	MaxPacketLifeTime *uint16

	// MaxRetransmits limits the number of times a channel will retransmit
	// data if not successfully delivered. Mutually exclusive with
	// MaxPacketLifeTime.
	MaxRetransmits *uint16

	// Protocol describes the subprotocol name used for this channel.
	Protocol *string

	// Negotiated, when true, is used to configure out-of-band negotiation
	// of the data channel. If set, both sides must supply the same ID.
	Negotiated *bool

	// ID overrides the default automatic channel id allocation. Only used
	// when Negotiated is true.
	ID *uint16
}
