package webrtc

import "sync"

const (
	dataChannelMaxID  = uint16(65534) // max_u16 - 1
	dataChannelStepID = uint16(2)
	dataChannelBadID  = uint16(65535) // reserved, never allocated
)

// dataChannelCollection is the registry of data channels for a single SCTP
// transport: channels created before the association exists (pending) and
// channels with a live stream id (active).
type dataChannelCollection struct {
	lock sync.Mutex

	pending []*DataChannel
	active  map[uint16]*DataChannel

	// Separate cursors per parity lane: even ids go to the DTLS client,
	// odd ids to the DTLS server. Each holds the last id its lane handed
	// out, seeded at max_u16-1 (even) and max_u16-2 (odd). Allocation
	// advances a cursor forward by 2 before use, and uint16 wrap-around
	// takes 65534 to 0 and 65535 to 1, so the first ids are 0 and 1.
	nextEven uint16
	nextOdd  uint16
}

func newDataChannelCollection() *dataChannelCollection {
	return &dataChannelCollection{
		active:   map[uint16]*DataChannel{},
		nextEven: dataChannelMaxID,
		nextOdd:  dataChannelMaxID - 1,
	}
}

// addPending appends a channel created before the association is ready.
func (c *dataChannelCollection) addPending(dc *DataChannel) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.pending = append(c.pending, dc)
}

// activatePending moves every pending channel into active, assigning a
// stream id to any channel that doesn't already carry one.
func (c *dataChannelCollection) activatePending() []*DataChannel {
	c.lock.Lock()
	pending := c.pending
	c.pending = nil
	c.lock.Unlock()

	out := make([]*DataChannel, 0, len(pending))
	for _, dc := range pending {
		if !dc.hasStreamID() {
			id := c.allocateID(dc.dtlsRole())
			dc.setStreamID(id)
		}
		if err := c.addActiveWithID(dc, dc.streamID()); err != nil {
			continue
		}
		out = append(out, dc)
	}
	return out
}

// tryGet returns the active channel registered under streamID, if any.
func (c *dataChannelCollection) tryGet(streamID uint16) (*DataChannel, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	dc, ok := c.active[streamID]
	return dc, ok
}

// addActiveWithID inserts dc keyed by the explicit streamID, failing with
// ErrStreamIDCollision if the id is already in use.
func (c *dataChannelCollection) addActiveWithID(dc *DataChannel, streamID uint16) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, exists := c.active[streamID]; exists {
		return &InvalidAccessError{Err: ErrStreamIDCollision}
	}
	c.active[streamID] = dc
	return nil
}

// remove drops a channel from the active set. It is a no-op if the id is
// not present, so it is safe to call from both close and error hooks.
func (c *dataChannelCollection) remove(streamID uint16) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.active, streamID)
}

// snapshot returns every currently active channel.
func (c *dataChannelCollection) snapshot() []*DataChannel {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]*DataChannel, 0, len(c.active))
	for _, dc := range c.active {
		out = append(out, dc)
	}
	return out
}

// allocateID walks the id space forward from max_u16-1 in steps of 2,
// skipping the reserved value 65535, choosing the even-parity lane for the
// DTLS client and the odd-parity lane for the DTLS server, until it finds
// an id not already active.
func (c *dataChannelCollection) allocateID(role DTLSRole) uint16 {
	c.lock.Lock()
	defer c.lock.Unlock()

	wantEven := role == DTLSRoleClient

	for {
		var id uint16
		if wantEven {
			c.nextEven = c.step(c.nextEven)
			id = c.nextEven
		} else {
			c.nextOdd = c.step(c.nextOdd)
			id = c.nextOdd
		}
		if id == dataChannelBadID {
			continue
		}
		if _, taken := c.active[id]; !taken {
			return id
		}
	}
}

// step advances id forward by two within its own parity lane; uint16
// wrap-around takes 65534 to 0 and 65535 to 1.
func (c *dataChannelCollection) step(id uint16) uint16 {
	return id + dataChannelStepID
}
