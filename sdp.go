// +build !js

package webrtc

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/sdp/v3"

	"github.com/loopwire/webrtc/internal/util"
)

// mediaSectionApplication is the SDP media type used for the single
// application m-line carrying DTLS/SCTP data channels.
const mediaSectionApplication = "application"

// Errors surfaced while building or parsing a data-channel-only SDP.
var (
	ErrSessionDescriptionNoFingerprint            = errors.New("session description has no fingerprint")
	ErrSessionDescriptionConflictingFingerprints  = errors.New("session description has conflicting fingerprints")
	ErrSessionDescriptionInvalidFingerprint        = errors.New("session description has invalid fingerprint")
	ErrSessionDescriptionMissingIceUfrag           = errors.New("session description is missing ice-ufrag")
	ErrSessionDescriptionMissingIcePwd             = errors.New("session description is missing ice-pwd")
	ErrSessionDescriptionConflictingIceUfrag       = errors.New("session description has conflicting ice-ufrag values")
	ErrSessionDescriptionConflictingIcePwd         = errors.New("session description has conflicting ice-pwd values")
)

// newJSEPSessionDescription builds an empty session-level description with
// the fields required by JSEP (draft-ietf-rtcweb-jsep): origin, session
// name and a single zero-duration time description. Media sections are
// added separately by populateSDP.
func newJSEPSessionDescription() *sdp.SessionDescription {
	return &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      sessionID(),
			SessionVersion: uint64(time.Now().Unix()), //nolint:gosec // G115
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName: "-",
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}
}

// sessionID produces a random numeric SDP o= session id, per RFC 4566 wide
// enough that two independently generated SDPs won't collide in practice.
func sessionID() uint64 {
	digits := util.RandDigits(18)
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return uint64(time.Now().UnixNano()) //nolint:gosec // G115
	}
	return id
}

// addCandidatesToMediaDescription appends every ICE candidate not already
// present in the media section's attribute list, and terminates the list
// with end-of-candidates once gathering has completed.
func addCandidatesToMediaDescription(candidates []ICECandidate, m *sdp.MediaDescription, iceGatheringState ICEGatheringState) error {
	appendCandidateIfNew := func(c ice.Candidate, attributes []sdp.Attribute) {
		marshaled := c.Marshal()
		for _, a := range attributes {
			if marshaled == a.Value {
				return
			}
		}
		m.WithValueAttribute("candidate", marshaled)
	}

	for _, c := range candidates {
		candidate, err := c.toICE()
		if err != nil {
			return err
		}

		candidate.SetComponent(1)
		appendCandidateIfNew(candidate, m.Attributes)
	}

	if iceGatheringState != ICEGatheringStateComplete {
		return nil
	}
	for _, a := range m.Attributes {
		if a.Key == "end-of-candidates" {
			return nil
		}
	}

	m.WithPropertyAttribute("end-of-candidates")
	return nil
}

// addDataMediaSection appends the single application m-line this package's
// SDPs ever carry: one SCTP association over DTLS, no media.
func addDataMediaSection(d *sdp.SessionDescription, shouldAddCandidates bool, dtlsFingerprints []DTLSFingerprint, midValue string, iceParams ICEParameters, candidates []ICECandidate, dtlsRole sdp.ConnectionRole, iceGatheringState ICEGatheringState) error {
	media := (&sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   mediaSectionApplication,
			Port:    sdp.RangedPort{Value: 9},
			Protos:  []string{"DTLS", "SCTP"},
			Formats: []string{"webrtc-datachannel"},
		},
		ConnectionInformation: &sdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address: &sdp.Address{
				Address: "0.0.0.0",
			},
		},
	}).
		WithValueAttribute(sdp.AttrKeyConnectionSetup, dtlsRole.String()).
		WithValueAttribute(sdp.AttrKeyMID, midValue).
		WithPropertyAttribute("sctp-port:5000").
		WithICECredentials(iceParams.UsernameFragment, iceParams.Password)

	for _, f := range dtlsFingerprints {
		media = media.WithFingerprint(f.Algorithm, strings.ToUpper(f.Value))
	}

	if shouldAddCandidates {
		if err := addCandidatesToMediaDescription(candidates, media, iceGatheringState); err != nil {
			return err
		}
	}

	d.WithMedia(media)
	return nil
}

// populateLocalCandidates returns a copy of sessionDescription with the
// gatherer's current local candidates folded into its single m-line. Used
// to refresh the cached local description as trickle candidates arrive.
func populateLocalCandidates(sessionDescription *SessionDescription, i *ICEGatherer, iceGatheringState ICEGatheringState) *SessionDescription {
	if sessionDescription == nil || i == nil {
		return sessionDescription
	}

	candidates, err := i.GetLocalCandidates()
	if err != nil {
		return sessionDescription
	}

	parsed := sessionDescription.parsed
	if len(parsed.MediaDescriptions) > 0 {
		m := parsed.MediaDescriptions[0]
		if err = addCandidatesToMediaDescription(candidates, m, iceGatheringState); err != nil {
			return sessionDescription
		}
	}

	raw, err := parsed.Marshal()
	if err != nil {
		return sessionDescription
	}

	return &SessionDescription{
		SDP:  string(raw),
		Type: sessionDescription.Type,
	}
}

// populateSDP serializes a PeerConnection's state into the one application
// m-line this package ever emits.
func populateSDP(d *sdp.SessionDescription, dtlsFingerprints []DTLSFingerprint, connectionRole sdp.ConnectionRole, candidates []ICECandidate, iceParams ICEParameters, midValue string, iceGatheringState ICEGatheringState) (*sdp.SessionDescription, error) {
	if err := addDataMediaSection(d, true, dtlsFingerprints, midValue, iceParams, candidates, connectionRole, iceGatheringState); err != nil {
		return nil, err
	}

	return d.WithValueAttribute(sdp.AttrKeyGroup, "BUNDLE "+midValue), nil
}

func getMidValue(media *sdp.MediaDescription) string {
	for _, attr := range media.Attributes {
		if attr.Key == "mid" {
			return attr.Value
		}
	}
	return ""
}

func extractFingerprint(desc *sdp.SessionDescription) (string, string, error) {
	fingerprints := []string{}

	if fingerprint, haveFingerprint := desc.Attribute("fingerprint"); haveFingerprint {
		fingerprints = append(fingerprints, fingerprint)
	}

	for _, m := range desc.MediaDescriptions {
		if fingerprint, haveFingerprint := m.Attribute("fingerprint"); haveFingerprint {
			fingerprints = append(fingerprints, fingerprint)
		}
	}

	if len(fingerprints) < 1 {
		return "", "", ErrSessionDescriptionNoFingerprint
	}

	for _, f := range fingerprints {
		if f != fingerprints[0] {
			return "", "", ErrSessionDescriptionConflictingFingerprints
		}
	}

	parts := strings.Split(fingerprints[0], " ")
	if len(parts) != 2 {
		return "", "", ErrSessionDescriptionInvalidFingerprint
	}
	return parts[1], parts[0], nil
}

func extractICEDetails(desc *sdp.SessionDescription) (string, string, []ICECandidate, error) {
	candidates := []ICECandidate{}
	remotePwds := []string{}
	remoteUfrags := []string{}

	if ufrag, haveUfrag := desc.Attribute("ice-ufrag"); haveUfrag {
		remoteUfrags = append(remoteUfrags, ufrag)
	}
	if pwd, havePwd := desc.Attribute("ice-pwd"); havePwd {
		remotePwds = append(remotePwds, pwd)
	}

	for mLineIndex, m := range desc.MediaDescriptions {
		if ufrag, haveUfrag := m.Attribute("ice-ufrag"); haveUfrag {
			remoteUfrags = append(remoteUfrags, ufrag)
		}
		if pwd, havePwd := m.Attribute("ice-pwd"); havePwd {
			remotePwds = append(remotePwds, pwd)
		}

		mid := getMidValue(m)

		for _, a := range m.Attributes {
			if a.IsICECandidate() {
				c, err := ice.UnmarshalCandidate(a.Value)
				if err != nil {
					return "", "", nil, err
				}

				candidate, err := newICECandidateFromICE(c, mid, uint16(mLineIndex)) //nolint:gosec // G115
				if err != nil {
					return "", "", nil, err
				}

				candidates = append(candidates, candidate)
			}
		}
	}

	if len(remoteUfrags) == 0 {
		return "", "", nil, ErrSessionDescriptionMissingIceUfrag
	} else if len(remotePwds) == 0 {
		return "", "", nil, ErrSessionDescriptionMissingIcePwd
	}

	for _, u := range remoteUfrags {
		if u != remoteUfrags[0] {
			return "", "", nil, ErrSessionDescriptionConflictingIceUfrag
		}
	}

	for _, p := range remotePwds {
		if p != remotePwds[0] {
			return "", "", nil, ErrSessionDescriptionConflictingIcePwd
		}
	}

	return remoteUfrags[0], remotePwds[0], candidates, nil
}

func haveApplicationMediaSection(desc *sdp.SessionDescription) bool {
	for _, m := range desc.MediaDescriptions {
		if m.MediaName.Media == mediaSectionApplication {
			return true
		}
	}
	return false
}

func getByMid(searchMid string, desc *SessionDescription) *sdp.MediaDescription {
	for _, m := range desc.parsed.MediaDescriptions {
		if mid, ok := m.Attribute(sdp.AttrKeyMID); ok && mid == searchMid {
			return m
		}
	}
	return nil
}
