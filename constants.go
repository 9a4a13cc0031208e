package webrtc

const (
	// receiveMTU is the size of the read buffer used by the packet
	// demultiplexer on the shared ICE socket. Equal to the common UDP MTU.
	receiveMTU = 1460

	// generatedCertificateOrigin is not referenced by any code in this
	// package: GenerateCertificate derives the CommonName from a random
	// string instead.
	generatedCertificateOrigin = "webrtc"

	// defaultSCTPPort is the SCTP port advertised in the local description
	// when none is negotiated explicitly; SCTP-over-DTLS doesn't use it for
	// routing, only for SDP compatibility with other implementations.
	defaultSCTPPort = 5000

	// defaultDtlsRoleAnswer is the DTLS role assumed when answering an
	// offer whose remote DTLS role was left auto: the answerer acts as
	// the DTLS client (active) and sends the ClientHello.
	defaultDtlsRoleAnswer = DTLSRoleClient
)
