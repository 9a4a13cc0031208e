package webrtc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/pion/dtls/v3/pkg/crypto/fingerprint"
	"github.com/pion/randutil"
)

// Certificate represents an x509 certificate/private key pair used to
// authenticate the DTLS handshake.
type Certificate struct {
	privateKey crypto.PrivateKey
	x509Cert   *x509.Certificate
}

// NewCertificate wraps a private key and x509.Certificate template into a
// Certificate usable by a DTLSTransport.
func NewCertificate(key crypto.PrivateKey, tpl x509.Certificate) (*Certificate, error) {
	var err error
	var certDER []byte

	switch sk := key.(type) {
	case *rsa.PrivateKey:
		tpl.SignatureAlgorithm = x509.SHA256WithRSA
		certDER, err = x509.CreateCertificate(rand.Reader, &tpl, &tpl, sk.Public(), sk)
		if err != nil {
			return nil, &UnknownError{Err: err}
		}
	case *ecdsa.PrivateKey:
		tpl.SignatureAlgorithm = x509.ECDSAWithSHA256
		certDER, err = x509.CreateCertificate(rand.Reader, &tpl, &tpl, sk.Public(), sk)
		if err != nil {
			return nil, &UnknownError{Err: err}
		}
	default:
		return nil, &NotSupportedError{Err: ErrInvalidValue}
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, &UnknownError{Err: err}
	}

	return &Certificate{privateKey: key, x509Cert: cert}, nil
}

// Equals reports whether two certificates carry the same key and x509
// certificate.
func (c Certificate) Equals(o Certificate) bool {
	switch cSK := c.privateKey.(type) {
	case *rsa.PrivateKey:
		oSK, ok := o.privateKey.(*rsa.PrivateKey)
		return ok && cSK.N.Cmp(oSK.N) == 0 && c.x509Cert.Equal(o.x509Cert)
	case *ecdsa.PrivateKey:
		oSK, ok := o.privateKey.(*ecdsa.PrivateKey)
		return ok && cSK.X.Cmp(oSK.X) == 0 && cSK.Y.Cmp(oSK.Y) == 0 && c.x509Cert.Equal(o.x509Cert)
	default:
		return false
	}
}

// Expires returns the timestamp after which this certificate is no longer valid.
func (c Certificate) Expires() time.Time {
	if c.x509Cert == nil {
		return time.Time{}
	}
	return c.x509Cert.NotAfter
}

// GetFingerprints returns the certificate fingerprints offered during DTLS
// negotiation, one per supported hash algorithm.
func (c Certificate) GetFingerprints() ([]DTLSFingerprint, error) {
	value, err := fingerprint.Fingerprint(c.x509Cert, crypto.SHA256)
	if err != nil {
		return nil, &UnknownError{Err: err}
	}

	return []DTLSFingerprint{{
		Algorithm: "sha-256",
		Value:     value,
	}}, nil
}

// GenerateCertificate creates a short-lived self-signed certificate for the
// given private key, suitable for a single PeerConnection's lifetime.
func GenerateCertificate(secretKey crypto.PrivateKey) (*Certificate, error) {
	origin, err := randutil.GenerateCryptoRandomString(16, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	if err != nil {
		return nil, &UnknownError{Err: err}
	}

	maxBigInt := new(big.Int)
	maxBigInt.Exp(big.NewInt(2), big.NewInt(130), nil).Sub(maxBigInt, big.NewInt(1))
	serialNumber, err := rand.Int(rand.Reader, maxBigInt)
	if err != nil {
		return nil, &UnknownError{Err: err}
	}

	return NewCertificate(secretKey, x509.Certificate{
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageClientAuth,
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
		NotBefore:             time.Now(),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		NotAfter:              time.Now().AddDate(0, 1, 0),
		SerialNumber:          serialNumber,
		Version:               2,
		Subject:               pkix.Name{CommonName: hex.EncodeToString([]byte(origin))},
		IsCA:                  true,
	})
}

// generateDefaultCertificate produces a fresh ECDSA P-256 certificate, the
// default used when the application supplies no Certificates in Configuration.
func generateDefaultCertificate() (*Certificate, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, &UnknownError{Err: err}
	}
	return GenerateCertificate(sk)
}
