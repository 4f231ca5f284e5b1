// Package certificate loads the client certificate material an APNs
// gateway identity is provisioned with. Material may be a path to a
// PEM file, an inline PEM blob, or a PKCS#12 file; in the PEM forms the
// certificate and private key live in the same blob.
package certificate

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// Certificate is a tagged source of APNs client credentials.
type Certificate interface {
	// TLSCertificate loads and parses the material. Failures are fatal
	// to provisioning.
	TLSCertificate() (tls.Certificate, error)

	// Description identifies the material in logs and listings without
	// exposing key bytes.
	Description() string
}

// Path is a filesystem path to a PEM file containing both the
// certificate and the unencrypted private key.
type Path string

// TLSCertificate implements Certificate.
func (p Path) TLSCertificate() (tls.Certificate, error) {
	data, err := os.ReadFile(string(p))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read certificate file %q: %w", string(p), err)
	}
	cert, err := pairFromPEM(data)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certificate file %q: %w", string(p), err)
	}
	return cert, nil
}

// Description implements Certificate.
func (p Path) Description() string { return string(p) }

// Inline is a PEM blob containing both the certificate and the
// unencrypted private key.
type Inline []byte

// TLSCertificate implements Certificate.
func (b Inline) TLSCertificate() (tls.Certificate, error) {
	cert, err := pairFromPEM(b)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("inline certificate: %w", err)
	}
	return cert, nil
}

// Description implements Certificate.
func (b Inline) Description() string { return "{inline pem}" }

// P12File is a PKCS#12 bundle on disk, optionally password protected.
type P12File struct {
	Path     string
	Password string
}

// TLSCertificate implements Certificate. The leaf certificate is added
// first; intermediate CA certificates follow when present, in case
// strict client authentication requires the full chain in the
// handshake.
func (p P12File) TLSCertificate() (tls.Certificate, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read p12 file %q: %w", p.Path, err)
	}
	prikey, cert, caCerts, err := pkcs12.DecodeChain(data, p.Password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to decode p12 file: %w", err)
	}
	tlsCert := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  prikey,
	}
	for _, caCert := range caCerts {
		tlsCert.Certificate = append(tlsCert.Certificate, caCert.Raw)
	}
	return tlsCert, nil
}

// Description implements Certificate.
func (p P12File) Description() string { return p.Path }

// Sniff classifies certificate material the way the historical wire
// surface did: a string containing "BEGIN CERTIFICATE" is an inline
// PEM blob, anything else is a filesystem path. New callers should
// construct Path or Inline directly; Sniff exists for the legacy
// provisioning boundary only.
func Sniff(material string) Certificate {
	if strings.Contains(material, "BEGIN CERTIFICATE") {
		return Inline(material)
	}
	return Path(material)
}

// pairFromPEM extracts the certificate/key pair from a single PEM blob.
func pairFromPEM(data []byte) (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(data, data)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse certificate and key: %w", err)
	}
	return cert, nil
}
