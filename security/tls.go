// Package security builds TLS configuration and request signatures from
// client settings.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// ErrNoCertificate is returned when a client certificate file holds no
// certificate.
var ErrNoCertificate = errors.New("no certificate found")

// ErrNoPrivateKey is returned when a PEM client certificate file holds no
// private key.
var ErrNoPrivateKey = errors.New("no private key found")

// TLSOptions mirrors the ssl_* client settings.
type TLSOptions struct {
	VerifyPeer bool   // Verify the server certificate chain
	VerifyHost bool   // Verify the server certificate matches the host name
	CAFile     string // PEM bundle of trusted roots; system roots if empty
	LocalCert  string // Client certificate, PEM or PKCS#12 (.p12/.pfx)
	Passphrase string // Passphrase protecting the client key
}

// DefaultTLSOptions verifies both peer and host against system roots.
func DefaultTLSOptions() TLSOptions {
	return TLSOptions{VerifyPeer: true, VerifyHost: true}
}

// Config builds a *tls.Config for the options.
func (o TLSOptions) Config() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if o.CAFile != "" {
		bundle, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(bundle) {
			return nil, fmt.Errorf("ca file %s: %w", o.CAFile, ErrNoCertificate)
		}
		cfg.RootCAs = pool
	}

	if o.LocalCert != "" {
		cert, err := LoadClientCertificate(o.LocalCert, o.Passphrase)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	switch {
	case !o.VerifyPeer:
		cfg.InsecureSkipVerify = true
	case !o.VerifyHost:
		// Chain is still verified, only the name check is skipped.
		roots := cfg.RootCAs
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verifyChain(cs.PeerCertificates, roots)
		}
	}
	return cfg, nil
}

func verifyChain(certs []*x509.Certificate, roots *x509.CertPool) error {
	if len(certs) == 0 {
		return ErrNoCertificate
	}
	inter := x509.NewCertPool()
	for _, c := range certs[1:] {
		inter.AddCert(c)
	}
	_, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: inter,
	})
	return err
}

// LoadClientCertificate loads a client certificate and key. Files ending in
// .p12 or .pfx are decoded as PKCS#12; anything else is read as PEM holding
// the certificate chain and a private key, which may be encrypted with
// passphrase.
func LoadClientCertificate(path, passphrase string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read client certificate: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return decodePKCS12(data, passphrase)
	default:
		return decodePEM(data, passphrase)
	}
}

func decodePKCS12(data []byte, passphrase string) (tls.Certificate, error) {
	key, cert, err := pkcs12.Decode(data, passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode pkcs12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

func decodePEM(data []byte, passphrase string) (tls.Certificate, error) {
	var certPEM, keyPEM []byte
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(block)...)
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			//lint:ignore SA1019 legacy encrypted PEM keys are what ssl_passphrase unlocks
			if x509.IsEncryptedPEMBlock(block) {
				der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
				if err != nil {
					return tls.Certificate{}, fmt.Errorf("decrypt private key: %w", err)
				}
				block = &pem.Block{Type: block.Type, Bytes: der}
			}
			keyPEM = pem.EncodeToMemory(block)
		}
	}
	if certPEM == nil {
		return tls.Certificate{}, ErrNoCertificate
	}
	if keyPEM == nil {
		return tls.Certificate{}, ErrNoPrivateKey
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load key pair: %w", err)
	}
	return cert, nil
}
