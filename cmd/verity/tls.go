package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/verity-engine/verity/vcast"
)

// serverTLSConfig loads the given certificate and key PEM files,
// or generates an ephemeral self-signed certificate when both are empty.
// Ephemeral certificates require fetch --insecure on the client side;
// block integrity still comes from root verification either way.
func serverTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{vcast.DefaultALPN},
		}, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "verity-holder",
		},

		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(30 * 24 * time.Hour),

		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{
			{
				Certificate: [][]byte{der},
				PrivateKey:  priv,
			},
		},
		NextProtos: []string{vcast.DefaultALPN},
	}, nil
}

// clientTLSConfig builds the dialing TLS config.
// With a CA file, the holder's certificate chain is verified against it;
// with insecure set, chain verification is skipped entirely.
func clientTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	conf := &tls.Config{
		NextProtos: []string{vcast.DefaultALPN},
	}

	if insecure {
		conf.InsecureSkipVerify = true
		return conf, nil
	}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caFile)
		}
		conf.RootCAs = pool
	}

	return conf, nil
}
