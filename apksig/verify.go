// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package apksig verifies the PKCS#7 JAR-signing block APKs carry under
// META-INF/ (the v1/"JAR signing" scheme). This is the read-only half of
// signing/verification — no signature is produced here, and no
// `apksigner`/`zipalign` process is ever invoked.
package apksig

import (
	"bytes"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"time"

	"go.mozilla.org/pkcs7"
)

// ErrorKind discriminates apksig failures.
type ErrorKind int

const (
	ErrMalformedBlock ErrorKind = iota
	ErrNoSigners
	ErrSignatureInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedBlock:
		return "malformed signer block"
	case ErrNoSigners:
		return "no signers"
	case ErrSignatureInvalid:
		return "signature invalid"
	default:
		return "unknown"
	}
}

// Error wraps an ErrorKind with its cause.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apksig: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("apksig: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// SignerInfo holds the fields of an X.509 certificate an analyst actually
// cares about, pulled out of the much larger x509.Certificate structure.
type SignerInfo struct {
	SerialNumber       string
	Issuer             string
	Subject            string
	SignatureAlgorithm string
	NotBefore, NotAfter time.Time
}

// SignerBlock is a parsed META-INF/*.RSA (or .DSA/.EC) entry.
type SignerBlock struct {
	Raw     []byte
	pkcs    *pkcs7.PKCS7
	Signers []SignerInfo
}

// ParseSignerBlock parses a DER-encoded PKCS#7 SignedData structure, the
// format of a JAR/APK v1 signature file's META-INF/*.RSA entry. Grounded on
// `security.go`'s `parseSecurityDirectory`'s `pkcs7.Parse` + certificate
// field extraction, adapted from Authenticode's embedded-content model to
// the APK v1 scheme's detached-content model (the signed content is
// META-INF/MANIFEST.MF's digest, supplied separately to VerifyDetached).
func ParseSignerBlock(der []byte) (*SignerBlock, error) {
	p, err := pkcs7.Parse(der)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedBlock, Err: err}
	}
	if len(p.Signers) == 0 {
		return nil, &Error{Kind: ErrNoSigners}
	}

	sb := &SignerBlock{Raw: der, pkcs: p}
	for _, signerInfo := range p.Signers {
		serial := signerInfo.IssuerAndSerialNumber.SerialNumber
		var cert *x509.Certificate
		for _, c := range p.Certificates {
			if bytes.Equal(c.SerialNumber.Bytes(), serial.Bytes()) {
				cert = c
				break
			}
		}
		if cert == nil {
			continue
		}
		info := SignerInfo{
			SerialNumber:       hex.EncodeToString(cert.SerialNumber.Bytes()),
			SignatureAlgorithm: cert.SignatureAlgorithm.String(),
			NotBefore:          cert.NotBefore,
			NotAfter:           cert.NotAfter,
		}
		info.Issuer = dnString(cert.Issuer.Country, cert.Issuer.Province, cert.Issuer.Locality, cert.Issuer.CommonName)
		info.Subject = dnString(cert.Subject.Country, cert.Subject.Province, cert.Subject.Locality, cert.Subject.CommonName)
		sb.Signers = append(sb.Signers, info)
	}
	return sb, nil
}

func dnString(country, province, locality []string, cn string) string {
	s := ""
	if len(country) > 0 {
		s += country[0]
	}
	if len(province) > 0 {
		s += ", " + province[0]
	}
	if len(locality) > 0 {
		s += ", " + locality[0]
	}
	return s + ", " + cn
}

// Verify checks the signer block's signature against its embedded content
// (mirrors `pkcs7.PKCS7.Verify()`; use VerifyDetached for the APK v1
// MANIFEST.MF digest form where content isn't embedded in the block).
func (sb *SignerBlock) Verify() error {
	if err := sb.pkcs.Verify(); err != nil {
		return &Error{Kind: ErrSignatureInvalid, Err: err}
	}
	return nil
}

// VerifyDetached checks the signer block's signature against externally
// supplied content (the APK v1 scheme signs a detached SHA digest of
// META-INF/MANIFEST.MF, not content embedded in the PKCS#7 block itself).
func (sb *SignerBlock) VerifyDetached(content []byte) error {
	sb.pkcs.Content = content
	if err := sb.pkcs.Verify(); err != nil {
		return &Error{Kind: ErrSignatureInvalid, Err: err}
	}
	return nil
}

// VerifyChain additionally validates the signer certificate's chain of
// trust against pool, mirroring `security.go`'s `pkcs.VerifyWithChain`.
func (sb *SignerBlock) VerifyChain(pool *x509.CertPool) error {
	if err := sb.pkcs.VerifyWithChain(pool); err != nil {
		return &Error{Kind: ErrSignatureInvalid, Err: err}
	}
	return nil
}
