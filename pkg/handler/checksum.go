package handler

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"hash"
	"strings"
)

// checksumAlgorithms lists the digests advertised in Tus-Checksum-Algorithm,
// in the order they are advertised.
var checksumAlgorithms = []string{"md5", "sha1", "sha256", "sha512"}

func newChecksumHash(algorithm string) (hash.Hash, bool) {
	switch algorithm {
	case "md5":
		return md5.New(), true
	case "sha1":
		return sha1.New(), true
	case "sha256":
		return sha256.New(), true
	case "sha512":
		return sha512.New(), true
	default:
		return nil, false
	}
}

// verifyChecksum checks chunk against the Upload-Checksum header value,
// which is "<algorithm> <base64 digest>". It returns ErrUnknownHashAlgorithm
// for unsupported algorithms, ErrInvalidChecksumHeader for malformed
// headers and ErrChecksumMismatch when the digests differ.
func verifyChecksum(chunk []byte, header string) error {
	algorithm, encoded, ok := strings.Cut(header, " ")
	if !ok || algorithm == "" || encoded == "" {
		return ErrInvalidChecksumHeader
	}

	h, ok := newChecksumHash(algorithm)
	if !ok {
		return ErrUnknownHashAlgorithm
	}

	expected, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ErrInvalidChecksumHeader
	}

	h.Write(chunk)
	if subtle.ConstantTimeCompare(h.Sum(nil), expected) != 1 {
		return ErrChecksumMismatch
	}

	return nil
}
