package blobstore

import (
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	DefaultKeyPrefix = "lists"

	digestKeyBytes     = 8
	nonceLength        = 8
	maxFilenameLength  = 100
	fallbackObjectName = "image"
)

// Digest returns the hex BLAKE2b-256 digest of r.
func Digest(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ObjectKey builds "<prefix>/<unix-millis>_<index>_<nonce>_<digest8>_<filename>".
//
// nonce is a per-upload random token that keeps identical uploads made in the
// same millisecond on separate keys.
func ObjectKey(prefix string, at time.Time, index int, nonce, digest, filename string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	short := strings.ToLower(strings.TrimSpace(digest))
	if len(short) > digestKeyBytes*2 {
		short = short[:digestKeyBytes*2]
	}
	if short == "" {
		short = "0"
	}
	nonce = keySegment(nonce)
	if nonce == "" {
		nonce = "0"
	}
	name := fmt.Sprintf("%d_%d_%s_%s_%s", at.UTC().UnixMilli(), index, nonce, short, SanitizeFilename(filename))
	return path.Join(prefix, name)
}

// NewNonce returns a short random token for ObjectKey.
func NewNonce() string {
	return keySegment(uuid.NewString())[:nonceLength]
}

// keySegment keeps lowercase alphanumerics only, so a nonce never adds a
// separator to the key.
func keySegment(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeFilename reduces an uploaded filename to a safe object-name segment.
func SanitizeFilename(raw string) string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")
	base := path.Base(raw)
	if base == "." || base == "/" || base == ".." {
		base = ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		return fallbackObjectName
	}
	if len(name) > maxFilenameLength {
		name = name[len(name)-maxFilenameLength:]
	}
	return name
}
