// Package deviceregistry derives device fingerprints; the registry itself lives in the subpackages.
package deviceregistry

import (
	"encoding/base64"
	"errors"
	"net/netip"
	"strings"

	"golang.org/x/crypto/blake2b"

	devicedomain "multidevice-identity/backend/internal/device/domain"
	"multidevice-identity/backend/internal/deviceregistry/domain"
)

// ErrFingerprintKeyTooLong is returned when the fingerprint key exceeds the BLAKE2b key size.
var ErrFingerprintKeyTooLong = errors.New("fingerprint key longer than 64 bytes")

const sep = 0x1f

// Fingerprinter derives stable per-user device fingerprints.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a Fingerprinter keyed with key. An empty key yields an unkeyed hash.
func NewFingerprinter(key []byte) (*Fingerprinter, error) {
	if len(key) > blake2b.Size {
		return nil, ErrFingerprintKeyTooLong
	}
	return &Fingerprinter{key: append([]byte(nil), key...)}, nil
}

// Fingerprint returns base64url(BLAKE2b-256(key, userID|browser|os|userAgent|network)) where
// browser and os are normalized, and network is the /24 (IPv4) or /48 (IPv6) prefix of the client address.
func (f *Fingerprinter) Fingerprint(userID string, d domain.DeviceDetails) string {
	h, err := blake2b.New256(f.key)
	if err != nil {
		// key length is checked in NewFingerprinter
		panic(err)
	}
	for i, part := range []string{
		userID,
		devicedomain.Normalize(d.Browser),
		devicedomain.Normalize(d.OS),
		strings.TrimSpace(d.UserAgent),
		CoarseNetwork(d.IPAddress),
	} {
		if i > 0 {
			h.Write([]byte{sep})
		}
		h.Write([]byte(part))
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// CoarseNetwork masks addr to its /24 (IPv4) or /48 (IPv6) network so that address churn within
// one network does not create a new device. Unparseable input yields "".
func CoarseNetwork(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		ap, perr := netip.ParseAddrPort(addr)
		if perr != nil {
			return ""
		}
		ip = ap.Addr()
	}
	ip = ip.Unmap()
	bits := 48
	if ip.Is4() {
		bits = 24
	}
	p, err := ip.Prefix(bits)
	if err != nil {
		return ""
	}
	return p.String()
}
