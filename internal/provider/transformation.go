package provider

import (
	"fmt"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/crypto"
)

// Request asks the registry for an implementation. Mode and Padding are
// empty for unqualified requests; Provider pins resolution to one provider.
type Request struct {
	Type      ServiceType
	Algorithm string
	Mode      crypto.Mode
	Padding   crypto.Padding
	Provider  string
}

// ParseTransformation parses "ALG" or "ALG/MODE/PADDING" into a cipher
// request. Any other shape, or an empty segment, is ErrNoSuchAlgorithm.
func ParseTransformation(s string) (Request, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Request{}, &Error{Op: "parse", Algorithm: s,
				Err: fmt.Errorf("%w: empty segment in transformation %q", ErrNoSuchAlgorithm, s)}
		}
	}

	switch len(parts) {
	case 1:
		return Request{Type: Cipher, Algorithm: parts[0]}, nil
	case 3:
		return Request{
			Type:      Cipher,
			Algorithm: parts[0],
			Mode:      crypto.Mode(parts[1]),
			Padding:   crypto.Padding(parts[2]),
		}, nil
	default:
		return Request{}, &Error{Op: "parse", Algorithm: s,
			Err: fmt.Errorf("%w: invalid transformation format %q", ErrNoSuchAlgorithm, s)}
	}
}

// WithProvider returns a copy of r pinned to the named provider.
func (r Request) WithProvider(name string) Request {
	r.Provider = name
	return r
}

// Qualified reports whether the request names a mode or padding.
func (r Request) Qualified() bool {
	return r.Mode != "" || r.Padding != ""
}

// String returns the transformation form of the request.
func (r Request) String() string {
	if !r.Qualified() {
		return r.Algorithm
	}
	return r.Algorithm + "/" + string(r.Mode) + "/" + string(r.Padding)
}
