package providers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
)

// DefaultOrder is the registry order used when none is configured.
var DefaultOrder = []string{StdName, LiteName}

// Install adds the named providers to reg in order. PKCS11 is opened from
// hsm, which may be nil when it is not requested. The returned function
// closes any opened token.
func Install(reg *provider.Registry, names []string, hsm *crypto.HSMConfig) (func() error, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}

	var tokens []*crypto.PKCS11Token
	closeAll := func() error {
		var errs []error
		for _, t := range tokens {
			errs = append(errs, t.Close())
		}
		return errors.Join(errs...)
	}

	for _, name := range names {
		if strings.EqualFold(name, PKCS11Name) {
			if hsm == nil {
				_ = closeAll()
				return nil, fmt.Errorf("%w: %s requires an HSM configuration", provider.ErrNoSuchProvider, PKCS11Name)
			}
			p, token, err := OpenPKCS11(hsm)
			if err != nil {
				_ = closeAll()
				return nil, err
			}
			tokens = append(tokens, token)
			reg.Add(p)
			continue
		}

		p, err := ByName(name)
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		reg.Add(p)
	}

	return closeAll, nil
}
