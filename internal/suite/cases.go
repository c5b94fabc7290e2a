package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/remiblancher/provider-conformance/internal/cipher"
	"github.com/remiblancher/provider-conformance/internal/crypto"
	"github.com/remiblancher/provider-conformance/internal/provider"
	"github.com/remiblancher/provider-conformance/internal/providers"
	"github.com/remiblancher/provider-conformance/internal/sealed"
)

// Plaintexts used by the round trips.
const (
	alphabet   = "abcdefghijklmnopqrstuvwxyz"
	helloWorld = "Hello world"
)

// alignedAlphabet is the alphabet extended to 32 bytes, a multiple of every
// block size, for unpadded block modes.
const alignedAlphabet = alphabet + "012345"

// absentProvider is a name no built-in provider uses.
const absentProvider = "NoSuchProvider"

// Catalog returns every case in its default order.
func Catalog() []Case {
	return []Case{
		{Name: "random-available", Description: "a DRBG SecureRandom resolves and produces output", Run: randomAvailable},
		{Name: "mode-padding-roundtrip", Description: "every mode/padding combo of DESede and AES round-trips the alphabet at every key size", Run: modePaddingRoundTrip},
		{Name: "sealed-object", Description: "\"Hello world\" survives all three envelope open forms", Run: sealedObject},
		{Name: "sealed-object-wrong-key", Description: "opening an envelope with the wrong key is an integrity error", Run: sealedObjectWrongKey},
		{Name: "wrap-unwrap", Description: "an RSA-512 private key wrapped under DESede unwraps to identical PKCS#8", Run: wrapUnwrap},
		{Name: "kem-wrap", Description: "an AES key wrapped to an ML-KEM-768 public key unwraps with the private key", Run: kemWrap},
		{Name: "aeswrap-pad", Description: "RFC 5649 wraps a key RFC 3394 rejects", Run: aesWrapPad},
		{Name: "provider-precedence", Description: "unqualified requests resolve to the first capable provider", Run: providerPrecedence},
		{Name: "registry-reinsert", Description: "remove then re-insert restores the original resolution", Run: registryReinsert},
		{Name: "remove-absent", Description: "removing an unregistered name is a no-op", Run: removeAbsent},
		{Name: "resolver-errors", Description: "malformed and unsatisfiable requests fail with the right error", Run: resolverErrors},
		{Name: "illegal-state", Description: "handles reject use before Init and after finalization", Run: illegalState},
	}
}

// Names returns the catalog case names in order.
func Names() []string {
	var names []string
	for _, c := range Catalog() {
		names = append(names, c.Name)
	}
	return names
}

// Select returns the named cases in the requested order. No names selects
// the whole catalog.
func Select(names []string) ([]Case, error) {
	catalog := Catalog()
	if len(names) == 0 {
		return catalog, nil
	}

	var out []Case
	seen := make(map[string]bool)
	for _, name := range names {
		idx := slices.IndexFunc(catalog, func(c Case) bool { return c.Name == name })
		if idx < 0 {
			return nil, fmt.Errorf("unknown case %q (known: %s)", name, strings.Join(Names(), ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, catalog[idx])
	}
	return out, nil
}

func randomAvailable(env *Env) Result {
	res, err := env.Registry.Resolve(provider.Request{Type: provider.SecureRandom, Algorithm: string(crypto.AlgDRBG)})
	if err != nil {
		return Fail(err, "no DRBG SecureRandom registered")
	}
	r, err := cipher.NewRandomFrom(env.Registry, string(crypto.AlgDRBG), res.Provider.Name())
	if err != nil {
		return FailAt(res.Provider.Name(), err, "DRBG instantiation failed")
	}

	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return FailAt(res.Provider.Name(), err, "DRBG read failed")
	}
	if bytes.Equal(buf, make([]byte, len(buf))) {
		return FailAt(res.Provider.Name(), nil, "DRBG produced all-zero output")
	}
	return Pass(res.Provider.Name(), "DRBG produced %d bytes", len(buf))
}

// roundTrip encrypts then decrypts input under one combo with a pinned
// provider and checks the IV and length properties on the way.
func roundTrip(env *Env, req provider.Request, key crypto.Key, input []byte) error {
	enc, err := cipher.NewOperation(env.Registry, req, crypto.EncryptMode, key, cipher.WithRandom(env.Random))
	if err != nil {
		return err
	}
	ct, err := enc.DoFinal(input)
	if err != nil {
		return err
	}

	iv := enc.IV()
	if req.Mode.NeedsIV() != (iv != nil) {
		return fmt.Errorf("%s: IV present = %v", req.Mode, iv != nil)
	}
	if req.Mode.IsStream() && len(ct) != len(input) {
		return fmt.Errorf("%s: ciphertext is %d bytes for %d bytes of input", req.Mode, len(ct), len(input))
	}

	dec, err := cipher.NewOperation(env.Registry, req, crypto.DecryptMode, key, cipher.WithIV(iv))
	if err != nil {
		return err
	}
	pt, err := dec.DoFinal(ct)
	if err != nil {
		return err
	}
	if !bytes.Equal(pt, input) {
		return fmt.Errorf("decrypted %q, want %q", pt, input)
	}
	return nil
}

func modePaddingRoundTrip(env *Env) Result {
	algs := []struct {
		alg  crypto.AlgorithmID
		bits []int
	}{
		{crypto.AlgDESede, []int{112, 168}},
		{crypto.AlgAES, []int{128, 192, 256}},
	}

	var checked int
	var served []string
	for _, a := range algs {
		res, err := env.Registry.Resolve(provider.Request{Algorithm: string(a.alg)})
		if err != nil {
			return Fail(err, "no provider offers %s", a.alg)
		}
		name := res.Provider.Name()
		served = append(served, name)

		for _, bits := range a.bits {
			key, err := cipher.GenerateKey(env.Registry, string(a.alg), bits, env.Random)
			if err != nil {
				return FailAt(name, err, "%d-bit %s key generation failed", bits, a.alg)
			}
			for _, combo := range res.Service.Combos {
				input := []byte(alphabet)
				if combo.Padding == crypto.NoPadding && !combo.Mode.IsStream() {
					input = []byte(alignedAlphabet)
				}
				req := provider.Request{Algorithm: string(a.alg), Mode: combo.Mode, Padding: combo.Padding, Provider: name}
				if err := roundTrip(env, req, key, input); err != nil {
					return FailAt(name, err, "%s with a %d-bit key", req, bits)
				}
				env.logger().Debug("round trip ok", "transformation", req.String(), "bits", bits, "provider", name)
				checked++
			}
		}
	}
	return Pass(strings.Join(slices.Compact(served), ","), "%d combinations round-tripped", checked)
}

// sealTransformation protects envelopes in the sealed-object cases.
const sealTransformation = "DESede/CBC/PKCS5Padding"

func sealHello(env *Env) (*sealed.Object, crypto.Key, error) {
	key, err := cipher.GenerateKey(env.Registry, string(crypto.AlgDESede), 168, env.Random)
	if err != nil {
		return nil, nil, err
	}
	c, err := cipher.GetInstance(env.Registry, sealTransformation)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Init(crypto.EncryptMode, key, cipher.WithRandom(env.Random)); err != nil {
		return nil, nil, err
	}
	obj, err := sealed.Seal(helloWorld, c)
	if err != nil {
		return nil, nil, err
	}
	return obj, key, nil
}

func sealedObject(env *Env) Result {
	obj, key, err := sealHello(env)
	if err != nil {
		return Fail(err, "sealing failed")
	}
	name := obj.Provider()

	dec, err := cipher.GetInstanceFrom(env.Registry, obj.Transformation(), name)
	if err != nil {
		return FailAt(name, err, "decrypt handle unavailable")
	}
	if err := dec.Init(crypto.DecryptMode, key, cipher.WithIV(obj.IV())); err != nil {
		return FailAt(name, err, "decrypt init failed")
	}

	opens := []struct {
		form string
		open func(out *string) error
	}{
		{"cipher", func(out *string) error { return obj.Open(dec, out) }},
		{"key", func(out *string) error { return obj.OpenWithKey(env.Registry, key, out) }},
		{"key+provider", func(out *string) error { return obj.OpenWithProvider(env.Registry, key, name, out) }},
	}
	for _, o := range opens {
		var got string
		if err := o.open(&got); err != nil {
			return FailAt(name, err, "open with %s failed", o.form)
		}
		if got != helloWorld {
			return FailAt(name, nil, "open with %s returned %q", o.form, got)
		}
	}
	return Pass(name, "%s envelope opened three ways", obj.Transformation())
}

func sealedObjectWrongKey(env *Env) Result {
	obj, _, err := sealHello(env)
	if err != nil {
		return Fail(err, "sealing failed")
	}
	wrong, err := cipher.GenerateKey(env.Registry, string(crypto.AlgDESede), 168, env.Random)
	if err != nil {
		return Fail(err, "key generation failed")
	}

	var got string
	err = obj.OpenWithKey(env.Registry, wrong, &got)
	switch {
	case err == nil:
		return FailAt(obj.Provider(), nil, "wrong key opened the envelope to %q", got)
	case !errors.Is(err, sealed.ErrIntegrity):
		return FailAt(obj.Provider(), err, "wrong key failed with an unexpected error")
	}
	return Pass(obj.Provider(), "wrong key rejected: %v", KindOf(err))
}

// wrapRoundTrip wraps target under wrapKey and checks the unwrapped
// encoding matches.
func wrapRoundTrip(env *Env, transformation string, wrapKey, unwrapKey, target crypto.Key, keyType crypto.KeyType) (string, error) {
	w, err := cipher.GetInstance(env.Registry, transformation)
	if err != nil {
		return "", err
	}
	if err := w.Init(crypto.WrapMode, wrapKey, cipher.WithRandom(env.Random)); err != nil {
		return w.Provider(), err
	}
	wrapped, err := w.Wrap(target)
	if err != nil {
		return w.Provider(), err
	}

	u, err := cipher.GetInstanceFrom(env.Registry, transformation, w.Provider())
	if err != nil {
		return w.Provider(), err
	}
	if err := u.Init(crypto.UnwrapMode, unwrapKey, cipher.WithIV(w.IV())); err != nil {
		return w.Provider(), err
	}
	got, err := u.Unwrap(wrapped, target.Algorithm(), keyType)
	if err != nil {
		return w.Provider(), err
	}
	if !bytes.Equal(got.Encoded(), target.Encoded()) {
		return w.Provider(), fmt.Errorf("unwrapped %s key encoding differs from the original", keyType)
	}
	return w.Provider(), nil
}

func wrapUnwrap(env *Env) Result {
	kp, err := cipher.GenerateKeyPair(env.Registry, string(crypto.AlgRSA), 512, env.Random)
	if err != nil {
		return Fail(err, "RSA-512 key pair generation failed")
	}
	kek, err := cipher.GenerateKey(env.Registry, string(crypto.AlgDESede), 168, env.Random)
	if err != nil {
		return Fail(err, "DESede key generation failed")
	}

	name, err := wrapRoundTrip(env, string(crypto.AlgDESede), kek, kek, kp.Private, crypto.PrivateKeyType)
	if err != nil {
		return FailAt(name, err, "RSA-512 private key wrap round trip")
	}
	return Pass(name, "%d-byte %s private key round-tripped", len(kp.Private.Encoded()), kp.Private.Format())
}

func kemWrap(env *Env) Result {
	kp, err := cipher.GenerateKeyPair(env.Registry, string(crypto.AlgMLKEM768), 0, env.Random)
	if err != nil {
		return Fail(err, "ML-KEM-768 key pair generation failed")
	}
	target, err := cipher.GenerateKey(env.Registry, string(crypto.AlgAES), 256, env.Random)
	if err != nil {
		return Fail(err, "AES key generation failed")
	}

	name, err := wrapRoundTrip(env, string(crypto.AlgMLKEM768), kp.Public, kp.Private, target, crypto.SecretKeyType)
	if err != nil {
		return FailAt(name, err, "ML-KEM-768 wrap round trip")
	}
	return Pass(name, "AES-256 key round-tripped through ML-KEM-768")
}

func aesWrapPad(env *Env) Result {
	kek, err := cipher.GenerateKey(env.Registry, string(crypto.AlgAES), 128, env.Random)
	if err != nil {
		return Fail(err, "AES key generation failed")
	}
	target, err := cipher.GenerateKey(env.Registry, string(crypto.AlgDES), 0, env.Random)
	if err != nil {
		return Fail(err, "DES key generation failed")
	}

	// An 8-byte key is below the RFC 3394 minimum.
	if _, err := wrapRoundTrip(env, string(crypto.AlgAESWrap), kek, kek, target, crypto.SecretKeyType); !errors.Is(err, crypto.ErrIllegalBlockSize) {
		return Fail(err, "AESWrap should reject an 8-byte key")
	}

	name, err := wrapRoundTrip(env, string(crypto.AlgAESWrapPad), kek, kek, target, crypto.SecretKeyType)
	if err != nil {
		return FailAt(name, err, "AESWrapPad round trip")
	}
	return Pass(name, "8-byte DES key round-tripped with RFC 5649")
}

// expectProvider checks that transformation resolves to want.
func expectProvider(env *Env, transformation, want string) error {
	c, err := cipher.GetInstance(env.Registry, transformation)
	if err != nil {
		return fmt.Errorf("%s: %w", transformation, err)
	}
	if c.Provider() != want {
		return fmt.Errorf("%s resolved to %s, want %s", transformation, c.Provider(), want)
	}
	return nil
}

func providerPrecedence(env *Env) Result {
	reg := env.Registry
	defer reg.Restore(reg.Snapshot())

	reg.Insert(providers.Std(), 0)
	reg.Insert(providers.Lite(), 0)

	checks := []struct {
		transformation string
		want           string
	}{
		{"DES", providers.LiteName},
		{"DES/CBC/PKCS5Padding", providers.LiteName},
		{"DES/CTR/NoPadding", providers.StdName},
		{"DES/ECB/NoPadding", providers.StdName},
		{"DESede", providers.StdName},
		{"Blowfish", providers.LiteName},
	}
	for _, c := range checks {
		if err := expectProvider(env, c.transformation, c.want); err != nil {
			return Fail(err, "with Lite at position 0")
		}
	}

	reg.Insert(providers.Lite(), 1)
	if err := expectProvider(env, "DES", providers.StdName); err != nil {
		return Fail(err, "with Lite at position 1")
	}
	if err := expectProvider(env, "Blowfish", providers.LiteName); err != nil {
		return Fail(err, "with Lite at position 1")
	}
	return Pass(providers.LiteName+","+providers.StdName, "%d resolutions matched precedence", len(checks)+2)
}

func registryReinsert(env *Env) Result {
	reg := env.Registry
	defer reg.Restore(reg.Snapshot())

	const transformation = "DES"
	before, err := cipher.GetInstance(reg, transformation)
	if err != nil {
		return Fail(err, "%s does not resolve", transformation)
	}
	name := before.Provider()
	p, err := reg.Get(name)
	if err != nil {
		return FailAt(name, err, "provider lookup failed")
	}
	pos := reg.Position(name)

	reg.Remove(name)
	if reg.Position(name) != -1 {
		return FailAt(name, nil, "%s still registered after Remove", name)
	}
	if after, err := cipher.GetInstance(reg, transformation); err == nil && after.Provider() == name {
		return FailAt(name, nil, "%s resolved to the removed provider", transformation)
	}

	if got := reg.Insert(p, pos); got != pos {
		return FailAt(name, nil, "re-inserted at %d, want %d", got, pos)
	}
	if err := expectProvider(env, transformation, name); err != nil {
		return FailAt(name, err, "resolution not restored")
	}
	return Pass(name, "%s restored at position %d", name, pos)
}

func removeAbsent(env *Env) Result {
	reg := env.Registry
	before := reg.Names()
	reg.Remove(absentProvider)
	if after := reg.Names(); !slices.Equal(before, after) {
		return Fail(nil, "registry changed from %v to %v", before, after)
	}
	return Pass("", "registry unchanged with %d providers", len(before))
}

func resolverErrors(env *Env) Result {
	reg := env.Registry

	aes, err := cipher.GenerateKey(reg, string(crypto.AlgAES), 128, env.Random)
	if err != nil {
		return Fail(err, "AES key generation failed")
	}
	des, err := cipher.GenerateKey(reg, string(crypto.AlgDES), 0, env.Random)
	if err != nil {
		return Fail(err, "DES key generation failed")
	}

	checks := []struct {
		what string
		want error
		run  func() error
	}{
		{"two-part transformation", provider.ErrNoSuchAlgorithm, func() error {
			_, err := cipher.GetInstance(reg, "AES/CBC")
			return err
		}},
		{"unknown algorithm", provider.ErrNoSuchAlgorithm, func() error {
			_, err := cipher.GetInstance(reg, "Serpent/CBC/PKCS5Padding")
			return err
		}},
		{"unknown provider", provider.ErrNoSuchProvider, func() error {
			_, err := cipher.GetInstanceFrom(reg, "DES", absentProvider)
			return err
		}},
		{"wrong key algorithm", crypto.ErrInvalidKey, func() error {
			_, err := cipher.NewOperation(reg, provider.Request{Algorithm: "AES", Mode: crypto.ModeECB, Padding: crypto.PKCS5Padding}, crypto.EncryptMode, des)
			return err
		}},
		{"unaligned padded ciphertext", crypto.ErrPadding, func() error {
			c, err := cipher.NewOperation(reg, provider.Request{Algorithm: "AES", Mode: crypto.ModeECB, Padding: crypto.PKCS5Padding}, crypto.DecryptMode, aes)
			if err != nil {
				return err
			}
			_, err = c.DoFinal(make([]byte, 17))
			return err
		}},
		{"unaligned unpadded input", crypto.ErrIllegalBlockSize, func() error {
			c, err := cipher.NewOperation(reg, provider.Request{Algorithm: "AES", Mode: crypto.ModeCBC, Padding: crypto.NoPadding}, crypto.EncryptMode, aes)
			if err != nil {
				return err
			}
			_, err = c.DoFinal([]byte(alphabet))
			return err
		}},
		{"decrypt without IV", crypto.ErrInvalidParameter, func() error {
			_, err := cipher.NewOperation(reg, provider.Request{Algorithm: "AES", Mode: crypto.ModeCBC, Padding: crypto.PKCS5Padding}, crypto.DecryptMode, aes)
			return err
		}},
	}

	for _, c := range checks {
		err := c.run()
		if !errors.Is(err, c.want) {
			if err == nil {
				return Fail(nil, "%s: succeeded, want %v", c.what, c.want)
			}
			return Fail(err, "%s: want %v", c.what, c.want)
		}
	}
	return Pass("", "%d error paths reported correctly", len(checks))
}

func illegalState(env *Env) Result {
	key, err := cipher.GenerateKey(env.Registry, string(crypto.AlgAES), 128, env.Random)
	if err != nil {
		return Fail(err, "AES key generation failed")
	}
	c, err := cipher.GetInstance(env.Registry, "AES/ECB/PKCS5Padding")
	if err != nil {
		return Fail(err, "AES handle unavailable")
	}
	name := c.Provider()

	if _, err := c.Update([]byte(alphabet)); !errors.Is(err, cipher.ErrIllegalState) {
		return FailAt(name, err, "Update before Init was accepted")
	}
	if err := c.Init(crypto.EncryptMode, key, cipher.WithRandom(env.Random)); err != nil {
		return FailAt(name, err, "Init failed")
	}
	if _, err := c.DoFinal([]byte(alphabet)); err != nil {
		return FailAt(name, err, "DoFinal failed")
	}
	if _, err := c.DoFinal([]byte(alphabet)); !errors.Is(err, cipher.ErrIllegalState) {
		return FailAt(name, err, "DoFinal after finalization was accepted")
	}
	if err := c.Init(crypto.EncryptMode, key); err != nil {
		return FailAt(name, err, "re-Init failed")
	}
	if _, err := c.DoFinal([]byte(alphabet)); err != nil {
		return FailAt(name, err, "DoFinal after re-Init failed")
	}
	return Pass(name, "out-of-sequence calls rejected")
}
