//go:build cgo

package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/miekg/pkcs11"
)

// PKCS11Token is a logged-in PKCS#11 token that runs DESede and AES
// block operations on the device.
type PKCS11Token struct {
	cfg  PKCS11Config
	slot uint
	pool *PKCS11SessionPool
}

// OpenPKCS11Token locates the configured token and attaches a session pool.
func OpenPKCS11Token(cfg PKCS11Config) (*PKCS11Token, error) {
	ctx, err := initModule(cfg.ModulePath)
	if err != nil {
		return nil, err
	}
	slot, err := findSlot(ctx, cfg)
	// The module stays initialized for the pool; only this handle goes away.
	ctx.Destroy()
	if err != nil {
		return nil, err
	}

	pool, err := GetSessionPool(cfg.ModulePath, slot, cfg.PIN)
	if err != nil {
		return nil, err
	}
	return &PKCS11Token{cfg: cfg, slot: slot, pool: pool}, nil
}

// Slot returns the slot the token was found in.
func (t *PKCS11Token) Slot() uint { return t.slot }

// Close releases the token's session pool.
func (t *PKCS11Token) Close() error {
	return t.pool.Close()
}

// findSlot finds the slot matching the configuration.
func findSlot(ctx *pkcs11.Ctx, cfg PKCS11Config) (uint, error) {
	if cfg.SlotID != nil {
		return *cfg.SlotID, nil
	}

	slots, err := ctx.GetSlotList(true)
	if err != nil {
		return 0, fmt.Errorf("failed to get slot list: %w", err)
	}
	if len(slots) == 0 {
		return 0, fmt.Errorf("no slots with tokens found")
	}

	for _, slot := range slots {
		info, err := ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if cfg.TokenLabel != "" && info.Label == cfg.TokenLabel {
			return slot, nil
		}
		if cfg.TokenSerial != "" && info.SerialNumber == cfg.TokenSerial {
			return slot, nil
		}
	}

	if cfg.TokenLabel != "" {
		return 0, fmt.Errorf("token with label %q not found", cfg.TokenLabel)
	}
	if cfg.TokenSerial != "" {
		return 0, fmt.Errorf("token with serial %q not found", cfg.TokenSerial)
	}
	return slots[0], nil
}

// ListPKCS11Slots lists the slots of a PKCS#11 module.
func ListPKCS11Slots(modulePath string) ([]SlotInfo, error) {
	ctx, err := initModule(modulePath)
	if err != nil {
		return nil, err
	}
	defer ctx.Destroy()

	slots, err := ctx.GetSlotList(false)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot list: %w", err)
	}

	result := make([]SlotInfo, 0, len(slots))
	for _, slot := range slots {
		info, err := ctx.GetSlotInfo(slot)
		if err != nil {
			continue
		}
		si := SlotInfo{
			ID:          slot,
			Description: info.SlotDescription,
			HasToken:    info.Flags&pkcs11.CKF_TOKEN_PRESENT != 0,
		}
		if si.HasToken {
			if tokenInfo, err := ctx.GetTokenInfo(slot); err == nil {
				si.TokenLabel = tokenInfo.Label
			}
		}
		result = append(result, si)
	}
	return result, nil
}

// pkcs11Mechanisms maps (algorithm, mode) to the raw block mechanism.
// Padding is applied in software so ECB and CBC share one code path.
var pkcs11Mechanisms = map[AlgorithmID]map[Mode]uint{
	AlgDESede: {ModeECB: pkcs11.CKM_DES3_ECB, ModeCBC: pkcs11.CKM_DES3_CBC},
	AlgAES:    {ModeECB: pkcs11.CKM_AES_ECB, ModeCBC: pkcs11.CKM_AES_CBC},
}

var pkcs11KeyTypes = map[AlgorithmID]uint{
	AlgDESede: pkcs11.CKK_DES3,
	AlgAES:    pkcs11.CKK_AES,
}

// PKCS11CipherEngine runs ECB or CBC on the token. The key is imported as
// a session object for the duration of each Final call.
type PKCS11CipherEngine struct {
	token   *PKCS11Token
	alg     AlgorithmID
	mode    Mode
	padding Padding
	mech    uint

	op     OpMode
	key    []byte
	iv     []byte
	random io.Reader
	buf    []byte
}

// Ensure PKCS11CipherEngine implements CipherEngine.
var _ CipherEngine = (*PKCS11CipherEngine)(nil)

// NewCipherEngine creates an engine for alg/mode/padding on this token.
func (t *PKCS11Token) NewCipherEngine(alg AlgorithmID, mode Mode, padding Padding) (CipherEngine, error) {
	mech, ok := pkcs11Mechanisms[alg][mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s not available on PKCS#11 token", ErrInvalidParameter, alg, mode)
	}
	if padding != NoPadding && padding != PKCS5Padding {
		return nil, fmt.Errorf("%w: padding %s not available on PKCS#11 token", ErrInvalidParameter, padding)
	}
	return &PKCS11CipherEngine{token: t, alg: alg, mode: mode, padding: padding, mech: mech}, nil
}

// Init implements CipherEngine.
func (e *PKCS11CipherEngine) Init(op OpMode, key Key, params Params, random io.Reader) error {
	raw, err := secretKeyBytes(e.alg, key)
	if err != nil {
		return err
	}
	raw, err = e.normalizeKey(raw)
	if err != nil {
		return err
	}
	if random == nil {
		random = rand.Reader
	}

	bs := e.alg.BlockSize()
	var iv []byte
	switch {
	case e.mode == ModeECB:
		if params.IV != nil {
			return fmt.Errorf("%w: ECB mode does not take an IV", ErrInvalidParameter)
		}
	case params.IV != nil:
		if len(params.IV) != bs {
			return fmt.Errorf("%w: IV must be %d bytes, got %d", ErrInvalidParameter, bs, len(params.IV))
		}
		iv = append([]byte(nil), params.IV...)
	case op.Encrypting():
		iv = make([]byte, bs)
		if _, err := io.ReadFull(random, iv); err != nil {
			return fmt.Errorf("failed to generate IV: %w", err)
		}
	default:
		return fmt.Errorf("%w: CBC mode requires an IV to %s", ErrInvalidParameter, op)
	}

	e.op = op
	e.key = raw
	e.iv = iv
	e.random = random
	e.buf = nil
	return nil
}

// normalizeKey expands two-key DESede to three keys and checks lengths.
func (e *PKCS11CipherEngine) normalizeKey(raw []byte) ([]byte, error) {
	switch e.alg {
	case AlgDESede:
		switch len(raw) {
		case 16:
			k := make([]byte, 24)
			copy(k, raw)
			copy(k[16:], raw[:8])
			return k, nil
		case 24:
			return raw, nil
		}
	case AlgAES:
		switch len(raw) {
		case 16, 24, 32:
			return raw, nil
		}
	}
	return nil, fmt.Errorf("%w: %d-byte key for %s", ErrInvalidKey, len(raw), e.alg)
}

// Update implements CipherEngine. Input is buffered until Final.
func (e *PKCS11CipherEngine) Update(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	e.buf = append(e.buf, in...)
	return []byte{}, nil
}

// Final implements CipherEngine.
func (e *PKCS11CipherEngine) Final(in []byte) ([]byte, error) {
	if e.op == 0 {
		return nil, fmt.Errorf("engine not initialized")
	}
	data := append(e.buf, in...)
	e.buf = nil
	bs := e.alg.BlockSize()

	if e.op.Encrypting() {
		padded, err := pad(e.padding, data, bs, e.random)
		if err != nil {
			return nil, err
		}
		return e.run(padded)
	}

	if len(data)%bs != 0 {
		if e.padding == NoPadding {
			return nil, fmt.Errorf("%w: %d bytes with block size %d", ErrIllegalBlockSize, len(data), bs)
		}
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrPadding, len(data), bs)
	}
	plain, err := e.run(data)
	if err != nil {
		return nil, err
	}
	return unpad(e.padding, plain, bs)
}

// run imports the key, performs one single-part operation and destroys
// the key object.
func (e *PKCS11CipherEngine) run(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	session, release, err := e.token.pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer release()

	ctx := e.token.pool.Context()

	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_SECRET_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11KeyTypes[e.alg]),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, false),
		pkcs11.NewAttribute(pkcs11.CKA_ENCRYPT, true),
		pkcs11.NewAttribute(pkcs11.CKA_DECRYPT, true),
		pkcs11.NewAttribute(pkcs11.CKA_VALUE, e.key),
	}
	obj, err := ctx.CreateObject(session, template)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to import key: %v", ErrInvalidKey, err)
	}
	defer func() { _ = ctx.DestroyObject(session, obj) }()

	mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(e.mech, e.iv)}

	if e.op.Encrypting() {
		if err := ctx.EncryptInit(session, mech, obj); err != nil {
			return nil, fmt.Errorf("failed to init encrypt: %w", err)
		}
		out, err := ctx.Encrypt(session, data)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt: %w", err)
		}
		return out, nil
	}

	if err := ctx.DecryptInit(session, mech, obj); err != nil {
		return nil, fmt.Errorf("failed to init decrypt: %w", err)
	}
	out, err := ctx.Decrypt(session, data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt: %v", ErrPadding, err)
	}
	return out, nil
}

// IV implements CipherEngine.
func (e *PKCS11CipherEngine) IV() []byte {
	if e.iv == nil {
		return nil
	}
	return append([]byte(nil), e.iv...)
}

// BlockSize implements CipherEngine.
func (e *PKCS11CipherEngine) BlockSize() int { return e.alg.BlockSize() }

// OutputSize implements CipherEngine.
func (e *PKCS11CipherEngine) OutputSize(inputLen int) int {
	total := len(e.buf) + inputLen
	if !e.op.Encrypting() || e.padding == NoPadding {
		return total
	}
	bs := e.alg.BlockSize()
	return (total/bs + 1) * bs
}
