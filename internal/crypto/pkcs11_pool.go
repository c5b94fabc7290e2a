//go:build cgo

package crypto

import (
	"fmt"
	"sync"

	"github.com/miekg/pkcs11"
)

// PKCS11SessionPool hands out sessions on one token. Sessions are reused
// between cipher operations and closed with the pool.
type PKCS11SessionPool struct {
	mu        sync.Mutex
	ctx       *pkcs11.Ctx
	module    string
	slotID    uint
	pin       string
	available []pkcs11.SessionHandle
	inUse     map[pkcs11.SessionHandle]bool
	loginDone bool
	closed    bool
}

var (
	// pools holds one pool per (module, slot).
	pools   = make(map[string]*PKCS11SessionPool)
	poolsMu sync.Mutex
)

func poolKey(modulePath string, slotID uint) string {
	return fmt.Sprintf("%s:%d", modulePath, slotID)
}

// initModule loads and initializes a PKCS#11 module, tolerating a module
// that another pool already initialized.
func initModule(modulePath string) (*pkcs11.Ctx, error) {
	ctx := pkcs11.New(modulePath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load PKCS#11 module: %s", modulePath)
	}
	if err := ctx.Initialize(); err != nil {
		if p11err, ok := err.(pkcs11.Error); !ok || p11err != pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED {
			ctx.Destroy()
			return nil, fmt.Errorf("failed to initialize PKCS#11 module: %w", err)
		}
	}
	return ctx, nil
}

// GetSessionPool returns the pool for a module and slot, creating it on
// first use.
func GetSessionPool(modulePath string, slotID uint, pin string) (*PKCS11SessionPool, error) {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	key := poolKey(modulePath, slotID)
	if pool, ok := pools[key]; ok {
		pool.mu.Lock()
		closed := pool.closed
		pool.mu.Unlock()
		if !closed {
			return pool, nil
		}
		delete(pools, key)
	}

	ctx, err := initModule(modulePath)
	if err != nil {
		return nil, err
	}

	pool := &PKCS11SessionPool{
		ctx:    ctx,
		module: modulePath,
		slotID: slotID,
		pin:    pin,
		inUse:  make(map[pkcs11.SessionHandle]bool),
	}
	pools[key] = pool
	return pool, nil
}

// Context returns the underlying PKCS#11 context.
func (p *PKCS11SessionPool) Context() *pkcs11.Ctx {
	return p.ctx
}

// Acquire reserves a session. The returned release func must be called
// when the caller is done with the session:
//
//	session, release, err := pool.Acquire()
//	if err != nil { return err }
//	defer release()
func (p *PKCS11SessionPool) Acquire() (pkcs11.SessionHandle, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, nil, fmt.Errorf("session pool is closed")
	}

	var session pkcs11.SessionHandle
	if n := len(p.available); n > 0 {
		session = p.available[n-1]
		p.available = p.available[:n-1]
	} else {
		var err error
		session, err = p.ctx.OpenSession(p.slotID, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to open session: %w", err)
		}

		// Login state is per token, not per session.
		if p.pin != "" && !p.loginDone {
			if err := p.ctx.Login(session, pkcs11.CKU_USER, p.pin); err != nil {
				if e, ok := err.(pkcs11.Error); !ok || e != pkcs11.CKR_USER_ALREADY_LOGGED_IN {
					_ = p.ctx.CloseSession(session)
					return 0, nil, fmt.Errorf("failed to login: %w", err)
				}
			}
			p.loginDone = true
		}
	}

	p.inUse[session] = true

	release := func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		delete(p.inUse, session)
		if p.closed {
			_ = p.ctx.CloseSession(session)
			return
		}
		p.available = append(p.available, session)
	}

	return session, release, nil
}

// Close logs out, closes every session and finalizes the module.
func (p *PKCS11SessionPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	err := p.closeLocked()
	p.mu.Unlock()

	// Lock order is poolsMu then p.mu.
	poolsMu.Lock()
	if pools[poolKey(p.module, p.slotID)] == p {
		delete(pools, poolKey(p.module, p.slotID))
	}
	poolsMu.Unlock()

	return err
}

func (p *PKCS11SessionPool) closeLocked() error {
	p.closed = true

	var errs []error

	if p.loginDone && len(p.available) > 0 {
		if err := p.ctx.Logout(p.available[0]); err != nil {
			if e, ok := err.(pkcs11.Error); !ok || e != pkcs11.CKR_USER_NOT_LOGGED_IN {
				errs = append(errs, fmt.Errorf("logout: %w", err))
			}
		}
	}

	for _, session := range p.available {
		if err := p.ctx.CloseSession(session); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}
	for session := range p.inUse {
		if err := p.ctx.CloseSession(session); err != nil {
			errs = append(errs, fmt.Errorf("close in-use session: %w", err))
		}
	}
	p.available = nil

	if err := p.ctx.Finalize(); err != nil {
		if e, ok := err.(pkcs11.Error); !ok || e != pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED {
			errs = append(errs, fmt.Errorf("finalize: %w", err))
		}
	}
	p.ctx.Destroy()

	if len(errs) > 0 {
		return fmt.Errorf("errors closing pool: %v", errs)
	}
	return nil
}

// CloseAllPools closes every session pool. Call it at program exit.
func CloseAllPools() {
	poolsMu.Lock()
	all := make([]*PKCS11SessionPool, 0, len(pools))
	for _, pool := range pools {
		all = append(all, pool)
	}
	poolsMu.Unlock()

	for _, pool := range all {
		_ = pool.Close()
	}
}
