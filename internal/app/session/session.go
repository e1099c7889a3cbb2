// Package session is the device's identity provider. It holds local
// accounts with bcrypt password hashes and tracks the signed-in user.
package session

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
	"github.com/agroloop/agroloop/internal/infra/observability"
)

// Storage keys.
const (
	KeyUser            = "user"
	KeyAccounts        = "accounts"
	KeyDeletedAccounts = "deletedAccounts"
)

// MinPasswordLength applies to sign-up and account deletion.
const MinPasswordLength = 6

// account is the persisted credential record.
type account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a account) user() domain.User {
	return domain.User{UID: a.UID, Email: a.Email, CreatedAt: a.CreatedAt}
}

// Config controls the provider.
type Config struct {
	BcryptCost int // 0 uses bcrypt.DefaultCost
}

// DeleteHook runs after an account is removed, with its uid.
type DeleteHook func(uid string) error

// Provider manages accounts and the current session.
type Provider struct {
	mu      sync.Mutex
	store   domain.KVStore
	cost    int
	now     func() time.Time
	hooks   []DeleteHook
	current *domain.User
}

// New creates a provider over store.
func New(cfg Config, store domain.KVStore) *Provider {
	cost := cfg.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Provider{store: store, cost: cost, now: time.Now}
}

// OnDelete registers a hook run by DeleteAccount.
func (p *Provider) OnDelete(h DeleteHook) {
	p.mu.Lock()
	p.hooks = append(p.hooks, h)
	p.mu.Unlock()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	switch {
	case email == "":
		return domain.Invalid("email", "is required")
	case !strings.Contains(email, "@"):
		return domain.Invalid("email", "is not a valid address")
	case password == "":
		return domain.Invalid("password", "is required")
	}
	return nil
}

// ─── Sign Up / Sign In ──────────────────────────────────────────────────────

// SignUp creates an account and signs it in.
func (p *Provider) SignUp(email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return domain.User{}, err
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, domain.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isDeleted(email) {
		observability.SessionEvents.WithLabelValues("failed").Inc()
		return domain.User{}, domain.ErrAccountDeleted
	}
	accounts := p.accounts()
	if _, ok := accounts[email]; ok {
		return domain.User{}, domain.ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	acct := account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	accounts[email] = acct

	u := acct.user()
	wAccounts, err := kv.Put(KeyAccounts, accounts)
	if err != nil {
		return domain.User{}, err
	}
	wUser, err := kv.Put(KeyUser, u)
	if err != nil {
		return domain.User{}, err
	}
	if err := p.store.Apply([]domain.KVWrite{wAccounts, wUser}); err != nil {
		return domain.User{}, fmt.Errorf("sign up: %w", err)
	}

	p.current = &u
	observability.SessionEvents.WithLabelValues("signup").Inc()
	log.Printf("[session] signed up uid=%s", u.UID)
	return u, nil
}

// SignIn checks credentials and makes the account current.
func (p *Provider) SignIn(email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return domain.User{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isDeleted(email) {
		observability.SessionEvents.WithLabelValues("failed").Inc()
		return domain.User{}, domain.ErrAccountDeleted
	}
	acct, ok := p.accounts()[email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		observability.SessionEvents.WithLabelValues("failed").Inc()
		return domain.User{}, domain.ErrInvalidCredentials
	}

	u := acct.user()
	if err := kv.WriteJSON(p.store, KeyUser, u); err != nil {
		return domain.User{}, fmt.Errorf("sign in: %w", err)
	}
	p.current = &u
	observability.SessionEvents.WithLabelValues("signin").Inc()
	return u, nil
}

// SignOut clears the current user. Ledger data is kept.
func (p *Provider) SignOut() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = nil
	if err := p.store.Delete(KeyUser); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	observability.SessionEvents.WithLabelValues("signout").Inc()
	return nil
}

// ─── Delete ─────────────────────────────────────────────────────────────────

// DeleteAccount removes the signed-in account and all of its scoped data
// after re-checking password. The email can never be used again.
func (p *Provider) DeleteAccount(password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return domain.ErrNotSignedIn
	}
	if password == "" {
		return domain.Invalid("password", "is required")
	}
	if len(password) < MinPasswordLength {
		return domain.ErrInvalidCredentials
	}

	u := *p.current
	accounts := p.accounts()
	acct, ok := accounts[u.Email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}
	delete(accounts, u.Email)

	deleted := p.deletedList()
	if !slices.Contains(deleted, u.Email) {
		deleted = append(deleted, u.Email)
	}

	scope, err := kv.ForUser(p.store, u.UID)
	if err != nil {
		return err
	}
	writes, err := scope.PurgeWrites()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	wAccounts, err := kv.Put(KeyAccounts, accounts)
	if err != nil {
		return err
	}
	wDeleted, err := kv.Put(KeyDeletedAccounts, deleted)
	if err != nil {
		return err
	}
	writes = append(writes, wAccounts, wDeleted, domain.KVWrite{Key: KeyUser, Delete: true})
	if err := p.store.Apply(writes); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	p.current = nil

	var errs []error
	for _, h := range p.hooks {
		if err := h(u.UID); err != nil {
			errs = append(errs, err)
		}
	}
	observability.SessionEvents.WithLabelValues("delete").Inc()
	log.Printf("[session] deleted account uid=%s", u.UID)
	return errors.Join(errs...)
}

// ─── Current User ───────────────────────────────────────────────────────────

// Current returns the signed-in user, if any.
func (p *Provider) Current() (domain.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return domain.User{}, false
	}
	return *p.current, true
}

// UID returns the signed-in user's id or domain.ErrNotSignedIn.
func (p *Provider) UID() (string, error) {
	u, ok := p.Current()
	if !ok {
		return "", domain.ErrNotSignedIn
	}
	return u.UID, nil
}

// Restore loads the persisted current user, as done once at startup.
// A persisted user whose email has since been deleted is not restored.
func (p *Provider) Restore() (domain.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var u domain.User
	found, err := kv.ReadJSON(p.store, KeyUser, &u)
	if err != nil {
		log.Printf("[session] read %s: %v", KeyUser, err)
		return domain.User{}, false
	}
	if !found || u.UID == "" || p.isDeleted(u.Email) {
		return domain.User{}, false
	}
	p.current = &u
	return u, true
}

// DeletedAccounts lists emails that can no longer be used.
func (p *Provider) DeletedAccounts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletedList()
}

// ─── Storage ────────────────────────────────────────────────────────────────

func (p *Provider) accounts() map[string]account {
	accounts := make(map[string]account)
	if _, err := kv.ReadJSON(p.store, KeyAccounts, &accounts); err != nil {
		log.Printf("[session] read %s: %v", KeyAccounts, err)
		return make(map[string]account)
	}
	return accounts
}

func (p *Provider) deletedList() []string {
	var emails []string
	if _, err := kv.ReadJSON(p.store, KeyDeletedAccounts, &emails); err != nil {
		log.Printf("[session] read %s: %v", KeyDeletedAccounts, err)
		return nil
	}
	return emails
}

func (p *Provider) isDeleted(email string) bool {
	return slices.Contains(p.deletedList(), normalizeEmail(email))
}
