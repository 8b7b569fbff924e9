package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned for an unknown login or a wrong password
var ErrBadCredentials = errors.New("bad credentials")

// Account is a configured user
type Account struct {
	Login        string
	PasswordHash string
	Roles        []string
}

// Accounts authenticates logins against bcrypt hashes
type Accounts struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewAccounts creates an account set
func NewAccounts(accounts ...Account) *Accounts {
	a := &Accounts{accounts: make(map[string]Account, len(accounts))}
	for _, acc := range accounts {
		a.Put(acc)
	}
	return a
}

// Put adds or replaces an account
func (a *Accounts) Put(acc Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc.Roles = append([]string(nil), acc.Roles...)
	a.accounts[acc.Login] = acc
}

// Authenticate checks the password and returns the principal
func (a *Accounts) Authenticate(login, password string) (*Principal, error) {
	a.mu.RLock()
	acc, ok := a.accounts[login]
	a.mu.RUnlock()
	if !ok || acc.PasswordHash == "" {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &Principal{Login: acc.Login, Roles: append([]string(nil), acc.Roles...)}, nil
}

// HashPassword hashes a password for an Account
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
