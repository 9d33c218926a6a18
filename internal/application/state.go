package application

import (
	"sync"

	"github.com/bnema/tokenpool/internal/domain"
)

// CredentialState is the credential the request-issuing side reads. It is
// created once at startup and written only by Pool.UpdateState.
type CredentialState struct {
	mu      sync.RWMutex
	label   string
	token   string
	version uint64
}

func NewCredentialState() *CredentialState {
	return &CredentialState{}
}

func (s *CredentialState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *CredentialState) Label() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.label
}

// Version increases on every propagation; zero means nothing was propagated yet.
func (s *CredentialState) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *CredentialState) set(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = account.Label
	s.token = account.Token
	s.version++
}
