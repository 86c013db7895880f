// Package stores provides in-memory implementations of the papertrail store
// interfaces, suitable for development and tests. Database-backed stores live
// in the gorm, mongo and gae subpackages.
package stores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
)

// MemoryAccountStore keeps accounts in a mutex-guarded map keyed by email.
// The single lock gives EnsureAccount and SetPendingOtp the per-email
// atomicity the issuer relies on.
type MemoryAccountStore struct {
	mu      sync.Mutex
	byEmail map[string]*papertrail.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{byEmail: make(map[string]*papertrail.Account)}
}

func (s *MemoryAccountStore) GetByEmail(ctx context.Context, email string) (*papertrail.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byEmail[papertrail.NormalizeEmail(email)]
	if !ok {
		return nil, papertrail.ErrAccountNotFound
	}
	return cloneAccount(acct), nil
}

func (s *MemoryAccountStore) GetByFederatedID(ctx context.Context, federatedID string) (*papertrail.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.byEmail {
		if acct.FederatedID != "" && acct.FederatedID == federatedID {
			return cloneAccount(acct), nil
		}
	}
	return nil, papertrail.ErrAccountNotFound
}

func (s *MemoryAccountStore) GetByID(ctx context.Context, id string) (*papertrail.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.byEmail {
		if acct.ID == id {
			return cloneAccount(acct), nil
		}
	}
	return nil, papertrail.ErrAccountNotFound
}

func (s *MemoryAccountStore) EnsureAccount(ctx context.Context, email string, profile papertrail.Profile) (*papertrail.Account, bool, error) {
	email = papertrail.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct, ok := s.byEmail[email]; ok {
		return cloneAccount(acct), false, nil
	}

	now := time.Now()
	acct := &papertrail.Account{
		ID:          papertrail.NewAccountID(),
		Name:        profile.Name,
		Email:       email,
		DateOfBirth: profile.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byEmail[email] = acct
	return cloneAccount(acct), true, nil
}

func (s *MemoryAccountStore) SetPendingOtp(ctx context.Context, email string, otp *papertrail.PendingOtp) (*papertrail.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byEmail[papertrail.NormalizeEmail(email)]
	if !ok {
		return nil, papertrail.ErrAccountNotFound
	}
	if otp == nil {
		acct.PendingOtp = nil
	} else {
		cp := *otp
		acct.PendingOtp = &cp
	}
	acct.UpdatedAt = time.Now()
	return cloneAccount(acct), nil
}

func (s *MemoryAccountStore) Save(ctx context.Context, acct *papertrail.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *papertrail.Account
	for _, candidate := range s.byEmail {
		if candidate.ID == acct.ID {
			existing = candidate
			break
		}
	}
	if existing == nil {
		return papertrail.ErrAccountNotFound
	}
	if acct.FederatedID != "" {
		for _, candidate := range s.byEmail {
			if candidate.ID != acct.ID && candidate.FederatedID == acct.FederatedID {
				return papertrail.ErrDuplicateAccount
			}
		}
	}

	updated := cloneAccount(acct)
	updated.Email = papertrail.NormalizeEmail(acct.Email)
	updated.UpdatedAt = time.Now()
	if existing.Email != updated.Email {
		if _, taken := s.byEmail[updated.Email]; taken {
			return papertrail.ErrDuplicateAccount
		}
		delete(s.byEmail, existing.Email)
	}
	s.byEmail[updated.Email] = updated
	return nil
}

func cloneAccount(acct *papertrail.Account) *papertrail.Account {
	cp := *acct
	if acct.DateOfBirth != nil {
		dob := *acct.DateOfBirth
		cp.DateOfBirth = &dob
	}
	if acct.PendingOtp != nil {
		otp := *acct.PendingOtp
		cp.PendingOtp = &otp
	}
	return &cp
}

// MemoryNoteStore keeps notes in a mutex-guarded map keyed by note id.
type MemoryNoteStore struct {
	mu    sync.Mutex
	notes map[string]*notes.Note
}

func NewMemoryNoteStore() *MemoryNoteStore {
	return &MemoryNoteStore{notes: make(map[string]*notes.Note)}
}

func (s *MemoryNoteStore) Create(ctx context.Context, note *notes.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *note
	s.notes[note.ID] = &cp
	return nil
}

func (s *MemoryNoteStore) ListByAccount(ctx context.Context, accountID string) ([]*notes.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*notes.Note
	for _, note := range s.notes {
		if note.AccountID == accountID {
			cp := *note
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryNoteStore) Delete(ctx context.Context, id, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[id]
	if !ok || note.AccountID != accountID {
		return notes.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}
