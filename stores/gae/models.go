//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"
	pt "github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
)

// AccountEntity is the Datastore entity for accounts.
// Key is the normalized email, which makes the per-email OTP upsert a single
// keyed transaction.
type AccountEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	AccountID    string         `datastore:"account_id"`
	Name         string         `datastore:"name"`
	Email        string         `datastore:"email"`
	DateOfBirth  time.Time      `datastore:"date_of_birth,omitempty"`
	HasDob       bool           `datastore:"has_dob"`
	FederatedID  string         `datastore:"federated_id"`
	Verified     bool           `datastore:"verified"`
	OtpCodeHash  string         `datastore:"otp_code_hash,noindex"`
	OtpExpiresAt time.Time      `datastore:"otp_expires_at,omitempty"`
	HasOtp       bool           `datastore:"has_otp"`
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

func (e *AccountEntity) ToAccount() *pt.Account {
	acct := &pt.Account{
		ID:          e.AccountID,
		Name:        e.Name,
		Email:       e.Email,
		FederatedID: e.FederatedID,
		Verified:    e.Verified,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.HasDob {
		dob := e.DateOfBirth
		acct.DateOfBirth = &dob
	}
	if e.HasOtp {
		acct.PendingOtp = &pt.PendingOtp{
			CodeHash:  e.OtpCodeHash,
			ExpiresAt: e.OtpExpiresAt,
		}
	}
	return acct
}

func AccountToEntity(acct *pt.Account, key *datastore.Key) *AccountEntity {
	entity := &AccountEntity{
		Key:         key,
		AccountID:   acct.ID,
		Name:        acct.Name,
		Email:       acct.Email,
		FederatedID: acct.FederatedID,
		Verified:    acct.Verified,
		CreatedAt:   acct.CreatedAt,
		UpdatedAt:   acct.UpdatedAt,
	}
	if acct.DateOfBirth != nil {
		entity.DateOfBirth = *acct.DateOfBirth
		entity.HasDob = true
	}
	if acct.PendingOtp != nil {
		entity.OtpCodeHash = acct.PendingOtp.CodeHash
		entity.OtpExpiresAt = acct.PendingOtp.ExpiresAt
		entity.HasOtp = true
	}
	return entity
}

// NoteEntity is the Datastore entity for notes. Key is the note id.
type NoteEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	AccountID string         `datastore:"account_id"`
	Title     string         `datastore:"title,noindex"`
	Content   string         `datastore:"content,noindex"`
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *NoteEntity) ToNote() *notes.Note {
	return &notes.Note{
		ID:        e.Key.Name,
		AccountID: e.AccountID,
		Title:     e.Title,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func NoteToEntity(n *notes.Note, key *datastore.Key) *NoteEntity {
	return &NoteEntity{
		Key:       key,
		AccountID: n.AccountID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
