//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	pt "github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
)

// AccountModel is the GORM model for accounts. The pending OTP challenge is
// flattened into nullable columns so issuing and clearing a code stays a
// single-row update.
type AccountModel struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Name         string  `gorm:"size:255"`
	Email        string  `gorm:"size:320;uniqueIndex"`
	DateOfBirth  *time.Time
	FederatedID  *string `gorm:"size:255;uniqueIndex"`
	Verified     bool    `gorm:"default:false"`
	OtpCodeHash  *string `gorm:"size:128"`
	OtpExpiresAt *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *pt.Account {
	acct := &pt.Account{
		ID:          m.ID,
		Name:        m.Name,
		Email:       m.Email,
		DateOfBirth: m.DateOfBirth,
		Verified:    m.Verified,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.FederatedID != nil {
		acct.FederatedID = *m.FederatedID
	}
	if m.OtpCodeHash != nil && m.OtpExpiresAt != nil {
		acct.PendingOtp = &pt.PendingOtp{
			CodeHash:  *m.OtpCodeHash,
			ExpiresAt: *m.OtpExpiresAt,
		}
	}
	return acct
}

func AccountToModel(acct *pt.Account) *AccountModel {
	model := &AccountModel{
		ID:          acct.ID,
		Name:        acct.Name,
		Email:       acct.Email,
		DateOfBirth: acct.DateOfBirth,
		Verified:    acct.Verified,
		CreatedAt:   acct.CreatedAt,
		UpdatedAt:   acct.UpdatedAt,
	}
	if acct.FederatedID != "" {
		fid := acct.FederatedID
		model.FederatedID = &fid
	}
	if acct.PendingOtp != nil {
		hash := acct.PendingOtp.CodeHash
		exp := acct.PendingOtp.ExpiresAt
		model.OtpCodeHash = &hash
		model.OtpExpiresAt = &exp
	}
	return model
}

// NoteModel is the GORM model for notes
type NoteModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	AccountID string    `gorm:"size:64;index"`
	Title     string    `gorm:"size:255"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (NoteModel) TableName() string {
	return "notes"
}

func (m *NoteModel) ToNote() *notes.Note {
	return &notes.Note{
		ID:        m.ID,
		AccountID: m.AccountID,
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func NoteToModel(n *notes.Note) *NoteModel {
	return &NoteModel{
		ID:        n.ID,
		AccountID: n.AccountID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
