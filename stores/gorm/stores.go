//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pt "github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
)

// AutoMigrate runs database migrations for all papertrail tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&NoteModel{},
	)
}

// =============================================================================
// AccountStore
// =============================================================================

// AccountStore implements pt.AccountStore using GORM
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*pt.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", pt.NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetByFederatedID(ctx context.Context, federatedID string) (*pt.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "federated_id = ?", federatedID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*pt.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) EnsureAccount(ctx context.Context, email string, profile pt.Profile) (*pt.Account, bool, error) {
	email = pt.NormalizeEmail(email)

	var acct *pt.Account
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model AccountModel
		err := tx.First(&model, "email = ?", email).Error
		if err == nil {
			acct = model.ToAccount()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model = AccountModel{
			ID:          pt.NewAccountID(),
			Name:        profile.Name,
			Email:       email,
			DateOfBirth: profile.DateOfBirth,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		acct = model.ToAccount()
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return acct, created, nil
}

func (s *AccountStore) SetPendingOtp(ctx context.Context, email string, otp *pt.PendingOtp) (*pt.Account, error) {
	email = pt.NormalizeEmail(email)

	var acct *pt.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model AccountModel
		err := tx.First(&model, "email = ?", email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pt.ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		updates := map[string]any{"otp_code_hash": nil, "otp_expires_at": nil}
		if otp != nil {
			updates["otp_code_hash"] = otp.CodeHash
			updates["otp_expires_at"] = otp.ExpiresAt
		}
		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}

		if otp == nil {
			model.OtpCodeHash = nil
			model.OtpExpiresAt = nil
		} else {
			hash := otp.CodeHash
			exp := otp.ExpiresAt
			model.OtpCodeHash = &hash
			model.OtpExpiresAt = &exp
		}
		acct = model.ToAccount()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Save updates an existing account record. A plain gorm Save would insert a
// row for an unknown id, so the update is explicit: missing rows fail with
// ErrAccountNotFound like the other backends. The duplicate-key mapping
// requires the DB to be opened with gorm.Config{TranslateError: true}.
func (s *AccountStore) Save(ctx context.Context, acct *pt.Account) error {
	model := AccountToModel(acct)
	model.Email = pt.NormalizeEmail(acct.Email)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AccountModel
		err := tx.First(&existing, "id = ?", acct.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pt.ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		updates := map[string]any{
			"name":           model.Name,
			"email":          model.Email,
			"date_of_birth":  model.DateOfBirth,
			"federated_id":   model.FederatedID,
			"verified":       model.Verified,
			"otp_code_hash":  model.OtpCodeHash,
			"otp_expires_at": model.OtpExpiresAt,
		}
		err = tx.Model(&AccountModel{}).Where("id = ?", acct.ID).Updates(updates).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pt.ErrDuplicateAccount
		}
		return err
	})
}

// =============================================================================
// NoteStore
// =============================================================================

// NoteStore implements notes.Store using GORM
type NoteStore struct {
	db *gorm.DB
}

func NewNoteStore(db *gorm.DB) *NoteStore {
	return &NoteStore{db: db}
}

func (s *NoteStore) Create(ctx context.Context, note *notes.Note) error {
	return s.db.WithContext(ctx).Create(NoteToModel(note)).Error
}

func (s *NoteStore) ListByAccount(ctx context.Context, accountID string) ([]*notes.Note, error) {
	var models []NoteModel
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	list := make([]*notes.Note, len(models))
	for i, m := range models {
		list[i] = m.ToNote()
	}
	return list, nil
}

func (s *NoteStore) Delete(ctx context.Context, id, accountID string) error {
	res := s.db.WithContext(ctx).Delete(&NoteModel{}, "id = ? AND account_id = ?", id, accountID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}
