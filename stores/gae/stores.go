//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	pt "github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
)

// Kind constants for Datastore entities
const (
	KindAccount = "Account"
	KindNote    = "Note"
)

// ============================================================================
// AccountStore
// ============================================================================

// AccountStore implements pt.AccountStore using Google Cloud Datastore
type AccountStore struct {
	client    *datastore.Client
	namespace string
}

// NewAccountStore creates a new Datastore-backed AccountStore
func NewAccountStore(client *datastore.Client, namespace string) *AccountStore {
	return &AccountStore{client: client, namespace: namespace}
}

func (s *AccountStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *AccountStore) accountKey(email string) *datastore.Key {
	return s.namespacedKey(KindAccount, pt.NormalizeEmail(email))
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*pt.Account, error) {
	var entity AccountEntity
	if err := s.client.Get(ctx, s.accountKey(email), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, pt.ErrAccountNotFound
		}
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *AccountStore) GetByFederatedID(ctx context.Context, federatedID string) (*pt.Account, error) {
	query := datastore.NewQuery(KindAccount).
		FilterField("federated_id", "=", federatedID).
		Limit(1)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	it := s.client.Run(ctx, query)
	var entity AccountEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*pt.Account, error) {
	query := datastore.NewQuery(KindAccount).
		FilterField("account_id", "=", id).
		Limit(1)
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	it := s.client.Run(ctx, query)
	var entity AccountEntity
	_, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *AccountStore) EnsureAccount(ctx context.Context, email string, profile pt.Profile) (*pt.Account, bool, error) {
	email = pt.NormalizeEmail(email)
	key := s.accountKey(email)

	var acct *pt.Account
	created := false
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity AccountEntity
		err := tx.Get(key, &entity)
		if err == nil {
			acct = entity.ToAccount()
			return nil
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}

		now := time.Now()
		fresh := &pt.Account{
			ID:          pt.NewAccountID(),
			Name:        profile.Name,
			Email:       email,
			DateOfBirth: profile.DateOfBirth,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := tx.Put(key, AccountToEntity(fresh, key)); err != nil {
			return err
		}
		acct = fresh
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return acct, created, nil
}

func (s *AccountStore) SetPendingOtp(ctx context.Context, email string, otp *pt.PendingOtp) (*pt.Account, error) {
	key := s.accountKey(email)

	var acct *pt.Account
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity AccountEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return pt.ErrAccountNotFound
			}
			return err
		}

		if otp == nil {
			entity.OtpCodeHash = ""
			entity.OtpExpiresAt = time.Time{}
			entity.HasOtp = false
		} else {
			entity.OtpCodeHash = otp.CodeHash
			entity.OtpExpiresAt = otp.ExpiresAt
			entity.HasOtp = true
		}
		entity.UpdatedAt = time.Now()
		entity.Key = key
		if _, err := tx.Put(key, &entity); err != nil {
			return err
		}
		acct = entity.ToAccount()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *AccountStore) Save(ctx context.Context, acct *pt.Account) error {
	key := s.accountKey(acct.Email)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing AccountEntity
		err := tx.Get(key, &existing)
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return pt.ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		if existing.AccountID != acct.ID {
			return pt.ErrDuplicateAccount
		}

		entity := AccountToEntity(acct, key)
		entity.Email = pt.NormalizeEmail(acct.Email)
		entity.CreatedAt = existing.CreatedAt
		entity.UpdatedAt = time.Now()
		_, err = tx.Put(key, entity)
		return err
	})
	return err
}

// ============================================================================
// NoteStore
// ============================================================================

// NoteStore implements notes.Store using Google Cloud Datastore
type NoteStore struct {
	client    *datastore.Client
	namespace string
}

// NewNoteStore creates a new Datastore-backed NoteStore
func NewNoteStore(client *datastore.Client, namespace string) *NoteStore {
	return &NoteStore{client: client, namespace: namespace}
}

func (s *NoteStore) noteKey(id string) *datastore.Key {
	key := datastore.NameKey(KindNote, id, nil)
	key.Namespace = s.namespace
	return key
}

func (s *NoteStore) Create(ctx context.Context, note *notes.Note) error {
	key := s.noteKey(note.ID)
	_, err := s.client.Put(ctx, key, NoteToEntity(note, key))
	return err
}

func (s *NoteStore) ListByAccount(ctx context.Context, accountID string) ([]*notes.Note, error) {
	query := datastore.NewQuery(KindNote).
		FilterField("account_id", "=", accountID).
		Order("-created_at")
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	var list []*notes.Note
	it := s.client.Run(ctx, query)
	for {
		var entity NoteEntity
		key, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		entity.Key = key
		list = append(list, entity.ToNote())
	}
	return list, nil
}

func (s *NoteStore) Delete(ctx context.Context, id, accountID string) error {
	key := s.noteKey(id)

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity NoteEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return notes.ErrNoteNotFound
			}
			return err
		}
		if entity.AccountID != accountID {
			return notes.ErrNoteNotFound
		}
		return tx.Delete(key)
	})
	return err
}
