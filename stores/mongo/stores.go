// Package mongo provides MongoDB implementations of the papertrail store
// interfaces. The account collection carries a unique index on email, so the
// EnsureAccount and SetPendingOtp operations map onto single findOneAndUpdate
// calls and stay atomic without client-side transactions.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pt "github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
)

const (
	accountsCollection = "accounts"
	notesCollection    = "notes"
)

type accountDoc struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	DateOfBirth  *time.Time `bson:"dob,omitempty"`
	FederatedID  string     `bson:"federated_id,omitempty"`
	Verified     bool       `bson:"verified"`
	OtpCodeHash  string     `bson:"otp_code_hash,omitempty"`
	OtpExpiresAt *time.Time `bson:"otp_expires_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func (d *accountDoc) toAccount() *pt.Account {
	acct := &pt.Account{
		ID:          d.ID,
		Name:        d.Name,
		Email:       d.Email,
		DateOfBirth: d.DateOfBirth,
		FederatedID: d.FederatedID,
		Verified:    d.Verified,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.OtpCodeHash != "" && d.OtpExpiresAt != nil {
		acct.PendingOtp = &pt.PendingOtp{
			CodeHash:  d.OtpCodeHash,
			ExpiresAt: *d.OtpExpiresAt,
		}
	}
	return acct
}

// AccountStore implements pt.AccountStore backed by MongoDB.
type AccountStore struct {
	accounts *mongo.Collection
}

// NewAccountStore creates an AccountStore on the given database and ensures
// the unique indexes the store relies on.
func NewAccountStore(ctx context.Context, db *mongo.Database) (*AccountStore, error) {
	accounts := db.Collection(accountsCollection)
	_, err := accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "federated_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "federated_id", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
	})
	if err != nil {
		return nil, err
	}
	return &AccountStore{accounts: accounts}, nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*pt.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: pt.NormalizeEmail(email)}})
}

func (s *AccountStore) GetByFederatedID(ctx context.Context, federatedID string) (*pt.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "federated_id", Value: federatedID}})
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (*pt.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *AccountStore) findOne(ctx context.Context, filter bson.D) (*pt.Account, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAccount(), nil
}

func (s *AccountStore) EnsureAccount(ctx context.Context, email string, profile pt.Profile) (*pt.Account, bool, error) {
	email = pt.NormalizeEmail(email)
	now := time.Now()

	onInsert := bson.D{
		{Key: "_id", Value: pt.NewAccountID()},
		{Key: "name", Value: profile.Name},
		{Key: "email", Value: email},
		{Key: "verified", Value: false},
		{Key: "created_at", Value: now},
		{Key: "updated_at", Value: now},
	}
	if profile.DateOfBirth != nil {
		onInsert = append(onInsert, bson.E{Key: "dob", Value: *profile.DateOfBirth})
	}

	// UpsertedCount is the only reliable insert signal: BSON datetimes are
	// millisecond precision, so a stored timestamp never compares Equal to the
	// nanosecond time.Time that produced it.
	res, err := s.accounts.UpdateOne(ctx,
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "$setOnInsert", Value: onInsert}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return nil, false, err
	}

	acct, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return acct, res.UpsertedCount > 0, nil
}

func (s *AccountStore) SetPendingOtp(ctx context.Context, email string, otp *pt.PendingOtp) (*pt.Account, error) {
	now := time.Now()
	var update bson.D
	if otp == nil {
		update = bson.D{
			{Key: "$unset", Value: bson.D{
				{Key: "otp_code_hash", Value: ""},
				{Key: "otp_expires_at", Value: ""},
			}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now}}},
		}
	} else {
		update = bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "otp_code_hash", Value: otp.CodeHash},
				{Key: "otp_expires_at", Value: otp.ExpiresAt},
				{Key: "updated_at", Value: now},
			}},
		}
	}

	var doc accountDoc
	err := s.accounts.FindOneAndUpdate(ctx,
		bson.D{{Key: "email", Value: pt.NormalizeEmail(email)}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pt.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toAccount(), nil
}

func (s *AccountStore) Save(ctx context.Context, acct *pt.Account) error {
	set := bson.D{
		{Key: "name", Value: acct.Name},
		{Key: "email", Value: pt.NormalizeEmail(acct.Email)},
		{Key: "verified", Value: acct.Verified},
		{Key: "updated_at", Value: time.Now()},
	}
	unset := bson.D{}
	if acct.DateOfBirth != nil {
		set = append(set, bson.E{Key: "dob", Value: *acct.DateOfBirth})
	} else {
		unset = append(unset, bson.E{Key: "dob", Value: ""})
	}
	if acct.FederatedID != "" {
		set = append(set, bson.E{Key: "federated_id", Value: acct.FederatedID})
	} else {
		unset = append(unset, bson.E{Key: "federated_id", Value: ""})
	}
	if acct.PendingOtp != nil {
		set = append(set,
			bson.E{Key: "otp_code_hash", Value: acct.PendingOtp.CodeHash},
			bson.E{Key: "otp_expires_at", Value: acct.PendingOtp.ExpiresAt},
		)
	} else {
		unset = append(unset,
			bson.E{Key: "otp_code_hash", Value: ""},
			bson.E{Key: "otp_expires_at", Value: ""},
		)
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	res, err := s.accounts.UpdateOne(ctx, bson.D{{Key: "_id", Value: acct.ID}}, update)
	if mongo.IsDuplicateKeyError(err) {
		return pt.ErrDuplicateAccount
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return pt.ErrAccountNotFound
	}
	return nil
}

type noteDoc struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Title     string    `bson:"title"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *noteDoc) toNote() *notes.Note {
	return &notes.Note{
		ID:        d.ID,
		AccountID: d.AccountID,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// NoteStore implements notes.Store backed by MongoDB.
type NoteStore struct {
	notes *mongo.Collection
}

// NewNoteStore creates a NoteStore on the given database.
func NewNoteStore(db *mongo.Database) *NoteStore {
	return &NoteStore{notes: db.Collection(notesCollection)}
}

func (s *NoteStore) Create(ctx context.Context, note *notes.Note) error {
	doc := noteDoc{
		ID:        note.ID,
		AccountID: note.AccountID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
	_, err := s.notes.InsertOne(ctx, doc)
	return err
}

func (s *NoteStore) ListByAccount(ctx context.Context, accountID string) ([]*notes.Note, error) {
	cursor, err := s.notes.Find(ctx,
		bson.D{{Key: "account_id", Value: accountID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list []*notes.Note
	for cursor.Next(ctx) {
		var doc noteDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		list = append(list, doc.toNote())
	}
	return list, cursor.Err()
}

func (s *NoteStore) Delete(ctx context.Context, id, accountID string) error {
	res, err := s.notes.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "account_id", Value: accountID},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}
