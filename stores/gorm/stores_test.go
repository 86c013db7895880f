//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pt "github.com/papertrailhq/papertrail"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestEnsureAccountCreateThenFind(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(newTestDB(t))

	acct, created, err := store.EnsureAccount(ctx, "Alice@Example.com", pt.Profile{Name: "Alice"})
	if err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	if !created {
		t.Error("first call must report creation")
	}
	if acct.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", acct.Email)
	}

	again, created, err := store.EnsureAccount(ctx, "alice@example.com", pt.Profile{Name: "Other"})
	if err != nil {
		t.Fatalf("second EnsureAccount failed: %v", err)
	}
	if created {
		t.Error("second call must not report creation")
	}
	if again.ID != acct.ID {
		t.Errorf("expected same account, got %s and %s", acct.ID, again.ID)
	}
	if again.Name != "Alice" {
		t.Errorf("profile must not be reapplied to an existing account, got %q", again.Name)
	}
}

func TestSaveUnknownAccount(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(newTestDB(t))

	// Save must never insert: an unknown id is an error, not a new row.
	err := store.Save(ctx, &pt.Account{ID: "ghost", Email: "ghost@example.com"})
	if !errors.Is(err, pt.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := store.GetByEmail(ctx, "ghost@example.com"); !errors.Is(err, pt.ErrAccountNotFound) {
		t.Errorf("failed save must not leave a row behind, got %v", err)
	}
}

func TestSaveDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(newTestDB(t))

	if _, _, err := store.EnsureAccount(ctx, "first@example.com", pt.Profile{Name: "First"}); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}
	second, _, err := store.EnsureAccount(ctx, "second@example.com", pt.Profile{Name: "Second"})
	if err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}

	second.Email = "first@example.com"
	if err := store.Save(ctx, second); !errors.Is(err, pt.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestSavePersistsLink(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(newTestDB(t))

	acct, _, err := store.EnsureAccount(ctx, "link@example.com", pt.Profile{Name: "Link"})
	if err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}

	acct.FederatedID = "google:link1"
	acct.Verified = true
	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.GetByFederatedID(ctx, "google:link1")
	if err != nil {
		t.Fatalf("GetByFederatedID failed: %v", err)
	}
	if loaded.ID != acct.ID || !loaded.Verified {
		t.Errorf("expected linked verified account, got %+v", loaded)
	}
}

func TestSetPendingOtpLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(newTestDB(t))

	if _, _, err := store.EnsureAccount(ctx, "otp@example.com", pt.Profile{Name: "Otp"}); err != nil {
		t.Fatalf("EnsureAccount failed: %v", err)
	}

	expires := time.Now().Add(5 * time.Minute)
	acct, err := store.SetPendingOtp(ctx, "otp@example.com", &pt.PendingOtp{CodeHash: "hash", ExpiresAt: expires})
	if err != nil {
		t.Fatalf("SetPendingOtp failed: %v", err)
	}
	if !acct.HasPendingOtp() {
		t.Fatal("expected pending otp set")
	}

	acct, err = store.SetPendingOtp(ctx, "otp@example.com", nil)
	if err != nil {
		t.Fatalf("clearing SetPendingOtp failed: %v", err)
	}
	if acct.HasPendingOtp() {
		t.Error("expected pending otp cleared")
	}

	if _, err := store.SetPendingOtp(ctx, "nobody@example.com", nil); !errors.Is(err, pt.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound for unknown email, got %v", err)
	}
}
