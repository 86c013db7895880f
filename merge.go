package papertrail

import (
	"context"
	"errors"
	"log"
)

// DefaultDisplayName is used for federated accounts whose provider did not
// return a usable display name.
const DefaultDisplayName = "User"

// FederatedAssertion is a provider's statement of a verified email plus a
// stable external subject id. It is produced by the collaborator that
// terminates the provider redirect; this core only consumes it.
type FederatedAssertion struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// IdentityMerger resolves a federated assertion to exactly one account,
// linking or creating as needed. The email is the sole cross-path merge key:
// a user who first signed up via email OTP and later signs in with a
// federated provider for the same email keeps a single account.
type IdentityMerger struct {
	Store AccountStore
}

// Resolve applies the merge rules in order:
//  1. an account already linked to the external id is returned unchanged,
//  2. an account with the same email is linked (federated id set, verified),
//  3. otherwise a new verified account is created.
//
// Resolve is idempotent for a given external id.
func (m *IdentityMerger) Resolve(ctx context.Context, assertion FederatedAssertion) (*Account, error) {
	email := NormalizeEmail(assertion.Email)

	acct, err := m.Store.GetByFederatedID(ctx, assertion.ExternalID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	name := assertion.DisplayName
	if name == "" {
		name = DefaultDisplayName
	}

	acct, created, err := m.Store.EnsureAccount(ctx, email, Profile{Name: name})
	if err != nil {
		return nil, err
	}
	if !created {
		log.Printf("Linking federated identity %s to existing account %s", assertion.ExternalID, acct.ID)
	}

	acct.FederatedID = assertion.ExternalID
	acct.Verified = true
	if err := m.Store.Save(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}
