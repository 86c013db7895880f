//go:build !wasm
// +build !wasm

// Package gae provides Google Cloud Datastore implementations of the
// papertrail store interfaces. It is designed for deployment on Google Cloud
// Platform and supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
// The package uses the following Datastore kinds:
//   - Account: Accounts keyed by normalized email, holding the pending OTP
//     challenge and federated link
//   - Note: Notes keyed by note id
//
// Keying accounts by email lets EnsureAccount and SetPendingOtp run as
// single-key transactions, which is where the per-email atomicity of the OTP
// flow comes from.
//
// # Namespacing
//
// All stores support Datastore namespaces for multi-tenant applications.
// Pass a namespace when creating stores to isolate data between tenants:
//
//	accountStore := gae.NewAccountStore(client, "tenant-123")
//	noteStore := gae.NewNoteStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	accountStore := gae.NewAccountStore(client, "") // default namespace
//	noteStore := gae.NewNoteStore(client, "")
package gae
