//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the papertrail store
// interfaces. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is suitable for production deployments requiring
// relational database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - accounts: Accounts with their pending OTP challenge and federated link
//   - notes: Notes owned by accounts
//
// # Usage
//
// Open the database with TranslateError enabled; the stores rely on GORM's
// dialect error translation to report unique-constraint violations as
// papertrail.ErrDuplicateAccount.
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	accountStore := gormstore.NewAccountStore(db)
//	noteStore := gormstore.NewNoteStore(db)
package gorm
