// Package store persists saved prescriptions in SQLite.
//
// Prescriptions are owned by an account (the validated email of the session,
// or "default"). Every read and delete is scoped by owner, so one account can
// never see another account's prescriptions through this package.
package store
