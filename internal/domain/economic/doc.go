// Package economic is the client-side domain model for the e-conomic accounting API.
//
// The remote service exposes one named operation per verb per entity type
// (DebtorGetData, CashBookGetAll, CurrentInvoiceBook, ...). This package maps
// those operations onto a small framework:
//
//   - Handle: immutable identity of a remote record
//   - Entity: property bag with partial/persisted lifecycle and CRUD
//   - Proxy: per-type access point for build, find and listing
//   - Action: argument-bound remote operation with list-shaped results
//   - Session: credentials, lazy authenticated connection and proxy cache
//
// Concrete entity types (Debtor, CashBook, CurrentInvoice, ...) declare a
// Schema and an EntityType; everything else is shared.
package economic
