// Package models defines the core domain models for Tally.
//
// # Models
//
//   - Member: a person inside a group (invited or accepted)
//   - Group: a set of members sharing expenses
//   - Expense: a single purchase paid by one member, split evenly
//     across a subset of members
//   - Settlement: a claimed or confirmed direct repayment between
//     two members
//
// Balances are deliberately NOT a model: they are derived from the
// expense and settlement sets on every read (see internal/balance)
// and are never persisted or mutated directly.
//
// # Design Principles
//
//  1. **Decimal money**: all amounts use decimal.Decimal so that many
//     small even splits never accumulate binary rounding noise.
//  2. **Avoid circular references**: relationships use ID strings, not
//     pointers.
//  3. **Validation at the boundary**: Validate methods reject malformed
//     records before anything touches the ledger working set.
package models
