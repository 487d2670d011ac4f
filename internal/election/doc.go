// Package election holds the election rules: schedule validation, nominee
// eligibility, the nomination and vote preconditions, the roll updates that
// follow them, and tallying.
//
// Everything here is pure. Loading records, transactions and retries belong to
// the service layer, which runs Check* and Apply* inside one store transaction.
package election
