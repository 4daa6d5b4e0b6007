// Package foliate implements a structured-document footnote engine: a
// block/inline document tree with transactional editing, compound footnote
// insertion commands, a consistency pass that keeps inline markers, footnote
// bodies, and the footnote container mutually consistent after every edit,
// and an ephemeral highlight-flash decoration.
package foliate

import "errors"

// Position errors
var (
	// ErrInvalidPosition indicates that a position is out of document bounds
	// or does not address a valid insertion gap.
	ErrInvalidPosition = errors.New("position out of bounds")

	// ErrNodeNotFound indicates that no node starts at the given position.
	ErrNodeNotFound = errors.New("no node at position")
)

// Schema errors
var (
	// ErrSchemaViolation indicates that a node is not allowed at the target
	// location, or is missing a required attribute.
	ErrSchemaViolation = errors.New("schema violation")
)

// Transaction errors
var (
	// ErrTransactionActive indicates that another transaction is still open
	// on the session. Transactions are processed start-to-finish, one at a
	// time.
	ErrTransactionActive = errors.New("transaction already active")

	// ErrTransactionDone indicates that the transaction has already been
	// committed or rolled back.
	ErrTransactionDone = errors.New("transaction already finished")
)

// Serialization errors
var (
	// ErrMalformedMarkup indicates that a document could not be
	// reconstructed from its markup form.
	ErrMalformedMarkup = errors.New("malformed document markup")
)
