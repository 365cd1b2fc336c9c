package blockchain

import "errors"

// The consensus error taxonomy. Validators and chain operations return
// these by value (wrapped with context); nothing is caught and swallowed
// internally. Match with errors.Is.
var (
	// ErrInvalidTransaction covers every semantic failure in a
	// transaction: a missing referenced UTXO, a double spend within a
	// transaction or block, a bad signature, a conservation-of-value
	// failure, or a malformed coinbase.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidBlock covers structural block failures: a missing
	// predecessor, unsatisfied proof of work, or a non-monotonic
	// timestamp.
	ErrInvalidBlock = errors.New("invalid block")

	// ErrInvalidMerkleRoot means the header's merkle root does not match
	// the root recomputed over the block's transactions. Kept distinct
	// from ErrInvalidBlock: it separates a malformed header from a
	// malformed body.
	ErrInvalidMerkleRoot = errors.New("invalid merkle root")

	// ErrMalformedInput is a canonical-codec decode failure.
	ErrMalformedInput = errors.New("malformed input")

	// ErrTruncated is a short read while decoding.
	ErrTruncated = errors.New("truncated input")
)
