package blockchain

import (
	"github.com/google/uuid"

	"github.com/golang-blockchain/btclib/wallet"
)

// TransactionInput spends a previous output. It names the output by hash
// and carries an ECDSA signature of that hash (its little-endian byte
// ordering) under the output owner's private key. There is no script
// machinery: a single valid signature authorizes the spend.
type TransactionInput struct {
	_ struct{} `cbor:",toarray"`

	PrevTransactionOutputHash Hash
	Signature                 wallet.Signature
}

// TransactionOutput is an indivisible unit of value locked to a public key.
//
// UniqueID exists solely to make otherwise-identical outputs (same value,
// same key) hash differently, so their identities in the UTXO set never
// collide.
type TransactionOutput struct {
	_ struct{} `cbor:",toarray"`

	Value    uint64
	UniqueID uuid.UUID
	Pubkey   wallet.PublicKey
}

// Hash returns the output's identity: SHA-256 of its canonical encoding.
func (o *TransactionOutput) Hash() Hash {
	return HashOf(o)
}

// Transaction is an ordered list of inputs and an ordered list of outputs.
// A coinbase transaction has no inputs and mints the block subsidy plus the
// collected fees.
type Transaction struct {
	_ struct{} `cbor:",toarray"`

	Inputs  []TransactionInput
	Outputs []TransactionOutput
}

// NewTransaction builds a transaction from its parts.
func NewTransaction(inputs []TransactionInput, outputs []TransactionOutput) *Transaction {
	return &Transaction{Inputs: inputs, Outputs: outputs}
}

// Hash returns SHA-256 of the transaction's canonical encoding.
func (t *Transaction) Hash() Hash {
	return HashOf(t)
}
