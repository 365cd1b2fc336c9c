package blockchain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/golang-blockchain/btclib/wallet"
)

// Test fixtures shared across the package tests. Consensus parameters are
// shrunk and the minimum target raised to the full 256-bit range so blocks
// need no grinding; the retarget tests bring their own timestamps.

func easyParams() Params {
	var max [32]byte
	for i := range max {
		max[i] = 0xFF
	}
	return Params{
		InitialReward:            50,
		HalvingInterval:          210,
		IdealBlockTime:           10 * time.Second,
		DifficultyUpdateInterval: 4,
		MaxMempoolTransactionAge: 600 * time.Second,
		MinTarget:                U256FromBytes(max[:]),
	}
}

func testKey(t *testing.T) wallet.PrivateKey {
	t.Helper()
	key, err := wallet.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func testOutput(key wallet.PublicKey, value uint64) TransactionOutput {
	return TransactionOutput{
		Value:    value,
		UniqueID: uuid.New(),
		Pubkey:   key,
	}
}

func coinbaseTx(key wallet.PublicKey, value uint64) Transaction {
	return *NewTransaction(nil, []TransactionOutput{testOutput(key, value)})
}

// signedInput builds an input spending the given output hash, signed with
// the owner key over the hash's little-endian bytes.
func signedInput(owner wallet.PrivateKey, outputHash Hash) TransactionInput {
	msg := outputHash.Bytes()
	return TransactionInput{
		PrevTransactionOutputHash: outputHash,
		Signature:                 owner.Sign(msg[:]),
	}
}

func genesisBlock(params Params, key wallet.PublicKey, at time.Time) Block {
	transactions := []Transaction{coinbaseTx(key, params.BlockReward(0))}
	header := NewBlockHeader(at, 0, ZeroHash(), CalculateMerkleRoot(transactions), params.MinTarget)
	return *NewBlock(header, transactions)
}

// nextBlock assembles a valid successor of the chain tip: a coinbase to
// minerKey claiming exactly subsidy plus the fees of extra, followed by the
// extra transactions, timestamped after the tip. With easyParams the
// unmined header already satisfies the target.
func nextBlock(t *testing.T, bc *Blockchain, minerKey wallet.PublicKey, at time.Time, extra ...Transaction) Block {
	t.Helper()

	var fees uint64
	for _, tx := range extra {
		var in, out uint64
		for _, input := range tx.Inputs {
			utxo, ok := bc.UTXOs()[input.PrevTransactionOutputHash]
			require.True(t, ok, "extra transaction spends unknown output")
			in += utxo.Output.Value
		}
		for _, output := range tx.Outputs {
			out += output.Value
		}
		fees += in - out
	}

	reward := bc.Params().BlockReward(bc.BlockHeight()) + fees
	transactions := append([]Transaction{coinbaseTx(minerKey, reward)}, extra...)

	tip := bc.Blocks()[bc.BlockHeight()-1].Header
	header := NewBlockHeader(
		at,
		0,
		tip.Hash(),
		CalculateMerkleRoot(transactions),
		bc.Target(),
	)
	return *NewBlock(header, transactions)
}
