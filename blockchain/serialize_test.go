package blockchain

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Round trips are asserted on the encoded bytes: consensus cares that
// decode(encode(x)) re-encodes to the identical bytes and hashes to the
// identical digest, not about Go-level struct identity.

func TestTransactionRoundTrip(t *testing.T) {
	owner := testKey(t)
	spent := testOutput(owner.PublicKey(), 7)
	tx := NewTransaction(
		[]TransactionInput{signedInput(owner, spent.Hash())},
		[]TransactionOutput{testOutput(owner.PublicKey(), 5)},
	)

	var buf bytes.Buffer
	require.NoError(t, tx.Save(&buf))
	encoded := append([]byte(nil), buf.Bytes()...)

	decoded, err := LoadTransaction(&buf)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), decoded.Hash())

	reencoded, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestBlockRoundTrip(t *testing.T) {
	key := testKey(t)
	block := genesisBlock(easyParams(), key.PublicKey(), time.Now().UTC())

	var buf bytes.Buffer
	require.NoError(t, block.Save(&buf))
	encoded := append([]byte(nil), buf.Bytes()...)

	decoded, err := LoadBlock(&buf)
	require.NoError(t, err)
	assert.Equal(t, block.Header.Hash(), decoded.Header.Hash())
	assert.Equal(t, block.Hash(), decoded.Hash())

	reencoded, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestBlockFileRoundTrip(t *testing.T) {
	key := testKey(t)
	block := genesisBlock(easyParams(), key.PublicKey(), time.Now().UTC())
	path := filepath.Join(t.TempDir(), "block.dat")

	require.NoError(t, block.SaveToFile(path))
	loaded, err := LoadBlockFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), loaded.Hash())

	// The file holds exactly the canonical encoding, no framing.
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	encoded, err := Marshal(&block)
	require.NoError(t, err)
	assert.Equal(t, encoded, onDisk)
}

func TestBlockchainRoundTripOmitsMempool(t *testing.T) {
	params := easyParams()
	miner := testKey(t)
	bc := NewWithParams(params)

	base := time.Now().UTC()
	require.NoError(t, bc.AddBlock(genesisBlock(params, miner.PublicKey(), base)))
	require.NoError(t, bc.AddBlock(nextBlock(t, bc, miner.PublicKey(), base.Add(time.Second))))

	// A pending spend, to prove the mempool does not survive the disk.
	genesisOutput := bc.Blocks()[0].Transactions[0].Outputs[0]
	spend := NewTransaction(
		[]TransactionInput{signedInput(miner, genesisOutput.Hash())},
		[]TransactionOutput{testOutput(miner.PublicKey(), genesisOutput.Value)},
	)
	require.NoError(t, bc.AddToMempool(spend))

	var buf bytes.Buffer
	require.NoError(t, bc.Save(&buf))
	encoded := append([]byte(nil), buf.Bytes()...)

	loaded, err := LoadBlockchainWithParams(bytes.NewReader(encoded), params)
	require.NoError(t, err)
	assert.Equal(t, bc.BlockHeight(), loaded.BlockHeight())
	assert.Equal(t, bc.Target(), loaded.Target())
	assert.Len(t, loaded.Mempool(), 0)
	require.Len(t, loaded.UTXOs(), len(bc.UTXOs()))
	for hash, utxo := range bc.UTXOs() {
		got, ok := loaded.UTXOs()[hash]
		require.True(t, ok)
		assert.Equal(t, utxo.Marked, got.Marked)
		assert.Equal(t, utxo.Output.Hash(), got.Output.Hash())
	}

	// Saving the loaded chain reproduces the bytes.
	var again bytes.Buffer
	require.NoError(t, loaded.Save(&again))
	assert.Equal(t, encoded, again.Bytes())
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := LoadBlock(bytes.NewReader([]byte{0xFF, 0xFE, 0x00}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedInput) || errors.Is(err, ErrTruncated))
}

func TestLoadRejectsTruncated(t *testing.T) {
	key := testKey(t)
	block := genesisBlock(easyParams(), key.PublicKey(), time.Now().UTC())
	encoded, err := Marshal(&block)
	require.NoError(t, err)

	_, err = LoadBlock(bytes.NewReader(encoded[:len(encoded)/2]))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedInput) || errors.Is(err, ErrTruncated))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadBlockFromFile(filepath.Join(t.TempDir(), "missing.dat"))
	assert.True(t, os.IsNotExist(err))
}
