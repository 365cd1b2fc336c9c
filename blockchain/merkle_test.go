package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerkleRootSingleTransaction(t *testing.T) {
	key := testKey(t)
	tx := coinbaseTx(key.PublicKey(), 100)

	// With one transaction there is only one layer: the root IS the
	// transaction hash, not a hash of it.
	root := CalculateMerkleRoot([]Transaction{tx})
	assert.Equal(t, tx.Hash(), root)
	assert.NotEqual(t, HashOf(tx.Hash()), root)
}

func TestMerkleRootPair(t *testing.T) {
	key := testKey(t)
	a := coinbaseTx(key.PublicKey(), 1)
	b := coinbaseTx(key.PublicKey(), 2)

	root := CalculateMerkleRoot([]Transaction{a, b})
	assert.Equal(t, HashOf([2]Hash{a.Hash(), b.Hash()}), root)
}

func TestMerkleRootOddDuplicatesTrailing(t *testing.T) {
	key := testKey(t)
	txs := []Transaction{
		coinbaseTx(key.PublicKey(), 1),
		coinbaseTx(key.PublicKey(), 2),
		coinbaseTx(key.PublicKey(), 3),
	}

	h0, h1, h2 := txs[0].Hash(), txs[1].Hash(), txs[2].Hash()
	left := HashOf([2]Hash{h0, h1})
	right := HashOf([2]Hash{h2, h2}) // odd trailing hash pairs with itself
	want := HashOf([2]Hash{left, right})

	assert.Equal(t, want, CalculateMerkleRoot(txs))
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	key := testKey(t)
	a := coinbaseTx(key.PublicKey(), 1)
	b := coinbaseTx(key.PublicKey(), 2)

	forward := CalculateMerkleRoot([]Transaction{a, b})
	backward := CalculateMerkleRoot([]Transaction{b, a})
	require.NotEqual(t, forward, backward)
}

func TestMerkleRootEmptyPanics(t *testing.T) {
	assert.Panics(t, func() { CalculateMerkleRoot(nil) })
}
