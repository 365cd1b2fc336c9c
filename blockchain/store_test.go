package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBlockStore(dir)
	require.NoError(t, err)
	defer store.Close()

	key := testKey(t)
	block := genesisBlock(easyParams(), key.PublicKey(), time.Now().UTC())
	require.NoError(t, store.PutBlock(&block))

	tip, err := store.LastHash()
	require.NoError(t, err)
	assert.Equal(t, block.Header.Hash(), tip)

	loaded, err := store.Block(tip)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), loaded.Hash())
}

func TestBlockStoreEmpty(t *testing.T) {
	store, err := OpenBlockStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tip, err := store.LastHash()
	require.NoError(t, err)
	assert.True(t, tip.IsZero())

	_, err = store.Block(HashOf("nothing here"))
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockStoreIteratorWalksTipToGenesis(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBlockStore(dir)
	require.NoError(t, err)
	defer store.Close()

	params := easyParams()
	miner := testKey(t)
	bc := NewWithParams(params)
	base := time.Now().UTC()

	require.NoError(t, bc.AddBlock(genesisBlock(params, miner.PublicKey(), base)))
	require.NoError(t, bc.AddBlock(nextBlock(t, bc, miner.PublicKey(), base.Add(time.Second))))
	for i := range bc.Blocks() {
		require.NoError(t, store.PutBlock(&bc.Blocks()[i]))
	}

	it, err := store.Iterator()
	require.NoError(t, err)

	second, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, bc.Blocks()[1].Hash(), second.Hash())

	genesis, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, bc.Blocks()[0].Hash(), genesis.Hash())

	done, err := it.Next()
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestStoreExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, StoreExists(dir))

	store, err := OpenBlockStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.True(t, StoreExists(dir))
}
