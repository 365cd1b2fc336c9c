package blockchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BlockStore persists accepted blocks in badger, keyed by header hash, with
// a "lh" pointer at the tip. The node daemon writes every block it accepts
// so a restart can replay the chain tip-to-genesis through Iterator.
var lastHashKey = []byte("lh")

// ErrBlockNotFound is returned when a requested block is not in the store.
var ErrBlockNotFound = errors.New("block not found")

type BlockStore struct {
	db *badger.DB
}

// StoreExists reports whether a block store already lives at path.
func StoreExists(path string) bool {
	if _, err := os.Stat(filepath.Join(path, "MANIFEST")); os.IsNotExist(err) {
		return false
	}
	return true
}

// OpenBlockStore opens (or creates) the store at path.
func OpenBlockStore(path string) (*BlockStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := openDB(path, opts)
	if err != nil {
		return nil, err
	}
	return &BlockStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BlockStore) Close() error {
	return s.db.Close()
}

// PutBlock stores the block under its header hash and advances the tip
// pointer to it.
func (s *BlockStore) PutBlock(block *Block) error {
	encoded, err := Marshal(block)
	if err != nil {
		return err
	}
	hash := block.Header.Hash().Bytes()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(hash[:], encoded); err != nil {
			return err
		}
		return txn.Set(lastHashKey, hash[:])
	})
}

// Block fetches a block by header hash.
func (s *BlockStore) Block(hash Hash) (*Block, error) {
	var encoded []byte
	key := hash.Bytes()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key[:])
		if err != nil {
			return err
		}
		encoded, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, hash)
	}
	if err != nil {
		return nil, err
	}
	var block Block
	if err := Unmarshal(encoded, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// LastHash returns the header hash of the stored tip, or a zero hash for an
// empty store.
func (s *BlockStore) LastHash() (Hash, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastHashKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ZeroHash(), nil
	}
	if err != nil {
		return ZeroHash(), err
	}
	if len(raw) != 32 {
		return ZeroHash(), fmt.Errorf("%w: tip pointer is %d bytes", ErrMalformedInput, len(raw))
	}
	// Keys are the little-endian Bytes() form; restore the numeric value.
	var le [32]byte
	copy(le[:], raw)
	var be [32]byte
	for i := range le {
		be[i] = le[31-i]
	}
	return HashFromBytes(be), nil
}

// StoreIterator walks the stored chain backwards, tip to genesis, following
// each header's previous-block hash.
type StoreIterator struct {
	store   *BlockStore
	current Hash
}

// Iterator starts a walk at the stored tip.
func (s *BlockStore) Iterator() (*StoreIterator, error) {
	tip, err := s.LastHash()
	if err != nil {
		return nil, err
	}
	return &StoreIterator{store: s, current: tip}, nil
}

// Next returns the block at the cursor and steps to its predecessor. After
// the genesis block it returns (nil, nil).
func (it *StoreIterator) Next() (*Block, error) {
	if it.current.IsZero() {
		return nil, nil
	}
	block, err := it.store.Block(it.current)
	if err != nil {
		return nil, err
	}
	it.current = block.Header.PrevBlockHash
	return block, nil
}

// openDB opens badger. If a stale LOCK file from a crashed process is in
// the way, it removes the file and retries once with the lock guard
// bypassed.
func openDB(dir string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if strings.Contains(err.Error(), "LOCK") {
		if db, retryErr := retry(dir, opts); retryErr == nil {
			return db, nil
		}
		return nil, fmt.Errorf("could not unlock database %q: %w", dir, err)
	}
	return nil, err
}

func retry(dir string, originalOpts badger.Options) (*badger.DB, error) {
	lockPath := filepath.Join(dir, "LOCK")
	if err := os.Remove(lockPath); err != nil {
		return nil, fmt.Errorf("removing %q: %w", lockPath, err)
	}
	retryOpts := originalOpts
	retryOpts.BypassLockGuard = true
	return badger.Open(retryOpts)
}
