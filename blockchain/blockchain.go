package blockchain

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"sort"

	"github.com/holiman/uint256"
)

// UTXO is a live entry of the unspent-output set. Marked means a pending
// mempool transaction has tentatively claimed the output; marked entries
// are still spendable by blocks, the flag only guards the mempool against
// admitting conflicting pending spends.
type UTXO struct {
	Marked bool
	Output TransactionOutput
}

// Blockchain is the unit of shared state: an append-only block list, the
// UTXO set it implies, the current difficulty target, and the mempool of
// pending transactions. It is single-threaded; a concurrent network layer
// must guard it with one exclusive lock at the boundary.
type Blockchain struct {
	params  Params
	utxos   map[Hash]UTXO
	target  U256
	blocks  []Block
	mempool []MempoolEntry
}

// New creates an empty chain with the stock parameters.
func New() *Blockchain {
	return NewWithParams(DefaultParams())
}

// NewWithParams creates an empty chain. The initial target is the easiest
// allowed one.
func NewWithParams(params Params) *Blockchain {
	return &Blockchain{
		params: params,
		utxos:  make(map[Hash]UTXO),
		target: params.MinTarget,
	}
}

// Params returns the chain's consensus parameters.
func (bc *Blockchain) Params() Params {
	return bc.params
}

// Target returns the current difficulty target.
func (bc *Blockchain) Target() U256 {
	return bc.target
}

// UTXOs returns the live unspent-output set keyed by output hash. The map
// is the chain's own; callers must treat it as read-only.
func (bc *Blockchain) UTXOs() map[Hash]UTXO {
	return bc.utxos
}

// Blocks returns the accepted blocks in order. The slice is the chain's
// own; callers must treat it as read-only.
func (bc *Blockchain) Blocks() []Block {
	return bc.blocks
}

// BlockHeight returns the number of accepted blocks.
func (bc *Blockchain) BlockHeight() uint64 {
	return uint64(len(bc.blocks))
}

// AddBlock validates a block against the current tip and, on success,
// appends it, applies its spends and outputs to the UTXO set, prunes its
// transactions from the mempool, and runs the difficulty retarget. A
// rejected block leaves the chain untouched.
//
// The genesis block is exempt from everything except the zero
// previous-hash check: no proof of work, no merkle check, no transaction
// validation. That exemption means the first block inserted is trusted by
// construction.
func (bc *Blockchain) AddBlock(block Block) error {
	if len(bc.blocks) == 0 {
		if !block.Header.PrevBlockHash.IsZero() {
			return fmt.Errorf("%w: genesis must have a zero previous hash", ErrInvalidBlock)
		}
	} else {
		lastHeader := &bc.blocks[len(bc.blocks)-1].Header

		if block.Header.PrevBlockHash != lastHeader.Hash() {
			return fmt.Errorf("%w: previous hash does not match the tip", ErrInvalidBlock)
		}
		if !block.Header.Hash().MatchesTarget(block.Header.Target) {
			return fmt.Errorf("%w: header hash misses its target", ErrInvalidBlock)
		}
		if CalculateMerkleRoot(block.Transactions) != block.Header.MerkleRoot {
			return fmt.Errorf("%w: recomputed root differs from header", ErrInvalidMerkleRoot)
		}
		if !block.Header.Timestamp.After(lastHeader.Timestamp) {
			return fmt.Errorf("%w: timestamp not after the tip", ErrInvalidBlock)
		}
		if err := block.VerifyTransactions(bc.BlockHeight(), bc.utxos, bc.params); err != nil {
			return err
		}
	}

	// Drop the block's transactions from the mempool; their marks vanish
	// with the UTXOs they spent.
	included := make(map[Hash]struct{}, len(block.Transactions))
	for i := range block.Transactions {
		included[block.Transactions[i].Hash()] = struct{}{}
	}
	kept := bc.mempool[:0]
	for _, entry := range bc.mempool {
		if _, ok := included[entry.Transaction.Hash()]; !ok {
			kept = append(kept, entry)
		}
	}
	bc.mempool = kept

	bc.applyToUTXOs(&block)
	bc.blocks = append(bc.blocks, block)
	bc.TryAdjustTarget()
	return nil
}

// applyToUTXOs folds one block into the UTXO set: referenced outputs leave,
// created outputs enter unmarked. Incremental application on every append
// keeps the set exactly equal to what RebuildUTXOs would produce, so the
// mempool stays accurate between blocks.
func (bc *Blockchain) applyToUTXOs(block *Block) {
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		for _, input := range tx.Inputs {
			delete(bc.utxos, input.PrevTransactionOutputHash)
		}
		for j := range tx.Outputs {
			bc.utxos[tx.Outputs[j].Hash()] = UTXO{Output: tx.Outputs[j]}
		}
	}
}

// RebuildUTXOs recomputes the UTXO set from scratch by replaying every
// block from genesis. Used after bulk loads; mempool marks do not survive
// (the mempool is deliberately non-persistent).
func (bc *Blockchain) RebuildUTXOs() {
	bc.utxos = make(map[Hash]UTXO)
	for i := range bc.blocks {
		bc.applyToUTXOs(&bc.blocks[i])
	}
}

// TryAdjustTarget retargets the difficulty on the fixed cadence. It runs
// only when the chain height is a positive multiple of
// DifficultyUpdateInterval.
//
// The new target is target * actual / ideal, where actual is the seconds
// the last window really took and ideal is what it should have taken. The
// product can transiently exceed 256 bits, so it is computed in math/big
// and truncated back. The result is clamped to [target/4, target*4] per
// window and never exceeds the minimum target.
func (bc *Blockchain) TryAdjustTarget() {
	if len(bc.blocks) == 0 {
		return
	}
	interval := bc.params.DifficultyUpdateInterval
	if uint64(len(bc.blocks))%interval != 0 {
		return
	}

	startTime := bc.blocks[uint64(len(bc.blocks))-interval].Header.Timestamp
	endTime := bc.blocks[len(bc.blocks)-1].Header.Timestamp
	actualSeconds := int64(endTime.Sub(startTime).Seconds())
	idealSeconds := int64(bc.params.IdealRetargetTime().Seconds())

	current := bc.target.ToBig()
	newTarget := new(big.Int).Mul(current, big.NewInt(actualSeconds))
	newTarget.Quo(newTarget, big.NewInt(idealSeconds))

	// One window may move the target by at most a factor of four either
	// way.
	lower := new(big.Int).Quo(current, big.NewInt(4))
	upper := new(big.Int).Mul(current, big.NewInt(4))
	if newTarget.Cmp(lower) < 0 {
		newTarget = lower
	} else if newTarget.Cmp(upper) > 0 {
		newTarget = upper
	}

	minTarget := bc.params.MinTarget.ToBig()
	if newTarget.Cmp(minTarget) > 0 {
		newTarget = minTarget
	}

	adjusted, overflow := uint256.FromBig(newTarget)
	if overflow {
		panic("BUG: clamped retarget exceeds 256 bits")
	}
	bc.target = *adjusted
}

// Persisted view of the chain. The UTXO set travels as an array of entries
// sorted by output hash so the encoding is deterministic; the mempool is
// deliberately left behind.
type chainDisk struct {
	_ struct{} `cbor:",toarray"`

	Utxos  []utxoDisk
	Target U256
	Blocks []Block
}

type utxoDisk struct {
	_ struct{} `cbor:",toarray"`

	Hash   Hash
	Marked bool
	Output TransactionOutput
}

// Save writes the chain's canonical encoding (UTXOs, target, blocks) to w.
func (bc *Blockchain) Save(w io.Writer) error {
	entries := make([]utxoDisk, 0, len(bc.utxos))
	for hash, utxo := range bc.utxos {
		entries = append(entries, utxoDisk{Hash: hash, Marked: utxo.Marked, Output: utxo.Output})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Hash.U256(), entries[j].Hash.U256()
		return a.Cmp(&b) < 0
	})
	return saveTo(w, &chainDisk{Utxos: entries, Target: bc.target, Blocks: bc.blocks})
}

// SaveToFile writes the chain to a file, creating or truncating it.
func (bc *Blockchain) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bc.Save(f)
}

// LoadBlockchain reads a canonically-encoded chain from r, restoring it
// with the stock parameters and an empty mempool.
func LoadBlockchain(r io.Reader) (*Blockchain, error) {
	return LoadBlockchainWithParams(r, DefaultParams())
}

// LoadBlockchainWithParams reads a canonically-encoded chain from r with
// explicit parameters.
func LoadBlockchainWithParams(r io.Reader, params Params) (*Blockchain, error) {
	var disk chainDisk
	if err := loadFrom(r, &disk); err != nil {
		return nil, err
	}
	bc := NewWithParams(params)
	bc.target = disk.Target
	bc.blocks = disk.Blocks
	for _, entry := range disk.Utxos {
		bc.utxos[entry.Hash] = UTXO{Marked: entry.Marked, Output: entry.Output}
	}
	return bc, nil
}

// LoadBlockchainFromFile reads a chain from a file.
func LoadBlockchainFromFile(path string) (*Blockchain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadBlockchain(f)
}
