package blockchain

import (
	"fmt"
	"sort"
	"time"
)

// MempoolEntry is one pending transaction, stamped with its admission time
// and the fee computed against the UTXO set at admission. The pool is kept
// sorted by fee ascending, so miners drain from the tail.
type MempoolEntry struct {
	AddedAt     time.Time
	Fee         uint64
	Transaction Transaction
}

// Mempool returns the pending transactions, lowest fee first. The slice is
// the chain's own backing array.
func (bc *Blockchain) Mempool() []MempoolEntry {
	return bc.mempool
}

// AddToMempool admits a pending transaction.
//
// Every input must name a live UTXO and no input may repeat within the
// transaction; the transaction must not create more value than it
// consumes. All checks run before any state changes, so a rejection leaves
// the mempool and the UTXO marks exactly as they were.
//
// If an input's UTXO is already marked, an earlier pending transaction
// claims it: that transaction is evicted and every UTXO it had marked is
// released. Newest submission wins the conflict regardless of fee. The
// admitted transaction then marks all of its inputs, and the pool is
// re-sorted by fee.
func (bc *Blockchain) AddToMempool(transaction *Transaction) error {
	known := make(map[Hash]struct{}, len(transaction.Inputs))
	for _, input := range transaction.Inputs {
		if _, ok := bc.utxos[input.PrevTransactionOutputHash]; !ok {
			return fmt.Errorf("%w: input references unknown output %s",
				ErrInvalidTransaction, input.PrevTransactionOutputHash)
		}
		if _, dup := known[input.PrevTransactionOutputHash]; dup {
			return fmt.Errorf("%w: duplicate input %s",
				ErrInvalidTransaction, input.PrevTransactionOutputHash)
		}
		known[input.PrevTransactionOutputHash] = struct{}{}
	}

	var inputValue, outputValue uint64
	for _, input := range transaction.Inputs {
		inputValue += bc.utxos[input.PrevTransactionOutputHash].Output.Value
	}
	for _, output := range transaction.Outputs {
		outputValue += output.Value
	}
	if inputValue < outputValue {
		return fmt.Errorf("%w: outputs exceed inputs", ErrInvalidTransaction)
	}

	// Validation passed; mutations start here.
	for _, input := range transaction.Inputs {
		if utxo, ok := bc.utxos[input.PrevTransactionOutputHash]; ok && utxo.Marked {
			bc.evictConflicting(input.PrevTransactionOutputHash)
		}
	}

	for _, input := range transaction.Inputs {
		utxo := bc.utxos[input.PrevTransactionOutputHash]
		utxo.Marked = true
		bc.utxos[input.PrevTransactionOutputHash] = utxo
	}

	bc.mempool = append(bc.mempool, MempoolEntry{
		AddedAt:     time.Now().UTC(),
		Fee:         inputValue - outputValue,
		Transaction: *transaction,
	})
	bc.sortMempool()
	return nil
}

// evictConflicting removes the pending transaction that spends the
// contested UTXO and releases every mark it held. If no spender is in the
// pool (state drift), just the contested entry is unmarked.
func (bc *Blockchain) evictConflicting(contested Hash) {
	for i, entry := range bc.mempool {
		for _, input := range entry.Transaction.Inputs {
			if input.PrevTransactionOutputHash == contested {
				bc.unmarkInputs(&entry.Transaction)
				bc.mempool = append(bc.mempool[:i], bc.mempool[i+1:]...)
				return
			}
		}
	}
	bc.unmark(contested)
}

func (bc *Blockchain) unmarkInputs(transaction *Transaction) {
	for _, input := range transaction.Inputs {
		bc.unmark(input.PrevTransactionOutputHash)
	}
}

func (bc *Blockchain) unmark(hash Hash) {
	if utxo, ok := bc.utxos[hash]; ok {
		utxo.Marked = false
		bc.utxos[hash] = utxo
	}
}

func (bc *Blockchain) sortMempool() {
	// Stable so equal-fee transactions keep their arrival order.
	sort.SliceStable(bc.mempool, func(i, j int) bool {
		return bc.mempool[i].Fee < bc.mempool[j].Fee
	})
}

// CleanupMempool evicts every pending transaction older than
// MaxMempoolTransactionAge and releases the UTXO marks it held.
func (bc *Blockchain) CleanupMempool() {
	now := time.Now().UTC()
	var toUnmark []Hash
	kept := bc.mempool[:0]
	for _, entry := range bc.mempool {
		if now.Sub(entry.AddedAt) > bc.params.MaxMempoolTransactionAge {
			for _, input := range entry.Transaction.Inputs {
				toUnmark = append(toUnmark, input.PrevTransactionOutputHash)
			}
			continue
		}
		kept = append(kept, entry)
	}
	bc.mempool = kept

	for _, hash := range toUnmark {
		bc.unmark(hash)
	}
}
