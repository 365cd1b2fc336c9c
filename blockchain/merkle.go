package blockchain

// MerkleRoot is the single hash summarizing a block's transaction list via
// a binary hash tree.
type MerkleRoot = Hash

// CalculateMerkleRoot computes the binary merkle root over the transactions
// in input order.
//
// Layer 0 is the per-transaction hashes. Each higher layer hashes
// consecutive pairs; an odd trailing hash is paired with itself
// (Bitcoin-style duplication). A combine step hashes the canonical encoding
// of the two-element hash sequence. With a single transaction there is only
// one layer, so the root equals that transaction's hash.
//
// The root of an empty transaction list is undefined; callers must pass at
// least one transaction, and blocks always carry a coinbase.
func CalculateMerkleRoot(transactions []Transaction) MerkleRoot {
	if len(transactions) == 0 {
		panic("BUG: merkle root of an empty transaction list")
	}

	layer := make([]Hash, 0, len(transactions))
	for i := range transactions {
		layer = append(layer, transactions[i].Hash())
	}

	for len(layer) > 1 {
		next := make([]Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			left := layer[i]
			right := left // odd trailing hash duplicates itself
			if i+1 < len(layer) {
				right = layer[i+1]
			}
			next = append(next, HashOf([2]Hash{left, right}))
		}
		layer = next
	}
	return layer[0]
}
