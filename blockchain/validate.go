package blockchain

import "fmt"

// Stateless consensus checks on a block. The validator takes the UTXO view
// and the height the block would occupy; it mutates nothing and allocates
// only scratch maps that die at return.

// VerifyTransactions runs the full block-level transaction check:
//
//  1. The transaction list must be nonempty.
//  2. The coinbase must have the right shape and claim exactly
//     subsidy + fees (VerifyCoinbase).
//  3. Every non-coinbase input must name a live UTXO, must not be spent
//     twice anywhere in the block, and must carry a valid signature under
//     the referenced output's key. Each transaction must not create more
//     value than it consumes; the shortfall is the miner's fee.
func (b *Block) VerifyTransactions(predictedHeight uint64, utxos map[Hash]UTXO, params Params) error {
	if len(b.Transactions) == 0 {
		return fmt.Errorf("%w: block has no transactions", ErrInvalidTransaction)
	}

	if err := b.VerifyCoinbase(predictedHeight, utxos, params); err != nil {
		return err
	}

	// Spent-output tracking spans the whole block, not one transaction:
	// two transactions in the same block must not consume the same UTXO.
	spent := make(map[Hash]struct{})
	for _, tx := range b.Transactions[1:] {
		var inputValue, outputValue uint64
		for _, input := range tx.Inputs {
			prev, ok := utxos[input.PrevTransactionOutputHash]
			if !ok {
				return fmt.Errorf("%w: input references unknown output %s",
					ErrInvalidTransaction, input.PrevTransactionOutputHash)
			}
			if _, dup := spent[input.PrevTransactionOutputHash]; dup {
				return fmt.Errorf("%w: output %s spent twice in block",
					ErrInvalidTransaction, input.PrevTransactionOutputHash)
			}
			outputHashBytes := input.PrevTransactionOutputHash.Bytes()
			if !input.Signature.Verify(outputHashBytes[:], prev.Output.Pubkey) {
				return fmt.Errorf("%w: bad signature on input spending %s",
					ErrInvalidTransaction, input.PrevTransactionOutputHash)
			}
			inputValue += prev.Output.Value
			spent[input.PrevTransactionOutputHash] = struct{}{}
		}
		for _, output := range tx.Outputs {
			outputValue += output.Value
		}
		// Outputs above inputs would mint value out of thin air. Outputs
		// below inputs are fine; the difference is the miner's fee.
		if inputValue < outputValue {
			return fmt.Errorf("%w: outputs exceed inputs", ErrInvalidTransaction)
		}
	}
	return nil
}

// VerifyCoinbase checks the first transaction of the block: no inputs, at
// least one output, and output values summing to exactly the block subsidy
// at predictedHeight plus the miner fees collected from the rest of the
// block. A miner may neither under- nor over-claim.
func (b *Block) VerifyCoinbase(predictedHeight uint64, utxos map[Hash]UTXO, params Params) error {
	coinbase := &b.Transactions[0]
	if len(coinbase.Inputs) != 0 {
		return fmt.Errorf("%w: coinbase must have no inputs", ErrInvalidTransaction)
	}
	if len(coinbase.Outputs) == 0 {
		return fmt.Errorf("%w: coinbase must have outputs", ErrInvalidTransaction)
	}

	minerFees, err := b.CalculateMinerFees(utxos)
	if err != nil {
		return err
	}
	blockReward := params.BlockReward(predictedHeight)

	var totalCoinbaseOutputs uint64
	for _, output := range coinbase.Outputs {
		totalCoinbaseOutputs += output.Value
	}
	if totalCoinbaseOutputs != blockReward+minerFees {
		return fmt.Errorf("%w: coinbase claims %d, expected %d",
			ErrInvalidTransaction, totalCoinbaseOutputs, blockReward+minerFees)
	}
	return nil
}

// CalculateMinerFees sums the fees of the non-coinbase transactions: total
// input value minus total output value, resolving each input against the
// UTXO view. Duplicate input references across the block and duplicate
// output hashes are both rejected.
func (b *Block) CalculateMinerFees(utxos map[Hash]UTXO) (uint64, error) {
	inputs := make(map[Hash]TransactionOutput)
	outputs := make(map[Hash]TransactionOutput)

	for _, tx := range b.Transactions[1:] {
		for _, input := range tx.Inputs {
			// Inputs carry no value of their own; resolve against the
			// outputs they spend.
			prev, ok := utxos[input.PrevTransactionOutputHash]
			if !ok {
				return 0, fmt.Errorf("%w: input references unknown output %s",
					ErrInvalidTransaction, input.PrevTransactionOutputHash)
			}
			if _, dup := inputs[input.PrevTransactionOutputHash]; dup {
				return 0, fmt.Errorf("%w: output %s spent twice in block",
					ErrInvalidTransaction, input.PrevTransactionOutputHash)
			}
			inputs[input.PrevTransactionOutputHash] = prev.Output
		}
		for i := range tx.Outputs {
			hash := tx.Outputs[i].Hash()
			if _, dup := outputs[hash]; dup {
				return 0, fmt.Errorf("%w: duplicate output hash %s",
					ErrInvalidTransaction, hash)
			}
			outputs[hash] = tx.Outputs[i]
		}
	}

	var inputValue, outputValue uint64
	for _, output := range inputs {
		inputValue += output.Value
	}
	for _, output := range outputs {
		outputValue += output.Value
	}
	if outputValue > inputValue {
		return 0, fmt.Errorf("%w: outputs exceed inputs", ErrInvalidTransaction)
	}
	return inputValue - outputValue, nil
}
