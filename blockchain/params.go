package blockchain

import "time"

// Params holds the consensus parameters of a chain.
//
// The defaults are demonstration-scale (a halving every 210 blocks, a
// retarget every 50), so everything is tunable at construction instead of
// being baked in as package constants.
type Params struct {
	// InitialReward is the coinbase subsidy of the first halving epoch,
	// denominated in whole coins. Multiplied by 10^8 to get the smallest
	// unit.
	InitialReward uint64

	// HalvingInterval is the number of blocks between subsidy halvings.
	HalvingInterval uint64

	// IdealBlockTime is the block interval the difficulty retarget aims
	// for.
	IdealBlockTime time.Duration

	// DifficultyUpdateInterval is the number of blocks between retargets.
	DifficultyUpdateInterval uint64

	// MaxMempoolTransactionAge is how long a pending transaction may sit
	// in the mempool before CleanupMempool evicts it.
	MaxMempoolTransactionAge time.Duration

	// MinTarget is the easiest allowed target. The chain target never
	// exceeds it.
	MinTarget U256
}

// DefaultParams returns the stock demonstration parameters.
func DefaultParams() Params {
	return Params{
		InitialReward:            50,
		HalvingInterval:          210,
		IdealBlockTime:           10 * time.Second,
		DifficultyUpdateInterval: 50,
		MaxMempoolTransactionAge: 600 * time.Second,
		MinTarget:                defaultMinTarget(),
	}
}

// BlockReward returns the coinbase subsidy, in the smallest unit, for a
// block at the given height. The subsidy halves every HalvingInterval
// blocks and bottoms out at zero.
func (p Params) BlockReward(height uint64) uint64 {
	halvings := height / p.HalvingInterval
	if halvings >= 64 {
		return 0
	}
	return p.InitialReward * 100_000_000 >> halvings
}

// IdealRetargetTime is the wall-clock time one full retarget window should
// take when blocks arrive exactly on schedule.
func (p Params) IdealRetargetTime() time.Duration {
	return p.IdealBlockTime * time.Duration(p.DifficultyUpdateInterval)
}
