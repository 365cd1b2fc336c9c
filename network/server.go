package network

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	death "github.com/vrecan/death/v3"

	"github.com/golang-blockchain/btclib/blockchain"
	"github.com/golang-blockchain/btclib/wallet"
)

// Server exposes one chain over the wire protocol. The chain itself is
// single-threaded, so every handler runs under the server's lock:
// connection handlers never touch the chain concurrently, which is the
// boundary the core requires.
type Server struct {
	mu    sync.Mutex
	chain *blockchain.Blockchain
	store *blockchain.BlockStore
	nodes []string
	log   zerolog.Logger
}

// NewServer wraps a chain for serving. store may be nil; when present every
// accepted block is persisted to it. knownNodes is the static peer list
// reported to DiscoverNodes.
func NewServer(chain *blockchain.Blockchain, store *blockchain.BlockStore, knownNodes []string, logger zerolog.Logger) *Server {
	return &Server{
		chain: chain,
		store: store,
		nodes: knownNodes,
		log:   logger,
	}
}

// Listen accepts connections on addr and serves each until its peer hangs
// up. It blocks until the listener fails.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	s.log.Info().Str("addr", addr).Msg("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	peer := conn.RemoteAddr().String()
	for {
		msg, err := Receive(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn().Str("peer", peer).Err(err).Msg("dropping connection")
			}
			return
		}
		reply, err := s.Handle(msg)
		if err != nil {
			s.log.Warn().Str("peer", peer).Err(err).Msg("request rejected")
			continue
		}
		if reply == nil {
			continue
		}
		if err := Send(conn, reply); err != nil {
			s.log.Warn().Str("peer", peer).Err(err).Msg("reply failed")
			return
		}
	}
}

// Handle services one message against the chain and returns the reply, or
// nil for fire-and-forget variants.
func (s *Server) Handle(msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case *FetchUTXOs:
		var entries []UTXOEntry
		for _, utxo := range s.chain.UTXOs() {
			if utxo.Output.Pubkey.Equal(m.Pubkey) {
				entries = append(entries, UTXOEntry{Output: utxo.Output, Marked: utxo.Marked})
			}
		}
		return &UTXOs{Entries: entries}, nil

	case *SubmitTransaction:
		tx := m.Transaction
		return nil, s.chain.AddToMempool(&tx)

	case *NewTransaction:
		tx := m.Transaction
		return nil, s.chain.AddToMempool(&tx)

	case *FetchTemplate:
		template, err := s.buildTemplate(m.Pubkey)
		if err != nil {
			return nil, err
		}
		return &Template{Block: *template}, nil

	case *ValidateTemplate:
		return &TemplateValidity{Valid: s.templateValid(&m.Block)}, nil

	case *SubmitTemplate:
		return nil, s.acceptBlock(m.Block)

	case *DiscoverNodes:
		return &NodeList{Nodes: s.nodes}, nil

	case *AskDifference:
		diff := int32(s.chain.BlockHeight()) - int32(m.Height)
		return &Difference{Difference: diff}, nil

	case *FetchBlock:
		blocks := s.chain.Blocks()
		if m.Height >= uint64(len(blocks)) {
			return nil, fmt.Errorf("no block at height %d", m.Height)
		}
		return &NewBlock{Block: blocks[m.Height]}, nil

	case *NewBlock:
		return nil, s.acceptBlock(m.Block)

	default:
		return nil, fmt.Errorf("unexpected message %T", msg)
	}
}

func (s *Server) acceptBlock(block blockchain.Block) error {
	if err := s.chain.AddBlock(block); err != nil {
		return err
	}
	s.log.Info().Uint64("height", s.chain.BlockHeight()).Msg("block accepted")
	if s.store != nil {
		if err := s.store.PutBlock(&block); err != nil {
			return err
		}
	}
	return nil
}

// BuildTemplate assembles a candidate block paying the miner key: the
// mempool drained highest-fee-first under a coinbase claiming subsidy plus
// fees, stamped with the current target and a timestamp after the tip.
func (s *Server) BuildTemplate(minerKey wallet.PublicKey) (*blockchain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildTemplate(minerKey)
}

func (s *Server) buildTemplate(minerKey wallet.PublicKey) (*blockchain.Block, error) {
	pending := s.chain.Mempool()

	var fees uint64
	transactions := make([]blockchain.Transaction, 0, len(pending)+1)
	transactions = append(transactions, blockchain.Transaction{}) // coinbase slot
	// The pool is fee-ascending; take from the tail so the best-paying
	// transactions come first.
	for i := len(pending) - 1; i >= 0; i-- {
		fees += pending[i].Fee
		transactions = append(transactions, pending[i].Transaction)
	}

	height := s.chain.BlockHeight()
	reward := s.chain.Params().BlockReward(height) + fees
	uniqueID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	transactions[0] = *blockchain.NewTransaction(nil, []blockchain.TransactionOutput{{
		Value:    reward,
		UniqueID: uniqueID,
		Pubkey:   minerKey,
	}})

	prevHash := blockchain.ZeroHash()
	timestamp := time.Now().UTC()
	if height > 0 {
		tip := &s.chain.Blocks()[height-1].Header
		prevHash = tip.Hash()
		if !timestamp.After(tip.Timestamp) {
			timestamp = tip.Timestamp.Add(time.Millisecond)
		}
	}

	header := blockchain.NewBlockHeader(
		timestamp,
		0,
		prevHash,
		blockchain.CalculateMerkleRoot(transactions),
		s.chain.Target(),
	)
	return blockchain.NewBlock(header, transactions), nil
}

// templateValid reports whether a template still extends the tip and its
// transactions still verify against the current UTXO set. Proof of work is
// not required; that is what the miner is about to provide.
func (s *Server) templateValid(block *blockchain.Block) bool {
	height := s.chain.BlockHeight()
	if height == 0 {
		return block.Header.PrevBlockHash.IsZero()
	}
	tip := &s.chain.Blocks()[height-1].Header
	if block.Header.PrevBlockHash != tip.Hash() {
		return false
	}
	return block.VerifyTransactions(height, s.chain.UTXOs(), s.chain.Params()) == nil
}

// StartServer runs a node until SIGINT or SIGTERM, then closes the store
// cleanly.
func StartServer(addr string, chain *blockchain.Blockchain, store *blockchain.BlockStore, knownNodes []string, logger zerolog.Logger) error {
	server := NewServer(chain, store, knownNodes, logger)

	errs := make(chan error, 1)
	go func() {
		errs <- server.Listen(addr)
	}()

	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		d.WaitForDeathWithFunc(func() {
			logger.Info().Msg("shutting down")
			if store != nil {
				if err := store.Close(); err != nil {
					logger.Error().Err(err).Msg("closing store")
				}
			}
		})
		close(done)
	}()

	select {
	case err := <-errs:
		return err
	case <-done:
		return nil
	}
}
