package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/golang-blockchain/btclib/blockchain"
	"github.com/golang-blockchain/btclib/network"
	"github.com/golang-blockchain/btclib/wallet"
)

// CommandLine dispatches the node's subcommands. The four tool commands
// (blockgen, txgen, txprint, mine) operate on single-record files through
// the canonical codec; the rest manage wallets and run the node.
type CommandLine struct{}

func (cli *CommandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println(" blockgen <file> - write a genesis-shaped block paying a fresh keypair")
	fmt.Println(" txgen <file> - write one standalone coinbase-shaped transaction")
	fmt.Println(" txprint <file> - decode and pretty-print a transaction")
	fmt.Println(" mine <block_file> <steps> - mine a block file in <steps>-sized rounds")
	fmt.Println(" createwallet - generate a new keypair into the wallet file")
	fmt.Println(" listaddresses - list the addresses in the wallet file")
	fmt.Println(" startnode -addr <addr> - serve the wire protocol on addr")
}

func (cli *CommandLine) validateArgs() {
	if len(os.Args) < 2 {
		cli.printUsage()
		os.Exit(1)
	}
}

func die(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// blockGen writes a genesis-shaped block: one coinbase paying the full
// initial reward to a fresh key, zero previous hash, the easiest target.
func (cli *CommandLine) blockGen(path string) {
	params := blockchain.DefaultParams()
	privKey, err := wallet.NewPrivateKey()
	if err != nil {
		die(err)
	}

	transactions := []blockchain.Transaction{
		*blockchain.NewTransaction(nil, []blockchain.TransactionOutput{{
			Value:    params.BlockReward(0),
			UniqueID: uuid.New(),
			Pubkey:   privKey.PublicKey(),
		}}),
	}
	header := blockchain.NewBlockHeader(
		time.Now().UTC(),
		0,
		blockchain.ZeroHash(),
		blockchain.CalculateMerkleRoot(transactions),
		params.MinTarget,
	)
	block := blockchain.NewBlock(header, transactions)
	if err := block.SaveToFile(path); err != nil {
		die(err)
	}
	fmt.Printf("Wrote block %s\n", block.Header.Hash())
}

// txGen writes one standalone transaction with the same shape as the
// genesis coinbase.
func (cli *CommandLine) txGen(path string) {
	params := blockchain.DefaultParams()
	privKey, err := wallet.NewPrivateKey()
	if err != nil {
		die(err)
	}
	tx := blockchain.NewTransaction(nil, []blockchain.TransactionOutput{{
		Value:    params.BlockReward(0),
		UniqueID: uuid.New(),
		Pubkey:   privKey.PublicKey(),
	}})
	if err := tx.SaveToFile(path); err != nil {
		die(err)
	}
	fmt.Printf("Wrote transaction %s\n", tx.Hash())
}

func (cli *CommandLine) txPrint(path string) {
	tx, err := blockchain.LoadTransactionFromFile(path)
	if err != nil {
		die(err)
	}
	fmt.Printf("Transaction %s\n", tx.Hash())
	for i, input := range tx.Inputs {
		fmt.Printf("  Input %d spends %s\n", i, input.PrevTransactionOutputHash)
	}
	for i, output := range tx.Outputs {
		fmt.Printf("  Output %d: value %d id %s pubkey %x\n",
			i, output.Value, output.UniqueID, output.Pubkey.Serialize())
	}
}

// mine loads a block and grinds its header in rounds of the given step
// count until the target is met, then prints the before and after.
func (cli *CommandLine) mine(path string, steps uint) {
	original, err := blockchain.LoadBlockFromFile(path)
	if err != nil {
		die(err)
	}
	block := *original

	for !block.Header.Mine(steps) {
		fmt.Println("mining...")
	}

	fmt.Printf("Original hash: %s\n", original.Header.Hash())
	fmt.Printf("Mined hash:    %s (nonce %d)\n", block.Header.Hash(), block.Header.Nonce)
	if err := block.SaveToFile(path); err != nil {
		die(err)
	}
}

func (cli *CommandLine) createWallet(nodeID string) {
	wallets, err := wallet.CreateWallets(nodeID)
	if err != nil {
		die(err)
	}
	address, err := wallets.AddWallet()
	if err != nil {
		die(err)
	}
	if err := wallets.SaveFile(nodeID); err != nil {
		die(err)
	}
	fmt.Printf("New address: %s\n", address)
}

func (cli *CommandLine) listAddresses(nodeID string) {
	wallets, err := wallet.CreateWallets(nodeID)
	if err != nil {
		die(err)
	}
	for _, address := range wallets.GetAllAddresses() {
		fmt.Println(address)
	}
}

func (cli *CommandLine) startNode(nodeID, addr string, peers []string) {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	chain := blockchain.New()
	store, err := blockchain.OpenBlockStore(fmt.Sprintf("./tmp/blocks_%s", nodeID))
	if err != nil {
		die(err)
	}
	if err := network.StartServer(addr, chain, store, peers, logger); err != nil {
		die(err)
	}
}

// Run parses os.Args and dispatches. Exit code 1 on argument, parse, or IO
// failure.
func (cli *CommandLine) Run() {
	cli.validateArgs()

	nodeID := os.Getenv("NODE_ID")
	if nodeID == "" {
		nodeID = "3000"
	}

	switch os.Args[1] {
	case "blockgen":
		if len(os.Args) != 3 {
			cli.printUsage()
			os.Exit(1)
		}
		cli.blockGen(os.Args[2])

	case "txgen":
		if len(os.Args) != 3 {
			cli.printUsage()
			os.Exit(1)
		}
		cli.txGen(os.Args[2])

	case "txprint":
		if len(os.Args) != 3 {
			cli.printUsage()
			os.Exit(1)
		}
		cli.txPrint(os.Args[2])

	case "mine":
		if len(os.Args) != 4 {
			cli.printUsage()
			os.Exit(1)
		}
		steps, err := strconv.ParseUint(os.Args[3], 10, 32)
		if err != nil || steps == 0 {
			fmt.Fprintln(os.Stderr, "<steps> should be a positive integer")
			os.Exit(1)
		}
		cli.mine(os.Args[2], uint(steps))

	case "createwallet":
		cli.createWallet(nodeID)

	case "listaddresses":
		cli.listAddresses(nodeID)

	case "startnode":
		startNodeCmd := flag.NewFlagSet("startnode", flag.ContinueOnError)
		addr := startNodeCmd.String("addr", "localhost:3000", "address to listen on")
		peers := startNodeCmd.String("peers", "", "comma-separated known peers")
		if err := startNodeCmd.Parse(os.Args[2:]); err != nil {
			os.Exit(1)
		}
		var peerList []string
		if *peers != "" {
			peerList = strings.Split(*peers, ",")
		}
		cli.startNode(nodeID, *addr, peerList)

	default:
		cli.printUsage()
		os.Exit(1)
	}
}
