package wallet

import (
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

const walletFile = "./tmp/wallets_%s.data"

// Wallets is the file-backed keyring: every wallet this node controls,
// keyed by address. It persists as CBOR with the library's default
// encoding options, not the deterministic mode used for consensus records.
type Wallets struct {
	Wallets map[string]*Wallet
}

// CreateWallets loads the keyring for the given node id, starting empty if
// no file exists yet.
func CreateWallets(nodeID string) (*Wallets, error) {
	wallets := Wallets{Wallets: make(map[string]*Wallet)}
	err := wallets.LoadFile(nodeID)
	if os.IsNotExist(err) {
		return &wallets, nil
	}
	return &wallets, err
}

// AddWallet generates a fresh wallet and returns its address.
func (ws *Wallets) AddWallet() (string, error) {
	wallet, err := MakeWallet()
	if err != nil {
		return "", err
	}
	address := wallet.Address()
	ws.Wallets[address] = wallet
	return address, nil
}

// GetAllAddresses lists every address in the keyring.
func (ws *Wallets) GetAllAddresses() []string {
	var addresses []string
	for address := range ws.Wallets {
		addresses = append(addresses, address)
	}
	return addresses
}

// GetWallet looks a wallet up by address.
func (ws *Wallets) GetWallet(address string) (*Wallet, error) {
	wallet, ok := ws.Wallets[address]
	if !ok {
		return nil, fmt.Errorf("no wallet for address %s", address)
	}
	return wallet, nil
}

// LoadFile reads the keyring file for the given node id.
func (ws *Wallets) LoadFile(nodeID string) error {
	path := fmt.Sprintf(walletFile, nodeID)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return cbor.Unmarshal(data, ws)
}

// SaveFile writes the keyring file for the given node id.
func (ws *Wallets) SaveFile(nodeID string) error {
	path := fmt.Sprintf(walletFile, nodeID)
	data, err := cbor.Marshal(ws)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
