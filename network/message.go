package network

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/golang-blockchain/btclib/blockchain"
	"github.com/golang-blockchain/btclib/wallet"
)

// The wire protocol: a tagged union of message variants inside a
// length-prefixed envelope. The payload is the canonical encoding of the
// variant, the frame is a big-endian u64 length followed by the envelope
// bytes. Decode dispatches on the tag.

// Message is one protocol message. The concrete types below are the only
// implementations.
type Message interface {
	kind() messageKind
}

type messageKind uint8

const (
	kindFetchUTXOs messageKind = iota
	kindUTXOs
	kindSubmitTransaction
	kindNewTransaction
	kindFetchTemplate
	kindTemplate
	kindValidateTemplate
	kindTemplateValidity
	kindSubmitTemplate
	kindDiscoverNodes
	kindNodeList
	kindAskDifference
	kindDifference
	kindFetchBlock
	kindNewBlock
)

// FetchUTXOs asks for all UTXOs belonging to a public key.
type FetchUTXOs struct {
	_ struct{} `cbor:",toarray"`

	Pubkey wallet.PublicKey
}

// UTXOEntry is one output with its mempool mark.
type UTXOEntry struct {
	_ struct{} `cbor:",toarray"`

	Output blockchain.TransactionOutput
	Marked bool
}

// UTXOs answers FetchUTXOs.
type UTXOs struct {
	_ struct{} `cbor:",toarray"`

	Entries []UTXOEntry
}

// SubmitTransaction hands a transaction to a node's mempool.
type SubmitTransaction struct {
	_ struct{} `cbor:",toarray"`

	Transaction blockchain.Transaction
}

// NewTransaction broadcasts a transaction to other nodes.
type NewTransaction struct {
	_ struct{} `cbor:",toarray"`

	Transaction blockchain.Transaction
}

// FetchTemplate asks a node for the optimal block template with the
// coinbase paying the given key.
type FetchTemplate struct {
	_ struct{} `cbor:",toarray"`

	Pubkey wallet.PublicKey
}

// Template answers FetchTemplate.
type Template struct {
	_ struct{} `cbor:",toarray"`

	Block blockchain.Block
}

// ValidateTemplate asks whether a template still extends the node's tip,
// so a miner does not grind a block that can no longer be accepted.
type ValidateTemplate struct {
	_ struct{} `cbor:",toarray"`

	Block blockchain.Block
}

// TemplateValidity answers ValidateTemplate.
type TemplateValidity struct {
	_ struct{} `cbor:",toarray"`

	Valid bool
}

// SubmitTemplate submits a mined block.
type SubmitTemplate struct {
	_ struct{} `cbor:",toarray"`

	Block blockchain.Block
}

// DiscoverNodes asks a node for the peers it knows about.
type DiscoverNodes struct {
	_ struct{} `cbor:",toarray"`
}

// NodeList answers DiscoverNodes.
type NodeList struct {
	_ struct{} `cbor:",toarray"`

	Nodes []string
}

// AskDifference asks how far ahead the node's chain is of the given
// height.
type AskDifference struct {
	_ struct{} `cbor:",toarray"`

	Height uint32
}

// Difference answers AskDifference.
type Difference struct {
	_ struct{} `cbor:",toarray"`

	Difference int32
}

// FetchBlock asks for the block at a height.
type FetchBlock struct {
	_ struct{} `cbor:",toarray"`

	Height uint64
}

// NewBlock broadcasts a block to other nodes.
type NewBlock struct {
	_ struct{} `cbor:",toarray"`

	Block blockchain.Block
}

func (FetchUTXOs) kind() messageKind        { return kindFetchUTXOs }
func (UTXOs) kind() messageKind             { return kindUTXOs }
func (SubmitTransaction) kind() messageKind { return kindSubmitTransaction }
func (NewTransaction) kind() messageKind    { return kindNewTransaction }
func (FetchTemplate) kind() messageKind     { return kindFetchTemplate }
func (Template) kind() messageKind          { return kindTemplate }
func (ValidateTemplate) kind() messageKind  { return kindValidateTemplate }
func (TemplateValidity) kind() messageKind  { return kindTemplateValidity }
func (SubmitTemplate) kind() messageKind    { return kindSubmitTemplate }
func (DiscoverNodes) kind() messageKind     { return kindDiscoverNodes }
func (NodeList) kind() messageKind          { return kindNodeList }
func (AskDifference) kind() messageKind     { return kindAskDifference }
func (Difference) kind() messageKind        { return kindDifference }
func (FetchBlock) kind() messageKind        { return kindFetchBlock }
func (NewBlock) kind() messageKind          { return kindNewBlock }

type envelope struct {
	_ struct{} `cbor:",toarray"`

	Kind    messageKind
	Payload cbor.RawMessage
}

// maxMessageSize bounds a frame so a bad peer cannot make the node
// allocate arbitrarily.
const maxMessageSize = 64 << 20

// Encode serializes a message into its envelope bytes.
func Encode(m Message) ([]byte, error) {
	payload, err := blockchain.Marshal(m)
	if err != nil {
		return nil, err
	}
	return blockchain.Marshal(&envelope{Kind: m.kind(), Payload: payload})
}

// Decode parses envelope bytes back into the concrete message.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := blockchain.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var m Message
	switch env.Kind {
	case kindFetchUTXOs:
		m = &FetchUTXOs{}
	case kindUTXOs:
		m = &UTXOs{}
	case kindSubmitTransaction:
		m = &SubmitTransaction{}
	case kindNewTransaction:
		m = &NewTransaction{}
	case kindFetchTemplate:
		m = &FetchTemplate{}
	case kindTemplate:
		m = &Template{}
	case kindValidateTemplate:
		m = &ValidateTemplate{}
	case kindTemplateValidity:
		m = &TemplateValidity{}
	case kindSubmitTemplate:
		m = &SubmitTemplate{}
	case kindDiscoverNodes:
		m = &DiscoverNodes{}
	case kindNodeList:
		m = &NodeList{}
	case kindAskDifference:
		m = &AskDifference{}
	case kindDifference:
		m = &Difference{}
	case kindFetchBlock:
		m = &FetchBlock{}
	case kindNewBlock:
		m = &NewBlock{}
	default:
		return nil, fmt.Errorf("%w: unknown message kind %d", blockchain.ErrMalformedInput, env.Kind)
	}
	if err := blockchain.Unmarshal(env.Payload, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Send writes one length-prefixed message frame to w.
func Send(w io.Writer, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Receive reads one length-prefixed message frame from r. io.EOF between
// frames is passed through so connection loops can end cleanly.
func Receive(r io.Reader) (Message, error) {
	var length [8]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: reading frame length: %v", blockchain.ErrTruncated, err)
	}
	size := binary.BigEndian.Uint64(length[:])
	if size > maxMessageSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit", blockchain.ErrMalformedInput, size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: reading frame body: %v", blockchain.ErrTruncated, err)
	}
	return Decode(data)
}
