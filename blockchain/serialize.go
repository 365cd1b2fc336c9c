package blockchain

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// The canonical codec: deterministic CBOR. Records are encoded as fixed
// arrays in declared field order, integers take their smallest exact form,
// and timestamps are Unix seconds as a floating-point value rounded to
// microsecond precision, so that
// hash(x) = SHA256(encode(x)) is reproducible across implementations.
// Byte-exact round trips are a consensus requirement, not a convenience.

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeUnixMicro
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("BUG: building canonical encoder: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("BUG: building canonical decoder: %v", err))
	}
	decMode = dm
}

// Marshal encodes a value with the canonical codec.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes canonical bytes into v. Parse failures map to
// ErrMalformedInput and short input to ErrTruncated.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return nil
}

func saveTo(w io.Writer, v any) error {
	encoded, err := Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

func loadFrom(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return Unmarshal(data, v)
}

func saveToFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveTo(f, v)
}

func loadFromFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return loadFrom(f, v)
}

// Save writes the transaction's canonical encoding to w.
func (t *Transaction) Save(w io.Writer) error {
	return saveTo(w, t)
}

// SaveToFile writes the transaction to a file, creating or truncating it.
func (t *Transaction) SaveToFile(path string) error {
	return saveToFile(path, t)
}

// LoadTransaction reads one canonically-encoded transaction from r.
func LoadTransaction(r io.Reader) (*Transaction, error) {
	var t Transaction
	if err := loadFrom(r, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTransactionFromFile reads one transaction from a file.
func LoadTransactionFromFile(path string) (*Transaction, error) {
	var t Transaction
	if err := loadFromFile(path, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Save writes the block's canonical encoding to w.
func (b *Block) Save(w io.Writer) error {
	return saveTo(w, b)
}

// SaveToFile writes the block to a file, creating or truncating it.
func (b *Block) SaveToFile(path string) error {
	return saveToFile(path, b)
}

// LoadBlock reads one canonically-encoded block from r.
func LoadBlock(r io.Reader) (*Block, error) {
	var b Block
	if err := loadFrom(r, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadBlockFromFile reads one block from a file.
func LoadBlockFromFile(path string) (*Block, error) {
	var b Block
	if err := loadFromFile(path, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
