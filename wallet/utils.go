package wallet

import "github.com/mr-tron/base58"

// Base58Encode encodes raw bytes in the Bitcoin base58 alphabet, which
// drops the easily-confused characters 0, O, l and I.
func Base58Encode(input []byte) []byte {
	return []byte(base58.Encode(input))
}

// Base58Decode reverses Base58Encode.
func Base58Decode(input []byte) ([]byte, error) {
	return base58.Decode(string(input))
}

func base58Decode(input string) ([]byte, error) {
	return base58.Decode(input)
}
