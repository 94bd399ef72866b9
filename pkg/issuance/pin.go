package issuance

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/contracts"
)

// PINLength is the number of digits in a generated PIN.
const PINLength = 4

var pinRange = big.NewInt(9000)

// GeneratePIN returns a uniformly random PIN in [1000, 9999].
func GeneratePIN() (*contracts.PIN, error) {
	n, err := rand.Int(rand.Reader, pinRange)
	if err != nil {
		return nil, err
	}
	return &contracts.PIN{
		Value:  strconv.FormatInt(n.Int64()+1000, 10),
		Length: PINLength,
	}, nil
}
