package model

import "math/big"

// Transfer é a transferência nativa submetida ao vencedor.
type Transfer struct {
	To            string
	Amount        *big.Int // wei, já líquido da taxa
	GasPrice      *big.Int
	GasLimit      uint64
	CredentialRef string
}

type Confirmation int

const (
	Confirmed Confirmation = iota
	Reverted
)
