package model

import "buyAlerts/internal/felt"

// Call is one contract invocation reconstructed from execute calldata.
type Call struct {
	ContractAddress felt.Felt `json:"contract_address"`
	Entrypoint      felt.Felt `json:"entrypoint"`
	Calldata        []string  `json:"calldata"`
}

// ParsedTransaction is an invoke transaction with its decoded calls.
type ParsedTransaction struct {
	Hash  string `json:"hash"`
	Calls []Call `json:"calls"`
}
