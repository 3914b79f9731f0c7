package model

// DecodeError records a transaction whose calldata could not be decoded.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	Error       string `json:"error"`
}
