package model

const (
	TxTypeInvoke         = "INVOKE"
	TxTypeInvokeFunction = "INVOKE_FUNCTION"
)

// RawTransaction is a transaction as returned by starknet_getBlockWithTxs.
type RawTransaction struct {
	Type            string   `json:"type"`
	TransactionHash string   `json:"transaction_hash"`
	Version         string   `json:"version,omitempty"`
	SenderAddress   string   `json:"sender_address,omitempty"`
	Calldata        []string `json:"calldata"`
}

// IsInvoke reports whether the transaction carries execute calldata.
func (tx RawTransaction) IsInvoke() bool {
	return tx.Type == TxTypeInvoke || tx.Type == TxTypeInvokeFunction
}

// Block is a block with full transactions.
type Block struct {
	Status       string           `json:"status"`
	BlockHash    string           `json:"block_hash"`
	ParentHash   string           `json:"parent_hash"`
	BlockNumber  uint64           `json:"block_number"`
	NewRoot      string           `json:"new_root"`
	Timestamp    uint64           `json:"timestamp"`
	Sequencer    string           `json:"sequencer_address"`
	Transactions []RawTransaction `json:"transactions"`
}
