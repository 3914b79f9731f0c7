package calldata

import "buyAlerts/internal/model"

// TxError ties a decode failure to its transaction.
type TxError struct {
	Hash string
	Err  error
}

func (e TxError) Error() string {
	return e.Hash + ": " + e.Err.Error()
}

func (e TxError) Unwrap() error {
	return e.Err
}

// ParseTransactions decodes every invoke transaction of a block. Other
// transaction types are skipped. A transaction that fails to decode is
// reported in the error list and left out; the others are unaffected.
func ParseTransactions(txs []model.RawTransaction) ([]model.ParsedTransaction, []TxError) {
	parsed := make([]model.ParsedTransaction, 0, len(txs))
	var failed []TxError
	for _, tx := range txs {
		if !tx.IsInvoke() {
			continue
		}
		calls, err := Decode(tx.Calldata)
		if err != nil {
			failed = append(failed, TxError{Hash: tx.TransactionHash, Err: err})
			continue
		}
		parsed = append(parsed, model.ParsedTransaction{
			Hash:  tx.TransactionHash,
			Calls: calls,
		})
	}
	return parsed, failed
}
