package indexer

import (
	"math"

	"buyAlerts/internal/calldata"
	"buyAlerts/internal/dex"
	"buyAlerts/internal/model"
)

// CycleContext carries the per-block values stamped onto every record.
type CycleContext struct {
	BlockNumber uint64
	Timestamp   uint64
	EthUsdPrice float64
}

// BlockScan is the outcome of scanning one block for buys.
type BlockScan struct {
	Swaps        []model.SwapRecord
	Decoded      int
	DecodeErrors []model.DecodeError
	// ExtractErrors holds one joined error per transaction with a failing call.
	ExtractErrors []error
}

// ScanBlock decodes every invoke transaction of block and extracts the buys
// described by market, in transaction order.
func ScanBlock(block *model.Block, extractor *dex.Extractor, market dex.Market) BlockScan {
	cycle := CycleContext{BlockNumber: block.BlockNumber, Timestamp: block.Timestamp, EthUsdPrice: market.EthUsdPrice}

	parsed, txErrs := calldata.ParseTransactions(block.Transactions)
	scan := BlockScan{
		Decoded:      len(parsed),
		DecodeErrors: buildDecodeErrors(cycle.BlockNumber, txErrs),
	}
	for _, tx := range parsed {
		records, err := extractor.ExtractTransaction(tx, market)
		if err != nil {
			scan.ExtractErrors = append(scan.ExtractErrors, err)
		}
		scan.Swaps = append(scan.Swaps, records...)
	}
	stampSwaps(scan.Swaps, cycle)
	return scan
}

func stampSwaps(records []model.SwapRecord, cycle CycleContext) {
	for i := range records {
		records[i].BlockNumber = cycle.BlockNumber
		records[i].Timestamp = cycle.Timestamp
		records[i].EthUsdPrice = cycle.EthUsdPrice
	}
}

func buildDecodeErrors(blockNumber uint64, txErrs []calldata.TxError) []model.DecodeError {
	if len(txErrs) == 0 {
		return nil
	}
	out := make([]model.DecodeError, 0, len(txErrs))
	for _, txErr := range txErrs {
		out = append(out, model.DecodeError{
			BlockNumber: blockNumber,
			TxHash:      txErr.Hash,
			Error:       txErr.Err.Error(),
		})
	}
	return out
}

func nan() float64 {
	return math.NaN()
}
