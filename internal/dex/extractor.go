package dex

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"buyAlerts/internal/felt"
	"buyAlerts/internal/model"
)

// Market carries the per-cycle inputs of buy detection.
type Market struct {
	TokenOfInterest felt.Felt
	SourceToken     felt.Felt
	TotalSupply     float64
	EthUsdPrice     float64
}

// Extractor recognizes buys of the token of interest among decoded calls.
type Extractor struct {
	descriptors []RouterDescriptor
}

// NewExtractor validates the descriptor table and builds an Extractor.
func NewExtractor(descriptors []RouterDescriptor) (*Extractor, error) {
	if err := ValidateDescriptors(descriptors); err != nil {
		return nil, err
	}
	table := make([]RouterDescriptor, len(descriptors))
	copy(table, descriptors)
	return &Extractor{descriptors: table}, nil
}

// Descriptors returns a copy of the configured table.
func (e *Extractor) Descriptors() []RouterDescriptor {
	out := make([]RouterDescriptor, len(e.descriptors))
	copy(out, e.descriptors)
	return out
}

// Match returns the descriptor claiming the call's router and entrypoint.
func (e *Extractor) Match(call model.Call) (RouterDescriptor, bool) {
	for _, d := range e.descriptors {
		if call.ContractAddress.Equal(d.Router) && call.Entrypoint.Equal(d.Selector) {
			return d, true
		}
	}
	return RouterDescriptor{}, false
}

// Extract returns the swap encoded by call when it is a buy of
// market.TokenOfInterest paid in market.SourceToken. A call on an unknown
// router, or a swap in any other direction, yields ok=false and no error.
func (e *Extractor) Extract(call model.Call, txHash string, market Market) (model.SwapRecord, bool, error) {
	d, ok := e.Match(call)
	if !ok {
		return model.SwapRecord{}, false, nil
	}

	if need := d.Rule.maxPosition() + 1; len(call.Calldata) < need {
		return model.SwapRecord{}, false, fmt.Errorf("%s call has %d calldata values, need %d", d.Name, len(call.Calldata), need)
	}

	tokenFrom, err := argument(call, d, d.Rule.TokenFrom, "token_from")
	if err != nil {
		return model.SwapRecord{}, false, err
	}
	amountFrom, err := argument(call, d, d.Rule.AmountFrom, "amount_from")
	if err != nil {
		return model.SwapRecord{}, false, err
	}
	tokenTo, err := argument(call, d, d.Rule.TokenTo, "token_to")
	if err != nil {
		return model.SwapRecord{}, false, err
	}
	amountTo, err := argument(call, d, d.Rule.AmountTo, "amount_to")
	if err != nil {
		return model.SwapRecord{}, false, err
	}

	if !tokenFrom.Equal(market.SourceToken) || !tokenTo.Equal(market.TokenOfInterest) {
		return model.SwapRecord{}, false, nil
	}

	price := Price(amountFrom.Big(), amountTo.Big())
	return model.SwapRecord{
		TokenIn:     tokenFrom,
		TokenOut:    tokenTo,
		AmountIn:    amountFrom.Big(),
		AmountOut:   amountTo.Big(),
		Hash:        txHash,
		Price:       price,
		MarketCap:   MarketCap(market.TotalSupply, price, market.EthUsdPrice),
		Dex:         d.Name,
		EthUsdPrice: market.EthUsdPrice,
	}, true, nil
}

// ExtractTransaction runs Extract over every call of tx in order. Calls that
// fail are reported through the joined error; records from the other calls
// are still returned.
func (e *Extractor) ExtractTransaction(tx model.ParsedTransaction, market Market) ([]model.SwapRecord, error) {
	var records []model.SwapRecord
	var errs []error
	for i, call := range tx.Calls {
		record, ok, err := e.Extract(call, tx.Hash, market)
		if err != nil {
			errs = append(errs, fmt.Errorf("tx %s call %d: %w", tx.Hash, i, err))
			continue
		}
		if ok {
			record.CallIndex = i
			records = append(records, record)
		}
	}
	return records, errors.Join(errs...)
}

// Price is amountIn/amountOut as a float64 ratio.
func Price(amountIn, amountOut *big.Int) float64 {
	in, _ := new(big.Float).SetInt(amountIn).Float64()
	out, _ := new(big.Float).SetInt(amountOut).Float64()
	return in / out
}

// MarketCap is floor(totalSupply * 1e-18 * price * ethUsd). A NaN rate
// yields NaN.
func MarketCap(totalSupply, price, ethUsd float64) float64 {
	return math.Floor(totalSupply * 1e-18 * price * ethUsd)
}

func argument(call model.Call, d RouterDescriptor, pos int, role string) (felt.Felt, error) {
	v, err := felt.Parse(call.Calldata[pos])
	if err != nil {
		return felt.Felt{}, fmt.Errorf("%s %s at %d: %w", d.Name, role, pos, err)
	}
	return v, nil
}
