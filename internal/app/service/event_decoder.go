package service

import (
	"math/big"
	"strings"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"
	"aave_pnl/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

const (
	selectorHexLen = 10 // "0x" + 4 bytes
	selectorBytes  = 4
	abiWordBytes   = 32

	defaultEventDecimals = 18
)

type paramType int

const (
	paramAddress paramType = iota
	paramUint256
)

// paramField locates one calldata parameter: Width bytes at Offset, relative to the start of the arguments.
type paramField struct {
	Name   string
	Offset int
	Width  int
	Type   paramType
}

type callSchema struct {
	Kind   entity.EventKind
	Params []paramField
}

var (
	assetParam  = paramField{Name: "asset", Offset: abiWordBytes - 20, Width: 20, Type: paramAddress}
	amountParam = paramField{Name: "amount", Offset: 1 * abiWordBytes, Width: abiWordBytes, Type: paramUint256}
)

// poolCallSchemas maps Aave V3 Pool method selectors to their leading parameter layout.
//
//	supply(address asset, uint256 amount, address onBehalfOf, uint16 referralCode)
//	withdraw(address asset, uint256 amount, address to)
//	borrow(address asset, uint256 amount, uint256 interestRateMode, uint16 referralCode, address onBehalfOf)
//	repay(address asset, uint256 amount, uint256 interestRateMode, address onBehalfOf)
var poolCallSchemas = map[string]callSchema{
	"0x617ba037": {Kind: entity.EventSupply, Params: []paramField{assetParam, amountParam}},
	"0x69328dec": {Kind: entity.EventWithdraw, Params: []paramField{assetParam, amountParam}},
	"0xa415bcad": {Kind: entity.EventBorrow, Params: []paramField{assetParam, amountParam}},
	"0x573ade81": {Kind: entity.EventRepay, Params: []paramField{assetParam, amountParam}},
}

// eventDecoderImpl implements port.EventDecoder.
type eventDecoderImpl struct {
	logger port.Logger
}

// NewEventDecoder creates a selector-table decoder for Pool calls.
func NewEventDecoder(l port.Logger) port.EventDecoder {
	return &eventDecoderImpl{logger: l}
}

// FilterRelevant keeps transactions sent to the chain's Pool or PoolDataProvider.
func (d *eventDecoderImpl) FilterRelevant(txs []entity.RawTransaction, chain entity.ChainConfig) []entity.RawTransaction {
	out := make([]entity.RawTransaction, 0, len(txs))
	for _, tx := range txs {
		if chain.IsLendingContract(tx.To) {
			out = append(out, tx)
		}
	}
	return out
}

// Decode returns nil for unknown selectors and for malformed calldata.
//
// The amount is scaled by the reserve's registry decimals when the asset is a known token
// (6 for Base USDC), and by 18 otherwise. A withdraw or repay of type(uint256).max is
// returned as a CloseAll event with a zero Amount.
func (d *eventDecoderImpl) Decode(tx entity.RawTransaction, chain entity.ChainConfig) *entity.LendingEvent {
	if len(tx.Input) < selectorHexLen {
		return nil
	}
	schema, ok := poolCallSchemas[strings.ToLower(tx.Input[:selectorHexLen])]
	if !ok {
		return nil
	}

	data, err := hexutil.Decode(tx.Input)
	if err != nil {
		d.logger.Warn("Skipping transaction with undecodable calldata", "tx", tx.Hash, "error", err)
		return nil
	}
	args := data[selectorBytes:]

	values := make(map[string]any, len(schema.Params))
	for _, p := range schema.Params {
		if p.Offset+p.Width > len(args) {
			d.logger.Warn("Skipping transaction with truncated calldata", "tx", tx.Hash, "param", p.Name, "kind", schema.Kind)
			return nil
		}
		raw := args[p.Offset : p.Offset+p.Width]
		switch p.Type {
		case paramAddress:
			values[p.Name] = common.BytesToAddress(raw).Hex()
		case paramUint256:
			values[p.Name] = new(big.Int).SetBytes(raw)
		}
	}

	asset, _ := values["asset"].(string)
	amount, _ := values["amount"].(*big.Int)
	if asset == "" || amount == nil {
		d.logger.Warn("Skipping transaction missing asset or amount", "tx", tx.Hash, "kind", schema.Kind)
		return nil
	}

	symbol := asset
	decimals := uint8(defaultEventDecimals)
	if token, found := chain.TokenByUnderlying(asset); found {
		symbol = token.Symbol
		decimals = token.Decimals
	}

	closeAll := amount.Cmp(math.MaxBig256) == 0 &&
		(schema.Kind == entity.EventWithdraw || schema.Kind == entity.EventRepay)
	scaled := utils.ToFloat(amount, decimals)
	if closeAll {
		scaled = 0
	}

	return &entity.LendingEvent{
		Kind:         schema.Kind,
		AssetAddress: asset,
		Symbol:       symbol,
		Amount:       scaled,
		CloseAll:     closeAll,
		Timestamp:    tx.Timestamp,
		TxHash:       tx.Hash,
		BlockNumber:  tx.BlockNumber,
	}
}

// DecodeAll decodes each transaction independently, dropping the ones that yield nil.
func (d *eventDecoderImpl) DecodeAll(txs []entity.RawTransaction, chain entity.ChainConfig) []entity.LendingEvent {
	events := make([]entity.LendingEvent, 0, len(txs))
	for _, tx := range txs {
		if ev := d.Decode(tx, chain); ev != nil {
			events = append(events, *ev)
		}
	}
	d.logger.Debug("Decoded lending events", "chain", chain.Identifier, "transactions", len(txs), "events", len(events))
	return events
}
