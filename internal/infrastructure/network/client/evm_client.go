package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"aave_pnl/internal/app/port"
	"aave_pnl/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EVMClient implements port.BlockchainClient for one RPC endpoint.
type EVMClient struct {
	ethClient      *ethclient.Client
	rpcURL         string
	rpcCallTimeout time.Duration
}

var _ port.BlockchainClient = (*EVMClient)(nil)

// ERC20 ABI minimal part for balanceOf
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

// Aave V3 pool ABI minimal part for getUserAccountData
const poolABI = `[{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getUserAccountData","outputs":[{"internalType":"uint256","name":"totalCollateralBase","type":"uint256"},{"internalType":"uint256","name":"totalDebtBase","type":"uint256"},{"internalType":"uint256","name":"availableBorrowsBase","type":"uint256"},{"internalType":"uint256","name":"currentLiquidationThreshold","type":"uint256"},{"internalType":"uint256","name":"ltv","type":"uint256"},{"internalType":"uint256","name":"healthFactor","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI abi.ABI
	parsedPoolABI  abi.ABI
	parseABIsOnce  sync.Once

	// Pool events whose topic[2] is the account the action is credited to.
	lendingEventTopics = []common.Hash{
		crypto.Keccak256Hash([]byte("Supply(address,address,address,uint256,uint16)")),
		crypto.Keccak256Hash([]byte("Withdraw(address,address,address,uint256)")),
		crypto.Keccak256Hash([]byte("Borrow(address,address,address,uint256,uint8,uint256,uint16)")),
		crypto.Keccak256Hash([]byte("Repay(address,address,address,uint256,bool)")),
	}
)

func initParsedABIs() {
	parseABIsOnce.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		parsedPoolABI, err = abi.JSON(strings.NewReader(poolABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse pool ABI: %v", err))
		}
	})
}

// NewEVMClient dials rpcURL. For HTTP endpoints dialing does not touch the network.
func NewEVMClient(ctx context.Context, rpcURL string, connectionTimeout, rpcCallTimeout time.Duration) (*EVMClient, error) {
	initParsedABIs()

	dialCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	ec, err := ethclient.DialContext(dialCtx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	return &EVMClient{ethClient: ec, rpcURL: rpcURL, rpcCallTimeout: rpcCallTimeout}, nil
}

// Close releases the underlying connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}

func (c *EVMClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.rpcCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

// BalanceOf calls balanceOf(owner) on tokenAddress.
func (c *EVMClient) BalanceOf(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error) {
	data, err := parsedERC20ABI.Pack("balanceOf", common.HexToAddress(ownerAddress))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	to := common.HexToAddress(tokenAddress)

	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	result, err := c.ethClient.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classifyRPCError(fmt.Errorf("eth_call balanceOf on %s via %s: %w", tokenAddress, c.rpcURL, err))
	}
	if len(result) == 0 {
		return big.NewInt(0), nil
	}

	unpacked, err := parsedERC20ABI.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result for %s: %w. Raw: %s", tokenAddress, err, hexutil.Encode(result))
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("balanceOf unpack returned no data for %s", tokenAddress)
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to assert unpacked balanceOf result to *big.Int for %s. Got: %T", tokenAddress, unpacked[0])
	}
	return balance, nil
}

// UserAccountData calls getUserAccountData(owner) on the pool.
func (c *EVMClient) UserAccountData(ctx context.Context, poolAddress, ownerAddress string) (entity.UserAccountData, error) {
	data, err := parsedPoolABI.Pack("getUserAccountData", common.HexToAddress(ownerAddress))
	if err != nil {
		return entity.UserAccountData{}, fmt.Errorf("pack getUserAccountData: %w", err)
	}
	to := common.HexToAddress(poolAddress)

	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	result, err := c.ethClient.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return entity.UserAccountData{}, classifyRPCError(fmt.Errorf("eth_call getUserAccountData via %s: %w", c.rpcURL, err))
	}
	return unpackUserAccountData(result)
}

func unpackUserAccountData(result []byte) (entity.UserAccountData, error) {
	initParsedABIs()
	unpacked, err := parsedPoolABI.Unpack("getUserAccountData", result)
	if err != nil {
		return entity.UserAccountData{}, fmt.Errorf("failed to unpack getUserAccountData: %w. Raw: %s", err, hexutil.Encode(result))
	}
	if len(unpacked) != 6 {
		return entity.UserAccountData{}, fmt.Errorf("getUserAccountData returned %d values, want 6", len(unpacked))
	}
	values := make([]*big.Int, 6)
	for i, v := range unpacked {
		n, ok := v.(*big.Int)
		if !ok {
			return entity.UserAccountData{}, fmt.Errorf("getUserAccountData value %d has type %T", i, v)
		}
		values[i] = n
	}
	return entity.UserAccountData{
		TotalCollateralBase:         values[0],
		TotalDebtBase:               values[1],
		AvailableBorrowsBase:        values[2],
		CurrentLiquidationThreshold: values[3],
		LTV:                         values[4],
		HealthFactor:                values[5],
	}, nil
}

// LatestBlock returns eth_blockNumber.
func (c *EVMClient) LatestBlock(ctx context.Context) (uint64, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	n, err := c.ethClient.BlockNumber(callCtx)
	if err != nil {
		return 0, classifyRPCError(fmt.Errorf("eth_blockNumber via %s: %w", c.rpcURL, err))
	}
	return n, nil
}

// ScanLendingTransactions runs eth_getLogs for the pool's lending events credited to wallet
// and turns every distinct transaction into a RawTransaction, oldest first.
func (c *EVMClient) ScanLendingTransactions(ctx context.Context, poolAddress, walletAddress string, fromBlock, toBlock uint64) ([]entity.RawTransaction, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{common.HexToAddress(poolAddress)},
		Topics: [][]common.Hash{
			lendingEventTopics,
			nil,
			{common.BytesToHash(common.LeftPadBytes(common.HexToAddress(walletAddress).Bytes(), 32))},
		},
	}

	callCtx, cancel := c.callCtx(ctx)
	logs, err := c.ethClient.FilterLogs(callCtx, query)
	cancel()
	if err != nil {
		return nil, classifyRPCError(fmt.Errorf("eth_getLogs [%d,%d] via %s: %w", fromBlock, toBlock, c.rpcURL, err))
	}

	txs := make([]entity.RawTransaction, 0, len(logs))
	seen := make(map[common.Hash]struct{}, len(logs))
	blockTimes := make(map[uint64]time.Time)
	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		if _, ok := seen[lg.TxHash]; ok {
			continue
		}
		seen[lg.TxHash] = struct{}{}

		raw, err := c.hydrate(ctx, lg, blockTimes)
		if err != nil {
			return nil, err
		}
		txs = append(txs, raw)
	}
	return txs, nil
}

func (c *EVMClient) hydrate(ctx context.Context, lg types.Log, blockTimes map[uint64]time.Time) (entity.RawTransaction, error) {
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()

	tx, _, err := c.ethClient.TransactionByHash(callCtx, lg.TxHash)
	if err != nil {
		return entity.RawTransaction{}, classifyRPCError(fmt.Errorf("eth_getTransactionByHash %s: %w", lg.TxHash.Hex(), err))
	}

	ts, ok := blockTimes[lg.BlockNumber]
	if !ok {
		header, err := c.ethClient.HeaderByNumber(callCtx, new(big.Int).SetUint64(lg.BlockNumber))
		if err != nil {
			return entity.RawTransaction{}, classifyRPCError(fmt.Errorf("eth_getBlockByNumber %d: %w", lg.BlockNumber, err))
		}
		ts = time.Unix(int64(header.Time), 0).UTC()
		blockTimes[lg.BlockNumber] = ts
	}

	raw := entity.RawTransaction{
		Hash:        lg.TxHash.Hex(),
		BlockNumber: lg.BlockNumber,
		Timestamp:   ts,
		Input:       hexutil.Encode(tx.Data()),
	}
	if to := tx.To(); to != nil {
		raw.To = to.Hex()
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		raw.From = from.Hex()
	}
	return raw, nil
}

// classifyRPCError tags provider throttling and range limits with entity.ErrRateLimited.
func classifyRPCError(err error) error {
	if IsRateLimitError(err) {
		return fmt.Errorf("%w: %v", entity.ErrRateLimited, err)
	}
	return err
}

// IsRateLimitError recognises HTTP 429, JSON-RPC limit codes and the usual provider messages.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, entity.ErrRateLimited) {
		return true
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 429 {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == -32005 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "too many requests", "limit exceeded", "block range", "range is too large", "query returned more than"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
