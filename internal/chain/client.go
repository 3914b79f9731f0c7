package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"

	"buyAlerts/internal/model"
)

// Client wraps a JSON-RPC connection to a Starknet node.
type Client struct {
	rpcClient *rpc.Client

	mu      sync.RWMutex
	chainID string
}

// NewClient dials the node. A non-empty apiKey is sent as x-apikey on every request.
func NewClient(ctx context.Context, rpcURL string, apiKey string) (*Client, error) {
	var opts []rpc.ClientOption
	if apiKey != "" {
		opts = append(opts, rpc.WithHeader("x-apikey", apiKey))
	}
	rpcClient, err := rpc.DialOptions(ctx, rpcURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewClientFromRPC(rpcClient), nil
}

// NewClientFromRPC wraps an existing RPC client.
func NewClientFromRPC(rpcClient *rpc.Client) *Client {
	return &Client{rpcClient: rpcClient}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain id (hex encoded short string), cached after the first call.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	c.mu.RLock()
	id := c.chainID
	c.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	if err := c.rpcClient.CallContext(ctx, &id, "starknet_chainId"); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return id, nil
}

// LatestBlockNumber returns the number of the latest accepted block.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	if err := c.rpcClient.CallContext(ctx, &number, "starknet_blockNumber"); err != nil {
		return 0, err
	}
	return number, nil
}

// BlockWithTxs returns a block with its full transactions.
func (c *Client) BlockWithTxs(ctx context.Context, number uint64) (*model.Block, error) {
	return c.blockWithTxs(ctx, map[string]uint64{"block_number": number})
}

// LatestBlockWithTxs returns the latest block with its full transactions.
func (c *Client) LatestBlockWithTxs(ctx context.Context) (*model.Block, error) {
	return c.blockWithTxs(ctx, "latest")
}

func (c *Client) blockWithTxs(ctx context.Context, blockID interface{}) (*model.Block, error) {
	var block model.Block
	if err := c.rpcClient.CallContext(ctx, &block, "starknet_getBlockWithTxs", blockID); err != nil {
		return nil, fmt.Errorf("get block %v: %w", blockID, err)
	}
	return &block, nil
}
