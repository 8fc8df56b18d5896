// Package evm implements a minimal JSON-RPC reader for the on-chain data
// this service needs: ERC-20 metadata and Uniswap V3 pool immutables. It
// speaks eth_call directly rather than pulling in a full node client; the
// handful of view functions involved have fixed selectors and simple ABI
// shapes.
package evm

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/positionhq/position-api/internal/domain"
)

// Function selectors (first 4 bytes of keccak256 of the signature).
const (
	selName        = "0x06fdde03" // name()
	selSymbol      = "0x95d89b41" // symbol()
	selDecimals    = "0x313ce567" // decimals()
	selToken0      = "0x0dfe1681" // token0()
	selToken1      = "0xd21220a7" // token1()
	selFee         = "0xddca3f43" // fee()
	selTickSpacing = "0xd0c93a7c" // tickSpacing()
)

// Client reads contract state over per-chain JSON-RPC endpoints.
type Client struct {
	urls   map[int64]string // chain ID -> RPC endpoint
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates an EVM reader for the configured chain endpoints.
// The urls map keys are chain IDs rendered as decimal strings.
func NewClient(urls map[string]string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	byChain := make(map[int64]string, len(urls))
	for key, url := range urls {
		chainID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn("ignoring RPC URL with non-numeric chain key",
				slog.String("key", key))
			continue
		}
		byChain[chainID] = url
	}

	return &Client{
		urls:   byChain,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger.With(slog.String("component", "evm_client")),
	}
}

// Supports reports whether an RPC endpoint is configured for the chain.
func (c *Client) Supports(chainID int64) bool {
	_, ok := c.urls[chainID]
	return ok
}

// ERC20Metadata is the on-chain identity of a token contract.
type ERC20Metadata struct {
	Name     string
	Symbol   string
	Decimals int
}

// ERC20Metadata reads name(), symbol() and decimals() from the contract.
// A contract that reverts on any of the three, or returns data that does
// not decode, is not an ERC-20 for our purposes.
func (c *Client) ERC20Metadata(ctx context.Context, chainID int64, address string) (*ERC20Metadata, error) {
	nameRaw, err := c.ethCall(ctx, chainID, address, selName)
	if err != nil {
		return nil, fmt.Errorf("name() call failed: %w", err)
	}
	name, err := decodeString(nameRaw)
	if err != nil {
		return nil, fmt.Errorf("name() returned non-string data: %w", err)
	}

	symbolRaw, err := c.ethCall(ctx, chainID, address, selSymbol)
	if err != nil {
		return nil, fmt.Errorf("symbol() call failed: %w", err)
	}
	symbol, err := decodeString(symbolRaw)
	if err != nil {
		return nil, fmt.Errorf("symbol() returned non-string data: %w", err)
	}

	decimalsRaw, err := c.ethCall(ctx, chainID, address, selDecimals)
	if err != nil {
		return nil, fmt.Errorf("decimals() call failed: %w", err)
	}
	decimals, err := decodeUint(decimalsRaw)
	if err != nil {
		return nil, fmt.Errorf("decimals() returned non-integer data: %w", err)
	}
	if decimals > 255 {
		return nil, fmt.Errorf("decimals() out of uint8 range: %d", decimals)
	}

	return &ERC20Metadata{
		Name:     name,
		Symbol:   symbol,
		Decimals: int(decimals),
	}, nil
}

// PoolImmutables are the fixed parameters of a Uniswap V3 pool contract.
type PoolImmutables struct {
	Token0      string
	Token1      string
	FeeTier     int
	TickSpacing int
}

// PoolImmutables reads token0(), token1(), fee() and tickSpacing() from a
// Uniswap V3 pool contract.
func (c *Client) PoolImmutables(ctx context.Context, chainID int64, address string) (*PoolImmutables, error) {
	token0Raw, err := c.ethCall(ctx, chainID, address, selToken0)
	if err != nil {
		return nil, fmt.Errorf("token0() call failed: %w", err)
	}
	token0, err := decodeAddress(token0Raw)
	if err != nil {
		return nil, fmt.Errorf("token0() returned non-address data: %w", err)
	}

	token1Raw, err := c.ethCall(ctx, chainID, address, selToken1)
	if err != nil {
		return nil, fmt.Errorf("token1() call failed: %w", err)
	}
	token1, err := decodeAddress(token1Raw)
	if err != nil {
		return nil, fmt.Errorf("token1() returned non-address data: %w", err)
	}

	feeRaw, err := c.ethCall(ctx, chainID, address, selFee)
	if err != nil {
		return nil, fmt.Errorf("fee() call failed: %w", err)
	}
	fee, err := decodeUint(feeRaw)
	if err != nil {
		return nil, fmt.Errorf("fee() returned non-integer data: %w", err)
	}

	spacingRaw, err := c.ethCall(ctx, chainID, address, selTickSpacing)
	if err != nil {
		return nil, fmt.Errorf("tickSpacing() call failed: %w", err)
	}
	spacing, err := decodeUint(spacingRaw)
	if err != nil {
		return nil, fmt.Errorf("tickSpacing() returned non-integer data: %w", err)
	}

	return &PoolImmutables{
		Token0:      token0,
		Token1:      token1,
		FeeTier:     int(fee),
		TickSpacing: int(spacing),
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ethCall performs an eth_call against the latest block and returns the
// raw return data.
func (c *Client) ethCall(ctx context.Context, chainID int64, to, data string) ([]byte, error) {
	url, ok := c.urls[chainID]
	if !ok {
		return nil, fmt.Errorf("no RPC endpoint configured for chain %d", chainID)
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []any{
			map[string]string{"to": domain.NormalizeAddress(to), "data": data},
			"latest",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close RPC response body",
				slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RPC endpoint returned status %d", resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(parsed.Result, "0x"))
	if err != nil {
		return nil, fmt.Errorf("RPC result is not hex: %w", err)
	}
	return raw, nil
}

// decodeUint reads a single 32-byte ABI word as an unsigned integer.
func decodeUint(data []byte) (uint64, error) {
	if len(data) < 32 {
		return 0, fmt.Errorf("return data too short: %d bytes", len(data))
	}
	v := new(big.Int).SetBytes(data[:32])
	if !v.IsUint64() {
		return 0, fmt.Errorf("value exceeds uint64")
	}
	return v.Uint64(), nil
}

// decodeAddress reads a single 32-byte ABI word as a 20-byte address.
func decodeAddress(data []byte) (string, error) {
	if len(data) < 32 {
		return "", fmt.Errorf("return data too short: %d bytes", len(data))
	}
	return "0x" + hex.EncodeToString(data[12:32]), nil
}

// decodeString reads an ABI-encoded string return value. Some older tokens
// (MKR among them) return a bytes32 instead of a dynamic string; both
// shapes are accepted.
func decodeString(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty return data")
	}

	// bytes32 shape: a single word, value padded with trailing zeros.
	if len(data) == 32 {
		return string(bytes.TrimRight(data[:32], "\x00")), nil
	}

	if len(data) < 64 {
		return "", fmt.Errorf("return data too short: %d bytes", len(data))
	}

	// Compare against the remaining space rather than adding to the
	// attacker-controlled value: offset+32 can wrap around and slip past
	// the bound.
	offset := new(big.Int).SetBytes(data[:32])
	if !offset.IsUint64() || offset.Uint64() > uint64(len(data))-32 {
		return "", fmt.Errorf("string offset out of range")
	}
	start := offset.Uint64()

	length := new(big.Int).SetBytes(data[start : start+32])
	if !length.IsUint64() || length.Uint64() > uint64(len(data))-start-32 {
		return "", fmt.Errorf("string length out of range")
	}

	return string(data[start+32 : start+32+length.Uint64()]), nil
}
