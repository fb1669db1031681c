package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"nftmarket-go/internal/eth"
	"nftmarket-go/internal/flow"
)

// WSBridge speaks JSON-RPC over a websocket to the user's signing bridge.
// Requests are correlated by id; unsolicited frames carry accountsChanged and
// chainChanged notifications. A dropped connection is a disconnected wallet:
// no automatic redial, every pending request fails.
type WSBridge struct {
	conn    *websocket.Conn
	log     zerolog.Logger
	timeout time.Duration

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResult

	nextID    atomic.Uint64
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcEnvelope struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorBody   `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResult struct {
	result json.RawMessage
	err    error
}

// DialBridge connects to the signing bridge and starts the read pump.
func DialBridge(ctx context.Context, url string, requestTimeout time.Duration, log zerolog.Logger) (*WSBridge, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial wallet bridge: %w", err)
	}
	if requestTimeout <= 0 {
		requestTimeout = 120 * time.Second // wallet prompts wait on a human
	}
	b := &WSBridge{
		conn:    conn,
		log:     log,
		timeout: requestTimeout,
		pending: make(map[uint64]chan rpcResult),
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
	}
	go b.readPump()
	go b.pingLoop()
	log.Info().Str("url", url).Msg("wallet bridge connected")
	return b, nil
}

func (b *WSBridge) pingLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.writeMu.Lock()
			b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := b.conn.WriteMessage(websocket.PingMessage, nil)
			b.writeMu.Unlock()
			if err != nil {
				b.log.Warn().Err(err).Msg("bridge ping failed")
				return
			}
		case <-b.done:
			return
		}
	}
}

func (b *WSBridge) readPump() {
	// Only this goroutine sends on b.events, so it must also be the one to
	// close it. shutdown runs first (LIFO) and unblocks the read via conn.Close.
	defer close(b.events)
	defer b.shutdown()
	b.conn.SetReadLimit(1 << 20)
	for {
		_, message, err := b.conn.ReadMessage()
		if err != nil {
			b.log.Warn().Err(err).Msg("wallet bridge read failed")
			return
		}
		var env rpcEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			b.log.Warn().Err(err).Msg("failed to decode bridge frame")
			continue
		}
		if env.ID != nil {
			b.deliver(*env.ID, env)
			continue
		}
		b.notify(env)
	}
}

func (b *WSBridge) deliver(id uint64, env rpcEnvelope) {
	b.pendingMu.Lock()
	ch, ok := b.pending[id]
	delete(b.pending, id)
	b.pendingMu.Unlock()
	if !ok {
		return
	}
	if env.Error != nil {
		ch <- rpcResult{err: &flow.RPCError{Code: env.Error.Code, Message: env.Error.Message}}
		return
	}
	ch <- rpcResult{result: env.Result}
}

func (b *WSBridge) notify(env rpcEnvelope) {
	switch env.Method {
	case "accountsChanged":
		var accounts []common.Address
		if err := json.Unmarshal(env.Params, &accounts); err != nil {
			b.log.Warn().Err(err).Msg("bad accountsChanged payload")
			return
		}
		b.push(Event{Kind: EventAccountsChanged, Accounts: accounts})
	case "chainChanged":
		var raw string
		if err := json.Unmarshal(env.Params, &raw); err != nil {
			b.log.Warn().Err(err).Msg("bad chainChanged payload")
			return
		}
		id, err := parseChainID(raw)
		if err != nil {
			b.log.Warn().Err(err).Str("chain_id", raw).Msg("bad chainChanged id")
			return
		}
		b.push(Event{Kind: EventChainChanged, ChainID: id})
	default:
		b.log.Debug().Str("method", env.Method).Msg("ignoring bridge notification")
	}
}

func (b *WSBridge) push(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.log.Warn().Msg("wallet event dropped, consumer too slow")
	}
}

func (b *WSBridge) shutdown() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.conn.Close()
		b.pendingMu.Lock()
		for id, ch := range b.pending {
			ch <- rpcResult{err: fmt.Errorf("%w: bridge connection lost", flow.ErrNoWallet)}
			delete(b.pending, id)
		}
		b.pendingMu.Unlock()
	})
}

func (b *WSBridge) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := b.nextID.Add(1)
	ch := make(chan rpcResult, 1)
	b.pendingMu.Lock()
	b.pending[id] = ch
	b.pendingMu.Unlock()

	b.writeMu.Lock()
	b.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	err := b.conn.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	b.writeMu.Unlock()
	if err != nil {
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		return nil, fmt.Errorf("bridge write %s: %w", method, err)
	}

	select {
	case res := <-ch:
		return res.result, res.err
	case <-time.After(b.timeout):
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		return nil, fmt.Errorf("bridge request %s timed out", method)
	case <-ctx.Done():
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-b.done:
		return nil, fmt.Errorf("%w: bridge connection lost", flow.ErrNoWallet)
	}
}

func parseChainID(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	value, ok := new(big.Int).SetString(strings.TrimPrefix(raw, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("invalid chain id %q", raw)
	}
	return value.Uint64(), nil
}

// RequestAccounts prompts the user for account access.
func (b *WSBridge) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return b.accountList(ctx, "eth_requestAccounts")
}

// Accounts reads the already-authorized account list without prompting.
func (b *WSBridge) Accounts(ctx context.Context) ([]common.Address, error) {
	return b.accountList(ctx, "eth_accounts")
}

func (b *WSBridge) accountList(ctx context.Context, method string) ([]common.Address, error) {
	raw, err := b.call(ctx, method, nil)
	if err != nil {
		return nil, err
	}
	var accounts []common.Address
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return accounts, nil
}

// ChainID reads the wallet's active chain.
func (b *WSBridge) ChainID(ctx context.Context) (uint64, error) {
	raw, err := b.call(ctx, "eth_chainId", nil)
	if err != nil {
		return 0, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, fmt.Errorf("decode eth_chainId: %w", err)
	}
	return parseChainID(hex)
}

// SwitchChain asks the wallet to activate the chain.
func (b *WSBridge) SwitchChain(ctx context.Context, chainID uint64) error {
	_, err := b.call(ctx, "wallet_switchEthereumChain",
		[]interface{}{map[string]string{"chainId": hexChainID(chainID)}})
	return err
}

// AddChain asks the wallet to add a chain it does not know yet.
func (b *WSBridge) AddChain(ctx context.Context, req AddChainRequest) error {
	params := map[string]interface{}{
		"chainId":   hexChainID(req.ChainID),
		"chainName": req.Name,
		"nativeCurrency": map[string]interface{}{
			"name":     req.Native.Symbol,
			"symbol":   req.Native.Symbol,
			"decimals": req.Native.Decimals,
		},
		"rpcUrls":           req.RPCURLs,
		"blockExplorerUrls": req.ExplorerURLs,
	}
	_, err := b.call(ctx, "wallet_addEthereumChain", []interface{}{params})
	return err
}

type txParams struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

// SendTransaction submits a transaction for signing; returns once the wallet
// hands back the transaction hash, not once it is mined.
func (b *WSBridge) SendTransaction(ctx context.Context, tx eth.TxRequest) (common.Hash, error) {
	params := txParams{From: tx.From, To: &tx.To, Data: tx.Data}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		params.Value = (*hexutil.Big)(tx.Value)
	}
	raw, err := b.call(ctx, "eth_sendTransaction", []interface{}{params})
	if err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("decode tx hash: %w", err)
	}
	return hash, nil
}

// Call performs a read-only contract call at the latest block.
func (b *WSBridge) Call(ctx context.Context, call eth.CallRequest) ([]byte, error) {
	params := []interface{}{
		map[string]interface{}{"to": call.To, "data": hexutil.Bytes(call.Data)},
		"latest",
	}
	raw, err := b.call(ctx, "eth_call", params)
	if err != nil {
		return nil, err
	}
	var out hexutil.Bytes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode eth_call result: %w", err)
	}
	return out, nil
}

type rpcLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

type rpcReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	Status          hexutil.Uint64 `json:"status"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	Logs            []rpcLog       `json:"logs"`
}

// TransactionReceipt fetches the receipt, or (nil, nil) while still pending.
func (b *WSBridge) TransactionReceipt(ctx context.Context, hash common.Hash) (*eth.Receipt, error) {
	raw, err := b.call(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rec rpcReceipt
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	out := &eth.Receipt{
		TxHash:      rec.TransactionHash,
		Status:      uint64(rec.Status),
		BlockNumber: uint64(rec.BlockNumber),
		Logs:        make([]eth.Log, 0, len(rec.Logs)),
	}
	for _, l := range rec.Logs {
		out.Logs = append(out.Logs, eth.Log{Address: l.Address, Topics: l.Topics, Data: l.Data})
	}
	return out, nil
}

// Events returns the wallet notification stream.
func (b *WSBridge) Events() <-chan Event { return b.events }

// Close tears the bridge down and fails all pending requests.
func (b *WSBridge) Close() error {
	b.shutdown()
	return nil
}
