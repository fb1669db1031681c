package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"nftmarket-go/internal/eth"
	"nftmarket-go/internal/flow"
)

// Session owns the active provider/signer handle: the connected bridge, the
// current account, and the current chain id. At most one Session is live per
// process; every flow reads it at the moment of execution rather than caching
// values, because a chain switch may land between steps.
type Session struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	bridge Bridge

	connected bool
	address   common.Address
	chainID   uint64

	listening  bool
	onAccounts func([]common.Address)
	onChain    func(uint64)
}

// NewSession wraps a bridge. A nil bridge models the no-wallet-installed case;
// Connect will report it.
func NewSession(bridge Bridge, log zerolog.Logger) *Session {
	return &Session{bridge: bridge, log: log}
}

// Connect requests account access, populates the session, and registers the
// wallet event listener. Re-connecting replaces handlers rather than stacking
// a second listener.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()
	if bridge == nil {
		return flow.ErrNoWallet
	}

	accounts, err := bridge.RequestAccounts(ctx)
	if err != nil {
		return flow.ClassifyRPC(err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("%w: wallet returned no accounts", flow.ErrUserRejected)
	}
	chainID, err := bridge.ChainID(ctx)
	if err != nil {
		return flow.ClassifyRPC(err)
	}

	s.mu.Lock()
	s.connected = true
	s.address = accounts[0]
	s.chainID = chainID
	startListener := !s.listening
	s.listening = true
	s.mu.Unlock()

	if startListener {
		go s.consumeEvents(bridge.Events())
	}
	s.log.Info().Str("address", accounts[0].Hex()).Uint64("chain_id", chainID).Msg("wallet connected")
	return nil
}

// Resume silently adopts an already-authorized account, if any. No prompt.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	s.mu.Lock()
	bridge := s.bridge
	s.mu.Unlock()
	if bridge == nil {
		return false, flow.ErrNoWallet
	}
	accounts, err := bridge.Accounts(ctx)
	if err != nil {
		return false, flow.ClassifyRPC(err)
	}
	if len(accounts) == 0 {
		return false, nil
	}
	chainID, err := bridge.ChainID(ctx)
	if err != nil {
		return false, flow.ClassifyRPC(err)
	}
	s.mu.Lock()
	s.connected = true
	s.address = accounts[0]
	s.chainID = chainID
	startListener := !s.listening
	s.listening = true
	s.mu.Unlock()
	if startListener {
		go s.consumeEvents(bridge.Events())
	}
	return true, nil
}

// Disconnect clears the session. Idempotent; wallets expose no programmatic
// disconnect, so the bridge is left alone.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.address = common.Address{}
	s.chainID = 0
	s.mu.Unlock()
	if wasConnected {
		s.log.Info().Msg("wallet disconnected")
	}
}

// CurrentAccount returns the active account, if connected.
func (s *Session) CurrentAccount() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address, s.connected
}

// CurrentChainID returns the active chain, if connected.
func (s *Session) CurrentChainID() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID, s.connected
}

// OnAccountsChanged replaces the account-change handler.
func (s *Session) OnAccountsChanged(fn func([]common.Address)) {
	s.mu.Lock()
	s.onAccounts = fn
	s.mu.Unlock()
}

// OnChainChanged replaces the chain-change handler.
func (s *Session) OnChainChanged(fn func(uint64)) {
	s.mu.Lock()
	s.onChain = fn
	s.mu.Unlock()
}

func (s *Session) consumeEvents(events <-chan Event) {
	for ev := range events {
		switch ev.Kind {
		case EventAccountsChanged:
			s.mu.Lock()
			if len(ev.Accounts) == 0 {
				s.connected = false
				s.address = common.Address{}
				s.chainID = 0
			} else {
				s.address = ev.Accounts[0]
			}
			handler := s.onAccounts
			s.mu.Unlock()
			if len(ev.Accounts) == 0 {
				s.log.Info().Msg("wallet account list emptied, session cleared")
			}
			if handler != nil {
				handler(ev.Accounts)
			}
		case EventChainChanged:
			s.mu.Lock()
			s.chainID = ev.ChainID
			handler := s.onChain
			s.mu.Unlock()
			s.log.Info().Uint64("chain_id", ev.ChainID).Msg("wallet chain changed")
			if handler != nil {
				handler(ev.ChainID)
			}
		}
	}
	// Bridge gone; the wallet is no longer reachable.
	s.Disconnect()
}

func (s *Session) handle() (Bridge, common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected || s.bridge == nil {
		return nil, common.Address{}, flow.ErrNoWallet
	}
	return s.bridge, s.address, nil
}

// SendTransaction delegates to the bridge, filling From with the active
// account when the caller left it zero.
func (s *Session) SendTransaction(ctx context.Context, tx eth.TxRequest) (common.Hash, error) {
	bridge, address, err := s.handle()
	if err != nil {
		return common.Hash{}, err
	}
	if tx.From == (common.Address{}) {
		tx.From = address
	}
	return bridge.SendTransaction(ctx, tx)
}

// Call delegates a read-only call to the bridge.
func (s *Session) Call(ctx context.Context, call eth.CallRequest) ([]byte, error) {
	bridge, _, err := s.handle()
	if err != nil {
		return nil, err
	}
	return bridge.Call(ctx, call)
}

// TransactionReceipt delegates a receipt lookup to the bridge.
func (s *Session) TransactionReceipt(ctx context.Context, hash common.Hash) (*eth.Receipt, error) {
	bridge, _, err := s.handle()
	if err != nil {
		return nil, err
	}
	return bridge.TransactionReceipt(ctx, hash)
}

var _ eth.Submitter = (*Session)(nil)
