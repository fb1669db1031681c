package wallet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nftmarket-go/internal/chain"
	"nftmarket-go/internal/flow"
)

// Switcher moves the wallet onto a target chain, adding the chain from
// registry data when the wallet does not know it.
type Switcher struct {
	session  *Session
	registry *chain.Registry
	log      zerolog.Logger
}

// NewSwitcher builds a Switcher sharing the session's bridge handle.
func NewSwitcher(session *Session, registry *chain.Registry, log zerolog.Logger) *Switcher {
	return &Switcher{session: session, registry: registry, log: log}
}

// EnsureChain returns nil only once the wallet is on the target chain. When
// the session already matches, no wallet prompt is issued at all. A wallet
// that reports the chain as unknown gets one add-chain request followed by
// one retried switch. A user decline maps to ErrUserDeclinedSwitch; callers
// decide whether that aborts their flow.
func (sw *Switcher) EnsureChain(ctx context.Context, target uint64) error {
	if current, ok := sw.session.CurrentChainID(); ok && current == target {
		return nil
	}
	bridge, _, err := sw.session.handle()
	if err != nil {
		return err
	}

	err = bridge.SwitchChain(ctx, target)
	if err == nil {
		sw.markSwitched(target)
		return nil
	}

	switch flow.CodeOf(err) {
	case flow.CodeUserRejected:
		return fmt.Errorf("%w: chain %d", flow.ErrUserDeclinedSwitch, target)
	case flow.CodeUnrecognizedChain, flow.CodeInternal:
		// Wallet does not know the chain; add it from registry data, retry once.
	default:
		return flow.ClassifyRPC(err)
	}

	cfg, ok := sw.registry.Chain(target)
	if !ok {
		return fmt.Errorf("%w: chain %d", flow.ErrUnsupportedChain, target)
	}
	sw.log.Info().Uint64("chain_id", target).Msg("wallet lacks chain, requesting add")
	addErr := bridge.AddChain(ctx, AddChainRequest{
		ChainID:      cfg.ChainID,
		Name:         cfg.Name,
		Native:       cfg.Native,
		RPCURLs:      cfg.RPCURLs,
		ExplorerURLs: cfg.ExplorerURLs,
	})
	if addErr != nil {
		if flow.CodeOf(addErr) == flow.CodeUserRejected {
			return fmt.Errorf("%w: chain %d", flow.ErrUserDeclinedSwitch, target)
		}
		return flow.ClassifyRPC(addErr)
	}

	if err := bridge.SwitchChain(ctx, target); err != nil {
		if flow.CodeOf(err) == flow.CodeUserRejected {
			return fmt.Errorf("%w: chain %d", flow.ErrUserDeclinedSwitch, target)
		}
		return flow.ClassifyRPC(err)
	}
	sw.markSwitched(target)
	return nil
}

func (sw *Switcher) markSwitched(target uint64) {
	// The wallet also emits chainChanged; updating here keeps the session
	// consistent even when the event is slow to arrive.
	sw.session.mu.Lock()
	sw.session.chainID = target
	sw.session.mu.Unlock()
	sw.log.Info().Uint64("chain_id", target).Msg("wallet switched chain")
}
