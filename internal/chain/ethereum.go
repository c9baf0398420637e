package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// EthereumSource reads block heights from an Ethereum JSON-RPC endpoint and
// caches the latest value so engine operations never wait on the network.
// The cache only moves forward; a reorged or lagging node can never rewind
// the height the engine sees.
type EthereumSource struct {
	client   *ethclient.Client
	logger   *slog.Logger
	interval time.Duration
	height   atomic.Uint64
}

// DialEthereum connects to the given RPC URL, performs an initial height
// fetch, and returns a source ready for use. Run must be started to keep the
// cached height current.
func DialEthereum(ctx context.Context, rawURL string, interval time.Duration, logger *slog.Logger) (*EthereumSource, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rawURL, err)
	}

	s := &EthereumSource{
		client:   client,
		logger:   logger.With(slog.String("component", "chain")),
		interval: interval,
	}
	if err := s.refresh(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// Height returns the most recently observed block height.
func (s *EthereumSource) Height() uint64 {
	return s.height.Load()
}

// Run polls the node until the context is cancelled. Poll failures are logged
// and retried on the next tick; the cached height simply goes stale.
func (s *EthereumSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				s.logger.WarnContext(ctx, "block height refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Close releases the underlying RPC connection.
func (s *EthereumSource) Close() {
	s.client.Close()
}

func (s *EthereumSource) refresh(ctx context.Context) error {
	n, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("chain: block number: %w", err)
	}

	// Ignore values below the cached height to keep the oracle monotonic.
	for {
		cur := s.height.Load()
		if n <= cur {
			return nil
		}
		if s.height.CompareAndSwap(cur, n) {
			return nil
		}
	}
}
