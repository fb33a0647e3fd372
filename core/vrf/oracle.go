/* oracle.go
 * Contains LocalOracle, an in-process oracle double that derives
 * randomness locally. Production deployments inject a real on-chain
 * oracle client; local generation exists for tests and development only.
 */

package vrf

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalOracle fulfills randomness requests from crypto/rand after a
// configurable delay. Fixed, when set, is returned instead of fresh
// randomness so tests can force specific outcomes.
type LocalOracle struct {
	Delay     time.Duration
	Fixed     []byte
	SubmitErr error
	PollErr   error

	mu      sync.Mutex
	pending map[string]time.Time
}

func (o *LocalOracle) SubmitRequest(ctx context.Context, accountRef string) (string, error) {
	if o.SubmitErr != nil {
		return "", o.SubmitErr
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending == nil {
		o.pending = make(map[string]time.Time)
	}
	o.pending[accountRef] = time.Now()
	return "local-tx-" + uuid.NewString(), nil
}

func (o *LocalOracle) PollFulfillment(ctx context.Context, accountRef string) ([]byte, error) {
	if o.PollErr != nil {
		return nil, o.PollErr
	}
	o.mu.Lock()
	submitted, ok := o.pending[accountRef]
	o.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown randomness account %s", accountRef)
	}
	if time.Since(submitted) < o.Delay {
		return nil, nil
	}

	if o.Fixed != nil {
		out := make([]byte, len(o.Fixed))
		copy(out, o.Fixed)
		return out, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to derive local randomness: %w", err)
	}
	return raw, nil
}

// Ensure LocalOracle implements Oracle
var _ Oracle = (*LocalOracle)(nil)
