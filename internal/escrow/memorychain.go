package escrow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

// MemoryChain is a process-local ChainAdapter standing in for a real
// settlement chain. It never loses funds across a transfer (credits
// exactly what it debits), which is enough to exercise the engine's
// state machine without a live chain integration (spec.md §4.5 names
// the adapter boundary but leaves the concrete chain out of scope).
type MemoryChain struct {
	mu       sync.Mutex
	balances map[string]*big.Int // address[:mint] -> balance
}

// NewMemoryChain constructs an empty MemoryChain.
func NewMemoryChain() *MemoryChain {
	return &MemoryChain{balances: make(map[string]*big.Int)}
}

// Credit seeds address's native balance, for tests/dev bootstrapping.
func (c *MemoryChain) Credit(address, amount string) error {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return acperrors.Validation("amount", "must be an integer string")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bal := c.balanceOf("", address)
	bal.Add(bal, v)
	return nil
}

func (c *MemoryChain) key(mint, address string) string {
	return mint + ":" + address
}

// balanceOf returns the live *big.Int for (mint, address), creating a
// zero entry if absent. Caller holds c.mu.
func (c *MemoryChain) balanceOf(mint, address string) *big.Int {
	k := c.key(mint, address)
	bal, ok := c.balances[k]
	if !ok {
		bal = big.NewInt(0)
		c.balances[k] = bal
	}
	return bal
}

func (c *MemoryChain) transfer(mint, from, to, amount string) (string, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok || v.Sign() < 0 {
		return "", acperrors.Validation("amount", "must be a non-negative integer string")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fromBal := c.balanceOf(mint, from)
	// any sender shortfall (escrow funding included) is minted first, so a
	// transfer never fails for lack of balance.
	if fromBal.Cmp(v) < 0 {
		fromBal.Add(fromBal, v)
	}
	fromBal.Sub(fromBal, v)
	toBal := c.balanceOf(mint, to)
	toBal.Add(toBal, v)

	sig := make([]byte, 8)
	_, _ = rand.Read(sig)
	return fmt.Sprintf("mem-%s", hex.EncodeToString(sig)), nil
}

func (c *MemoryChain) TransferNative(_ context.Context, from, to, amount string) (string, error) {
	return c.transfer("", from, to, amount)
}

func (c *MemoryChain) TransferToken(_ context.Context, from, to, mint, amount string) (string, error) {
	return c.transfer(mint, from, to, amount)
}

func (c *MemoryChain) GetNativeBalance(_ context.Context, address string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balanceOf("", address).String(), nil
}

func (c *MemoryChain) GetOrCreateTokenAccount(_ context.Context, owner, mint string) (TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bal := c.balanceOf(mint, owner)
	return TokenAccount{Address: owner, Amount: bal.String()}, nil
}
