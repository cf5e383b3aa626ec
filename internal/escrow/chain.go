package escrow

import "context"

// TokenAccount describes a resolved or newly-created token account.
type TokenAccount struct {
	Address string
	Amount  string
}

// ChainAdapter is the external settlement boundary the Escrow Engine
// delegates on-chain transfers to (spec.md §4.5: "the engine holds no
// funds itself"). A concrete chain integration is out of scope for the
// core; callers supply their own adapter at construction time.
type ChainAdapter interface {
	TransferNative(ctx context.Context, from, to, amount string) (signature string, err error)
	TransferToken(ctx context.Context, from, to, mint, amount string) (signature string, err error)
	GetNativeBalance(ctx context.Context, address string) (amount string, err error)
	GetOrCreateTokenAccount(ctx context.Context, owner, mint string) (TokenAccount, error)
}
