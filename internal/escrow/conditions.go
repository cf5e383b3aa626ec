package escrow

import (
	"context"
	"errors"
	"strconv"
	"time"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
	"github.com/agentcommerce/acp-core/internal/escrow/oracle"
)

// OracleReader resolves a single oracle condition to its current numeric
// value. Resolver (below) is the default fan-out across the three
// strategies named in spec.md §4.5.
type OracleReader interface {
	Read(ctx context.Context, cfg oracle.Config) (float64, error)
}

// Resolver implements OracleReader by dispatching on cfg.Source.
type Resolver struct {
	Accounts oracle.AccountFetcher
	HTTP     *oracle.HTTPReader
}

// NewResolver constructs a Resolver with a default HTTPReader. Accounts may
// be nil if pyth/switchboard conditions are never used; attempting to
// resolve one without a fetcher configured fails closed (false).
func NewResolver(accounts oracle.AccountFetcher) *Resolver {
	return &Resolver{Accounts: accounts, HTTP: oracle.NewHTTPReader()}
}

func (r *Resolver) Read(ctx context.Context, cfg oracle.Config) (float64, error) {
	switch cfg.Source {
	case "pyth":
		if r.Accounts == nil {
			return 0, errNoAccountFetcher
		}
		return oracle.ReadPyth(ctx, r.Accounts, cfg.FeedID)
	case "switchboard":
		if r.Accounts == nil {
			return 0, errNoAccountFetcher
		}
		return oracle.ReadSwitchboard(ctx, r.Accounts, cfg.FeedID)
	case "http", "https":
		return r.HTTP.Read(ctx, cfg.FeedID, cfg.JSONPath)
	default:
		return 0, errUnknownOracleSource
	}
}

var (
	errNoAccountFetcher    = errors.New("oracle account fetcher not configured")
	errUnknownOracleSource = errors.New("unknown oracle source")
)

// oracleFetchBudget bounds a single condition check's aggregate oracle
// latency (spec.md §4.5: "MUST NOT take longer than ~30 seconds").
const oracleFetchBudget = 30 * time.Second

// evaluator checks a single Condition against an Escrow.
type evaluator struct {
	oracleReader OracleReader
}

func (ev evaluator) evalOne(ctx context.Context, e domain.Escrow, c domain.Condition) bool {
	switch c.Type {
	case domain.ConditionTime:
		target, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			return false
		}
		return time.Now().UnixMilli() >= target

	case domain.ConditionSignature:
		for _, sig := range e.TxSignatures {
			if sig == c.Value {
				return true
			}
		}
		return false

	case domain.ConditionOracle:
		cfg, err := oracle.Parse(c.Value)
		if err != nil || ev.oracleReader == nil {
			return false
		}
		ctx, cancel := context.WithTimeout(ctx, oracleFetchBudget)
		defer cancel()
		actual, err := ev.oracleReader.Read(ctx, cfg)
		if err != nil {
			return false
		}
		ok, err := oracle.Compare(cfg.Op, actual, cfg.Target)
		if err != nil {
			return false
		}
		return ok

	case domain.ConditionCustom:
		return evalCustom(ctx, e, c)

	default:
		return false
	}
}

// CheckConditions evaluates e's release or refund condition list and
// returns true only if every condition evaluates true, short-circuiting on
// the first false. An empty list is vacuously true (spec.md §9, Open
// Question (d): an Escrow with no configured conditions is releasable by
// the buyer/arbiter at will).
func (ev evaluator) CheckConditions(ctx context.Context, e domain.Escrow, kind domain.ConditionKind) bool {
	conditions := e.ReleaseConditions
	if kind == domain.KindRefund {
		conditions = e.RefundConditions
	}
	for _, c := range conditions {
		if !ev.evalOne(ctx, e, c) {
			return false
		}
	}
	return true
}
