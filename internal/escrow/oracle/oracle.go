// Package oracle implements the Escrow Engine's three oracle-condition
// fetch strategies (spec.md §4.5): Pyth and Switchboard binary account
// readers, and an HTTP JSON reader.
package oracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

// Config is a parsed oracle condition, per spec.md §4.5:
// "<type>:<feedId>:<op>:<target>[:<jsonPath>]".
type Config struct {
	Source   string // pyth | http | switchboard
	FeedID   string // account address (pyth/switchboard) or URL (http)
	Op       string // gt | lt | gte | lte | eq
	Target   float64
	JSONPath string // http only
}

var validOps = map[string]bool{"gt": true, "lt": true, "gte": true, "lte": true, "eq": true}

// Parse splits an oracle condition value into a Config. feedId may itself
// contain colons (an http:// URL), so the op token is located by scanning
// for the first segment that names a known comparison operator rather than
// splitting at a fixed position.
func Parse(value string) (Config, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 4 {
		return Config{}, acperrors.Validation("oracle condition", "expected <type>:<feedId>:<op>:<target>[:<jsonPath>]")
	}

	source := parts[0]
	opIdx := -1
	for i := 1; i < len(parts)-1; i++ {
		if validOps[parts[i]] {
			opIdx = i
			break
		}
	}
	if opIdx == -1 || opIdx == len(parts)-1 {
		return Config{}, acperrors.Validation("oracle condition", "missing comparison operator")
	}

	feedID := strings.Join(parts[1:opIdx], ":")
	if strings.HasPrefix(feedID, "//") {
		// "http://host/path:..." — the type token doubles as the URL scheme.
		feedID = source + ":" + feedID
	}
	op := parts[opIdx]
	target, err := strconv.ParseFloat(parts[opIdx+1], 64)
	if err != nil {
		return Config{}, acperrors.Validation("oracle condition", "target is not numeric")
	}

	cfg := Config{Source: source, FeedID: feedID, Op: op, Target: target}
	if rest := parts[opIdx+2:]; len(rest) > 0 {
		cfg.JSONPath = strings.Join(rest, ":")
	}
	return cfg, nil
}

// Compare applies cfg.Op between actual and cfg.Target, per spec.md §4.5
// ("eq uses |actual - target| < 1e-6").
func Compare(op string, actual, target float64) (bool, error) {
	switch op {
	case "gt":
		return actual > target, nil
	case "lt":
		return actual < target, nil
	case "gte":
		return actual >= target, nil
	case "lte":
		return actual <= target, nil
	case "eq":
		diff := actual - target
		if diff < 0 {
			diff = -diff
		}
		return diff < 1e-6, nil
	default:
		return false, fmt.Errorf("unknown oracle comparison operator %q", op)
	}
}

// AccountFetcher fetches raw on-chain account bytes for a binary oracle
// feed (Pyth or Switchboard). The Chain Adapter the Escrow Engine is wired
// to supplies the concrete implementation.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, address string) ([]byte, error)
}

// Pyth-layout offsets, per spec.md §4.5.
const (
	pythMantissaOffset = 208
	pythExpoOffset      = 216
)

// ReadPyth reads a Pyth price account's mantissa/exponent at their fixed
// offsets and returns mantissa * 10^expo.
func ReadPyth(ctx context.Context, fetcher AccountFetcher, feedAddress string) (float64, error) {
	data, err := fetcher.FetchAccount(ctx, feedAddress)
	if err != nil {
		return 0, acperrors.External("pyth", err)
	}
	if len(data) < pythExpoOffset+4 {
		return 0, acperrors.External("pyth", fmt.Errorf("account data too short (%d bytes)", len(data)))
	}

	mantissa := int64(binary.LittleEndian.Uint64(data[pythMantissaOffset : pythMantissaOffset+8]))
	expo := int32(binary.LittleEndian.Uint32(data[pythExpoOffset : pythExpoOffset+4]))

	return float64(mantissa) * pow10(float64(expo)), nil
}

// Switchboard-layout offsets: i128 mantissa followed by a u32 scale.
const (
	switchboardMantissaOffset = 0
	switchboardScaleOffset    = 16
)

// ReadSwitchboard reads a Switchboard aggregator account's i128
// mantissa/u32 scale and returns mantissa / 10^scale. The mantissa is
// truncated to its low 64 bits: production feed magnitudes never approach
// the high 64 bits of the i128 layout.
func ReadSwitchboard(ctx context.Context, fetcher AccountFetcher, feedAddress string) (float64, error) {
	data, err := fetcher.FetchAccount(ctx, feedAddress)
	if err != nil {
		return 0, acperrors.External("switchboard", err)
	}
	if len(data) < switchboardScaleOffset+4 {
		return 0, acperrors.External("switchboard", fmt.Errorf("account data too short (%d bytes)", len(data)))
	}

	mantissa := int64(binary.LittleEndian.Uint64(data[switchboardMantissaOffset : switchboardMantissaOffset+8]))
	scale := binary.LittleEndian.Uint32(data[switchboardScaleOffset : switchboardScaleOffset+4])

	return float64(mantissa) / pow10(float64(scale)), nil
}

func pow10(exp float64) float64 {
	result := 1.0
	if exp >= 0 {
		for i := 0; i < int(exp); i++ {
			result *= 10
		}
		return result
	}
	for i := 0; i < int(-exp); i++ {
		result /= 10
	}
	return result
}
