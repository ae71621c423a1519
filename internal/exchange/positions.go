package exchange

import (
	"context"
	"log/slog"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/domain"
)

// BuildPositionSnapshot values every held asset in the quote currency. The
// reserve asset is valued at 1. Assets whose price lookup fails are skipped
// rather than failing the whole snapshot.
func BuildPositionSnapshot(ctx context.Context, ex Exchange, reserveAsset string) (domain.PositionSnapshot, error) {
	balances, err := ex.GetAllBalances(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(domain.PositionSnapshot, len(balances))
	for asset, bal := range balances {
		total := bal.Total()
		if total <= 0 {
			continue
		}

		price := 1.0
		if asset != reserveAsset {
			price, err = ex.GetPrice(ctx, asset+reserveAsset)
			if err != nil {
				slog.Warn("Skipping unpriceable asset in position snapshot",
					slog.String("asset", asset),
					slog.Any("error", err))
				continue
			}
		}

		snapshot[asset] = domain.Position{
			Amount:       total,
			CurrentPrice: price,
			USDValue:     total * price,
			Free:         bal.Free,
			Locked:       bal.Locked,
		}
	}
	return snapshot, nil
}
