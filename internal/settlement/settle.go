// Package settlement converts a debate's wager pool and outcome into
// per-wagerer payout amounts. It is pure: persistence and transfer are the
// caller's concern.
package settlement

import (
	"fmt"
	"math/big"

	"github.com/arenalabs/debatearena/internal/domain"
)

// MaxFeeBps caps the platform fee at 10%.
const MaxFeeBps = 1000

// Settle computes payouts for the given wagers.
//
// winner == nil means a draw or a cancellation without a winner: every wager
// is refunded at full amount. Otherwise the platform fee (feeBps of the
// total pool) is reserved and each winning wager receives its pool share,
// floor-rounded. Losing wagers receive 0. When all money sits on the losing
// side there is no winning pool to distribute from, so every payout is 0.
func Settle(wagers []domain.Wager, winner *domain.Side, feeBps int) ([]domain.Payout, error) {
	if feeBps < 0 || feeBps > MaxFeeBps {
		return nil, fmt.Errorf("settlement: fee %d bps out of range [0,%d]", feeBps, MaxFeeBps)
	}

	payouts := make([]domain.Payout, 0, len(wagers))

	if winner == nil {
		for _, w := range wagers {
			payouts = append(payouts, domain.Payout{
				WagerID:   w.ID,
				WagererID: w.WagererID,
				Amount:    w.Amount,
			})
		}
		return payouts, nil
	}

	var totalPool, winningPool int64
	for _, w := range wagers {
		totalPool += w.Amount
		if w.Side == *winner {
			winningPool += w.Amount
		}
	}

	fee := totalPool * int64(feeBps) / 10000
	payoutPool := totalPool - fee

	for _, w := range wagers {
		var amount int64
		if w.Side == *winner && winningPool > 0 {
			amount = poolShare(payoutPool, w.Amount, winningPool)
		}
		payouts = append(payouts, domain.Payout{
			WagerID:   w.ID,
			WagererID: w.WagererID,
			Amount:    amount,
		})
	}

	return payouts, nil
}

// poolShare computes floor(pool * amount / winningPool) without overflowing
// int64 on the intermediate product.
func poolShare(pool, amount, winningPool int64) int64 {
	p := new(big.Int).SetInt64(pool)
	p.Mul(p, big.NewInt(amount))
	p.Quo(p, big.NewInt(winningPool))
	return p.Int64()
}
