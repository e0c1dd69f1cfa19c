package settlement

import (
	"fmt"
	"testing"

	"github.com/arenalabs/debatearena/internal/domain"
)

func side(s domain.Side) *domain.Side { return &s }

func wager(id string, amount int64, s domain.Side) domain.Wager {
	return domain.Wager{ID: id, WagererID: "u-" + id, DebateID: "d1", Amount: amount, Side: s}
}

func sum(payouts []domain.Payout) int64 {
	var total int64
	for _, p := range payouts {
		total += p.Amount
	}
	return total
}

func TestSettleDrawRefundsEverything(t *testing.T) {
	wagers := []domain.Wager{
		wager("w1", 100, domain.SidePro),
		wager("w2", 250, domain.SideCon),
		wager("w3", 37, domain.SidePro),
	}

	payouts, err := Settle(wagers, nil, 1000)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if len(payouts) != len(wagers) {
		t.Fatalf("got %d payouts, want %d", len(payouts), len(wagers))
	}
	for i, p := range payouts {
		if p.Amount != wagers[i].Amount {
			t.Errorf("payout[%d] = %d, want refund %d", i, p.Amount, wagers[i].Amount)
		}
	}
	if sum(payouts) != 387 {
		t.Fatalf("total refunds = %d, want 387", sum(payouts))
	}
}

func TestSettleWinnerTakesFeeAdjustedPool(t *testing.T) {
	wagers := []domain.Wager{
		wager("w1", 300, domain.SidePro),
		wager("w2", 100, domain.SidePro),
		wager("w3", 600, domain.SideCon),
	}

	payouts, err := Settle(wagers, side(domain.SidePro), 1000)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	// totalPool=1000, fee=100, payoutPool=900, winningPool=400.
	if payouts[0].Amount != 675 { // 900*300/400
		t.Errorf("w1 payout = %d, want 675", payouts[0].Amount)
	}
	if payouts[1].Amount != 225 { // 900*100/400
		t.Errorf("w2 payout = %d, want 225", payouts[1].Amount)
	}
	if payouts[2].Amount != 0 {
		t.Errorf("losing wager payout = %d, want 0", payouts[2].Amount)
	}
}

// Property: with a winner and a non-empty winning pool, the payout total is
// totalPool*(1-fee) minus strictly less than one unit per winning wager in
// floor rounding loss.
func TestSettleFeeSumProperty(t *testing.T) {
	cases := [][]domain.Wager{
		{wager("a", 17, domain.SidePro), wager("b", 23, domain.SidePro), wager("c", 101, domain.SideCon)},
		{wager("a", 999999, domain.SidePro), wager("b", 1, domain.SidePro), wager("c", 7, domain.SideCon), wager("d", 13, domain.SideCon)},
		{wager("a", 1, domain.SidePro), wager("b", 1, domain.SideCon)},
	}

	for i, wagers := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			payouts, err := Settle(wagers, side(domain.SidePro), 500)
			if err != nil {
				t.Fatalf("Settle: %v", err)
			}

			var totalPool int64
			var winners int64
			for _, w := range wagers {
				totalPool += w.Amount
				if w.Side == domain.SidePro {
					winners++
				}
			}
			expected := totalPool - totalPool*500/10000
			got := sum(payouts)

			if got > expected {
				t.Fatalf("payouts %d exceed payout pool %d", got, expected)
			}
			if expected-got >= winners {
				t.Fatalf("rounding loss %d not < winning wager count %d", expected-got, winners)
			}
		})
	}
}

func TestSettleDegenerateAllOnLosingSide(t *testing.T) {
	wagers := []domain.Wager{
		wager("w1", 500, domain.SideCon),
		wager("w2", 250, domain.SideCon),
	}

	payouts, err := Settle(wagers, side(domain.SidePro), 1000)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	for i, p := range payouts {
		if p.Amount != 0 {
			t.Errorf("payout[%d] = %d, want 0", i, p.Amount)
		}
	}
}

func TestSettleRejectsOutOfRangeFee(t *testing.T) {
	if _, err := Settle(nil, nil, 1001); err == nil {
		t.Fatal("expected error for fee above cap")
	}
	if _, err := Settle(nil, nil, -1); err == nil {
		t.Fatal("expected error for negative fee")
	}
}

func TestSettleNoWagers(t *testing.T) {
	payouts, err := Settle(nil, side(domain.SideCon), 1000)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if len(payouts) != 0 {
		t.Fatalf("got %d payouts, want 0", len(payouts))
	}
}
