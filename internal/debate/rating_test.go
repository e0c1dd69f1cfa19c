package debate

import (
	"testing"

	"github.com/arenalabs/debatearena/internal/domain"
)

func sidePtr(s domain.Side) *domain.Side { return &s }

func TestNextRatingsEqualOpponents(t *testing.T) {
	pro, con := NextRatings(1200, 1200, sidePtr(domain.SidePro))
	if pro != 1216 || con != 1184 {
		t.Fatalf("got %d/%d, want 1216/1184", pro, con)
	}
}

func TestNextRatingsDrawLeavesEqualsUnchanged(t *testing.T) {
	pro, con := NextRatings(1200, 1200, nil)
	if pro != 1200 || con != 1200 {
		t.Fatalf("got %d/%d, want unchanged", pro, con)
	}
}

func TestNextRatingsUpsetMovesMorePoints(t *testing.T) {
	// An underdog beating a favorite gains more than a favorite beating
	// an underdog would.
	underdogPro, favoriteCon := NextRatings(1100, 1400, sidePtr(domain.SidePro))
	upsetGain := underdogPro - 1100
	upsetLoss := 1400 - favoriteCon

	favPro, underCon := NextRatings(1400, 1100, sidePtr(domain.SidePro))
	expectedGain := favPro - 1400
	expectedLoss := 1100 - underCon

	if upsetGain <= expectedGain {
		t.Fatalf("upset gain %d not greater than expected-result gain %d", upsetGain, expectedGain)
	}
	if upsetLoss <= expectedLoss {
		t.Fatalf("upset loss %d not greater than expected-result loss %d", upsetLoss, expectedLoss)
	}
}

func TestNextRatingsZeroSum(t *testing.T) {
	cases := []struct {
		pro, con int
		winner   *domain.Side
	}{
		{1200, 1200, sidePtr(domain.SidePro)},
		{1350, 1180, sidePtr(domain.SideCon)},
		{1500, 1100, nil},
		{1234, 1236, sidePtr(domain.SideCon)},
	}
	for _, tc := range cases {
		newPro, newCon := NextRatings(tc.pro, tc.con, tc.winner)
		before := tc.pro + tc.con
		after := newPro + newCon
		diff := after - before
		if diff < -1 || diff > 1 {
			t.Fatalf("NextRatings(%d, %d) not zero-sum: %d -> %d", tc.pro, tc.con, before, after)
		}
	}
}

func TestNextRatingsDrawFavorsUnderdog(t *testing.T) {
	pro, con := NextRatings(1100, 1400, nil)
	if pro <= 1100 {
		t.Fatalf("underdog rating %d did not rise on a draw", pro)
	}
	if con >= 1400 {
		t.Fatalf("favorite rating %d did not fall on a draw", con)
	}
}
