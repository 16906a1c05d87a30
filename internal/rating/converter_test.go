package rating

import (
	"math"
	"testing"

	"github.com/magic3t/server/internal/models"
)

// With the default config (base 400, league length 400, base index 1) the
// point projection collapses to floor(score), which keeps expectations
// readable.
func defaultRecord(score float64, matches int) models.RatingRecord {
	return models.RatingRecord{Score: score, K: 40, Matches: matches}
}

func TestTotalPointsMonotonicInScore(t *testing.T) {
	c := NewConverter(DefaultConfig())
	prev := -1
	for score := 0.0; score <= 2200; score += 37 {
		tp := c.TotalPoints(defaultRecord(score, 10))
		if tp < prev {
			t.Fatalf("totalPoints decreased at score %v: %d < %d", score, tp, prev)
		}
		prev = tp
	}
}

func TestConvertTiering(t *testing.T) {
	c := NewConverter(DefaultConfig())

	tests := []struct {
		name       string
		score      float64
		challenger bool
		league     models.League
		division   int // 0 means nil expected
		lp         int
	}{
		{"bronze floor", 0, false, models.LeagueBronze, 4, 0},
		{"bronze IV mid", 50, false, models.LeagueBronze, 4, 50},
		{"bronze I", 399, false, models.LeagueBronze, 1, 99},
		{"silver IV", 400, false, models.LeagueSilver, 4, 0},
		{"gold II", 1050, false, models.LeagueGold, 2, 50},
		{"diamond III", 1325, false, models.LeagueDiamond, 3, 25},
		{"diamond I edge", 1599, false, models.LeagueDiamond, 1, 99},
		{"master entry", 1600, false, models.LeagueMaster, 0, 0},
		{"master deep", 1875, false, models.LeagueMaster, 0, 275},
		{"challenger flag", 1875, true, models.LeagueChallenger, 0, 275},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := defaultRecord(tt.score, 10)
			rec.Challenger = tt.challenger
			view := c.Convert(rec)

			if view.Provisional {
				t.Fatal("established record reported provisional")
			}
			if view.League == nil || *view.League != tt.league {
				t.Fatalf("league = %v, want %s", view.League, tt.league)
			}
			if tt.division == 0 {
				if view.Division != nil {
					t.Errorf("division = %v, want nil at Master+", *view.Division)
				}
			} else if view.Division == nil || *view.Division != tt.division {
				t.Errorf("division = %v, want %d", view.Division, tt.division)
			}
			if view.LeaguePoints == nil || *view.LeaguePoints != tt.lp {
				t.Errorf("lp = %v, want %d", view.LeaguePoints, tt.lp)
			}
		})
	}
}

func TestConvertProvisional(t *testing.T) {
	c := NewConverter(DefaultConfig())

	for matches := 0; matches < 5; matches++ {
		view := c.Convert(defaultRecord(1000, matches))
		if !view.Provisional {
			t.Errorf("matches=%d: not provisional", matches)
		}
		if view.League != nil || view.Division != nil || view.LeaguePoints != nil {
			t.Errorf("matches=%d: provisional view leaked league data", matches)
		}
		if want := matches * 20; view.Bo5Progress != want {
			t.Errorf("matches=%d: progress = %d, want %d", matches, view.Bo5Progress, want)
		}
	}

	if view := c.Convert(defaultRecord(1000, 5)); view.Provisional {
		t.Error("matches=5 still provisional")
	}
}

func TestExpectedScore(t *testing.T) {
	c := NewConverter(DefaultConfig())

	a := defaultRecord(800, 10)
	if got := c.ExpectedScore(a, a); got != 0.5 {
		t.Errorf("expectedScore(x,x) = %v, want 0.5", got)
	}

	b := defaultRecord(1200, 10)
	ea := c.ExpectedScore(a, b)
	eb := c.ExpectedScore(b, a)
	if ea >= 0.5 {
		t.Errorf("underdog expectation = %v, want < 0.5", ea)
	}
	if math.Abs(ea+eb-1) > 1e-12 {
		t.Errorf("expectations sum to %v, want 1", ea+eb)
	}
	// 400 points of difference is the canonical 10:1 odds.
	if math.Abs(eb-10.0/11.0) > 1e-12 {
		t.Errorf("favorite expectation = %v, want 10/11", eb)
	}
}

func TestUpdateRatingsSymmetricExchange(t *testing.T) {
	c := NewConverter(DefaultConfig())
	self := defaultRecord(600, 10)
	opponent := defaultRecord(600, 10)

	newSelf, newOpponent, selfDelta, opponentDelta := c.UpdateRatings(self, opponent, 1)

	if newSelf.Score != 620 {
		t.Errorf("winner score = %v, want 620", newSelf.Score)
	}
	if newOpponent.Score != 580 {
		t.Errorf("loser score = %v, want 580", newOpponent.Score)
	}
	if selfDelta != 20 || opponentDelta != -20 {
		t.Errorf("deltas = %d/%d, want 20/-20", selfDelta, opponentDelta)
	}
	if newSelf.Matches != 11 || newOpponent.Matches != 11 {
		t.Error("match counts not incremented")
	}

	// Inputs must be untouched: the converter is pure.
	if self.Score != 600 || opponent.Score != 600 || self.Matches != 10 {
		t.Error("UpdateRatings mutated its inputs")
	}
}

func TestUpdateRatingsDrawMovesNobodyAtParity(t *testing.T) {
	c := NewConverter(DefaultConfig())
	self := defaultRecord(600, 10)
	opponent := defaultRecord(600, 10)

	newSelf, newOpponent, selfDelta, opponentDelta := c.UpdateRatings(self, opponent, 0.5)

	if newSelf.Score != 600 || newOpponent.Score != 600 {
		t.Errorf("scores = %v/%v, want 600/600", newSelf.Score, newOpponent.Score)
	}
	if selfDelta != 0 || opponentDelta != 0 {
		t.Errorf("deltas = %d/%d, want 0/0", selfDelta, opponentDelta)
	}
}

func TestUpdateRatingsProvisionalYieldsZeroDelta(t *testing.T) {
	c := NewConverter(DefaultConfig())
	rookie := models.RatingRecord{Score: 400, K: 96, Matches: 0}
	veteran := defaultRecord(600, 50)

	newRookie, newVeteran, rookieDelta, veteranDelta := c.UpdateRatings(rookie, veteran, 1)

	if rookieDelta != 0 || veteranDelta != 0 {
		t.Errorf("deltas = %d/%d, want 0/0 with a provisional side", rookieDelta, veteranDelta)
	}
	// Scores still move; only the presented LP delta is suppressed.
	if newRookie.Score <= rookie.Score {
		t.Error("provisional winner's score did not increase")
	}
	if newVeteran.Score >= veteran.Score {
		t.Error("established loser's score did not decrease")
	}
}

func TestKFactorDeflation(t *testing.T) {
	c := NewConverter(DefaultConfig())

	self := models.RatingRecord{Score: 600, K: 96, Matches: 10}
	opponent := models.RatingRecord{Score: 600, K: 96, Matches: 10}
	newSelf, _, _, _ := c.UpdateRatings(self, opponent, 0.5)

	want := 40*0.06 + 96*0.94
	if math.Abs(newSelf.K-want) > 1e-9 {
		t.Errorf("deflated k = %v, want %v", newSelf.K, want)
	}

	// Within half a point of the floor the k snaps.
	self.K, opponent.K = 40.4, 40.4
	newSelf, _, _, _ = c.UpdateRatings(self, opponent, 0.5)
	if newSelf.K != 40 {
		t.Errorf("near-floor k = %v, want exactly 40", newSelf.K)
	}

	// The floor is a fixed point.
	self.K, opponent.K = 40, 40
	newSelf, _, _, _ = c.UpdateRatings(self, opponent, 0.5)
	if newSelf.K != 40 {
		t.Errorf("floored k = %v, want 40", newSelf.K)
	}
}

func TestChallengerRevokedBelowMaster(t *testing.T) {
	c := NewConverter(DefaultConfig())

	self := models.RatingRecord{Score: 1610, K: 40, Matches: 100, Challenger: true}
	opponent := defaultRecord(1610, 100)

	newSelf, _, _, _ := c.UpdateRatings(self, opponent, 0)
	if c.TotalPoints(newSelf) >= MasterThreshold {
		t.Fatalf("test setup: loser still at %d points", c.TotalPoints(newSelf))
	}
	if newSelf.Challenger {
		t.Error("challenger flag survived dropping out of Master")
	}
}

func TestIsChallengerEligible(t *testing.T) {
	c := NewConverter(DefaultConfig())

	tests := []struct {
		name string
		rec  models.RatingRecord
		want bool
	}{
		{"deep master", defaultRecord(1800, 50), true},
		{"threshold exactly", defaultRecord(1700, 50), true},
		{"low master", defaultRecord(1650, 50), false},
		{"provisional whale", models.RatingRecord{Score: 1800, K: 96, Matches: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsChallengerEligible(tt.rec); got != tt.want {
				t.Errorf("eligible = %v, want %v", got, tt.want)
			}
		})
	}
}
