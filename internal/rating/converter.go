package rating

import (
	"math"

	"github.com/magic3t/server/internal/models"
)

// Point layout of the ladder. Bronze through Diamond span 400 points each;
// everything from 1600 up is Master territory.
const (
	PointsPerLeague   = 400
	PointsPerDivision = 100
	MasterThreshold   = 4 * PointsPerLeague
	// ChallengerThreshold is 100 LP into Master; an external periodic job
	// reassigns the single Challenger slot among eligible players.
	ChallengerThreshold = MasterThreshold + PointsPerDivision
)

var belowMaster = [4]models.League{
	models.LeagueBronze,
	models.LeagueSilver,
	models.LeagueGold,
	models.LeagueDiamond,
}

// Config is the converter's injected tunable snapshot. It is never read
// from globals.
type Config struct {
	BaseScore          float64 `yaml:"base_score"`
	LeagueLength       float64 `yaml:"league_length"`
	BaseLeagueIndex    float64 `yaml:"base_league_index"`
	KFloor             float64 `yaml:"k_floor"`
	KDeflationFactor   float64 `yaml:"k_deflation_factor"`
	ProvisionalMatches int     `yaml:"provisional_matches"`
}

// DefaultConfig returns the ladder tuning used in production.
func DefaultConfig() Config {
	return Config{
		BaseScore:          400,
		LeagueLength:       400,
		BaseLeagueIndex:    1,
		KFloor:             40,
		KDeflationFactor:   0.06,
		ProvisionalMatches: 5,
	}
}

// Converter maps persisted rating records to league presentation and
// computes post-match updates. Every method is deterministic and
// side-effect-free given identical inputs.
type Converter struct {
	cfg Config
}

func NewConverter(cfg Config) Converter {
	return Converter{cfg: cfg}
}

// Provisional reports whether rec has not yet completed its placement
// matches.
func (c Converter) Provisional(rec models.RatingRecord) bool {
	return rec.Matches < c.cfg.ProvisionalMatches
}

// TotalPoints projects the raw score onto the ladder's point scale. Only
// meaningful post-provisional; floored at zero.
func (c Converter) TotalPoints(rec models.RatingRecord) int {
	tp := int(math.Floor(PointsPerLeague * ((rec.Score-c.cfg.BaseScore)/c.cfg.LeagueLength + c.cfg.BaseLeagueIndex)))
	if tp < 0 {
		return 0
	}
	return tp
}

// Convert derives the league/division/LP view of a record. Provisional
// records get a nil league and a placement progress percentage instead.
func (c Converter) Convert(rec models.RatingRecord) models.RatingView {
	if c.Provisional(rec) {
		progress := rec.Matches * 100 / c.cfg.ProvisionalMatches
		if progress > 100 {
			progress = 100
		}
		return models.RatingView{Provisional: true, Bo5Progress: progress}
	}

	tp := c.TotalPoints(rec)
	view := models.RatingView{Bo5Progress: 100}

	if tp >= MasterThreshold {
		league := models.LeagueMaster
		if rec.Challenger {
			league = models.LeagueChallenger
		}
		lp := tp - MasterThreshold
		view.League = &league
		view.LeaguePoints = &lp
		return view
	}

	league := belowMaster[tp/PointsPerLeague]
	// Divisions count down IV -> I as points rise within a league.
	division := 4 - (tp%PointsPerLeague)/PointsPerDivision
	lp := tp % PointsPerDivision
	view.League = &league
	view.Division = &division
	view.LeaguePoints = &lp
	return view
}

// ExpectedScore is the logistic win expectation of self against opponent.
func (c Converter) ExpectedScore(self, opponent models.RatingRecord) float64 {
	return 1 / (1 + math.Pow(10, (opponent.Score-self.Score)/PointsPerLeague))
}

// deflate geometrically decays k toward the floor, snapping once within
// half a point of it.
func (c Converter) deflate(k float64) float64 {
	next := c.cfg.KFloor*c.cfg.KDeflationFactor + k*(1-c.cfg.KDeflationFactor)
	if next-c.cfg.KFloor < 0.5 {
		return c.cfg.KFloor
	}
	return next
}

// UpdateRatings applies one match outcome (actualScore is self's final
// score, 0..1) to both records and returns the updated records plus each
// side's league-point delta. Deltas are zero whenever either side was still
// provisional before the update. Challenger status is revoked if the new
// points fall out of Master.
func (c Converter) UpdateRatings(self, opponent models.RatingRecord, actualScore float64) (newSelf, newOpponent models.RatingRecord, selfDelta, opponentDelta int) {
	provisional := c.Provisional(self) || c.Provisional(opponent)
	selfBefore := c.TotalPoints(self)
	opponentBefore := c.TotalPoints(opponent)

	surprise := actualScore - c.ExpectedScore(self, opponent)

	newSelf = self
	newOpponent = opponent
	newSelf.Score += surprise * self.K
	newOpponent.Score -= surprise * opponent.K
	newSelf.Matches++
	newOpponent.Matches++
	newSelf.K = c.deflate(self.K)
	newOpponent.K = c.deflate(opponent.K)

	if newSelf.Challenger && c.TotalPoints(newSelf) < MasterThreshold {
		newSelf.Challenger = false
	}
	if newOpponent.Challenger && c.TotalPoints(newOpponent) < MasterThreshold {
		newOpponent.Challenger = false
	}

	if provisional {
		return newSelf, newOpponent, 0, 0
	}
	return newSelf, newOpponent,
		c.TotalPoints(newSelf) - selfBefore,
		c.TotalPoints(newOpponent) - opponentBefore
}

// IsChallengerEligible reports whether rec qualifies for the Challenger
// slot.
func (c Converter) IsChallengerEligible(rec models.RatingRecord) bool {
	return !c.Provisional(rec) && c.TotalPoints(rec) >= ChallengerThreshold
}
