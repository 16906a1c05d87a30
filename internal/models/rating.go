package models

// League is the tiered presentation of a raw numeric rating.
type League string

const (
	LeagueBronze     League = "BRONZE"
	LeagueSilver     League = "SILVER"
	LeagueGold       League = "GOLD"
	LeagueDiamond    League = "DIAMOND"
	LeagueMaster     League = "MASTER"
	LeagueChallenger League = "CHALLENGER"
)

// RatingRecord is the persisted rating state for one user.
type RatingRecord struct {
	Score      float64 `json:"score"`
	K          float64 `json:"k"`
	Matches    int     `json:"matches"`
	Challenger bool    `json:"challenger"`
}

// RatingView is the derived read-only presentation of a RatingRecord.
// League, Division and LeaguePoints are nil while the record is provisional.
type RatingView struct {
	League       *League `json:"league,omitempty"`
	Division     *int    `json:"division,omitempty"` // 1-4, nil at Master and above
	LeaguePoints *int    `json:"league_points,omitempty"`
	Provisional  bool    `json:"provisional"`
	Bo5Progress  int     `json:"bo5_progress"` // placement progress, 0-100
}
