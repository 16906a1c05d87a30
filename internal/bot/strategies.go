package bot

import (
	"math/rand"

	"github.com/magic3t/server/internal/models"
)

// Strategy selects the next choice given both sides' claims. own and taken
// by the opponent never overlap.
type Strategy interface {
	SelectChoice(own, opponent []models.Choice) models.Choice
}

// RandomStrategy picks uniformly among the free choices.
type RandomStrategy struct {
	rng *rand.Rand
}

func NewRandomStrategy(rng *rand.Rand) *RandomStrategy {
	return &RandomStrategy{rng: rng}
}

func (s *RandomStrategy) SelectChoice(own, opponent []models.Choice) models.Choice {
	free := freeChoices(own, opponent)
	return free[s.rng.Intn(len(free))]
}

// GreedyStrategy completes its own winning triple when one is available,
// otherwise blocks the opponent's, otherwise falls back to random.
type GreedyStrategy struct {
	fallback *RandomStrategy
}

func NewGreedyStrategy(rng *rand.Rand) *GreedyStrategy {
	return &GreedyStrategy{fallback: NewRandomStrategy(rng)}
}

func (s *GreedyStrategy) SelectChoice(own, opponent []models.Choice) models.Choice {
	free := freeChoices(own, opponent)
	if c, ok := completingChoice(own, free); ok {
		return c
	}
	if c, ok := completingChoice(opponent, free); ok {
		return c
	}
	return s.fallback.SelectChoice(own, opponent)
}

// completingChoice finds a free choice that joins two of held into a triple
// summing to 15.
func completingChoice(held, free []models.Choice) (models.Choice, bool) {
	for _, c := range free {
		for i := 0; i < len(held); i++ {
			for j := i + 1; j < len(held); j++ {
				if held[i]+held[j]+c == 15 {
					return c, true
				}
			}
		}
	}
	return 0, false
}

func freeChoices(own, opponent []models.Choice) []models.Choice {
	taken := make(map[models.Choice]bool, len(own)+len(opponent))
	for _, c := range own {
		taken[c] = true
	}
	for _, c := range opponent {
		taken[c] = true
	}
	free := make([]models.Choice, 0, int(models.MaxChoice))
	for c := models.MinChoice; c <= models.MaxChoice; c++ {
		if !taken[c] {
			free = append(free, c)
		}
	}
	return free
}
