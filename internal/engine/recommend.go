package engine

import (
	"fmt"
	"math"

	"github.com/finapp/advisor-engine/internal/models"
)

// Recommend selects the best-matching row of the advisor's decision table for
// a profile. A row is eligible when none of its set criteria contradicts a
// non-null profile dimension; null dimensions are neutral (best-effort match).
// Eligible rows are scored by the count of matching non-null dimensions; the
// highest score wins, first-defined row on a full tie. No eligible row at all
// is a content defect and fails with ErrNoApplicableRecommendation rather than
// defaulting to generic advice.
func Recommend(def *models.AdvisorDefinition, profile *models.UserProfile) (*models.DecisionRow, error) {
	bestIdx := -1
	bestScore := -1

	for i := range def.DecisionTable {
		row := &def.DecisionTable[i]
		score, eligible := matchRow(row, profile)
		if !eligible {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil, fmt.Errorf("%w: advisor %s has no decision row compatible with profile", ErrNoApplicableRecommendation, def.ID)
	}
	return &def.DecisionTable[bestIdx], nil
}

// matchRow returns the row's match count against the profile and whether the
// row is eligible at all.
func matchRow(row *models.DecisionRow, profile *models.UserProfile) (int, bool) {
	score := 0

	if row.RiskTolerance != "" && !profile.RiskTolerance.IsNull() {
		if row.RiskTolerance != profile.RiskTolerance.Label {
			return 0, false
		}
		score++
	}

	if row.Experience != "" && !profile.FinancialExperience.IsNull() {
		if row.Experience != profile.FinancialExperience.Label {
			return 0, false
		}
		score++
	}

	if len(row.Goals) > 0 && len(profile.PrimaryGoals) > 0 {
		if !goalsOverlap(row.Goals, profile.PrimaryGoals) {
			return 0, false
		}
		score++
	}

	return score, true
}

func goalsOverlap(rowGoals, profileGoals []string) bool {
	set := make(map[string]bool, len(profileGoals))
	for _, g := range profileGoals {
		set[g] = true
	}
	for _, g := range rowGoals {
		if set[g] {
			return true
		}
	}
	return false
}

// PersonalizationScore measures how much real signal fed the recommendation:
// round(100 * nonNullDimensions/totalDimensions * meanConfidence). Transparent
// and reproducible, not a magic number.
func PersonalizationScore(profile *models.UserProfile) int {
	nonNull, meanConfidence := profile.NonNullDimensions()
	if nonNull == 0 {
		return 0
	}
	score := 100 * (float64(nonNull) / float64(models.TotalDimensions)) * meanConfidence
	return int(math.Round(score))
}
