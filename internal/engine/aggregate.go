package engine

import (
	"fmt"
	"sort"

	"github.com/finapp/advisor-engine/internal/models"
)

// vote accumulates the weighted signal for one candidate label of a dimension.
type vote struct {
	score    float64
	lastStep int // highest step index that contributed this label
	lastOpt  int // option position within that step
}

// Aggregate derives a user profile from a session's accepted responses and the
// advisor's option weights. Each choice answer adds weight*confidence to its
// option's label under the dimension mapped from the step's category. The
// winning label per dimension is the highest accumulated score; exact ties go
// to the label stated at the later step, so a revised answer overrides an
// earlier, tentative one.
//
// Responses referencing a question id absent from the current catalog version
// are skipped and reported in the profile's warnings; a partial profile beats
// a hard failure when content evolves under a long-lived session. A dimension
// with no contributing responses is reported null with confidence 0, never
// guessed.
func Aggregate(def *models.AdvisorDefinition, responses []models.Response) models.UserProfile {
	votes := make(map[models.Dimension]map[string]*vote)

	var goals []string
	goalSeen := make(map[string]bool)
	goalConfSum := 0.0
	goalCount := 0

	var warnings []string

	for _, resp := range responses {
		stepIdx, step := def.StepByID(resp.QuestionID)
		if step == nil {
			warnings = append(warnings, fmt.Sprintf(
				"response for question %q skipped: not present in catalog version %s",
				resp.QuestionID, def.Version))
			continue
		}
		if resp.Answer.IsEmpty() {
			continue // skipped optional step
		}

		dim, ok := models.CategoryDimension(step.Category)
		if !ok {
			continue // unreachable: categories are validated at catalog load
		}

		selected := resp.Answer.SelectedValues()

		if dim == models.DimensionPrimaryGoals {
			// Goals accumulate as a set: every selected value contributes,
			// not just the top-scoring one.
			contributed := false
			for _, v := range selected {
				if step.Option(v) == nil {
					continue
				}
				if !goalSeen[v] {
					goalSeen[v] = true
					goals = append(goals, v)
				}
				contributed = true
			}
			if contributed {
				goalConfSum += resp.Confidence
				goalCount++
			}
			continue
		}

		for _, v := range selected {
			opt := step.Option(v)
			if opt == nil {
				continue
			}
			m := votes[dim]
			if m == nil {
				m = make(map[string]*vote)
				votes[dim] = m
			}
			vt := m[v]
			if vt == nil {
				vt = &vote{lastStep: -1}
				m[v] = vt
			}
			vt.score += opt.Weight * resp.Confidence
			if stepIdx >= vt.lastStep {
				vt.lastStep = stepIdx
				vt.lastOpt = optionIndex(step, v)
			}
		}
	}

	profile := models.UserProfile{
		RiskTolerance:       winningLabel(votes[models.DimensionRiskTolerance]),
		FinancialExperience: winningLabel(votes[models.DimensionFinancialExperience]),
		DecisionStyle:       winningLabel(votes[models.DimensionDecisionStyle]),
		LifeStage:           winningLabel(votes[models.DimensionLifeStage]),
		PrimaryGoals:        goals,
		Warnings:            warnings,
	}
	if goalCount > 0 {
		profile.GoalsConfidence = goalConfSum / float64(goalCount)
	}
	return profile
}

// winningLabel picks the dimension's label: highest accumulated score, ties
// broken by later step, then later option position, then label order for a
// fully deterministic result. Confidence is the winner's share of the
// dimension's total accumulated score.
func winningLabel(m map[string]*vote) models.DimensionScore {
	if len(m) == 0 {
		return models.DimensionScore{}
	}

	labels := make([]string, 0, len(m))
	total := 0.0
	for label, vt := range m {
		labels = append(labels, label)
		total += vt.score
	}

	sort.Slice(labels, func(i, j int) bool {
		a, b := m[labels[i]], m[labels[j]]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.lastStep != b.lastStep {
			return a.lastStep > b.lastStep
		}
		if a.lastOpt != b.lastOpt {
			return a.lastOpt > b.lastOpt
		}
		return labels[i] < labels[j]
	})

	best := labels[0]
	score := models.DimensionScore{Label: best}
	if total > 0 {
		score.Confidence = m[best].score / total
	}
	return score
}

func optionIndex(step *models.QuestionStep, value string) int {
	for i := range step.Options {
		if step.Options[i].Value == value {
			return i
		}
	}
	return -1
}
