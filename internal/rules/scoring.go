package rules

import (
	"fmt"
	"math"

	"github.com/tonearm/labelcore/internal/models"
)

const (
	titleViolationPenalty = 20
	descViolationPenalty  = 15
	genreAffinityMatch    = 100
	genreAffinityMiss     = 60
)

// analyzeListing scores how well an item's effective listing fits a platform
// profile. The overall score is the simple average of the title, description
// and genre sub-scores, each clamped to [0,100].
func analyzeListing(item *models.ContentItem, cfg *models.PlatformConfig, profile *models.PlatformProfile) models.PlatformAnalysis {
	analysis := models.PlatformAnalysis{
		Issues:      []string{},
		Suggestions: []string{},
		Strengths:   []string{},
	}

	title := cfg.EffectiveTitle(item.Title)
	desc := item.Description
	if cfg.DescOverride != nil {
		desc = *cfg.DescOverride
	}

	titleScore := 100
	if profile.MaxTitleLen > 0 && len(title) > profile.MaxTitleLen {
		titleScore -= titleViolationPenalty
		analysis.Issues = append(analysis.Issues,
			fmt.Sprintf("title exceeds %s's %d-character limit", profile.Key, profile.MaxTitleLen))
		analysis.Suggestions = append(analysis.Suggestions,
			fmt.Sprintf("shorten the title to at most %d characters", profile.MaxTitleLen))
	}
	if profile.MinTitleLen > 0 && len(title) < profile.MinTitleLen {
		titleScore -= titleViolationPenalty
		analysis.Issues = append(analysis.Issues,
			fmt.Sprintf("title is shorter than %s's %d-character floor", profile.Key, profile.MinTitleLen))
		analysis.Suggestions = append(analysis.Suggestions, "expand the title with artist or edition details")
	}
	if titleScore == 100 {
		analysis.Strengths = append(analysis.Strengths, "title length fits the platform")
	}

	descScore := 100
	if profile.MaxDescLen > 0 && len(desc) > profile.MaxDescLen {
		descScore -= descViolationPenalty
		analysis.Issues = append(analysis.Issues,
			fmt.Sprintf("description exceeds %s's %d-character limit", profile.Key, profile.MaxDescLen))
		analysis.Suggestions = append(analysis.Suggestions,
			fmt.Sprintf("trim the description to at most %d characters", profile.MaxDescLen))
	}
	if profile.MinDescLen > 0 && len(desc) < profile.MinDescLen {
		descScore -= descViolationPenalty
		analysis.Issues = append(analysis.Issues, "description is too short for this platform")
		analysis.Suggestions = append(analysis.Suggestions, "add track listing or synopsis details to the description")
	}

	genreScore := genreAffinityMiss
	if profile.PrefersGenre(item.Genre) {
		genreScore = genreAffinityMatch
		analysis.Strengths = append(analysis.Strengths,
			fmt.Sprintf("genre %q is preferred on %s", item.Genre, profile.Key))
	} else if item.Genre != "" {
		analysis.Suggestions = append(analysis.Suggestions,
			fmt.Sprintf("consider cross-tagging: %q is not a preferred genre on %s", item.Genre, profile.Key))
	}

	titleScore = clampScore(titleScore)
	descScore = clampScore(descScore)
	genreScore = clampScore(genreScore)

	analysis.Score = (titleScore + descScore + genreScore) / 3
	return analysis
}

// audienceMatch derives a 0-100 audience fit score from genre affinity and
// marketplace competition.
func audienceMatch(item *models.ContentItem, profile *models.PlatformProfile) int {
	score := 55
	if profile.PrefersGenre(item.Genre) {
		score = 85
	}
	switch profile.Competition {
	case models.CompetitionLow:
		score += 10
	case models.CompetitionHigh:
		score -= 10
	}
	return clampScore(score)
}

// classifyImpact grades a suggested price change by relative magnitude:
// above 15% is high, above 5% medium, otherwise low.
func classifyImpact(currentPrice, suggestedPrice float64) models.Impact {
	if currentPrice == 0 {
		return models.ImpactLow
	}
	ratio := math.Abs(suggestedPrice-currentPrice) / currentPrice
	switch {
	case ratio > 0.15:
		return models.ImpactHigh
	case ratio > 0.05:
		return models.ImpactMedium
	default:
		return models.ImpactLow
	}
}

// confidence is a bounded pseudo-metric reflecting how much signal backed an
// evaluation. It is a pure function of its inputs, so identical metrics and
// rules always reproduce the same value.
func confidence(m Metrics, analysisScore, firedRules int) int {
	score := 40

	// Sample size: up to +30 for metric coverage.
	coverage := len(m.Values) * 5
	if coverage > 30 {
		coverage = 30
	}
	score += coverage

	// Historical windows make change-based signals trustworthy.
	if len(m.History) > 0 {
		score += 10
	}

	// A strong listing analysis supports the suggestion.
	if analysisScore >= 80 {
		score += 10
	}

	// Corroborating rules, capped.
	if firedRules > 2 {
		firedRules = 2
	}
	score += firedRules * 5

	return clampScore(score)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
