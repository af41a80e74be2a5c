package trip

import (
	"regexp"
	"strings"
)

// classifierRule pairs a predicate with the category it selects. Rules are
// evaluated in declaration order and the first hit wins, so more specific
// contexts must come before rideshare vocabulary: an Uber screenshot can
// incidentally contain expense-like substrings, never the reverse.
type classifierRule struct {
	category Category
	match    func(textLower string) bool
}

var (
	flightPathPattern = regexp.MustCompile(`flight\s+path`)
	radarImagePattern = regexp.MustCompile(`radar\s+image`)
)

var expenseKeywords = []string{
	"starbucks", "mcdonald", "tacobell", "shell", "chevron",
	"circle k", "7-eleven", "costco gas", "fuel", "gasoline",
}

var rideshareKeywords = []string{
	"uber", "trip detail", "rider payment", "your earnings", "picking up",
}

var classifierRules = []classifierRule{
	{CategoryAviation, func(t string) bool {
		return strings.Contains(t, "flightradar24") || flightPathPattern.MatchString(t)
	}},
	{CategoryEnvironmental, func(t string) bool {
		return strings.Contains(t, "weatherwise") || radarImagePattern.MatchString(t)
	}},
	{CategoryExpense, func(t string) bool {
		return containsAny(t, expenseKeywords)
	}},
	{CategoryUberCore, func(t string) bool {
		return containsAny(t, rideshareKeywords)
	}},
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Classify maps raw OCR text to a trip category. Pure and deterministic.
func Classify(text string) Category {
	if strings.TrimSpace(text) == "" {
		return CategoryUnknown
	}

	lower := strings.ToLower(text)
	for _, rule := range classifierRules {
		if rule.match(lower) {
			return rule.category
		}
	}
	return CategoryUnknown
}
