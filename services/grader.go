package services

import (
	"regexp"
	"strings"
)

// GradeResult classifies a submitted answer against the card's back side.
type GradeResult string

const (
	ResultCorrect GradeResult = "correct"
	ResultHalf    GradeResult = "half"
	ResultWrong   GradeResult = "wrong"
)

var (
	punctuationRe = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases, strips punctuation (keeping word characters,
// whitespace and hyphens) and collapses whitespace runs so answers compare
// flexibly.
func NormalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctuationRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// GradeAnswer grades a user's answer as correct, half or wrong.
//
// An exact match after normalization is correct. Otherwise the answer earns
// half credit when its words cover at least 50% of the reference answer's
// words. Pure function, safe for concurrent use.
func GradeAnswer(userAnswer, correctAnswer string) GradeResult {
	normalizedUser := NormalizeText(userAnswer)
	normalizedCorrect := NormalizeText(correctAnswer)

	if normalizedUser == normalizedCorrect {
		return ResultCorrect
	}

	correctWords := wordSet(normalizedCorrect)
	if len(correctWords) == 0 {
		return ResultWrong
	}
	userWords := wordSet(normalizedUser)

	matching := 0
	for word := range userWords {
		if correctWords[word] {
			matching++
		}
	}

	if matching > 0 && float64(matching) >= float64(len(correctWords))*0.5 {
		return ResultHalf
	}
	return ResultWrong
}

func wordSet(text string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		words[word] = true
	}
	return words
}
