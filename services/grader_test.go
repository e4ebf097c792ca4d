package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "paris", NormalizeText("  Paris!  "))
	assert.Equal(t, "william shakespeare", NormalizeText("William   Shakespeare"))
	assert.Equal(t, "forty-two", NormalizeText("Forty-Two?"))
	assert.Equal(t, "upland in", NormalizeText("Upland, IN"))
	assert.Equal(t, "", NormalizeText("?!.,"))
}

func TestGradeExactMatchIsCorrect(t *testing.T) {
	answers := []string{
		"Paris",
		"William Shakespeare",
		"H2O",
		"Nina, Pinta, and Santa Maria",
	}
	for _, answer := range answers {
		assert.Equal(t, ResultCorrect, GradeAnswer(answer, answer), "answer %q", answer)
	}

	// Differences in case, punctuation and spacing still match exactly.
	assert.Equal(t, ResultCorrect, GradeAnswer("  paris! ", "Paris"))
	assert.Equal(t, ResultCorrect, GradeAnswer("william   SHAKESPEARE", "William Shakespeare"))
}

func TestGradeEmptyAnswerIsWrong(t *testing.T) {
	assert.Equal(t, ResultWrong, GradeAnswer("", "Paris"))
	assert.Equal(t, ResultWrong, GradeAnswer("   ", "Paris"))
}

func TestGradeEmptyReferenceIsWrong(t *testing.T) {
	// Guards against cards configured with no answer.
	assert.Equal(t, ResultWrong, GradeAnswer("anything", ""))
	assert.Equal(t, ResultWrong, GradeAnswer("anything", "?!"))
}

func TestGradeHalfCreditAtWordOverlapThreshold(t *testing.T) {
	// Reference words {nina, pinta, and, santa, maria}: 3 of 5 match.
	assert.Equal(t, ResultHalf, GradeAnswer("Nina and Pinta", "Nina, Pinta, and Santa Maria"))

	// Exactly 50% of the reference words is enough.
	assert.Equal(t, ResultHalf, GradeAnswer("George Washington", "George Washington Carver Jr"))

	// Below 50% is wrong even with some overlap.
	assert.Equal(t, ResultWrong, GradeAnswer("Santa", "Nina, Pinta, and Santa Maria"))
}

func TestGradeNoOverlapIsWrong(t *testing.T) {
	assert.Equal(t, ResultWrong, GradeAnswer("Jupiter", "Mars"))
	assert.Equal(t, ResultWrong, GradeAnswer("the red planet", "Mars"))
}
