package app

import "course-assessment-service/internal/domain"

// Score returns the rounded percentage of correct answers and whether it
// meets the quiz passing score. Only len(quiz.Questions) slots are consulted,
// so missing, unanswered or stale out-of-range values all count as wrong.
func Score(quiz domain.QuizDefinition, answers []int) (int, bool) {
	total := len(quiz.Questions)
	if total == 0 {
		return 0, false
	}
	correct := CorrectCount(quiz, answers)
	// round half up: floor((200*c + t) / 2t)
	percent := (200*correct + total) / (2 * total)
	return percent, percent >= quiz.PassingScore
}

// CorrectCount counts answers equal to their question's correct option.
func CorrectCount(quiz domain.QuizDefinition, answers []int) int {
	correct := 0
	for i, question := range quiz.Questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == question.CorrectOptionIndex {
			correct++
		}
	}
	return correct
}
