package quiz

// Grade scores an answer set against the quiz's questions.
// Answers are matched positionally; a missing or out-of-range answer
// simply earns no points. A quiz with no scorable points grades to 0%.
func Grade(q *Quiz, answers []int) (score, total int, percent float64, passed bool) {
	total = q.TotalPoints()
	for i, qst := range q.Questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == qst.CorrectIndex {
			score += qst.Points
		}
	}
	if total > 0 {
		percent = float64(score) / float64(total) * 100
	}
	passed = percent >= q.PassingScore
	return score, total, percent, passed
}
