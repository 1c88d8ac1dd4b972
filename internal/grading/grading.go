// Package grading 客观题判分：答案去除首尾空白并忽略大小写后比对
package grading

import (
	"math"
	"strings"
)

// Normalize 去除首尾空白并统一为小写
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsCorrect 未作答视为错误
func IsCorrect(submitted *string, correct string) bool {
	if submitted == nil {
		return false
	}
	return Normalize(*submitted) == Normalize(correct)
}

type Mark struct {
	IsCorrect    bool
	PointsEarned float64
}

func ScoreQuestion(points int, submitted *string, correct string) Mark {
	if IsCorrect(submitted, correct) {
		return Mark{IsCorrect: true, PointsEarned: float64(points)}
	}
	return Mark{}
}

// Tally 累计整场考试的得分
type Tally struct {
	TotalPoints  int
	EarnedPoints float64
}

func (t *Tally) Add(points int, m Mark) {
	t.TotalPoints += points
	t.EarnedPoints += m.PointsEarned
}

// Percentage 保留两位小数；总分为 0 时返回 0
func (t Tally) Percentage() float64 {
	if t.TotalPoints <= 0 {
		return 0
	}
	return Round2(t.EarnedPoints / float64(t.TotalPoints) * 100)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
