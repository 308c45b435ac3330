package grading

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
)

// Sheet aggregates per-answer grades for one application. Toggling a grade
// to its current value clears it, mirroring how reviewers un-mark answers.
type Sheet struct {
	grades map[int]models.GradeValue
}

// NewSheet builds a sheet from stored grade records
func NewSheet(records []models.GradeRecord) *Sheet {
	grades := make(map[int]models.GradeValue, len(records))
	for _, r := range records {
		grades[r.QuestionIndex] = r.Value
	}
	return &Sheet{grades: grades}
}

// Get returns the grade for an answer and whether one exists
func (s *Sheet) Get(index int) (models.GradeValue, bool) {
	v, ok := s.grades[index]
	return v, ok
}

// Toggle applies a grade to an answer. Applying the grade the answer
// already has clears it instead. Returns the resulting value and whether
// the answer is now graded.
func (s *Sheet) Toggle(index int, value models.GradeValue) (models.GradeValue, bool) {
	if current, ok := s.grades[index]; ok && current == value {
		delete(s.grades, index)
		return 0, false
	}
	s.grades[index] = value
	return value, true
}

// Score is the aggregate result of a grading sheet
type Score struct {
	Points  float64 // sum of grade values
	Graded  int     // number of graded answers
	Percent int     // rounded percentage, 0 when nothing is graded
}

// Score computes the current aggregate. Ungraded answers are excluded from
// the denominator; an entirely ungraded sheet scores zero rather than
// dividing by zero.
func (s *Sheet) Score() Score {
	var points float64
	for _, v := range s.grades {
		points += float64(v)
	}

	graded := len(s.grades)
	if graded == 0 {
		return Score{}
	}

	return Score{
		Points:  points,
		Graded:  graded,
		Percent: int(math.Round(points / float64(graded) * 100)),
	}
}

// Summary renders the score annotation prepended to reviewer notes on a
// decision, e.g. "[Puntuación: 83% (2.5/3)]".
func (sc Score) Summary() string {
	if sc.Graded == 0 {
		return ""
	}
	points := strconv.FormatFloat(sc.Points, 'f', -1, 64)
	return fmt.Sprintf("[Puntuación: %d%% (%s/%d)]", sc.Percent, points, sc.Graded)
}
