// Package scorer ranks tasks by an operator-facing "value" score so a
// worklist can be presented in the order most worth working on next.
package scorer

import (
	"math"
	"strings"
)

// Weights controls how much each scoring component contributes to the
// final score. The four weights must sum to 1.0 (within 0.01) or Score
// falls back to DefaultWeights.
type Weights struct {
	Priority float64
	Blockers float64
	Age      float64
	Labels   float64
}

// DefaultWeights matches the documented default weighting.
var DefaultWeights = Weights{Priority: 0.4, Blockers: 0.3, Age: 0.2, Labels: 0.1}

func (w Weights) sum() float64 {
	return w.Priority + w.Blockers + w.Age + w.Labels
}

// Task is the scoring input: a task's priority tier, how many other tasks
// depend on it, its age in hours, and any labels attached to it.
type Task struct {
	ID         string
	Priority   int
	Dependents int
	AgeHours   float64
	Labels     []string
}

// priorityScore maps a priority tier to its point value. Lower tiers score
// higher so P0 always outranks P2 at equal weight.
func priorityScore(priority int) float64 {
	switch {
	case priority <= 0:
		return 40
	case priority == 1:
		return 32
	case priority == 2:
		return 24
	case priority == 3:
		return 16
	default:
		return 8
	}
}

func blockersScore(dependents int) float64 {
	if dependents > 3 {
		dependents = 3
	}
	return float64(dependents) * 10
}

func ageScore(ageHours float64) float64 {
	if ageHours > 20 {
		ageHours = 20
	}
	if ageHours < 0 {
		ageHours = 0
	}
	return ageHours
}

// labelPoints is the fixed case-insensitive label -> point table.
var labelPoints = map[string]float64{
	"critical": 10,
	"urgent":   7,
	"important": 4,
}

func labelsScore(labels []string) float64 {
	var best float64
	for _, label := range labels {
		if pts, ok := labelPoints[strings.ToLower(label)]; ok && pts > best {
			best = pts
		}
	}
	if best > 10 {
		best = 10
	}
	return best
}

// Score computes a task's value in [0, 100] using w, falling back to
// DefaultWeights if w's components don't sum to ~1.0.
func Score(t Task, w Weights) int {
	if math.Abs(w.sum()-1.0) > 0.01 {
		w = DefaultWeights
	}

	raw := priorityScore(t.Priority)*w.Priority +
		blockersScore(t.Dependents)*w.Blockers +
		ageScore(t.AgeHours)*w.Age +
		labelsScore(t.Labels)*w.Labels

	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// DefaultScore computes Score using DefaultWeights.
func DefaultScore(t Task) int {
	return Score(t, DefaultWeights)
}

// Scored pairs a Task with its computed score, for sorting worklists.
type Scored struct {
	Task  Task
	Score int
}

// RankByScore scores every task with w and returns them sorted score
// descending, ties broken by original order (stable sort).
func RankByScore(tasks []Task, w Weights) []Scored {
	out := make([]Scored, len(tasks))
	for i, t := range tasks {
		out[i] = Scored{Task: t, Score: Score(t, w)}
	}
	stableSortDescending(out)
	return out
}

// stableSortDescending is a small insertion sort; worklists are small
// (dozens of tasks, not thousands) so O(n^2) is fine and keeps the
// stability guarantee obvious without pulling in sort.Slice semantics.
func stableSortDescending(s []Scored) {
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 && s[j-1].Score < s[j].Score {
			s[j-1], s[j] = s[j], s[j-1]
			j--
		}
	}
}
