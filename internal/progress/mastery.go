package progress

import (
	"math"
	"sort"

	"github.com/p-n-ai/pai-progress/internal/registry"
)

// Mastery weighting. Completion is the hard-gated prerequisite; quiz score is
// the softer depth signal, so completion dominates and mastery cannot be gamed
// by re-taking quizzes without finishing material.
const (
	masteryCompletionWeight = 0.7
	masteryQuizWeight       = 0.3
)

// topSkillCount bounds the top-skills / improvement-areas lists.
const topSkillCount = 3

// Skill mastery level labels.
const (
	MasteryBeginner     = "beginner"
	MasteryIntermediate = "intermediate"
	MasteryAdvanced     = "advanced"
	MasteryExpert       = "expert"
)

// SkillMastery is the derived mastery view for one registered skill.
type SkillMastery struct {
	Skill             string  `json:"skill"`
	DisplayName       string  `json:"display_name"`
	Category          string  `json:"category"`
	CompletedChapters int     `json:"completed_chapters"`
	TotalChapters     int     `json:"total_chapters"`
	CompletionRate    float64 `json:"completion_rate"`
	AverageQuizScore  float64 `json:"average_quiz_score"`
	MasteryPercent    int     `json:"mastery_percent"`
	Level             string  `json:"level"`
}

// SkillsMastery aggregates mastery across all registered skills.
type SkillsMastery struct {
	Skills           []SkillMastery `json:"skills"`
	OverallMastery   int            `json:"overall_mastery"`
	TopSkills        []SkillMastery `json:"top_skills"`
	ImprovementAreas []SkillMastery `json:"improvement_areas"`
}

// CalculateMastery derives per-skill mastery from chapter completion state and
// quiz scores: completion rate weighted 70%, average quiz score 30%.
func CalculateMastery(reg *registry.Registry, chapters map[int]*ChapterState) SkillsMastery {
	skills := reg.Skills()
	out := SkillsMastery{Skills: make([]SkillMastery, 0, len(skills))}

	sum := 0
	for _, skill := range skills {
		m := skillMastery(skill, chapters)
		sum += m.MasteryPercent
		out.Skills = append(out.Skills, m)
	}

	if len(out.Skills) > 0 {
		out.OverallMastery = int(math.Round(float64(sum) / float64(len(out.Skills))))
	}
	out.TopSkills = rankSkills(out.Skills, true)
	out.ImprovementAreas = rankSkills(out.Skills, false)
	return out
}

func skillMastery(skill registry.Skill, chapters map[int]*ChapterState) SkillMastery {
	m := SkillMastery{
		Skill:         skill.Name,
		DisplayName:   skill.DisplayName,
		Category:      skill.Category,
		TotalChapters: len(skill.ChapterIDs),
	}

	quizSum, quizCount := 0, 0
	for _, id := range skill.ChapterIDs {
		ch, ok := chapters[id]
		if !ok || ch.Status != ChapterCompleted {
			continue
		}
		m.CompletedChapters++
		if ch.QuizScore != nil {
			quizSum += *ch.QuizScore
			quizCount++
		}
	}

	if m.TotalChapters > 0 {
		m.CompletionRate = float64(m.CompletedChapters) / float64(m.TotalChapters) * 100
	}
	if quizCount > 0 {
		m.AverageQuizScore = float64(quizSum) / float64(quizCount)
	}

	m.MasteryPercent = int(math.Round(m.CompletionRate*masteryCompletionWeight + m.AverageQuizScore*masteryQuizWeight))
	m.Level = masteryLevel(m.MasteryPercent)
	return m
}

func masteryLevel(percent int) string {
	switch {
	case percent < 30:
		return MasteryBeginner
	case percent < 60:
		return MasteryIntermediate
	case percent < 85:
		return MasteryAdvanced
	default:
		return MasteryExpert
	}
}

// rankSkills returns up to topSkillCount skills sorted by mastery, descending
// when best is true. The sort is stable so ties keep registry order.
func rankSkills(skills []SkillMastery, best bool) []SkillMastery {
	ranked := make([]SkillMastery, len(skills))
	copy(ranked, skills)
	sort.SliceStable(ranked, func(i, j int) bool {
		if best {
			return ranked[i].MasteryPercent > ranked[j].MasteryPercent
		}
		return ranked[i].MasteryPercent < ranked[j].MasteryPercent
	})
	if len(ranked) > topSkillCount {
		ranked = ranked[:topSkillCount]
	}
	return ranked
}
