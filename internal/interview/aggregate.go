package interview

import (
	"math"

	"github.com/pavelanni/mockinterview/internal/model"
)

// Aggregate computes the final report for a session's answer records.
// Averages and the overall score are rounded to one decimal; the overall
// score is weighted by interview mode and computed from the rounded
// averages.
func Aggregate(mode string, answers []model.AnswerRecord) (model.Report, error) {
	if len(answers) == 0 {
		return model.Report{}, ErrNoAnswers
	}

	var tech, comm, conf int
	var resources []string
	for _, a := range answers {
		tech += a.Evaluation.Scores.Technical
		comm += a.Evaluation.Scores.Communication
		conf += a.Evaluation.Scores.Confidence
		resources = append(resources, a.Evaluation.Resources...)
	}

	n := float64(len(answers))
	avgTech := round1(float64(tech) / n)
	avgComm := round1(float64(comm) / n)
	avgConf := round1(float64(conf) / n)

	var overall float64
	if mode == model.ModeTechnical {
		overall = avgTech*0.5 + avgComm*0.25 + avgConf*0.25
	} else {
		overall = avgComm*0.5 + avgConf*0.3 + avgTech*0.2
	}

	return model.Report{
		OverallScore:     round1(overall),
		AvgTechnical:     avgTech,
		AvgCommunication: avgComm,
		AvgConfidence:    avgConf,
		Resources:        dedupe(resources),
		NQuestions:       len(answers),
	}, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// dedupe drops repeated entries, keeping the first occurrence of each.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
