// Package consensus implements the Consensus Aggregator (C9): a pure,
// order-independent combination of per-detective findings and upstream
// signals into a final risk verdict, per spec.md §4.9.
package consensus

import "math"

// RiskLevel is the coarse verdict bucket.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// FindingStatus mirrors PerDetectiveFinding.status.
type FindingStatus string

const (
	StatusCompleted FindingStatus = "completed"
	StatusFailed    FindingStatus = "failed"
	StatusDegraded  FindingStatus = "degraded"
)

// Finding is the minimal shape the aggregator needs from a
// PerDetectiveFinding: score, confidence, weight and completion status.
type Finding struct {
	Score      float64
	Confidence float64
	Weight     float64
	Status     FindingStatus
}

// Verdict is the aggregator's pure output.
type Verdict struct {
	DetectiveScore    float64
	OverallRiskScore  float64
	RiskLevel         RiskLevel
	Recommendations   []string
}

// Aggregate combines findings with the blacklist and preliminary-risk
// signals using the fixed weighted formula:
//
//	normalized_weight_i = weight_i · confidence_i · 1[status_i=completed]
//	detective_score     = Σ score_i·normalized_weight_i / Σ normalized_weight_i   (0 if denom=0)
//	overall             = 0.4·blacklist_score·100 + 0.4·preliminary_risk_score + 0.2·detective_score·100
//
// The result is order-independent: permuting findings never changes the
// output (property 8).
func Aggregate(findings []Finding, blacklistScore, preliminaryRiskScore float64, blacklisted bool) Verdict {
	var numerator, denominator float64
	for _, f := range findings {
		if f.Status != StatusCompleted {
			continue
		}
		nw := f.Weight * f.Confidence
		numerator += f.Score * nw
		denominator += nw
	}

	detectiveScore := 0.0
	if denominator > 0 {
		detectiveScore = numerator / denominator
	}

	overall := 0.4*blacklistScore*100 + 0.4*preliminaryRiskScore + 0.2*detectiveScore*100
	overall = math.Max(0, math.Min(100, overall))

	level := riskLevelFor(overall)

	return Verdict{
		DetectiveScore:   detectiveScore,
		OverallRiskScore: overall,
		RiskLevel:        level,
		Recommendations:  recommendationsFor(level, blacklisted),
	}
}

func riskLevelFor(overall float64) RiskLevel {
	switch {
	case overall >= 80:
		return RiskCritical
	case overall >= 60:
		return RiskHigh
	case overall >= 35:
		return RiskMedium
	default:
		return RiskLow
	}
}

// recommendationsFor returns the fixed recommendation table keyed by risk
// level and blacklist status.
func recommendationsFor(level RiskLevel, blacklisted bool) []string {
	var recs []string
	switch level {
	case RiskLow:
		recs = append(recs, "✅ BAIXO RISCO: nenhuma ação imediata necessária")
	case RiskMedium:
		recs = append(recs, "⚠️ RISCO MÉDIO: monitorar atividade futura desta carteira")
	case RiskHigh:
		recs = append(recs, "🔶 ALTO RISCO: recomenda-se investigação adicional antes de interagir")
	case RiskCritical:
		recs = append(recs, "🚨 RISCO CRÍTICO: evitar qualquer interação com esta carteira")
	}
	if blacklisted {
		recs = append(recs, "🛑 Endereço presente em lista de reputação negativa — tratar como alto risco independentemente do score")
	}
	return recs
}
