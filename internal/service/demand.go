package service

import (
	"context"

	"ideaspark/internal/session"
)

// Trend labels.
const (
	TrendGrowing   = "Growing"
	TrendStable    = "Stable"
	TrendDeclining = "Declining"
)

// DemandSource 需求数据来源 / Produces a search-volume series for a niche
type DemandSource interface {
	Demand(ctx context.Context, niche string) (session.DemandSeries, error)
}

// FallbackDemand 无趋势数据源时返回的固定序列
// FallbackDemand returns a fixed twelve-month series when no trend provider is available
type FallbackDemand struct{}

var (
	fallbackLabels = []string{
		"Jan 2024", "Feb 2024", "Mar 2024", "Apr 2024", "May 2024", "Jun 2024",
		"Jul 2024", "Aug 2024", "Sep 2024", "Oct 2024", "Nov 2024", "Dec 2024",
	}
	fallbackVolumes = []float64{50, 55, 60, 65, 70, 75, 80, 85, 90, 85, 80, 85}
)

func (FallbackDemand) Demand(_ context.Context, niche string) (session.DemandSeries, error) {
	return session.DemandSeries{
		Labels:       append([]string(nil), fallbackLabels...),
		SearchVolume: append([]float64(nil), fallbackVolumes...),
		Trend:        TrendOf(fallbackVolumes),
		Note:         "Mock data for '" + niche + "' - No Google Trends data available",
	}, nil
}

// TrendOf compares the last volume with the first.
func TrendOf(volumes []float64) string {
	if len(volumes) < 2 {
		return TrendStable
	}
	first, last := volumes[0], volumes[len(volumes)-1]
	switch {
	case last > first:
		return TrendGrowing
	case last < first:
		return TrendDeclining
	default:
		return TrendStable
	}
}
