package analytics

import (
	"sort"
	"time"

	"barledger/backend/internal/domain"
)

// Compute derives every metric from one Record Store snapshot. It is a pure
// function of its arguments: no clock reads, no internal state, identical
// output for identical input. Malformed records are tolerated — missing
// numeric fields count as zero and never produce NaN or Inf.
func Compute(records []domain.Sale, targets domain.TargetConfig, now time.Time) domain.Report {
	report := domain.Report{
		ByWeekday: weekdayStats(records),
		Weekly:    compareWeeks(records, now),
		Monthly:   compareMonths(records, now),
		Series:    series(records),
	}

	dates := make(map[string]struct{})
	for _, r := range records {
		report.TotalSales += r.TotalSales
		report.TotalCardSales += r.CardSales
		report.TotalPaypaySales += r.PaypaySales
		report.TotalCashSales += r.CashSales
		report.TotalExpenses += r.Expenses
		report.TotalGroups += int64(r.GroupCount)
		if r.Date != "" {
			dates[r.Date] = struct{}{}
		}
	}

	report.TotalProfit = report.TotalSales - report.TotalExpenses
	report.ProfitRate = ratio(report.TotalProfit, report.TotalSales) * 100

	// At least one day to keep the averages defined on an empty store.
	report.DayCount = len(dates)
	if report.DayCount < 1 {
		report.DayCount = 1
	}

	report.DailyAverage = float64(report.TotalSales) / float64(report.DayCount)
	report.WeeklyAverage = report.DailyAverage * 7
	report.MonthlyAverage = report.DailyAverage * 30

	report.DailyAchievement = report.DailyAverage / float64(targets.EffectiveDaily()) * 100
	report.WeeklyAchievement = report.WeeklyAverage / float64(targets.EffectiveWeekly()) * 100
	report.MonthlyAchievement = report.MonthlyAverage / float64(targets.EffectiveMonthly()) * 100

	return report
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

func weekdayStats(records []domain.Sale) []domain.WeekdayStat {
	byLabel := make(map[string]*domain.WeekdayStat, 7)
	for _, r := range records {
		label := r.DayOfWeek
		if label == "" {
			label = domain.WeekdayLabel(r.Date)
		}
		if label == "" {
			continue
		}
		stat, ok := byLabel[label]
		if !ok {
			stat = &domain.WeekdayStat{DayOfWeek: label}
			byLabel[label] = stat
		}
		stat.TotalSales += r.TotalSales
		stat.TotalGroups += int64(r.GroupCount)
		stat.RecordCount++
	}

	stats := make([]domain.WeekdayStat, 0, len(byLabel))
	for _, label := range domain.WeekdayLabels {
		stat, ok := byLabel[label]
		if !ok {
			continue
		}
		stat.AverageSales = float64(stat.TotalSales) / float64(stat.RecordCount)
		stat.AverageGroups = float64(stat.TotalGroups) / float64(stat.RecordCount)
		if stat.TotalGroups > 0 {
			stat.AverageSpend = float64(stat.TotalSales) / float64(stat.TotalGroups)
		}
		stats = append(stats, *stat)
	}
	return stats
}

// startOfWeek truncates to the preceding Monday.
func startOfWeek(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start.AddDate(0, 0, -offset)
}

// compareWeeks partitions records into the calendar week containing now
// (Monday start) and the immediately preceding week.
func compareWeeks(records []domain.Sale, now time.Time) domain.PeriodComparison {
	start := startOfWeek(now)
	return buildComparison(records, start.AddDate(0, 0, -7), start, start.AddDate(0, 0, 7))
}

// compareMonths uses calendar month boundaries: the current month so far
// against the whole previous calendar month.
func compareMonths(records []domain.Sale, now time.Time) domain.PeriodComparison {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevStart := start.AddDate(0, -1, 0)
	end := start.AddDate(0, 1, 0)
	return buildComparison(records, prevStart, start, end)
}

func buildComparison(records []domain.Sale, prevStart, start, end time.Time) domain.PeriodComparison {
	var cmp domain.PeriodComparison
	for _, r := range records {
		d, err := time.ParseInLocation(domain.DateLayout, r.Date, start.Location())
		if err != nil {
			continue
		}
		switch {
		case !d.Before(start) && d.Before(end):
			cmp.Current.Sales += r.TotalSales
			cmp.Current.Profit += r.TotalSales - r.Expenses
		case !d.Before(prevStart) && d.Before(start):
			cmp.Previous.Sales += r.TotalSales
			cmp.Previous.Profit += r.TotalSales - r.Expenses
		}
	}

	cmp.Current.ProfitRate = ratio(cmp.Current.Profit, cmp.Current.Sales) * 100
	cmp.Previous.ProfitRate = ratio(cmp.Previous.Profit, cmp.Previous.Sales) * 100
	cmp.SalesChange = percentChange(cmp.Current.Sales, cmp.Previous.Sales)
	cmp.ProfitChange = percentChange(cmp.Current.Profit, cmp.Previous.Profit)
	return cmp
}

// percentChange is zero when there is no previous baseline, never Inf.
func percentChange(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// series returns the records sorted ascending by date. The sort is stable:
// records sharing a date keep their relative input order.
func series(records []domain.Sale) []domain.Sale {
	out := make([]domain.Sale, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}
