package analytics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"barledger/backend/internal/domain"
)

// fixedNow is a Wednesday; the containing Monday-start week is Jun 10-16.
var fixedNow = time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)

func rec(id, date string, total, card, paypay, cash, expenses int64, groups int) domain.Sale {
	return domain.Sale{
		ID:          id,
		Date:        date,
		DayOfWeek:   domain.WeekdayLabel(date),
		GroupCount:  groups,
		TotalSales:  total,
		CardSales:   card,
		PaypaySales: paypay,
		CashSales:   cash,
		Expenses:    expenses,
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	records := []domain.Sale{
		rec("a", "2024-06-10", 50000, 20000, 15000, 15000, 5000, 10),
		rec("b", "2024-06-11", 30000, 10000, 5000, 15000, 3000, 6),
		rec("c", "2024-06-03", 40000, 0, 0, 40000, 8000, 8),
	}
	targets := domain.TargetConfig{Daily: 40000}

	first := Compute(records, targets, fixedNow)
	second := Compute(records, targets, fixedNow)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two identical calls produced different reports:\n%+v\n%+v", first, second)
	}
}

func TestComputeAggregateTotals(t *testing.T) {
	records := []domain.Sale{
		rec("a", "2024-06-10", 50000, 20000, 15000, 15000, 5000, 10),
		rec("b", "2024-06-11", 30000, 10000, 5000, 15000, 3000, 6),
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	if report.TotalSales != 80000 {
		t.Fatalf("total sales: expected 80000, got %d", report.TotalSales)
	}
	if report.TotalCardSales != 30000 || report.TotalPaypaySales != 20000 || report.TotalCashSales != 30000 {
		t.Fatalf("payment splits wrong: %+v", report)
	}
	if report.TotalExpenses != 8000 || report.TotalProfit != 72000 {
		t.Fatalf("profit wrong: expenses=%d profit=%d", report.TotalExpenses, report.TotalProfit)
	}
	if report.TotalGroups != 16 {
		t.Fatalf("total groups: expected 16, got %d", report.TotalGroups)
	}
	if math.Abs(report.ProfitRate-90.0) > 1e-9 {
		t.Fatalf("profit rate: expected 90, got %f", report.ProfitRate)
	}
	if report.DayCount != 2 {
		t.Fatalf("day count: expected 2, got %d", report.DayCount)
	}
	if math.Abs(report.DailyAverage-40000) > 1e-9 {
		t.Fatalf("daily average: expected 40000, got %f", report.DailyAverage)
	}
	if math.Abs(report.WeeklyAverage-280000) > 1e-9 {
		t.Fatalf("weekly average: expected 280000, got %f", report.WeeklyAverage)
	}
	if math.Abs(report.MonthlyAverage-1200000) > 1e-9 {
		t.Fatalf("monthly average: expected 1200000, got %f", report.MonthlyAverage)
	}
}

func TestComputeEmptyStoreYieldsZeros(t *testing.T) {
	report := Compute(nil, domain.TargetConfig{}, fixedNow)

	if report.TotalSales != 0 || report.TotalProfit != 0 || report.TotalGroups != 0 {
		t.Fatalf("expected zero totals, got %+v", report)
	}
	for name, v := range map[string]float64{
		"profit_rate":         report.ProfitRate,
		"daily_average":       report.DailyAverage,
		"daily_achievement":   report.DailyAchievement,
		"weekly_achievement":  report.WeeklyAchievement,
		"monthly_achievement": report.MonthlyAchievement,
		"weekly_sales_change": report.Weekly.SalesChange,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s is not finite: %f", name, v)
		}
		if v != 0 {
			t.Fatalf("%s: expected 0, got %f", name, v)
		}
	}
}

func TestComputeZeroGroupCountDoesNotPanic(t *testing.T) {
	records := []domain.Sale{
		{ID: "a", Date: "2024-06-10", DayOfWeek: "月曜日", TotalSales: 10000, GroupCount: 0},
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	if len(report.ByWeekday) != 1 {
		t.Fatalf("expected one weekday bucket, got %d", len(report.ByWeekday))
	}
	spend := report.ByWeekday[0].AverageSpend
	if math.IsNaN(spend) || math.IsInf(spend, 0) || spend != 0 {
		t.Fatalf("average spend with zero groups must be 0, got %f", spend)
	}
}

func TestAchievementUsesDefaultTargetWhenUnset(t *testing.T) {
	records := []domain.Sale{rec("a", "2024-06-10", 50000, 0, 0, 50000, 0, 5)}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	// dailyAverage 50000 against the 50000 default.
	if math.Abs(report.DailyAchievement-100.0) > 1e-9 {
		t.Fatalf("daily achievement: expected 100, got %f", report.DailyAchievement)
	}

	configured := Compute(records, domain.TargetConfig{Daily: 100000}, fixedNow)
	if math.Abs(configured.DailyAchievement-50.0) > 1e-9 {
		t.Fatalf("daily achievement vs configured target: expected 50, got %f", configured.DailyAchievement)
	}
}

func TestWeekdayAggregation(t *testing.T) {
	records := []domain.Sale{
		rec("a", "2024-06-03", 20000, 0, 0, 20000, 2000, 4), // Monday
		rec("b", "2024-06-10", 40000, 0, 0, 40000, 4000, 6), // Monday
		rec("c", "2024-06-11", 10000, 0, 0, 10000, 1000, 2), // Tuesday
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	if len(report.ByWeekday) != 2 {
		t.Fatalf("expected 2 weekday buckets, got %d", len(report.ByWeekday))
	}
	mon := report.ByWeekday[0]
	if mon.DayOfWeek != "月曜日" {
		t.Fatalf("expected Monday bucket first, got %s", mon.DayOfWeek)
	}
	if mon.TotalSales != 60000 || mon.RecordCount != 2 || mon.TotalGroups != 10 {
		t.Fatalf("Monday bucket wrong: %+v", mon)
	}
	if math.Abs(mon.AverageSales-30000) > 1e-9 || math.Abs(mon.AverageGroups-5) > 1e-9 {
		t.Fatalf("Monday averages wrong: %+v", mon)
	}
	if math.Abs(mon.AverageSpend-6000) > 1e-9 {
		t.Fatalf("Monday average spend: expected 6000, got %f", mon.AverageSpend)
	}
}

func TestWeeklyComparison(t *testing.T) {
	records := []domain.Sale{
		rec("cur1", "2024-06-10", 30000, 0, 0, 30000, 10000, 5),
		rec("cur2", "2024-06-12", 30000, 0, 0, 30000, 10000, 5),
		rec("prev", "2024-06-05", 40000, 0, 0, 40000, 20000, 8),
		rec("older", "2024-05-20", 99999, 0, 0, 99999, 0, 1),
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	if report.Weekly.Current.Sales != 60000 || report.Weekly.Previous.Sales != 40000 {
		t.Fatalf("weekly partition wrong: %+v", report.Weekly)
	}
	if report.Weekly.Current.Profit != 40000 || report.Weekly.Previous.Profit != 20000 {
		t.Fatalf("weekly profit wrong: %+v", report.Weekly)
	}
	if math.Abs(report.Weekly.SalesChange-50.0) > 1e-9 {
		t.Fatalf("weekly sales change: expected 50, got %f", report.Weekly.SalesChange)
	}
	if math.Abs(report.Weekly.ProfitChange-100.0) > 1e-9 {
		t.Fatalf("weekly profit change: expected 100, got %f", report.Weekly.ProfitChange)
	}
}

func TestWeeklyComparisonZeroPrevious(t *testing.T) {
	records := []domain.Sale{
		rec("cur", "2024-06-12", 5000, 0, 0, 5000, 0, 1),
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	if report.Weekly.Current.Sales != 5000 {
		t.Fatalf("current sales: expected 5000, got %d", report.Weekly.Current.Sales)
	}
	if report.Weekly.SalesChange != 0 {
		t.Fatalf("change with zero previous must be 0, got %f", report.Weekly.SalesChange)
	}
}

func TestMonthlyComparisonUsesCalendarBoundaries(t *testing.T) {
	records := []domain.Sale{
		rec("jun", "2024-06-01", 30000, 0, 0, 30000, 0, 3),
		rec("may31", "2024-05-31", 20000, 0, 0, 20000, 0, 2),
		rec("may1", "2024-05-01", 10000, 0, 0, 10000, 0, 1),
		rec("apr", "2024-04-30", 50000, 0, 0, 50000, 0, 5),
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	if report.Monthly.Current.Sales != 30000 {
		t.Fatalf("current month: expected 30000, got %d", report.Monthly.Current.Sales)
	}
	if report.Monthly.Previous.Sales != 30000 {
		t.Fatalf("previous month: expected 30000 (whole of May), got %d", report.Monthly.Previous.Sales)
	}
}

func TestSeriesSortedAscendingAndStable(t *testing.T) {
	records := []domain.Sale{
		rec("b", "2024-06-11", 1, 0, 0, 1, 0, 1),
		rec("tie1", "2024-06-10", 2, 0, 0, 2, 0, 1),
		rec("tie2", "2024-06-10", 3, 0, 0, 3, 0, 1),
		rec("a", "2024-06-01", 4, 0, 0, 4, 0, 1),
	}
	report := Compute(records, domain.TargetConfig{}, fixedNow)

	want := []string{"a", "tie1", "tie2", "b"}
	if len(report.Series) != len(want) {
		t.Fatalf("series length: expected %d, got %d", len(want), len(report.Series))
	}
	for i, id := range want {
		if report.Series[i].ID != id {
			t.Fatalf("series position %d: expected %s, got %s", i, id, report.Series[i].ID)
		}
	}
}

func TestStartOfWeekIsMonday(t *testing.T) {
	cases := map[string]string{
		"2024-06-12": "2024-06-10", // Wednesday
		"2024-06-10": "2024-06-10", // Monday itself
		"2024-06-16": "2024-06-10", // Sunday belongs to the preceding Monday
	}
	for in, want := range cases {
		d, _ := time.Parse(domain.DateLayout, in)
		got := startOfWeek(d).Format(domain.DateLayout)
		if got != want {
			t.Fatalf("startOfWeek(%s): expected %s, got %s", in, want, got)
		}
	}
}
