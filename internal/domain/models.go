package domain

import "time"

// Sale is one recorded business day. Derived fields (DayOfWeek, CashSales,
// Profit, AverageSpend) are computed when the record is written and stored
// alongside the inputs; they are never recomputed on read.
type Sale struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	DayOfWeek    string    `json:"day_of_week"`
	GroupCount   int       `json:"group_count"`
	TotalSales   int64     `json:"total_sales"`
	CardSales    int64     `json:"card_sales"`
	PaypaySales  int64     `json:"paypay_sales"`
	CashSales    int64     `json:"cash_sales"`
	Expenses     int64     `json:"expenses"`
	Profit       int64     `json:"profit"`
	AverageSpend float64   `json:"average_spend"`
	Event        string    `json:"event,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SalePayload is the user-submitted form for a create or update. Numeric
// fields arrive as strings straight from form inputs; GroupCount and
// TotalSales are required, the rest default to zero when blank.
type SalePayload struct {
	Date        string `json:"date"`
	GroupCount  string `json:"group_count"`
	TotalSales  string `json:"total_sales"`
	CardSales   string `json:"card_sales"`
	PaypaySales string `json:"paypay_sales"`
	Expenses    string `json:"expenses"`
	Event       string `json:"event"`
	Notes       string `json:"notes"`
	UpdatedBy   string `json:"updated_by"`
}

// DateLayout is the calendar-date format used by Sale.Date.
const DateLayout = "2006-01-02"

// Weekday labels in Sale.DayOfWeek and the CSV export, indexed by
// time.Weekday (Sunday first).
var WeekdayLabels = [7]string{"日曜日", "月曜日", "火曜日", "水曜日", "木曜日", "金曜日", "土曜日"}

// WeekdayLabel returns the Japanese label for a date, or the empty string
// if the date does not parse.
func WeekdayLabel(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return WeekdayLabels[t.Weekday()]
}

// Default sales targets in yen, used whenever a configured target is
// missing or zero.
const (
	DefaultDailyTarget   int64 = 50000
	DefaultWeeklyTarget  int64 = 350000
	DefaultMonthlyTarget int64 = 1500000
)

// TargetConfig holds the configured sales targets per period.
type TargetConfig struct {
	Daily   int64 `json:"daily"`
	Weekly  int64 `json:"weekly"`
	Monthly int64 `json:"monthly"`
}

// EffectiveDaily returns the configured daily target, or the default when
// unset.
func (t TargetConfig) EffectiveDaily() int64 {
	if t.Daily > 0 {
		return t.Daily
	}
	return DefaultDailyTarget
}

func (t TargetConfig) EffectiveWeekly() int64 {
	if t.Weekly > 0 {
		return t.Weekly
	}
	return DefaultWeeklyTarget
}

func (t TargetConfig) EffectiveMonthly() int64 {
	if t.Monthly > 0 {
		return t.Monthly
	}
	return DefaultMonthlyTarget
}

// Connectivity reflects whether the last sync or mutation reached the
// remote ledger. It gates which path a mutation tries first; analytics run
// regardless.
type Connectivity string

const (
	ConnectivityOnline  Connectivity = "online"
	ConnectivityOffline Connectivity = "offline"
)

// Report is the full set of derived metrics for one Record Store snapshot.
type Report struct {
	TotalSales         int64   `json:"total_sales"`
	TotalCardSales     int64   `json:"total_card_sales"`
	TotalPaypaySales   int64   `json:"total_paypay_sales"`
	TotalCashSales     int64   `json:"total_cash_sales"`
	TotalExpenses      int64   `json:"total_expenses"`
	TotalGroups        int64   `json:"total_groups"`
	TotalProfit        int64   `json:"total_profit"`
	ProfitRate         float64 `json:"profit_rate"`
	DayCount           int     `json:"day_count"`
	DailyAverage       float64 `json:"daily_average"`
	WeeklyAverage      float64 `json:"weekly_average"`
	MonthlyAverage     float64 `json:"monthly_average"`
	DailyAchievement   float64 `json:"daily_achievement"`
	WeeklyAchievement  float64 `json:"weekly_achievement"`
	MonthlyAchievement float64 `json:"monthly_achievement"`

	ByWeekday []WeekdayStat    `json:"by_weekday"`
	Weekly    PeriodComparison `json:"weekly_comparison"`
	Monthly   PeriodComparison `json:"monthly_comparison"`
	Series    []Sale           `json:"series"`
}

// WeekdayStat aggregates the records sharing one day-of-week label.
type WeekdayStat struct {
	DayOfWeek     string  `json:"day_of_week"`
	TotalSales    int64   `json:"total_sales"`
	TotalGroups   int64   `json:"total_groups"`
	RecordCount   int     `json:"record_count"`
	AverageSales  float64 `json:"average_sales"`
	AverageGroups float64 `json:"average_groups"`
	AverageSpend  float64 `json:"average_spend"`
}

// PeriodStat sums one calendar period.
type PeriodStat struct {
	Sales      int64   `json:"sales"`
	Profit     int64   `json:"profit"`
	ProfitRate float64 `json:"profit_rate"`
}

// PeriodComparison contrasts the current calendar period with the
// immediately preceding period of equal length.
type PeriodComparison struct {
	Current      PeriodStat `json:"current"`
	Previous     PeriodStat `json:"previous"`
	SalesChange  float64    `json:"sales_change"`
	ProfitChange float64    `json:"profit_change"`
}
