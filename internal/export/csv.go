package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"barledger/backend/internal/domain"
)

// Header is a compatibility surface consumed by existing spreadsheets; the
// column set and order are pinned.
var Header = []string{
	"日付", "曜日", "組数", "売上", "平均単価", "カード決済", "PayPay決済",
	"現金", "経費", "利益", "イベント", "メモ", "更新者",
}

// FileName returns the download name for an export generated on the given
// day.
func FileName(today time.Time) string {
	return fmt.Sprintf("bar_sales_data_%s.csv", today.Format(domain.DateLayout))
}

// WriteCSV renders the records in the order given. Absent numeric fields
// render as 0, absent text fields as empty strings, and 平均単価 is rounded
// to the nearest integer.
func WriteCSV(w io.Writer, records []domain.Sale) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Date,
			r.DayOfWeek,
			strconv.Itoa(r.GroupCount),
			strconv.FormatInt(r.TotalSales, 10),
			strconv.FormatInt(int64(math.Round(r.AverageSpend)), 10),
			strconv.FormatInt(r.CardSales, 10),
			strconv.FormatInt(r.PaypaySales, 10),
			strconv.FormatInt(r.CashSales, 10),
			strconv.FormatInt(r.Expenses, 10),
			strconv.FormatInt(r.Profit, 10),
			r.Event,
			r.Notes,
			r.UpdatedBy,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
