package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"barledger/backend/internal/domain"
	"barledger/backend/internal/remote"
)

// Ledger talks to a Postgres-backed sales backend. Change notifications are
// delivered over LISTEN/NOTIFY; the backend is expected to carry a trigger
// along these lines:
//
//	CREATE OR REPLACE FUNCTION notify_sales_changes() RETURNS trigger AS $$
//	BEGIN
//	  PERFORM pg_notify('sales_changes', json_build_object(
//	    'event_type', TG_OP,
//	    'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
//	    'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
//	  )::text);
//	  RETURN NULL;
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER sales_changes AFTER INSERT OR UPDATE OR DELETE ON sales
//	  FOR EACH ROW EXECUTE FUNCTION notify_sales_changes();
type Ledger struct {
	db  *sql.DB
	url string
}

const notifyChannel = "sales_changes"

func New(ctx context.Context, databaseURL string) (*Ledger, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// An unreachable ledger at startup is not fatal: the sync layer falls
	// back to the offline cache and recovers on a later force sync.
	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Printf("[postgres] WARN: remote ledger unreachable at startup: %v", err)
	}

	return &Ledger{db: db, url: databaseURL}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

const saleColumns = `id, date, day_of_week, group_count, total_sales, card_sales,
	paypay_sales, cash_sales, expenses, profit, average_spend,
	event, notes, updated_by, created_at, updated_at`

func scanSale(row interface {
	Scan(dest ...any) error
}) (domain.Sale, error) {
	var s domain.Sale
	var date time.Time
	err := row.Scan(&s.ID, &date, &s.DayOfWeek, &s.GroupCount, &s.TotalSales,
		&s.CardSales, &s.PaypaySales, &s.CashSales, &s.Expenses, &s.Profit,
		&s.AverageSpend, &s.Event, &s.Notes, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Sale{}, err
	}
	s.Date = date.Format(domain.DateLayout)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (l *Ledger) FetchAll(ctx context.Context) ([]domain.Sale, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (l *Ledger) Create(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	row := l.db.QueryRowContext(ctx, `
		INSERT INTO sales (date, day_of_week, group_count, total_sales, card_sales,
			paypay_sales, cash_sales, expenses, profit, average_spend,
			event, notes, updated_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
		RETURNING `+saleColumns+`
	`, sale.Date, sale.DayOfWeek, sale.GroupCount, sale.TotalSales, sale.CardSales,
		sale.PaypaySales, sale.CashSales, sale.Expenses, sale.Profit, sale.AverageSpend,
		sale.Event, sale.Notes, sale.UpdatedBy)

	created, err := scanSale(row)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (l *Ledger) Update(ctx context.Context, id string, sale domain.Sale) (*domain.Sale, error) {
	row := l.db.QueryRowContext(ctx, `
		UPDATE sales
		SET date = $2, day_of_week = $3, group_count = $4, total_sales = $5,
			card_sales = $6, paypay_sales = $7, cash_sales = $8, expenses = $9,
			profit = $10, average_spend = $11, event = $12, notes = $13,
			updated_by = $14, updated_at = now()
		WHERE id = $1
		RETURNING `+saleColumns+`
	`, id, sale.Date, sale.DayOfWeek, sale.GroupCount, sale.TotalSales,
		sale.CardSales, sale.PaypaySales, sale.CashSales, sale.Expenses,
		sale.Profit, sale.AverageSpend, sale.Event, sale.Notes, sale.UpdatedBy)

	updated, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, remote.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return remote.ErrNotFound
	}
	return nil
}

// Subscribe opens a dedicated connection on the notify channel and decodes
// payloads into change events. One subscription runs at most one decode at
// a time, so events are delivered in arrival order.
func (l *Ledger) Subscribe(ctx context.Context) (remote.Subscription, error) {
	conn, err := pgx.Connect(ctx, l.url)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		events: make(chan remote.ChangeEvent, 16),
		errs:   make(chan error, 4),
		cancel: cancel,
	}

	go func() {
		defer close(sub.events)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer closeCancel()
			_ = conn.Close(closeCtx)
		}()

		for {
			notification, err := conn.WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				select {
				case sub.errs <- err:
				default:
				}
				return
			}

			var event remote.ChangeEvent
			if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
				select {
				case sub.errs <- err:
				default:
				}
				continue
			}

			select {
			case sub.events <- event:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}

type subscription struct {
	events chan remote.ChangeEvent
	errs   chan error
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Events() <-chan remote.ChangeEvent { return s.events }
func (s *subscription) Errors() <-chan error              { return s.errs }

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}
