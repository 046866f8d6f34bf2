package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"barledger/backend/internal/domain"
	"barledger/backend/internal/localid"
)

// ErrValidation marks a rejected payload. Validation failures happen before
// any state change and are never retried automatically.
var ErrValidation = errors.New("invalid sale payload")

// deriveSale validates the payload and computes the stored derived fields.
// GroupCount and TotalSales are required; the other amounts default to zero
// when blank or unparsable. CashSales may come out negative when the
// operator over-allocates card and PayPay beyond the total; that is
// accepted as entered.
func deriveSale(payload domain.SalePayload) (domain.Sale, error) {
	groupCount, err := strconv.Atoi(strings.TrimSpace(payload.GroupCount))
	if err != nil {
		return domain.Sale{}, fmt.Errorf("%w: group_count must be a number", ErrValidation)
	}
	totalSales, err := strconv.ParseInt(strings.TrimSpace(payload.TotalSales), 10, 64)
	if err != nil {
		return domain.Sale{}, fmt.Errorf("%w: total_sales must be a number", ErrValidation)
	}

	cardSales := parseAmount(payload.CardSales)
	paypaySales := parseAmount(payload.PaypaySales)
	expenses := parseAmount(payload.Expenses)

	sale := domain.Sale{
		Date:        strings.TrimSpace(payload.Date),
		GroupCount:  groupCount,
		TotalSales:  totalSales,
		CardSales:   cardSales,
		PaypaySales: paypaySales,
		CashSales:   totalSales - cardSales - paypaySales,
		Expenses:    expenses,
		Profit:      totalSales - expenses,
		Event:       strings.TrimSpace(payload.Event),
		Notes:       strings.TrimSpace(payload.Notes),
		UpdatedBy:   strings.TrimSpace(payload.UpdatedBy),
	}
	sale.DayOfWeek = domain.WeekdayLabel(sale.Date)
	if groupCount > 0 {
		sale.AverageSpend = float64(totalSales) / float64(groupCount)
	}
	return sale, nil
}

func parseAmount(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// SubmitCreate validates the payload, computes derived fields, and tries
// the remote create. When the remote is unreachable the record is kept as a
// local-only row under a generated id so the ledger stays usable offline.
func (e *Engine) SubmitCreate(ctx context.Context, payload domain.SalePayload) (domain.Sale, error) {
	sale, err := deriveSale(payload)
	if err != nil {
		return domain.Sale{}, err
	}

	created, remoteErr := e.ledger.Create(ctx, sale)
	if remoteErr == nil {
		// The backend-assigned id is authoritative from here on. The push
		// stream will deliver the same record; Upsert is idempotent.
		e.records.Upsert(*created)
		e.setConnectivity(domain.ConnectivityOnline)
		return *created, nil
	}

	log.Printf("[service] remote create failed (%v), keeping record locally", remoteErr)
	now := time.Now().UTC()
	sale.ID = localid.New()
	sale.CreatedAt = now
	sale.UpdatedAt = now
	e.records.Upsert(sale)
	e.setConnectivity(domain.ConnectivityOffline)
	return sale, nil
}

// SubmitUpdate replaces the record under the existing id. An update always
// carries a full replacement, never a partial patch.
func (e *Engine) SubmitUpdate(ctx context.Context, id string, payload domain.SalePayload) (domain.Sale, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Sale{}, fmt.Errorf("%w: id is required", ErrValidation)
	}
	sale, err := deriveSale(payload)
	if err != nil {
		return domain.Sale{}, err
	}

	updated, remoteErr := e.ledger.Update(ctx, id, sale)
	if remoteErr == nil {
		e.records.Upsert(*updated)
		e.setConnectivity(domain.ConnectivityOnline)
		return *updated, nil
	}

	log.Printf("[service] remote update failed for %s (%v), applying locally", id, remoteErr)
	sale.ID = id
	// An update replaces the record wholesale, but creation time belongs
	// to the original row.
	if existing, ok := e.records.Get(id); ok {
		sale.CreatedAt = existing.CreatedAt
	}
	sale.UpdatedAt = time.Now().UTC()
	e.records.Upsert(sale)
	e.setConnectivity(domain.ConnectivityOffline)
	return sale, nil
}

// SubmitDelete removes the record. Deletions are honored locally even when
// the remote call fails: a deleted row reappearing is a worse outcome than
// an unpropagated deletion.
func (e *Engine) SubmitDelete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}

	if err := e.ledger.Delete(ctx, id); err != nil {
		log.Printf("[service] remote delete failed for %s (%v), removing locally", id, err)
		e.records.RemoveByID(id)
		e.setConnectivity(domain.ConnectivityOffline)
		return nil
	}

	e.records.RemoveByID(id)
	e.setConnectivity(domain.ConnectivityOnline)
	return nil
}

func (e *Engine) setConnectivity(c domain.Connectivity) {
	e.mu.Lock()
	e.connectivity = c
	if c == domain.ConnectivityOnline && e.state != StateLoading {
		e.state = StateOnline
	}
	if c == domain.ConnectivityOffline && e.state != StateLoading {
		e.state = StateOffline
	}
	e.mu.Unlock()
}
