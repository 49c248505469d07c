package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps orders in process memory. It is selected for local runs
// and honours the same contract as DynamoStore.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Order
	nowFunc func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    map[string]Order{},
		nowFunc: time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, order *Order) error {
	if order.OrderID == "" {
		return fmt.Errorf("create order: empty order id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if _, exists := s.byID[order.ID]; exists {
		return fmt.Errorf("create order %s: document id %s already exists: %w", order.OrderID, order.ID, ErrStatusMismatch)
	}
	now := s.nowFunc().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	s.byID[order.ID] = cloneOrder(*order)
	return nil
}

func (s *MemoryStore) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, err := s.findLocked(orderID)
	if err != nil {
		return nil, err
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.byID {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ApplyPaymentResult(ctx context.Context, orderID string, result PaymentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.findLocked(orderID)
	if err != nil {
		return err
	}
	if result.PaymentStatus != PaymentPaid && o.PaymentStatus == PaymentPaid {
		return ErrStatusMismatch
	}
	o.PaymentStatus = result.PaymentStatus
	o.Status = result.Status
	o.BillCode = result.BillCode
	o.Notes = result.Note
	if result.TransactionID != "" {
		o.TransactionID = result.TransactionID
	}
	o.UpdatedAt = s.nowFunc().UTC()
	s.byID[o.ID] = o
	return nil
}

func (s *MemoryStore) findLocked(orderID string) (Order, error) {
	var (
		found Order
		n     int
	)
	for _, o := range s.byID {
		if o.OrderID == orderID {
			found = o
			n++
		}
	}
	switch n {
	case 0:
		return Order{}, ErrNotFound
	case 1:
		return found, nil
	default:
		return Order{}, fmt.Errorf("order %s: %w", orderID, ErrDuplicateOrderID)
	}
}

func cloneOrder(o Order) Order {
	o.Items = append([]LineItem(nil), o.Items...)
	return o
}
