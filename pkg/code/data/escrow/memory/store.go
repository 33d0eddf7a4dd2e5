package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/nft-trade/pkg/code/data/escrow"
	"github.com/code-payments/nft-trade/pkg/database/query"
)

type ById []*escrow.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	records []*escrow.Record
	last    uint64
}

// New returns a new in memory escrow.Store
func New() escrow.Store {
	return &store{}
}

// Save implements escrow.Store.Save
func (s *store) Save(_ context.Context, data *escrow.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	if item := s.find(data); item != nil {
		if item.State > data.State {
			return escrow.ErrInvalidEscrow
		}

		if item.State.IsClosed() && item.State != data.State {
			return escrow.ErrInvalidEscrow
		}

		if item.Buyer != nil && (data.Buyer == nil || *item.Buyer != *data.Buyer) {
			return escrow.ErrInvalidEscrow
		}

		item.Buyer = data.Buyer
		item.State = data.State
		item.ClosedAt = data.ClosedAt
		if item.State.IsClosed() && item.ClosedAt == nil {
			now := time.Now()
			item.ClosedAt = &now
		}

		item.CopyTo(data)
	} else {
		// A vault account backs at most one escrow.
		if other := s.findByVault(data.Vault); other != nil {
			return escrow.ErrInvalidEscrow
		}

		if data.Id == 0 {
			data.Id = s.last
		}
		if data.CreatedAt.IsZero() {
			data.CreatedAt = time.Now()
		}
		if data.State.IsClosed() && data.ClosedAt == nil {
			now := time.Now()
			data.ClosedAt = &now
		}
		s.records = append(s.records, data.Clone())
	}

	return nil
}

// GetByAddress implements escrow.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*escrow.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}

	return nil, escrow.ErrEscrowNotFound
}

// GetByVault implements escrow.Store.GetByVault
func (s *store) GetByVault(_ context.Context, vault string) (*escrow.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByVault(vault); item != nil {
		return item.Clone(), nil
	}

	return nil, escrow.ErrEscrowNotFound
}

// GetAllBySeller implements escrow.Store.GetAllBySeller
func (s *store) GetAllBySeller(_ context.Context, seller string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*escrow.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items := s.findBySeller(seller); len(items) > 0 {
		res := s.filter(items, cursor, limit, direction)

		if len(res) == 0 {
			return nil, escrow.ErrEscrowNotFound
		}

		return res, nil
	}

	return nil, escrow.ErrEscrowNotFound
}

// GetAllByState implements escrow.Store.GetAllByState
func (s *store) GetAllByState(_ context.Context, state escrow.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*escrow.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items := s.findByState(state); len(items) > 0 {
		res := s.filter(items, cursor, limit, direction)

		if len(res) == 0 {
			return nil, escrow.ErrEscrowNotFound
		}

		return res, nil
	}

	return nil, escrow.ErrEscrowNotFound
}

// CountByState implements escrow.Store.CountByState
func (s *store) CountByState(_ context.Context, state escrow.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findByState(state)
	return uint64(len(items)), nil
}

func (s *store) find(data *escrow.Record) *escrow.Record {
	for _, item := range s.records {
		if item.Id == data.Id {
			return item
		}
		if data.Address == item.Address {
			return item
		}
	}
	return nil
}

func (s *store) findByAddress(address string) *escrow.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) findByVault(vault string) *escrow.Record {
	for _, item := range s.records {
		if item.Vault == vault {
			return item
		}
	}
	return nil
}

func (s *store) findBySeller(seller string) []*escrow.Record {
	res := make([]*escrow.Record, 0)
	for _, item := range s.records {
		if item.Seller == seller {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) findByState(state escrow.State) []*escrow.Record {
	res := make([]*escrow.Record, 0)
	for _, item := range s.records {
		if item.State == state {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*escrow.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*escrow.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*escrow.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item.Clone())
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item.Clone())
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
