package webpush

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store.
// Suitable for development and testing.
//
// All access is serialized by one mutex. A transaction holds the mutex for its
// whole duration and works on a copy of the data that replaces the live data
// only when the transaction function succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	devices       map[string]Device
	subscriptions map[string]Subscription
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			devices:       make(map[string]Device),
			subscriptions: make(map[string]Subscription),
		},
	}
}

func (s *MemoryStore) Devices() DeviceRepository {
	return &memoryRepos{store: s}
}

func (s *MemoryStore) Subscriptions() SubscriptionRepository {
	return &memoryRepos{store: s}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &memoryRepos{store: s, tx: snapshot}); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		devices:       make(map[string]Device, len(st.devices)),
		subscriptions: make(map[string]Subscription, len(st.subscriptions)),
	}
	for id, d := range st.devices {
		c.devices[id] = copyDevice(d)
	}
	for id, sub := range st.subscriptions {
		c.subscriptions[id] = copySubscription(sub)
	}
	return c
}

// memoryRepos implements both repositories, either against the live state
// (tx == nil) or against a transaction snapshot.
type memoryRepos struct {
	store *MemoryStore
	tx    *memoryState
}

func (r *memoryRepos) Devices() DeviceRepository             { return r }
func (r *memoryRepos) Subscriptions() SubscriptionRepository { return r }

func (r *memoryRepos) acquire() (*memoryState, func()) {
	if r.tx != nil {
		return r.tx, func() {}
	}
	r.store.mu.Lock()
	return r.store.state, r.store.mu.Unlock
}

func (r *memoryRepos) FindDevice(ctx context.Context, filter DeviceFilter) (*Device, error) {
	st, unlock := r.acquire()
	defer unlock()

	devices := st.matchDevices(filter)
	if len(devices) == 0 {
		return nil, ErrRecordNotFound
	}
	return &devices[0], nil
}

func (r *memoryRepos) ListDevices(ctx context.Context, filter DeviceFilter) ([]Device, error) {
	st, unlock := r.acquire()
	defer unlock()

	return st.matchDevices(filter), nil
}

func (r *memoryRepos) CreateDevice(ctx context.Context, device *Device) error {
	if device == nil {
		return errors.New("device is required")
	}

	st, unlock := r.acquire()
	defer unlock()

	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	if _, exists := st.devices[device.ID]; exists {
		return errors.New("device id already exists")
	}
	now := time.Now()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	if device.UpdatedAt.IsZero() {
		device.UpdatedAt = now
	}
	st.devices[device.ID] = copyDevice(*device)
	return nil
}

func (r *memoryRepos) UpdateDevice(ctx context.Context, device *Device) error {
	if device == nil {
		return errors.New("device is required")
	}

	st, unlock := r.acquire()
	defer unlock()

	existing, ok := st.devices[device.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrRecordNotFound
	}
	if device.UpdatedAt.IsZero() {
		device.UpdatedAt = time.Now()
	}
	st.devices[device.ID] = copyDevice(*device)
	return nil
}

func (r *memoryRepos) DeleteDevices(ctx context.Context, deviceID string) error {
	st, unlock := r.acquire()
	defer unlock()

	for id, d := range st.devices {
		if d.DeviceID == deviceID {
			delete(st.devices, id)
		}
	}
	return nil
}

func (r *memoryRepos) FindSubscription(ctx context.Context, filter SubscriptionFilter) (*Subscription, error) {
	st, unlock := r.acquire()
	defer unlock()

	var found []Subscription
	for _, sub := range st.subscriptions {
		if sub.DeletedAt != nil || sub.DeviceID != filter.DeviceID {
			continue
		}
		if filter.ActiveOnly && !sub.IsActive {
			continue
		}
		found = append(found, copySubscription(sub))
	}
	if len(found) == 0 {
		return nil, ErrRecordNotFound
	}

	slices.SortFunc(found, func(a, b Subscription) int {
		if a.IsActive != b.IsActive {
			if a.IsActive {
				return -1
			}
			return 1
		}
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return &found[0], nil
}

func (r *memoryRepos) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return errors.New("subscription is required")
	}

	st, unlock := r.acquire()
	defer unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if _, exists := st.subscriptions[sub.ID]; exists {
		return errors.New("subscription id already exists")
	}
	if st.hasOtherActive(*sub) {
		return ErrConflict
	}
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = now
	}
	st.subscriptions[sub.ID] = copySubscription(*sub)
	return nil
}

func (r *memoryRepos) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return errors.New("subscription is required")
	}

	st, unlock := r.acquire()
	defer unlock()

	existing, ok := st.subscriptions[sub.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrRecordNotFound
	}
	if st.hasOtherActive(*sub) {
		return ErrConflict
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now()
	}
	st.subscriptions[sub.ID] = copySubscription(*sub)
	return nil
}

func (r *memoryRepos) DeleteSubscriptions(ctx context.Context, deviceID string) error {
	st, unlock := r.acquire()
	defer unlock()

	for id, sub := range st.subscriptions {
		if sub.DeviceID == deviceID {
			delete(st.subscriptions, id)
		}
	}
	return nil
}

func (st *memoryState) matchDevices(filter DeviceFilter) []Device {
	var out []Device
	for _, d := range st.devices {
		if d.DeletedAt != nil {
			continue
		}
		if filter.DeviceID != "" && d.DeviceID != filter.DeviceID {
			continue
		}
		if !filter.AnyCustomer && d.CustomerID != filter.CustomerID {
			continue
		}
		out = append(out, copyDevice(d))
	}

	slices.SortFunc(out, func(a, b Device) int {
		if c := b.LastUsed.Compare(a.LastUsed); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// hasOtherActive reports whether storing sub would leave two active
// subscriptions for its device id.
func (st *memoryState) hasOtherActive(sub Subscription) bool {
	if !sub.IsActive || sub.DeletedAt != nil {
		return false
	}
	for id, other := range st.subscriptions {
		if id != sub.ID && other.DeviceID == sub.DeviceID && other.IsActive && other.DeletedAt == nil {
			return true
		}
	}
	return false
}

func copyDevice(d Device) Device {
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		d.DeletedAt = &t
	}
	return d
}

func copySubscription(s Subscription) Subscription {
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		s.DeletedAt = &t
	}
	return s
}
