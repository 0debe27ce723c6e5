package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
	"rideshare/internal/settlement"
)

// ──────────────────────────────────────────────
// MEMORY STORE
// ──────────────────────────────────────────────

// MemoryStore is an in-memory repository.Store. Transactions are fully
// serialized, which is at least as strict as the row locks the PostgreSQL
// store relies on, and a failed transaction restores the state it found.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	rides    map[string]*domain.Ride
	bookings map[string]*domain.Booking
	payments map[string]*domain.Payment
	users    map[string]*domain.User
	ratings  []*domain.Rating

	// Counters for verification
	CommitCount   int32
	RollbackCount int32

	// Error injection
	BookingCreateError    error
	PaymentCreateError    error
	RatingAggregateError  error
	WalletUpdateErrorUser string
}

// Ensure MemoryStore implements repository.Store.
var _ repository.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rides:    make(map[string]*domain.Ride),
		bookings: make(map[string]*domain.Booking),
		payments: make(map[string]*domain.Payment),
		users:    make(map[string]*domain.User),
	}
}

// Repos returns repositories that read and write the committed state.
func (s *MemoryStore) Repos() repository.Repositories {
	return repository.Repositories{
		Rides:    &memRideRepo{s: s},
		Bookings: &memBookingRepo{s: s},
		Payments: &memPaymentRepo{s: s},
		Users:    &memUserRepo{s: s},
		Ratings:  &memRatingRepo{s: s},
	}
}

// WithinTx runs fn while holding the transaction lock and rolls back on
// error or panic.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			atomic.AddInt32(&s.RollbackCount, 1)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
			atomic.AddInt32(&s.RollbackCount, 1)
			return
		}
		atomic.AddInt32(&s.CommitCount, 1)
	}()

	return fn(ctx, s.Repos())
}

type storeSnapshot struct {
	rides    map[string]domain.Ride
	bookings map[string]domain.Booking
	payments map[string]domain.Payment
	users    map[string]domain.User
	ratings  []domain.Rating
}

func (s *MemoryStore) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := storeSnapshot{
		rides:    make(map[string]domain.Ride, len(s.rides)),
		bookings: make(map[string]domain.Booking, len(s.bookings)),
		payments: make(map[string]domain.Payment, len(s.payments)),
		users:    make(map[string]domain.User, len(s.users)),
		ratings:  make([]domain.Rating, 0, len(s.ratings)),
	}
	for id, r := range s.rides {
		snap.rides[id] = *r
	}
	for id, b := range s.bookings {
		snap.bookings[id] = *b
	}
	for id, p := range s.payments {
		snap.payments[id] = *p
	}
	for id, u := range s.users {
		snap.users[id] = *u
	}
	for _, r := range s.ratings {
		snap.ratings = append(snap.ratings, *r)
	}
	return snap
}

func (s *MemoryStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rides = make(map[string]*domain.Ride, len(snap.rides))
	for id, r := range snap.rides {
		r := r
		s.rides[id] = &r
	}
	s.bookings = make(map[string]*domain.Booking, len(snap.bookings))
	for id, b := range snap.bookings {
		b := b
		s.bookings[id] = &b
	}
	s.payments = make(map[string]*domain.Payment, len(snap.payments))
	for id, p := range snap.payments {
		p := p
		s.payments[id] = &p
	}
	s.users = make(map[string]*domain.User, len(snap.users))
	for id, u := range snap.users {
		u := u
		s.users[id] = &u
	}
	s.ratings = make([]*domain.Rating, 0, len(snap.ratings))
	for _, r := range snap.ratings {
		r := r
		s.ratings = append(s.ratings, &r)
	}
}

// AddRide seeds a ride.
func (s *MemoryStore) AddRide(ride *domain.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *ride
	s.rides[ride.ID] = &r
}

// AddUser seeds a user.
func (s *MemoryStore) AddUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[user.ID] = &u
}

// AddBooking seeds a booking.
func (s *MemoryStore) AddBooking(booking *domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *booking
	s.bookings[booking.ID] = &b
}

// Ride returns a copy of the stored ride, or nil.
func (s *MemoryStore) Ride(id string) *domain.Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rides[id]
	if !ok {
		return nil
	}
	c := *r
	return &c
}

// User returns a copy of the stored user, or nil.
func (s *MemoryStore) User(id string) *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

// Booking returns a copy of the stored booking, or nil.
func (s *MemoryStore) Booking(id string) *domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	c := *b
	return &c
}

// Payment returns a copy of the stored payment, or nil.
func (s *MemoryStore) Payment(id string) *domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// BookingsForRide returns copies of every booking on a ride.
func (s *MemoryStore) BookingsForRide(rideID string) []*domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range s.bookings {
		if b.RideID == rideID {
			c := *b
			out = append(out, &c)
		}
	}
	return out
}

// PaymentsForBooking returns copies of every payment on a booking.
func (s *MemoryStore) PaymentsForBooking(bookingID string) []*domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			c := *p
			out = append(out, &c)
		}
	}
	return out
}

// CountRatings returns the number of stored ratings.
func (s *MemoryStore) CountRatings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ratings)
}

// ── rides ──

type memRideRepo struct{ s *MemoryStore }

func (r *memRideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	r.s.AddRide(ride)
	return nil
}

func (r *memRideRepo) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	ride := r.s.Ride(id)
	if ride == nil {
		return nil, repository.ErrNotFound
	}
	return ride, nil
}

func (r *memRideRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r *memRideRepo) Update(ctx context.Context, ride *domain.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	if ride.AvailableSeats < 0 || ride.AvailableSeats > ride.TotalSeats {
		return fmt.Errorf("check constraint: available_seats %d outside [0, %d]", ride.AvailableSeats, ride.TotalSeats)
	}
	c := *ride
	r.s.rides[ride.ID] = &c
	return nil
}

// ── bookings ──

type memBookingRepo struct{ s *MemoryStore }

func (r *memBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	if r.s.BookingCreateError != nil {
		return r.s.BookingCreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.RideID == booking.RideID && b.RiderID == booking.RiderID && b.Status != domain.BookingStatusCancelled {
			return errors.New("unique constraint: active booking exists")
		}
	}
	c := *booking
	r.s.bookings[booking.ID] = &c
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b := r.s.Booking(id)
	if b == nil {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (r *memBookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *memBookingRepo) GetActiveByRideAndRider(ctx context.Context, rideID, riderID string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bookings {
		if b.RideID == rideID && b.RiderID == riderID && b.Status != domain.BookingStatusCancelled {
			c := *b
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	out := r.s.BookingsForRide(rideID)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memBookingRepo) Update(ctx context.Context, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[booking.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *booking
	r.s.bookings[booking.ID] = &c
	return nil
}

// ── payments ──

type memPaymentRepo struct{ s *MemoryStore }

func (r *memPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	if r.s.PaymentCreateError != nil {
		return r.s.PaymentCreateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.BookingID == payment.BookingID && p.Status.IsOpen() {
			return errors.New("unique constraint: open payment exists")
		}
		if p.TransactionRef == payment.TransactionRef {
			return errors.New("unique constraint: transaction_ref")
		}
	}
	c := *payment
	r.s.payments[payment.ID] = &c
	return nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p := r.s.Payment(id)
	if p == nil {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *memPaymentRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *memPaymentRepo) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error) {
	return r.s.PaymentsForBooking(bookingID), nil
}

func (r *memPaymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *payment
	r.s.payments[payment.ID] = &c
	return nil
}

// ── users ──

type memUserRepo struct{ s *MemoryStore }

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.AddUser(user)
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := r.s.User(id)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUserRepo) UpdateWalletBalance(ctx context.Context, id string, balance domain.Money) error {
	if r.s.WalletUpdateErrorUser == id {
		return errors.New("injected wallet update failure")
	}
	if balance.IsNegative() {
		return errors.New("check constraint: wallet_balance >= 0")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.WalletBalance = balance
	return nil
}

func (r *memUserRepo) UpdateRatingAggregate(ctx context.Context, id string, role domain.RatingRole, avg decimal.Decimal, count int) error {
	if r.s.RatingAggregateError != nil {
		return r.s.RatingAggregateError
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	switch role {
	case domain.RatingRoleDriver:
		u.AvgRatingAsDriver, u.RatingCountAsDriver = avg, count
	case domain.RatingRoleRider:
		u.AvgRatingAsRider, u.RatingCountAsRider = avg, count
	default:
		return fmt.Errorf("unknown rating role %q", role)
	}
	return nil
}

// ── ratings ──

type memRatingRepo struct{ s *MemoryStore }

func (r *memRatingRepo) Create(ctx context.Context, rating *domain.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.ratings {
		if existing.BookingID == rating.BookingID && existing.FromUserID == rating.FromUserID {
			return errors.New("unique constraint: rating per booking and rater")
		}
	}
	c := *rating
	r.s.ratings = append(r.s.ratings, &c)
	return nil
}

func (r *memRatingRepo) ExistsForBookingAndRater(ctx context.Context, bookingID, fromUserID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, existing := range r.s.ratings {
		if existing.BookingID == bookingID && existing.FromUserID == fromUserID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRatingRepo) ListScoresForTarget(ctx context.Context, userID string, role domain.RatingRole) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var scores []int
	for _, existing := range r.s.ratings {
		if existing.ToUserID == userID && existing.TargetRole == role {
			scores = append(scores, existing.Score)
		}
	}
	return scores, nil
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records every notification it is asked to publish.
type MockPublisher struct {
	mu            sync.Mutex
	notifications []domain.Notification

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	return p.PublishError
}

// Notifications returns a copy of what was published.
func (p *MockPublisher) Notifications() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Notification(nil), p.notifications...)
}

// ByType returns the published notifications of one type.
func (p *MockPublisher) ByType(t domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, n := range p.Notifications() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK SETTLEMENT DISPATCHER
// ──────────────────────────────────────────────

// MockDispatcher records submitted payments without settling them.
type MockDispatcher struct {
	mu        sync.Mutex
	submitted []string

	// Error injection
	SubmitError error
}

// Ensure MockDispatcher implements settlement.Dispatcher.
var _ settlement.Dispatcher = (*MockDispatcher)(nil)

// NewMockDispatcher creates a new mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (d *MockDispatcher) Submit(ctx context.Context, paymentID string) error {
	if d.SubmitError != nil {
		return d.SubmitError
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = append(d.submitted, paymentID)
	return nil
}

// Submitted returns the payment IDs handed to the dispatcher.
func (d *MockDispatcher) Submitted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.submitted...)
}
