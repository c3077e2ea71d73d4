package service

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
)

// memStore is an in-memory ports.Store. Stored records are never mutated in
// place, so a shallow snapshot of the maps is enough to roll back a
// transaction.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	now  func() time.Time

	bookings      map[uuid.UUID]*domain.Booking
	drivers       map[uuid.UUID]*domain.AdditionalDriver
	users         map[uuid.UUID]*domain.User
	tokens        []*domain.Token
	pushTokens    map[uuid.UUID][]string
	cars          map[uuid.UUID]*domain.Car
	notifications []*domain.Notification
	counters      map[uuid.UUID]int64

	CreateBookingFn    func(ctx context.Context, b *domain.Booking) error
	IncrementCounterFn func(ctx context.Context, userID uuid.UUID) error
}

func newMemStore() *memStore {
	return &memStore{
		now:        time.Now,
		bookings:   make(map[uuid.UUID]*domain.Booking),
		drivers:    make(map[uuid.UUID]*domain.AdditionalDriver),
		users:      make(map[uuid.UUID]*domain.User),
		pushTokens: make(map[uuid.UUID][]string),
		cars:       make(map[uuid.UUID]*domain.Car),
		counters:   make(map[uuid.UUID]int64),
	}
}

type memSnapshot struct {
	bookings      map[uuid.UUID]*domain.Booking
	drivers       map[uuid.UUID]*domain.AdditionalDriver
	users         map[uuid.UUID]*domain.User
	tokens        []*domain.Token
	cars          map[uuid.UUID]*domain.Car
	notifications []*domain.Notification
	counters      map[uuid.UUID]int64
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		bookings:      copyMap(m.bookings),
		drivers:       copyMap(m.drivers),
		users:         copyMap(m.users),
		tokens:        slices.Clone(m.tokens),
		cars:          copyMap(m.cars),
		notifications: slices.Clone(m.notifications),
		counters:      copyMap(m.counters),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = s.bookings
	m.drivers = s.drivers
	m.users = s.users
	m.tokens = s.tokens
	m.cars = s.cars
	m.notifications = s.notifications
	m.counters = s.counters
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) Bookings() ports.BookingRepository           { return memBookings{m} }
func (m *memStore) Users() ports.UserRepository                 { return memUsers{m} }
func (m *memStore) Cars() ports.CarRepository                   { return memCars{m} }
func (m *memStore) Notifications() ports.NotificationRepository { return memNotifications{m} }

func (m *memStore) WithTx(ctx context.Context, fn func(ports.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(memTx{m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// memTx joins the running transaction.
type memTx struct{ *memStore }

func (t memTx) WithTx(ctx context.Context, fn func(ports.Store) error) error {
	return fn(t)
}

// seeding and inspection helpers

func (m *memStore) addUser(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *u
	m.users[u.ID] = &c
}

func (m *memStore) addCar(c *domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.cars[c.ID] = &cp
}

func (m *memStore) putBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *b
	m.bookings[b.ID] = &c
}

func (m *memStore) rawBooking(id uuid.UUID) *domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		c := *b
		return &c
	}
	return nil
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) user(id uuid.UUID) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c
	}
	return nil
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) trips(carID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cars[carID].Trips
}

func (m *memStore) driverCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drivers)
}

func (m *memStore) visible(b *domain.Booking) bool {
	exp := b.ExpireAt()
	return exp == nil || exp.After(m.now())
}

func (m *memStore) temporary(b *domain.Booking) bool {
	exp := b.ExpireAt()
	return b.Status() == domain.StatusVoid && exp != nil && exp.After(m.now())
}

func sameRef(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

type memBookings struct{ m *memStore }

func (r memBookings) CreateBooking(ctx context.Context, b *domain.Booking) error {
	if r.m.CreateBookingFn != nil {
		if err := r.m.CreateBookingFn(ctx, b); err != nil {
			return err
		}
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.bookings {
		if sameRef(b.Payment.SessionID, other.Payment.SessionID) {
			return domain.NewValidationError("payment session already attached to a booking")
		}
		if sameRef(b.Payment.IntentID, other.Payment.IntentID) {
			return domain.NewValidationError("payment intent already settled a booking")
		}
	}
	c := *b
	r.m.bookings[b.ID] = &c
	return nil
}

func (r memBookings) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || !r.m.visible(b) {
		return nil, domain.NewBookingNotFoundError(id.String())
	}
	c := *b
	return &c, nil
}

func (r memBookings) FindTemporaryByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || !r.m.temporary(b) {
		return nil, domain.NewBookingNotFoundError(id.String())
	}
	c := *b
	return &c, nil
}

func (r memBookings) FindTemporaryBySessionID(ctx context.Context, sessionID string) (*domain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, b := range r.m.bookings {
		if b.Payment.SessionID != nil && *b.Payment.SessionID == sessionID && r.m.temporary(b) {
			c := *b
			return &c, nil
		}
	}
	return nil, domain.NewBookingNotFoundError(sessionID)
}

func (r memBookings) ResolveAwaiting(ctx context.Context, id uuid.UUID, status domain.BookingStatus, payPalOrderID *string) (*domain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || !r.m.temporary(b) {
		return nil, domain.NewBookingNotFoundError(id.String())
	}
	c := *b
	c.Lifecycle = domain.MustResolved(status)
	if payPalOrderID != nil {
		c.Payment.PayPalOrderID = payPalOrderID
	}
	c.Version++
	c.UpdatedAt = r.m.now()
	r.m.bookings[id] = &c
	out := c
	return &out, nil
}

func (r memBookings) SetPayPalOrderID(ctx context.Context, id uuid.UUID, orderID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || !r.m.temporary(b) {
		return domain.NewBookingNotFoundError(id.String())
	}
	c := *b
	c.Payment.PayPalOrderID = &orderID
	r.m.bookings[id] = &c
	return nil
}

func (r memBookings) UpdateBooking(ctx context.Context, b *domain.Booking, expectedVersion *int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	current, ok := r.m.bookings[b.ID]
	if !ok || !r.m.visible(current) {
		return domain.NewBookingNotFoundError(b.ID.String())
	}
	if expectedVersion != nil && current.Version != *expectedVersion {
		return domain.NewConcurrentModificationError(b.ID.String(), *expectedVersion)
	}
	c := *b
	c.Version = current.Version + 1
	c.UpdatedAt = r.m.now()
	r.m.bookings[b.ID] = &c
	b.Version = c.Version
	b.UpdatedAt = c.UpdatedAt
	return nil
}

func (r memBookings) UpdateStatuses(ctx context.Context, ids []uuid.UUID, status domain.BookingStatus) ([]ports.StatusChange, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var changes []ports.StatusChange
	for _, id := range ids {
		b, ok := r.m.bookings[id]
		if !ok || b.Status() == domain.StatusVoid {
			continue
		}
		c := *b
		c.Lifecycle = domain.MustResolved(status)
		c.Version++
		r.m.bookings[id] = &c
		out := c
		changes = append(changes, ports.StatusChange{Booking: &out, Previous: b.Status()})
	}
	return changes, nil
}

func (r memBookings) RequestCancellation(ctx context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || b.CancelRequest || !b.Options.Cancellation || !b.Status().IsCancellable() {
		return false, nil
	}
	c := *b
	c.CancelRequest = true
	c.Version++
	r.m.bookings[id] = &c
	return true, nil
}

func (r memBookings) DeleteBookings(ctx context.Context, ids []uuid.UUID) ([]*domain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Booking
	for _, id := range ids {
		if b, ok := r.m.bookings[id]; ok {
			out = append(out, b)
			delete(r.m.bookings, id)
		}
	}
	return out, nil
}

func (r memBookings) deleteWhere(id uuid.UUID, match func(*domain.Booking) bool) (*domain.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok || !match(b) {
		return nil, domain.NewBookingNotFoundError(id.String())
	}
	delete(r.m.bookings, id)
	return b, nil
}

func (r memBookings) DeleteAwaiting(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.deleteWhere(id, func(b *domain.Booking) bool {
		return b.Lifecycle.IsAwaitingPayment()
	})
}

func (r memBookings) DeleteTemporary(ctx context.Context, id uuid.UUID, sessionID string) (*domain.Booking, error) {
	return r.deleteWhere(id, func(b *domain.Booking) bool {
		return b.Lifecycle.IsAwaitingPayment() && b.Payment.SessionID != nil && *b.Payment.SessionID == sessionID
	})
}

func (r memBookings) CreateAdditionalDriver(ctx context.Context, d *domain.AdditionalDriver) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *d
	r.m.drivers[d.ID] = &c
	return nil
}

func (r memBookings) UpdateAdditionalDriver(ctx context.Context, d *domain.AdditionalDriver) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.drivers[d.ID]; !ok {
		return domain.NewDriverNotFoundError(d.ID.String())
	}
	c := *d
	r.m.drivers[d.ID] = &c
	return nil
}

func (r memBookings) FindAdditionalDriver(ctx context.Context, id uuid.UUID) (*domain.AdditionalDriver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.drivers[id]
	if !ok {
		return nil, domain.NewDriverNotFoundError(id.String())
	}
	c := *d
	return &c, nil
}

func (r memBookings) DeleteAdditionalDrivers(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.m.drivers[id]; ok {
			delete(r.m.drivers, id)
			n++
		}
	}
	return n, nil
}

type memUsers struct{ m *memStore }

func (r memUsers) CreateUser(ctx context.Context, u *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, other := range r.m.users {
		if other.Email == u.Email {
			return domain.NewDuplicateEmailError(u.Email)
		}
	}
	c := *u
	r.m.users[u.ID] = &c
	return nil
}

func (r memUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.NewUserNotFoundError(id.String())
	}
	c := *u
	return &c, nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.NewUserNotFoundError(email)
}

func (r memUsers) CreateToken(ctx context.Context, t *domain.Token) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.tokens = append(r.m.tokens, t)
	return nil
}

func (r memUsers) ClearExpiry(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		c := *u
		c.ExpireAt = nil
		r.m.users[id] = &c
	}
	return nil
}

func (r memUsers) DeleteUnverifiedGuest(ctx context.Context, id uuid.UUID) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok || u.Verified || u.ExpireAt == nil {
		return false, nil
	}
	for _, b := range r.m.bookings {
		if b.DriverID == id {
			return false, nil
		}
	}
	delete(r.m.users, id)
	return true, nil
}

func (r memUsers) PushTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return slices.Clone(r.m.pushTokens[userID]), nil
}

type memCars struct{ m *memStore }

func (r memCars) FindByID(ctx context.Context, id uuid.UUID) (*domain.Car, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cars[id]
	if !ok {
		return nil, domain.NewCarNotFoundError(id.String())
	}
	cp := *c
	return &cp, nil
}

func (r memCars) IncrementTrips(ctx context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cars[id]
	if !ok {
		return domain.NewCarNotFoundError(id.String())
	}
	cp := *c
	cp.Trips++
	r.m.cars[id] = &cp
	return nil
}

type memNotifications struct{ m *memStore }

func (r memNotifications) CreateNotification(ctx context.Context, n *domain.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c := *n
	r.m.notifications = append(r.m.notifications, &c)
	return nil
}

func (r memNotifications) IncrementCounter(ctx context.Context, userID uuid.UUID) error {
	if r.m.IncrementCounterFn != nil {
		return r.m.IncrementCounterFn(ctx, userID)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.counters[userID]++
	return nil
}

func (r memNotifications) DecrementCounter(ctx context.Context, userID uuid.UUID, by int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.counters[userID] = max(r.m.counters[userID]-by, 0)
	return nil
}

func (r memNotifications) GetCounter(ctx context.Context, userID uuid.UUID) (*domain.NotificationCounter, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return &domain.NotificationCounter{UserID: userID, Count: int(r.m.counters[userID])}, nil
}

func (r memNotifications) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.m.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (r memNotifications) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for i, note := range r.m.notifications {
		if note.UserID == userID && !note.IsRead && slices.Contains(ids, note.ID) {
			c := *note
			c.IsRead = true
			r.m.notifications[i] = &c
			n++
		}
	}
	return n, nil
}

// MockCardGateway
type MockCardGateway struct {
	CreatePaymentSessionFn  func(ctx context.Context, req domain.SessionRequest) (*domain.Session, error)
	RetrieveSessionStatusFn func(ctx context.Context, sessionID string) (*domain.SessionStatus, error)
	CreatePaymentIntentFn   func(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error)
	RetrievePaymentIntentFn func(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
}

func (m *MockCardGateway) CreatePaymentSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	if m.CreatePaymentSessionFn != nil {
		return m.CreatePaymentSessionFn(ctx, req)
	}
	return &domain.Session{ID: "cs_test_" + req.BookingID, URL: "https://pay.example.com/cs_test"}, nil
}

func (m *MockCardGateway) RetrieveSessionStatus(ctx context.Context, sessionID string) (*domain.SessionStatus, error) {
	if m.RetrieveSessionStatusFn != nil {
		return m.RetrieveSessionStatusFn(ctx, sessionID)
	}
	return &domain.SessionStatus{ID: sessionID, State: domain.SessionOpen, Status: "open"}, nil
}

func (m *MockCardGateway) CreatePaymentIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error) {
	if m.CreatePaymentIntentFn != nil {
		return m.CreatePaymentIntentFn(ctx, req)
	}
	return &domain.PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret", CustomerID: "cus_test", Status: "requires_payment_method"}, nil
}

func (m *MockCardGateway) RetrievePaymentIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	if m.RetrievePaymentIntentFn != nil {
		return m.RetrievePaymentIntentFn(ctx, intentID)
	}
	return &domain.PaymentIntent{ID: intentID, CustomerID: "cus_test", Status: domain.IntentSucceeded}, nil
}

// MockWalletGateway
type MockWalletGateway struct {
	CreatePaymentSessionFn  func(ctx context.Context, req domain.SessionRequest) (*domain.Session, error)
	RetrieveSessionStatusFn func(ctx context.Context, orderID string) (*domain.SessionStatus, error)
}

func (m *MockWalletGateway) CreatePaymentSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	if m.CreatePaymentSessionFn != nil {
		return m.CreatePaymentSessionFn(ctx, req)
	}
	return &domain.Session{ID: "ORDER-1", URL: "https://wallet.example.com/approve/ORDER-1"}, nil
}

func (m *MockWalletGateway) RetrieveSessionStatus(ctx context.Context, orderID string) (*domain.SessionStatus, error) {
	if m.RetrieveSessionStatusFn != nil {
		return m.RetrieveSessionStatusFn(ctx, orderID)
	}
	return &domain.SessionStatus{ID: orderID, State: domain.SessionOpen, Status: "CREATED"}, nil
}

// recordingNotifier counts notifications per booking.
type recordingNotifier struct {
	mu            sync.Mutex
	activations   []uuid.UUID
	confirmed     []uuid.UUID
	stakeholders  []string
	statusChanged []uuid.UUID
	err           error
}

func (n *recordingNotifier) SendActivation(ctx context.Context, user *domain.User, token *domain.Token) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activations = append(n.activations, user.ID)
	return n.err
}

func (n *recordingNotifier) NotifyConfirmed(ctx context.Context, b *domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, b.ID)
	return n.err
}

func (n *recordingNotifier) NotifyStakeholders(ctx context.Context, b *domain.Booking, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stakeholders = append(n.stakeholders, message)
	return n.err
}

func (n *recordingNotifier) NotifyStatusChanged(ctx context.Context, b *domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanged = append(n.statusChanged, b.ID)
	return n.err
}

func (n *recordingNotifier) confirmedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed)
}
