package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Fixture holds the catalog rows a booking needs.
type Fixture struct {
	Supplier *domain.User
	Driver   *domain.User
	Car      *domain.Car
}

func SeedFixture(t *testing.T, td *TestDatabase, store ports.Store) *Fixture {
	t.Helper()
	ctx := context.Background()

	supplier := &domain.User{
		ID:        uuid.New(),
		Email:     "supplier-" + uuid.NewString() + "@example.com",
		FullName:  "Supplier",
		Language:  "en",
		Type:      domain.UserTypeSupplier,
		Verified:  true,
		PayLater:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Users().CreateUser(ctx, supplier))

	driver := domain.NewGuestDriver("driver-"+uuid.NewString()+"@example.com", "Driver", "+100", "en", nil, nil)
	require.NoError(t, store.Users().CreateUser(ctx, driver))

	car := &domain.Car{
		ID:           uuid.New(),
		SupplierID:   supplier.ID,
		Name:         "Compact",
		DailyPrice:   10000,
		Deposit:      50000,
		Cancellation: 2000,
	}
	_, err := td.DB.Pool.Exec(ctx, `INSERT INTO cars (id, supplier_id, name, daily_price, deposit, cancellation)
		VALUES ($1, $2, $3, $4, $5, $6)`, car.ID, car.SupplierID, car.Name, car.DailyPrice, car.Deposit, car.Cancellation)
	require.NoError(t, err)

	return &Fixture{Supplier: supplier, Driver: driver, Car: car}
}

// NewBooking builds an unsaved booking for the fixture with the given lifecycle.
func (f *Fixture) NewBooking(lifecycle domain.Lifecycle) *domain.Booking {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Booking{
		ID:                uuid.New(),
		SupplierID:        f.Supplier.ID,
		CarID:             f.Car.ID,
		DriverID:          f.Driver.ID,
		PickupLocationID:  uuid.New(),
		DropOffLocationID: uuid.New(),
		From:              now.Add(24 * time.Hour),
		To:                now.Add(72 * time.Hour),
		Price:             20000,
		Options:           domain.Options{Cancellation: true},
		Lifecycle:         lifecycle,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
