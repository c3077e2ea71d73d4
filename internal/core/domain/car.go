package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// OptionUnavailable marks an option price the car does not offer.
const OptionUnavailable int64 = -1

// Car is the part of the catalog the booking engine reads. Prices are in minor units.
type Car struct {
	ID                    uuid.UUID
	SupplierID            uuid.UUID
	Name                  string
	DailyPrice            int64
	Deposit               int64
	Cancellation          int64
	Amendments            int64
	TheftProtection       int64
	CollisionDamageWaiver int64
	FullInsurance         int64
	AdditionalDriver      int64
	Trips                 int64
}

// RentalDays counts started days between from and to, with a minimum of one.
func RentalDays(from, to time.Time) int64 {
	days := int64(math.Ceil(to.Sub(from).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// ComputePrice prices a rental from the car tariff. Cancellation and
// amendments are flat fees; the remaining options are charged per day.
func ComputePrice(car *Car, from, to time.Time, opts Options) (int64, error) {
	if !to.After(from) {
		return 0, NewValidationError("rental end must be after start")
	}

	days := RentalDays(from, to)
	total := car.DailyPrice * days

	flat := []struct {
		name     string
		selected bool
		price    int64
	}{
		{"cancellation", opts.Cancellation, car.Cancellation},
		{"amendments", opts.Amendments, car.Amendments},
	}
	for _, o := range flat {
		if !o.selected {
			continue
		}
		if o.price == OptionUnavailable {
			return 0, NewOptionUnavailableError(o.name)
		}
		total += o.price
	}

	daily := []struct {
		name     string
		selected bool
		price    int64
	}{
		{"theftProtection", opts.TheftProtection, car.TheftProtection},
		{"collisionDamageWaiver", opts.CollisionDamageWaiver, car.CollisionDamageWaiver},
		{"fullInsurance", opts.FullInsurance, car.FullInsurance},
		{"additionalDriver", opts.AdditionalDriver, car.AdditionalDriver},
	}
	for _, o := range daily {
		if !o.selected {
			continue
		}
		if o.price == OptionUnavailable {
			return 0, NewOptionUnavailableError(o.name)
		}
		total += o.price * days
	}

	return total, nil
}
