package postgres

import (
	"context"
	"database/sql"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/repository"
)

type inspectionRepository struct {
	db Querier
}

func NewInspectionRepository(db Querier) repository.InspectionRepository {
	return &inspectionRepository{db: db}
}

func (r *inspectionRepository) GetByBookingAndType(ctx context.Context, bookingID int32, typ domain.InspectionType) (*domain.Inspection, error) {
	var in domain.Inspection
	var mileage sql.NullInt64
	var completedAt sql.NullTime
	query := `SELECT id, booking_id, type, mileage, completed_at FROM inspections
	          WHERE booking_id = $1 AND type = $2 ORDER BY id DESC LIMIT 1`
	err := r.db.QueryRowContext(ctx, query, bookingID, typ).Scan(&in.ID, &in.BookingID, &in.Type, &mileage, &completedAt)
	if err != nil {
		return nil, err
	}
	if mileage.Valid {
		in.Mileage = &mileage.Int64
	}
	if completedAt.Valid {
		in.CompletedAt = &completedAt.Time
	}
	return &in, nil
}

type vehicleRepository struct {
	db Querier
}

func NewVehicleRepository(db Querier) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetMileagePolicy(ctx context.Context, vehicleID int32) (*domain.VehicleMileagePolicy, error) {
	p := domain.VehicleMileagePolicy{VehicleID: vehicleID}
	query := `SELECT included_kilometers, price_per_extra_km, mileage_charging_enabled FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, vehicleID).Scan(&p.IncludedKilometers, &p.PricePerExtraKm, &p.MileageChargingEnabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
