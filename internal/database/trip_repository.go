package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angewarren12/billeterie-maritime-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TripRepository reads ferry crossings. Capacity is only written by the booking finalize.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// GetTripByID retrieves a trip by ID. Returns nil, nil when not found.
func (r *TripRepository) GetTripByID(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	query := `
		SELECT id, departure_port, arrival_port, departure_time, ship_name,
		       base_fare, remaining_capacity, status, created_at, updated_at
		FROM trips
		WHERE id = $1`

	err := r.db.GetContext(ctx, &trip, query, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// decrementCapacity takes seats on a trip inside the finalize transaction.
// The WHERE clause is the whole check: zero rows means the trip filled up,
// departed or was cancelled since the soft check.
func decrementCapacity(ctx context.Context, tx sqlx.ExecerContext, tripID uuid.UUID, seats int) error {
	query := `
		UPDATE trips
		SET remaining_capacity = remaining_capacity - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND remaining_capacity >= $2
		  AND status = 'scheduled'
		  AND departure_time > NOW()`

	result, err := tx.ExecContext(ctx, query, tripID, seats)
	if err != nil {
		return fmt.Errorf("failed to decrement trip capacity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return &models.TripUnavailableError{TripID: tripID, Reason: "sold_out"}
	}
	return nil
}
