package trip

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/summitos/summit-sync/internal/telemetry"
)

const (
	tripBucketName  = "trips"
	claimBucketName = "drive_claims"
)

// BindResult describes the outcome of a conditional drive bind.
type BindResult int

const (
	// BindBound means the drive was claimed for the trip.
	BindBound BindResult = iota
	// BindAlreadyBound means the trip already carries a drive; nothing changed.
	BindAlreadyBound
	// BindDriveClaimed means another trip owns this drive; nothing changed.
	BindDriveClaimed
)

// DB defines the persistence operations for trip records.
type DB interface {
	// SaveTrip writes a trip record, overwriting any existing version.
	SaveTrip(t *TripRecord) error

	// GetTrip retrieves a trip record by ID.
	GetTrip(id string) (*TripRecord, error)

	// ListTrips returns all trip records.
	ListTrips() ([]*TripRecord, error)

	// BindDrive claims a drive segment for a trip. The bind only happens
	// if the trip is still unbound and the drive is unclaimed, so
	// concurrent scheduler runs and retried invocations cannot double-bind
	// or overwrite an existing link.
	BindDrive(tripID string, seg *telemetry.DriveSegment, now time.Time) (BindResult, error)

	// Close closes the database.
	Close() error
}

// BoltDB implements DB on top of bbolt.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the trip database at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(tripBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(claimBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveTrip writes a trip record.
func (b *BoltDB) SaveTrip(t *TripRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(tripBucketName))
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling trip: %w", err)
		}
		return bucket.Put([]byte(t.ID), data)
	})
}

// GetTrip retrieves a trip record by ID.
func (b *BoltDB) GetTrip(id string) (*TripRecord, error) {
	var t *TripRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(tripBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("trip not found: %s", id)
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTrips returns all trip records.
func (b *BoltDB) ListTrips() ([]*TripRecord, error) {
	trips := make([]*TripRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(tripBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var t TripRecord
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("unmarshaling trip: %w", err)
			}
			trips = append(trips, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

// BindDrive performs the optimistic check-then-set bind. bbolt serializes
// writers, so the check and the write are atomic with respect to any other
// bind attempt.
func (b *BoltDB) BindDrive(tripID string, seg *telemetry.DriveSegment, now time.Time) (BindResult, error) {
	result := BindBound

	err := b.db.Update(func(tx *bbolt.Tx) error {
		trips := tx.Bucket([]byte(tripBucketName))
		data := trips.Get([]byte(tripID))
		if data == nil {
			return fmt.Errorf("trip not found: %s", tripID)
		}

		var t TripRecord
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("unmarshaling trip: %w", err)
		}
		if t.Bound() {
			result = BindAlreadyBound
			return nil
		}

		claims := tx.Bucket([]byte(claimBucketName))
		claimKey := []byte(strconv.FormatInt(seg.ID, 10))
		if owner := claims.Get(claimKey); owner != nil && string(owner) != tripID {
			result = BindDriveClaimed
			return nil
		}

		t.Drive = seg
		t.UpdatedAt = now
		updated, err := json.Marshal(&t)
		if err != nil {
			return fmt.Errorf("marshaling trip: %w", err)
		}
		if err := trips.Put([]byte(tripID), updated); err != nil {
			return err
		}
		return claims.Put(claimKey, []byte(tripID))
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
