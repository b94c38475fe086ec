// Package builddb provides build database functionality using bbolt
// for persistent tracking of build attempts and already-built detection
// via the fingerprint index.
package builddb

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for bbolt database
const (
	BucketBuilds      = "builds"
	BucketPackages    = "packages"
	BucketBuildRuns   = "build_runs"
	BucketRunPackages = "run_packages"
)

// DB wraps a bbolt database for build tracking and fingerprint indexing
type DB struct {
	db   *bolt.DB
	path string
}

// BuildRecord represents a single build attempt with status and timestamps
type BuildRecord struct {
	UUID      string    `json:"uuid"`
	PortDir   string    `json:"portdir"`
	Version   string    `json:"version"`
	Status    string    `json:"status"` // "running" | "success" | "failed"
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// OpenDB opens or creates a bbolt database at the given path.
// It automatically initializes the required buckets (builds, packages,
// fingerprints, build_runs, run_packages)
// if they don't exist. The database is opened with 0600 permissions.
//
// Parameters:
//   - path: Filesystem path to the database file
//
// Returns:
//   - *DB: Database handle if successful
//   - error: Any error encountered during open or initialization
//
// Example:
//
//	db, err := OpenDB("/var/db/portforge/builds.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
func OpenDB(path string) (*DB, error) {
	// Open database with user read/write permissions only (0600)
	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	// Initialize required buckets in a single write transaction
	err = bdb.Update(func(tx *bolt.Tx) error {
		// Create builds bucket for storing BuildRecord JSON
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketBuilds)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketBuilds, Err: err}
		}

		// Create packages bucket for tracking latest successful builds
		// Key format: "portdir@version" -> UUID
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketPackages)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketPackages, Err: err}
		}

		// Create fingerprints bucket for already-built detection keyed on
		// the resolver's (origin, flavor, version, fingerprint) tuple.
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketFingerprints)); err != nil {
			return &DatabaseError{Op: "create bucket", Bucket: BucketFingerprints, Err: err}
		}

		// Create run-history buckets used by StartRun and friends (runs.go)
		for _, name := range []string{BucketBuildRuns, BucketRunPackages} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return &DatabaseError{Op: "create bucket", Bucket: name, Err: err}
			}
		}

		return nil
	})

	if err != nil {
		// Close database if bucket initialization fails
		bdb.Close()
		return nil, err
	}

	return &DB{
		db:   bdb,
		path: path,
	}, nil
}

// Close closes the database connection and flushes any pending writes to disk.
// It is safe to call Close multiple times. After Close is called, the DB
// should not be used.
//
// Returns:
//   - error: Any error encountered during close operation
//
// Example:
//
//	db, err := OpenDB("/tmp/builds.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// SaveRecord stores a BuildRecord in the database. The record is serialized
// to JSON and stored in the builds bucket with the UUID as the key.
//
// Parameters:
//   - rec: Pointer to BuildRecord to save
//
// Returns:
//   - error: Any error encountered during save operation
//
// Example:
//
//	rec := &BuildRecord{
//	    UUID:      "abc-123",
//	    PortDir:   "editors/vim",
//	    Version:   "9.0.1",
//	    Status:    "running",
//	    StartTime: time.Now(),
//	}
//	if err := db.SaveRecord(rec); err != nil {
//	    log.Fatal(err)
//	}
func (db *DB) SaveRecord(rec *BuildRecord) error {
	if rec.UUID == "" {
		return &ValidationError{Field: "record.UUID", Err: ErrEmptyUUID}
	}

	// Marshal BuildRecord to JSON
	data, err := json.Marshal(rec)
	if err != nil {
		return &RecordError{Op: "marshal", UUID: rec.UUID, Err: err}
	}

	// Store in builds bucket
	err = db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}
		return bucket.Put([]byte(rec.UUID), data)
	})

	if err != nil {
		return &RecordError{Op: "save", UUID: rec.UUID, Err: err}
	}

	return nil
}

// GetRecord retrieves a BuildRecord from the database by its UUID.
//
// Parameters:
//   - uuid: The unique identifier of the build record
//
// Returns:
//   - *BuildRecord: The retrieved record, or nil if not found
//   - error: Any error encountered, including not found errors
//
// Example:
//
//	rec, err := db.GetRecord("abc-123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Build status: %s\n", rec.Status)
func (db *DB) GetRecord(uuid string) (*BuildRecord, error) {
	if uuid == "" {
		return nil, &ValidationError{Field: "uuid", Err: ErrEmptyUUID}
	}

	var rec BuildRecord

	err := db.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}

		data := bucket.Get([]byte(uuid))
		if data == nil {
			return &RecordError{Op: "get", UUID: uuid, Err: ErrRecordNotFound}
		}

		return json.Unmarshal(data, &rec)
	})

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// UpdateRecordStatus updates the status and end time of an existing BuildRecord.
// This is more efficient than retrieving the full record, modifying it, and
// saving it back, as it does the read-modify-write in a single transaction.
//
// Parameters:
//   - uuid: The unique identifier of the build record to update
//   - status: New status value (e.g., "success", "failed")
//   - endTime: The completion timestamp
//
// Returns:
//   - error: Any error encountered during update operation
//
// Example:
//
//	err := db.UpdateRecordStatus("abc-123", "success", time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
func (db *DB) UpdateRecordStatus(uuid, status string, endTime time.Time) error {
	if uuid == "" {
		return &ValidationError{Field: "uuid", Err: ErrEmptyUUID}
	}

	err := db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketBuilds))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}

		// Read existing record
		data := bucket.Get([]byte(uuid))
		if data == nil {
			return &RecordError{Op: "update status", UUID: uuid, Err: ErrRecordNotFound}
		}

		// Unmarshal, update, marshal
		var rec BuildRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return &RecordError{Op: "unmarshal", UUID: uuid, Err: err}
		}

		rec.Status = status
		rec.EndTime = endTime

		updatedData, err := json.Marshal(&rec)
		if err != nil {
			return &RecordError{Op: "marshal", UUID: uuid, Err: err}
		}

		// Save back
		return bucket.Put([]byte(uuid), updatedData)
	})

	if err != nil {
		return &RecordError{Op: "update status", UUID: uuid, Err: err}
	}

	return nil
}

// LatestFor retrieves the most recent successful build record for a given port
// directory and version combination.
//
// The function looks up the package index using the key format "portdir@version"
// (e.g., "editors/vim@9.0.1") and returns the full BuildRecord for the associated
// UUID. Returns nil with no error if no record exists for this port/version.
//
// Parameters:
//   - portDir: The port directory path (e.g., "editors/vim")
//   - version: The version string (e.g., "9.0.1")
//
// Returns:
//   - *BuildRecord: The latest successful build record, or nil if not found
//   - error: Any database or unmarshaling errors
func (db *DB) LatestFor(portDir, version string) (*BuildRecord, error) {
	key := []byte(portDir + "@" + version)
	var rec *BuildRecord

	err := db.db.View(func(tx *bolt.Tx) error {
		packages := tx.Bucket([]byte("packages"))
		if packages == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketPackages, Err: ErrBucketNotFound}
		}

		// Look up UUID in packages bucket
		uuidBytes := packages.Get(key)
		if uuidBytes == nil {
			// No record found - not an error, just means no builds yet
			return nil
		}

		// Retrieve the full record from builds bucket
		builds := tx.Bucket([]byte("builds"))
		if builds == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketBuilds, Err: ErrBucketNotFound}
		}

		recordBytes := builds.Get(uuidBytes)
		if recordBytes == nil {
			// UUID points to non-existent record - data inconsistency
			return &PackageIndexError{
				Op:      "validate",
				PortDir: portDir,
				Version: version,
				Err:     ErrOrphanedRecord,
			}
		}

		// Unmarshal the build record
		rec = &BuildRecord{}
		if err := json.Unmarshal(recordBytes, rec); err != nil {
			return &RecordError{Op: "unmarshal", UUID: string(uuidBytes), Err: err}
		}

		return nil
	})

	if err != nil {
		return nil, &PackageIndexError{Op: "lookup", PortDir: portDir, Version: version, Err: err}
	}

	return rec, nil
}

// UpdatePackageIndex updates the package index to point to the latest successful
// build for a given port directory and version combination.
//
// This function should be called when a build completes successfully to ensure
// the package index tracks the most recent successful build. The key format is
// "portdir@version" (matching the flavor syntax used throughout portforge).
//
// Parameters:
//   - portDir: The port directory path (e.g., "editors/vim")
//   - version: The version string (e.g., "9.0.1")
//   - uuid: The UUID of the successful build to track
//
// Returns:
//   - error: Any database errors that occur during the update
func (db *DB) UpdatePackageIndex(portDir, version, uuid string) error {
	key := []byte(portDir + "@" + version)
	value := []byte(uuid)

	err := db.db.Update(func(tx *bolt.Tx) error {
		packages := tx.Bucket([]byte("packages"))
		if packages == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketPackages, Err: ErrBucketNotFound}
		}

		return packages.Put(key, value)
	})

	if err != nil {
		return &PackageIndexError{Op: "update", PortDir: portDir, Version: version, Err: err}
	}

	return nil
}

// DBStats summarizes the build database's contents, the information a
// `status` directive with no port arguments reports to the operator.
type DBStats struct {
	TotalBuilds       int   // entries in the builds bucket
	TotalPackages     int   // entries in the packages bucket
	TotalFingerprints int   // entries in the fingerprints bucket
	DatabaseSize      int64 // size in bytes of the database file on disk
}

// Stats counts the entries in each bucket and stats the backing file.
func (db *DB) Stats() (*DBStats, error) {
	stats := &DBStats{}

	err := db.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(BucketBuilds)); b != nil {
			stats.TotalBuilds = b.Stats().KeyN
		}
		if b := tx.Bucket([]byte(BucketPackages)); b != nil {
			stats.TotalPackages = b.Stats().KeyN
		}
		if b := tx.Bucket([]byte(BucketFingerprints)); b != nil {
			stats.TotalFingerprints = b.Stats().KeyN
		}
		return nil
	})
	if err != nil {
		return nil, &DatabaseError{Op: "stats", Err: err}
	}

	if info, err := os.Stat(db.path); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}
