package builddb

import (
	"encoding/hex"

	bolt "go.etcd.io/bbolt"

	"portforge/graph"
)

// BucketFingerprints indexes successfully built (origin, flavor, version,
// fingerprint) tuples, letting the resolver skip a node whose exact
// transitive build inputs were already built successfully in a prior run
// (graph.AlreadyBuiltChecker).
const BucketFingerprints = "fingerprints"

// fingerprintKey matches graph.PackageFileName's collision domain: same
// origin+flavor+version+fingerprint must mean "the exact same build",
// and anything else must not.
func fingerprintKey(id graph.PortId, version string, fingerprint [32]byte) []byte {
	return []byte(id.String() + "@" + version + "@" + hex.EncodeToString(fingerprint[:]))
}

// AlreadyBuilt implements graph.AlreadyBuiltChecker: true iff a prior run
// recorded a successful build of this exact (port, version, fingerprint).
func (db *DB) AlreadyBuilt(id graph.PortId, version string, fingerprint [32]byte) bool {
	key := fingerprintKey(id, version, fingerprint)
	var found bool

	_ = db.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketFingerprints))
		if bucket == nil {
			return nil
		}
		found = bucket.Get(key) != nil
		return nil
	})

	return found
}

// RecordFingerprint marks (id, version, fingerprint) as successfully
// built, for AlreadyBuilt to find on a future run. Called once a
// sandbox.Builder reports TaskResult.Success for the port.
func (db *DB) RecordFingerprint(id graph.PortId, version string, fingerprint [32]byte, pkgFile string) error {
	key := fingerprintKey(id, version, fingerprint)
	err := db.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(BucketFingerprints))
		if bucket == nil {
			return &DatabaseError{Op: "get bucket", Bucket: BucketFingerprints, Err: ErrBucketNotFound}
		}
		return bucket.Put(key, []byte(pkgFile))
	})
	if err != nil {
		return &RecordError{Op: "record fingerprint", UUID: string(key), Err: err}
	}
	return nil
}
