package main

import (
	"encoding/binary"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/rostra-network/rostra/internal/db"
	bolt "go.etcd.io/bbolt"
)

var (
	dataDir    = flag.String("data-dir", "./data", "Rostra data directory")
	dryRun     = flag.Bool("dry-run", true, "Report the stored schema version without making changes")
	backupPath = flag.String("backup", "", "Path to back up the database before migrating (default: <data-dir>/events.db.backup)")
)

var metaBucket = []byte("meta")
var schemaVersionKey = []byte("schema_version")

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Rostra Event Database Migration Tool")
	log.Println("=====================================")

	dbPath := filepath.Join(*dataDir, "events.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("Database not found at %s", dbPath)
	}

	log.Printf("Database: %s", dbPath)
	log.Printf("Dry run: %v", *dryRun)

	if !*dryRun {
		backupFile := *backupPath
		if backupFile == "" {
			backupFile = dbPath + ".backup"
		}
		log.Printf("Creating backup: %s", backupFile)
		if err := copyFile(dbPath, backupFile); err != nil {
			log.Fatalf("Failed to create backup: %v", err)
		}
		log.Println("backup created")
	}

	boltDB, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer boltDB.Close()

	if err := reportAndMigrate(boltDB, *dryRun); err != nil {
		log.Fatalf("Migration check failed: %v", err)
	}
}

func reportAndMigrate(bdb *bolt.DB, dryRun bool) error {
	var stored uint64
	var found bool

	err := bdb.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return nil
		}
		v := meta.Get(schemaVersionKey)
		if v == nil {
			return nil
		}
		found = true
		stored = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return err
	}

	if !found {
		log.Println("no stored schema version found; database was never opened by this binary's schema guard")
		return nil
	}

	log.Printf("Stored schema version: %d", stored)
	log.Printf("Binary schema version: %d", db.SchemaVersion)

	switch {
	case stored == db.SchemaVersion:
		log.Println("up to date, nothing to do")
		return nil
	case stored > db.SchemaVersion:
		log.Fatalf("stored schema version %d is newer than this binary's %d; upgrade the binary first", stored, db.SchemaVersion)
		return nil
	default:
		if dryRun {
			log.Printf("[DRY RUN] would run the forward-migration placeholder from version %d to %d", stored, db.SchemaVersion)
			return nil
		}
		return bdb.Update(func(tx *bolt.Tx) error {
			meta, err := tx.CreateBucketIfNotExists(metaBucket)
			if err != nil {
				return err
			}
			// No schema changes exist yet between any released version and
			// db.SchemaVersion, so the forward migration is a no-op and
			// only the stored marker is bumped.
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], db.SchemaVersion)
			return meta.Put(schemaVersionKey, buf[:])
		})
	}
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0600)
}
