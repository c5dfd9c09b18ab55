// Package config loads gradecore's process-wide configuration from
// environment variables, following the same driver-selection convention
// as core.OpenPersistentStore: read a driver name, fall back to a
// documented default, and apply per-driver defaults only when that driver
// is selected.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gradecore/internal/filestore"
	blobcore "gradecore/internal/infra/blob/core"
	blobfs "gradecore/internal/infra/blob/fs"
	blobmemory "gradecore/internal/infra/blob/memory"
	blobs3 "gradecore/internal/infra/blob/s3"
	"gradecore/internal/infra/kv"
	kvmemory "gradecore/internal/infra/kv/memory"
	kvpostgres "gradecore/internal/infra/kv/postgres"
	kvsqlite "gradecore/internal/infra/kv/sqlite"
	"gradecore/internal/objectstore"
	"gradecore/internal/sandbox"
)

// StoreDriver selects the Object Repository's backing kv.Store.
type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

// BlobDriver selects the File Store's backing blob.Store.
type BlobDriver string

const (
	BlobMemory BlobDriver = "memory"
	BlobFS     BlobDriver = "fs"
	BlobS3     BlobDriver = "s3"
)

// Config is the flat, env-populated configuration struct for one
// gradecore-worker process.
type Config struct {
	StoreDriver  StoreDriver
	SQLitePath   string
	PostgresDSN  string

	BlobDriver    BlobDriver
	FilesRoot     string
	BlobS3Bucket  string
	BlobS3Region  string
	BlobS3Endpoint string
	BlobS3PathStyle bool

	SandboxLimits sandbox.Limits

	WorkerCount int
	QueueDepth  int

	MoodleHost    string
	MoodleToken   string
	MoodleService string
}

// Load reads Config from the environment, applying the same
// "if x == '' { x = default }" fallback pattern as core.OpenPersistentStore's
// OpenPersistentStore rather than a config-library DSL.
//
//	GRADECORE_STORE_DRIVER: memory|sqlite|postgres (default sqlite)
//	GRADECORE_SQLITE_PATH: path to sqlite file (default ./gradecore.db)
//	GRADECORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	GRADECORE_BLOB_DRIVER: memory|fs|s3 (default fs)
//	GRADECORE_FILES_ROOT: root directory for the fs blob driver (default ./blobdata)
//	GRADECORE_BLOB_S3_BUCKET/REGION/ENDPOINT/PATH_STYLE: s3 blob driver settings
//	GRADECORE_SANDBOX_CPU_SECONDS/WALL_SECONDS/MEM_BYTES/MAX_PROCS/MAX_FDS/OUTPUT_CAP_BYTES
//	GRADECORE_WORKER_COUNT (default 4), GRADECORE_QUEUE_DEPTH (default 64)
//	GRADECORE_MOODLE_HOST/TOKEN/SERVICE (wstoken for the moodle webservice REST API)
func Load() Config {
	cfg := Config{
		StoreDriver: StoreDriver(getenv("GRADECORE_STORE_DRIVER", string(StoreSQLite))),
		SQLitePath:  getenv("GRADECORE_SQLITE_PATH", "./gradecore.db"),
		PostgresDSN: os.Getenv("GRADECORE_POSTGRES_DSN"),

		BlobDriver:      BlobDriver(getenv("GRADECORE_BLOB_DRIVER", string(BlobFS))),
		FilesRoot:       getenv("GRADECORE_FILES_ROOT", "./blobdata"),
		BlobS3Bucket:    os.Getenv("GRADECORE_BLOB_S3_BUCKET"),
		BlobS3Region:    getenv("GRADECORE_BLOB_S3_REGION", "us-east-1"),
		BlobS3Endpoint:  os.Getenv("GRADECORE_BLOB_S3_ENDPOINT"),
		BlobS3PathStyle: getenvBool("GRADECORE_BLOB_S3_PATH_STYLE", false),

		SandboxLimits: sandbox.Limits{
			CPU:       getenvSeconds("GRADECORE_SANDBOX_CPU_SECONDS", 10*time.Second),
			Wall:      getenvSeconds("GRADECORE_SANDBOX_WALL_SECONDS", 15*time.Second),
			MemBytes:  getenvInt64("GRADECORE_SANDBOX_MEM_BYTES", 256<<20),
			MaxProcs:  getenvUint64("GRADECORE_SANDBOX_MAX_PROCS", 64),
			MaxFDs:    getenvUint64("GRADECORE_SANDBOX_MAX_FDS", 64),
			OutputCap: getenvInt64("GRADECORE_SANDBOX_OUTPUT_CAP_BYTES", 1<<20),
		},

		WorkerCount: int(getenvInt64("GRADECORE_WORKER_COUNT", 4)),
		QueueDepth:  int(getenvInt64("GRADECORE_QUEUE_DEPTH", 64)),

		MoodleHost:    os.Getenv("GRADECORE_MOODLE_HOST"),
		MoodleToken:   os.Getenv("GRADECORE_MOODLE_TOKEN"),
		MoodleService: getenv("GRADECORE_MOODLE_SERVICE", "moodle_mobile_app"),
	}
	return cfg
}

// OpenStore selects and constructs the kv.Store backend named by
// StoreDriver.
func (c Config) OpenStore(ctx context.Context) (kv.Store, error) {
	switch c.StoreDriver {
	case StoreMemory:
		return kvmemory.New(), nil
	case StoreSQLite:
		return kvsqlite.NewStore(c.SQLitePath)
	case StorePostgres:
		return kvpostgres.NewStore(ctx, c.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
}

// OpenBlobStore selects and constructs the blob.Store backend named by
// BlobDriver.
func (c Config) OpenBlobStore(ctx context.Context) (blobcore.Store, error) {
	switch c.BlobDriver {
	case BlobMemory:
		return blobmemory.New(), nil
	case BlobFS:
		return blobfs.New(c.FilesRoot)
	case BlobS3:
		return blobs3.New(ctx, blobs3.Config{
			Bucket:    c.BlobS3Bucket,
			Region:    c.BlobS3Region,
			Endpoint:  c.BlobS3Endpoint,
			PathStyle: c.BlobS3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
}

// OpenFileStore wires OpenStore and OpenBlobStore into a ready
// internal/filestore.Store plus the underlying Object Repository, which
// every other component also needs a handle to.
func (c Config) OpenFileStore(ctx context.Context) (*objectstore.Repository, *filestore.Store, error) {
	backend, err := c.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := c.OpenBlobStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	objects := objectstore.New(backend, nil)
	return objects, filestore.New(objects, blobs), nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvUint64(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}
