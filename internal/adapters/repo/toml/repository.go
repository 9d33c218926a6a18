package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/gofrs/flock"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	runtimePathKey  = "runtime.path"
	runtimeFileMode = 0o600
	runtimeDirMode  = 0o700
	configDir       = ".tokenpool"
	runtimeFileName = "pool_runtime.toml"
	tempFilePattern = ".pool_runtime-*.toml.tmp"
	lockFileSuffix  = ".lock"
	lockRetryDelay  = 20 * time.Millisecond
)

// RuntimeRepository persists the pool snapshot as a single TOML file so
// rotation state survives between CLI invocations.
type RuntimeRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RuntimeRepository = (*RuntimeRepository)(nil)

func NewRuntimeRepository(cfg *viper.Viper) (*RuntimeRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(runtimePathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, configDir, runtimeFileName)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &RuntimeRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *RuntimeRepository) Path() string {
	return r.path
}

func (r *RuntimeRepository) Load(ctx context.Context) (domain.PoolSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.PoolSnapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := os.Stat(filepath.Dir(r.path)); errors.Is(err, os.ErrNotExist) {
		return domain.PoolSnapshot{}, domain.ErrRuntimeNotFound
	}

	fileLock, err := r.lockFile(ctx, true)
	if err != nil {
		return domain.PoolSnapshot{}, err
	}
	defer func() { _ = fileLock.Unlock() }()

	return r.read()
}

// Save replaces the stored snapshot without reading it, so it also recovers
// from a file that no longer decodes.
func (r *RuntimeRepository) Save(ctx context.Context, snapshot domain.PoolSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), runtimeDirMode); err != nil {
		return fmt.Errorf("create runtime directory: %w", err)
	}

	fileLock, err := r.lockFile(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = fileLock.Unlock() }()

	return r.write(ctx, snapshot)
}

// Update holds the in-process lock and an exclusive advisory lock on the
// runtime's lock file from read to write, so separate tokenpool processes
// serialize their changes.
func (r *RuntimeRepository) Update(ctx context.Context, fn ports.RuntimeUpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), runtimeDirMode); err != nil {
		return fmt.Errorf("create runtime directory: %w", err)
	}

	fileLock, err := r.lockFile(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = fileLock.Unlock() }()

	found := true
	current, err := r.read()
	if errors.Is(err, domain.ErrRuntimeNotFound) {
		found = false
	} else if err != nil {
		return err
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}

	return r.write(ctx, next)
}

func (r *RuntimeRepository) write(ctx context.Context, snapshot domain.PoolSnapshot) error {
	file := toSchema(snapshot)
	file.applyDefaults()

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeTOMLFile(r.path, file)
}

// LockPath is the advisory lock file guarding the runtime file.
func (r *RuntimeRepository) LockPath() string {
	return r.path + lockFileSuffix
}

func (r *RuntimeRepository) lockFile(ctx context.Context, shared bool) (*flock.Flock, error) {
	fileLock := flock.New(r.LockPath())

	var locked bool
	var err error
	if shared {
		locked, err = fileLock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fileLock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock pool runtime file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock pool runtime file: %s is held by another process", r.LockPath())
	}

	return fileLock, nil
}

func (r *RuntimeRepository) read() (domain.PoolSnapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.PoolSnapshot{}, domain.ErrRuntimeNotFound
		}
		return domain.PoolSnapshot{}, fmt.Errorf("read pool runtime file: %w", err)
	}

	var file runtimeFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("decode pool runtime file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.PoolSnapshot{}, err
	}
	file.applyDefaults()

	return fromSchema(file), nil
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve runtime path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeTOMLFile(path string, file any) error {
	if err := os.MkdirAll(filepath.Dir(path), runtimeDirMode); err != nil {
		return fmt.Errorf("create runtime directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode runtime file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp runtime file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp runtime file: %w", err)
	}

	if err := tempFile.Chmod(runtimeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp runtime file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp runtime file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace runtime file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(path, runtimeFileMode); err != nil {
		return fmt.Errorf("chmod runtime file: %w", err)
	}

	return nil
}

// toSchema writes usage rows sorted by label so repeated saves of the same
// state produce identical files.
func toSchema(snapshot domain.PoolSnapshot) runtimeFileSchema {
	labels := make([]string, 0, len(snapshot.Usage))
	for label := range snapshot.Usage {
		labels = append(labels, label)
	}
	slices.SortFunc(labels, strings.Compare)

	accounts := make([]accountUsageSchema, 0, len(labels))
	for _, label := range labels {
		usage := snapshot.Usage[label]
		accounts = append(accounts, accountUsageSchema{
			Label:         label,
			Requests:      usage.Requests,
			RateLimitHits: usage.RateLimitHits,
		})
	}

	return runtimeFileSchema{
		ActiveLabel: snapshot.ActiveLabel,
		RateLimited: slices.Clone(snapshot.RateLimited),
		UpdatedAt:   formatTime(snapshot.UpdatedAt),
		Accounts:    accounts,
	}
}

func fromSchema(file runtimeFileSchema) domain.PoolSnapshot {
	usage := make(domain.UsageStats, len(file.Accounts))
	for _, account := range file.Accounts {
		if account.Label == "" {
			continue
		}
		usage[account.Label] = domain.AccountUsage{
			Requests:      account.Requests,
			RateLimitHits: account.RateLimitHits,
		}
	}

	return domain.PoolSnapshot{
		ActiveLabel: file.ActiveLabel,
		RateLimited: slices.Clone(file.RateLimited),
		Usage:       usage,
		UpdatedAt:   parseTime(file.UpdatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
