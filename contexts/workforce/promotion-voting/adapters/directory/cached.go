package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"

	lru "github.com/hashicorp/golang-lru"
)

type cachedEmployee struct {
	employee entities.Employee
	cachedAt time.Time
}

// CachedDirectory memoizes single-employee lookups, which run on every ballot.
// Store listings are not cached: they freeze a proposal's voter pool and must
// reflect the roster at creation time.
type CachedDirectory struct {
	next  ports.Directory
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewCachedDirectory(next ports.Directory, size int, ttl time.Duration) (*CachedDirectory, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create directory cache: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, now: time.Now}, nil
}

func (d *CachedDirectory) GetEmployee(ctx context.Context, employeeID string) (entities.Employee, error) {
	key := strings.TrimSpace(employeeID)
	if value, ok := d.cache.Get(key); ok {
		entry := value.(cachedEmployee)
		if d.now().Sub(entry.cachedAt) < d.ttl {
			return entry.employee, nil
		}
		d.cache.Remove(key)
	}
	employee, err := d.next.GetEmployee(ctx, key)
	if err != nil {
		return entities.Employee{}, err
	}
	d.cache.Add(key, cachedEmployee{employee: employee, cachedAt: d.now()})
	return employee, nil
}

func (d *CachedDirectory) ListStoreEmployees(ctx context.Context, storeName string) ([]entities.Employee, error) {
	return d.next.ListStoreEmployees(ctx, storeName)
}

// Invalidate drops a cached employee after a roster change.
func (d *CachedDirectory) Invalidate(employeeID string) {
	d.cache.Remove(strings.TrimSpace(employeeID))
}
