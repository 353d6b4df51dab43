package quota

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnidocs-go/internal/model"
	"omnidocs-go/internal/uperr"
)

// fakeTenantStore 是测试用的内存租户存储。
type fakeTenantStore struct {
	mu      sync.Mutex
	tenants map[uint]*model.Tenant
}

func newFakeTenantStore(tenants ...*model.Tenant) *fakeTenantStore {
	s := &fakeTenantStore{tenants: make(map[uint]*model.Tenant)}
	for _, t := range tenants {
		s.tenants[t.ID] = t
	}
	return s
}

func (s *fakeTenantStore) GetByID(tenantID uint) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *t
	return &copied, nil
}

func (s *fakeTenantStore) AddUsedBytes(tenantID uint, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return 0, errors.New("record not found")
	}
	t.UsedBytes += delta
	return t.UsedBytes, nil
}

// staticReservations 返回固定的在途预留量，模拟重启前遗留的会话。
type staticReservations struct {
	bytes int64
}

func (s staticReservations) SumActiveReservations(uint) (int64, error) {
	return s.bytes, nil
}

func TestReserveWithinQuota(t *testing.T) {
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: 1000})
	ledger := NewLedger(store, staticReservations{})

	require.NoError(t, ledger.Reserve(1, 600))
	require.NoError(t, ledger.Reserve(1, 400))

	err := ledger.Reserve(1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, uperr.ErrQuotaExceeded))
}

func TestReserveCountsRestoredReservations(t *testing.T) {
	// 重启前有 900 字节仍在续传中：恢复后的台账必须把它计入预留，
	// 否则同一租户能再预留整个配额，总入库量突破上限。
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: 1000})
	ledger := NewLedger(store, staticReservations{bytes: 900})

	require.NoError(t, ledger.Reserve(1, 100))
	err := ledger.Reserve(1, 1)
	assert.True(t, errors.Is(err, uperr.ErrQuotaExceeded))

	_, reserved, _, err := ledger.Usage(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), reserved)

	// 恢复的预留与新预留一样可以正常释放
	require.NoError(t, ledger.Release(1, 900, false))
	require.NoError(t, ledger.Reserve(1, 900))
}

func TestReserveCountsExistingUsage(t *testing.T) {
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: 1000, UsedBytes: 900})
	ledger := NewLedger(store, staticReservations{})

	require.NoError(t, ledger.Reserve(1, 100))
	err := ledger.Reserve(1, 1)
	assert.True(t, errors.Is(err, uperr.ErrQuotaExceeded))
}

func TestReleaseConvertedPersistsUsage(t *testing.T) {
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: 1000})
	ledger := NewLedger(store, staticReservations{})

	require.NoError(t, ledger.Reserve(1, 300))
	require.NoError(t, ledger.Release(1, 300, true))

	used, reserved, quotaBytes, err := ledger.Usage(1)
	require.NoError(t, err)
	assert.Equal(t, int64(300), used)
	assert.Equal(t, int64(0), reserved)
	assert.Equal(t, int64(1000), quotaBytes)

	persisted, err := store.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, int64(300), persisted.UsedBytes)
}

func TestReleaseUnconvertedFreesReservation(t *testing.T) {
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: 1000})
	ledger := NewLedger(store, staticReservations{})

	require.NoError(t, ledger.Reserve(1, 1000))
	require.NoError(t, ledger.Release(1, 1000, false))
	require.NoError(t, ledger.Reserve(1, 1000))

	persisted, err := store.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), persisted.UsedBytes)
}

func TestReserveBatchAllOrNothing(t *testing.T) {
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: 1000})
	ledger := NewLedger(store, staticReservations{})

	err := ledger.ReserveBatch(1, []int64{400, 400, 400})
	require.Error(t, err)
	assert.True(t, errors.Is(err, uperr.ErrQuotaExceeded))

	// 整批拒绝后不应留下任何部分预留。
	require.NoError(t, ledger.Reserve(1, 1000))
}

// TestConcurrentReserveInvariant 用随机并发交错验证配额不变量：
// 任何交错下成功预留的总量加上已用字节都不会超过配额上限。
func TestConcurrentReserveInvariant(t *testing.T) {
	const quotaBytes = 10_000
	store := newFakeTenantStore(&model.Tenant{ID: 1, QuotaBytes: quotaBytes})
	ledger := NewLedger(store, staticReservations{})

	var granted atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				size := int64(rng.Intn(500) + 1)
				if err := ledger.Reserve(1, size); err != nil {
					continue
				}
				granted.Add(size)
				switch rng.Intn(3) {
				case 0:
					// 保持预留，模拟进行中的会话
				case 1:
					require.NoError(t, ledger.Release(1, size, false))
					granted.Add(-size)
				case 2:
					require.NoError(t, ledger.Release(1, size, true))
				}
			}
		}(int64(g))
	}
	wg.Wait()

	used, reserved, quota, err := ledger.Usage(1)
	require.NoError(t, err)
	assert.LessOrEqual(t, used+reserved, quota)
	assert.Equal(t, granted.Load(), used+reserved)

	persisted, err := store.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, used, persisted.UsedBytes)
}

func TestLedgerIsolatesTenants(t *testing.T) {
	store := newFakeTenantStore(
		&model.Tenant{ID: 1, QuotaBytes: 100},
		&model.Tenant{ID: 2, QuotaBytes: 100},
	)
	ledger := NewLedger(store, staticReservations{})

	require.NoError(t, ledger.Reserve(1, 100))
	require.NoError(t, ledger.Reserve(2, 100))
	assert.True(t, errors.Is(ledger.Reserve(1, 1), uperr.ErrQuotaExceeded))
}
