// Package quota 实现了租户级的存储配额台账。
// 台账保证任意时刻 used + reserved <= quota，预留要么转为永久用量要么恰好释放一次。
package quota

import (
	"sync"

	"omnidocs-go/internal/model"
	"omnidocs-go/internal/uperr"
	"omnidocs-go/pkg/log"
)

// TenantStore 是台账的持久化后端，只读配额上限、写回永久用量。
type TenantStore interface {
	GetByID(tenantID uint) (*model.Tenant, error)
	AddUsedBytes(tenantID uint, delta int64) (int64, error)
}

// ReservationSource 报告租户在途上传会话声明的总字节数。
// 进程重启后台账据此恢复 reserved 计数，使重启前的预留继续计入配额判定。
// repository.SessionRepository 满足该接口。
type ReservationSource interface {
	SumActiveReservations(tenantID uint) (int64, error)
}

// account 是单个租户的内存计数。所有读写都在 mu 保护下进行，
// 以保证同租户的 reserve/release 串行化。
type account struct {
	mu       sync.Mutex
	loaded   bool
	quota    int64
	used     int64
	reserved int64
}

// Ledger 是配额台账。不同租户的操作互不阻塞，同租户操作线性化。
type Ledger struct {
	store        TenantStore
	reservations ReservationSource

	mu       sync.Mutex
	accounts map[uint]*account
}

// NewLedger 创建一个新的配额台账。
func NewLedger(store TenantStore, reservations ReservationSource) *Ledger {
	return &Ledger{
		store:        store,
		reservations: reservations,
		accounts:     make(map[uint]*account),
	}
}

// acquire 返回租户的计数并持有其锁，首次访问时从存储加载 quota/used，
// 并把在途会话的声明总量恢复为 reserved。没有这一步，重启后的台账会把
// 仍在续传的会话当作不占配额，使总入库量突破上限。
// 调用方负责释放返回的锁。
func (l *Ledger) acquire(tenantID uint) (*account, error) {
	l.mu.Lock()
	acct, ok := l.accounts[tenantID]
	if !ok {
		acct = &account{}
		l.accounts[tenantID] = acct
	}
	l.mu.Unlock()

	acct.mu.Lock()
	if !acct.loaded {
		tenant, err := l.store.GetByID(tenantID)
		if err != nil {
			acct.mu.Unlock()
			return nil, err
		}
		reserved, err := l.reservations.SumActiveReservations(tenantID)
		if err != nil {
			acct.mu.Unlock()
			return nil, err
		}
		acct.quota = tenant.QuotaBytes
		acct.used = tenant.UsedBytes
		acct.reserved = reserved
		acct.loaded = true
	}
	return acct, nil
}

// Reserve 为租户预留 bytes 字节。仅当 used + reserved + bytes <= quota 时成功。
func (l *Ledger) Reserve(tenantID uint, bytes int64) error {
	acct, err := l.acquire(tenantID)
	if err != nil {
		return err
	}
	defer acct.mu.Unlock()

	if acct.used+acct.reserved+bytes > acct.quota {
		log.Warnf("[Reserve] 配额不足, tenant=%d, used=%d, reserved=%d, quota=%d, requested=%d",
			tenantID, acct.used, acct.reserved, acct.quota, bytes)
		return uperr.Wrapf(uperr.ErrQuotaExceeded,
			"租户 %d 剩余配额不足 %d 字节", tenantID, bytes)
	}
	acct.reserved += bytes
	return nil
}

// ReserveBatch 对一批声明大小执行一次总量预留：要么整批通过，要么整批拒绝。
func (l *Ledger) ReserveBatch(tenantID uint, sizes []int64) error {
	var total int64
	for _, size := range sizes {
		total += size
	}
	return l.Reserve(tenantID, total)
}

// Release 释放一笔预留。converted 为 true 时预留转为永久用量并写回存储，
// 否则直接归还可用空间。每笔预留只允许释放一次，由调用方的状态机保证。
func (l *Ledger) Release(tenantID uint, bytes int64, converted bool) error {
	acct, err := l.acquire(tenantID)
	if err != nil {
		return err
	}
	defer acct.mu.Unlock()

	if bytes > acct.reserved {
		// 释放量超过在途预留说明调用方状态机出错，截断以保护不变量。
		log.Errorf("[Release] 释放量超过在途预留, tenant=%d, reserved=%d, bytes=%d",
			tenantID, acct.reserved, bytes)
		bytes = acct.reserved
	}
	acct.reserved -= bytes

	if converted {
		acct.used += bytes
		if _, err := l.store.AddUsedBytes(tenantID, bytes); err != nil {
			// 内存台账已一致，持久化失败交由上层记录并在后续对账修正。
			return err
		}
	}
	return nil
}

// Usage 返回租户当前的用量视图：已用字节、在途预留与配额上限。
func (l *Ledger) Usage(tenantID uint) (used, reserved, quotaBytes int64, err error) {
	acct, err := l.acquire(tenantID)
	if err != nil {
		return 0, 0, 0, err
	}
	defer acct.mu.Unlock()
	return acct.used, acct.reserved, acct.quota, nil
}
