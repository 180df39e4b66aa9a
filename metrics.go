package matisgo

import (
	"sync/atomic"
	"time"
)

// TransactionStats 交易統計，所有欄位以原子操作更新
type TransactionStats struct {
	Reads               atomic.Uint64
	Writes              atomic.Uint64
	Faults              atomic.Uint64
	LastTransactionTime atomic.Int64
}

// MetricsSnapshot 統計快照
type MetricsSnapshot struct {
	Reads           uint64    `json:"reads"`
	Writes          uint64    `json:"writes"`
	Faults          uint64    `json:"faults"`
	LastTransaction time.Time `json:"last_transaction"`
}

func (s *TransactionStats) recordRead() {
	s.Reads.Add(1)
	s.LastTransactionTime.Store(time.Now().UnixNano())
}

func (s *TransactionStats) recordWrite() {
	s.Writes.Add(1)
	s.LastTransactionTime.Store(time.Now().UnixNano())
}

func (s *TransactionStats) recordFault() {
	s.Faults.Add(1)
	s.LastTransactionTime.Store(time.Now().UnixNano())
}

// Snapshot 取得統計快照
func (s *TransactionStats) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Reads:  s.Reads.Load(),
		Writes: s.Writes.Load(),
		Faults: s.Faults.Load(),
	}
	if ns := s.LastTransactionTime.Load(); ns != 0 {
		snapshot.LastTransaction = time.Unix(0, ns)
	}
	return snapshot
}
