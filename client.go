package matisgo

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMinCommandSpacing 兩次命令之間的最小間隔。設備在命令
// 之間需要喘息時間，間隔太短會丟棄請求。
const DefaultMinCommandSpacing = 10 * time.Millisecond

// Client 序列化的 Modbus 交易層。同一時間只允許一筆交易在途，
// 並強制命令之間的最小間隔。所有方法可安全地並行呼叫。
type Client struct {
	mu          sync.Mutex
	transport   Transport
	minSpacing  time.Duration
	lastCommand time.Time

	// 可注入的時鐘 (測試用)
	now   func() time.Time
	sleep func(time.Duration)

	stats  TransactionStats
	logger *zap.Logger
}

// ClientOption Client 配置選項
type ClientOption func(*Client)

// WithLogger 設定日誌
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMinCommandSpacing 設定命令之間的最小間隔
func WithMinCommandSpacing(d time.Duration) ClientOption {
	return func(c *Client) {
		c.minSpacing = d
	}
}

// withClock 注入時鐘 (測試用)
func withClock(now func() time.Time, sleep func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.now = now
		c.sleep = sleep
	}
}

// NewClient 建立新的 Client
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport:  transport,
		minSpacing: DefaultMinCommandSpacing,
		now:        time.Now,
		sleep:      time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// Connect 建立連線。已連線時不做任何事。
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConnected()
}

// Close 關閉連線
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transport.Connected() {
		return nil
	}

	err := c.transport.Close()
	c.logger.Info("連線已關閉")
	return err
}

// Stats 取得交易統計快照
func (c *Client) Stats() MetricsSnapshot {
	return c.stats.Snapshot()
}

// Read 讀取單一屬性並解碼
func (c *Client) Read(unit uint8, reg Register) (any, error) {
	if !reg.Access.CanRead() {
		return nil, errInvalidArgf("屬性 %s 不可讀取", reg.Property)
	}

	words, err := c.readRegisters(unit, reg.Address, reg.Length)
	if err != nil {
		return nil, err
	}
	return reg.Decode(words)
}

// ReadMultiple 以單一交易讀取多個屬性。暫存器列表必須依位址嚴格
// 遞增且不重疊，整個範圍以一次保持暫存器讀取取得，再逐一解碼。
// 列表違反約束時回報參數錯誤，不發出任何 I/O。
func (c *Client) ReadMultiple(unit uint8, regs []Register) ([]any, error) {
	span, err := planReadSpan(regs)
	if err != nil {
		return nil, err
	}

	words, err := c.readRegisters(unit, span.start, span.count)
	if err != nil {
		return nil, err
	}

	results := make([]any, len(regs))
	for i, reg := range regs {
		offset := reg.Address - span.start
		value, err := reg.Decode(words[offset : offset+reg.Length])
		if err != nil {
			return nil, err
		}
		results[i] = value
	}
	return results, nil
}

// Write 編碼並寫入單一屬性。回傳設備回音是否與請求一致；
// 回音不一致表示設備未接受該值，不視為錯誤。
func (c *Client) Write(unit uint8, reg Register, value any) (bool, error) {
	if !reg.Access.CanWrite() {
		return false, errInvalidArgf("屬性 %s 不可寫入", reg.Property)
	}

	words, err := reg.Encode(value)
	if err != nil {
		return false, err
	}

	return c.writeRegisters(unit, reg.Address, words)
}

// ensureConnected 確保連線已建立，呼叫端必須持有鎖。
// 建立失敗時關閉傳輸層再回報，避免殘留半開連線。
func (c *Client) ensureConnected() error {
	if c.transport.Connected() {
		return nil
	}

	if err := c.transport.Connect(); err != nil {
		c.transport.Close()
		c.logger.Error("建立連線失敗", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	c.logger.Info("連線已建立")
	return nil
}

// pace 等待至最小命令間隔，呼叫端必須持有鎖
func (c *Client) pace() {
	if c.lastCommand.IsZero() {
		return
	}
	if wait := c.minSpacing - c.now().Sub(c.lastCommand); wait > 0 {
		c.sleep(wait)
	}
}

// readRegisters 單筆讀取交易：連線、間隔、讀取、錯誤分類。
// 無論成敗都更新最後命令時間戳。
func (c *Client) readRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.pace()
	defer func() { c.lastCommand = c.now() }()

	c.logger.Debug("讀取保持暫存器",
		zap.Uint8("unit", unit),
		zap.Uint16("address", address),
		zap.Uint16("quantity", quantity),
	)

	words, err := c.transport.ReadHoldingRegisters(unit, address, quantity)
	if err != nil {
		mapped, closeLink := mapReadFault(err, address, quantity, unit)
		c.faultLocked(mapped, closeLink)
		return nil, mapped
	}

	c.stats.recordRead()
	return words, nil
}

// writeRegisters 單筆寫入交易，依字數選擇單/多暫存器功能碼
func (c *Client) writeRegisters(unit uint8, address uint16, words []uint16) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected(); err != nil {
		return false, err
	}

	c.pace()
	defer func() { c.lastCommand = c.now() }()

	c.logger.Debug("寫入保持暫存器",
		zap.Uint8("unit", unit),
		zap.Uint16("address", address),
		zap.Int("quantity", len(words)),
	)

	var ack WriteAck
	var err error
	if len(words) == 1 {
		ack, err = c.transport.WriteSingleRegister(unit, address, words[0])
	} else {
		ack, err = c.transport.WriteMultipleRegisters(unit, address, words)
	}
	if err != nil {
		mapped, closeLink := mapWriteFault(err, address, unit)
		c.faultLocked(mapped, closeLink)
		return false, mapped
	}

	c.stats.recordWrite()

	ok := ack.Address == address
	if len(words) == 1 {
		ok = ok && ack.Value == words[0]
	} else {
		ok = ok && int(ack.Count) == len(words)
	}
	if !ok {
		c.logger.Warn("設備回音與請求不一致",
			zap.Uint8("unit", unit),
			zap.Uint16("address", address),
			zap.Uint16("ackAddress", ack.Address),
			zap.Uint16("ackValue", ack.Value),
			zap.Uint16("ackCount", ack.Count),
		)
	}
	return ok, nil
}

// faultLocked 記錄錯誤，必要時關閉連線，呼叫端必須持有鎖
func (c *Client) faultLocked(err error, closeLink bool) {
	c.stats.recordFault()

	if closeLink {
		c.transport.Close()
		c.logger.Error("交易失敗，連線已關閉", zap.Error(err))
		return
	}
	c.logger.Warn("交易失敗", zap.Error(err))
}
