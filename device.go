package matisgo

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Device 一台 Modbus 從站設備：屬性到暫存器定義的映射，
// 加上設備目前的從站位址。從站位址由 Device 自己的鎖保護，
// 寫入 Modbus 位址屬性成功後會同步更新。
type Device struct {
	mu     sync.RWMutex
	unit   uint8
	client *Client

	registers []Register
	regmap    map[Property]Register

	logger *zap.Logger
}

// DeviceOption Device 配置選項
type DeviceOption func(*Device)

// WithDeviceLogger 設定日誌
func WithDeviceLogger(logger *zap.Logger) DeviceOption {
	return func(d *Device) {
		d.logger = logger
	}
}

// NewDevice 建立設備。registers 為該型號支援的暫存器表，
// 必須依位址遞增排列。
func NewDevice(client *Client, unit uint8, registers []Register, opts ...DeviceOption) *Device {
	d := &Device{
		unit:      unit,
		client:    client,
		registers: registers,
		regmap:    make(map[Property]Register, len(registers)),
	}

	for _, reg := range registers {
		d.regmap[reg.Property] = reg
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = zap.NewNop()
	}

	return d
}

// Unit 目前的從站位址
func (d *Device) Unit() uint8 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.unit
}

// Connect 建立連線
func (d *Device) Connect() error {
	return d.client.Connect()
}

// Close 關閉連線
func (d *Device) Close() error {
	return d.client.Close()
}

// Register 取得屬性的暫存器定義
func (d *Device) Register(p Property) (Register, error) {
	reg, ok := d.regmap[p]
	if !ok {
		return Register{}, &PropertyNotSupportedError{Property: p}
	}
	return reg, nil
}

// Registers 設備支援的全部暫存器定義
func (d *Device) Registers() []Register {
	return d.registers
}

// Get 讀取單一屬性
func (d *Device) Get(p Property) (any, error) {
	reg, err := d.Register(p)
	if err != nil {
		return nil, err
	}
	return d.client.Read(d.Unit(), reg)
}

// GetMultiple 以單一交易讀取多個屬性。屬性依位址排序後以一次
// 讀取涵蓋，回傳屬性到值的映射。
func (d *Device) GetMultiple(props ...Property) (map[Property]any, error) {
	regs := make([]Register, 0, len(props))
	for _, p := range props {
		reg, err := d.Register(p)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Address < regs[j].Address })

	values, err := d.client.ReadMultiple(d.Unit(), regs)
	if err != nil {
		return nil, err
	}

	data := make(map[Property]any, len(regs))
	for i, reg := range regs {
		data[reg.Property] = values[i]
	}
	return data, nil
}

// Set 寫入單一屬性，回傳設備是否接受該值。寫入 Modbus 位址
// 成功後更新設備的從站位址，後續命令使用新位址。
func (d *Device) Set(p Property, value any) (bool, error) {
	reg, err := d.Register(p)
	if err != nil {
		return false, err
	}

	ok, err := d.client.Write(d.Unit(), reg, value)
	if err != nil || !ok {
		return ok, err
	}

	if p == PropModbusAddress {
		raw, err := coerceRegisterValue(value)
		if err == nil {
			d.mu.Lock()
			d.unit = uint8(raw)
			d.mu.Unlock()
			d.logger.Info("設備從站位址已變更", zap.Uint8("unit", uint8(raw)))
		}
	}

	return true, nil
}

// Fetch 以單一交易讀取設備的全部屬性
func (d *Device) Fetch() (map[Property]any, error) {
	values, err := d.client.ReadMultiple(d.Unit(), d.registers)
	if err != nil {
		return nil, err
	}

	data := make(map[Property]any, len(d.registers))
	for i, reg := range d.registers {
		data[reg.Property] = values[i]
	}
	return data, nil
}
