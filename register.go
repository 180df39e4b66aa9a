package matisgo

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Property 設備屬性名稱，每個屬性對應一個暫存器定義
type Property string

const (
	PropModbusAddress        Property = "modbus_address"
	PropSerialBaudrate       Property = "serial_baudrate"
	PropSerialParity         Property = "serial_parity"
	PropSerialStopBits       Property = "serial_stop_bits"
	PropSystemStatusControl  Property = "system_status_control"
	PropSystemUpgradeControl Property = "system_upgrade_control"
	PropSystemClock          Property = "system_clock"
	PropHardwareID           Property = "hardware_id"
	PropFirmwareVersion      Property = "firmware_version"
	PropAREnable             Property = "ar_enable"
	PropARTimer              Property = "ar_timer"
	PropDisplayStatus        Property = "display_status"
	PropAuxOutputStatus      Property = "aux_output_status"
	PropPadlockStatus        Property = "padlock_status"
	PropHandleLocation       Property = "handle_location"
	PropARStatus             Property = "ar_status"
	PropControl              Property = "control"
	PropRemoteControlEnable  Property = "remote_control_enable"
	PropARTotalAttempts      Property = "ar_total_attempts"

	PropClosingDelayCompensation Property = "closing_delay_compensation"
	PropOpeningDelayCompensation Property = "opening_delay_compensation"
	PropClosingResetCompensation Property = "closing_reset_compensation"
	PropOpeningResetCompensation Property = "opening_reset_compensation"

	PropClosingActionTime Property = "closing_action_time"
	PropOpeningActionTime Property = "opening_action_time"
	PropClosingResetTime  Property = "closing_reset_time"
	PropOpeningResetTime  Property = "opening_reset_time"
	PropOpeningLockTime   Property = "opening_lock_time"
	PropUnlockResetTime   Property = "unlock_reset_time"
	PropMotorRunningTime  Property = "motor_running_time"

	PropCommandClosingTimes Property = "command_closing_times"
	PropCommandOpeningTimes Property = "command_opening_times"
	PropCommandLockTimes    Property = "command_lock_times"
	PropManualPadlockTimes  Property = "manual_padlock_times"
	PropManualClosingTimes  Property = "manual_closing_times"

	PropARExhaustedTimer Property = "ar_exhausted_timer"
	PropARCurrentAttempt Property = "ar_current_attempt"

	PropARWaitTime1  Property = "ar_wait_time_1"
	PropARWaitTime2  Property = "ar_wait_time_2"
	PropARWaitTime3  Property = "ar_wait_time_3"
	PropARWaitTime4  Property = "ar_wait_time_4"
	PropARWaitTime5  Property = "ar_wait_time_5"
	PropARWaitTime6  Property = "ar_wait_time_6"
	PropARWaitTime7  Property = "ar_wait_time_7"
	PropARWaitTime8  Property = "ar_wait_time_8"
	PropARWaitTime9  Property = "ar_wait_time_9"
	PropARWaitTime10 Property = "ar_wait_time_10"

	PropARStableTime1  Property = "ar_stable_time_1"
	PropARStableTime2  Property = "ar_stable_time_2"
	PropARStableTime3  Property = "ar_stable_time_3"
	PropARStableTime4  Property = "ar_stable_time_4"
	PropARStableTime5  Property = "ar_stable_time_5"
	PropARStableTime6  Property = "ar_stable_time_6"
	PropARStableTime7  Property = "ar_stable_time_7"
	PropARStableTime8  Property = "ar_stable_time_8"
	PropARStableTime9  Property = "ar_stable_time_9"
	PropARStableTime10 Property = "ar_stable_time_10"
)

func (p Property) String() string {
	return string(p)
}

// Access 暫存器存取旗標
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
)

// CanRead 是否可讀
func (a Access) CanRead() bool {
	return a&AccessRead != 0
}

// CanWrite 是否可寫
func (a Access) CanWrite() bool {
	return a&AccessWrite != 0
}

func (a Access) String() string {
	switch {
	case a.CanRead() && a.CanWrite():
		return "RW"
	case a.CanRead():
		return "R"
	case a.CanWrite():
		return "W"
	default:
		return "-"
	}
}

// Transform 將解碼後的原始值轉換為領域型別
type Transform func(raw uint32) any

// Register 暫存器定義。不可變，建立後只讀。
// Length 為佔用的保持暫存器數量 (1 或 2)；
// 多字暫存器採用高字在前 (第一個暫存器為最高有效字)。
type Register struct {
	Property  Property
	Address   uint16
	Length    uint16
	Access    Access
	Min       uint32
	Max       uint32
	transform Transform
}

type registerOption func(*Register)

// withRange 設定寫入值的允許範圍 [min, max]
func withRange(min, max uint32) registerOption {
	return func(r *Register) {
		r.Min = min
		r.Max = max
	}
}

// withTransform 設定解碼後的結果轉換
func withTransform(t Transform) registerOption {
	return func(r *Register) {
		r.transform = t
	}
}

// newU8 8 位元值，佔用一個 16 位元暫存器
func newU8(p Property, address uint16, access Access, opts ...registerOption) Register {
	r := Register{
		Property: p,
		Address:  address,
		Length:   1,
		Access:   access,
		Max:      math.MaxUint8,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// newU16 16 位元暫存器
func newU16(p Property, address uint16, access Access, opts ...registerOption) Register {
	r := Register{
		Property: p,
		Address:  address,
		Length:   1,
		Access:   access,
		Max:      math.MaxUint16,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// newU32 32 位元值，佔用兩個連續暫存器 (高字在前)
func newU32(p Property, address uint16, access Access, opts ...registerOption) Register {
	r := Register{
		Property: p,
		Address:  address,
		Length:   2,
		Access:   access,
		Max:      math.MaxUint32,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Decode 將暫存器字序列解碼為屬性值。
// 無轉換時 1 字暫存器返回 uint16，2 字返回 uint32。
func (r Register) Decode(words []uint16) (any, error) {
	if len(words) != int(r.Length) {
		return nil, errInvalidArgf("屬性 %s 需要 %d 個暫存器，收到 %d 個", r.Property, r.Length, len(words))
	}

	var raw uint32
	for _, w := range words {
		raw = raw<<16 | uint32(w)
	}

	if r.transform != nil {
		return r.transform(raw), nil
	}
	if r.Length == 1 {
		return uint16(raw), nil
	}
	return raw, nil
}

// Encode 將屬性值編碼為暫存器字序列，寫入前檢查範圍。
// 接受 bool、整數、浮點數、time.Duration (取整秒) 與本套件的枚舉型別。
func (r Register) Encode(value any) ([]uint16, error) {
	raw, err := coerceRegisterValue(value)
	if err != nil {
		return nil, errInvalidArgf("屬性 %s: %v", r.Property, err)
	}

	if raw < uint64(r.Min) || raw > uint64(r.Max) {
		return nil, errInvalidArgf("屬性 %s 的值 %d 超出範圍 [%d..%d]", r.Property, raw, r.Min, r.Max)
	}

	if r.Length == 1 {
		return []uint16{uint16(raw)}, nil
	}
	return []uint16{uint16(raw >> 16), uint16(raw)}, nil
}

// coerceRegisterValue 將呼叫端提供的值強制轉換為暫存器原始值
func coerceRegisterValue(value any) (uint64, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return coerceSigned(int64(v))
	case int8:
		return coerceSigned(int64(v))
	case int16:
		return coerceSigned(int64(v))
	case int32:
		return coerceSigned(int64(v))
	case int64:
		return coerceSigned(v)
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case float32:
		return coerceFloat(float64(v))
	case float64:
		return coerceFloat(v)
	case time.Duration:
		return coerceSigned(int64(v / time.Second))
	case Baudrate:
		return uint64(v), nil
	case Parity:
		return uint64(v), nil
	case StopBits:
		return uint64(v), nil
	case Command:
		return uint64(v), nil
	case DisplayStatus:
		return uint64(v), nil
	case HardwareID:
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("不支援的值型別 %T", value)
	}
}

func coerceSigned(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("負值 %d 無法寫入暫存器", v)
	}
	return uint64(v), nil
}

func coerceFloat(v float64) (uint64, error) {
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("非整數值 %v 無法寫入暫存器", v)
	}
	return coerceSigned(int64(v))
}

// --- 結果轉換 ---

// uptimeCompose 系統時鐘暫存器為打包格式：高字為秒數，低字為小時數
func uptimeCompose(raw uint32) any {
	seconds := raw >> 16
	hours := raw & 0xFFFF
	return time.Duration(hours)*time.Hour + time.Duration(seconds)*time.Second
}

// secondsDuration 以秒為單位的計時暫存器
func secondsDuration(raw uint32) any {
	return time.Duration(raw) * time.Second
}

func asBool(raw uint32) any {
	return raw != 0
}

func asBaudrate(raw uint32) any {
	return Baudrate(raw)
}

func asParity(raw uint32) any {
	return Parity(raw)
}

func asStopBits(raw uint32) any {
	return StopBits(raw)
}

func asDisplayStatus(raw uint32) any {
	return DisplayStatus(raw)
}

func asLocationHall(raw uint32) any {
	return LocationHall(raw)
}

func asReclosingStatus(raw uint32) any {
	return ReclosingStatus(raw)
}

func asHardwareID(raw uint32) any {
	return HardwareID(raw)
}

// --- 字/位元組轉換 ---

// RegistersToBytes 將暫存器值轉換為位元組陣列 (Big Endian)
func RegistersToBytes(registers []uint16) []byte {
	bytes := make([]byte, len(registers)*2)
	for i, reg := range registers {
		binary.BigEndian.PutUint16(bytes[i*2:], reg)
	}
	return bytes
}

// BytesToRegisters 將位元組陣列轉換為暫存器值 (Big Endian)
func BytesToRegisters(data []byte) []uint16 {
	registers := make([]uint16, len(data)/2)
	for i := range registers {
		registers[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return registers
}
