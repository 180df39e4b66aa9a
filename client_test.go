package matisgo

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport 記錄呼叫並回放預設結果的傳輸層
type fakeTransport struct {
	connected  bool
	connectErr error

	connectCalls int
	closeCalls   int
	readCalls    int
	writeCalls   int

	lastUnit     uint8
	lastAddress  uint16
	lastQuantity uint16
	lastValue    uint16

	readResult []uint16
	readErr    error
	writeAck   WriteAck
	writeErr   error
}

func (f *fakeTransport) Connect() error {
	f.connectCalls++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.closeCalls++
	f.connected = false
	return nil
}

func (f *fakeTransport) Connected() bool {
	return f.connected
}

func (f *fakeTransport) ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	f.readCalls++
	f.lastUnit = unit
	f.lastAddress = address
	f.lastQuantity = quantity
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.readResult != nil {
		return f.readResult, nil
	}
	return make([]uint16, quantity), nil
}

func (f *fakeTransport) WriteSingleRegister(unit uint8, address, value uint16) (WriteAck, error) {
	f.writeCalls++
	f.lastUnit = unit
	f.lastAddress = address
	f.lastValue = value
	if f.writeErr != nil {
		return WriteAck{}, f.writeErr
	}
	if f.writeAck != (WriteAck{}) {
		return f.writeAck, nil
	}
	return WriteAck{Address: address, Value: value, Count: 1}, nil
}

func (f *fakeTransport) WriteMultipleRegisters(unit uint8, address uint16, values []uint16) (WriteAck, error) {
	f.writeCalls++
	f.lastUnit = unit
	f.lastAddress = address
	if f.writeErr != nil {
		return WriteAck{}, f.writeErr
	}
	if f.writeAck != (WriteAck{}) {
		return f.writeAck, nil
	}
	return WriteAck{Address: address, Count: uint16(len(values))}, nil
}

// fakeClock 可控制的時鐘，睡眠時自動推進
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestClient(transport Transport, clock *fakeClock, opts ...ClientOption) *Client {
	opts = append(opts, withClock(clock.Now, clock.Sleep))
	return NewClient(transport, opts...)
}

func TestClient_ConnectIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	require.NoError(t, client.Connect())
	require.NoError(t, client.Connect())
	assert.Equal(t, 1, transport.connectCalls)
}

func TestClient_ConnectFailureClosesTransport(t *testing.T) {
	transport := &fakeTransport{connectErr: errors.New("connection refused")}
	client := newTestClient(transport, newFakeClock())

	err := client.Connect()
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 1, transport.closeCalls)
}

func TestClient_MinCommandSpacing(t *testing.T) {
	transport := &fakeTransport{}
	clock := newFakeClock()
	client := newTestClient(transport, clock)

	reg := newU16(PropFirmwareVersion, 0x09, AccessRead)

	// 第一筆命令不需等待
	_, err := client.Read(1, reg)
	require.NoError(t, err)
	assert.Empty(t, clock.slept)

	// 3ms 後的第二筆命令需補足至 10ms
	clock.Advance(3 * time.Millisecond)
	_, err = client.Read(1, reg)
	require.NoError(t, err)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 7*time.Millisecond, clock.slept[0])

	// 間隔已滿時不等待
	clock.Advance(20 * time.Millisecond)
	_, err = client.Read(1, reg)
	require.NoError(t, err)
	assert.Len(t, clock.slept, 1)
}

func TestClient_SpacingAppliesAfterFault(t *testing.T) {
	// 失敗的交易也更新最後命令時間戳
	transport := &fakeTransport{
		readErr: &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 2},
	}
	clock := newFakeClock()
	client := newTestClient(transport, clock)

	reg := newU16(PropFirmwareVersion, 0x09, AccessRead)

	_, err := client.Read(1, reg)
	require.Error(t, err)

	transport.readErr = nil
	clock.Advance(2 * time.Millisecond)
	_, err = client.Read(1, reg)
	require.NoError(t, err)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 8*time.Millisecond, clock.slept[0])
}

func TestClient_CustomSpacing(t *testing.T) {
	transport := &fakeTransport{}
	clock := newFakeClock()
	client := newTestClient(transport, clock, WithMinCommandSpacing(50*time.Millisecond))

	reg := newU16(PropFirmwareVersion, 0x09, AccessRead)

	_, err := client.Read(1, reg)
	require.NoError(t, err)

	clock.Advance(10 * time.Millisecond)
	_, err = client.Read(1, reg)
	require.NoError(t, err)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 40*time.Millisecond, clock.slept[0])
}

func TestClient_ReadNotReadableNoIO(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropControl, 0x11, AccessWrite)

	_, err := client.Read(1, reg)
	var invalidArg *InvalidArgumentError
	assert.ErrorAs(t, err, &invalidArg)
	assert.Zero(t, transport.connectCalls)
	assert.Zero(t, transport.readCalls)
}

func TestClient_ReadDecodesValue(t *testing.T) {
	transport := &fakeTransport{readResult: []uint16{0x001E, 0x0002}}
	client := newTestClient(transport, newFakeClock())

	reg := newU32(PropSystemClock, 0x06, AccessRead, withTransform(uptimeCompose))

	value, err := client.Read(5, reg)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour+30*time.Second, value)
	assert.Equal(t, uint8(5), transport.lastUnit)
	assert.Equal(t, uint16(0x06), transport.lastAddress)
	assert.Equal(t, uint16(2), transport.lastQuantity)
}

func TestClient_ReadMultipleSingleTransaction(t *testing.T) {
	// 整個範圍以一次讀取取得，逐一解碼
	transport := &fakeTransport{
		readResult: []uint16{0x0005, 0x0003, 0x0001, 0x0001, 0x0000, 0x0000, 0x001E, 0x0002},
	}
	client := newTestClient(transport, newFakeClock())

	regs := []Register{
		newU8(PropModbusAddress, 0x00, AccessRead|AccessWrite),
		newU16(PropSerialBaudrate, 0x01, AccessRead|AccessWrite, withTransform(asBaudrate)),
		newU32(PropSystemClock, 0x06, AccessRead, withTransform(uptimeCompose)),
	}

	values, err := client.ReadMultiple(1, regs)
	require.NoError(t, err)
	assert.Equal(t, 1, transport.readCalls)
	assert.Equal(t, uint16(0x00), transport.lastAddress)
	assert.Equal(t, uint16(8), transport.lastQuantity)

	require.Len(t, values, 3)
	assert.Equal(t, uint16(5), values[0])
	assert.Equal(t, Baud9600, values[1])
	assert.Equal(t, 2*time.Hour+30*time.Second, values[2])
}

func TestClient_ReadMultipleViolationsNoIO(t *testing.T) {
	tests := []struct {
		name string
		regs []Register
	}{
		{"empty", nil},
		{"misordered", []Register{
			newU16(PropControl, 0x11, AccessRead),
			newU16(PropARStatus, 0x10, AccessRead),
		}},
		{"overlap", []Register{
			newU32(PropSystemClock, 0x06, AccessRead),
			newU16(PropHardwareID, 0x07, AccessRead),
		}},
		{"not readable", []Register{
			newU16(PropControl, 0x11, AccessWrite),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{}
			client := newTestClient(transport, newFakeClock())

			_, err := client.ReadMultiple(1, tt.regs)
			var invalidArg *InvalidArgumentError
			assert.ErrorAs(t, err, &invalidArg)
			assert.Zero(t, transport.connectCalls)
			assert.Zero(t, transport.readCalls)
		})
	}
}

func TestClient_WriteSingleEcho(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropControl, 0x11, AccessRead|AccessWrite)

	ok, err := client.Write(1, reg, uint16(2))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, transport.writeCalls)
}

func TestClient_WriteSingleEchoMismatch(t *testing.T) {
	// 回音值不一致不是錯誤，回傳 false
	transport := &fakeTransport{
		writeAck: WriteAck{Address: 0x11, Value: 0xFFFF, Count: 1},
	}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropControl, 0x11, AccessRead|AccessWrite)

	ok, err := client.Write(1, reg, uint16(2))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_WriteMultipleEcho(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	// 2 字暫存器走多暫存器寫入
	reg := newU32(PropSystemClock, 0x06, AccessRead|AccessWrite)

	ok, err := client.Write(1, reg, uint32(0x00010002))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_WriteMultipleCountMismatch(t *testing.T) {
	transport := &fakeTransport{
		writeAck: WriteAck{Address: 0x06, Count: 1},
	}
	client := newTestClient(transport, newFakeClock())

	reg := newU32(PropSystemClock, 0x06, AccessRead|AccessWrite)

	ok, err := client.Write(1, reg, uint32(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_WriteOutOfRangeNoIO(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropARTotalAttempts, 0x13, AccessRead|AccessWrite, withRange(1, 10))

	_, err := client.Write(1, reg, 11)
	var invalidArg *InvalidArgumentError
	assert.ErrorAs(t, err, &invalidArg)
	assert.Zero(t, transport.connectCalls)
	assert.Zero(t, transport.writeCalls)
}

func TestClient_ExceptionCodeMapping(t *testing.T) {
	tests := []struct {
		name       string
		code       byte
		sentinel   error
		closesLink bool
	}{
		{"slave busy", modbus.ExceptionCodeServerDeviceBusy, ErrSlaveBusy, false},
		{"slave failure", modbus.ExceptionCodeServerDeviceFailure, ErrSlaveFailure, false},
		{"acknowledge", modbus.ExceptionCodeAcknowledge, ErrAcknowledge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{
				readErr: &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: tt.code},
			}
			client := newTestClient(transport, newFakeClock())

			reg := newU16(PropFirmwareVersion, 0x09, AccessRead)
			_, err := client.Read(1, reg)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Zero(t, transport.closeCalls, "設備異常不關閉連線")
		})
	}
}

func TestClient_UnknownExceptionCodeKept(t *testing.T) {
	// 未分類的異常碼保留原始碼
	transport := &fakeTransport{
		readErr: &modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 2},
	}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropFirmwareVersion, 0x09, AccessRead)
	_, err := client.Read(1, reg)

	var readErr *ReadExceptionError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, byte(2), readErr.Code)
	assert.Equal(t, uint16(0x09), readErr.Address)
	assert.Zero(t, transport.closeCalls)
}

func TestClient_WriteExceptionCodeKept(t *testing.T) {
	transport := &fakeTransport{
		writeErr: &modbus.ModbusError{FunctionCode: 0x86, ExceptionCode: 3},
	}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropControl, 0x11, AccessRead|AccessWrite)
	_, err := client.Write(1, reg, 1)

	var writeErr *WriteExceptionError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, byte(3), writeErr.Code)
}

func TestClient_LinkFaultClosesConnection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"peer closed", io.EOF, ErrConnectionInterrupted},
		{"short response", io.ErrUnexpectedEOF, ErrConnectionInterrupted},
		{"generic io", errors.New("read: i/o timeout"), ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{readErr: tt.err}
			client := newTestClient(transport, newFakeClock())

			reg := newU16(PropFirmwareVersion, 0x09, AccessRead)
			_, err := client.Read(1, reg)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, 1, transport.closeCalls, "連線層錯誤必須關閉連線")
		})
	}
}

func TestClient_ReconnectAfterLinkFault(t *testing.T) {
	transport := &fakeTransport{readErr: io.EOF}
	client := newTestClient(transport, newFakeClock())

	reg := newU16(PropFirmwareVersion, 0x09, AccessRead)
	_, err := client.Read(1, reg)
	require.Error(t, err)
	assert.False(t, transport.Connected())

	// 下一筆命令自動重新連線
	transport.readErr = nil
	_, err = client.Read(1, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, transport.connectCalls)
}

func TestClient_Stats(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	readReg := newU16(PropFirmwareVersion, 0x09, AccessRead)
	writeReg := newU16(PropControl, 0x11, AccessRead|AccessWrite)

	_, err := client.Read(1, readReg)
	require.NoError(t, err)
	_, err = client.Write(1, writeReg, 1)
	require.NoError(t, err)

	transport.readErr = io.EOF
	_, err = client.Read(1, readReg)
	require.Error(t, err)

	stats := client.Stats()
	assert.Equal(t, uint64(1), stats.Reads)
	assert.Equal(t, uint64(1), stats.Writes)
	assert.Equal(t, uint64(1), stats.Faults)
	assert.False(t, stats.LastTransaction.IsZero())
}

func TestClient_CloseIdempotent(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(transport, newFakeClock())

	require.NoError(t, client.Connect())
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.Equal(t, 1, transport.closeCalls)
}
