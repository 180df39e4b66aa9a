package matisgo

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// WriteAck 寫入命令的設備回音。單暫存器寫入回傳回音值，
// 多暫存器寫入回傳回音數量。
type WriteAck struct {
	Address uint16
	Value   uint16
	Count   uint16
}

// Transport 欄位匯流排傳輸層。實作必須是不透明的：呼叫端不假設
// 底層協議細節，只透過保持暫存器原語溝通。目標從站位址由每次
// 呼叫傳入，傳輸層本身不保存目標狀態。
//
// Transport 不要求線程安全，Client 以單一交易閘保證序列化存取。
type Transport interface {
	Connect() error
	Close() error
	Connected() bool

	ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error)
	WriteSingleRegister(unit uint8, address, value uint16) (WriteAck, error)
	WriteMultipleRegisters(unit uint8, address uint16, values []uint16) (WriteAck, error)
}

// TCPTransport Modbus TCP 傳輸層
type TCPTransport struct {
	handler   *modbus.TCPClientHandler
	client    modbus.Client
	connected bool
}

// NewTCPTransport 建立 Modbus TCP 傳輸層，address 格式為 "host:port"
func NewTCPTransport(address string, timeout time.Duration) *TCPTransport {
	handler := modbus.NewTCPClientHandler(address)
	handler.Timeout = timeout

	return &TCPTransport{
		handler: handler,
		client:  modbus.NewClient(handler),
	}
}

// Connect 建立連線
func (t *TCPTransport) Connect() error {
	if err := t.handler.Connect(); err != nil {
		return err
	}
	t.connected = true
	return nil
}

// Close 關閉連線
func (t *TCPTransport) Close() error {
	t.connected = false
	return t.handler.Close()
}

// Connected 連線是否已建立
func (t *TCPTransport) Connected() bool {
	return t.connected
}

// ReadHoldingRegisters 讀取保持暫存器 (FC 03)
func (t *TCPTransport) ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	t.handler.SlaveId = unit
	return readHoldingRegisters(t.client, address, quantity)
}

// WriteSingleRegister 寫入單一暫存器 (FC 06)
func (t *TCPTransport) WriteSingleRegister(unit uint8, address, value uint16) (WriteAck, error) {
	t.handler.SlaveId = unit
	return writeSingleRegister(t.client, address, value)
}

// WriteMultipleRegisters 寫入多個暫存器 (FC 16)
func (t *TCPTransport) WriteMultipleRegisters(unit uint8, address uint16, values []uint16) (WriteAck, error) {
	t.handler.SlaveId = unit
	return writeMultipleRegisters(t.client, address, values)
}

// RTUTransport Modbus RTU (串列埠) 傳輸層
type RTUTransport struct {
	handler   *modbus.RTUClientHandler
	client    modbus.Client
	connected bool
}

// NewRTUTransport 建立 Modbus RTU 傳輸層
func NewRTUTransport(device string, baudrate int, dataBits int, parity string, stopBits int, timeout time.Duration) *RTUTransport {
	handler := modbus.NewRTUClientHandler(device)
	handler.BaudRate = baudrate
	handler.DataBits = dataBits
	handler.Parity = parity
	handler.StopBits = stopBits
	handler.Timeout = timeout

	return &RTUTransport{
		handler: handler,
		client:  modbus.NewClient(handler),
	}
}

// Connect 開啟串列埠
func (t *RTUTransport) Connect() error {
	if err := t.handler.Connect(); err != nil {
		return err
	}
	t.connected = true
	return nil
}

// Close 關閉串列埠
func (t *RTUTransport) Close() error {
	t.connected = false
	return t.handler.Close()
}

// Connected 串列埠是否已開啟
func (t *RTUTransport) Connected() bool {
	return t.connected
}

// ReadHoldingRegisters 讀取保持暫存器 (FC 03)
func (t *RTUTransport) ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	t.handler.SlaveId = unit
	return readHoldingRegisters(t.client, address, quantity)
}

// WriteSingleRegister 寫入單一暫存器 (FC 06)
func (t *RTUTransport) WriteSingleRegister(unit uint8, address, value uint16) (WriteAck, error) {
	t.handler.SlaveId = unit
	return writeSingleRegister(t.client, address, value)
}

// WriteMultipleRegisters 寫入多個暫存器 (FC 16)
func (t *RTUTransport) WriteMultipleRegisters(unit uint8, address uint16, values []uint16) (WriteAck, error) {
	t.handler.SlaveId = unit
	return writeMultipleRegisters(t.client, address, values)
}

func readHoldingRegisters(client modbus.Client, address, quantity uint16) ([]uint16, error) {
	results, err := client.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, err
	}
	if len(results) != int(quantity)*2 {
		return nil, fmt.Errorf("讀取回應長度錯誤: 期望 %d 位元組，收到 %d 位元組", quantity*2, len(results))
	}
	return BytesToRegisters(results), nil
}

func writeSingleRegister(client modbus.Client, address, value uint16) (WriteAck, error) {
	// goburrow 已驗證回應位址與請求位址一致，回傳回音值
	results, err := client.WriteSingleRegister(address, value)
	if err != nil {
		return WriteAck{}, err
	}
	if len(results) != 2 {
		return WriteAck{}, fmt.Errorf("寫入回應長度錯誤: %d 位元組", len(results))
	}
	return WriteAck{
		Address: address,
		Value:   binary.BigEndian.Uint16(results),
		Count:   1,
	}, nil
}

func writeMultipleRegisters(client modbus.Client, address uint16, values []uint16) (WriteAck, error) {
	results, err := client.WriteMultipleRegisters(address, uint16(len(values)), RegistersToBytes(values))
	if err != nil {
		return WriteAck{}, err
	}
	if len(results) != 2 {
		return WriteAck{}, fmt.Errorf("寫入回應長度錯誤: %d 位元組", len(results))
	}
	return WriteAck{
		Address: address,
		Count:   binary.BigEndian.Uint16(results),
	}, nil
}
