package matisgo

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/goburrow/modbus"
)

// 錯誤分類。ErrConnection / ErrConnectionInterrupted / ErrIO 發生時
// 連線會被關閉，呼叫端需重新連線；ErrSlaveBusy 為暫時性錯誤，
// ErrAcknowledge 表示設備已接受命令但需要時間處理。
var (
	ErrConnection            = errors.New("無法建立 Modbus 連線")
	ErrConnectionInterrupted = errors.New("Modbus 連線中斷")
	ErrIO                    = errors.New("Modbus I/O 錯誤")
	ErrSlaveBusy             = errors.New("從站設備忙碌")
	ErrSlaveFailure          = errors.New("從站設備故障")
	ErrAcknowledge           = errors.New("從站已接受命令，延後處理")
	ErrUnknownModel          = errors.New("未知的設備型號")
)

// InvalidArgumentError 呼叫端參數錯誤，在任何 I/O 之前回報
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// errInvalidArgf 建立格式化的 InvalidArgumentError
func errInvalidArgf(format string, args ...any) error {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// PropertyNotSupportedError 設備型號不支援該屬性
type PropertyNotSupportedError struct {
	Property Property
}

func (e *PropertyNotSupportedError) Error() string {
	return fmt.Sprintf("設備不支援屬性 %s", e.Property)
}

// ReadExceptionError 讀取時收到未分類的 Modbus 異常碼
type ReadExceptionError struct {
	Address uint16
	Length  uint16
	Code    byte
}

func (e *ReadExceptionError) Error() string {
	return fmt.Sprintf("讀取暫存器 %d (長度 %d) 失敗: 異常碼 %02X", e.Address, e.Length, e.Code)
}

// WriteExceptionError 寫入時收到未分類的 Modbus 異常碼
type WriteExceptionError struct {
	Address uint16
	Code    byte
}

func (e *WriteExceptionError) Error() string {
	return fmt.Sprintf("寫入暫存器 %d 失敗: 異常碼 %02X", e.Address, e.Code)
}

// mapReadFault 將傳輸層錯誤分類為領域錯誤。
// 第二個返回值表示連線是否應該被關閉。
func mapReadFault(err error, address, length uint16, unit uint8) (error, bool) {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		switch me.ExceptionCode {
		case modbus.ExceptionCodeServerDeviceBusy:
			return fmt.Errorf("%w: 讀取暫存器 %d (長度 %d, 從站 %d)", ErrSlaveBusy, address, length, unit), false
		case modbus.ExceptionCodeServerDeviceFailure:
			return fmt.Errorf("%w: 讀取暫存器 %d (長度 %d, 從站 %d)", ErrSlaveFailure, address, length, unit), false
		case modbus.ExceptionCodeAcknowledge:
			return fmt.Errorf("%w: 讀取暫存器 %d (長度 %d, 從站 %d)", ErrAcknowledge, address, length, unit), false
		default:
			// 未定義的異常碼保留原始碼，不視為致命錯誤
			return &ReadExceptionError{Address: address, Length: length, Code: me.ExceptionCode}, false
		}
	}

	return mapLinkFault(err), true
}

// mapWriteFault 將寫入路徑的傳輸層錯誤分類為領域錯誤
func mapWriteFault(err error, address uint16, unit uint8) (error, bool) {
	var me *modbus.ModbusError
	if errors.As(err, &me) {
		switch me.ExceptionCode {
		case modbus.ExceptionCodeServerDeviceBusy:
			return fmt.Errorf("%w: 寫入暫存器 %d (從站 %d)", ErrSlaveBusy, address, unit), false
		case modbus.ExceptionCodeServerDeviceFailure:
			return fmt.Errorf("%w: 寫入暫存器 %d (從站 %d)", ErrSlaveFailure, address, unit), false
		case modbus.ExceptionCodeAcknowledge:
			return fmt.Errorf("%w: 寫入暫存器 %d (從站 %d)", ErrAcknowledge, address, unit), false
		default:
			return &WriteExceptionError{Address: address, Code: me.ExceptionCode}, false
		}
	}

	return mapLinkFault(err), true
}

// mapLinkFault 分類連線層錯誤 (對端關閉 vs 一般 I/O 失敗)
func mapLinkFault(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrConnectionInterrupted, err)
	}
	return fmt.Errorf("%w: %v", ErrIO, err)
}
