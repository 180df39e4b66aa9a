package matisgo

import "fmt"

// Modbus 協議常數
const (
	// Modbus TCP 常數
	ModbusTCPDefaultPort = 502

	// 暫存器限制 (FC 03 / FC 16)
	MaxRegistersPerRead  = 125
	MaxRegistersPerWrite = 123
)

// Baudrate 串列埠鮑率 (暫存器值)
type Baudrate uint16

const (
	Baud2400 Baudrate = 1
	Baud4800 Baudrate = 2
	Baud9600 Baudrate = 3
)

// ParseBaudrate 由實際鮑率值解析
func ParseBaudrate(value int) (Baudrate, error) {
	switch value {
	case 2400:
		return Baud2400, nil
	case 4800:
		return Baud4800, nil
	case 9600:
		return Baud9600, nil
	default:
		return 0, &InvalidArgumentError{Message: fmt.Sprintf("未知的鮑率值: %d", value)}
	}
}

// Bps 返回實際鮑率值
func (b Baudrate) Bps() int {
	switch b {
	case Baud2400:
		return 2400
	case Baud4800:
		return 4800
	case Baud9600:
		return 9600
	default:
		return 0
	}
}

func (b Baudrate) String() string {
	if bps := b.Bps(); bps != 0 {
		return fmt.Sprintf("%d", bps)
	}
	return fmt.Sprintf("Baudrate(%d)", uint16(b))
}

// Parity 串列埠同位檢查 (暫存器值)
type Parity uint16

const (
	ParityNone Parity = 1
	ParityEven Parity = 2
	ParityOdd  Parity = 3
)

// ParseParity 由字串解析 ("N"/"E"/"O" 或全名)
func ParseParity(value string) (Parity, error) {
	switch value {
	case "N", "n", "none", "None":
		return ParityNone, nil
	case "E", "e", "even", "Even":
		return ParityEven, nil
	case "O", "o", "odd", "Odd":
		return ParityOdd, nil
	default:
		return 0, &InvalidArgumentError{Message: fmt.Sprintf("未知的同位檢查值: %q", value)}
	}
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityEven:
		return "E"
	case ParityOdd:
		return "O"
	default:
		return fmt.Sprintf("Parity(%d)", uint16(p))
	}
}

// StopBits 串列埠停止位元 (暫存器值)
type StopBits uint16

const (
	Stop1  StopBits = 1
	Stop15 StopBits = 2
	Stop2  StopBits = 3
)

// ParseStopBits 由字串解析
func ParseStopBits(value string) (StopBits, error) {
	switch value {
	case "1":
		return Stop1, nil
	case "1.5":
		return Stop15, nil
	case "2":
		return Stop2, nil
	default:
		return 0, &InvalidArgumentError{Message: fmt.Sprintf("未知的停止位元值: %q", value)}
	}
}

func (s StopBits) String() string {
	switch s {
	case Stop1:
		return "1"
	case Stop15:
		return "1.5"
	case Stop2:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", uint16(s))
	}
}

// SerialConfig 設備端串列埠配置
type SerialConfig struct {
	Baudrate Baudrate
	Parity   Parity
	StopBits StopBits
}

// DisplayStatus 面板 LED 狀態
type DisplayStatus uint16

const (
	DisplayRedOn         DisplayStatus = 1
	DisplayGreenOn       DisplayStatus = 2
	DisplayRedFlash      DisplayStatus = 4
	DisplayGreenFlash    DisplayStatus = 5
	DisplayRedGreenFlash DisplayStatus = 15
)

func (d DisplayStatus) String() string {
	switch d {
	case DisplayRedOn:
		return "Red on"
	case DisplayGreenOn:
		return "Green on"
	case DisplayRedFlash:
		return "Red flash"
	case DisplayGreenFlash:
		return "Green flash"
	case DisplayRedGreenFlash:
		return "Red/Green flash"
	default:
		return fmt.Sprintf("DisplayStatus(%d)", uint16(d))
	}
}

// LocationHall 霍爾感測器位置旗標
type LocationHall uint16

const (
	HallOpen       LocationHall = 0x0001
	HallReset      LocationHall = 0x0002
	HallClosed     LocationHall = 0x0004
	HallMotorFault LocationHall = 0x0008
)

func (l LocationHall) String() string {
	names := []struct {
		flag LocationHall
		name string
	}{
		{HallOpen, "Open"},
		{HallReset, "Reset"},
		{HallClosed, "Closed"},
		{HallMotorFault, "MotorFault"},
	}

	s := ""
	for _, n := range names {
		if l&n.flag == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	if s == "" {
		return "None"
	}
	return s
}

// ReclosingStatus 重合閘狀態旗標
type ReclosingStatus uint16

const (
	ReclosingInitial          ReclosingStatus = 0x0000
	ReclosingCommandOpening   ReclosingStatus = 0x0002
	ReclosingCommandClosing   ReclosingStatus = 0x0004
	ReclosingCommandLock      ReclosingStatus = 0x0008
	ReclosingCommandUnlock    ReclosingStatus = 0x0010
	ReclosingAutomaticOpening ReclosingStatus = 0x0020
	ReclosingAutomaticClosing ReclosingStatus = 0x0040
	ReclosingManualClosing    ReclosingStatus = 0x0400
	ReclosingFaultOpening     ReclosingStatus = 0x0800
	ReclosingPadlocked        ReclosingStatus = 0x8000
)

func (r ReclosingStatus) String() string {
	if r == ReclosingInitial {
		return "Initial"
	}

	names := []struct {
		flag ReclosingStatus
		name string
	}{
		{ReclosingCommandOpening, "CommandOpening"},
		{ReclosingCommandClosing, "CommandClosing"},
		{ReclosingCommandLock, "CommandLock"},
		{ReclosingCommandUnlock, "CommandUnlock"},
		{ReclosingAutomaticOpening, "AutomaticOpening"},
		{ReclosingAutomaticClosing, "AutomaticClosing"},
		{ReclosingManualClosing, "ManualClosing"},
		{ReclosingFaultOpening, "FaultOpening"},
		{ReclosingPadlocked, "Padlocked"},
	}

	s := ""
	for _, n := range names {
		if r&n.flag == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	return s
}

// Command 遠端控制命令
type Command uint16

const (
	CommandOpen   Command = 1
	CommandClose  Command = 2
	CommandLock   Command = 3
	CommandUnlock Command = 4
)

func (c Command) String() string {
	switch c {
	case CommandOpen:
		return "Open"
	case CommandClose:
		return "Close"
	case CommandLock:
		return "Lock"
	case CommandUnlock:
		return "Unlock"
	default:
		return fmt.Sprintf("Command(%d)", uint16(c))
	}
}

// HardwareID Matismart 硬體型號 ID
type HardwareID uint16

const (
	HardwareMT53RAsx HardwareID = 523
)

func (h HardwareID) String() string {
	switch h {
	case HardwareMT53RAsx:
		return "MT53RAsx"
	default:
		return fmt.Sprintf("HardwareID(%d)", uint16(h))
	}
}
