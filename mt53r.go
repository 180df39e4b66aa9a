package matisgo

import (
	"fmt"
	"io"
)

// softResetCode 寫入系統狀態控制暫存器觸發軟重啟的魔術值
const softResetCode = 2020

// reclose 等待/穩定時間的允許範圍 (秒)
const (
	arTimeMin = 5
	arTimeMax = 3599
)

// mt53rRegisters MT53RAsx 的暫存器表，依位址遞增排列
func mt53rRegisters() []Register {
	return []Register{
		newU8(PropModbusAddress, 0x00, AccessRead|AccessWrite),
		newU16(PropSerialBaudrate, 0x01, AccessRead|AccessWrite, withTransform(asBaudrate)),
		newU16(PropSerialParity, 0x02, AccessRead|AccessWrite, withTransform(asParity)),
		newU16(PropSerialStopBits, 0x03, AccessRead|AccessWrite, withTransform(asStopBits)),
		newU16(PropSystemStatusControl, 0x04, AccessRead|AccessWrite),
		newU16(PropSystemUpgradeControl, 0x05, AccessRead|AccessWrite),
		newU32(PropSystemClock, 0x06, AccessRead, withTransform(uptimeCompose)),
		newU16(PropHardwareID, 0x08, AccessRead, withTransform(asHardwareID)),
		newU16(PropFirmwareVersion, 0x09, AccessRead),
		newU16(PropAREnable, 0x0A, AccessRead|AccessWrite, withTransform(asBool)),
		newU16(PropARTimer, 0x0B, AccessRead, withTransform(secondsDuration)),
		newU16(PropDisplayStatus, 0x0C, AccessRead, withTransform(asDisplayStatus)),
		newU16(PropAuxOutputStatus, 0x0D, AccessRead, withTransform(asBool)),
		newU16(PropPadlockStatus, 0x0E, AccessRead, withTransform(asBool)),
		newU16(PropHandleLocation, 0x0F, AccessRead, withTransform(asLocationHall)),
		newU16(PropARStatus, 0x10, AccessRead, withTransform(asReclosingStatus)),
		newU16(PropControl, 0x11, AccessRead|AccessWrite),
		newU16(PropRemoteControlEnable, 0x12, AccessRead|AccessWrite, withTransform(asBool)),
		newU16(PropARTotalAttempts, 0x13, AccessRead|AccessWrite, withRange(1, 10)),
		newU16(PropClosingDelayCompensation, 0x14, AccessRead|AccessWrite),
		newU16(PropOpeningDelayCompensation, 0x15, AccessRead|AccessWrite),
		newU16(PropClosingResetCompensation, 0x16, AccessRead|AccessWrite),
		newU16(PropOpeningResetCompensation, 0x17, AccessRead|AccessWrite),
		newU16(PropClosingActionTime, 0x18, AccessRead),
		newU16(PropOpeningActionTime, 0x19, AccessRead),
		newU16(PropClosingResetTime, 0x1A, AccessRead),
		newU16(PropOpeningResetTime, 0x1B, AccessRead),
		newU16(PropOpeningLockTime, 0x1C, AccessRead),
		newU16(PropUnlockResetTime, 0x1D, AccessRead),
		newU16(PropMotorRunningTime, 0x1F, AccessRead),
		newU16(PropCommandClosingTimes, 0x2B, AccessRead),
		newU16(PropCommandOpeningTimes, 0x2C, AccessRead),
		newU16(PropCommandLockTimes, 0x2D, AccessRead),
		newU16(PropManualPadlockTimes, 0x2E, AccessRead),
		newU16(PropManualClosingTimes, 0x2F, AccessRead),
		newU16(PropARExhaustedTimer, 0x30, AccessRead, withTransform(secondsDuration)),
		newU16(PropARCurrentAttempt, 0x31, AccessRead),
		newU16(PropARWaitTime1, 0x32, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime2, 0x33, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime3, 0x34, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime4, 0x35, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime5, 0x36, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime6, 0x37, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime7, 0x38, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime8, 0x39, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime9, 0x3A, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARWaitTime10, 0x3B, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime1, 0x3C, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime2, 0x3D, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime3, 0x3E, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime4, 0x3F, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime5, 0x40, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime6, 0x41, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime7, 0x42, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime8, 0x43, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime9, 0x44, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
		newU16(PropARStableTime10, 0x45, AccessRead|AccessWrite, withRange(arTimeMin, arTimeMax), withTransform(secondsDuration)),
	}
}

// MT53R Matismart MT53RAsx 重合閘控制器
type MT53R struct {
	*Device
}

// NewMT53R 建立 MT53RAsx 設備
func NewMT53R(client *Client, unit uint8, opts ...DeviceOption) *MT53R {
	return &MT53R{Device: NewDevice(client, unit, mt53rRegisters(), opts...)}
}

// SerialConfig 以單一交易讀取串列埠配置
func (m *MT53R) SerialConfig() (SerialConfig, error) {
	data, err := m.GetMultiple(PropSerialBaudrate, PropSerialParity, PropSerialStopBits)
	if err != nil {
		return SerialConfig{}, err
	}
	return SerialConfig{
		Baudrate: data[PropSerialBaudrate].(Baudrate),
		Parity:   data[PropSerialParity].(Parity),
		StopBits: data[PropSerialStopBits].(StopBits),
	}, nil
}

// SetSerialConfig 寫入串列埠配置，全部寫入被接受時回傳 true
func (m *MT53R) SetSerialConfig(config SerialConfig) (bool, error) {
	for _, w := range []struct {
		prop  Property
		value any
	}{
		{PropSerialBaudrate, config.Baudrate},
		{PropSerialParity, config.Parity},
		{PropSerialStopBits, config.StopBits},
	} {
		ok, err := m.Set(w.prop, w.value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Reset 設備軟重啟
func (m *MT53R) Reset() (bool, error) {
	return m.Set(PropSystemStatusControl, softResetCode)
}

// SendCommand 發送遠端控制命令
func (m *MT53R) SendCommand(cmd Command) (bool, error) {
	return m.Set(PropControl, cmd)
}

// ARWaitTimeProperty 第 attempt 次重合閘的等待時間屬性
func (m *MT53R) ARWaitTimeProperty(attempt int) (Property, error) {
	if attempt < 1 || attempt > 10 {
		return "", errInvalidArgf("重合閘次數 %d 超出範圍 [1..10]", attempt)
	}
	return Property(fmt.Sprintf("ar_wait_time_%d", attempt)), nil
}

// ARStableTimeProperty 第 attempt 次重合閘的穩定時間屬性
func (m *MT53R) ARStableTimeProperty(attempt int) (Property, error) {
	if attempt < 1 || attempt > 10 {
		return "", errInvalidArgf("重合閘次數 %d 超出範圍 [1..10]", attempt)
	}
	return Property(fmt.Sprintf("ar_stable_time_%d", attempt)), nil
}

// Dump 以單一交易讀取全部屬性並輸出狀態報告
func (m *MT53R) Dump(w io.Writer) error {
	data, err := m.Fetch()
	if err != nil {
		return err
	}

	line := func(label string, value any) {
		fmt.Fprintf(w, "    %-25s%v\n", label, value)
	}

	fmt.Fprintln(w, "MT53RAsx status")
	fmt.Fprintln(w, "---------------")
	fmt.Fprintln(w, "  Hardware:")
	line("ID:", data[PropHardwareID])
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  Software:")
	line("Version:", data[PropFirmwareVersion])
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  Serial:")
	line("Baudrate:", data[PropSerialBaudrate])
	line("Parity:", data[PropSerialParity])
	line("Stop bits:", data[PropSerialStopBits])
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  Modbus:")
	line("Device address:", data[PropModbusAddress])
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  System:")
	line("Uptime:", data[PropSystemClock])
	line("Display:", data[PropDisplayStatus])
	line("Aux output:", data[PropAuxOutputStatus])
	line("Padlock:", data[PropPadlockStatus])
	line("Hall sensor flags:", data[PropHandleLocation])
	line("Remote control enabled:", data[PropRemoteControlEnable])
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  Auto-reclose:")
	line("Enabled:", data[PropAREnable])
	fmt.Fprintf(w, "    %-25s%v / %v\n", "Attempt:", data[PropARCurrentAttempt], data[PropARTotalAttempts])
	line("Reclose timer:", data[PropARTimer])
	line("Exhausted timer:", data[PropARExhaustedTimer])
	line("Status:", data[PropARStatus])
	for i := 1; i <= 10; i++ {
		wait, _ := m.ARWaitTimeProperty(i)
		stable, _ := m.ARStableTimeProperty(i)
		label := fmt.Sprintf("Reclose/Stable time %d:", i)
		fmt.Fprintf(w, "    %-25s%v / %v\n", label, data[wait], data[stable])
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  Statistics:")
	line("Closing action time:", data[PropClosingActionTime])
	line("Opening action time:", data[PropOpeningActionTime])
	line("Closing reset time:", data[PropClosingResetTime])
	line("Opening reset time:", data[PropOpeningResetTime])
	line("Opening lock time:", data[PropOpeningLockTime])
	line("Unlock reset time:", data[PropUnlockResetTime])
	line("Motor running time:", data[PropMotorRunningTime])
	line("Command closing times:", data[PropCommandClosingTimes])
	line("Command opening times:", data[PropCommandOpeningTimes])
	line("Command lock times:", data[PropCommandLockTimes])
	line("Manual padlock times:", data[PropManualPadlockTimes])
	line("Manual closing times:", data[PropManualClosingTimes])

	return nil
}
