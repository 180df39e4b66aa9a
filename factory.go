package matisgo

import "fmt"

// hardwareIDRegister 型號偵測用的硬體 ID 暫存器，所有型號共用此位址
var hardwareIDRegister = newU16(PropHardwareID, 0x08, AccessRead, withTransform(asHardwareID))

// NewDeviceForModel 依硬體型號建立設備
func NewDeviceForModel(model HardwareID, client *Client, unit uint8, opts ...DeviceOption) (*Device, error) {
	switch model {
	case HardwareMT53RAsx:
		return NewMT53R(client, unit, opts...).Device, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, model)
	}
}

// DetectModel 讀取硬體 ID 暫存器判斷設備型號
func DetectModel(client *Client, unit uint8) (HardwareID, error) {
	value, err := client.Read(unit, hardwareIDRegister)
	if err != nil {
		return 0, err
	}
	return value.(HardwareID), nil
}

// OpenDevice 依配置建立傳輸層、交易層與設備，並完成連線與型號偵測
func OpenDevice(cfg *Config, opts ...DeviceOption) (*Device, error) {
	client, err := newConnectedClient(cfg)
	if err != nil {
		return nil, err
	}

	model, err := DetectModel(client, cfg.Client.Unit)
	if err != nil {
		client.Close()
		return nil, err
	}

	device, err := NewDeviceForModel(model, client, cfg.Client.Unit, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}

	return device, nil
}

// OpenMT53R 依配置連線並確認設備為 MT53RAsx
func OpenMT53R(cfg *Config, opts ...DeviceOption) (*MT53R, error) {
	client, err := newConnectedClient(cfg)
	if err != nil {
		return nil, err
	}

	model, err := DetectModel(client, cfg.Client.Unit)
	if err != nil {
		client.Close()
		return nil, err
	}
	if model != HardwareMT53RAsx {
		client.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, model)
	}

	return NewMT53R(client, cfg.Client.Unit, opts...), nil
}

func newConnectedClient(cfg *Config) (*Client, error) {
	transport, err := cfg.NewTransport()
	if err != nil {
		return nil, err
	}

	client := NewClient(transport, WithMinCommandSpacing(cfg.Client.MinCommandSpacing))
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}
