package matisgo

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// 傳輸模式
const (
	TransportModeTCP = "tcp"
	TransportModeRTU = "rtu"
)

// Config 全域配置
type Config struct {
	Transport TransportConfig `json:"transport" mapstructure:"transport"`
	Client    ClientConfig    `json:"client" mapstructure:"client"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// TransportConfig 傳輸層配置
type TransportConfig struct {
	Mode string    `json:"mode" mapstructure:"mode"`
	TCP  TCPConfig `json:"tcp" mapstructure:"tcp"`
	RTU  RTUConfig `json:"rtu" mapstructure:"rtu"`
}

// TCPConfig Modbus TCP 配置
type TCPConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// RTUConfig Modbus RTU (串列埠) 配置
type RTUConfig struct {
	Device   string `json:"device" mapstructure:"device"`
	Baudrate int    `json:"baudrate" mapstructure:"baudrate"`
	DataBits int    `json:"data_bits" mapstructure:"data_bits"`
	Parity   string `json:"parity" mapstructure:"parity"`
	StopBits int    `json:"stop_bits" mapstructure:"stop_bits"`
}

// ClientConfig 交易層配置
type ClientConfig struct {
	Unit              uint8         `json:"unit" mapstructure:"unit"`
	Timeout           time.Duration `json:"timeout" mapstructure:"timeout"`
	MinCommandSpacing time.Duration `json:"min_command_spacing" mapstructure:"min_command_spacing"`
}

// LoggingConfig 日誌配置
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	OutputPath string `json:"output_path" mapstructure:"output_path"`
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Mode: TransportModeTCP,
			TCP: TCPConfig{
				Host: "localhost",
				Port: ModbusTCPDefaultPort,
			},
			RTU: RTUConfig{
				Device:   "/dev/ttyUSB0",
				Baudrate: 9600,
				DataBits: 8,
				Parity:   "N",
				StopBits: 1,
			},
		},
		Client: ClientConfig{
			Unit:              1,
			Timeout:           5 * time.Second,
			MinCommandSpacing: DefaultMinCommandSpacing,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}

// LoadConfig 載入配置檔
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("json")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/matisctl/")
		viper.AddConfigPath("$HOME/.matisctl/")
	}

	// 環境變數覆蓋
	viper.SetEnvPrefix("MATISCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
		}
		// 配置檔不存在，使用預設值
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置驗證失敗: %w", err)
	}

	return cfg, nil
}

// Validate 驗證配置
func (c *Config) Validate() error {
	switch c.Transport.Mode {
	case TransportModeTCP:
		if c.Transport.TCP.Port < 1 || c.Transport.TCP.Port > 65535 {
			return fmt.Errorf("無效的埠號: %d", c.Transport.TCP.Port)
		}
		if c.Transport.TCP.Host == "" {
			return fmt.Errorf("必須指定主機位址")
		}
	case TransportModeRTU:
		if c.Transport.RTU.Device == "" {
			return fmt.Errorf("必須指定串列埠裝置")
		}
		if _, err := ParseParity(c.Transport.RTU.Parity); err != nil {
			return err
		}
		if c.Transport.RTU.DataBits != 7 && c.Transport.RTU.DataBits != 8 {
			return fmt.Errorf("無效的資料位元: %d", c.Transport.RTU.DataBits)
		}
		if c.Transport.RTU.StopBits != 1 && c.Transport.RTU.StopBits != 2 {
			return fmt.Errorf("無效的停止位元: %d", c.Transport.RTU.StopBits)
		}
	default:
		return fmt.Errorf("無效的傳輸模式: %q", c.Transport.Mode)
	}

	if c.Client.Unit == 0 || c.Client.Unit > 247 {
		return fmt.Errorf("無效的從站位址: %d", c.Client.Unit)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("逾時必須大於 0")
	}
	if c.Client.MinCommandSpacing < 0 {
		return fmt.Errorf("命令間隔不可為負值")
	}

	return nil
}

// SaveConfig 儲存配置到檔案
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失敗: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("寫入配置檔失敗: %w", err)
	}

	return nil
}

// NewTransport 依配置建立傳輸層
func (c *Config) NewTransport() (Transport, error) {
	switch c.Transport.Mode {
	case TransportModeTCP:
		addr := fmt.Sprintf("%s:%d", c.Transport.TCP.Host, c.Transport.TCP.Port)
		return NewTCPTransport(addr, c.Client.Timeout), nil
	case TransportModeRTU:
		rtu := c.Transport.RTU
		return NewRTUTransport(rtu.Device, rtu.Baudrate, rtu.DataBits, rtu.Parity, rtu.StopBits, c.Client.Timeout), nil
	default:
		return nil, fmt.Errorf("無效的傳輸模式: %q", c.Transport.Mode)
	}
}

// BuildLogger 依日誌配置建立 zap logger
func (c *LoggingConfig) BuildLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("無效的日誌等級: %q", c.Level)
	}

	var zapCfg zap.Config
	if c.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	if c.OutputPath != "" {
		zapCfg.OutputPaths = []string{c.OutputPath}
	}

	return zapCfg.Build()
}
