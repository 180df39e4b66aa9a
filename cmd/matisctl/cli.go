package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matismart/matisgo"
)

var (
	cfgFile   string
	logger    *zap.Logger
	appConfig *matisgo.Config

	flagHost     string
	flagPort     int
	flagSerial   string
	flagBaudrate int
	flagUnit     uint8
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "matisctl",
	Short: "Matismart 重合閘設備管理工具",
	Long: `透過 Modbus TCP 或 RTU 讀寫 Matismart 重合閘控制器的
暫存器：狀態查詢、參數設定、串列埠配置與軟重啟。`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "generate" {
			return nil
		}

		var err error
		appConfig, err = matisgo.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		// CLI 參數覆蓋配置檔
		if flagHost != "" {
			appConfig.Transport.Mode = matisgo.TransportModeTCP
			appConfig.Transport.TCP.Host = flagHost
		}
		if flagPort > 0 {
			appConfig.Transport.TCP.Port = flagPort
		}
		if flagSerial != "" {
			appConfig.Transport.Mode = matisgo.TransportModeRTU
			appConfig.Transport.RTU.Device = flagSerial
		}
		if flagBaudrate > 0 {
			appConfig.Transport.RTU.Baudrate = flagBaudrate
		}
		if flagUnit > 0 {
			appConfig.Client.Unit = flagUnit
		}
		if err := appConfig.Validate(); err != nil {
			return err
		}

		logger, err = appConfig.Logging.BuildLogger()
		if err != nil {
			return fmt.Errorf("初始化日誌失敗: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openDevice 連線並驗證設備型號
func openDevice() (*matisgo.MT53R, error) {
	device, err := matisgo.OpenMT53R(appConfig, matisgo.WithDeviceLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("開啟設備失敗: %w", err)
	}
	return device, nil
}

// dumpCmd 狀態報告命令
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "顯示設備完整狀態",
	Long:  "以單一 Modbus 交易讀取全部暫存器，輸出設備狀態報告。",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		return device.Dump(os.Stdout)
	},
}

// getCmd 讀取命令
var getCmd = &cobra.Command{
	Use:   "get [property]",
	Short: "讀取單一屬性",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		value, err := device.Get(matisgo.Property(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("%s: %v\n", args[0], value)
		return nil
	},
}

// setCmd 寫入命令
var setCmd = &cobra.Command{
	Use:   "set [property] [value]",
	Short: "寫入單一屬性",
	Long:  "寫入屬性值。值可為整數、布林值或時間長度 (例如 30s)。",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}

		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		ok, err := device.Set(matisgo.Property(args[0]), value)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("設備拒絕寫入 %s = %v", args[0], value)
		}

		fmt.Printf("%s = %v\n", args[0], value)
		return nil
	},
}

// resetCmd 軟重啟命令
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "設備軟重啟",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		ok, err := device.Reset()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("設備拒絕重啟命令")
		}

		fmt.Println("設備重啟中")
		return nil
	},
}

// commandCmd 遠端控制命令
var commandCmd = &cobra.Command{
	Use:   "command [open|close|lock|unlock]",
	Short: "發送遠端控制命令",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var control matisgo.Command
		switch strings.ToLower(args[0]) {
		case "open":
			control = matisgo.CommandOpen
		case "close":
			control = matisgo.CommandClose
		case "lock":
			control = matisgo.CommandLock
		case "unlock":
			control = matisgo.CommandUnlock
		default:
			return fmt.Errorf("未知的控制命令: %q", args[0])
		}

		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		ok, err := device.SendCommand(control)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("設備拒絕控制命令 %s", control)
		}

		fmt.Printf("已發送命令: %s\n", control)
		return nil
	},
}

// serialCmd 串列埠命令組
var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "設備串列埠配置",
}

// serialShowCmd 顯示串列埠配置
var serialShowCmd = &cobra.Command{
	Use:   "show",
	Short: "顯示設備串列埠配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		config, err := device.SerialConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Baudrate:  %s\n", config.Baudrate)
		fmt.Printf("Parity:    %s\n", config.Parity)
		fmt.Printf("Stop bits: %s\n", config.StopBits)
		return nil
	},
}

// serialSetCmd 設定串列埠配置
var serialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "設定設備串列埠配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		baudrateFlag, _ := cmd.Flags().GetInt("baudrate")
		parityFlag, _ := cmd.Flags().GetString("parity")
		stopBitsFlag, _ := cmd.Flags().GetString("stop-bits")

		baudrate, err := matisgo.ParseBaudrate(baudrateFlag)
		if err != nil {
			return err
		}
		parity, err := matisgo.ParseParity(parityFlag)
		if err != nil {
			return err
		}
		stopBits, err := matisgo.ParseStopBits(stopBitsFlag)
		if err != nil {
			return err
		}

		device, err := openDevice()
		if err != nil {
			return err
		}
		defer device.Close()

		ok, err := device.SetSerialConfig(matisgo.SerialConfig{
			Baudrate: baudrate,
			Parity:   parity,
			StopBits: stopBits,
		})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("設備拒絕串列埠配置")
		}

		fmt.Println("串列埠配置已更新")
		return nil
	},
}

// configCmd 配置命令組
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置管理命令",
}

// configValidateCmd 驗證配置
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "驗證配置檔",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := matisgo.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}

		fmt.Println("配置驗證通過")
		fmt.Printf("  Mode: %s\n", cfg.Transport.Mode)
		if cfg.Transport.Mode == matisgo.TransportModeTCP {
			fmt.Printf("  Host: %s:%d\n", cfg.Transport.TCP.Host, cfg.Transport.TCP.Port)
		} else {
			fmt.Printf("  Device: %s\n", cfg.Transport.RTU.Device)
		}
		fmt.Printf("  Unit: %d\n", cfg.Client.Unit)
		return nil
	},
}

// configGenerateCmd 生成配置
var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "生成範例配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "config.json"
		}

		if err := matisgo.DefaultConfig().SaveConfig(output); err != nil {
			return fmt.Errorf("生成配置失敗: %w", err)
		}

		fmt.Printf("範例配置已生成: %s\n", output)
		return nil
	},
}

// versionCmd 版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "顯示版本資訊",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("matisctl version %s\n", Version)
		fmt.Printf("  Build: %s\n", BuildTime)
		fmt.Printf("  Commit: %s\n", GitCommit)
	},
}

// parseValue 解析寫入值：布林、整數或時間長度
func parseValue(s string) (any, error) {
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return uint32(n), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return nil, fmt.Errorf("無法解析值: %q", s)
}

func init() {
	// 全域 flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置檔路徑")
	rootCmd.PersistentFlags().StringVarP(&flagHost, "host", "H", "", "Modbus TCP 主機")
	rootCmd.PersistentFlags().IntVarP(&flagPort, "port", "p", 0, "Modbus TCP 埠號")
	rootCmd.PersistentFlags().StringVarP(&flagSerial, "serial", "s", "", "串列埠裝置 (RTU 模式)")
	rootCmd.PersistentFlags().IntVarP(&flagBaudrate, "baudrate", "b", 0, "串列埠鮑率 (RTU 模式)")
	rootCmd.PersistentFlags().Uint8VarP(&flagUnit, "unit", "u", 0, "從站位址")

	// serial set flags
	serialSetCmd.Flags().Int("baudrate", 9600, "鮑率 (2400/4800/9600)")
	serialSetCmd.Flags().String("parity", "N", "同位檢查 (N/E/O)")
	serialSetCmd.Flags().String("stop-bits", "1", "停止位元 (1/1.5/2)")

	// config flags
	configGenerateCmd.Flags().StringP("output", "o", "config.json", "輸出檔案路徑")

	// 組裝命令樹
	serialCmd.AddCommand(serialShowCmd, serialSetCmd)
	configCmd.AddCommand(configValidateCmd, configGenerateCmd)

	rootCmd.AddCommand(
		dumpCmd,
		getCmd,
		setCmd,
		resetCmd,
		commandCmd,
		serialCmd,
		configCmd,
		versionCmd,
	)
}

// Execute 執行 CLI
func Execute() error {
	return rootCmd.Execute()
}
