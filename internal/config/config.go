package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/breaker"
	"github.com/JoeShih716/go-atm/internal/app/atm/adapter/out/device"
	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
	"github.com/JoeShih716/go-atm/pkg/logger"
	"github.com/JoeShih716/go-atm/pkg/mysql"
)

// EnvVar 覆寫 env 的環境變數
const EnvVar = "ATM_ENV"

const (
	EnvLocal = "local"
	EnvTest  = "test"
	EnvProd  = "prod"
)

// BackendType 銀行端實作
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendMySQL  BackendType = "mysql"
)

type Config struct {
	Env         string            `yaml:"env"`
	Log         logger.Config     `yaml:"log"`
	ATM         ATMConfig         `yaml:"atm"`
	Backend     BackendConfig     `yaml:"backend"`
	MySQL       mysql.Config      `yaml:"mysql"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

type ATMConfig struct {
	CardNumberDigits int           `yaml:"cardNumberDigits"`
	PinNumberDigits  int           `yaml:"pinNumberDigits"`
	CashBin          CashBinConfig `yaml:"cashBin"`
	Printer          PrinterConfig `yaml:"printer"`
}

type CashBinConfig struct {
	AvailableMoney int64 `yaml:"availableMoney"`
}

type PrinterConfig struct {
	Paper int `yaml:"paper"`
}

type BackendConfig struct {
	Type BackendType `yaml:"type"`
	// WAL 記憶體銀行的 WAL 路徑，空字串代表不落地
	WAL     string         `yaml:"wal"`
	Breaker breaker.Config `yaml:"breaker"`
	// Cards 初始卡片資料 (memory 直接載入，mysql 做 seed)
	Cards []domain.Card `yaml:"cards"`
}

type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load 讀取並解析設定檔
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 yaml，套用環境變數與預設值後驗證
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if env := os.Getenv(EnvVar); env != "" {
		cfg.Env = env
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults 補全 yaml 沒寫的欄位
func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = EnvLocal
	}
	if c.Log.Level == "" {
		if c.Env == EnvProd {
			c.Log.Level = "info"
		} else {
			c.Log.Level = "debug"
		}
	}
	if c.Log.Format == "" {
		if c.Env == EnvProd {
			c.Log.Format = "json"
		} else {
			c.Log.Format = "console"
		}
	}
	if c.ATM.CardNumberDigits == 0 {
		c.ATM.CardNumberDigits = domain.DefaultCardNumberDigits
	}
	if c.ATM.PinNumberDigits == 0 {
		c.ATM.PinNumberDigits = domain.DefaultPinNumberDigits
	}
	if c.ATM.CashBin.AvailableMoney == 0 {
		c.ATM.CashBin.AvailableMoney = device.DefaultAvailableMoney
	}
	if c.ATM.Printer.Paper == 0 {
		c.ATM.Printer.Paper = device.DefaultPaper
	}
	if c.Backend.Type == "" {
		c.Backend.Type = BackendMemory
	}
	def := breaker.DefaultConfig()
	if c.Backend.Breaker.CallTimeout == 0 {
		c.Backend.Breaker.CallTimeout = def.CallTimeout
	}
	if c.Backend.Breaker.MaxRequests == 0 {
		c.Backend.Breaker.MaxRequests = def.MaxRequests
	}
	if c.Backend.Breaker.Interval == 0 {
		c.Backend.Breaker.Interval = def.Interval
	}
	if c.Backend.Breaker.OpenTimeout == 0 {
		c.Backend.Breaker.OpenTimeout = def.OpenTimeout
	}
	if c.Backend.Breaker.ConsecutiveFailures == 0 {
		c.Backend.Breaker.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if c.Backend.Type == BackendMySQL {
		c.MySQL.ApplyDefaults()
	}
	if c.Diagnostics.Address == "" {
		c.Diagnostics.Address = ":50051"
	}
}

// Validate 檢查設定是否合法
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvTest, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}
	switch c.Backend.Type {
	case BackendMemory, BackendMySQL:
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}
	if c.ATM.CardNumberDigits < 0 || c.ATM.PinNumberDigits < 0 {
		return fmt.Errorf("card/pin digits must be positive")
	}
	if c.ATM.CashBin.AvailableMoney < 0 {
		return fmt.Errorf("cash bin available money must not be negative")
	}
	for _, card := range c.Backend.Cards {
		if !domain.IsValidNumber(card.Number, c.ATM.CardNumberDigits) {
			return fmt.Errorf("seed card %s does not match %d digits", domain.MaskCardNumber(card.Number), c.ATM.CardNumberDigits)
		}
		if !domain.IsValidNumber(card.Pin, c.ATM.PinNumberDigits) {
			return fmt.Errorf("seed card %s has a malformed pin", domain.MaskCardNumber(card.Number))
		}
	}
	return nil
}
