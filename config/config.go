package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del arcade.
type Config struct {
	Arcade  ArcadeConfig  `yaml:"arcade"`
	Chart   ChartConfig   `yaml:"chart"`
	API     APIConfig     `yaml:"api"`
	Feed    FeedConfig    `yaml:"feed"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ArcadeConfig controla la sesión de apuestas.
type ArcadeConfig struct {
	Wallet       string  `yaml:"wallet"`
	Market       string  `yaml:"market"`   // asset de las ventanas up/down, p.ej. "btc"
	BankrollUSDC float64 `yaml:"bankroll_usdc"`
	BetUSDC      float64 `yaml:"bet_usdc"` // tamaño fijo por apuesta
	MaxBets      int     `yaml:"max_bets"` // apuestas vivas simultáneas
	Compact      bool    `yaml:"compact"`  // modo compacto: menos items y output
}

// ChartConfig es la geometría del área de juego.
type ChartConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	HeaderOffset float64 `yaml:"header_offset"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	GammaBase string `yaml:"gamma_base"`
}

// FeedConfig controla el stream de precios.
type FeedConfig struct {
	URL           string `yaml:"url"`    // base del websocket; vacío → producción
	Symbol        string `yaml:"symbol"` // p.ej. "btcusdt"
	FrameMillis   int    `yaml:"frame_millis"`
	WindowSeconds int    `yaml:"window_seconds"` // histórico visible
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// FrameInterval devuelve la cadencia de frames como time.Duration.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Feed.FrameMillis) * time.Millisecond
}

// FeedWindow devuelve la ventana del histórico de precios.
func (c *Config) FeedWindow() time.Duration {
	return time.Duration(c.Feed.WindowSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARCADE_WALLET"); v != "" {
		cfg.Arcade.Wallet = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Arcade.Market == "" {
		cfg.Arcade.Market = "btc"
	}
	if cfg.Arcade.BankrollUSDC <= 0 {
		cfg.Arcade.BankrollUSDC = 100
	}
	if cfg.Arcade.BetUSDC <= 0 {
		cfg.Arcade.BetUSDC = 10
	}
	if cfg.Chart.Width <= 0 {
		cfg.Chart.Width = 400
	}
	if cfg.Chart.Height <= 0 {
		cfg.Chart.Height = 300
	}
	if cfg.Chart.HeaderOffset < 0 {
		cfg.Chart.HeaderOffset = 0
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Feed.Symbol == "" {
		cfg.Feed.Symbol = cfg.Arcade.Market + "usdt"
	}
	if cfg.Feed.FrameMillis <= 0 {
		cfg.Feed.FrameMillis = 50
	}
	if cfg.Feed.WindowSeconds <= 0 {
		cfg.Feed.WindowSeconds = 60
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polyarcade.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
