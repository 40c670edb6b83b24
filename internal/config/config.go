// Package config berisi pembacaan konfigurasi layanan SISURAT.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// SMTP berisi parameter server surel.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM"`
}

// Enabled melaporkan apakah pengiriman surel dikonfigurasi.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// WhatsApp berisi parameter gateway WhatsApp.
type WhatsApp struct {
	GatewayURL string `env:"WHATSAPP_GATEWAY_URL"`
	Token      string `env:"WHATSAPP_TOKEN"`
}

// Enabled melaporkan apakah gateway WhatsApp dikonfigurasi.
func (w WhatsApp) Enabled() bool {
	return w.GatewayURL != ""
}

// Admin berisi akun SUPERADMIN yang dipastikan ada saat start.
type Admin struct {
	Username string `env:"ADMIN_USERNAME" envDefault:"superadmin"`
	Password string `env:"ADMIN_PASSWORD"`
	Email    string `env:"ADMIN_EMAIL"`
}

// Kelurahan berisi data kop surat.
type Kelurahan struct {
	Nama      string `env:"KELURAHAN_NAMA" envDefault:"Kelurahan"`
	Kecamatan string `env:"KECAMATAN_NAMA"`
	Kota      string `env:"KOTA_NAMA"`
	Alamat    string `env:"KELURAHAN_ALAMAT"`
	NamaLurah string `env:"LURAH_NAMA"`
}

// Config berisi parameter konfigurasi layanan SISURAT.
type Config struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTTTL         time.Duration `env:"JWT_TTL" envDefault:"24h"`
	CookieSecure   bool          `env:"COOKIE_SECURE"`
	NotifyInterval time.Duration `env:"NOTIFY_INTERVAL" envDefault:"10s"`

	SMTP      SMTP
	WhatsApp  WhatsApp
	Admin     Admin
	Kelurahan Kelurahan
}

// Parse membaca konfigurasi dari file .env, variabel lingkungan, dan flag
// baris perintah. Variabel lingkungan mengalahkan flag.
func Parse() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "JWT signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate memeriksa nilai wajib dan rentang konfigurasi.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.NotifyInterval <= 0 {
		return fmt.Errorf("NOTIFY_INTERVAL must be positive, got %s", c.NotifyInterval)
	}
	if c.SMTP.Host != "" && c.SMTP.Port <= 0 {
		return fmt.Errorf("SMTP_PORT must be a positive integer")
	}
	return nil
}
