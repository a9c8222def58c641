package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DSN           string
	JWTSecret     string
	AppPort       string
	ProvidersFile string
	AdminEmail    string
	AdminPassword string
}

// OneDriveApp holds the default OAuth application registration used when a
// storage source does not carry its own credentials.
type OneDriveApp struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	Scope        string `yaml:"scope"`
}

// Providers is the optional providers.yml file with per-provider defaults.
type Providers struct {
	OneDrive      OneDriveApp `yaml:"onedrive"`
	OneDriveChina OneDriveApp `yaml:"onedrive_china"`
}

func Load() Config {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	} else {
		log.Println("✅ .env file loaded successfully!")
	}

	cfg := Config{
		DSN:           os.Getenv("MYSQL_DSN"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AppPort:       os.Getenv("APP_PORT"),
		ProvidersFile: os.Getenv("PROVIDERS_FILE"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.DSN == "" {
		log.Fatal("❌ MYSQL_DSN not set in environment")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-only"
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.ProvidersFile == "" {
		cfg.ProvidersFile = "providers.yml"
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "admin@localhost"
	}

	return cfg
}

// LoadProviders reads the providers file. A missing file is not an error;
// sources then have to carry their own credentials.
func LoadProviders(path string) Providers {
	var p Providers
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ providers file %s not found, provider defaults disabled", path)
		return p
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		log.Fatalf("❌ Failed to parse %s: %v", path, err)
	}
	log.Printf("✅ Provider defaults loaded from %s", path)
	return p
}
