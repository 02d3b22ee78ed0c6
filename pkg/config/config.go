// Package config loads the watcher configuration from config.yml, .env files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"CatalogWatcher/internal/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is given.
const DefaultPath = "config.yml"

var (
	// ErrMissingSource is returned when no catalog source or product page is configured.
	ErrMissingSource = errors.New("no catalog sources or product pages configured")
	// ErrInvalid wraps every other validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// ScraperConfig holds general scraper settings.
type ScraperConfig struct {
	Workers   string        `yaml:"workers" env:"SCRAPER_WORKERS"`
	Headless  bool          `yaml:"headless" env:"SCRAPER_HEADLESS"`
	UserAgent string        `yaml:"user_agent" env:"SCRAPER_USER_AGENT"`
	Timeout   time.Duration `yaml:"timeout" env:"SCRAPER_TIMEOUT"`
	// Delay is the pause between category page requests within one worker.
	Delay time.Duration `yaml:"delay" env:"SCRAPER_DELAY"`
}

// CatalogSelectors are the CSS selectors used to read a category grid.
type CatalogSelectors struct {
	NavLinks string `yaml:"nav_links"`
	NavMatch string `yaml:"nav_match"`
	List     string `yaml:"list"`
	Item     string `yaml:"item"`
	Name     string `yaml:"name"`
	Link     string `yaml:"link"`
	Price    string `yaml:"price"`
	SoldOut  string `yaml:"sold_out"`
	NextPage string `yaml:"next_page"`
}

// CategoryConfig is a category page listed explicitly instead of discovered.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// CatalogSource is a storefront whose category grids are scraped.
type CatalogSource struct {
	Name       string           `yaml:"name"`
	BaseURL    string           `yaml:"base_url"`
	Discover   bool             `yaml:"discover"`
	MaxPages   int              `yaml:"max_pages"`
	Categories []CategoryConfig `yaml:"categories"`
	Selectors  CatalogSelectors `yaml:"selectors"`
}

// ProductSelectors describe where stock state lives on a single product page.
type ProductSelectors struct {
	Title        string   `yaml:"title"`
	IgnoreTitles []string `yaml:"ignore_titles"`
	Price        string   `yaml:"price"`
	Button       string   `yaml:"button"`
}

// ProductPage is a single product page rendered in a headless browser.
type ProductPage struct {
	Name      string           `yaml:"name"`
	URL       string           `yaml:"url"`
	Category  string           `yaml:"category"`
	Selectors ProductSelectors `yaml:"selectors"`
}

// SnapshotConfig selects the snapshot backend and the carry-forward policy.
type SnapshotConfig struct {
	Driver string `yaml:"driver" env:"SNAPSHOT_DRIVER"`
	Path   string `yaml:"path" env:"SNAPSHOT_PATH"`
	Policy string `yaml:"policy" env:"SNAPSHOT_POLICY"`
}

// ExportConfig holds the file sinks.
type ExportConfig struct {
	CSVPath   string `yaml:"csv_path" env:"EXPORT_CSV_PATH"`
	StatusLog string `yaml:"status_log" env:"EXPORT_STATUS_LOG"`
}

// PushoverConfig holds the notification credentials.
type PushoverConfig struct {
	AppToken  string        `yaml:"app_token" env:"APP_TOKEN"`
	UserToken string        `yaml:"user_token" env:"USER_TOKEN"`
	APIURL    string        `yaml:"api_url" env:"PUSHOVER_API_URL"`
	URLTitle  string        `yaml:"url_title"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Enabled reports whether both credentials are present.
func (p PushoverConfig) Enabled() bool {
	return p.AppToken != "" && p.UserToken != ""
}

// ServerConfig holds the snapshot API settings.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"SERVER_ADDR"`
}

// ScheduleConfig holds the watch loop schedule.
type ScheduleConfig struct {
	Cron string `yaml:"cron" env:"SCHEDULE_CRON"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Log      logger.Config   `yaml:"log"`
	Scraper  ScraperConfig   `yaml:"scraper"`
	Catalogs []CatalogSource `yaml:"catalogs"`
	Products []ProductPage   `yaml:"products"`
	Snapshot SnapshotConfig  `yaml:"snapshot"`
	Export   ExportConfig    `yaml:"export"`
	Pushover PushoverConfig  `yaml:"pushover"`
	Server   ServerConfig    `yaml:"server"`
	Schedule ScheduleConfig  `yaml:"schedule"`
}

// Path returns CONFIG_PATH when set, otherwise fallback.
func Path(fallback string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return fallback
}

// Load reads .env files, the YAML file at path and env overrides, then
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// godotenv never overrides variables already present in the environment.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Scraper.Workers == "" {
		c.Scraper.Workers = "auto"
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if c.Scraper.Timeout == 0 {
		c.Scraper.Timeout = 15 * time.Second
	}
	for i := range c.Catalogs {
		c.Catalogs[i].Selectors.setDefaults()
		if c.Catalogs[i].Name == "" {
			c.Catalogs[i].Name = c.Catalogs[i].BaseURL
		}
		if c.Catalogs[i].MaxPages <= 0 {
			c.Catalogs[i].MaxPages = 20
		}
	}
	for i := range c.Products {
		c.Products[i].Selectors.setDefaults()
		if c.Products[i].Name == "" {
			c.Products[i].Name = c.Products[i].URL
		}
	}
	if c.Snapshot.Driver == "" {
		c.Snapshot.Driver = "json"
	}
	if c.Snapshot.Path == "" {
		if c.Snapshot.Driver == "sqlite" {
			c.Snapshot.Path = "product_database.db"
		} else {
			c.Snapshot.Path = "product_database.json"
		}
	}
	if c.Snapshot.Policy == "" {
		c.Snapshot.Policy = "retain"
	}
	if c.Export.CSVPath == "" {
		c.Export.CSVPath = "new_products.csv"
	}
	if c.Export.StatusLog == "" && len(c.Products) > 0 {
		c.Export.StatusLog = "stock_log.txt"
	}
	if c.Pushover.APIURL == "" {
		c.Pushover.APIURL = "https://api.pushover.net/1/messages.json"
	}
	if c.Pushover.URLTitle == "" {
		c.Pushover.URLTitle = "View Product Page"
	}
	if c.Pushover.Timeout == 0 {
		c.Pushover.Timeout = 10 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "*/30 * * * *"
	}
}

func (s *CatalogSelectors) setDefaults() {
	if s.NavLinks == "" {
		s.NavLinks = "ul#nav > li > a"
	}
	if s.NavMatch == "" {
		s.NavMatch = "/collections/"
	}
	if s.List == "" {
		s.List = "ul#product-loop"
	}
	if s.Item == "" {
		s.Item = "li.product"
	}
	if s.Name == "" {
		s.Name = "h3"
	}
	if s.Link == "" {
		s.Link = "a"
	}
	if s.Price == "" {
		s.Price = "div.price"
	}
	if s.SoldOut == "" {
		s.SoldOut = "div.so"
	}
}

func (s *ProductSelectors) setDefaults() {
	if s.Title == "" {
		s.Title = "h1"
	}
	if s.Button == "" {
		s.Button = "button[x-ref='submitButton']"
	}
}

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if len(c.Catalogs) == 0 && len(c.Products) == 0 {
		return ErrMissingSource
	}

	var problems []string
	for i, src := range c.Catalogs {
		if src.BaseURL == "" && len(src.Categories) == 0 {
			problems = append(problems, fmt.Sprintf("catalogs[%d]: base_url or categories required", i))
		}
		if src.Discover && src.BaseURL == "" {
			problems = append(problems, fmt.Sprintf("catalogs[%d]: discover needs base_url", i))
		}
		for j, cat := range src.Categories {
			if cat.URL == "" {
				problems = append(problems, fmt.Sprintf("catalogs[%d].categories[%d]: url required", i, j))
			}
		}
	}
	for i, p := range c.Products {
		if p.URL == "" {
			problems = append(problems, fmt.Sprintf("products[%d]: url required", i))
		}
	}
	switch c.Snapshot.Driver {
	case "json", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("snapshot.driver %q: want json or sqlite", c.Snapshot.Driver))
	}
	switch c.Snapshot.Policy {
	case "retain", "rebuild":
	default:
		problems = append(problems, fmt.Sprintf("snapshot.policy %q: want retain or rebuild", c.Snapshot.Policy))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
