package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Placeholder values shipped in the sample .env. A run must refuse to start
// while any of them is still in place.
const (
	PlaceholderUsername = "your_portal_username"
	PlaceholderPassword = "your_portal_password"
	PlaceholderFolderID = "your_drive_folder_id"
)

// Config holds pipeline configuration.
type Config struct {
	PortalLoginURL  string
	OrdersURL       string
	Username        string
	Password        string
	ProfileDir      string
	ScreenshotDir   string
	LedgerPath      string
	DriveFolderID   string
	CredentialsFile string
	TokenFile       string
	CaptureMode     string // full or viewport
	NavTimeout      time.Duration
	UserAgent       string
	DebugAddr       string
	MetricsAddr     string
	Verbose         bool
}

// DefaultConfig returns defaults matching the seller-portal workflow.
func DefaultConfig() *Config {
	return &Config{
		PortalLoginURL:  "https://accounts.shopee.co.id/seller/login?next=https%3A%2F%2Fseller.shopee.co.id%2F",
		OrdersURL:       "https://seller.shopee.co.id/portal/sale/order?type=toship&source=processed&sort_by=confirmed_date_asc",
		Username:        PlaceholderUsername,
		Password:        PlaceholderPassword,
		ProfileDir:      "browser_data",
		ScreenshotDir:   "screenshots",
		LedgerPath:      "evidence_report.xlsx",
		DriveFolderID:   PlaceholderFolderID,
		CredentialsFile: "credentials.json",
		TokenFile:       "token.json",
		CaptureMode:     "viewport",
		NavTimeout:      30 * time.Second,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		DebugAddr:       "127.0.0.1:9222",
		MetricsAddr:     "",
		Verbose:         false,
	}
}

// Validate ensures all configuration values are coherent. Placeholder
// credentials fail here, before any browser session is opened.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"portal login URL": c.PortalLoginURL,
		"orders URL":       c.OrdersURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("%s must include a host", name)
		}
	}

	if strings.TrimSpace(c.Username) == "" || c.Username == PlaceholderUsername {
		return fmt.Errorf("portal username not configured")
	}
	if strings.TrimSpace(c.Password) == "" || c.Password == PlaceholderPassword {
		return fmt.Errorf("portal password not configured")
	}
	if strings.TrimSpace(c.DriveFolderID) == "" || c.DriveFolderID == PlaceholderFolderID {
		return fmt.Errorf("drive folder id not configured")
	}

	if c.ProfileDir == "" {
		return fmt.Errorf("profile directory cannot be empty")
	}
	if c.ScreenshotDir == "" {
		return fmt.Errorf("screenshot directory cannot be empty")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger path cannot be empty")
	}
	if c.CredentialsFile == "" {
		return fmt.Errorf("credentials file cannot be empty")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token file cannot be empty")
	}
	if c.CaptureMode != "full" && c.CaptureMode != "viewport" {
		return fmt.Errorf("capture mode must be full or viewport")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
