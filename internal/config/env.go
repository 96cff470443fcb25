package config

import "os"

// Environment variable names. The SHAREPOINT_* names match the companion
// auth server's deployment environment so one .env serves both processes.
const (
	EnvConfig       = "SPDRIVE_CONFIG"
	EnvTokenPath    = "SPDRIVE_TOKEN_PATH"
	EnvSiteURL      = "SHAREPOINT_SITE_URL"
	EnvSiteID       = "SHAREPOINT_SITE_ID"
	EnvDriveID      = "SHAREPOINT_DRIVE_ID"
	EnvDocLibrary   = "SHAREPOINT_DOC_LIBRARY"
	EnvClientID     = "SHAREPOINT_CLIENT_ID"
	EnvClientSecret = "SHAREPOINT_CLIENT_SECRET"
	EnvTenantID     = "SHAREPOINT_TENANT_ID"
)

// EnvOverrides holds values read from environment variables.
type EnvOverrides struct {
	ConfigPath   string
	TokenPath    string
	SiteURL      string
	SiteID       string
	DriveID      string
	DocLibrary   string
	ClientID     string
	ClientSecret string
	TenantID     string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		TokenPath:    os.Getenv(EnvTokenPath),
		SiteURL:      os.Getenv(EnvSiteURL),
		SiteID:       os.Getenv(EnvSiteID),
		DriveID:      os.Getenv(EnvDriveID),
		DocLibrary:   os.Getenv(EnvDocLibrary),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		TenantID:     os.Getenv(EnvTenantID),
	}
}

// applyEnvOverrides writes non-empty override values into cfg.
// Environment beats the config file but loses to CLI flags.
func applyEnvOverrides(cfg *Config, env EnvOverrides) {
	if env.TokenPath != "" {
		cfg.Auth.TokenPath = env.TokenPath
	}

	if env.SiteURL != "" {
		cfg.SharePoint.SiteURL = env.SiteURL
	}

	if env.SiteID != "" {
		cfg.SharePoint.SiteID = env.SiteID
	}

	if env.DriveID != "" {
		cfg.SharePoint.DriveID = env.DriveID
	}

	if env.DocLibrary != "" {
		cfg.SharePoint.DocLibrary = env.DocLibrary
	}

	if env.ClientID != "" {
		cfg.Auth.ClientID = env.ClientID
	}

	if env.ClientSecret != "" {
		cfg.Auth.ClientSecret = env.ClientSecret
	}

	if env.TenantID != "" {
		cfg.Auth.TenantID = env.TenantID
	}
}
