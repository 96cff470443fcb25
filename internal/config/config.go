// Package config implements TOML configuration loading, environment
// overrides, and platform path resolution for spdrive. The override chain
// is defaults -> config file -> environment -> CLI flags, with CLI flags
// always winning.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	SharePoint SharePointConfig `toml:"sharepoint"`
	Auth       AuthConfig       `toml:"auth"`
	Limits     LimitsConfig     `toml:"limits"`
	Logging    LoggingConfig    `toml:"logging"`
	Network    NetworkConfig    `toml:"network"`
}

// SharePointConfig identifies the site and document library to operate on.
// When site_id or drive_id are set, runtime discovery via the Graph API is
// skipped for that identifier.
type SharePointConfig struct {
	SiteURL    string `toml:"site_url"`
	SiteID     string `toml:"site_id"`
	DriveID    string `toml:"drive_id"`
	DocLibrary string `toml:"doc_library"`
}

// AuthConfig holds the Azure AD application registration and token storage
// settings. ClientSecret is required for the authorization-code grant —
// spdrive registers as a confidential client, matching the companion auth
// server deployment.
type AuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TenantID     string   `toml:"tenant_id"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
	TokenPath    string   `toml:"token_path"`
}

// LimitsConfig holds pagination and traversal bounds.
type LimitsConfig struct {
	PageSize           int `toml:"page_size"`
	MaxResults         int `toml:"max_results"`
	MaxTreeDepth       int `toml:"max_tree_depth"`
	MaxFoldersPerLevel int `toml:"max_folders_per_level"`
	TreeFanout         int `toml:"tree_fanout"`
}

// LoggingConfig controls log output: level and format.
// Format "auto" picks text on a terminal and JSON otherwise.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	GraphEndpoint  string `toml:"graph_endpoint"`
}

// Defaults mirrored from the Graph API limits for drive item collections.
const (
	defaultPageSize           = 100
	defaultMaxResults         = 200
	defaultMaxTreeDepth       = 15
	defaultMaxFoldersPerLevel = 100
	defaultTreeFanout         = 8
	defaultTimeoutSeconds     = 30
)

// DefaultGraphEndpoint is the Microsoft Graph v1.0 base URL.
const DefaultGraphEndpoint = "https://graph.microsoft.com/v1.0"

// DefaultRedirectURI matches the companion auth server's callback route.
const DefaultRedirectURI = "http://localhost:3334/auth/callback"

// DefaultDocLibrary is the standard SharePoint document library name.
const DefaultDocLibrary = "Shared Documents"

// DefaultScopes requested during the authorization-code grant.
// offline_access is implied by the v2.0 endpoint when a refresh token is
// requested via the scope set below.
var DefaultScopes = []string{
	"Sites.Read.All",
	"Sites.ReadWrite.All",
	"Files.Read.All",
	"Files.ReadWrite.All",
	"offline_access",
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		SharePoint: SharePointConfig{
			DocLibrary: DefaultDocLibrary,
		},
		Auth: AuthConfig{
			RedirectURI: DefaultRedirectURI,
			Scopes:      append([]string(nil), DefaultScopes...),
			TokenPath:   DefaultTokenPath(),
		},
		Limits: LimitsConfig{
			PageSize:           defaultPageSize,
			MaxResults:         defaultMaxResults,
			MaxTreeDepth:       defaultMaxTreeDepth,
			MaxFoldersPerLevel: defaultMaxFoldersPerLevel,
			TreeFanout:         defaultTreeFanout,
		},
		Logging: LoggingConfig{
			LogLevel:  "info",
			LogFormat: "auto",
		},
		Network: NetworkConfig{
			TimeoutSeconds: defaultTimeoutSeconds,
			GraphEndpoint:  DefaultGraphEndpoint,
		},
	}
}
