package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultCron runs the health pass every day at midnight
const DefaultCron = "0 0 0 * * ?"

// Config is the complete monitor configuration
type Config struct {
	Site       SiteConfig        `mapstructure:"site"`
	Monitor    MonitorConfig     `mapstructure:"monitor"`
	Checker    CheckerConfig     `mapstructure:"checker"`
	Links      []LinkConfig      `mapstructure:"links"`
	LinkGroups []LinkGroupConfig `mapstructure:"link_groups"`
	Store      StoreConfig       `mapstructure:"store"`
	HTTP       HTTPConfig        `mapstructure:"http"`
	NATS       NATSConfig        `mapstructure:"nats"`
	Plugin     PluginConfig      `mapstructure:"plugin"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// SiteConfig describes our own site
type SiteConfig struct {
	ExternalURL string `mapstructure:"external_url"`
}

// MonitorConfig holds the settings a console user edits on the settings tab
type MonitorConfig struct {
	CustomizedCronEnable    bool     `mapstructure:"customized_cron_enable"`
	CustomizedCron          string   `mapstructure:"customized_cron"`
	NotRequiredMonitorLinks []string `mapstructure:"not_required_monitor_links"`
	FriendLinkRoutes        []string `mapstructure:"friend_link_routes"`
	Timezone                string   `mapstructure:"timezone"`
	Concurrency             int      `mapstructure:"concurrency"`
	RunOnStart              bool     `mapstructure:"run_on_start"`
}

// CheckerConfig tunes the outbound HTTP checks
type CheckerConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LinkConfig is one friend link entry
type LinkConfig struct {
	Name        string            `mapstructure:"name"`
	URL         string            `mapstructure:"url"`
	DisplayName string            `mapstructure:"display_name"`
	Logo        string            `mapstructure:"logo"`
	GroupName   string            `mapstructure:"group_name"`
	Annotations map[string]string `mapstructure:"annotations"`
	Deleted     bool              `mapstructure:"deleted"`
}

// LinkGroupConfig names a group of links
type LinkGroupConfig struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
}

// StoreConfig configures result persistence
type StoreConfig struct {
	Path      string `mapstructure:"path"`
	Retention int    `mapstructure:"retention"`
}

// HTTPConfig configures the API listener
type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// NATSConfig configures the optional NATS transport
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URLs          []string      `mapstructure:"urls"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Auth          AuthConfig    `mapstructure:"auth"`
	TLS           TLSConfig     `mapstructure:"tls"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	DrainTimeout  time.Duration `mapstructure:"drain_timeout"`
}

// AuthConfig selects NATS authentication
type AuthConfig struct {
	Type       string           `mapstructure:"type"` // none, token, userpass, creds, pocketbase
	Token      string           `mapstructure:"token"`
	Username   string           `mapstructure:"username"`
	Password   string           `mapstructure:"password"`
	CredsFile  string           `mapstructure:"creds_file"`
	PocketBase PocketBaseConfig `mapstructure:"pocketbase"`
}

// PocketBaseConfig locates the monitor's NATS credentials record in PocketBase
type PocketBaseConfig struct {
	URL            string `mapstructure:"url"`
	AuthCollection string `mapstructure:"auth_collection"`
	Identity       string `mapstructure:"identity"`
	PasswordEnv    string `mapstructure:"password_env"`
	Collection     string `mapstructure:"collection"`
	InstanceField  string `mapstructure:"instance_field"`
	InstanceID     string `mapstructure:"instance_id"`
	CredsField     string `mapstructure:"creds_field"`
}

// TLSConfig configures NATS TLS
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// PluginConfig selects the console descriptor revision
type PluginConfig struct {
	Revision string `mapstructure:"revision"`
}

// LoggingConfig configures zap and log rotation
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads the configuration file at path, applies defaults and environment
// overrides (LHM_ prefix), and validates the result
func Load(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return decode(v)
}

// Watch reloads the configuration whenever the file changes and hands every
// valid revision to onChange. Invalid edits are reported to onError and skipped.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("LHM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every default value
func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.customized_cron_enable", false)
	v.SetDefault("monitor.customized_cron", "")
	v.SetDefault("monitor.timezone", "Asia/Shanghai")
	v.SetDefault("monitor.concurrency", 4)
	v.SetDefault("monitor.run_on_start", false)

	v.SetDefault("checker.timeout", 10*time.Second)
	v.SetDefault("checker.user_agent", "Mozilla/5.0 (compatible; LinksHealthMonitor/1.0)")

	v.SetDefault("store.retention", 30)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.listen", ":8099")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("nats.subject_prefix", "links-health")
	v.SetDefault("nats.auth.type", "none")
	v.SetDefault("nats.auth.pocketbase.auth_collection", "users")
	v.SetDefault("nats.auth.pocketbase.password_env", "LHM_POCKETBASE_PASSWORD")
	v.SetDefault("nats.auth.pocketbase.collection", "nats_credentials")
	v.SetDefault("nats.auth.pocketbase.instance_field", "instance_id")
	v.SetDefault("nats.auth.pocketbase.creds_field", "creds")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.drain_timeout", 30*time.Second)

	v.SetDefault("plugin.revision", "B")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)

	UpdateConfigDefaults(v)
}

var (
	subjectTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	linkNamePattern     = regexp.MustCompile(`^[^\s]+$`)
)

// validate returns the first configuration problem found
func validate(cfg *Config) error {
	if cfg.Site.ExternalURL != "" {
		u, err := url.Parse(cfg.Site.ExternalURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("site.external_url must be an absolute http(s) URL: %q", cfg.Site.ExternalURL)
		}
	}

	if _, err := time.LoadLocation(cfg.Monitor.Timezone); err != nil {
		return fmt.Errorf("monitor.timezone is not a known zone: %q", cfg.Monitor.Timezone)
	}

	if cfg.Monitor.Concurrency < 1 || cfg.Monitor.Concurrency > 64 {
		return fmt.Errorf("monitor.concurrency must be between 1 and 64, got %d", cfg.Monitor.Concurrency)
	}

	if cfg.Checker.Timeout < time.Second {
		return fmt.Errorf("checker.timeout must be at least 1 second")
	}
	if cfg.Checker.Timeout > 2*time.Minute {
		return fmt.Errorf("checker.timeout must not exceed 2 minutes")
	}

	if err := validateLinks(cfg); err != nil {
		return err
	}

	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if cfg.Store.Retention < 1 {
		return fmt.Errorf("store.retention must be at least 1")
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Listen == "" {
		return fmt.Errorf("http.listen is required when http is enabled")
	}

	if cfg.NATS.Enabled {
		if err := validateNATS(&cfg.NATS); err != nil {
			return err
		}
	}

	switch cfg.Plugin.Revision {
	case "A", "B":
	default:
		return fmt.Errorf("plugin.revision must be A or B, got %q", cfg.Plugin.Revision)
	}

	if cfg.Logging.File == "" {
		return fmt.Errorf("logging.file is required")
	}
	if cfg.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be at least 1")
	}

	return nil
}

func validateLinks(cfg *Config) error {
	names := make(map[string]bool, len(cfg.Links))
	for i, l := range cfg.Links {
		if l.Name == "" {
			return fmt.Errorf("links[%d].name is required", i)
		}
		if !linkNamePattern.MatchString(l.Name) {
			return fmt.Errorf("links[%d].name must not contain whitespace", i)
		}
		if names[l.Name] {
			return fmt.Errorf("links[%d].name %q is duplicated", i, l.Name)
		}
		names[l.Name] = true
	}

	groups := make(map[string]bool, len(cfg.LinkGroups))
	for i, g := range cfg.LinkGroups {
		if g.Name == "" {
			return fmt.Errorf("link_groups[%d].name is required", i)
		}
		if groups[g.Name] {
			return fmt.Errorf("link_groups[%d].name %q is duplicated", i, g.Name)
		}
		groups[g.Name] = true
	}

	return nil
}

func validateNATS(cfg *NATSConfig) error {
	if len(cfg.URLs) == 0 {
		return fmt.Errorf("nats.urls must contain at least one server")
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		return fmt.Errorf("nats.subject_prefix is required")
	}
	if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("nats.subject_prefix cannot start or end with a dot")
	}
	for _, token := range strings.Split(prefix, ".") {
		if token == "" {
			return fmt.Errorf("nats.subject_prefix: consecutive dots not allowed")
		}
		if !subjectTokenPattern.MatchString(token) {
			return fmt.Errorf("nats.subject_prefix token %q contains invalid characters", token)
		}
	}

	switch cfg.Auth.Type {
	case "none":
	case "token":
		if cfg.Auth.Token == "" {
			return fmt.Errorf("nats.auth.token is required for token auth")
		}
	case "userpass":
		if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
			return fmt.Errorf("nats.auth.username and password are required for userpass auth")
		}
	case "creds":
		if cfg.Auth.CredsFile == "" {
			return fmt.Errorf("nats.auth.creds_file is required for creds auth")
		}
	case "pocketbase":
		pb := cfg.Auth.PocketBase
		if cfg.Auth.CredsFile == "" {
			return fmt.Errorf("nats.auth.creds_file is required for pocketbase auth")
		}
		if pb.URL == "" || pb.Identity == "" || pb.InstanceID == "" {
			return fmt.Errorf("nats.auth.pocketbase url, identity and instance_id are required")
		}
		if pb.Collection == "" || pb.InstanceField == "" || pb.CredsField == "" || pb.PasswordEnv == "" {
			return fmt.Errorf("nats.auth.pocketbase collection, instance_field, creds_field and password_env are required")
		}
	default:
		return fmt.Errorf("nats.auth.type must be one of none, token, userpass, creds, pocketbase, got %q", cfg.Auth.Type)
	}

	if cfg.TLS.Enabled && (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return fmt.Errorf("nats.tls cert_file and key_file must be set together")
	}

	return nil
}
