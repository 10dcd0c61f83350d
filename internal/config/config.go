package config

import (
	"context"
	stderrors "errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vango-dev/squid/internal/errors"
)

const (
	// ConfigFileName is the project configuration file.
	ConfigFileName = "squid.json"

	// EnvPrefix prefixes environment overrides, e.g. SQUID_SERVER_PORT.
	EnvPrefix = "SQUID"

	DefaultPort          = 3000
	DefaultHost          = "localhost"
	DefaultModuleTimeout = 5 * time.Second
)

// Config is the squid.json configuration.
type Config struct {
	Name      string          `mapstructure:"name" json:"name,omitempty"`
	Paths     PathsConfig     `mapstructure:"paths" json:"paths"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Build     BuildConfig     `mapstructure:"build" json:"build"`
	Lambda    LambdaConfig    `mapstructure:"lambda" json:"lambda"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" json:"artifacts"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" json:"metrics"`
	Dev       DevConfig       `mapstructure:"dev" json:"dev"`

	// configPath is the file the config was read from.
	configPath string
}

// PathsConfig holds project directories, relative to the project root.
type PathsConfig struct {
	Pages  string `mapstructure:"pages" json:"pages" validate:"required"`
	Lambda string `mapstructure:"lambda" json:"lambda"`
	Output string `mapstructure:"output" json:"output" validate:"required"`
	Static string `mapstructure:"static" json:"static"`
}

// ServerConfig holds HTTP adapter settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" json:"host"`
	Port            int           `mapstructure:"port" json:"port" validate:"min=0,max=65535"`
	ModuleTimeout   time.Duration `mapstructure:"moduleTimeout" json:"moduleTimeout" validate:"min=0"`
	ModuleCacheSize int           `mapstructure:"moduleCacheSize" json:"moduleCacheSize" validate:"min=0"`

	// NotFound is "404" to answer unmatched routes, or "next" to pass them on.
	NotFound string     `mapstructure:"notFound" json:"notFound" validate:"oneof=404 next"`
	CORS     CORSConfig `mapstructure:"cors" json:"cors"`
}

// CORSConfig controls CORS headers on API routes.
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled" json:"enabled"`
	AllowedOrigins []string `mapstructure:"allowedOrigins" json:"allowedOrigins,omitempty"`
	AllowedMethods []string `mapstructure:"allowedMethods" json:"allowedMethods,omitempty"`
	AllowedHeaders []string `mapstructure:"allowedHeaders" json:"allowedHeaders,omitempty"`
	MaxAge         int      `mapstructure:"maxAge" json:"maxAge,omitempty" validate:"min=0"`
}

// BuildConfig holds compiler settings.
type BuildConfig struct {
	// Compiler is the bundler executable, or "copy" to copy sources as is.
	Compiler     string `mapstructure:"compiler" json:"compiler" validate:"required"`
	Minify       bool   `mapstructure:"minify" json:"minify"`
	ConflictMode string `mapstructure:"conflictMode" json:"conflictMode" validate:"oneof=strict first-wins"`
}

// LambdaConfig configures the generated lambda client.
type LambdaConfig struct {
	Gateway     string `mapstructure:"gateway" json:"gateway,omitempty"`
	PackageName string `mapstructure:"packageName" json:"packageName,omitempty"`
}

// ArtifactsConfig selects where compiled modules are read from and published to.
type ArtifactsConfig struct {
	Store    string `mapstructure:"store" json:"store" validate:"oneof=disk s3"`
	Bucket   string `mapstructure:"bucket" json:"bucket,omitempty" validate:"required_if=Store s3"`
	Prefix   string `mapstructure:"prefix" json:"prefix,omitempty"`
	Region   string `mapstructure:"region" json:"region,omitempty"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" validate:"oneof=text json"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path" validate:"startswith=/"`
}

// DevConfig holds dev loop settings.
type DevConfig struct {
	Reload   bool          `mapstructure:"reload" json:"reload"`
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" validate:"min=0"`
}

// setDefaults registers every key so environment overrides apply to it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "")

	v.SetDefault("paths.pages", "src/pages")
	v.SetDefault("paths.lambda", "src/lambda")
	v.SetDefault("paths.output", "build")
	v.SetDefault("paths.static", "public")

	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.moduleTimeout", DefaultModuleTimeout)
	v.SetDefault("server.moduleCacheSize", 256)
	v.SetDefault("server.notFound", "404")
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})
	v.SetDefault("server.cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("server.cors.maxAge", 300)

	v.SetDefault("build.compiler", "esbuild")
	v.SetDefault("build.minify", false)
	v.SetDefault("build.conflictMode", "strict")

	v.SetDefault("lambda.gateway", "")
	v.SetDefault("lambda.packageName", "")

	v.SetDefault("artifacts.store", "disk")
	v.SetDefault("artifacts.bucket", "")
	v.SetDefault("artifacts.prefix", "")
	v.SetDefault("artifacts.region", "us-east-1")
	v.SetDefault("artifacts.endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dev.reload", true)
	v.SetDefault("dev.debounce", 10*time.Millisecond)
}

// flagToKey maps CLI flag names to config keys.
var flagToKey = map[string]string{
	"host":          "server.host",
	"port":          "server.port",
	"pages":         "paths.pages",
	"out":           "paths.output",
	"compiler":      "build.compiler",
	"minify":        "build.minify",
	"conflict-mode": "build.conflictMode",
	"store":         "artifacts.store",
	"bucket":        "artifacts.bucket",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// bindFlags binds explicitly set flags so they override file and env values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagToKey[f.Name]
		if !ok || !f.Changed {
			return
		}
		_ = v.BindPFlag(key, f)
	})
}

// New returns a Config holding only defaults.
func New() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads squid.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName), nil)
}

// LoadFile reads the config at path, applies a .env file next to it,
// environment variables and flags, then validates the result.
// Precedence, highest first: flags, env, file, defaults.
func LoadFile(path string, flags *pflag.FlagSet) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("E232").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path) + ".").
				WithSuggestion("Create " + ConfigFileName + " at the project root, {} is enough.")
		}
		return nil, errors.New("E230").Wrap(err)
	}

	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("E230").WithDetail("Cannot read .env file.").Wrap(err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New("E230").
			Wrap(err).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON.")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("E230").Wrap(err)
	}
	cfg.configPath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and enums.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.New("E231").
				WithDetail(fe.Namespace() + " fails the " + fe.Tag() + " rule.").
				Wrap(err)
		}
		return errors.New("E231").Wrap(err)
	}
	return nil
}

// Path returns the file the config was read from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// PagesPath returns the pages source directory.
func (c *Config) PagesPath() string { return c.abs(c.Paths.Pages) }

// LambdaPath returns the lambda source directory.
func (c *Config) LambdaPath() string { return c.abs(c.Paths.Lambda) }

// StaticPath returns the directory of files served as is.
func (c *Config) StaticPath() string { return c.abs(c.Paths.Static) }

// OutputPath returns the build output directory.
func (c *Config) OutputPath() string { return c.abs(c.Paths.Output) }

// PagesOutputPath returns the directory compiled pages are written to.
func (c *Config) PagesOutputPath() string { return filepath.Join(c.OutputPath(), "pages") }

// LambdaOutputPath returns the directory compiled lambdas are written to.
func (c *Config) LambdaOutputPath() string { return filepath.Join(c.OutputPath(), "lambda") }

// Exists reports whether dir holds a config file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the first directory holding
// squid.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E232").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory.")
		}
		dir = parent
	}
}

// LoadFromWorkingDir finds the project root above the working directory and
// loads its config with flags applied.
func LoadFromWorkingDir(flags *pflag.FlagSet) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return LoadFile(filepath.Join(root, ConfigFileName), flags)
}

type configKey struct{}

// WithContext stores cfg in ctx.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithContext.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, stderrors.New("config not found in context")
	}
	return cfg, nil
}
