package auth

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read by LoadConfig
const (
	EnvSigningKey     = "JOBBOARD_AUTH_SIGNING_KEY"
	EnvIssuer         = "JOBBOARD_AUTH_ISSUER"
	EnvAudience       = "JOBBOARD_AUTH_AUDIENCE"
	EnvCookieName     = "JOBBOARD_AUTH_COOKIE_NAME"
	EnvAuthScheme     = "JOBBOARD_AUTH_SCHEME"
	EnvEnvironment    = "JOBBOARD_ENV"
	EnvDatabaseDriver = "JOBBOARD_DB_DRIVER"
	EnvDatabaseDSN    = "JOBBOARD_DB_DSN"
	EnvListenAddr     = "JOBBOARD_LISTEN_ADDR"
)

// EnvironmentProduction turns on Secure cookies
const EnvironmentProduction = "production"

// Options is the concrete Config. It is built once at startup and only read
// afterwards.
type Options struct {
	SigningKey     string   `json:"signing_key"`
	Issuer         string   `json:"issuer"`
	Audience       []string `json:"audience"`
	CookieName     string   `json:"cookie_name"`
	AuthScheme     string   `json:"auth_scheme"`
	Environment    string   `json:"environment"`
	DatabaseDriver string   `json:"database_driver"`
	DatabaseDSN    string   `json:"database_dsn"`
	ListenAddr     string   `json:"listen_addr"`
}

var _ Config = Options{}

func (o Options) GetSigningKey() string  { return o.SigningKey }
func (o Options) GetIssuer() string      { return o.Issuer }
func (o Options) GetAudience() []string  { return o.Audience }
func (o Options) GetCookieName() string  { return o.CookieName }
func (o Options) GetAuthScheme() string  { return o.AuthScheme }
func (o Options) GetEnvironment() string { return o.Environment }

// IsProduction reports whether cookies must be marked Secure
func (o Options) IsProduction() bool {
	return strings.EqualFold(o.Environment, EnvironmentProduction)
}

// Validate returns ErrConfiguration when a required setting is missing
func (o Options) Validate() error {
	if strings.TrimSpace(o.SigningKey) == "" {
		return configurationError("signing_key")
	}
	return nil
}

// LoadConfig reads optional dotenv files and then the process environment.
// Values already present in the environment win over dotenv files.
func LoadConfig(dotenvFiles ...string) (Options, error) {
	if len(dotenvFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			dotenvFiles = []string{".env"}
		}
	}
	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil {
			return Options{}, kindOf(ErrConfiguration, map[string]any{"dotenv": err.Error()})
		}
	}

	opts := Options{
		SigningKey:     os.Getenv(EnvSigningKey),
		Issuer:         getEnv(EnvIssuer, "jobboard"),
		Audience:       getEnvSlice(EnvAudience, nil),
		CookieName:     getEnv(EnvCookieName, DefaultCookieName),
		AuthScheme:     getEnv(EnvAuthScheme, DefaultAuthScheme),
		Environment:    getEnv(EnvEnvironment, "development"),
		DatabaseDriver: getEnv(EnvDatabaseDriver, "sqlite"),
		DatabaseDSN:    getEnv(EnvDatabaseDSN, "file:jobboard_audit.db?cache=shared"),
		ListenAddr:     getEnv(EnvListenAddr, ":8080"),
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}

	return opts, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
