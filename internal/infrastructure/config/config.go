package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	CredentialSourceStatic = "static"
	CredentialSourceFile   = "file"
	CredentialSourceMongo  = "mongo"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	CSRFProfilePermissive = "permissive"
	CSRFProfileHardened   = "hardened"
)

type Config struct {
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth     Endpoint `env:", prefix=AUTH_"`
	API      Endpoint `env:", prefix=API_"`
	Web      Endpoint `env:", prefix=WEB_"`
	Attacker Endpoint `env:", prefix=ATTACKER_"`

	JWTSecret   string        `env:"JWT_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=1h"`
	TokenIssuer string        `env:"TOKEN_ISSUER, default=secure-coding-auth"`
	// TokenDenylist makes verifiers consult the Redis token denylist.
	TokenDenylist bool `env:"TOKEN_DENYLIST, default=false"`

	// TrustedProxies lists the reverse proxies (CIDRs or bare IPs) whose
	// X-Forwarded-For header is believed. Empty means the peer address is
	// the client address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	PolicyEngine PolicyEngineConfig
	RateLimit    RateLimitConfig
	Credentials  CredentialsConfig
	CSRF         CSRFConfig
	TLS          TLSConfig

	Mongo MongoConfig
	Redis RedisConfig
}

// Endpoint is where one of the services listens and is reached by browsers.
type Endpoint struct {
	Host string `env:"HOST, default=localhost"`
	Port int    `env:"PORT"`
	// Scheme overrides the derived scheme (https when TLS is configured).
	Scheme string `env:"SCHEME"`
}

type PolicyEngineConfig struct {
	URL          string        `env:"POLICY_ENGINE_URL,      default=http://localhost:3592"`
	Timeout      time.Duration `env:"POLICY_TIMEOUT,         default=2s"`
	ResourceKind string        `env:"POLICY_RESOURCE_KIND,   default=assets"`
	ResourceID   string        `env:"POLICY_RESOURCE_ID,     default=31337"`
}

type RateLimitConfig struct {
	Attempts int           `env:"LOGIN_RATE_LIMIT,   default=5"`
	Window   time.Duration `env:"LOGIN_RATE_WINDOW,  default=60s"`
	Backend  string        `env:"RATE_LIMIT_BACKEND, default=memory"`
}

type CredentialsConfig struct {
	Source string `env:"CREDENTIAL_SOURCE, default=static"`
	File   string `env:"CREDENTIAL_FILE"`
	// VerifyWorkers caps concurrent password hash verifications.
	VerifyWorkers int `env:"PASSWORD_VERIFY_WORKERS, default=4"`
}

type CSRFConfig struct {
	Profile  string `env:"CSRF_COOKIE_PROFILE, default=permissive"`
	SameSite string `env:"CSRF_COOKIE_SAMESITE"`
	Secure   *bool  `env:"CSRF_COOKIE_SECURE, noinit"`
	HTTPOnly *bool  `env:"CSRF_COOKIE_HTTPONLY, noinit"`
}

type TLSConfig struct {
	CertFile string `env:"TLS_CERT_FILE"`
	KeyFile  string `env:"TLS_KEY_FILE"`
}

type MongoConfig struct {
	URI        string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database   string `env:"MONGO_DB,  default=secure_coding"`
	Collection string `env:"MONGO_CREDENTIALS_COLLECTION, default=credentials"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaultPorts()
	return &cfg, nil
}

func (c *Config) applyDefaultPorts() {
	for _, d := range []struct {
		ep   *Endpoint
		port int
	}{
		{&c.Auth, 2500},
		{&c.API, 3000},
		{&c.Web, 4000},
		{&c.Attacker, 5000},
	} {
		if d.ep.Port == 0 {
			d.ep.Port = d.port
		}
	}
}

// Validate reports every setting that would make a service unsafe or unable
// to start. needSecret is false for services that neither sign nor verify
// tokens (the attacker site).
func (c *Config) Validate(needSecret bool) error {
	var errs []error
	if needSecret && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.RateLimit.Attempts <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_WINDOW must be positive"))
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND %q is not one of memory, redis", c.RateLimit.Backend))
	}
	switch c.Credentials.Source {
	case CredentialSourceStatic, CredentialSourceMongo:
	case CredentialSourceFile:
		if c.Credentials.File == "" {
			errs = append(errs, errors.New("CREDENTIAL_FILE is required for the file credential source"))
		}
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_SOURCE %q is not one of static, file, mongo", c.Credentials.Source))
	}
	switch c.CSRF.Profile {
	case CSRFProfilePermissive, CSRFProfileHardened:
	default:
		errs = append(errs, fmt.Errorf("CSRF_COOKIE_PROFILE %q is not one of permissive, hardened", c.CSRF.Profile))
	}
	if _, err := ParseSameSite(c.CSRF.SameSite); err != nil {
		errs = append(errs, err)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.PolicyEngine.Timeout <= 0 {
		errs = append(errs, errors.New("POLICY_TIMEOUT must be positive"))
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TrustedProxyNets parses TrustedProxies. A bare IP is a single-host range.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", entry)
			}
			bits := 8 * net.IPv6len
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", entry)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// TLSEnabled reports whether services serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return c.TLS.CertFile != "" && c.TLS.KeyFile != ""
}

func (c *Config) AuthURL() string     { return c.url(c.Auth) }
func (c *Config) APIURL() string      { return c.url(c.API) }
func (c *Config) WebURL() string      { return c.url(c.Web) }
func (c *Config) AttackerURL() string { return c.url(c.Attacker) }

func (c *Config) url(ep Endpoint) string {
	scheme := ep.Scheme
	if scheme == "" {
		scheme = "http"
		if c.TLSEnabled() {
			scheme = "https"
		}
	}
	return scheme + "://" + net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
}

// ListenAddr is the bind address for ep.
func (ep Endpoint) ListenAddr() string {
	return ":" + strconv.Itoa(ep.Port)
}

// ParseSameSite maps the configured SameSite string to its cookie value. An
// empty string means the attribute is not sent.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("CSRF_COOKIE_SAMESITE %q is not one of lax, strict, none", s)
	}
}
