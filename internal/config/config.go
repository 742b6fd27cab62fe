package config

// GuardConfig is the root configuration document.
type GuardConfig struct {
	// APIVersion is the configuration schema version.
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`

	// Kind identifies the document type.
	Kind string `yaml:"kind" json:"kind"`

	// Metadata contains document metadata.
	Metadata Metadata `yaml:"metadata" json:"metadata"`

	// Spec contains the configuration specification.
	Spec Spec `yaml:"spec" json:"spec"`
}

// Expected document framing values.
const (
	APIVersion = "grpcguard.io/v1"
	KindGuard  = "Guard"
)

// Metadata contains configuration metadata.
type Metadata struct {
	// Name is the configuration name.
	Name string `yaml:"name" json:"name"`

	// Labels are configuration labels.
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Annotations are configuration annotations.
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Spec is the configuration specification.
type Spec struct {
	// Server configures the gRPC server.
	Server *ServerConfig `yaml:"server,omitempty" json:"server,omitempty"`

	// Auth configures authentication.
	Auth *AuthConfig `yaml:"auth,omitempty" json:"auth,omitempty"`

	// Authorization configures the authorization rule engine.
	Authorization *AuthorizationConfig `yaml:"authorization,omitempty" json:"authorization,omitempty"`

	// RateLimit configures per-method rate limiting.
	RateLimit *RateLimitConfig `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`

	// Observability configures logging, metrics, and tracing.
	Observability *ObservabilityConfig `yaml:"observability,omitempty" json:"observability,omitempty"`
}

// ServerConfig configures the gRPC server.
type ServerConfig struct {
	// Address is the listen address. Supports "host:port", "*:port" for
	// all interfaces, and "unix:/path" or "unix:///path" domain sockets.
	Address string `yaml:"address" json:"address"`

	// MaxConcurrentStreams limits concurrent streams per connection.
	MaxConcurrentStreams uint32 `yaml:"maxConcurrentStreams,omitempty" json:"maxConcurrentStreams,omitempty"`

	// MaxRecvMsgSize is the maximum receivable message size in bytes.
	MaxRecvMsgSize int `yaml:"maxRecvMsgSize,omitempty" json:"maxRecvMsgSize,omitempty"`

	// MaxSendMsgSize is the maximum sendable message size in bytes.
	MaxSendMsgSize int `yaml:"maxSendMsgSize,omitempty" json:"maxSendMsgSize,omitempty"`

	// Keepalive contains keepalive configuration.
	Keepalive *KeepaliveConfig `yaml:"keepalive,omitempty" json:"keepalive,omitempty"`

	// Reflection enables the gRPC reflection service.
	Reflection bool `yaml:"reflection,omitempty" json:"reflection,omitempty"`

	// HealthCheck enables the gRPC health check service.
	HealthCheck bool `yaml:"healthCheck,omitempty" json:"healthCheck,omitempty"`

	// TLS contains TLS configuration.
	TLS *TLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`

	// GracefulTimeout bounds graceful shutdown. Defaults to 30s.
	GracefulTimeout Duration `yaml:"gracefulTimeout,omitempty" json:"gracefulTimeout,omitempty"`
}

// KeepaliveConfig contains gRPC keepalive configuration.
type KeepaliveConfig struct {
	// Time is the idle duration after which the server pings the client.
	Time Duration `yaml:"time,omitempty" json:"time,omitempty"`

	// Timeout is how long the server waits for a ping ack before closing.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// PermitWithoutStream allows client pings with no active streams.
	PermitWithoutStream bool `yaml:"permitWithoutStream,omitempty" json:"permitWithoutStream,omitempty"`

	// MaxConnectionIdle closes connections idle this long.
	MaxConnectionIdle Duration `yaml:"maxConnectionIdle,omitempty" json:"maxConnectionIdle,omitempty"`

	// MaxConnectionAge closes connections older than this.
	MaxConnectionAge Duration `yaml:"maxConnectionAge,omitempty" json:"maxConnectionAge,omitempty"`

	// MaxConnectionAgeGrace is the grace period after MaxConnectionAge.
	MaxConnectionAgeGrace Duration `yaml:"maxConnectionAgeGrace,omitempty" json:"maxConnectionAgeGrace,omitempty"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled indicates whether TLS is enabled.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// CertFile is the path to the TLS certificate file.
	CertFile string `yaml:"certFile,omitempty" json:"certFile,omitempty"`

	// KeyFile is the path to the TLS key file.
	KeyFile string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`
}

// RateLimitConfig configures per-method rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// RequestsPerSecond is the steady-state rate per method.
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty"`

	// Burst is the maximum burst size per method.
	Burst int `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *GuardConfig {
	return &GuardConfig{
		APIVersion: APIVersion,
		Kind:       KindGuard,
		Metadata: Metadata{
			Name: "grpcguard",
		},
		Spec: Spec{
			Server: &ServerConfig{
				Address:     "*:9090",
				HealthCheck: true,
				Reflection:  true,
			},
		},
	}
}
