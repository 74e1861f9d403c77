package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	TransportSMTP = "smtp"
	TransportDapr = "dapr"
)

// Delivery holds everything the notifier needs to relay a submission.
// It is loaded once at startup and shared read-only between requests.
type Delivery struct {
	To       string `env:"EMAIL_TO,required,notEmpty"`
	User     string `env:"EMAIL_USER,required,notEmpty"`
	Password string `env:"EMAIL_PASSWORD"`

	SMTPHost     string        `env:"SMTP_SERVER" envDefault:"localhost"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"1025"`
	SMTPStartTLS bool          `env:"SMTP_STARTTLS" envDefault:"false"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"0s"`

	Transport   string `env:"DELIVERY_TRANSPORT" envDefault:"smtp"`
	DaprBinding string `env:"DAPR_BINDING" envDefault:"smtp"`
}

// SMTPAddr returns host:port of the SMTP relay.
func (d *Delivery) SMTPAddr() string {
	return net.JoinHostPort(d.SMTPHost, strconv.Itoa(d.SMTPPort))
}

type Config struct {
	ServiceName    string `env:"SERVICE_NAME" envDefault:"api-contact"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	Listen         string `env:"LISTEN" envDefault:"0.0.0.0:8000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	TracingStdout  bool   `env:"TRACING_STDOUT" envDefault:"false"`
	GinMode        string `env:"GIN_MODE"`

	Delivery Delivery
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Delivery.SMTPPort <= 0 || c.Delivery.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT out of range: %d", c.Delivery.SMTPPort))
	}
	if c.Delivery.SMTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("SMTP_TIMEOUT must not be negative: %s", c.Delivery.SMTPTimeout))
	}
	switch c.Delivery.Transport {
	case TransportSMTP, TransportDapr:
	default:
		errs = append(errs, fmt.Errorf("unknown DELIVERY_TRANSPORT %q", c.Delivery.Transport))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("LISTEN is empty"))
	}
	return errors.Join(errs...)
}
