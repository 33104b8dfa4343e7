package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	MongoURI string `envconfig:"MONGOURI" required:"true"`
	DBName   string `envconfig:"DB_NAME" default:"bookingweb"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpire time.Duration `envconfig:"JWT_EXPIRE" default:"24h"`

	Currency string `envconfig:"CURRENCY" default:"USD"`

	PayPalBaseURL  string `envconfig:"PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
	PayPalClientID string `envconfig:"PAYPAL_CLIENT_ID" required:"true"`
	PayPalSecret   string `envconfig:"PAYPAL_CLIENT_SECRET" required:"true"`

	RevolutBaseURL string `envconfig:"REVOLUT_BASE_URL" default:"https://sandbox-merchant.revolut.com"`
	RevolutAPIKey  string `envconfig:"REVOLUT_API_KEY" required:"true"`

	SettlementDelay time.Duration `envconfig:"PAYOUT_SETTLEMENT_DELAY" default:"24h"`
	MinimumPayout   float64       `envconfig:"PAYOUT_MINIMUM" default:"10"`
	ProviderShare   float64       `envconfig:"PAYOUT_PROVIDER_SHARE" default:"0.8"`
	PayoutHourUTC   int           `envconfig:"PAYOUT_HOUR_UTC" default:"2"`
	PayoutNote      string        `envconfig:"PAYOUT_NOTE" default:"Booking-Web provider payout"`
}

// Load reads .env (best effort, as in local development) and then the
// process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
