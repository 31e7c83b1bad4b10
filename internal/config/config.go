package config

import "github.com/caarlos0/env/v9"

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBHost     string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY,required"`
	// Hosted onboarding bounces back to these after the Stripe flow.
	OnboardingRefreshURL string `env:"ONBOARDING_REFRESH_URL" envDefault:"http://localhost:5173/sell"`
	OnboardingReturnURL  string `env:"ONBOARDING_RETURN_URL" envDefault:"http://localhost:5173/sell?onboarding=complete"`

	StorageBucket   string `env:"STORAGE_BUCKET,required"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	WCABaseURL string `env:"WCA_BASE_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
