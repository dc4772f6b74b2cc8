package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, BaseURL string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

type StripeCfg struct {
	SecretKey     string
	WebhookSecret string
}

type SecurityCfg struct {
	AdminToken string // guards /admin routes
}

type Cfg struct {
	App    AppCfg
	DB     DBCfg
	Redis  RedisCfg
	Stripe StripeCfg
	Sec    SecurityCfg
}

func Load() Cfg {
	// 1) Load .env into process env (if file exists)
	_ = godotenv.Load()

	// 2) Read from env via viper
	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ADMIN_TOKEN", "")

	cfg := Cfg{
		App: AppCfg{
			Env:     viper.GetString("APP_ENV"),
			Port:    viper.GetString("APP_PORT"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Stripe: StripeCfg{
			SecretKey:     strings.TrimSpace(viper.GetString("STRIPE_SECRET_KEY")),
			WebhookSecret: strings.TrimSpace(viper.GetString("STRIPE_WEBHOOK_SECRET")),
		},
		Sec: SecurityCfg{
			AdminToken: strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
		},
	}

	// 3) Fail fast on required settings. Stripe keys are deliberately not
	// fatal here: the webhook endpoint answers 500 while they are missing, so
	// a misconfigured deploy stays visible on Stripe's delivery dashboard.
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if cfg.Stripe.SecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY is not set; checkout and catalog sync will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET is not set; webhook deliveries will be rejected")
	}

	return cfg
}
