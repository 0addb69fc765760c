package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio de mensajería.
type Config struct {
	HTTPPort          string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`
	SessionSecret     string `env:"SESSION_SECRET,required"`
	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES" envDefault:"1440"`
	MessagePageSize   int    `env:"MESSAGE_PAGE_SIZE" envDefault:"20"`
	SendRatePerMinute int    `env:"SEND_RATE_PER_MINUTE" envDefault:"30"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
