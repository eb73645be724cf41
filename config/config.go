package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web   Web
	Cors  Cors
	DB    DB
	Redis Redis
	Rate  Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	URI            string        `conf:"default:mongodb://localhost:27017,mask"`
	Name           string        `conf:"default:shop"`
	ConnectTimeout time.Duration `conf:"default:10s"`
}

type Redis struct {
	Addr     string        `conf:"default:localhost:6379"`
	Password string        `conf:"mask"`
	DB       int           `conf:"default:0"`
	CountTTL time.Duration `conf:"default:15m"`
}

// Rate limits mutating cart requests per user.
type Rate struct {
	Burst    int           `conf:"default:20"`
	Expiry   int           `conf:"default:10"`
	Interval time.Duration `conf:"default:100ms"`
}
