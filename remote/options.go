package remote

import (
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Token   string
	Timeout time.Duration
	Logger  zerolog.Logger
}

type Option func(*Options)

func newOptions(opts ...Option) Options {
	o := Options{
		Timeout: 5 * time.Second,
		Logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Token is the JWT sent as "X-Authorization: Bearer <token>".
func Token(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

func Timeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

func Logger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
