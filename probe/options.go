package probe

import (
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Timeout time.Duration
	Origin  string
	Logger  zerolog.Logger
}

type Option func(*Options)

func newOptions(opts ...Option) Options {
	o := Options{
		Timeout: 10 * time.Second,
		Logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Timeout bounds the whole probe. A profile with its own connect timeout
// uses the shorter of the two.
func Timeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// Origin is sent as the Origin header of the upgrade request. It defaults to
// the http(s) form of the broker address.
func Origin(origin string) Option {
	return func(o *Options) {
		o.Origin = origin
	}
}

func Logger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
