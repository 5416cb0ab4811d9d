package wsprofile

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Rederive decides whether a settings load overwrites the current url.
type Rederive uint8

const (
	// RederiveUnlessEditing re-derives for new profiles and keeps the url of edited ones.
	RederiveUnlessEditing Rederive = iota
	RederiveAlways
	RederiveNever
)

func (r Rederive) String() string {
	switch r {
	case RederiveAlways:
		return "always"
	case RederiveNever:
		return "never"
	}
	return "auto"
}

func ParseRederive(s string) (Rederive, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return RederiveUnlessEditing, nil
	case "always":
		return RederiveAlways, nil
	case "never":
		return RederiveNever, nil
	}
	return 0, fmt.Errorf("%w: rederive %q", ErrInvalidValue, s)
}

type Options struct {
	Logger       zerolog.Logger
	Generator    Generator
	Rederive     Rederive
	Host         string // host used until connectivity settings load
	Version      ProtocolVersion
	Connections  int // profiles the user already owns, feeds the default name
	OriginSecure bool
}

type Option func(*Options)

func newOptions(opts ...Option) Options {
	options := Options{
		Logger:   zerolog.Nop(),
		Rederive: RederiveUnlessEditing,
		Host:     "localhost",
		Version:  MQTT5,
	}
	for _, o := range opts {
		o(&options)
	}
	if options.Generator == nil {
		options.Generator = defaultGenerator()
	}
	return options
}

func Logger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func Generate(g Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

// Seed installs a RandomGenerator with a fixed seed.
func Seed(seed int64) Option {
	return func(o *Options) {
		o.Generator = NewGenerator(seed)
	}
}

func RederiveURL(r Rederive) Option {
	return func(o *Options) {
		o.Rederive = r
	}
}

func Host(host string) Option {
	return func(o *Options) {
		o.Host = host
	}
}

func Connections(n int) Option {
	return func(o *Options) {
		o.Connections = n
	}
}

func OriginSecure(secure bool) Option {
	return func(o *Options) {
		o.OriginSecure = secure
	}
}

// Version sets the protocol version of new profiles. It accepts the protocol
// level or its name, "3.1", "3.1.1" and "5".
func Version[T ~string | ~uint8](version T) Option {
	return func(o *Options) {
		v, err := ParseVersion(fmt.Sprint(version))
		if err != nil {
			panic(fmt.Errorf("version = %v not support", version))
		}
		o.Version = v
	}
}
