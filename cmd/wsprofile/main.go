package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-io/wsprofile"
	"github.com/golang-io/wsprofile/memstore"
	"github.com/golang-io/wsprofile/password"
	"github.com/golang-io/wsprofile/remote"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: wsprofile [-config file] <command> [flags]

commands:
  serve     serve the profile and password api
  assemble  assemble a profile from a request file
  password  check a password against the policy
  probe     connect a saved profile to its broker
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	c := flag.String("config", "", "Path to config file (json or yaml)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if err := wsprofile.LoadConfig(*c); err != nil {
		log.Fatal(err)
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := wsprofile.CONFIG.Logger()
	args := flag.Args()[1:]
	var err error
	switch cmd := flag.Arg(0); cmd {
	case "serve":
		err = serve(ctx, logger)
	case "assemble":
		err = assemble(ctx, logger, args)
	case "password":
		err = checkPassword(ctx, logger, args)
	case "probe":
		err = probeProfile(ctx, logger, args)
	default:
		flag.Usage()
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// collaborators talks to the broker api when CONFIG.API.URL is set and falls
// back to in-memory stores otherwise.
func collaborators(logger zerolog.Logger) (wsprofile.Collaborators, password.PolicySource, error) {
	api := wsprofile.CONFIG.API
	if api.URL == "" {
		logger.Warn().Msg("no broker api configured, using in-memory stores")
		host := wsprofile.CONFIG.DefaultHost
		_, _, c := memstore.New("demo", wsprofile.ConnectivitySettings{
			Plain:  wsprofile.ListenerSettings{Enabled: true, Host: host, Port: 8084},
			Secure: wsprofile.ListenerSettings{Enabled: true, Host: host, Port: 8085},
		})
		return c, &memstore.Policies{Policy: password.Policy{MinimumLength: 6, MaximumLength: 72}}, nil
	}

	timeout := 5 * time.Second
	if api.Timeout != "" {
		d, err := time.ParseDuration(api.Timeout)
		if err != nil {
			return wsprofile.Collaborators{}, nil, fmt.Errorf("api timeout %q: %w", api.Timeout, err)
		}
		timeout = d
	}
	client, err := remote.New(api.URL, remote.Token(api.Token), remote.Timeout(timeout), remote.Logger(logger))
	if err != nil {
		return wsprofile.Collaborators{}, nil, err
	}
	return client.Collaborators(), client.Policy(), nil
}

func serve(ctx context.Context, logger zerolog.Logger) error {
	c, policies, err := collaborators(logger)
	if err != nil {
		return err
	}
	opts, err := wsprofile.CONFIG.Options(logger)
	if err != nil {
		return err
	}
	api := wsprofile.NewAPI(c, password.NewChecker(policies, logger), logger, opts...)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return wsprofile.Httpd(ctx, api)
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		return ctx.Err()
	})
	return group.Wait()
}
