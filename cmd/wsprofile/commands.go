package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"time"

	"github.com/golang-io/wsprofile"
	"github.com/golang-io/wsprofile/password"
	"github.com/golang-io/wsprofile/probe"
	"github.com/rs/zerolog"
)

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// assemble replays a ProfileRequest read from -f and prints the profile.
func assemble(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	f := fs.String("f", "-", "Profile request file, - for stdin")
	save := fs.Bool("save", false, "Persist the profile")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := readInput(*f)
	if err != nil {
		return err
	}
	var req wsprofile.ProfileRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return err
	}
	req.Save = req.Save || *save

	c, _, err := collaborators(logger)
	if err != nil {
		return err
	}
	opts, err := wsprofile.CONFIG.Options(logger)
	if err != nil {
		return err
	}
	if !req.Save {
		c.Profiles = nil
	}

	w, err := wsprofile.NewWizard(ctx, c, req.Editing, opts...)
	if err != nil {
		return err
	}
	defer w.Abandon()
	if err := req.Replay(ctx, w, c.Credentials); err != nil {
		return err
	}
	res, err := w.Submit(ctx)
	if err != nil {
		return err
	}
	if w.URLWarning() {
		logger.Warn().Str("url", res.Profile.Configuration.URL).Msg("url does not match the selected transport")
	}
	return printJSON(wsprofile.ProfileResponse{Profile: res.Profile, URLWarning: w.URLWarning()})
}

func checkPassword(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("password", flag.ExitOnError)
	current := fs.String("current", "", "Current password, checks a change when set")
	confirm := fs.String("confirm", "", "Confirmation of the new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("password: expected exactly one password argument")
	}

	_, policies, err := collaborators(logger)
	if err != nil {
		return err
	}
	checker := password.NewChecker(policies, logger)
	var v password.Violations
	if *current != "" {
		v, err = checker.CheckChange(ctx, *current, fs.Arg(0), *confirm)
	} else {
		v, err = checker.Check(ctx, fs.Arg(0))
	}
	var fetchErr *password.PolicyFetchError
	if err != nil && !errors.As(err, &fetchErr) {
		return err
	}
	return printJSON(wsprofile.PasswordResponse{Violations: v, Valid: v.Valid(), Provisional: v.Provisional()})
}

// probeProfile checks the upgrade first so a wrong path or a missing
// subprotocol is reported before any CONNECT.
func probeProfile(ctx context.Context, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	f := fs.String("f", "-", "Connection profile file, - for stdin")
	pass := fs.String("password", os.Getenv("WSPROFILE_PASSWORD"), "Password sent in CONNECT")
	timeout := fs.Duration("timeout", 10*time.Second, "Probe timeout")
	origin := fs.String("origin", "", "Origin header, defaults to the broker address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, err := readInput(*f)
	if err != nil {
		return err
	}
	var p wsprofile.ConnectionProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	opts := []probe.Option{probe.Timeout(*timeout), probe.Origin(*origin), probe.Logger(logger)}
	if err := probe.Reachable(ctx, p.Configuration.URL, p.Configuration.RejectUnauthorized, opts...); err != nil {
		return err
	}
	res, err := probe.Connect(ctx, &p, *pass, opts...)
	if err != nil {
		return err
	}
	return printJSON(res)
}
