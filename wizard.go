package wsprofile

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Wizard is one editing session of a profile. It owns the current draft and
// forwards events to a Dispatcher. Nothing is persisted before Submit.
type Wizard struct {
	c          Collaborators
	dispatcher *Dispatcher
	assembler  *Assembler
	options    Options
	log        zerolog.Logger

	mu     sync.Mutex
	draft  Draft
	closed bool
	issued *CredentialReference // issued by Submit, not yet referenced by a saved profile
}

// NewWizard starts a session for a new profile, or for editing when editing
// is non-nil. Connectivity settings and the referenced credential record are
// loaded concurrently. A settings failure keeps the local default endpoints.
func NewWizard(ctx context.Context, c Collaborators, editing *ConnectionProfile, opts ...Option) (*Wizard, error) {
	options := newOptions(opts...)
	w := &Wizard{
		c:          c,
		dispatcher: newDispatcher(options),
		assembler:  newAssembler(c.Credentials, c.User, options),
		options:    options,
		log:        options.Logger.With().Str("component", "wizard").Logger(),
	}

	endpoints := DefaultEndpoints(options.Host)
	if editing != nil {
		w.draft = Hydrate(editing, options.Generator, endpoints)
	} else {
		w.draft = NewDraft(options.Generator, endpoints, options.Version, options.Connections)
	}

	id := credentialsIDOf(editing)
	if id != "" && c.Credentials == nil {
		return nil, fmt.Errorf("wsprofile: fetch credentials %s: no credential store", id)
	}

	var (
		settings *ConnectivitySettings
		ref      *CredentialReference
	)
	group, gctx := errgroup.WithContext(ctx)
	if c.Settings != nil {
		group.Go(func() error {
			s, err := c.Settings.Get(gctx)
			if err != nil {
				w.log.Warn().Err(err).Msg("load connectivity settings, using defaults")
				return nil
			}
			settings = s
			return nil
		})
	}
	if id != "" {
		group.Go(func() error {
			r, err := c.Credentials.FetchByID(gctx, id)
			if err != nil {
				return fmt.Errorf("wsprofile: fetch credentials %s: %w", id, err)
			}
			ref = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if settings != nil {
		if err := w.Dispatch(SettingsLoaded{Settings: *settings}); err != nil {
			w.log.Warn().Err(err).Msg("apply connectivity settings")
		}
	}
	if ref != nil {
		if err := w.Dispatch(CredentialsSelected{Credentials: ref}); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func credentialsIDOf(p *ConnectionProfile) string {
	if p == nil || p.Configuration.ClientCredentialsID == nil {
		return ""
	}
	return *p.Configuration.ClientCredentialsID
}

// Draft returns the current draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// URLWarning reports whether the current transport is blocked by a secure page origin.
func (w *Wizard) URLWarning() bool {
	return URLWarning(w.Draft().connection.Transport, w.options.OriginSecure)
}

// Dispatch applies ev to the current draft.
func (w *Wizard) Dispatch(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWizardClosed
	}
	next, err := w.dispatcher.Dispatch(w.draft, ev)
	if err != nil {
		return err
	}
	w.draft = next
	return nil
}

// Submit assembles the draft and saves it. Failures of the profile store are
// returned as *PersistenceError. The wizard stays open on error so the
// caller can correct the draft and retry. Credentials issued for an AUTO
// draft whose save failed are attached to the draft in EXISTING mode, so a
// retry reuses the record instead of issuing another one.
func (w *Wizard) Submit(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWizardClosed
	}
	res, err := w.assembler.Assemble(ctx, w.draft)
	if err != nil {
		return nil, err
	}
	if res.Issued != nil {
		w.release(ctx, "")
		w.issued = res.Issued
	}
	if w.c.Profiles == nil {
		w.finish(ctx, res.Profile)
		return res, nil
	}
	saved, err := w.c.Profiles.Save(ctx, res.Profile)
	if err != nil {
		stat.AssemblyFailures.WithLabelValues("persistence").Inc()
		w.log.Error().Err(err).Str("name", res.Profile.Name).Msg("save profile")
		if res.Issued != nil {
			w.reuse(res.Issued)
		}
		return nil, &PersistenceError{Err: err}
	}
	stat.ProfilesSaved.Inc()
	w.finish(ctx, saved)
	return &Result{Profile: saved, Password: res.Password, Issued: res.Issued}, nil
}

// reuse switches the draft to EXISTING with ref attached.
func (w *Wizard) reuse(ref *CredentialReference) {
	d := SelectMode(w.draft, EXISTING, w.options.Generator)
	d, err := AttachCredentials(d, ref, w.options.Generator)
	if err != nil {
		w.log.Warn().Err(err).Str("credentialsId", ref.ID).Msg("attach issued credentials")
		return
	}
	w.draft = d
}

func (w *Wizard) finish(ctx context.Context, p *ConnectionProfile) {
	w.release(ctx, credentialsIDOf(p))
	w.closed = true
}

// release revokes the credentials issued by this wizard unless keep names them.
func (w *Wizard) release(ctx context.Context, keep string) {
	ref := w.issued
	if ref == nil || ref.ID == keep {
		w.issued = nil
		return
	}
	w.issued = nil
	r, ok := w.c.Credentials.(CredentialRevoker)
	if !ok {
		w.log.Warn().Str("credentialsId", ref.ID).Msg("issued credentials left unreferenced")
		return
	}
	if err := r.Revoke(ctx, ref.ID); err != nil {
		w.log.Warn().Err(err).Str("credentialsId", ref.ID).Msg("revoke issued credentials")
		return
	}
	w.log.Debug().Str("credentialsId", ref.ID).Msg("revoked issued credentials")
}

// Abandon closes the wizard without saving. Credentials issued by a Submit
// whose save failed are revoked when the store supports it.
func (w *Wizard) Abandon() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.release(context.Background(), "")
	w.closed = true
}
