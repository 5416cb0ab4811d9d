package wsprofile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang-io/requests"
	"github.com/golang-io/wsprofile/password"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ProfileRequest replays the steps of the profile flow in one request. Empty
// fields are left at their draft defaults.
type ProfileRequest struct {
	Editing            *ConnectionProfile `json:"editing,omitempty"`
	Version            string             `json:"version,omitempty"`
	Transport          Transport          `json:"transport,omitempty"`
	Name               string             `json:"name,omitempty"`
	URL                string             `json:"url,omitempty"`
	RejectUnauthorized *bool              `json:"rejectUnauthorized,omitempty"`
	Mode               CredentialMode     `json:"mode,omitempty"`
	CredentialsID      string             `json:"credentialsId,omitempty"`
	CredentialsName    string             `json:"credentialsName,omitempty"`
	ClientID           string             `json:"clientId,omitempty"`
	Username           string             `json:"username,omitempty"`
	Password           string             `json:"password,omitempty"`
	Session            *Session           `json:"session,omitempty"`
	Properties         *Properties        `json:"properties,omitempty"`
	LastWill           *LastWillInput     `json:"lastWill,omitempty"`
	UserProperties     []UserProperty     `json:"userProperties,omitempty"`
	Save               bool               `json:"save,omitempty"`
}

// Replay dispatches the request onto w in the order a user walks the steps.
func (r *ProfileRequest) Replay(ctx context.Context, w *Wizard, credentials CredentialStore) error {
	if r.Version != "" {
		v, err := ParseVersion(r.Version)
		if err != nil {
			return invalid(StepAdvanced, "protocolVersion", err)
		}
		if err := w.Dispatch(VersionSelected{Version: v}); err != nil {
			return err
		}
	}
	if r.Transport != "" {
		if err := w.Dispatch(TransportSelected{Transport: r.Transport}); err != nil {
			return err
		}
	}
	if r.Mode != "" {
		mode, err := ParseMode(string(r.Mode))
		if err != nil {
			return invalid(StepConnection, "mode", err)
		}
		if err := w.Dispatch(ModeSelected{Mode: mode}); err != nil {
			return err
		}
	}
	if r.CredentialsID != "" {
		if credentials == nil {
			return invalid(StepConnection, "credentials", ErrRequired)
		}
		ref, err := credentials.FetchByID(ctx, r.CredentialsID)
		if err != nil {
			return invalid(StepConnection, "credentials", err)
		}
		if err := w.Dispatch(CredentialsSelected{Credentials: ref}); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name  FieldName
		value string
	}{
		{FieldProfileName, r.Name},
		{FieldURL, r.URL},
		{FieldCredentialsName, r.CredentialsName},
		{FieldClientID, r.ClientID},
		{FieldUsername, r.Username},
		{FieldPassword, r.Password},
	} {
		if f.value == "" {
			continue
		}
		if err := w.Dispatch(FieldEdited{Field: f.name, Value: f.value}); err != nil {
			return err
		}
	}
	var events []Event
	if r.RejectUnauthorized != nil {
		events = append(events, RejectUnauthorizedSet{Reject: *r.RejectUnauthorized})
	}
	if r.Session != nil {
		events = append(events, SessionEdited{Session: *r.Session})
	}
	if r.Properties != nil {
		events = append(events, PropertiesEdited{Properties: *r.Properties})
	}
	if r.LastWill != nil {
		events = append(events, LastWillEdited{LastWill: r.LastWill})
	}
	if r.UserProperties != nil {
		events = append(events, UserPropertiesEdited{Props: r.UserProperties})
	}
	for _, ev := range events {
		if err := w.Dispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

type ProfileResponse struct {
	Profile    *ConnectionProfile `json:"profile"`
	URLWarning bool               `json:"urlWarning"`
}

type PasswordRequest struct {
	Password string `json:"password"`
	Current  string `json:"current,omitempty"`
	Confirm  string `json:"confirm,omitempty"`
	Change   bool   `json:"change,omitempty"`
}

type PasswordResponse struct {
	Violations  password.Violations `json:"violations"`
	Valid       bool                `json:"valid"`
	Provisional bool                `json:"provisional"`
}

type errorResponse struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
	Field string `json:"field,omitempty"`
}

// API serves profile assembly and password checks over HTTP.
type API struct {
	c       Collaborators
	checker *password.Checker
	opts    []Option
	log     zerolog.Logger
}

func NewAPI(c Collaborators, checker *password.Checker, log zerolog.Logger, opts ...Option) *API {
	return &API{
		c:       c,
		checker: checker,
		opts:    append([]Option{Logger(log)}, opts...),
		log:     log.With().Str("component", "httpd").Logger(),
	}
}

func (a *API) serverLog(ctx context.Context, stat *requests.Stat) {
	a.log.Debug().Msg(stat.Print())
}

func (a *API) Mux(addr string) *requests.ServeMux {
	mux := requests.NewServeMux(requests.URL(addr), requests.Logf(a.serverLog))
	mux.Route("/api/profile/assemble", a.assemble)
	mux.Route("/api/password/validate", a.validatePassword)
	mux.Route("/api/password/policy", a.policy)
	mux.Route("/metrics", promhttp.Handler())
	mux.Pprof()
	return mux
}

// Httpd serves api on CONFIG.HTTP.URL until ctx is done.
func Httpd(ctx context.Context, api *API) error {
	stat.Register(prometheus.DefaultRegisterer)
	stat.RefreshUptime(ctx.Done())
	s := requests.NewServer(ctx, api.Mux(CONFIG.HTTP.URL), requests.OnStart(func(s *http.Server) {
		api.log.Info().Str("addr", s.Addr).Msg("http serve")
	}))
	return s.ListenAndServe()
}

func (a *API) assemble(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	buf, err := requests.ParseBody(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req ProfileRequest
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	c := a.c
	if !req.Save {
		c.Profiles = nil
	}
	ctx := r.Context()
	wiz, err := NewWizard(ctx, c, req.Editing, a.opts...)
	if err != nil {
		a.fail(w, err)
		return
	}
	defer wiz.Abandon()
	if err := req.Replay(ctx, wiz, a.c.Credentials); err != nil {
		a.fail(w, err)
		return
	}
	res, err := wiz.Submit(ctx)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{Profile: res.Profile, URLWarning: wiz.URLWarning()})
}

func (a *API) fail(w http.ResponseWriter, err error) {
	var (
		sve *StructuralValidationError
		cie *CredentialIssuanceError
		pe  *PersistenceError
	)
	switch {
	case errors.As(err, &sve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Step: sve.Step.String(), Field: sve.Field})
	case errors.Is(err, ErrFieldLocked), errors.Is(err, ErrInvalidValue), errors.Is(err, ErrInvalidURL):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &cie), errors.As(err, &pe):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		a.log.Error().Err(err).Msg("assemble")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (a *API) validatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	buf, err := requests.ParseBody(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req PasswordRequest
	if err := json.Unmarshal(buf.Bytes(), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var v password.Violations
	if req.Change {
		v, err = a.checker.CheckChange(r.Context(), req.Current, req.Password, req.Confirm)
	} else {
		v, err = a.checker.Check(r.Context(), req.Password)
	}
	var fetchErr *password.PolicyFetchError
	if err != nil && !errors.As(err, &fetchErr) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	result := "invalid"
	switch {
	case v.Provisional():
		result = "provisional"
	case v.Valid():
		result = "valid"
	}
	stat.PasswordChecks.WithLabelValues(result).Inc()
	writeJSON(w, http.StatusOK, PasswordResponse{Violations: v, Valid: v.Valid(), Provisional: v.Provisional()})
}

func (a *API) policy(w http.ResponseWriter, r *http.Request) {
	p, err := a.checker.Policy(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}
