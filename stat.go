package wsprofile

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Stat struct {
	Uptime            prometheus.Counter
	ProfilesAssembled prometheus.Counter
	ProfilesSaved     prometheus.Counter
	CredentialsIssued prometheus.Counter
	AssemblyFailures  *prometheus.CounterVec
	PasswordChecks    *prometheus.CounterVec

	once sync.Once
}

var (
	stat = NewStat("wsprofile")
)

func NewStat(namespace string) *Stat {
	return &Stat{
		Uptime:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "uptime_seconds", Help: "The uptime in seconds"}),
		ProfilesAssembled: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "profiles_assembled_total", Help: "The total number of assembled connection profiles"}),
		ProfilesSaved:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "profiles_saved_total", Help: "The total number of persisted connection profiles"}),
		CredentialsIssued: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "credentials_issued_total", Help: "The total number of credentials issued for AUTO profiles"}),
		AssemblyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "assembly_failures_total", Help: "The total number of failed assemblies by kind"},
			[]string{"kind"}),
		PasswordChecks: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "password_checks_total", Help: "The total number of password checks by result"},
			[]string{"result"}),
	}
}

// Register adds the collectors to reg once. Later calls are no-ops.
func (s *Stat) Register(reg prometheus.Registerer) {
	s.once.Do(func() {
		reg.MustRegister(s.Uptime, s.ProfilesAssembled, s.ProfilesSaved, s.CredentialsIssued, s.AssemblyFailures, s.PasswordChecks)
	})
}

// RefreshUptime counts seconds until done is closed.
func (s *Stat) RefreshUptime(done <-chan struct{}) {
	go func() {
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				s.Uptime.Inc()
			case <-done:
				return
			}
		}
	}()
}
