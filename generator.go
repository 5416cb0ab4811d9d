package wsprofile

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Generator produces the random identifiers used by AUTO credentials.
type Generator interface {
	ClientID() string
	Username() string
	CredentialsName() string
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomGenerator is a Generator backed by a seedable source.
// Two generators built from the same seed yield the same sequence.
type RandomGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(seed int64) *RandomGenerator {
	return &RandomGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *RandomGenerator) random(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[g.rnd.Intn(len(alphanumeric))]
	}
	return string(b)
}

func (g *RandomGenerator) ClientID() string { return "tbmq_" + g.random(8) }

func (g *RandomGenerator) Username() string { return "tbmq_un_" + g.random(8) }

func (g *RandomGenerator) CredentialsName() string { return "WebSocket Credentials " + g.random(5) }

// ConnectionName is the default name of the n-th connection of a user.
func ConnectionName(n int) string {
	return fmt.Sprintf("WebSocket Connection %d", n)
}

func defaultGenerator() Generator {
	return NewGenerator(time.Now().UnixNano())
}
