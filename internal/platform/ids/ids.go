package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func SystemClock() Clock { return realClock{} }

type IDGen interface {
	New() (string, error)
}

// ulidGen hands out monotonic ULIDs. ulid.Monotonic is not safe for
// concurrent use on its own.
type ulidGen struct {
	mu      sync.Mutex
	clock   Clock
	entropy io.Reader
}

func NewULIDGen(clock Clock) IDGen {
	if clock == nil {
		clock = realClock{}
	}
	return &ulidGen{clock: clock, entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ulidGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(g.clock.Now()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
