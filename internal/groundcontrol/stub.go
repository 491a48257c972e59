package groundcontrol

import (
	"crypto/rsa"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/tiiuae/flightcontroller/internal/credential"
)

// Stub is a minimal ground-control server for simulation and tests. It checks
// board signatures and signs every answer with its own key.
type Stub struct {
	key      *rsa.PrivateKey
	boardKey *rsa.PublicKey

	mu       sync.Mutex
	mission  string
	arm      string
	fly      string
	requests []string
}

func NewStub(key *rsa.PrivateKey, boardKey *rsa.PublicKey, missionText string) *Stub {
	return &Stub{
		key:      key,
		boardKey: boardKey,
		mission:  missionText,
		arm:      MarkerPermit,
		fly:      MarkerPermit,
	}
}

// SetArm changes the content returned for arm requests.
func (s *Stub) SetArm(content string) {
	s.mu.Lock()
	s.arm = content
	s.mu.Unlock()
}

// SetFly changes the content returned for fly_accept requests.
func (s *Stub) SetFly(content string) {
	s.mu.Lock()
	s.fly = content
	s.mu.Unlock()
}

func (s *Stub) SetMission(missionText string) {
	s.mu.Lock()
	s.mission = missionText
	s.mu.Unlock()
}

// Requests returns the paths of all authentic requests received so far.
func (s *Stub) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.RawQuery
	i := strings.LastIndex(query, "&sig=")
	if i < 0 {
		http.Error(w, "unsigned request", http.StatusForbidden)
		return
	}
	message := r.URL.Path + "?" + query[:i]
	if err := credential.VerifyHex(s.boardKey, message, query[i+len("&sig="):]); err != nil {
		log.Printf("Stub: rejected %s: %v", r.URL.Path, err)
		http.Error(w, "bad signature", http.StatusForbidden)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	var content string
	switch r.URL.Path {
	case PathAuth:
		content = MarkerSuccess
	case PathMission:
		content = s.mission
	case PathArm:
		content = s.arm
	case PathFlyAccept:
		content = s.fly
	}
	s.mu.Unlock()

	if content == "" {
		http.NotFound(w, r)
		return
	}
	response, err := credential.Signed(s.key, content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	io.WriteString(w, response)
}
