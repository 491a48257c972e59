package groundcontrol

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tiiuae/flightcontroller/internal/credential"
)

const stubMission = "$FlightMission H60.0_24.0_10.0&W60.0001_24.0_5.0&L60.0001_24.0_0.0#"

func newStubAPI(t *testing.T, missionText string) (*API, *Stub, func()) {
	t.Helper()
	board, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("Could not generate key: %v", err)
	}
	server, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("Could not generate key: %v", err)
	}

	stub := NewStub(server, &board.PublicKey, missionText)
	srv := httptest.NewServer(stub)

	transport := NewHTTPTransport(srv.URL, time.Second)
	if err := transport.Ready(context.Background()); err != nil {
		t.Fatalf("stub server not ready: %v", err)
	}
	client := NewClient("1", credential.New(board, &server.PublicKey), transport, time.Millisecond)
	return NewAPI(client, 5*time.Millisecond), stub, srv.Close
}

func TestAPIAgainstStub(t *testing.T) {
	api, stub, done := newStubAPI(t, stubMission)
	defer done()
	ctx := context.Background()

	if err := api.Authenticate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := api.FetchMission(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Len() != 3 {
		t.Errorf("got %d commands, expected 3", m.Len())
	}

	response, _ := api.RequestArm(ctx)
	if d := Decide(response); d != DecisionPermit {
		t.Errorf("got %v for arm", d)
	}
	stub.SetFly(MarkerForbid)
	response, _ = api.RequestFly(ctx)
	if d := Decide(response); d != DecisionForbid {
		t.Errorf("got %v for fly_accept", d)
	}

	expected := []string{PathAuth, PathMission, PathArm, PathFlyAccept}
	requests := stub.Requests()
	if len(requests) != len(expected) {
		t.Fatalf("got requests %v, expected %v", requests, expected)
	}
	for i := range expected {
		if requests[i] != expected[i] {
			t.Errorf("request %d: got %s, expected %s", i, requests[i], expected[i])
		}
	}
}

func TestFetchMissionRetriesMalformed(t *testing.T) {
	api, stub, done := newStubAPI(t, "$FlightMission #")
	defer done()

	go func() {
		time.Sleep(30 * time.Millisecond)
		stub.SetMission(stubMission)
	}()

	m, err := api.FetchMission(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsLand(2) {
		t.Errorf("got %#v as last command", m.At(2))
	}
	if n := len(stub.Requests()); n < 2 {
		t.Errorf("got %d mission requests, expected retries", n)
	}
}

func TestStubRejectsUnsigned(t *testing.T) {
	_, stub, done := newStubAPI(t, stubMission)
	defer done()

	for _, target := range []string{"/api/arm?id=1", "/api/arm?id=1&sig=0xdeadbeef"} {
		rec := httptest.NewRecorder()
		stub.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		if rec.Code != 403 {
			t.Errorf("%s: got status %d, expected 403", target, rec.Code)
		}
	}
	if n := len(stub.Requests()); n != 0 {
		t.Errorf("got %d accepted requests", n)
	}
}
