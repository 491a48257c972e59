package credential

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("Could not generate key: %v", err)
	}
	return key
}

func TestSignVerifyRoundTrip(t *testing.T) {
	board := generateKey(t)
	server := generateKey(t)

	m := New(board, &server.PublicKey)
	sig, err := m.Sign("/api/arm?id=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := VerifyHex(&board.PublicKey, "/api/arm?id=1", sig); err != nil {
		t.Errorf("board signature rejected: %v", err)
	}
	if err := VerifyHex(&board.PublicKey, "/api/arm?id=2", sig); err == nil {
		t.Errorf("signature accepted for a different message")
	}

	response, err := Signed(server, "$Arm: 0#")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Verify("HTTP/1.1 200 OK\r\n\r\n" + response); err != nil {
		t.Errorf("server response rejected: %v", err)
	}

	forged, _ := Signed(board, "$Arm: 0#")
	if err := m.Verify(forged); err == nil {
		t.Errorf("response signed by the wrong key accepted")
	}
	tampered := strings.Replace(response, "0#", "1#", 1)
	if err := m.Verify(tampered); err == nil {
		t.Errorf("tampered response accepted")
	}
	for _, unsigned := range []string{"$Arm: 0#", "Arm: 0", "$Arm: 0#zz"} {
		if err := m.Verify(unsigned); err == nil {
			t.Errorf("%q accepted", unsigned)
		}
	}
}

func TestSplitSigned(t *testing.T) {
	for _, tc := range []struct {
		in        string
		content   string
		signature string
		ok        bool
	}{
		{"$Success#abcd", "$Success#", "abcd", true},
		{"junk $FlightMission H1_2_3&L1_2_0#beef\n", "$FlightMission H1_2_3&L1_2_0#", "beef", true},
		{"$Success#", "", "", false},
		{"Success#abcd", "", "", false},
		{"$Success", "", "", false},
	} {
		content, signature, ok := SplitSigned(tc.in)
		if content != tc.content || signature != tc.signature || ok != tc.ok {
			t.Errorf("%q: got (%q, %q, %v), expected (%q, %q, %v)", tc.in, content, signature, ok,
				tc.content, tc.signature, tc.ok)
		}
	}
}

func writePEM(t *testing.T, path string, block *pem.Block) {
	t.Helper()
	if err := ioutil.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("Could not write %s: %v", path, err)
	}
}

func TestLoadAndIdentity(t *testing.T) {
	dir := t.TempDir()
	board := generateKey(t)
	server := generateKey(t)

	boardPath := filepath.Join(dir, "board.pem")
	serverPath := filepath.Join(dir, "server.pem")
	writePEM(t, boardPath, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(board)})
	pubBytes, err := x509.MarshalPKIXPublicKey(&server.PublicKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writePEM(t, serverPath, &pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	m, err := Load(boardPath, serverPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Ready(context.Background()); err != nil {
		t.Errorf("loaded manager not ready: %v", err)
	}

	key, err := m.AuthorizedKey()
	if err != nil || !strings.HasPrefix(key, "ssh-rsa ") || strings.HasSuffix(key, "\n") {
		t.Errorf("got authorized key %q, %v", key, err)
	}
	fp, err := m.Fingerprint()
	if err != nil || !strings.HasPrefix(fp, "SHA256:") {
		t.Errorf("got fingerprint %q, %v", fp, err)
	}

	if _, err := Load(filepath.Join(dir, "missing.pem"), serverPath); err == nil {
		t.Errorf("missing board key accepted")
	}
	if _, err := Load(serverPath, serverPath); err == nil {
		t.Errorf("public key accepted as board key")
	}
}

func TestMQTTPassword(t *testing.T) {
	board := generateKey(t)
	m := New(board, nil)

	now := time.Now()
	pass, err := m.MQTTPassword("auto-fleet-mgnt", now, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims := &jwt.StandardClaims{}
	_, err = jwt.ParseWithClaims(pass, claims, func(*jwt.Token) (interface{}, error) {
		return &board.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("Could not parse token: %v", err)
	}
	if claims.Audience != "auto-fleet-mgnt" || claims.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Errorf("got claims %+v", claims)
	}
	if err := m.Ready(context.Background()); err == nil {
		t.Errorf("manager without server key reported ready")
	}
}
