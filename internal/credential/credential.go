package credential

import (
	"context"
	"crypto/rsa"
	"encoding/hex"
	"io/ioutil"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// Manager signs requests with the board key and checks ground-control
// responses against the server key.
type Manager struct {
	boardKey  *rsa.PrivateKey
	serverKey *rsa.PublicKey
}

func New(boardKey *rsa.PrivateKey, serverKey *rsa.PublicKey) *Manager {
	return &Manager{boardKey, serverKey}
}

// Load reads the board private key and the ground-control public key (PEM).
func Load(boardKeyPath string, serverKeyPath string) (*Manager, error) {
	keyData, err := ioutil.ReadFile(boardKeyPath)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not read board key")
	}
	boardKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not parse board key")
	}

	keyData, err = ioutil.ReadFile(serverKeyPath)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not read server key")
	}
	serverKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not parse server key")
	}

	return New(boardKey, serverKey), nil
}

// Ready reports whether both keys are present.
func (m *Manager) Ready(ctx context.Context) error {
	if m.boardKey == nil || m.serverKey == nil {
		return errors.New("keys not loaded")
	}
	return nil
}

// Sign returns the hex RS256 signature of message.
func (m *Manager) Sign(message string) (string, error) {
	return SignHex(m.boardKey, message)
}

// Verify checks the signature trailing a ground-control response.
func (m *Manager) Verify(response string) error {
	content, signature, ok := SplitSigned(response)
	if !ok {
		return errors.New("response is not signed")
	}
	return VerifyHex(m.serverKey, content, signature)
}

// AuthorizedKey returns the board public key in authorized_keys format.
func (m *Manager) AuthorizedKey() (string, error) {
	pub, err := ssh.NewPublicKey(&m.boardKey.PublicKey)
	if err != nil {
		return "", errors.WithMessage(err, "Could not convert board key")
	}
	return strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(pub)), "\n"), nil
}

func (m *Manager) Fingerprint() (string, error) {
	pub, err := ssh.NewPublicKey(&m.boardKey.PublicKey)
	if err != nil {
		return "", errors.WithMessage(err, "Could not convert board key")
	}
	return ssh.FingerprintSHA256(pub), nil
}

// MQTTPassword generates the JWT used as the MQTT password.
func (m *Manager) MQTTPassword(audience string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		Audience:  audience,
	})
	return token.SignedString(m.boardKey)
}

// SignHex signs message with RS256 and hex encodes the signature.
func SignHex(key *rsa.PrivateKey, message string) (string, error) {
	if key == nil {
		return "", errors.New("no signing key")
	}
	seg, err := jwt.SigningMethodRS256.Sign(message, key)
	if err != nil {
		return "", errors.WithMessage(err, "Could not sign message")
	}
	raw, err := jwt.DecodeSegment(seg)
	if err != nil {
		return "", errors.WithMessage(err, "Could not decode signature")
	}
	return hex.EncodeToString(raw), nil
}

// VerifyHex checks a hex RS256 signature of content.
func VerifyHex(key *rsa.PublicKey, content string, signature string) error {
	if key == nil {
		return errors.New("no verification key")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return errors.Wrap(err, "signature is not hex")
	}
	err = jwt.SigningMethodRS256.Verify(content, jwt.EncodeSegment(raw), key)
	if err != nil {
		return errors.WithMessage(err, "signature mismatch")
	}
	return nil
}

// SplitSigned separates "<junk>$content#<signature>" into the signed content
// ($ through the last #) and the signature that follows it.
func SplitSigned(response string) (content string, signature string, ok bool) {
	start := strings.Index(response, "$")
	if start < 0 {
		return "", "", false
	}
	response = response[start:]
	end := strings.LastIndex(response, "#")
	if end < 0 {
		return "", "", false
	}
	signature = strings.TrimSpace(response[end+1:])
	if signature == "" {
		return "", "", false
	}
	return response[:end+1], signature, true
}

// Signed appends the hex signature of content, producing a signed response.
func Signed(key *rsa.PrivateKey, content string) (string, error) {
	sig, err := SignHex(key, content)
	if err != nil {
		return "", err
	}
	return content + sig, nil
}
