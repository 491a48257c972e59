package groundcontrol

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tiiuae/flightcontroller/internal/retry"
)

// Signer is the credential manager as seen by the client.
type Signer interface {
	Sign(message string) (string, error)
	Verify(response string) error
}

// Transport delivers a composed request to ground control and returns the raw response.
type Transport interface {
	Send(ctx context.Context, request string) (string, error)
}

// Client sends signed requests and only returns authentic responses. It
// retries forever; the only error it returns is the context's.
type Client struct {
	boardID    string
	signer     Signer
	transport  Transport
	retryDelay time.Duration
}

func NewClient(boardID string, signer Signer, transport Transport, retryDelay time.Duration) *Client {
	return &Client{boardID, signer, transport, retryDelay}
}

// Message composes "<method>?id=<board>[&<payload>]".
func (c *Client) Message(method string, payload ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s?id=%s", method, c.boardID)
	for _, p := range payload {
		if p != "" {
			b.WriteString("&")
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) Send(ctx context.Context, method string, payload ...string) (string, error) {
	message := c.Message(method, payload...)

	var signature string
	err := retry.Forever(ctx, c.retryDelay, fmt.Sprintf("sign %s message at Credential Manager", method), func() error {
		var err error
		signature, err = c.signer.Sign(message)
		return err
	})
	if err != nil {
		return "", err
	}
	request := fmt.Sprintf("%s&sig=0x%s", message, signature)

	for {
		response, err := c.transport.Send(ctx, request)
		if err == nil {
			err = c.signer.Verify(response)
			if err == nil {
				return response, nil
			}
			log.Printf("WARNING: Failed to check signature of %s response: %v. Trying again in %v", method, err, c.retryDelay)
		} else {
			log.Printf("WARNING: Failed to send %s request through Server Connector: %v. Trying again in %v", method, err, c.retryDelay)
		}
		if err := retry.Sleep(ctx, c.retryDelay); err != nil {
			return "", err
		}
	}
}
