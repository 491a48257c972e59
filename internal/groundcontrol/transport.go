package groundcontrol

import (
	"context"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// HTTPTransport issues requests as plain GETs against the ground-control server.
type HTTPTransport struct {
	server string
	client *http.Client
}

func NewHTTPTransport(server string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		server: strings.TrimSuffix(server, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, request string) (string, error) {
	if !strings.HasPrefix(request, "/") {
		request = "/" + request
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.server+request, nil)
	if err != nil {
		return "", errors.WithMessage(err, "Could not build request")
	}
	req.Header.Set("Connection", "close")

	res, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return "", errors.WithMessage(err, "Could not read response")
	}
	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("server answered %s", res.Status)
	}

	return string(body), nil
}

// Ready reports whether the server accepts TCP connections.
func (t *HTTPTransport) Ready(ctx context.Context) error {
	u, err := url.Parse(t.server)
	if err != nil {
		return errors.WithMessage(err, "Could not parse server address")
	}
	host := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return err
	}
	return conn.Close()
}
