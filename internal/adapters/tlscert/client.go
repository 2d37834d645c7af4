package tlscert

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"syscall"

	"github.com/stoik/phish-verdict/internal/domain"
)

// Client reads the certificate a host serves; implements ports.CertificateClient
type Client struct {
	roots  *x509.CertPool
	logger *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithRootCAs verifies chains against pool instead of the system roots
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) { c.roots = pool }
}

// WithLogger sets the client logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a certificate client
func New(opts ...Option) *Client {
	c := &Client{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "tlscert")
	return c
}

// Fetch performs a TLS handshake with host:port and describes the leaf certificate
//
// A chain that fails verification is read again without verification so
// that issuer and validity dates can still be reported with Valid=false.
func (c *Client) Fetch(ctx context.Context, host string, port int) (*domain.CertificateInfo, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	info := &domain.CertificateInfo{Host: host}

	state, err := c.handshake(ctx, addr, &tls.Config{ServerName: host, RootCAs: c.roots})
	if err == nil {
		info.Present = true
		info.Valid = true
		describe(info, state)
		return info, nil
	}

	var dnsErr *net.DNSError
	switch {
	case domain.IsTimeout(err), errors.As(err, &dnsErr), ctx.Err() != nil:
		return nil, fmt.Errorf("tls %s: %w", addr, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		info.Problem = "connection refused on port " + strconv.Itoa(port)
		return info, nil
	}

	var verifyErr *tls.CertificateVerificationError
	if !errors.As(err, &verifyErr) {
		// reachable, but no usable TLS service
		info.Problem = err.Error()
		return info, nil
	}

	c.logger.Debug("certificate failed verification", "host", host, "error", err)
	info.Present = true
	info.Problem = verificationProblem(err)
	if state, err := c.handshake(ctx, addr, &tls.Config{ServerName: host, InsecureSkipVerify: true}); err == nil {
		describe(info, state)
	}
	return info, nil
}

func (c *Client) handshake(ctx context.Context, addr string, cfg *tls.Config) (tls.ConnectionState, error) {
	d := &tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return tls.ConnectionState{}, err
	}
	defer conn.Close()
	return conn.(*tls.Conn).ConnectionState(), nil
}

func describe(info *domain.CertificateInfo, state tls.ConnectionState) {
	if len(state.PeerCertificates) == 0 {
		return
	}
	leaf := state.PeerCertificates[0]
	notBefore, notAfter := leaf.NotBefore.UTC(), leaf.NotAfter.UTC()
	info.Issuer = leaf.Issuer.String()
	info.Subject = leaf.Subject.String()
	info.NotBefore = &notBefore
	info.NotAfter = &notAfter
}

func verificationProblem(err error) string {
	var (
		hostErr    x509.HostnameError
		authErr    x509.UnknownAuthorityError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &hostErr):
		return "certificate does not match the host name"
	case errors.As(err, &authErr):
		return "certificate is signed by an untrusted authority"
	case errors.As(err, &invalidErr) && invalidErr.Reason == x509.Expired:
		return "certificate is outside its validity period"
	default:
		return err.Error()
	}
}

