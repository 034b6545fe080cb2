// Package tls checks certificate health: expiry of configured certificate
// files and HTTPS endpoints, self-signed chains, key/cert modulus mismatch,
// and weak protocol configuration in web server configs.
package tls

import (
	"context"
	stdtls "crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/servermedic/medic/internal/check"
	"github.com/servermedic/medic/internal/probe"
)

// Category is the report key for this checker.
const Category = "tls"

const (
	expiryWarnDays = 30
	expiryCritDays = 7

	expiredScore  = 95
	invalidScore  = 90
	mismatchScore = 90

	handshakeTimeout = 5 * time.Second
)

// openssl notAfter format, e.g. "Sep  9 12:00:00 2026 GMT".
const notAfterLayout = "Jan _2 15:04:05 2006 MST"

var weakTokens = []string{"SSLv3", "TLSv1 ", "TLSv1;", "TLSv1.1", "RC4", "DES", "MD5", "NULL", "EXPORT"}

// Checker inspects TLS certificate health.
type Checker struct {
	*check.Collector
	probe probe.Runner
	log   *slog.Logger

	certPaths      []string
	endpoints      []string
	webConfigPaths []string
}

// New returns the TLS checker. Certificate files come from config;
// endpoints are the HTTPS URLs the webapp checker also probes.
func New(log *slog.Logger, runner probe.Runner, certPaths, endpoints []string) *Checker {
	return &Checker{
		Collector: check.NewCollector(Category, log),
		probe:     runner,
		log:       log,
		certPaths: certPaths,
		endpoints: endpoints,
		webConfigPaths: []string{
			"/etc/nginx/nginx.conf",
			"/etc/apache2/apache2.conf",
			"/etc/httpd/conf/httpd.conf",
		},
	}
}

// Run executes all TLS sub-checks.
func (c *Checker) Run(ctx context.Context) ([]check.Result, error) {
	c.Reset()

	subs := []func(context.Context){
		c.checkCertFiles,
		c.checkEndpoints,
		c.checkWeakProtocols,
	}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return c.Results(), err
		}
		sub(ctx)
	}

	if len(c.Results()) == 0 {
		c.AddOK("certificates", "No certificates configured to check", nil)
	}
	return c.Results(), nil
}

func (c *Checker) checkCertFiles(ctx context.Context) {
	for _, path := range c.certPaths {
		c.checkCertFile(ctx, path)
	}
}

func (c *Checker) checkCertFile(ctx context.Context, path string) {
	name := "cert_" + sanitize(path)

	out, err := c.probe.Run(ctx, "openssl", "x509", "-enddate", "-noout", "-in", path)
	if err != nil {
		c.AddUnknown(name, "Could not inspect certificate "+path)
		return
	}
	if out.ExitCode != 0 {
		c.AddCritical(name, "Invalid or unreadable certificate: "+path,
			check.Details{"path": path, "stderr": strings.TrimSpace(out.Stderr)}, invalidScore)
		return
	}

	raw := strings.TrimPrefix(out.Text(), "notAfter=")
	notAfter, err := time.Parse(notAfterLayout, raw)
	if err != nil {
		c.AddCritical(name, "Unparseable certificate expiry: "+path,
			check.Details{"path": path, "not_after": raw}, invalidScore)
		return
	}

	c.scoreExpiry(name, path, notAfter)
	c.checkSelfSigned(ctx, path)
	c.checkModulus(ctx, path)
}

func (c *Checker) scoreExpiry(name, subject string, notAfter time.Time) {
	daysLeft := int(time.Until(notAfter).Hours() / 24)
	details := check.Details{
		"subject":   subject,
		"not_after": notAfter.Format(time.RFC3339),
		"days_left": daysLeft,
	}

	switch {
	case daysLeft < 0:
		c.AddCritical(name,
			fmt.Sprintf("Certificate expired %d days ago: %s", -daysLeft, subject), details, expiredScore)
	case daysLeft <= expiryCritDays:
		c.AddCritical(name,
			fmt.Sprintf("Certificate expires in %d days: %s", daysLeft, subject), details, expiredScore)
	case daysLeft <= expiryWarnDays:
		c.AddWarning(name,
			fmt.Sprintf("Certificate expires in %d days: %s", daysLeft, subject), details, 60)
	default:
		c.AddOK(name,
			fmt.Sprintf("Certificate valid for %d days: %s", daysLeft, subject), details)
	}
}

func (c *Checker) checkSelfSigned(ctx context.Context, path string) {
	out, err := c.probe.Run(ctx, "openssl", "x509", "-noout", "-subject", "-issuer", "-in", path)
	if err != nil || out.ExitCode != 0 {
		return
	}

	var subject, issuer string
	for _, line := range out.Lines() {
		switch {
		case strings.HasPrefix(line, "subject="):
			subject = strings.TrimPrefix(line, "subject=")
		case strings.HasPrefix(line, "issuer="):
			issuer = strings.TrimPrefix(line, "issuer=")
		}
	}
	if subject != "" && subject == issuer {
		c.AddWarning("cert_chain_"+sanitize(path),
			"Certificate is self-signed: "+path,
			check.Details{"path": path, "subject": subject}, 45)
	}
}

// checkModulus compares the certificate modulus with the key next to it.
// A mismatch means the served key pair is broken.
func (c *Checker) checkModulus(ctx context.Context, certPath string) {
	keyPath := keyPathFor(certPath)
	if keyPath == "" {
		return
	}
	if _, err := os.Stat(keyPath); err != nil {
		return
	}

	certMod, err := c.probe.Run(ctx, "openssl", "x509", "-noout", "-modulus", "-in", certPath)
	if err != nil || certMod.ExitCode != 0 {
		return
	}
	keyMod, err := c.probe.Run(ctx, "openssl", "rsa", "-noout", "-modulus", "-in", keyPath)
	if err != nil || keyMod.ExitCode != 0 {
		return
	}

	if certMod.Text() != keyMod.Text() {
		c.AddCritical("cert_key_"+sanitize(certPath),
			fmt.Sprintf("Certificate and key do not match: %s / %s", certPath, keyPath),
			check.Details{"cert": certPath, "key": keyPath}, mismatchScore)
	}
}

func (c *Checker) checkEndpoints(ctx context.Context) {
	for _, raw := range c.endpoints {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "https" {
			continue
		}
		addr := u.Host
		if u.Port() == "" {
			addr = net.JoinHostPort(u.Hostname(), "443")
		}
		c.checkEndpoint(ctx, u.Hostname(), addr)
	}
}

func (c *Checker) checkEndpoint(ctx context.Context, serverName, addr string) {
	name := "cert_endpoint_" + sanitize(addr)

	dctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	// Verification is disabled so expired and self-signed certificates can
	// still be inspected and scored.
	dialer := &stdtls.Dialer{Config: &stdtls.Config{
		InsecureSkipVerify: true,
		ServerName:         serverName,
	}}
	conn, err := dialer.DialContext(dctx, "tcp", addr)
	if err != nil {
		c.AddUnknown(name, fmt.Sprintf("Could not complete TLS handshake with %s", addr))
		return
	}
	defer conn.Close()

	certs := conn.(*stdtls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		c.AddUnknown(name, "No certificate presented by "+addr)
		return
	}

	leaf := certs[0]
	c.scoreExpiry(name, addr, leaf.NotAfter)
	if len(certs) == 1 && leaf.Issuer.String() == leaf.Subject.String() {
		c.AddWarning("cert_chain_"+sanitize(addr),
			"Endpoint presents a self-signed certificate: "+addr,
			check.Details{"endpoint": addr, "subject": leaf.Subject.String()}, 45)
	}
}

func (c *Checker) checkWeakProtocols(_ context.Context) {
	var hints []string
	scanned := 0
	for _, path := range c.webConfigPaths {
		data, err := probe.ReadFileString(path)
		if err != nil {
			continue
		}
		scanned++
		for _, line := range strings.Split(data, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			lower := strings.ToLower(trimmed)
			if !strings.Contains(lower, "ssl_protocols") && !strings.Contains(lower, "sslprotocol") &&
				!strings.Contains(lower, "ssl_ciphers") && !strings.Contains(lower, "sslciphersuite") {
				continue
			}
			if token, weak := weakHint(trimmed); weak {
				hints = append(hints, fmt.Sprintf("%s: %s (%s)", path, trimmed, token))
			}
		}
	}
	if scanned == 0 {
		return
	}

	if len(hints) > 0 {
		c.AddWarning("weak_protocols",
			fmt.Sprintf("Weak TLS configuration in %d place(s)", len(hints)),
			check.Details{"hints": hints}, 50)
		return
	}
	c.AddOK("weak_protocols", "No weak TLS protocol configuration found", nil)
}

// weakHint reports the first weak token a config line enables. Tokens
// prefixed with "-" or "!" are exclusions and do not count.
func weakHint(line string) (string, bool) {
	for _, token := range weakTokens {
		i := strings.Index(line, token)
		if i < 0 {
			continue
		}
		if i > 0 && (line[i-1] == '-' || line[i-1] == '!') {
			continue
		}
		return strings.TrimRight(token, " ;"), true
	}
	return "", false
}

// keyPathFor guesses the private key path next to a certificate.
func keyPathFor(certPath string) string {
	ext := filepath.Ext(certPath)
	switch ext {
	case ".crt", ".pem", ".cert":
		return strings.TrimSuffix(certPath, ext) + ".key"
	}
	return ""
}

func sanitize(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
}
