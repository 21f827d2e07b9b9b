// Package preview extracts title, summary and lead image from an
// article's external link.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/go-shiori/go-readability"
)

// maxPageBytes bounds how much of a page is parsed.
const maxPageBytes = 5 << 20

// Result is what a preview suggests for the article form.
type Result struct {
	Link      string `json:"link"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	ImageLink string `json:"imageLink"`
}

// Scraper defines the interface for downloading and parsing a page.
// This allows us to mock the network in tests.
type Scraper interface {
	Scrape(ctx context.Context, link string) (*Result, error)
}

// Readability is the real implementation backed by go-readability.
type Readability struct {
	client *http.Client
}

// ErrBlockedAddress is returned for links that resolve to loopback,
// private, link-local or otherwise internal addresses.
var ErrBlockedAddress = errors.New("link resolves to a non-public address")

// NewReadability builds a scraper that only connects to public addresses.
// The check runs on every dial, so redirects are covered too.
func NewReadability(timeout time.Duration) *Readability {
	dialer := &net.Dialer{Timeout: timeout, Control: publicOnly}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Readability{client: &http.Client{Timeout: timeout, Transport: transport}}
}

// publicOnly rejects the resolved address before the socket connects.
func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || blocked(ip.Unmap()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func blocked(ip netip.Addr) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		cgnat.Contains(ip)
}

// cgnat is the shared address space of RFC 6598.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

func (r *Readability) Scrape(ctx context.Context, link string) (*Result, error) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("link must be an absolute http(s) url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "articledesk-preview/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", u.Host, resp.StatusCode)
	}

	art, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u.Host, err)
	}

	return &Result{
		Link:      link,
		Title:     strings.TrimSpace(art.Title),
		Summary:   strings.TrimSpace(art.Excerpt),
		ImageLink: art.Image,
	}, nil
}
