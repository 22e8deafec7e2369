package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"
)

// AstraContact is the routing data served by a bundle's metadata service.
// Every node sits behind ProxyAddress and is selected by its host id in the
// TLS server name.
type AstraContact struct {
	ProxyAddress  string
	ContactPoints []string
	LocalDC       string
}

type astraMetadata struct {
	ContactInfo struct {
		LocalDC       string   `json:"local_dc"`
		ContactPoints []string `json:"contact_points"`
		SNIProxy      string   `json:"sni_proxy_address"`
	} `json:"contact_info"`
}

// FetchAstraContact asks the metadata service named in the bundle for the
// SNI proxy address and the initial contact points.
func FetchAstraContact(ctx context.Context, b *Bundle) (*AstraContact, error) {
	transport := &http.Transport{TLSClientConfig: b.TLS.Clone()}
	defer transport.CloseIdleConnections()
	client := &http.Client{Transport: transport}

	url := "https://" + net.JoinHostPort(b.Host, strconv.Itoa(b.MetadataPort)) + "/metadata"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("astra metadata request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("astra metadata request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("astra metadata service returned %s", resp.Status)
	}

	var md astraMetadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("failed to parse astra metadata: %w", err)
	}
	info := md.ContactInfo
	if info.SNIProxy == "" || len(info.ContactPoints) == 0 {
		return nil, errors.New("astra metadata has no sni proxy or contact points")
	}
	if _, _, err := net.SplitHostPort(info.SNIProxy); err != nil {
		return nil, fmt.Errorf("astra metadata sni proxy %q: %w", info.SNIProxy, err)
	}
	return &AstraContact{ProxyAddress: info.SNIProxy, ContactPoints: info.ContactPoints, LocalDC: info.LocalDC}, nil
}

// astraDialer routes every gocql connection through the SNI proxy. Hosts
// without a known id (the initial contact) take the contact points in turn.
type astraDialer struct {
	bundle *Bundle
	dialer net.Dialer

	mu      sync.Mutex
	contact *AstraContact
	next    atomic.Uint64
}

func newAstraDialer(b *Bundle, timeout time.Duration) *astraDialer {
	return &astraDialer{bundle: b, dialer: net.Dialer{Timeout: timeout}}
}

func (d *astraDialer) resolve(ctx context.Context) (*AstraContact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.contact != nil {
		return d.contact, nil
	}
	c, err := FetchAstraContact(ctx, d.bundle)
	if err != nil {
		return nil, err
	}
	d.contact = c
	return c, nil
}

func (d *astraDialer) DialHost(ctx context.Context, host *gocql.HostInfo) (*gocql.DialedHost, error) {
	contact, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	sni := host.HostID()
	if sni == "" {
		n := d.next.Add(1) - 1
		sni = contact.ContactPoints[n%uint64(len(contact.ContactPoints))]
	}
	proxyHost, _, _ := net.SplitHostPort(contact.ProxyAddress)

	conn, err := d.dialer.DialContext(ctx, "tcp", contact.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("dial sni proxy %s: %w", contact.ProxyAddress, err)
	}
	return gocql.WrapTLS(ctx, conn, contact.ProxyAddress, sniConfig(d.bundle.TLS, sni, proxyHost))
}

// sniConfig sends serverName as SNI but verifies the proxy certificate
// against proxyHost, since node ids never appear in the certificate.
func sniConfig(base *tls.Config, serverName, proxyHost string) *tls.Config {
	cfg := base.Clone()
	cfg.ServerName = serverName
	cfg.InsecureSkipVerify = true
	roots := base.RootCAs
	cfg.VerifyPeerCertificate = func(raw [][]byte, _ [][]*x509.Certificate) error {
		if len(raw) == 0 {
			return errors.New("sni proxy presented no certificate")
		}
		certs := make([]*x509.Certificate, len(raw))
		for i, der := range raw {
			c, err := x509.ParseCertificate(der)
			if err != nil {
				return fmt.Errorf("sni proxy certificate: %w", err)
			}
			certs[i] = c
		}
		intermediates := x509.NewCertPool()
		for _, c := range certs[1:] {
			intermediates.AddCert(c)
		}
		_, err := certs[0].Verify(x509.VerifyOptions{Roots: roots, Intermediates: intermediates, DNSName: proxyHost})
		return err
	}
	return cfg
}
