package database

import (
	"archive/zip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gocql/gocql"
)

// CassandraSpec describes a wide-column cluster. Either BundlePath (a secure
// connect bundle) or Hosts must be set.
type CassandraSpec struct {
	BundlePath string
	Hosts      []string
	Port       int
	Username   string
	Password   string
	Keyspace   string
	LocalDC    string
	Timeout    time.Duration
}

// Bundle is the part of a secure connect bundle needed to open a session.
// Host and MetadataPort locate the metadata service that hands out the SNI
// proxy address and node ids.
type Bundle struct {
	Host         string
	MetadataPort int
	CQLPort      int
	Keyspace     string
	LocalDC      string
	TLS          *tls.Config
}

type bundleConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	CQLPort  int    `json:"cql_port"`
	Keyspace string `json:"keyspace"`
	LocalDC  string `json:"localDC"`
}

// OpenBundle reads config.json, ca.crt, cert and key from a secure connect
// bundle archive.
func OpenBundle(path string) (*Bundle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open secure connect bundle '%s': %w", path, err)
	}
	defer zr.Close()
	return readBundle(&zr.Reader)
}

func readBundle(zr *zip.Reader) (*Bundle, error) {
	files := make(map[string][]byte)
	for _, f := range zr.File {
		switch f.Name {
		case "config.json", "ca.crt", "cert", "key":
		default:
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("bundle entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("bundle entry %s: %w", f.Name, err)
		}
		files[f.Name] = data
	}
	for _, name := range []string{"config.json", "ca.crt", "cert", "key"} {
		if _, ok := files[name]; !ok {
			return nil, fmt.Errorf("secure connect bundle is missing %s", name)
		}
	}

	var cfg bundleConfig
	if err := json.Unmarshal(files["config.json"], &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse bundle config.json: %w", err)
	}
	if cfg.Host == "" {
		return nil, errors.New("bundle config.json has no host")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("bundle config.json has no metadata port")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(files["ca.crt"]) {
		return nil, errors.New("bundle ca.crt holds no usable certificate")
	}
	cert, err := tls.X509KeyPair(files["cert"], files["key"])
	if err != nil {
		return nil, fmt.Errorf("bundle client certificate: %w", err)
	}

	return &Bundle{
		Host:         cfg.Host,
		MetadataPort: cfg.Port,
		CQLPort:      cfg.CQLPort,
		Keyspace:     cfg.Keyspace,
		LocalDC:      cfg.LocalDC,
		TLS: &tls.Config{
			RootCAs:      pool,
			Certificates: []tls.Certificate{cert},
			ServerName:   cfg.Host,
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// NewCassandraCluster turns a spec into a gocql cluster configuration.
func NewCassandraCluster(spec CassandraSpec) (*gocql.ClusterConfig, error) {
	var cluster *gocql.ClusterConfig
	localDC := spec.LocalDC

	switch {
	case spec.BundlePath != "":
		b, err := OpenBundle(spec.BundlePath)
		if err != nil {
			return nil, err
		}
		cluster = gocql.NewCluster(b.Host)
		if b.CQLPort > 0 {
			cluster.Port = b.CQLPort
		}
		cluster.HostDialer = newAstraDialer(b, spec.Timeout)
		if localDC == "" {
			localDC = b.LocalDC
		}
	case len(spec.Hosts) > 0:
		cluster = gocql.NewCluster(spec.Hosts...)
	default:
		return nil, errors.New("cassandra: either a secure connect bundle or hosts are required")
	}

	if spec.Port > 0 {
		cluster.Port = spec.Port
	}
	if spec.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{Username: spec.Username, Password: spec.Password}
	}
	if spec.Timeout > 0 {
		cluster.ConnectTimeout = spec.Timeout
		cluster.Timeout = spec.Timeout
	}
	if localDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(localDC))
	}
	cluster.Keyspace = spec.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	return cluster, nil
}

// ConnectCassandra opens a session. gocql has no context aware dial, so the
// session is created in the background and abandoned (then closed) when ctx
// ends first.
func ConnectCassandra(ctx context.Context, spec CassandraSpec) (*gocql.Session, error) {
	cluster, err := NewCassandraCluster(spec)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 && (cluster.ConnectTimeout == 0 || left < cluster.ConnectTimeout) {
			cluster.ConnectTimeout = left
		}
	}

	type result struct {
		session *gocql.Session
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := cluster.CreateSession()
		done <- result{s, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("error creating cassandra session: %w", r.err)
		}
		return r.session, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.session != nil {
				r.session.Close()
			}
		}()
		return nil, fmt.Errorf("error creating cassandra session: %w", ctx.Err())
	}
}
