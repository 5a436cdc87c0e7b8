package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/config"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// SFTPStorage keeps uploads on a remote host. The connection is opened
// lazily and re-dialled after a failed operation.
type SFTPStorage struct {
	addr    string
	root    string
	baseURL string
	ssh     *ssh.ClientConfig

	mu     sync.Mutex
	conn   *ssh.Client
	client *sftp.Client
}

func NewSFTPStorage(cfg *config.Config) (*SFTPStorage, error) {
	if cfg.SFTPHost == "" {
		return nil, errors.New("storage: SFTP_HOST is required for the sftp driver")
	}
	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.SFTPHostKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.SFTPHostKey))
		if err != nil {
			return nil, fmt.Errorf("storage: parse SFTP_HOST_KEY: %w", err)
		}
		hostKey = ssh.FixedHostKey(pub)
	} else {
		log.Warn().Str("host", cfg.SFTPHost).Msg("SFTP_HOST_KEY not set: host key is not verified")
	}

	return &SFTPStorage{
		addr:    fmt.Sprintf("%s:%d", cfg.SFTPHost, cfg.SFTPPort),
		root:    strings.TrimRight(cfg.SFTPRoot, "/"),
		baseURL: strings.TrimRight(cfg.UploadBaseURL, "/"),
		ssh: &ssh.ClientConfig{
			User:            cfg.SFTPUser,
			Auth:            []ssh.AuthMethod{ssh.Password(cfg.SFTPPassword)},
			HostKeyCallback: hostKey,
			Timeout:         10 * time.Second,
		},
	}, nil
}

func (s *SFTPStorage) connect() (*sftp.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	conn, err := ssh.Dial("tcp", s.addr, s.ssh)
	if err != nil {
		return nil, fmt.Errorf("storage: ssh dial: %w", err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: sftp client: %w", err)
	}
	s.conn, s.client = conn, client
	return client, nil
}

// reset drops the cached connection so the next call dials again.
func (s *SFTPStorage) reset() {
	if s.client != nil {
		s.client.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.client, s.conn = nil, nil
}

func (s *SFTPStorage) Save(ctx context.Context, name string, r io.Reader) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	rel, err := cleanName(name)
	if err != nil {
		return "", "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connect()
	if err != nil {
		return "", "", err
	}
	full := path.Join(s.root, rel)
	if err := client.MkdirAll(path.Dir(full)); err != nil {
		s.reset()
		return "", "", fmt.Errorf("storage: remote mkdir: %w", err)
	}
	f, err := client.Create(full)
	if err != nil {
		s.reset()
		return "", "", fmt.Errorf("storage: remote create: %w", err)
	}
	if _, err := f.ReadFrom(r); err != nil {
		f.Close()
		_ = client.Remove(full)
		return "", "", fmt.Errorf("storage: remote write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("storage: remote close: %w", err)
	}
	return rel, s.baseURL + "/" + rel, nil
}

func (s *SFTPStorage) Delete(ctx context.Context, storedPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := cleanName(storedPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.connect()
	if err != nil {
		return err
	}
	err = client.Remove(path.Join(s.root, rel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.reset()
		return fmt.Errorf("storage: remote remove: %w", err)
	}
	return nil
}

// Close releases the remote connection.
func (s *SFTPStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}
