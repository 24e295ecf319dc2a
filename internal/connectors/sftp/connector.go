// Package sftp pulls KDT dataset exports from the remote drop directory the
// operators publish to.
package sftp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	pkgsftp "github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"kdtboard/internal/config"
)

type Connector struct {
	cfg config.Config
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("SFTP_HOST", cfg.SFTPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("SFTP_USER", cfg.SFTPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("SFTP_PASSWORD", cfg.SFTPPassword); err != nil {
		return nil, err
	}
	return &Connector{cfg: cfg}, nil
}

// FetchNew downloads remote xlsx files that are missing locally and returns
// the local paths of everything it fetched.
func (c *Connector) FetchNew(ctx context.Context, localDir string) ([]string, error) {
	sshClient, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer sshClient.Close()

	client, err := pkgsftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}
	defer client.Close()

	entries, err := client.ReadDir(c.cfg.SFTPRemoteDir)
	if err != nil {
		return nil, fmt.Errorf("sftp: read dir %s: %w", c.cfg.SFTPRemoteDir, err)
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, err
	}

	var fetched []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".xlsx") {
			continue
		}
		localPath := filepath.Join(localDir, entry.Name())
		if _, err := os.Stat(localPath); err == nil {
			continue
		}

		if err := c.download(client, path.Join(c.cfg.SFTPRemoteDir, entry.Name()), localPath); err != nil {
			return fetched, err
		}
		fetched = append(fetched, localPath)
	}
	return fetched, nil
}

func (c *Connector) dial(ctx context.Context) (*ssh.Client, error) {
	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.SFTPUser,
		Auth:            []ssh.AuthMethod{ssh.Password(c.cfg.SFTPPassword)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         20 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", c.cfg.SFTPHost, c.cfg.SFTPPort)

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		client, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: client, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		return r.client, nil
	}
}

func (c *Connector) download(client *pkgsftp.Client, remotePath, localPath string) error {
	src, err := client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: open remote file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("sftp: create local file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(localPath)
		return fmt.Errorf("sftp: download copy: %w", err)
	}
	return nil
}
