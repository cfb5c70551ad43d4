package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/user"
	"path"
	"slices"

	"perfagg/internal/util"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type sftpSource struct {
	location string
	root     string
	conn     *ssh.Client
	client   *sftp.Client
}

func newSFTPSource(location string, keyFile string) (Source, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid sftp location %s: %w", location, err)
	}
	userName := u.User.Username()
	if userName == "" {
		current, err := user.Current()
		if err != nil {
			return nil, errors.Wrap(err, "failed to determine user name")
		}
		userName = current.Username
	}
	port := u.Port()
	if port == "" {
		port = "22"
	}
	if keyFile == "" {
		keyFile = "~/.ssh/id_rsa"
	}
	key, err := os.ReadFile(util.ExpandUser(keyFile))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read ssh key")
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ssh key")
	}
	cfg := &ssh.ClientConfig{
		User:            userName,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
	}
	conn, err := ssh.Dial("tcp", net.JoinHostPort(u.Hostname(), port), cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", u.Host)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to start sftp session")
	}
	root := u.Path
	if root == "" {
		root = "."
	}
	return &sftpSource{location: location, root: root, conn: conn, client: client}, nil
}

func (s *sftpSource) Location() string {
	return s.location
}

func (s *sftpSource) List(_ context.Context, dir string) ([]string, error) {
	infos, err := s.client.ReadDir(path.Join(s.root, dir))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", path.Join(s.root, dir))
	}
	var names []string
	for _, info := range infos {
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *sftpSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.client.Open(path.Join(s.root, name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path.Join(s.root, name))
	}
	return f, nil
}

func (s *sftpSource) Close() error {
	err := s.client.Close()
	if connErr := s.conn.Close(); err == nil {
		err = connErr
	}
	return err
}
