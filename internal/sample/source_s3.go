package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

type s3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

func newS3Source(ctx context.Context, location string) (Source, error) {
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
	if bucket == "" {
		return nil, fmt.Errorf("no bucket in %s", location)
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	slog.Debug("using s3 source", slog.String("bucket", bucket), slog.String("prefix", prefix))
	return &s3Source{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *s3Source) Location() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

func (s *s3Source) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *s3Source) List(ctx context.Context, dir string) ([]string, error) {
	prefix := s.key(dir)
	if prefix != "" && prefix != "." {
		prefix += "/"
	} else {
		prefix = ""
	}
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list s3://%s/%s", s.bucket, prefix)
		}
		for _, obj := range page.Contents {
			names = append(names, path.Base(aws.ToString(obj.Key)))
		}
	}
	if len(names) == 0 {
		return nil, errors.Wrapf(fs.ErrNotExist, "s3://%s/%s", s.bucket, prefix)
	}
	slices.Sort(names)
	return names, nil
}

func (s *s3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, errors.Wrapf(fs.ErrNotExist, "s3://%s/%s", s.bucket, s.key(name))
		}
		return nil, errors.Wrapf(err, "failed to get s3://%s/%s", s.bucket, s.key(name))
	}
	return resp.Body, nil
}

func (s *s3Source) Close() error {
	return nil
}
