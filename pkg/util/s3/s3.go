// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"context"
	"io/fs"
	"mime"
	"path"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/minio/minio-go"
	"github.com/pkg/errors"
)

//go:generate mockgen -destination=./mocks/client.go github.com/testing-farm/schedule-runner/pkg/util/s3 Client

// Client is a interface to interact with a S3 object store
type Client interface {
	// FPutObject uploads the file at filePath as objectName.
	FPutObject(ctx context.Context, objectName, filePath, contentType string) error
}

type client struct {
	minioClient *minio.Client
	bucketName  string
}

// Config holds connection information for a s3 object storage
type Config struct {
	Endpoint   string
	SSL        bool
	BucketName string
	AccessKey  string
	SecretKey  string
}

// Validate checks that all mandatory connection information is set.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("no s3 endpoint defined")
	}
	if c.BucketName == "" {
		return errors.New("no s3 bucket defined")
	}
	return nil
}

// New creates a new s3 client which is a wrapper of the minio client
func New(config *Config) (Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	minioClient, err := minio.New(config.Endpoint, config.AccessKey, config.SecretKey, config.SSL)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create s3 client for %s", config.Endpoint)
	}

	ok, err := minioClient.BucketExists(config.BucketName)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting bucket %s", config.BucketName)
	}
	if !ok {
		return nil, errors.Errorf("bucket %s does not exist", config.BucketName)
	}
	return &client{
		minioClient: minioClient,
		bucketName:  config.BucketName,
	}, nil
}

func (c *client) FPutObject(ctx context.Context, objectName, filePath, contentType string) error {
	_, err := c.minioClient.FPutObjectWithContext(ctx, c.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// UploadDir uploads all regular files of dir. The object names are the slash separated
// paths relative to dir prefixed with prefix.
// It returns the names of all uploaded objects.
func UploadDir(ctx context.Context, log logr.Logger, c Client, prefix, dir string) ([]string, error) {
	uploaded := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		log.V(5).Info("uploading file", "file", p, "key", key)
		if err := c.FPutObject(ctx, key, p, contentType); err != nil {
			return errors.Wrapf(err, "unable to upload %s", p)
		}
		uploaded = append(uploaded, key)
		return nil
	})
	if err != nil {
		return uploaded, err
	}
	log.Info("uploaded results", "files", len(uploaded), "prefix", prefix)
	return uploaded, nil
}
