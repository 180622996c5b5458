// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// SarifContentType is the media type registered for sarif logs.
const SarifContentType = "application/sarif+json"

// S3Client uploads exported documents to an s3 compatible object store.
type S3Client struct {
	mc *minio.Client
}

type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Region skips the bucket location lookup if set
	Region string
}

func NewS3Client(opts S3Options) (*S3Client, error) {
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create s3 client")
	}
	return &S3Client{mc: mc}, nil
}

// ObjectKey returns key, or the base name of the file if key is empty.
func ObjectKey(key, filePath string) string {
	if key != "" {
		return key
	}
	return filepath.Base(filePath)
}

// UploadFile puts the file at filePath into bucket under key.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key, filePath string) error {
	info, err := c.mc.FPutObject(ctx, bucket, key, filePath, minio.PutObjectOptions{
		ContentType: SarifContentType,
	})
	if err != nil {
		return errors.Wrapf(err, "could not upload %s to s3://%s/%s", filePath, bucket, key)
	}
	slog.Debug("uploaded sarif document", "bucket", info.Bucket, "key", info.Key, "size", info.Size)
	return nil
}
