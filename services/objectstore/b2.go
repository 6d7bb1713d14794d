package objectstore

import (
	"context"
	"io"
	"time"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
)

type B2Store struct {
	client *b2.Client
	bucket *b2.Bucket
	expiry time.Duration
}

var _ core.ObjectStore = (*B2Store)(nil)

func NewB2Store(ctx context.Context, conf core.StorageConfig) (*B2Store, error) {
	client, err := b2.NewClient(ctx, conf.AccountID, conf.ApplicationKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "getting bucket %s", conf.Bucket)
	}
	return &B2Store{client: client, bucket: bucket, expiry: conf.SignedURLExpiry}, nil
}

func (s *B2Store) UploadFile(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Wrapf(err, "writing object %s", key)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "closing object %s", key)
	}
	return nil
}

func (s *B2Store) SignedURL(ctx context.Context, key string) (string, error) {
	u, err := s.bucket.Object(key).AuthURL(ctx, s.expiry, "")
	if err != nil {
		return "", errors.Wrapf(err, "signing object %s", key)
	}
	return u.String(), nil
}
