// Package deploy uploads the rendered site to an S3 bucket.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/kxue43/blogpub/site"
)

type (
	logger interface {
		Debug(msg any, keyvals ...any)
		Info(msg any, keyvals ...any)
	}

	putter interface {
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	Uploader struct {
		client putter
		logger logger
		bucket string
		prefix string
	}

	RoleOptions struct {
		RoleArn     string
		SessionName string
		Duration    time.Duration
	}
)

const (
	ContentType = "text/html; charset=utf-8"

	DefaultSessionName = "blogpub"
)

var (
	ErrDeploy = errors.New("deploy failed")
)

// Files lists the site files to upload, as slash separated paths relative to the site root.
// The index comes first, followed by the rendered posts in lexical order.
// Non-nil returned error wraps [ErrDeploy].
func Files(cfg site.Config) ([]string, error) {
	if _, err := os.Stat(cfg.IndexPath()); err != nil {
		return nil, fmt.Errorf("%w: index page is missing: %s", ErrDeploy, err.Error())
	}

	matches, err := filepath.Glob(filepath.Join(cfg.PostsPath(), "*.html"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list rendered posts: %s", ErrDeploy, err.Error())
	}

	slices.Sort(matches)

	rels := make([]string, 0, len(matches)+1)

	for _, match := range append([]string{cfg.IndexPath()}, matches...) {
		rel, err := filepath.Rel(cfg.Root, match)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is outside the site root: %s", ErrDeploy, match, err.Error())
		}

		rels = append(rels, filepath.ToSlash(rel))
	}

	return rels, nil
}

// AssumeRole returns a cached credentials provider for the role in opts.
func AssumeRole(client stscreds.AssumeRoleAPIClient, opts RoleOptions) aws.CredentialsProvider {
	if opts.SessionName == "" {
		opts.SessionName = DefaultSessionName
	}

	provider := stscreds.NewAssumeRoleProvider(client, opts.RoleArn, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = opts.SessionName

		if opts.Duration > 0 {
			o.Duration = opts.Duration
		}
	})

	return aws.NewCredentialsCache(provider)
}

// NewClient builds an S3 client from the shared AWS configuration, narrowed by cfg.
// Non-nil returned error wraps [ErrDeploy].
func NewClient(ctx context.Context, cfg site.DeployConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS SDK configuration: %s", ErrDeploy, err.Error())
	}

	if cfg.RoleArn != "" {
		awsCfg.Credentials = AssumeRole(sts.NewFromConfig(awsCfg), RoleOptions{RoleArn: cfg.RoleArn})
	}

	return s3.NewFromConfig(awsCfg), nil
}

func NewUploader(client putter, bucket, prefix string, logger logger) *Uploader {
	return &Uploader{client: client, logger: logger, bucket: bucket, prefix: prefix}
}

// Key maps a site relative path to its object key.
func (u *Uploader) Key(rel string) string {
	if u.prefix == "" {
		return rel
	}

	return path.Join(u.prefix, rel)
}

// Upload puts every file in rels, resolved against root, into the bucket.
// It stops at the first failure.
// Non-nil returned error wraps [ErrDeploy].
func (u *Uploader) Upload(ctx context.Context, root string, rels []string) error {
	if u.bucket == "" {
		return fmt.Errorf("%w: no bucket configured", ErrDeploy)
	}

	for _, rel := range rels {
		if err := u.put(ctx, root, rel); err != nil {
			return err
		}
	}

	u.logger.Info("uploaded site", "bucket", u.bucket, "files", len(rels))

	return nil
}

func (u *Uploader) put(ctx context.Context, root, rel string) error {
	fd, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("%w: failed to open %q: %s", ErrDeploy, rel, err.Error())
	}

	defer func() { _ = fd.Close() }()

	key := u.Key(rel)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        fd,
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upload %q: %s", ErrDeploy, key, err.Error())
	}

	u.logger.Debug("uploaded", "key", key)

	return nil
}
