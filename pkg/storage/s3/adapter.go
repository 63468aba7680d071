package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"treevault/pkg/core"
	"treevault/pkg/storage"
	"treevault/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Adapter 把对象存到 S3 兼容的桶里 (AWS / MinIO)
type Adapter struct {
	client *s3.Client
	bucket string
	prefix string // 桶内的 key 前缀，多个仓库可以共用一个桶
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 必须使用 Path Style: http://host:9000/bucket/key
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &cfg.Bucket}); err != nil {
		if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &cfg.Bucket}); err != nil {
			// 并发创建或权限不足时继续，后续读写会给出真正的错误
			slog.Warn("failed to ensure bucket exists", "bucket", cfg.Bucket, "error", err)
		}
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &Adapter{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// objectKey: "aabbcc..." -> "<prefix>aa/bbcc..."
func (s *Adapter) objectKey(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return s.prefix + h
	}
	return s.prefix + h[:2] + "/" + h[2:]
}

// hashFromKey 是 objectKey 的逆过程
func (s *Adapter) hashFromKey(key string) types.Hash {
	key = strings.TrimPrefix(key, s.prefix)
	return types.Hash(strings.Replace(key, "/", "", 1))
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	// Head 比 Put 便宜，已存在就跳过
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(obj.ID())),
		Body:        bytes.NewReader(obj.Bytes()),
		ContentType: aws.String(contentType(obj.Type())),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s failed: %w", obj.ID(), err)
	}
	return nil
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s failed: %w", hash, err)
	}
	return resp.Body, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// 某些 S3 实现只返回一个 404 字符串
	if strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, err
}

// ExpandHash 用 ListObjectsV2 的前缀查询扩展短哈希
func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	in := string(short)
	if len(in) < storage.MinPrefixLen {
		return "", storage.ErrShortPrefix
	}

	// MaxKeys=2 足够区分 0 / 1 / 多个
	resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix + in[:2] + "/" + in[2:]),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return "", fmt.Errorf("s3 list failed: %w", err)
	}

	switch n := aws.ToInt32(resp.KeyCount); {
	case n == 0:
		return "", storage.ErrNotFound
	case n > 1:
		return "", storage.ErrAmbiguousHash
	}
	return s.hashFromKey(aws.ToString(resp.Contents[0].Key)), nil
}

func contentType(t core.ObjectType) string {
	if t == core.TypeChunk {
		return "application/octet-stream"
	}
	return "application/cbor"
}
