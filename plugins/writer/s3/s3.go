package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"slowniki/internal/rate"
	"slowniki/pkg/contract"
	wfs "slowniki/plugins/writer/filesystem"
)

// Options: 对象存储发布选项。
type Options struct {
	// Bucket: 目标桶（必需）。
	Bucket string `json:"bucket"`
	// Prefix: 对象键前缀，如 "slowniki/2024"；为空表示桶根。
	Prefix string `json:"prefix,omitempty"`
	// Region: 区域；为空时由 SDK 默认链解析。
	Region string `json:"region,omitempty"`
	// Endpoint: 自定义端点（MinIO/兼容服务）。
	Endpoint string `json:"endpoint,omitempty"`
	// PathStyle: 路径风格寻址，默认 true。
	PathStyle *bool `json:"path_style,omitempty"`
	// AccessKeyEnv/SecretKeyEnv: 静态凭证所在的环境变量名；均为空时使用 SDK 默认凭证链。
	AccessKeyEnv string `json:"access_key_env,omitempty"`
	SecretKeyEnv string `json:"secret_key_env,omitempty"`
	// Mirror: 同时写入本地数据根目录，供后续阶段回读。默认 true。
	Mirror *bool `json:"mirror,omitempty"`
	// MaxPutsPerMin/MaxBytesPerMin: 上传限流；0 表示不限。
	MaxPutsPerMin  int `json:"max_puts_per_min,omitempty"`
	MaxBytesPerMin int `json:"max_bytes_per_min,omitempty"`
}

// objectAPI: 本包使用的 S3 操作子集（*s3.Client 满足）。
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store 将工件发布到对象存储，并可选镜像到本地。
type Store struct {
	api    objectAPI
	bucket string
	prefix string
	mirror contract.Writer
	gate   *rate.Gate
}

// New 加载 AWS 配置并创建 Store；root 为本地镜像目录。
func New(ctx context.Context, root string, opts *Options) (*Store, error) {
	if opts == nil || strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("writer s3: bucket required: %w", contract.ErrInvalidInput)
	}
	var loads []func(*config.LoadOptions) error
	if opts.Region != "" {
		loads = append(loads, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyEnv != "" || opts.SecretKeyEnv != "" {
		ak, sk := os.Getenv(opts.AccessKeyEnv), os.Getenv(opts.SecretKeyEnv)
		if ak == "" || sk == "" {
			return nil, fmt.Errorf("writer s3: credentials env %s/%s empty: %w", opts.AccessKeyEnv, opts.SecretKeyEnv, contract.ErrInvalidInput)
		}
		loads = append(loads, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(ak, sk, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loads...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	pathStyle := opts.PathStyle == nil || *opts.PathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	var mirror contract.Writer
	if opts.Mirror == nil || *opts.Mirror {
		fw, err := wfs.New(root, nil)
		if err != nil {
			return nil, err
		}
		mirror = fw
	}
	st := newStore(client, opts.Bucket, opts.Prefix, mirror)
	st.gate = rate.NewGate(rate.Limits{RPM: opts.MaxPutsPerMin, BPM: opts.MaxBytesPerMin}, nil)
	return st, nil
}

func newStore(api objectAPI, bucket, prefix string, mirror contract.Writer) *Store {
	return &Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/"), mirror: mirror}
}

// Key 返回 id 对应的对象键。
func (s *Store) Key(id contract.FileID) (string, error) {
	rel := string(contract.NormalizeFileID(string(id)))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s: %w", id, contract.ErrPathInvalid)
	}
	if s.prefix == "" {
		return rel, nil
	}
	return path.Join(s.prefix, rel), nil
}

// Write 先写本地镜像（若启用），再上传对象。
func (s *Store) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	key, err := s.Key(id)
	if err != nil {
		return err
	}
	// PutObject 需要可 Seek 的 Body 以计算签名
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.Write(ctx, id, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("mirror: %w", err)
		}
	}
	if err := s.gate.Wait(ctx, len(data)); err != nil {
		return err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Open 下载对象；对象不存在返回 ErrInputMissing。
func (s *Store) Open(ctx context.Context, id contract.FileID) (io.ReadCloser, error) {
	key, err := s.Key(id)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", id, contract.ErrInputMissing)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return out.Body, nil
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".png":
		return "image/png"
	}
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

var (
	_ contract.Writer = (*Store)(nil)
	_ contract.Reader = (*Store)(nil)
)
