// Package objstore is an in-memory object store that accepts the pre-signed
// URLs it hands out. URLs are produced by the AWS SDK's S3 presigner in
// path-style form, so clients see the same shape as a real S3 endpoint.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	ErrDenied  = errors.New("access denied")
	ErrExpired = errors.New("request has expired")
	ErrMissing = errors.New("no such key")
)

type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Expiry is the lifetime of every pre-signed URL.
	Expiry time.Duration
}

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
	UpdatedAt   time.Time
}

type grant struct {
	method    string
	key       string
	expiresAt time.Time
}

type Store struct {
	cfg Config
	aws aws.Config
	now func() time.Time

	mu       sync.Mutex
	objects  map[string]Object
	grants   map[string]grant
	failNext []int
	rejected func(key string)
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 15 * time.Minute
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return &Store{
		cfg:     cfg,
		aws:     awsCfg,
		now:     time.Now,
		objects: make(map[string]Object),
		grants:  make(map[string]grant),
	}, nil
}

func (s *Store) Bucket() string { return s.cfg.Bucket }

// NewKey returns a fresh object key under prefix.
func NewKey(prefix string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%02d/%02d/%v", strings.Trim(prefix, "/"), d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *Store) presignClient(baseEndpoint string) *s3.PresignClient {
	client := s3.NewFromConfig(s.aws, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
		o.UsePathStyle = true
	})
	return s3.NewPresignClient(client)
}

// PresignPut returns a URL under baseEndpoint (e.g. http://host/storage)
// that accepts one PUT of key until it expires.
func (s *Store) PresignPut(ctx context.Context, baseEndpoint, key string) (string, time.Time, error) {
	bucket := s.cfg.Bucket
	req, err := s.presignClient(baseEndpoint).PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.Expiry))
	if err != nil {
		return "", time.Time{}, err
	}
	exp, err := s.remember(req.URL, "PUT", key)
	return req.URL, exp, err
}

// PresignGet is PresignPut for downloads.
func (s *Store) PresignGet(ctx context.Context, baseEndpoint, key string) (string, time.Time, error) {
	bucket := s.cfg.Bucket
	req, err := s.presignClient(baseEndpoint).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.Expiry))
	if err != nil {
		return "", time.Time{}, err
	}
	exp, err := s.remember(req.URL, "GET", key)
	return req.URL, exp, err
}

func (s *Store) remember(raw, method, key string) (time.Time, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	sig := u.Query().Get("X-Amz-Signature")
	if sig == "" {
		return time.Time{}, errors.New("presigned url has no signature")
	}

	exp := s.now().Add(s.cfg.Expiry)
	s.mu.Lock()
	s.grants[sig] = grant{method: method, key: key, expiresAt: exp}
	s.mu.Unlock()
	return exp, nil
}

// Authorize checks that query carries a signature this store issued for
// method on key and that it has not expired.
func (s *Store) Authorize(method, key string, query url.Values) error {
	s.mu.Lock()
	g, ok := s.grants[query.Get("X-Amz-Signature")]
	s.mu.Unlock()

	if !ok || g.method != method || g.key != key {
		return ErrDenied
	}
	if !s.now().Before(g.expiresAt) {
		return ErrExpired
	}
	return nil
}

// Expire invalidates every URL issued so far.
func (s *Store) Expire() {
	s.mu.Lock()
	for sig, g := range s.grants {
		g.expiresAt = time.Time{}
		s.grants[sig] = g
	}
	s.mu.Unlock()
}

// OnRejectedPut registers fn to run, without the store's lock held, for
// every PUT that was refused or whose body could not be read.
func (s *Store) OnRejectedPut(fn func(key string)) {
	s.mu.Lock()
	s.rejected = fn
	s.mu.Unlock()
}

func (s *Store) putRejected(key string) {
	s.mu.Lock()
	fn := s.rejected
	s.mu.Unlock()
	if fn != nil {
		fn(key)
	}
}

// FailNextPut makes the next PUT answer status without storing anything.
// Calls queue up.
func (s *Store) FailNextPut(status int) {
	s.mu.Lock()
	s.failNext = append(s.failNext, status)
	s.mu.Unlock()
}

func (s *Store) takeFailure() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failNext) == 0 {
		return 0, false
	}
	st := s.failNext[0]
	s.failNext = s.failNext[1:]
	return st, true
}

func (s *Store) Put(key string, data []byte, contentType string) {
	s.mu.Lock()
	s.objects[key] = Object{Data: data, ContentType: contentType, UpdatedAt: s.now()}
	s.mu.Unlock()
}

func (s *Store) Get(key string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	if !ok {
		return Object{}, ErrMissing
	}
	return o, nil
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
}
