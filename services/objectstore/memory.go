package objectstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
)

const linkAudience = "objects"

var ErrObjectNotFound = errors.New("object not found")

type object struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory, for local development and tests.
type MemoryStore struct {
	baseURL string
	secret  []byte
	expiry  time.Duration
	nowFunc func() time.Time

	mu      sync.RWMutex
	objects map[string]object
}

var _ core.ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store whose links are signed with secret and valid for expiry.
func NewMemoryStore(baseURL, secret string, expiry time.Duration) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		secret:  []byte(secret),
		expiry:  expiry,
		nowFunc: time.Now,
		objects: make(map[string]object),
	}
}

func (s *MemoryStore) UploadFile(ctx context.Context, key string, r io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return errors.Wrapf(err, "writing object %s", key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.objects[key] = object{data: buf.Bytes(), contentType: contentType}
	s.mu.Unlock()
	return nil
}

// SignedURL returns a link carrying a token bound to the key and its expiry time.
func (s *MemoryStore) SignedURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", errors.Wrap(ErrObjectNotFound, key)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Audience:  linkAudience,
		Subject:   key,
		ExpiresAt: s.nowFunc().Add(s.expiry).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing link")
	}

	q := make(url.Values)
	q.Set("token", token)
	return s.baseURL + "/objects/" + url.PathEscape(key) + "?" + q.Encode(), nil
}

// Open checks the token of a signed link to key, then returns the content and content type of the object.
func (s *MemoryStore) Open(key, token string) ([]byte, string, error) {
	var claims jwt.StandardClaims
	// expiry is checked against the store clock below
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) { return s.secret, nil })
	if err != nil || claims.Subject != key || !claims.VerifyAudience(linkAudience, true) {
		return nil, "", core.ErrLinkInvalid
	}
	if !claims.VerifyExpiresAt(s.nowFunc().Unix(), true) {
		return nil, "", core.ErrLinkExpired
	}
	return s.Get(key)
}

// Get returns the content and content type of an object.
func (s *MemoryStore) Get(key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", errors.Wrap(ErrObjectNotFound, key)
	}
	return obj.data, obj.contentType, nil
}
