// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/snackx/internal/shared"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// NoSession is an [oauth2.TokenSource] with no stored credentials.
type NoSession struct{}

func (NoSession) Token() (*oauth2.Token, error) { return nil, shared.ErrNotAuthenticated }

// StaticSession is an in-memory session store.
type StaticSession struct {
	Tok     *oauth2.Token
	Cleared bool
}

// NewStaticSession returns a session holding access.
func NewStaticSession(access string) *StaticSession {
	return &StaticSession{Tok: &oauth2.Token{AccessToken: access, TokenType: "Bearer"}}
}

func (s *StaticSession) Token() (*oauth2.Token, error) {
	if s.Tok == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.Tok, nil
}

func (s *StaticSession) Save(tok *oauth2.Token) error {
	s.Tok = tok
	s.Cleared = false
	return nil
}

func (s *StaticSession) Clear() error {
	s.Tok = nil
	s.Cleared = true
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
