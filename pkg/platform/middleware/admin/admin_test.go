package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

// AdminMiddlewareSuite checks that a wrong token never reaches the trigger handler.
type AdminMiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestAdminMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareSuite))
}

func (s *AdminMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func (s *AdminMiddlewareSuite) serve(token string, header map[string]string) (int, bool, string) {
	called := false
	var actor string
	h := RequireAdminToken(token, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		actor = Actor(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/data", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code, called, actor
}

func (s *AdminMiddlewareSuite) TestTokenValidation() {
	s.Run("correct token passes and records actor", func() {
		code, called, actor := s.serve("secret", map[string]string{
			"X-Admin-Token": "secret",
			"X-Admin-Actor": "ops@example.com",
		})
		s.Equal(http.StatusOK, code)
		s.True(called)
		s.Equal("ops@example.com", actor)
	})

	s.Run("wrong token blocks handler", func() {
		code, called, _ := s.serve("secret", map[string]string{"X-Admin-Token": "nope"})
		s.Equal(http.StatusUnauthorized, code)
		s.False(called)
	})

	s.Run("missing token blocks handler", func() {
		code, called, _ := s.serve("secret", nil)
		s.Equal(http.StatusUnauthorized, code)
		s.False(called)
	})

	s.Run("empty configured token disables the check", func() {
		code, called, actor := s.serve("", nil)
		s.Equal(http.StatusOK, code)
		s.True(called)
		s.Empty(actor)
	})
}
