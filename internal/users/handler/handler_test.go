package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"roster/internal/users/handler/mocks"
	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = s.newRouter("")
}

func (s *HandlerSuite) newRouter(adminToken string) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(s.service, logger, adminToken).Register(r)
	return r
}

func (s *HandlerSuite) do(r http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) TestQueryWithFilters() {
	s.service.EXPECT().Query(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, f models.Filter) (map[string]models.UserView, error) {
			s.Require().NotNil(f.HasImage)
			s.True(*f.HasImage)
			s.Require().NotNil(f.MinAge)
			s.Equal(30.0, *f.MinAge)
			s.Nil(f.MaxAge)
			return map[string]models.UserView{
				"42": {FirstName: "moh", LastName: "salah", BirthTS: "123455634", ImagePath: "42.png"},
			}, nil
		})

	w := s.do(s.router, http.MethodGet, "/data?is_image_exists=True&min_age=30", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/json", w.Header().Get("Content-Type"))
	var body map[string]map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal(map[string]string{"first_name": "moh", "last_name": "salah", "birthts": "123455634", "img_path": "42.png"}, body["42"])
}

func (s *HandlerSuite) TestQueryEmptyResultIsObject() {
	s.service.EXPECT().Query(gomock.Any(), models.Filter{}).Return(map[string]models.UserView{}, nil)
	w := s.do(s.router, http.MethodGet, "/data", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{}`, w.Body.String())
}

func (s *HandlerSuite) TestMalformedFiltersAreBadRequests() {
	for _, q := range []string{"is_image_exists=yes", "min_age=-3", "max_age=old"} {
		s.Run(q, func() {
			w := s.do(s.router, http.MethodGet, "/data?"+q, nil)
			s.Equal(http.StatusBadRequest, w.Code)
		})
	}
}

func (s *HandlerSuite) TestQueryFailure() {
	s.service.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeInternal, "failed to load users"))
	w := s.do(s.router, http.MethodGet, "/data", nil)
	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *HandlerSuite) TestRunPassReportsCounts() {
	s.service.EXPECT().RunPass(gomock.Any()).Return(models.PassResult{PassID: uuid.New(), Total: 5, Success: 3, Published: true}, nil)

	w := s.do(s.router, http.MethodPost, "/data", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	s.Equal("Out of 5 files for the users, 3 were successfully processed.", w.Body.String())
}

func (s *HandlerSuite) TestRunPassPublishFailureStillReportsCounts() {
	s.service.EXPECT().RunPass(gomock.Any()).Return(
		models.PassResult{Total: 2, Success: 2},
		dErrors.New(dErrors.CodePublishFault, "snapshot publish failed"),
	)

	w := s.do(s.router, http.MethodPost, "/data", nil)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal("Out of 2 files for the users, 2 were successfully processed.", w.Body.String())
}

func (s *HandlerSuite) TestRunPassBusy() {
	s.service.EXPECT().RunPass(gomock.Any()).Return(models.PassResult{}, dErrors.New(dErrors.CodePassInProgress, "gave up waiting for the running pass"))
	w := s.do(s.router, http.MethodPost, "/data", nil)
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerSuite) TestRunPassRequiresAdminTokenWhenConfigured() {
	r := s.newRouter("secret")

	w := s.do(r, http.MethodPost, "/data", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	s.service.EXPECT().RunPass(gomock.Any()).Return(models.PassResult{Total: 1, Success: 1}, nil)
	w = s.do(r, http.MethodPost, "/data", map[string]string{"X-Admin-Token": "secret"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestQueryIgnoresAdminToken() {
	r := s.newRouter("secret")
	s.service.EXPECT().Query(gomock.Any(), gomock.Any()).Return(map[string]models.UserView{}, nil)
	w := s.do(r, http.MethodGet, "/data", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestStatus() {
	s.Run("before the first pass", func() {
		s.service.EXPECT().LastPass(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "no pass has completed yet"))
		w := s.do(s.router, http.MethodGet, "/data/status", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
	s.Run("after a pass", func() {
		id := uuid.New()
		s.service.EXPECT().LastPass(gomock.Any()).Return(&models.PassResult{PassID: id, Total: 4, Success: 4, Published: true}, nil)
		w := s.do(s.router, http.MethodGet, "/data/status", nil)
		s.Equal(http.StatusOK, w.Code)
		var body models.PassResult
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal(id, body.PassID)
		s.True(body.Published)
	})
	s.Run("store failure", func() {
		s.service.EXPECT().LastPass(gomock.Any()).Return(nil, dErrors.Wrap(errors.New("redis down"), dErrors.CodeInternal, "failed to load pass status"))
		w := s.do(s.router, http.MethodGet, "/data/status", nil)
		s.Equal(http.StatusInternalServerError, w.Code)
	})
}
