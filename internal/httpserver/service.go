package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/logger"
	"go.uber.org/zap"
)

type Service struct {
	apiSrv *http.Server
}

func NewService(APIAddr string, h *Handlers) (*Service, error) {
	r := NewRouterObject(*h)
	router, err := r.GetRouter()
	if err != nil {
		return nil, err
	}

	service := &Service{
		apiSrv: &http.Server{
			Addr:              APIAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	return service, nil
}

func (s *Service) Run() error {
	logger.Log.Info("API Listening at",
		zap.String("Addr", s.apiSrv.Addr))
	if err := s.apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	logger.Log.Info("Shutting down API server")
	return s.apiSrv.Shutdown(ctx)
}
