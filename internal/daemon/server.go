package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"coldcopy/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server exposes the watch daemon's status over local HTTP. It never
// carries backup content, only run metadata.
type Server struct {
	echo    *echo.Echo
	state   *State
	runRepo *repository.RunRepository
	port    int
	stopCh  chan struct{}
	log     *zap.Logger
}

func NewServer(state *State, runRepo *repository.RunRepository, port int, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		state:   state,
		runRepo: runRepo,
		port:    port,
		stopCh:  make(chan struct{}, 1),
		log:     log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/history", s.handleHistory)
	s.echo.POST("/stop", s.handleStop)
}

func (s *Server) Start() {
	go func() {
		addr := ":" + strconv.Itoa(s.port)
		s.log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleHistory(c echo.Context) error {
	n := 20
	if param := c.QueryParam("n"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid n",
			})
		}
		n = parsed
	}

	records, err := s.runRepo.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}

	return c.NoContent(http.StatusAccepted)
}
