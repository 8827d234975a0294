package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/likeswap/likeswap/internal/config"
	"github.com/likeswap/likeswap/internal/orchestrator"
	"github.com/likeswap/likeswap/internal/store"
)

// Server is the local HTTP admin API. It binds to loopback only; it exposes
// read endpoints over the stores plus a block operation, not a general
// control plane.
type Server struct {
	echo   *echo.Echo
	db     *store.DB
	orch   *orchestrator.Orchestrator
	cfg    *config.Config
	listen string
	logger *zap.Logger
}

// NewServer creates the admin API server.
func NewServer(p Params, db *store.DB, orch *orchestrator.Orchestrator, cfg *config.Config, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		db:     db,
		orch:   orch,
		cfg:    cfg,
		listen: cfg.Admin.Listen,
		logger: logger,
	}

	e.GET("/healthz", s.health(p.SessionName))
	e.GET("/v1/stats", s.stats)
	e.GET("/v1/contacts", s.listContacts)
	e.GET("/v1/contacts/:platform/:user_id", s.getContact)
	e.GET("/v1/exchanges/active", s.activeExchanges)
	e.POST("/v1/contacts/:id/block", s.blockContact)

	return s
}

// Start begins serving. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("admin API starting", zap.String("listen", s.listen))
	err := s.echo.Start(s.listen)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("admin API stopping")
	_ = s.echo.Shutdown(ctx)
}

func (s *Server) health(sessionName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"session": sessionName,
		})
	}
}

func (s *Server) stats(c echo.Context) error {
	contacts, err := s.db.CountContactsByStatus()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	exchanges, err := s.db.CountExchangesByStatus()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	today := time.Now().Format("2006-01-02")
	sent, err := s.db.SendsOn(today)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"contacts_by_status":  contacts,
		"exchanges_by_status": exchanges,
		"sends_today":         sent,
		"daily_send_cap":      s.cfg.Bot.DailySendCap,
	})
}

func (s *Server) listContacts(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	offset := 0
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	contacts, err := s.db.ListContacts(limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, contacts)
}

func (s *Server) getContact(c echo.Context) error {
	contact, err := s.db.GetContact(c.Param("platform"), c.Param("user_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if contact == nil {
		return echo.NewHTTPError(http.StatusNotFound, "contact not found")
	}
	return c.JSON(http.StatusOK, contact)
}

func (s *Server) activeExchanges(c echo.Context) error {
	exchanges, err := s.db.ListActiveExchanges()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, exchanges)
}

func (s *Server) blockContact(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contact id")
	}
	if err := s.orch.Block(id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "blocked"})
}
