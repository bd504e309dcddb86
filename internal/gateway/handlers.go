package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crypto-analyst/internal/dashboard"
	"crypto-analyst/internal/model"
)

const DefaultRefreshTimeout = 2 * time.Minute

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Controller is the dashboard surface the API drives.
type Controller interface {
	Pairs() []model.Pair
	Selected() model.Pair
	AddPair(s string) (p model.Pair, changed bool, err error)
	Select(s string) (p model.Pair, changed bool, err error)
	Refresh(ctx context.Context) error
	View() dashboard.PairView
	Whales() dashboard.WhaleView
	State() dashboard.State
}

// Options configure the API. Zero values use the defaults.
type Options struct {
	Health         http.Handler // /healthz; 404 when nil
	Metrics        http.Handler // /metrics; default promhttp.Handler()
	Logger         *slog.Logger
	RefreshTimeout time.Duration
}

// API serves the REST endpoints and the WebSocket upgrade.
type API struct {
	dash    Controller
	hub     *Hub
	opts    Options
	logger  *slog.Logger
	baseCtx context.Context
	stop    context.CancelFunc

	// refreshes tracks background refreshes started by requests.
	refreshes sync.WaitGroup
}

// NewAPI creates an API.
func NewAPI(dash Controller, hub *Hub, opts Options) *API {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &API{
		dash:    dash,
		hub:     hub,
		opts:    opts,
		logger:  opts.Logger,
		baseCtx: ctx,
		stop:    cancel,
	}
}

// SetupRoutes configures all routes.
func (a *API) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(a.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	api := router.Group("/api")
	api.GET("/pairs", a.GetPairs)
	api.POST("/pairs", a.AddPair)
	api.POST("/select", a.SelectPair)
	api.POST("/refresh", a.Refresh)
	api.GET("/view", a.GetView)
	api.GET("/whales", a.GetWhales)
	api.GET("/state", a.GetState)

	router.GET("/ws", a.ServeWS)
	router.GET("/metrics", gin.WrapH(a.opts.Metrics))
	if a.opts.Health != nil {
		router.GET("/healthz", gin.WrapH(a.opts.Health))
	}

	return router
}

// Shutdown cancels background refreshes and waits for them to finish.
func (a *API) Shutdown() {
	a.stop()
	a.refreshes.Wait()
}

// Wait blocks until every background refresh started so far has finished.
func (a *API) Wait() {
	a.refreshes.Wait()
}

type pairRequest struct {
	Pair string `json:"pair" binding:"required"`
}

// GetPairs handles GET /api/pairs.
func (a *API) GetPairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pairs":    a.dash.Pairs(),
		"selected": a.dash.Selected(),
	})
}

// AddPair handles POST /api/pairs. The new pair is selected and refreshed.
func (a *API) AddPair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.handleError(c, err, http.StatusBadRequest, "body must be {\"pair\": \"BASE/QUOTE\"}")
		return
	}

	p, refreshing, err := a.dash.AddPair(req.Pair)
	if err != nil {
		a.handleError(c, err, http.StatusBadRequest, err.Error())
		return
	}
	if refreshing {
		a.startRefresh(c)
	}
	c.JSON(http.StatusCreated, gin.H{
		"pair":       p,
		"pairs":      a.dash.Pairs(),
		"refreshing": refreshing,
	})
}

// SelectPair handles POST /api/select. A changed selection starts a refresh.
func (a *API) SelectPair(c *gin.Context) {
	var req pairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.handleError(c, err, http.StatusBadRequest, "body must be {\"pair\": \"BASE/QUOTE\"}")
		return
	}

	p, refreshing, err := a.dash.Select(req.Pair)
	switch {
	case errors.Is(err, dashboard.ErrUnknownPair):
		a.handleError(c, err, http.StatusNotFound, err.Error())
		return
	case err != nil:
		a.handleError(c, err, http.StatusBadRequest, err.Error())
		return
	}
	if refreshing {
		a.startRefresh(c)
	}
	c.JSON(http.StatusAccepted, gin.H{"pair": p, "refreshing": refreshing})
}

// Refresh handles POST /api/refresh. The refresh runs in the background;
// results arrive over /ws or through /api/view.
func (a *API) Refresh(c *gin.Context) {
	a.startRefresh(c)
	c.JSON(http.StatusAccepted, gin.H{"pair": a.dash.Selected(), "refreshing": true})
}

// GetView handles GET /api/view.
func (a *API) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, a.dash.View())
}

// GetWhales handles GET /api/whales.
func (a *API) GetWhales(c *gin.Context) {
	c.JSON(http.StatusOK, a.dash.Whales())
}

// GetState handles GET /api/state.
func (a *API) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, a.dash.State())
}

// ServeWS handles GET /ws. Query last_ts limits the initial replay to
// channels updated after it.
func (a *API) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.Warn("ws upgrade failed", "request_id", c.GetString(RequestIDContextKey), "error", err)
		return
	}
	a.hub.HandleWSRequest(conn, c.Query("last_ts"))
}

func (a *API) startRefresh(c *gin.Context) {
	requestID := c.GetString(RequestIDContextKey)
	a.refreshes.Add(1)
	go func() {
		defer a.refreshes.Done()
		ctx, cancel := context.WithTimeout(a.baseCtx, a.opts.RefreshTimeout)
		defer cancel()

		err := a.dash.Refresh(ctx)
		switch {
		case err == nil:
		case errors.Is(err, dashboard.ErrSuperseded), errors.Is(err, context.Canceled):
			a.logger.Debug("refresh superseded", "request_id", requestID)
		default:
			a.logger.Info("refresh finished with errors", "request_id", requestID, "error", err)
		}
	}()
}

// handleError logs the error and sends the JSON error body.
func (a *API) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestID := c.GetString(RequestIDContextKey)
	if requestID == "" {
		requestID = "unknown"
	}

	a.logger.Warn("API error",
		slog.String("request_id", requestID),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
	)

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": requestID,
	})
}
