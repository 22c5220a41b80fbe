package api

import (
	"encoding/json"
	"strings"
	"time"

	models "PairPull/internal/domain/models"
	domrepo "PairPull/internal/domain/repository"
	icache "PairPull/internal/service/cache"
	"PairPull/internal/service/ratelimit"
	"PairPull/internal/usecase"
	xhttp "PairPull/pkg/http"
	xlogger "PairPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EngineEchoHandler exposes the signal engine over HTTP.
type EngineEchoHandler struct {
	logger   *xlogger.Logger
	runner   *usecase.SignalRunner
	backtest *usecase.BacktestUseCase
	cache    icache.BytesCache
	limiter  *ratelimit.Limiter
}

func NewEngineEchoHandler(
	logger *xlogger.Logger,
	runner *usecase.SignalRunner,
	backtest *usecase.BacktestUseCase,
	cache icache.BytesCache,
) *EngineEchoHandler {
	return &EngineEchoHandler{
		logger:   logger,
		runner:   runner,
		backtest: backtest,
		cache:    cache,
		limiter:  ratelimit.New(),
	}
}

func (h *EngineEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/pairs", h.Pairs)
	g.GET("/signal", h.Signal)
	g.GET("/signals", h.Signals)
	g.GET("/portfolio", h.Portfolio)
	g.GET("/diagnostics", h.Diagnostics)
	g.GET("/backtest", h.Backtest)
}

func (h *EngineEchoHandler) Pairs(c echo.Context) error {
	req := &models.PairsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pairs := h.runner.Pairs()
	if len(pairs) > req.Limit {
		pairs = pairs[:req.Limit]
	}
	return xhttp.SuccessResponse(c, pairs)
}

func (h *EngineEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, ok := h.runner.Signal(strings.ToUpper(req.Pair))
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("pair %s is not active", req.Pair))
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *EngineEchoHandler) Signals(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.runner.Signals())
}

func (h *EngineEchoHandler) Portfolio(c echo.Context) error {
	snap := h.runner.Portfolio()
	if snap == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no refresh has completed yet"))
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *EngineEchoHandler) Diagnostics(c echo.Context) error {
	diag, refreshed := h.runner.Diagnostics()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"refreshed_at": refreshed,
		"active_pairs": diag.ActivePairs,
		"candidates":   diag.Candidates,
		"viable":       diag.Viable,
		"pair_signals": diag.PairSignals,
		"portfolio":    diag.Portfolio,
	})
}

// Backtest runs the engine over stored history. Results are cached and the
// endpoint is token-bucket limited because a run is CPU heavy.
func (h *EngineEchoHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := splitSymbols(req.Symbols)
	if len(symbols) < 2 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("need at least two symbols"))
	}
	tf := domrepo.NormalizeTimeframe(req.TF)

	key := "backtest:" + strings.Join(symbols, ",") + ":" + string(tf)
	if h.cache != nil {
		if b, ok, _ := h.cache.GetBytes(key); ok {
			var cached usecase.BacktestSummary
			if err := json.Unmarshal(b, &cached); err == nil {
				return xhttp.SuccessResponse(c, &cached)
			}
		}
	}

	if !h.limiter.Allow("backtest", 2, 0.2) {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many backtest requests", 429))
	}

	start := time.Now()
	sum, err := h.backtest.Run(c.Request().Context(), symbols, req.N, tf)
	if err != nil {
		h.logger.Error("backtest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.logger.Info("backtest complete",
		xlogger.Strings("symbols", symbols),
		xlogger.Int("bars", sum.Bars),
		xlogger.Duration("duration_ms", time.Since(start)),
	)

	if h.cache != nil {
		if b, err := json.Marshal(sum); err == nil {
			_ = h.cache.SetBytes(key, b, 10*time.Minute)
		}
	}
	return xhttp.SuccessResponse(c, sum)
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ xhttp.Handler = (*EngineEchoHandler)(nil)
