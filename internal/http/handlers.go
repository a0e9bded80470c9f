package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/logging"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.reg.Version()})
}

func (s *Server) handleStatus(c echo.Context) error {
	st, err := services.GetStatus(c.Request().Context(), s.reg)
	if err != nil {
		return s.fail(c, "status", err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleInject(c echo.Context) error {
	var req InjectRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt field is required")
	}

	res, err := s.reg.Engrams().Inject(c.Request().Context(), engram.InjectRequest{
		Prompt:       req.Prompt,
		Scope:        req.Scope,
		MaxTokens:    req.MaxTokens,
		MinRelevance: req.MinRelevance,
	})
	if err != nil {
		return s.fail(c, "inject", err)
	}

	return c.JSON(http.StatusOK, InjectResponse{
		Text:       res.Text,
		Directives: scoredViews(res.Directives),
		Consider:   scoredViews(res.Consider),
		Count:      res.Count,
		TokensUsed: res.TokensUsed,
	})
}

func (s *Server) handleLearn(c echo.Context) error {
	var req LearnRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	e, err := s.reg.Engrams().Learn(c.Request().Context(), engram.LearnInput{
		Statement:  req.Statement,
		Type:       engram.Kind(req.Type),
		Scope:      req.Scope,
		Tags:       req.Tags,
		Domain:     req.Domain,
		Rationale:  req.Rationale,
		Visibility: engram.Visibility(req.Visibility),
	})
	if err != nil {
		return s.fail(c, "learn", err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (s *Server) handlePromote(c echo.Context) error {
	var req IDsRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	res, err := s.reg.Engrams().Promote(c.Request().Context(), req.IDs)
	if err != nil {
		return s.fail(c, "promote", err)
	}

	resp := PromoteResponse{Promoted: res.Promoted, Errors: res.Errors}
	if resp.Promoted == nil {
		resp.Promoted = []*engram.Engram{}
	}
	if resp.Errors == nil {
		resp.Errors = []engram.ItemError{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleForget(c echo.Context) error {
	var req ForgetRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if (req.ID == "") == (req.Search == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "exactly one of id or search is required")
	}

	ctx := c.Request().Context()
	if req.ID != "" {
		e, err := s.reg.Engrams().Forget(ctx, req.ID)
		if err != nil {
			return s.fail(c, "forget", err)
		}
		return c.JSON(http.StatusOK, ForgetResponse{Retired: e, TotalMatches: 1})
	}

	res, err := s.reg.Engrams().ForgetSearch(ctx, req.Search)
	if errors.Is(err, engram.ErrAmbiguous) {
		return c.JSON(http.StatusConflict, ForgetResponse{Matches: res.Matches, TotalMatches: res.TotalMatches})
	}
	if err != nil {
		return s.fail(c, "forget", err)
	}
	return c.JSON(http.StatusOK, ForgetResponse{Retired: res.Retired, TotalMatches: res.TotalMatches})
}

func (s *Server) handleFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	signals := make([]engram.FeedbackSignal, 0, len(req.Signals))
	for _, sig := range req.Signals {
		parsed, err := engram.ParseSignal(sig.Signal)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		signals = append(signals, engram.FeedbackSignal{EngramID: sig.EngramID, Signal: parsed})
	}

	res, err := s.reg.Engrams().FeedbackBatch(c.Request().Context(), signals)
	if err != nil {
		return s.fail(c, "feedback", err)
	}

	resp := FeedbackResponse{Results: make([]FeedbackResult, 0, len(res.Results)), Summary: res.Summary}
	for _, item := range res.Results {
		r := FeedbackResult{EngramID: item.EngramID}
		if item.Err != nil {
			r.Error = item.Err.Error()
		} else {
			counts := item.Counts
			r.Signal = string(item.Signal)
			r.Source = item.Source
			r.Counts = &counts
		}
		resp.Results = append(resp.Results, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRecall(c echo.Context) error {
	var req RecallRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Topic) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic field is required")
	}

	hits, err := s.reg.Engrams().Recall(c.Request().Context(), req.Topic, req.Limit)
	if err != nil {
		return s.fail(c, "recall", err)
	}
	if hits == nil {
		hits = []engram.RecallHit{}
	}
	return c.JSON(http.StatusOK, RecallResponse{Hits: hits})
}

func (s *Server) handleScrub(c echo.Context) error {
	var req ScrubRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	scrubber := s.reg.Scrubber()
	if scrubber == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "secret scrubbing is disabled")
	}
	result := scrubber.Scrub(req.Content)

	s.requestLogger(c).Debug("scrubbed content",
		zap.Int("findings", len(result.Findings)))

	return c.JSON(http.StatusOK, ScrubResponse{
		Content:       result.Scrubbed,
		FindingsCount: len(result.Findings),
		ByRule:        result.ByRule,
	})
}

// requestLogger tags log entries with the request's correlation IDs.
func (s *Server) requestLogger(c echo.Context) *zap.Logger {
	return s.logger.With(logging.ContextFields(c.Request().Context())...)
}

func (s *Server) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		s.requestLogger(c).Warn("invalid request body",
			zap.String("path", c.Path()),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// fail maps service errors to HTTP status codes. Unclassified errors are
// logged and reported as 500 without their detail.
func (s *Server) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, engram.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, engram.ErrEmptyStatement), errors.Is(err, engram.ErrNoTargets),
		errors.Is(err, engram.ErrInvalidSignal), errors.Is(err, engram.ErrInvalidRecord):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, engram.ErrAmbiguous), errors.Is(err, engram.ErrAlreadyRetired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	s.requestLogger(c).Error("request failed",
		zap.String("op", op),
		zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, op+" failed")
}

func scoredViews(in []engram.Scored) []ScoredEngram {
	out := make([]ScoredEngram, 0, len(in))
	for _, sc := range in {
		v := ScoredEngram{
			ID:        sc.Engram.ID,
			Statement: sc.Engram.Statement,
			Type:      string(sc.Engram.Type),
			Score:     sc.Score,
			Source:    engram.SourcePersonal,
		}
		if !sc.Personal() {
			v.Source = engram.SourcePack
			v.Pack = sc.Source
		}
		out = append(out, v)
	}
	return out
}
