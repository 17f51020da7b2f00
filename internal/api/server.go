// Package api exposes the comparison pipeline over HTTP: submit two
// persisted runs, get back a stored divergence report.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/lockstepml/lockstep/internal/diverge"
	"github.com/lockstepml/lockstep/internal/logger"
	"github.com/lockstepml/lockstep/internal/validation"
	"github.com/lockstepml/lockstep/internal/version"
)

type Server struct {
	store *ReportStore
	log   logger.Logger
	clock func() time.Time
}

func NewServer(store *ReportStore, log logger.Logger) *Server {
	if store == nil {
		store = NewReportStore()
	}
	return &Server{
		store: store,
		log:   log,
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	e.POST("/v1/compare", s.handleCompare)
	e.GET("/v1/reports", s.handleListReports)
	e.GET("/v1/reports/:id", s.handleGetReport)
	e.DELETE("/v1/reports/:id", s.handleDeleteReport)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResp{
		Status:  "ok",
		Version: version.Resolve().Version,
	})
}

func (s *Server) handleCompare(c *echo.Context) error {
	req, err := decodeJSON[CompareRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	report, err := s.runCompare(req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) || isConfigError(err) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}

	stored := s.store.Save(report)
	if s.log != nil {
		s.log.Info("comparison stored",
			"id", stored.ID,
			"sequences", stored.Sequences,
			"level0_failures", stored.Level0Count)
	}
	return c.JSON(http.StatusOK, stored)
}

func (s *Server) handleGetReport(c *echo.Context) error {
	id := c.Param("id")
	report, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "report not found: "+id)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleListReports(c *echo.Context) error {
	return c.JSON(http.StatusOK, ReportList{
		Object: "list",
		Data:   s.store.List(),
	})
}

func (s *Server) handleDeleteReport(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "report not found: "+id)
	}
	return c.JSON(http.StatusOK, DeleteReportResp{
		ID:      id,
		Object:  "compare.report.deleted",
		Deleted: true,
	})
}

func (s *Server) runCompare(req CompareRequest) (CompareReport, error) {
	if req.ReferencePath == "" || req.TestPath == "" {
		return CompareReport{}, newInvalidRequest("reference_path and test_path are required")
	}
	if req.BatchSize <= 0 {
		return CompareReport{}, newInvalidRequest("batch_size must be positive")
	}

	kind := validation.KindTokens
	if req.Kind != "" {
		parsed, err := validation.ParseKind(req.Kind)
		if err != nil {
			return CompareReport{}, newInvalidRequest(err.Error())
		}
		kind = parsed
	}
	if kind == validation.KindText {
		return CompareReport{}, newInvalidRequest("text records need a tokenizer and are not served over HTTP")
	}

	ref, err := validation.Load(req.ReferencePath, kind, req.BatchSize, nil)
	if err != nil {
		return CompareReport{}, fmt.Errorf("reference: %w", err)
	}
	test, err := validation.Load(req.TestPath, kind, req.BatchSize, nil)
	if err != nil {
		return CompareReport{}, fmt.Errorf("test: %w", err)
	}

	report := CompareReport{
		CreatedAt:     s.clock().Unix(),
		ReferencePath: req.ReferencePath,
		TestPath:      req.TestPath,
		Kind:          string(kind),
		Sequences:     test.Len(),
	}

	mismatches := diverge.Level0(test.TokensBySequence(), ref.TokensBySequence())
	report.Level0Count = len(mismatches)
	for _, m := range mismatches {
		report.Level0 = append(report.Level0, MismatchDTO{Seq: m.Seq, Pos: m.Pos})
	}

	if kind == validation.KindLogits {
		summary, err := s.summarizeLevel1(ref, test, req.TopK, req.Threshold)
		if err != nil {
			return CompareReport{}, err
		}
		report.Level1 = summary
	}
	return report, nil
}

func (s *Server) summarizeLevel1(ref, test *validation.Info, topK *int, threshold *float64) (*Level1Summary, error) {
	var cmp diverge.Comparator
	if topK != nil {
		cmp = diverge.TopKLoss(*topK, diverge.MeanSquaredError)
	}

	metrics, err := diverge.CaptureLevel1(ref.LogitsBySequence(), test.LogitsBySequence(), cmp)
	if err != nil {
		return nil, err
	}

	summary := &Level1Summary{
		Metrics:   len(metrics),
		TopK:      topK,
		Threshold: threshold,
	}
	var sum float64
	for i, m := range metrics {
		if i == 0 || m.Value > summary.MaxValue {
			summary.MaxValue = m.Value
		}
		sum += m.Value
	}
	if len(metrics) > 0 {
		summary.MeanValue = sum / float64(len(metrics))
	}

	if threshold != nil {
		failed := diverge.FilterFailed(metrics, func(v float64) bool { return v > *threshold }, s.log)
		summary.FailureCount = len(failed)
		for _, m := range failed {
			summary.Failures = append(summary.Failures, MetricDTO{Seq: m.Seq, Pos: m.Pos, Value: m.Value})
		}
	}
	return summary, nil
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ReportError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
