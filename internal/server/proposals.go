package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/axiombi/insightd/internal/analysis"
	"github.com/axiombi/insightd/internal/store"
)

// ProposalsResponse is the response body for GET /proposals.
type ProposalsResponse struct {
	Proposals []store.StrategyProposal `json:"proposals"`
}

// IndicatorSetsResponse lists the stored indicator set names.
type IndicatorSetsResponse struct {
	Names []string `json:"names"`
}

// IndicatorSetResponse is one named indicator set.
type IndicatorSetResponse struct {
	Name       string                     `json:"name"`
	Indicators []analysis.IndicatorTarget `json:"indicators"`
}

func (s *Server) handleListProposals(c echo.Context) error {
	return c.JSON(http.StatusOK, ProposalsResponse{Proposals: s.deps.Proposals.Proposals()})
}

func (s *Server) handleAddProposal(c echo.Context) error {
	var p store.StrategyProposal
	if err := c.Bind(&p); err != nil {
		s.logger.Warn("invalid proposal", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if p.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title field is required")
	}

	stored, err := s.deps.Proposals.AddProposal(p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, stored)
}

func (s *Server) handleDeleteProposal(c echo.Context) error {
	id := c.Param("id")
	if err := s.deps.Proposals.DeleteProposal(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no proposal with id "+id)
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListIndicatorSets(c echo.Context) error {
	return c.JSON(http.StatusOK, IndicatorSetsResponse{Names: s.deps.Proposals.IndicatorSetNames()})
}

func (s *Server) handleGetIndicatorSet(c echo.Context) error {
	name := c.Param("name")
	set, ok := s.deps.Proposals.IndicatorSet(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no indicator set named "+name)
	}
	return c.JSON(http.StatusOK, IndicatorSetResponse{Name: name, Indicators: set})
}

func (s *Server) handlePutIndicatorSet(c echo.Context) error {
	name := c.Param("name")

	var indicators []analysis.IndicatorTarget
	if err := c.Bind(&indicators); err != nil {
		s.logger.Warn("invalid indicator set", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(indicators) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one indicator is required")
	}

	if err := s.deps.Proposals.SaveIndicatorSet(name, indicators); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, IndicatorSetResponse{Name: name, Indicators: indicators})
}
