package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/reactboard/internal/domain"
	apperrors "github.com/pscheid92/reactboard/internal/platform/errors"
)

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newRateLimiter(s.config.APIRate, s.config.APIBurst))
	api.GET("/mappings/count", s.handleCountMappings)
	api.GET("/mappings/by-counter/:counter_id", s.handleGetMappingByCounter)
	api.GET("/mappings/:reference_id", s.handleGetMappingByReference)
}

func (s *Server) handleGetMappingByReference(c echo.Context) error {
	referenceID := c.Param("reference_id")
	return s.lookupMapping(c, "reference_id", referenceID, s.mappings.FindByReference)
}

func (s *Server) handleGetMappingByCounter(c echo.Context) error {
	counterID := c.Param("counter_id")
	return s.lookupMapping(c, "counter_id", counterID, s.mappings.FindByCounter)
}

func (s *Server) lookupMapping(c echo.Context, field, id string, find func(context.Context, string) (*domain.BoardMapping, error)) error {
	if !isSnowflake(id) {
		return apperrors.ValidationError(field + " must be a numeric Discord ID").WithContext(field, id)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.StoreTimeout)
	defer cancel()

	mapping, err := find(ctx, id)
	if errors.Is(err, domain.ErrMappingNotFound) {
		return apperrors.NotFoundError("mapping not found").WithContext(field, id)
	}
	if err != nil {
		return apperrors.InternalError("failed to load mapping", err).WithContext(field, id)
	}

	if err := c.JSON(http.StatusOK, mapping); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCountMappings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.StoreTimeout)
	defer cancel()

	n, err := s.mappings.Count(ctx)
	if err != nil {
		return apperrors.UnavailableError("failed to count mappings", err)
	}

	if err := c.JSON(http.StatusOK, map[string]int64{"count": n}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func isSnowflake(id string) bool {
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}
