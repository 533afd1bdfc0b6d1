package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/validation-portal/portal-client/internal/types"
)

// ReportsSelf lists the reports generated for the calling user
func (s *Server) ReportsSelf(c echo.Context) error {
	username, _ := c.Get(usernameKey).(string)
	base := c.Scheme() + "://" + c.Request().Host

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.ReportSummary, 0, len(s.reports))
	for _, r := range s.reports {
		if r.username != username {
			continue
		}
		u := base + "/media/reports/" + strconv.FormatInt(r.id, 10) + ".pdf"
		out = append(out, types.ReportSummary{
			ID:         r.id,
			Username:   r.username,
			ContentURL: &u,
			CreatedAt:  r.createdAt,
		})
	}

	return c.JSON(http.StatusOK, out)
}

// Media serves a stored report by `<id>.pdf`
func (s *Server) Media(c echo.Context) error {
	type requestData struct {
		Name string `param:"name" validate:"required"`
	}

	var rdata requestData

	err := c.Bind(&rdata)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, types.StringError("failed parsing request data"))
	}

	id, err := strconv.ParseInt(strings.TrimSuffix(rdata.Name, ".pdf"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, types.StringError("Not found."))
	}

	username, _ := c.Get(usernameKey).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reports {
		if r.id == id && r.username == username {
			return c.Blob(http.StatusOK, "application/pdf", r.content)
		}
	}

	return c.JSON(http.StatusNotFound, types.StringError("Not found."))
}

// DeleteReport removes one of the caller's reports
func (s *Server) DeleteReport(c echo.Context) error {
	type requestData struct {
		ID int64 `param:"id"`
	}

	var rdata requestData

	err := c.Bind(&rdata)
	if err != nil {
		return c.JSON(http.StatusNotFound, types.StringError("Report not found or you don't have permission"))
	}

	username, _ := c.Get(usernameKey).(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.reports {
		if r.id == rdata.ID && r.username == username {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}

	return c.JSON(http.StatusNotFound, types.StringError("Report not found or you don't have permission"))
}
