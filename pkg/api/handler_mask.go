package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/secretmask/pkg/metrics"
)

const (
	headerStrategy = "X-Secretmask-Strategy"
	headerRedacted = "X-Secretmask-Redacted"

	contentTypeYAML = "application/yaml"
)

// maskHandler handles POST /api/v1/mask.
// The body is one YAML or JSON document; the response is the masked YAML.
func (s *Server) maskHandler(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	data, err := io.ReadAll(body)
	if err == nil && len(data) == 0 {
		err = errEmptyBody
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	out, report, err := s.masker.MaskDocument(data)
	metrics.ObserveReport(report)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	for _, fieldErr := range report.FieldErrors {
		slog.Warn("Field could not be masked", "error", fieldErr)
	}

	c.Header(headerStrategy, report.Strategy().String())
	c.Header(headerRedacted, strconv.Itoa(report.Redacted))
	c.Data(http.StatusOK, contentTypeYAML, out)
}

func (s *Server) abortWithError(c *gin.Context, err error) {
	code, msg := mapError(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Error: msg})
}
