package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"addrnorm/internal/export"
	"addrnorm/internal/ingest"
	"addrnorm/internal/models"
	"addrnorm/internal/store"
)

type normalizeRequest struct {
	Address string `json:"address" validate:"required,max=2000"`
}

type normalizeResponse struct {
	Record  models.AddressRecord     `json:"record"`
	Outcome models.ValidationOutcome `json:"outcome"`
}

type batchRequest struct {
	Source    string   `json:"source" validate:"max=255"`
	Addresses []string `json:"addresses" validate:"max=100000,dive,max=2000"`
}

type batchResponse struct {
	ID      string               `json:"id"`
	Summary models.BatchSummary  `json:"summary"`
	Errors  []models.ErrorRecord `json:"errors"`
}

type listQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

type exportQuery struct {
	Format string `form:"format" validate:"required,oneof=csv xlsx json md"`
	Table  string `form:"table" validate:"omitempty,oneof=results errors"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleNormalize(c *gin.Context) {
	var req normalizeRequest
	if err := s.bindJSON(c, &req); err != nil {
		s.fail(c, err)

		return
	}

	record, failure := s.processor.ProcessOne(1, req.Address)

	c.JSON(http.StatusOK, normalizeResponse{
		Record:  record,
		Outcome: outcomeOf(failure),
	})
}

// outcomeOf rebuilds the validation outcome from the error record of one address.
func outcomeOf(failure *models.ErrorRecord) models.ValidationOutcome {
	if failure == nil {
		return models.ValidationOutcome{Valid: true, Severity: models.SeverityLow}
	}

	return models.ValidationOutcome{Message: failure.Message, Severity: failure.Severity}
}

func (s *Server) handleCreateBatch(c *gin.Context) {
	source, addresses, err := s.readBatch(c)
	if err != nil {
		s.fail(c, err)

		return
	}

	result := s.processor.ProcessBatch(addresses)

	id, err := s.store.Save(c.Request.Context(), source, result)
	if err != nil {
		s.fail(c, fmt.Errorf("failed to archive batch: %w", err))

		return
	}

	s.log.Info("batch created",
		"batch", id,
		"source", source,
		"records", result.Summary.Total,
		"errors", result.Summary.ErrorCount,
		"request_id", requestID(c),
	)

	c.JSON(http.StatusCreated, batchResponse{
		ID:      id,
		Summary: result.Summary,
		Errors:  result.Errors,
	})
}

// readBatch accepts a multipart "file" upload or a JSON body.
func (s *Server) readBatch(c *gin.Context) (string, []string, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req batchRequest
		if err := s.bindJSON(c, &req); err != nil {
			return "", nil, err
		}

		return req.Source, req.Addresses, nil
	}

	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, badRequest(fmt.Errorf("file is required: %w", err))
	}

	format, err := ingest.DetectFormat(header.Filename)
	if name := c.PostForm("format"); name != "" {
		format, err = ingest.ParseFormat(name)
	}

	if err != nil {
		return "", nil, err
	}

	opts := ingest.Options{
		Column:    s.opts.Column,
		HasHeader: s.opts.HasHeader,
		MaxBytes:  s.opts.MaxUploadBytes,
	}

	if v := c.PostForm("column"); v != "" {
		column, convErr := strconv.Atoi(v)
		if convErr != nil || column < 0 {
			return "", nil, badRequest(fmt.Errorf("invalid column %q", v))
		}

		opts.Column = column
	}

	if v := c.PostForm("header"); v != "" {
		opts.HasHeader, _ = strconv.ParseBool(v)
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	addresses, err := ingest.Read(f, format, opts)
	if err != nil {
		return "", nil, badRequest(err)
	}

	return header.Filename, addresses, nil
}

func (s *Server) handleListBatches(c *gin.Context) {
	var q listQuery
	if err := s.bindQuery(c, &q); err != nil {
		s.fail(c, err)

		return
	}

	batches, err := s.store.List(c.Request.Context(), q.Limit)
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (s *Server) handleGetBatch(c *gin.Context) {
	entry, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)

		return
	}

	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleExportBatch(c *gin.Context) {
	var q exportQuery
	if err := s.bindQuery(c, &q); err != nil {
		s.fail(c, err)

		return
	}

	format, err := export.ParseFormat(q.Format)
	if err != nil {
		s.fail(c, err)

		return
	}

	table, err := export.ParseTable(q.Table)
	if err != nil {
		s.fail(c, err)

		return
	}

	entry, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)

		return
	}

	var buf bytes.Buffer

	err = export.Write(&buf, format, entry.Result,
		export.WithTable(table),
		export.WithBatchID(entry.ID),
		export.WithTime(entry.CreatedAt),
	)
	if err != nil {
		s.fail(c, err)

		return
	}

	name := entry.ID
	if format == export.FormatCSV {
		name += "_" + string(table)
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format.Extension()))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (s *Server) handleDeleteBatch(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)

		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return badRequest(fmt.Errorf("invalid JSON body: %w", err))
	}

	return s.check(dst)
}

func (s *Server) bindQuery(c *gin.Context, dst any) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return badRequest(fmt.Errorf("invalid query: %w", err))
	}

	return s.check(dst)
}

func (s *Server) check(dst any) error {
	err := s.validate.Struct(dst)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return badRequest(translateValidationErrors(validationErrs))
	}

	return err
}

// fail maps err to a status code and writes {"error": "..."}.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}
