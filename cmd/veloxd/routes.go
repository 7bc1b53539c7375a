package main

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/middleware"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/policy"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/router"
	"github.com/wyrexdev/velox/internal/task"
	"github.com/wyrexdev/velox/internal/util"
)

// uploadEntry is the per-file section of an upload response.
type uploadEntry struct {
	Field      string                 `json:"field"`
	Filename   string                 `json:"filename"`
	Validation *task.ValidationResult `json:"validation"`
	Metadata   *task.Metadata         `json:"metadata,omitempty"`
}

// registerRoutes installs the built-in API surface on the router.
func registerRoutes(rt *router.Router, workers *pool.Pool, logger observability.Logger) error {
	accessLog := middleware.AccessLog(logger)

	routes := []struct {
		method  string
		pattern string
		handler dispatch.Handler
	}{
		{http.MethodGet, "/v1/ping", handlePing},
		{http.MethodPost, "/v1/uploads", handleUploads(workers)},
		{http.MethodPost, "/v1/uploads/resize", handleResize(workers)},
		{http.MethodPost, "/v1/data/aggregate", handleAggregate(workers)},
	}

	for _, r := range routes {
		if err := rt.Handle(r.method, r.pattern, r.handler, accessLog); err != nil {
			return err
		}
	}
	return nil
}

func handlePing(c *dispatch.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleUploads validates every file part against the upload policies
// and extracts metadata for the admitted ones. Files are processed in
// field-name order so the response is stable.
func handleUploads(workers *pool.Pool) dispatch.Handler {
	return func(c *dispatch.Context) error {
		files := c.Files()
		if len(files) == 0 {
			return util.NewValidationError("at least one file part is required")
		}

		attrs := policy.Attributes{
			Method:     c.Method(),
			Path:       c.Path(),
			RemoteAddr: c.Request().RemoteAddr,
		}

		fields := make([]string, 0, len(files))
		for name := range files {
			fields = append(fields, name)
		}
		sort.Strings(fields)

		entries := make([]uploadEntry, 0, len(files))
		accepted := 0
		for _, name := range fields {
			file := files[name]

			res, err := workers.Submit(c.Context(), pool.TaskFileValidation, task.ValidationInput{
				File:  file,
				Attrs: attrs,
			})
			if err != nil {
				return err
			}
			verdict := res.(task.ValidationResult)

			entry := uploadEntry{
				Field:      name,
				Filename:   file.Filename,
				Validation: &verdict,
			}

			if verdict.Allowed {
				res, err = workers.Submit(c.Context(), pool.TaskFileProcessing, task.ProcessInput{File: file})
				if err != nil {
					return err
				}
				meta := res.(task.Metadata)
				entry.Metadata = &meta
				accepted++
			}

			entries = append(entries, entry)
		}

		status := http.StatusOK
		if accepted == 0 {
			status = http.StatusUnprocessableEntity
		}
		return c.JSON(status, map[string]any{
			"accepted": accepted,
			"rejected": len(entries) - accepted,
			"files":    entries,
		})
	}
}

// handleResize scales the uploaded image down to fit the configured
// bounding box and returns it inline.
func handleResize(workers *pool.Pool) dispatch.Handler {
	return func(c *dispatch.Context) error {
		file, ok := c.File("image")
		if !ok {
			return util.NewValidationError("an image file part is required")
		}

		res, err := workers.Submit(c.Context(), pool.TaskImageResize, task.ResizeInput{File: file})
		if err != nil {
			return err
		}
		result := res.(task.ResizeResult)

		c.SetHeader("X-Original-Dimensions", fmt.Sprintf("%dx%d", result.OriginalWidth, result.OriginalHeight))
		c.Bytes(http.StatusOK, "image/"+result.Format, result.Content)
		return nil
	}
}

// handleAggregate runs the numeric aggregation task over a JSON array
// posted as the request body.
func handleAggregate(workers *pool.Pool) dispatch.Handler {
	return func(c *dispatch.Context) error {
		body := c.Request().RawBody
		if len(body) == 0 {
			return util.NewValidationError("a JSON array of records is required")
		}

		res, err := workers.Submit(c.Context(), pool.TaskDataProcessing, task.DataInput{Records: body})
		if err != nil {
			return err
		}
		result := res.(task.DataResult)

		return c.JSON(http.StatusOK, result)
	}
}
