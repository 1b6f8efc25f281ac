package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dutyjobdomain "github.com/navlun/landedcost/internal/dutyjob/domain"
	"github.com/navlun/landedcost/internal/dutyjob/liveevents"
	quotedomain "github.com/navlun/landedcost/internal/quote/domain"
)

func quoteMode(value string) quotedomain.ProviderMode {
	return quotedomain.ProviderMode(strings.ToLower(strings.TrimSpace(value)))
}

type createDutyJobRequest struct {
	JobID              string                       `json:"job_id"`
	SessionID          string                       `json:"session_id,omitempty"`
	OriginCountry      string                       `json:"origin_country"`
	DestinationCountry string                       `json:"destination_country"`
	CustomsValueCents  int64                        `json:"customs_value_cents"`
	ShippingCostCents  int64                        `json:"shipping_cost_cents"`
	Provider           string                       `json:"provider"`
	Package            dutyjobdomain.PackageDetails `json:"package_details"`
	Priority           *int                         `json:"priority,omitempty"`
}

type dutyJobResponse struct {
	JobID              string          `json:"job_id"`
	Status             string          `json:"status"`
	OriginCountry      string          `json:"origin_country"`
	DestinationCountry string          `json:"destination_country"`
	Provider           string          `json:"provider"`
	Priority           int             `json:"priority"`
	ResultData         json.RawMessage `json:"result_data,omitempty"`
	ErrorMessage       *string         `json:"error_message,omitempty"`
	ProcessingTimeMS   *int64          `json:"processing_time_ms,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

func (s *Server) CreateDutyJob(c *gin.Context) {
	var req createDutyJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	job, err := s.jobSvc.CreateJob(c.Request.Context(), dutyjobdomain.CreateJobParams{
		JobID:              strings.TrimSpace(req.JobID),
		SessionID:          strings.TrimSpace(req.SessionID),
		OriginCountry:      req.OriginCountry,
		DestinationCountry: req.DestinationCountry,
		CustomsValueCents:  req.CustomsValueCents,
		ShippingCostCents:  req.ShippingCostCents,
		Provider:           quoteMode(req.Provider),
		Package:            req.Package,
		Priority:           req.Priority,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": toDutyJobResponse(job)})
}

func (s *Server) GetDutyJob(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("job_id"))
	if jobID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	job, err := s.jobSvc.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if job == nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toDutyJobResponse(job)})
}

// StreamJobUpdates bridges the live hub onto server-sent events so a host
// without its own push channel can still consume terminal job updates.
func (s *Server) StreamJobUpdates(c *gin.Context) {
	if s.liveJobs == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	subscription, backlog, err := s.liveJobs.Subscribe(sessionID)
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	for _, update := range backlog {
		if err := writeJobUpdate(writer, update); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-subscription.Updates():
			if err := writeJobUpdate(writer, update); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJobUpdate(w io.Writer, update liveevents.JobUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func toDutyJobResponse(job *dutyjobdomain.DutyCalculationJob) dutyJobResponse {
	return dutyJobResponse{
		JobID:              job.JobID,
		Status:             string(job.Status),
		OriginCountry:      job.OriginCountry,
		DestinationCountry: job.DestinationCountry,
		Provider:           job.Provider,
		Priority:           job.Priority,
		ResultData:         json.RawMessage(job.ResultData),
		ErrorMessage:       job.ErrorMessage,
		ProcessingTimeMS:   job.ProcessingTimeMS,
		CreatedAt:          job.CreatedAt,
		StartedAt:          job.StartedAt,
		CompletedAt:        job.CompletedAt,
		ExpiresAt:          job.ExpiresAt,
	}
}
