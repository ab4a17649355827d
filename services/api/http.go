package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pb "github.com/Cristiano-Saldanha-Uk/Scalping-Bot/proto"
)

// NewRouter builds the gin engine serving the REST API
func NewRouter(s *Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	s.SetupRoutes(r)
	return r
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktestRequest)
		api.GET("/backtest/:job_id", s.handleGetBacktestResult)
		api.GET("/strategies", s.handleStrategies)
		api.GET("/health", s.handleHealthCheck)
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func abort(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), gin.H{"error": err})
}

// handleBacktestRequest queues a job; ?wait=true runs it inline
func (s *Service) handleBacktestRequest(c *gin.Context) {
	var req pb.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, ErrInvalidParams.WithDetails(err.Error()))
		return
	}
	if c.Query("wait") == "true" {
		job := s.jobs.Create(&req)
		s.run(job.ID, &req)
		done, _ := s.jobs.Get(job.ID)
		if done.Error != nil {
			abort(c, done.Error)
			return
		}
		c.JSON(http.StatusOK, done)
		return
	}
	job, apiErr := s.Submit(&req)
	if apiErr != nil {
		abort(c, apiErr)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

func (s *Service) handleGetBacktestResult(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("job_id"))
	if !ok {
		abort(c, ErrJobNotFound.WithDetails(c.Param("job_id")))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Service) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.catalog})
}

func (s *Service) handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   s.version,
		"jobs":      s.jobs.Len(),
	})
}
