package gin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/schedule"
	"github.com/gin-gonic/gin"
)

// Defaults for inspection routes.
const (
	DefaultFeedSize     = 50
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type schedulerStatus struct {
	Running bool       `json:"running"`
	NextRun *time.Time `json:"nextRun"`
}

type statusResponse struct {
	Running     bool                 `json:"running"`
	Scheduler   *schedulerStatus     `json:"scheduler,omitempty"`
	Sources     []string             `json:"sources"`
	States      []newsgrab.RunState  `json:"states"`
	Logs        []string             `json:"logs"`
	LastSummary *newsgrab.RunSummary `json:"lastSummary"`
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := statusResponse{
		Running:     s.Monitor.Running(),
		Sources:     s.sourceNames(),
		States:      s.Monitor.States(),
		Logs:        make([]string, 0, DefaultFeedSize),
		LastSummary: s.Monitor.LastSummary(),
	}
	if resp.States == nil {
		resp.States = []newsgrab.RunState{}
	}
	for _, e := range s.Monitor.Feed(DefaultFeedSize) {
		resp.Logs = append(resp.Logs, e.String())
	}
	if s.Scheduler != nil {
		st := &schedulerStatus{Running: s.Scheduler.Started()}
		for _, j := range s.Scheduler.Jobs() {
			if st.NextRun == nil || j.NextRun.Before(*st.NextRun) {
				next := j.NextRun
				st.NextRun = &next
			}
		}
		resp.Scheduler = st
	}
	c.JSON(http.StatusOK, resp)
}

type sourceStats struct {
	ArticlesCount int        `json:"articlesCount"`
	LastRun       *time.Time `json:"lastRun"`
}

type statsResponse struct {
	TotalArticles int                     `json:"totalArticles"`
	Sources       map[string]*sourceStats `json:"sources"`
	LastRun       *time.Time              `json:"lastRun"`
}

func (s *Server) handleStats(c *gin.Context) {
	resp := statsResponse{Sources: make(map[string]*sourceStats)}
	summary := s.Monitor.LastSummary()
	if summary != nil {
		resp.TotalArticles = summary.TotalArticles
		resp.LastRun = &summary.Time
	}
	for _, name := range s.sourceNames() {
		st := &sourceStats{}
		if summary != nil {
			st.ArticlesCount = summary.Sources[name]
			st.LastRun = resp.LastRun
		}
		resp.Sources[name] = st
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	filter := newsgrab.RunFilter{Limit: DefaultHistoryLimit}
	if v := c.Query("source"); v != "" {
		filter.Source = &v
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			s.writeError(c, newsgrab.Errorf(newsgrab.EINVALID, "limit must be between 1 and %d", MaxHistoryLimit))
			return
		}
		filter.Limit = n
	}

	runs := []*newsgrab.RunRecord{}
	if s.Runs != nil {
		found, err := s.Runs.FindRuns(c.Request.Context(), filter)
		if err != nil {
			s.writeError(c, err)
			return
		}
		runs = found
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

type triggerRequest struct {
	Source string `json:"source"`
}

// handleTrigger starts a batch for one source or all sources and returns
// before it finishes.
func (s *Server) handleTrigger(c *gin.Context) {
	var req triggerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, newsgrab.Errorf(newsgrab.EINVALID, "invalid trigger body"))
			return
		}
	}
	if req.Source == "" {
		req.Source = c.Query("source")
	}

	if req.Source != "" {
		if !s.Ingester.Has(req.Source) {
			s.writeError(c, newsgrab.Errorf(newsgrab.ENOTFOUND, "Source %s not found", req.Source))
			return
		}
		if st, ok := s.Monitor.State(req.Source); ok && st.Status == newsgrab.RunRunning {
			s.writeError(c, newsgrab.Errorf(newsgrab.ECONFLICT, "Source %s is already running", req.Source))
			return
		}
		s.background(func(ctx context.Context) {
			if _, err := s.Ingester.RunSource(ctx, req.Source); err != nil {
				s.logger().Warn("triggered run failed", "source", req.Source, "err", err)
			}
		})
		c.JSON(http.StatusAccepted, gin.H{"message": "Scraping triggered for " + req.Source, "source": req.Source})
		return
	}

	if s.Monitor.Running() {
		s.writeError(c, newsgrab.Errorf(newsgrab.ECONFLICT, "A run is already in progress"))
		return
	}
	s.background(func(ctx context.Context) {
		res := s.Ingester.RunAll(ctx)
		s.logger().Info("triggered batch finished", "articles", res.Total())
	})
	c.JSON(http.StatusAccepted, gin.H{"message": "Scraping triggered for all sources"})
}

func (s *Server) handleJobs(c *gin.Context) {
	jobs := []schedule.Job{}
	if s.Scheduler != nil {
		jobs = append(jobs, s.Scheduler.Jobs()...)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) handleSchedulerStart(c *gin.Context) {
	if s.Scheduler == nil {
		s.writeError(c, newsgrab.Errorf(newsgrab.EINVALID, "scheduler not configured"))
		return
	}
	if err := s.Scheduler.Schedule(s.ctx); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Scheduler started"})
}

func (s *Server) handleSchedulerStop(c *gin.Context) {
	id := c.Param("id")
	if s.Scheduler == nil {
		s.writeError(c, newsgrab.Errorf(newsgrab.ENOTFOUND, "Job %s not found", id))
		return
	}
	if err := s.Scheduler.Remove(id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job " + id + " stopped"})
}

func (s *Server) sourceNames() []string {
	cfgs := s.Ingester.Sources()
	names := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		names = append(names, cfg.Name)
	}
	return names
}

// background runs fn on the server context, tracked by Close.
func (s *Server) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}
