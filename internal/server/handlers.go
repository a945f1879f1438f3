package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pders01/newsd/internal/feed"
	"github.com/pders01/newsd/internal/news"
	"github.com/pders01/newsd/internal/storage"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type preferencesRequest struct {
	Preferences []string `json:"preferences"`
}

type healthResponse struct {
	Status    string           `json:"status"`
	Uptime    string           `json:"uptime"`
	Users     int              `json:"users"`
	Cache     feed.Stats       `json:"cache"`
	TTL       time.Duration    `json:"ttl_ns"`
	Scheduler *schedulerHealth `json:"scheduler,omitempty"`
}

type schedulerHealth struct {
	Interval time.Duration `json:"interval_ns"`
	Ticks    uint64        `json:"ticks"`
}

func (s *Server) handleHealth(c *gin.Context) {
	cache := s.svc.Cache()
	stats := cache.Stats()

	status := "ok"
	if stats.Stale {
		status = "stale"
	}
	resp := healthResponse{
		Status: status,
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
		Users:  s.svc.Accounts().Count(),
		Cache:  stats,
		TTL:    cache.TTL(),
	}
	if s.scheduler != nil {
		resp.Scheduler = &schedulerHealth{
			Interval: s.scheduler.Interval(),
			Ticks:    s.scheduler.Ticks(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSignup(c *gin.Context) {
	var req news.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	if err := s.svc.Signup(req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User created"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}
	token, err := s.svc.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	prefs, err := s.svc.GetPreferences(c.GetString(ctxEmail))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (s *Server) handleUpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Preferences must be an array"})
		return
	}
	if err := s.svc.UpdatePreferences(c.GetString(ctxEmail), req.Preferences); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Preferences updated"})
}

func (s *Server) handleGetNews(c *gin.Context) {
	articles, err := s.svc.GetNews(c.Request.Context(), c.GetString(ctxEmail))
	respondNews(c, articles, err)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.svc.MarkRead(c.GetString(ctxEmail), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article marked as read"})
}

func (s *Server) handleMarkFavorite(c *gin.Context) {
	if err := s.svc.MarkFavorite(c.GetString(ctxEmail), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Article marked as favorite"})
}

func (s *Server) handleGetRead(c *gin.Context) {
	articles, err := s.svc.GetRead(c.GetString(ctxEmail))
	respondNews(c, articles, err)
}

func (s *Server) handleGetFavorites(c *gin.Context) {
	articles, err := s.svc.GetFavorites(c.GetString(ctxEmail))
	respondNews(c, articles, err)
}

// handleSearch serves both /news/search and /news/search/:keyword so a
// missing keyword gets a 400 instead of a 404.
// ?rank=relevance orders by score, with ?limit capping the results.
func (s *Server) handleSearch(c *gin.Context) {
	email := c.GetString(ctxEmail)
	keyword := c.Param("keyword")

	if !strings.EqualFold(c.Query("rank"), "relevance") {
		articles, err := s.svc.SearchNews(c.Request.Context(), email, keyword)
		respondNews(c, articles, err)
		return
	}

	limit := DefaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	articles, err := s.svc.SearchNewsRanked(c.Request.Context(), email, keyword, limit)
	respondNews(c, articles, err)
}

func respondNews(c *gin.Context, articles []storage.Article, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if articles == nil {
		articles = []storage.Article{}
	}
	c.JSON(http.StatusOK, gin.H{"news": articles})
}
