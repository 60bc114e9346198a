package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/junceapp/caseflow/internal/model"
)

type searchRequest struct {
	Filters  []model.Filter `json:"filters"`
	PageNum  int            `json:"pageNum"`
	PageSize int            `json:"pageSize"`
}

type keywordRequest struct {
	Keyword  string `json:"keyword"`
	PageNum  int    `json:"pageNum"`
	PageSize int    `json:"pageSize"`
}

func (k keywordRequest) page() model.PageRequest {
	return model.PageRequest{PageNum: k.PageNum, PageSize: k.PageSize}
}

func (s *Server) createCase(c *gin.Context) {
	var nc model.NewCase
	if err := c.ShouldBindJSON(&nc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	nc.UserID = actorID(c)
	id, err := s.cases.Create(c.Request.Context(), &nc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "case_id": id})
}

func (s *Server) getCase(c *gin.Context) {
	agg, err := s.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

func (s *Server) updateCase(c *gin.Context) {
	var nc model.NewCase
	if err := c.ShouldBindJSON(&nc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	nc.UserID = actorID(c)
	if err := s.cases.Update(c.Request.Context(), c.Param("id"), &nc); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) transitionCase(c *gin.Context) {
	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	req.CaseID = c.Param("id")
	req.ApproverID = actorID(c)
	to, err := s.cases.Transition(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": to, "case_id": req.CaseID})
}

func (s *Server) deleteCase(c *gin.Context) {
	if err := s.cases.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) markRead(c *gin.Context) {
	var req struct {
		CaseIDs []string `json:"case_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	n, err := s.cases.MarkRead(c.Request.Context(), actorID(c), req.CaseIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func (s *Server) searchCases(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	page, err := s.cases.Search(c.Request.Context(), req.Filters, model.PageRequest{PageNum: req.PageNum, PageSize: req.PageSize})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) wishCases(c *gin.Context) {
	s.keywordSearch(c, s.cases.WishCases)
}

func (s *Server) recentCases(c *gin.Context) {
	s.keywordSearch(c, s.cases.RecentCases)
}

func (s *Server) goingCases(c *gin.Context) {
	s.keywordSearch(c, s.cases.GoingCases)
}

func (s *Server) finishedCases(c *gin.Context) {
	s.keywordSearch(c, s.cases.FinishedCases)
}

func (s *Server) keywordSearch(c *gin.Context, fn func(ctx context.Context, keyword string, page model.PageRequest) (*model.CasePage, error)) {
	var req keywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	page, err := fn(c.Request.Context(), req.Keyword, req.page())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) myCases(c *gin.Context) {
	var req struct {
		Status   string `json:"status"`
		PageNum  int    `json:"pageNum"`
		PageSize int    `json:"pageSize"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	page, err := s.cases.MyCases(c.Request.Context(), actorID(c), req.Status, model.PageRequest{PageNum: req.PageNum, PageSize: req.PageSize})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) successResults(c *gin.Context) {
	page, err := s.cases.SuccessResults(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) lastChosen(c *gin.Context) {
	page, err := s.cases.LastChosen(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) unreadCounts(c *gin.Context) {
	counts, err := s.cases.UnreadCounts(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (s *Server) auditCounts(c *gin.Context) {
	counts, err := s.cases.AuditCounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
