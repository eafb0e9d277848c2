package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createGigRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Budget      *float64 `json:"budget" binding:"required"`
}

type submitBidRequest struct {
	GigID    string  `json:"gigId" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	Proposal string  `json:"proposal" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide all fields"})
		return
	}

	user, err := s.auth.Register(c.Request.Context(), auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     auth.Role(req.Role),
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	// New accounts are signed in straight away.
	result, err := s.auth.Login(c.Request.Context(), auth.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.setSessionCookie(c, result.Token, int(s.opts.TokenTTL.Seconds()))
	c.JSON(http.StatusCreated, toUserResponse(*user))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide email and password"})
		return
	}

	result, err := s.auth.Login(c.Request.Context(), auth.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.setSessionCookie(c, result.Token, int(s.opts.TokenTTL.Seconds()))
	c.JSON(http.StatusOK, toUserResponse(result.User))
}

func (s *Server) handleLogout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.auth.GetUserByID(c.Request.Context(), c.GetString(ctxKeyUserID))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(*user))
}

func (s *Server) handleListGigs(c *gin.Context) {
	list, err := s.gigs.List(c.Request.Context(), gig.Filters{Search: strings.TrimSpace(c.Query("search"))})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(list))
}

func (s *Server) handleMyGigs(c *gin.Context) {
	list, err := s.gigs.ListForClient(c.Request.Context(), c.GetString(ctxKeyUserID))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(list))
}

func (s *Server) handleGetGig(c *gin.Context) {
	listing, err := s.gigs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(listing))
}

func (s *Server) handleCreateGig(c *gin.Context) {
	var req createGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide all fields"})
		return
	}

	created, err := s.gigs.Create(c.Request.Context(), gig.CreateParams{
		ClientID:    c.GetString(ctxKeyUserID),
		Title:       req.Title,
		Description: req.Description,
		Budget:      *req.Budget,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGigResponse(created))
}

func (s *Server) handleSubmitBid(c *gin.Context) {
	var req submitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please provide all fields"})
		return
	}

	created, err := s.bids.Submit(c.Request.Context(), bid.SubmitParams{
		GigID:        req.GigID,
		FreelancerID: c.GetString(ctxKeyUserID),
		Amount:       req.Amount,
		Proposal:     req.Proposal,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBidResponse(created))
}

func (s *Server) handleGigBids(c *gin.Context) {
	list, err := s.bids.ListForGig(c.Request.Context(), c.GetString(ctxKeyUserID), c.Param("gigId"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toGigBidResponses(list))
}

func (s *Server) handleMyBids(c *gin.Context) {
	list, err := s.bids.ListForFreelancer(c.Request.Context(), c.GetString(ctxKeyUserID))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFreelancerBidResponses(list))
}

func (s *Server) handleHire(c *gin.Context) {
	res, err := s.hire.Hire(c.Request.Context(), c.GetString(ctxKeyUserID), c.Param("bidId"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, hireResponse{
		Message: "Freelancer hired successfully",
		Bid:     toBidResponse(res.Bid),
		Gig:     toGigResponse(res.Gig),
	})
}
