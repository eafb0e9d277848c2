package api

import (
	"time"

	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
)

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type personSummary struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type gigResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Budget      float64        `json:"budget"`
	Status      string         `json:"status"`
	ClientID    string         `json:"clientId"`
	Client      *personSummary `json:"client,omitempty"`
	CreatedAt   string         `json:"createdAt"`
}

type gigSummary struct {
	Title  string  `json:"title"`
	Budget float64 `json:"budget"`
	Status string  `json:"status"`
}

type bidResponse struct {
	ID           string         `json:"id"`
	GigID        string         `json:"gigId"`
	FreelancerID string         `json:"freelancerId"`
	Amount       float64        `json:"amount"`
	Proposal     string         `json:"proposal"`
	Status       string         `json:"status"`
	CreatedAt    string         `json:"createdAt"`
	Freelancer   *personSummary `json:"freelancer,omitempty"`
	Gig          *gigSummary    `json:"gig,omitempty"`
}

type hireResponse struct {
	Message string      `json:"message"`
	Bid     bidResponse `json:"bid"`
	Gig     gigResponse `json:"gig"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func toGigResponse(g gig.Gig) gigResponse {
	return gigResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Budget:      g.Budget,
		Status:      string(g.Status),
		ClientID:    g.ClientID,
		CreatedAt:   formatTime(g.CreatedAt),
	}
}

func toListingResponse(l gig.Listing) gigResponse {
	resp := toGigResponse(l.Gig)
	if l.ClientName != "" || l.ClientEmail != "" {
		resp.Client = &personSummary{Name: l.ClientName, Email: l.ClientEmail}
	}
	return resp
}

func toListingResponses(list []gig.Listing) []gigResponse {
	out := make([]gigResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toListingResponse(l))
	}
	return out
}

func toBidResponse(b bid.Bid) bidResponse {
	return bidResponse{
		ID:           b.ID,
		GigID:        b.GigID,
		FreelancerID: b.FreelancerID,
		Amount:       b.Amount,
		Proposal:     b.Proposal,
		Status:       string(b.Status),
		CreatedAt:    formatTime(b.CreatedAt),
	}
}

func toGigBidResponses(list []bid.GigBid) []bidResponse {
	out := make([]bidResponse, 0, len(list))
	for _, gb := range list {
		resp := toBidResponse(gb.Bid)
		resp.Freelancer = &personSummary{Name: gb.FreelancerName, Email: gb.FreelancerEmail}
		out = append(out, resp)
	}
	return out
}

func toFreelancerBidResponses(list []bid.FreelancerBid) []bidResponse {
	out := make([]bidResponse, 0, len(list))
	for _, fb := range list {
		resp := toBidResponse(fb.Bid)
		resp.Gig = &gigSummary{Title: fb.GigTitle, Budget: fb.GigBudget, Status: fb.GigStatus}
		out = append(out, resp)
	}
	return out
}
