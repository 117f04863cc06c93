// Package api exposes the marketplace operations to the UI layer over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liquex-dev/liquex/internal/market"
	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/schema"
)

type Handler struct {
	Market *market.Service
}

// Routes mounts every endpoint on the given group.
func (h *Handler) Routes(g *gin.RouterGroup) {
	g.POST("/login", h.Login)
	g.POST("/requests", h.CreateRequest)
	g.GET("/requests/mine", h.MyRequests)
	g.GET("/requests/nearby", h.NearbyRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.POST("/requests/:id/accept", h.AcceptRequest)
	g.POST("/requests/:id/reject", h.RejectRequest)
	g.GET("/requests/:id/messages", h.ListMessages)
	g.POST("/requests/:id/messages", h.PostMessage)
	g.POST("/requests/:id/location", h.ShareLocation)
	g.GET("/requests/:id/passcode", h.ActivePasscode)
	g.POST("/requests/:id/passcode", h.IssuePasscode)
	g.POST("/requests/:id/passcode/verify", h.VerifyPasscode)
}

// actor resolves the acting user from the identity headers. The identity
// mechanism itself is external; the API only needs an opaque id and name.
func actor(c *gin.Context) (schema.Actor, bool) {
	id := c.GetHeader("X-Actor-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-Actor-ID header"})
		return schema.Actor{}, false
	}
	name := c.GetHeader("X-Actor-Name")
	if name == "" {
		name = id
	}
	return schema.Actor{ID: id, DisplayName: name}, true
}

// status maps the core error taxonomy onto HTTP status codes.
func status(err error) int {
	switch {
	case errors.Is(err, market.ErrValidation), errors.Is(err, market.ErrCodeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrNotFound), errors.Is(err, market.ErrNoActiveCode):
		return http.StatusNotFound
	case errors.Is(err, market.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, market.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, market.ErrCodeExpired):
		return http.StatusGone
	case errors.Is(err, market.ErrLocationUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(status(err), gin.H{"error": err.Error()})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Username    string `json:"username" binding:"required"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.Market.Login(input.Username, input.PhoneNumber)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Category    string   `json:"category" binding:"required"`
		CustomKind  string   `json:"custom_kind"`
		Description string   `json:"description" binding:"required"`
		Amount      string   `json:"amount"`
		Lat         *float64 `json:"lat"`
		Lon         *float64 `json:"lon"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category, err := schema.ParseCategory(input.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The browser's geolocation runs client-side; a body without a
	// coordinate means acquisition failed there.
	var loc *geo.Point
	if input.Lat != nil && input.Lon != nil {
		loc = &geo.Point{Lat: *input.Lat, Lon: *input.Lon}
	}

	req, err := h.Market.Create(market.CreateInput{
		Owner:       who,
		Category:    category,
		CustomKind:  input.CustomKind,
		Description: input.Description,
		Amount:      input.Amount,
		Location:    loc,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) GetRequest(c *gin.Context) {
	req, err := h.Market.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) MyRequests(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	reqs, err := h.Market.Mine(who)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) NearbyRequests(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": market.ErrLocationUnavailable.Error()})
		return
	}
	radius := geo.DefaultRadius
	if v := c.Query("radius"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			radius = r
		}
	}
	reqs, err := h.Market.Nearby(who, geo.Point{Lat: lat, Lon: lon}, radius)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	req, err := h.Market.Accept(c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) RejectRequest(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	req, err := h.Market.Reject(c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.Market.Messages(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) PostMessage(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.Market.PostMessage(c.Param("id"), who, input.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ShareLocation(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.Market.ShareLocation(c.Param("id"), who, geo.Point{Lat: input.Lat, Lon: input.Lon})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) IssuePasscode(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	code, err := h.Market.IssuePasscode(c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, code)
}

func (h *Handler) ActivePasscode(c *gin.Context) {
	code, err := h.Market.ActivePasscode(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

func (h *Handler) VerifyPasscode(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := h.Market.VerifyPasscode(c.Param("id"), who, input.Code)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
