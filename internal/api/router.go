package api

import (
	"net/http"
	"strings"

	"github.com/Sergioohs/Trucopro/internal/middleware"
	"github.com/Sergioohs/Trucopro/internal/service"
	"github.com/Sergioohs/Trucopro/internal/service/lobby"
	"github.com/Sergioohs/Trucopro/internal/service/match"
	"github.com/Sergioohs/Trucopro/internal/ws"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
	"github.com/Sergioohs/Trucopro/pkg/ratelimit"
	"github.com/Sergioohs/Trucopro/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container, limiter *ratelimit.Limiter) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Lobby, services.Queue, limiter)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/truco/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", handler.Login)
		}

		v1.GET("/ranking", handler.Ranking)

		userGroup := v1.Group("/user")
		userGroup.Use(middleware.AuthRequired())
		{
			userGroup.GET("/profile", handler.GetProfile)
		}

		queueGroup := v1.Group("/queue")
		queueGroup.Use(middleware.AuthRequired())
		{
			queueGroup.POST("/join", handler.QueueJoin)
			queueGroup.POST("/cancel", handler.QueueCancel)
		}

		matchGroup := v1.Group("/match")
		matchGroup.Use(middleware.AuthRequired())
		{
			matchGroup.GET("/status", handler.MatchStatus)
		}

		roomGroup := v1.Group("/rooms")
		roomGroup.Use(middleware.AuthRequired())
		{
			roomGroup.POST("", handler.CreateRoom)
			roomGroup.POST("/join", handler.JoinRoom)
		}
	}

	adminGroup := r.Group("/admin")
	{
		adminGroup.POST("/auth/login", handler.AdminLogin)

		protected := adminGroup.Group("/")
		protected.Use(middleware.AdminAuthRequired())
		{
			protected.GET("/stats", handler.AdminStats)
			protected.PUT("/users/:nickname/ban", handler.AdminBanUser)
		}
	}

	r.GET("/ws/room/:roomId", wsHandler.HandleRoomWS)
}

type loginBody struct {
	Nickname string `json:"nickname" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
	Avatar   string `json:"avatar"`
}

type adminLoginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createRoomBody struct {
	Private bool `json:"private"`
}

type joinRoomBody struct {
	Code string `json:"code" binding:"required"`
}

type adminBanBody struct {
	Banned bool `json:"banned"`
}

func (h *Handler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), body.Nickname, body.Pin, body.Avatar)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case appErr.ErrInvalidNickname, appErr.ErrInvalidPin:
			status = http.StatusBadRequest
		case appErr.ErrInvalidCredentials:
			status = http.StatusUnauthorized
		case appErr.ErrUserBanned:
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body adminLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.services.Auth.AdminLogin(body.Username, body.Password)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, err.Error())
		return
	}

	response.Success(c, gin.H{"token": token})
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.services.User.Profile(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == appErr.ErrUserNotFound {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}
	response.Success(c, profile)
}

func (h *Handler) Ranking(c *gin.Context) {
	entries, err := h.services.User.Ranking(c.Request.Context(), c.Query("period"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{"ranking": entries})
}

func (h *Handler) QueueJoin(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.services.User.Profile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if profile.User.Banned {
		response.Error(c, http.StatusForbidden, appErr.ErrUserBanned.Error())
		return
	}

	h.services.Queue.Enqueue(match.Entry{
		UserID:   profile.User.ID,
		Nickname: profile.User.Nickname,
		Avatar:   profile.User.Avatar,
		MMR:      profile.User.MMR,
	})

	response.Success(c, gin.H{"status": match.QueueStatusQueued})
}

func (h *Handler) QueueCancel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.services.Queue.Dequeue(userID)
	h.services.Queue.ClearNotify(c.Request.Context(), userID)
	response.SuccessWithMsg(c, gin.H{"status": "cancelled"}, "")
}

func (h *Handler) MatchStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := h.services.Queue.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	if status.Status == match.QueueStatusMatched {
		h.services.Queue.ClearNotify(c.Request.Context(), userID)
	}

	response.Success(c, status)
}

func (h *Handler) CreateRoom(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	var body createRoomBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	room := h.services.Lobby.CreateRoom(body.Private)
	if _, err := room.Join(identity); err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.Success(c, gin.H{"roomId": room.ID(), "code": room.Code()})
}

func (h *Handler) JoinRoom(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		return
	}

	var body joinRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	room, reconnected, err := h.services.Lobby.JoinByCode(body.Code, identity)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.Success(c, gin.H{
		"roomId":      room.ID(),
		"code":        room.Code(),
		"reconnected": reconnected,
	})
}

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.services.Admin.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, stats)
}

func (h *Handler) AdminBanUser(c *gin.Context) {
	nickname := strings.TrimSpace(c.Param("nickname"))

	var body adminBanBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.services.Admin.SetBanned(c.Request.Context(), nickname, body.Banned)
	if err != nil {
		status := http.StatusInternalServerError
		if err == appErr.ErrUserNotFound {
			status = http.StatusNotFound
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, gin.H{"user": user})
}

// resolveIdentity loads the caller's current nickname and avatar; rooms
// always display what the account holds now, not what the token froze.
func (h *Handler) resolveIdentity(c *gin.Context) (lobby.Identity, bool) {
	userID, ok := getUserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return lobby.Identity{}, false
	}

	profile, err := h.services.User.Profile(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == appErr.ErrUserNotFound {
			status = http.StatusUnauthorized
		}
		response.Error(c, status, err.Error())
		return lobby.Identity{}, false
	}
	if profile.User.Banned {
		response.Error(c, http.StatusForbidden, appErr.ErrUserBanned.Error())
		return lobby.Identity{}, false
	}

	return lobby.Identity{
		UserID:   profile.User.ID,
		Nickname: profile.User.Nickname,
		Avatar:   profile.User.Avatar,
	}, true
}

func (h *Handler) handleRoomError(c *gin.Context, err error) {
	switch err {
	case appErr.ErrRoomNotFound:
		response.Error(c, http.StatusNotFound, err.Error())
	case appErr.ErrRoomFull:
		response.Error(c, http.StatusConflict, err.Error())
	case appErr.ErrRoomNotReady, appErr.ErrMatchInProgress:
		response.Error(c, http.StatusBadRequest, err.Error())
	case appErr.ErrNotSeated:
		response.Error(c, http.StatusForbidden, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
