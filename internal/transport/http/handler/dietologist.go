package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/transport/http/response"
)

type DietologistHandler struct {
	dietologistService *app.DietologistService
}

type DietologistLoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,max=20"`
	Password    string `json:"password" binding:"required,max=128"`
}

type GroupRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

type JoinRequest struct {
	Code string `json:"code" binding:"required,max=16"`
}

type RespondRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

func NewDietologistHandler(dietologistService *app.DietologistService) *DietologistHandler {
	return &DietologistHandler{dietologistService: dietologistService}
}

func (h *DietologistHandler) Login(c *gin.Context) {
	var req DietologistLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.dietologistService.Login(c.Request.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		writeError(c, err, "login failed")
		return
	}
	response.OK(c, result)
}

func (h *DietologistHandler) CreateGroup(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	group, err := h.dietologistService.CreateGroup(c.Request.Context(), dietologistID, req.Name)
	if err != nil {
		writeError(c, err, "create group failed")
		return
	}
	response.Created(c, group)
}

func (h *DietologistHandler) ListGroups(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}

	groups, err := h.dietologistService.ListGroups(c.Request.Context(), dietologistID)
	if err != nil {
		writeError(c, err, "list groups failed")
		return
	}
	response.OK(c, groups)
}

func (h *DietologistHandler) RenameGroup(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}
	groupID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	group, err := h.dietologistService.RenameGroup(c.Request.Context(), dietologistID, groupID, req.Name)
	if err != nil {
		writeError(c, err, "rename group failed")
		return
	}
	response.OK(c, group)
}

// RequestJoin is called by a regular user holding a group code.
func (h *DietologistHandler) RequestJoin(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	request, err := h.dietologistService.RequestJoin(c.Request.Context(), userID, req.Code)
	if err != nil {
		writeError(c, err, "request join failed")
		return
	}
	response.Created(c, request)
}

func (h *DietologistHandler) ListRequests(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}

	requests, err := h.dietologistService.ListRequests(c.Request.Context(), dietologistID, c.Query("status"))
	if err != nil {
		writeError(c, err, "list requests failed")
		return
	}
	response.OK(c, requests)
}

func (h *DietologistHandler) RespondRequest(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	request, err := h.dietologistService.RespondRequest(c.Request.Context(), dietologistID, requestID, *req.Approve)
	if err != nil {
		writeError(c, err, "respond request failed")
		return
	}
	response.OK(c, request)
}

func (h *DietologistHandler) ListClients(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}

	clients, err := h.dietologistService.ListClients(c.Request.Context(), dietologistID)
	if err != nil {
		writeError(c, err, "list clients failed")
		return
	}
	response.OK(c, clients)
}

func (h *DietologistHandler) ClientDetail(c *gin.Context) {
	dietologistID, ok := currentUserID(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.dietologistService.ClientDetail(c.Request.Context(), dietologistID, userID)
	if err != nil {
		writeError(c, err, "get client failed")
		return
	}
	response.OK(c, detail)
}
