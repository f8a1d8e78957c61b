package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/pkg/doorlock"
)

// DoorController is the ESP32 door controller API
type DoorController interface {
	Status(ctx context.Context) (*doorlock.Status, error)
	Unlock(ctx context.Context) (doorlock.Result, error)
	Lock(ctx context.Context) (doorlock.Result, error)
	AuthorizedCards(ctx context.Context) ([]string, error)
	AddCard(ctx context.Context, cardID string) (doorlock.Result, error)
}

// DoorHandler lets operators drive the door controller directly
type DoorHandler struct {
	door   DoorController
	logger *logrus.Logger
}

// NewDoorHandler creates a new door handler
func NewDoorHandler(door DoorController, logger *logrus.Logger) *DoorHandler {
	return &DoorHandler{door: door, logger: logger}
}

func (h *DoorHandler) controllerError(c *gin.Context, op string, err error) {
	h.logger.WithError(err).WithField("operation", op).Warn("Door controller request failed")
	c.JSON(http.StatusBadGateway, ErrorResponse{
		Error:   "door_controller_error",
		Message: "Door controller did not respond",
	})
}

// Status handles GET /api/v1/door/status
func (h *DoorHandler) Status(c *gin.Context) {
	status, err := h.door.Status(c.Request.Context())
	if err != nil {
		h.controllerError(c, "door_status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Unlock handles POST /api/v1/door/unlock
func (h *DoorHandler) Unlock(c *gin.Context) {
	result, err := h.door.Unlock(c.Request.Context())
	if err != nil {
		h.controllerError(c, "door_unlock", err)
		return
	}
	h.logger.Info("Door unlocked by operator")
	c.JSON(http.StatusOK, result)
}

// Lock handles POST /api/v1/door/lock
func (h *DoorHandler) Lock(c *gin.Context) {
	result, err := h.door.Lock(c.Request.Context())
	if err != nil {
		h.controllerError(c, "door_lock", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cards handles GET /api/v1/door/cards
func (h *DoorHandler) Cards(c *gin.Context) {
	cards, err := h.door.AuthorizedCards(c.Request.Context())
	if err != nil {
		h.controllerError(c, "door_cards", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cards, "count": len(cards)})
}

// AddCardRequest pushes a card to the controller's offline list
type AddCardRequest struct {
	CardID string `json:"card_id" binding:"required"`
}

// AddCard handles POST /api/v1/door/cards
func (h *DoorHandler) AddCard(c *gin.Context) {
	var req AddCardRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.door.AddCard(c.Request.Context(), strings.TrimSpace(req.CardID))
	if err != nil {
		h.controllerError(c, "door_add_card", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
