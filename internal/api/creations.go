package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/illegalcall/quickai/internal/models"
	"github.com/illegalcall/quickai/internal/store"
)

func (s *Server) handleGetUserCreations(c *fiber.Ctx) error {
	acct := accountFrom(c)
	creations, err := s.creations.ListByUser(c.UserContext(), acct.ID)
	if err != nil {
		s.logger.Error("Error fetching creations", "user_id", acct.ID, "error", err)
		return failure(c, fiber.StatusInternalServerError, "Failed to fetch creations")
	}
	return c.JSON(models.CreationsResponse{Success: true, Creations: creations})
}

func (s *Server) handleGetPublishedCreations(c *fiber.Ctx) error {
	creations, err := s.feed.ListPublished(c.UserContext())
	if err != nil {
		s.logger.Error("Error fetching published creations", "error", err)
		return failure(c, fiber.StatusInternalServerError, "Failed to fetch creations")
	}
	return c.JSON(models.CreationsResponse{Success: true, Creations: creations})
}

// handleToggleLike accepts {"id": 12} or {"id": "12"}.
func (s *Server) handleToggleLike(c *fiber.Ctx) error {
	body := c.Body()
	if !gjson.ValidBytes(body) {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	id := int(gjson.GetBytes(body, "id").Int())
	if id <= 0 {
		return failure(c, fiber.StatusOK, "Creation not found")
	}

	acct := accountFrom(c)
	liked, likes, err := s.creations.ToggleLike(c.UserContext(), id, acct.ID)
	if err != nil {
		if errors.Is(err, store.ErrCreationNotFound) {
			return failure(c, fiber.StatusOK, "Creation not found")
		}
		s.logger.Error("Failed to toggle like", "creation_id", id, "error", err)
		return failure(c, fiber.StatusInternalServerError, "Failed to update likes")
	}

	if err := s.publisher.Publish(c.UserContext(), models.CreationEvent{
		Type:       models.EventCreationLiked,
		CreationID: id,
		UserID:     acct.ID,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("Failed to publish like event", "creation_id", id, "error", err)
	}

	message := "Creation Unliked"
	if liked {
		message = "Creation Liked"
	}
	return c.JSON(models.LikeResponse{Success: true, Message: message, Likes: likes})
}
