package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/quickai/internal/models"
	"github.com/illegalcall/quickai/internal/pipeline"
	"github.com/illegalcall/quickai/internal/provider"
	"github.com/illegalcall/quickai/internal/quota"
)

type articleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type promptRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

func (s *Server) handleGenerateArticle(c *fiber.Ctx) error {
	var req articleRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	return s.run(c, provider.NewArticle(req.Prompt, req.Length))
}

func (s *Server) handleGenerateBlogTitle(c *fiber.Ctx) error {
	var req promptRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	return s.run(c, provider.NewBlogTitle(req.Prompt))
}

func (s *Server) handleGenerateImage(c *fiber.Ctx) error {
	var req promptRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body")
	}
	return s.run(c, provider.ImageSynthesis{Prompt: req.Prompt, Publish: req.Publish})
}

func (s *Server) handleRemoveBackground(c *fiber.Ctx) error {
	image, err := formFile(c, "image")
	if err != nil {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	return s.run(c, provider.BackgroundRemoval{Image: image})
}

func (s *Server) handleRemoveObject(c *fiber.Ctx) error {
	image, err := formFile(c, "image")
	if err != nil {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	return s.run(c, provider.ObjectRemoval{Image: image, Object: c.FormValue("object")})
}

func (s *Server) handleResumeReview(c *fiber.Ctx) error {
	resume, err := formFile(c, "resume")
	if err != nil {
		return failure(c, fiber.StatusBadRequest, err.Error())
	}
	return s.run(c, provider.DocumentExtraction{Document: resume})
}

// formFile reads an uploaded file. A missing part yields nil so the
// operation's own validation reports it.
func formFile(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s upload", field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s upload", field)
	}
	return data, nil
}

func (s *Server) run(c *fiber.Ctx, op provider.Operation) error {
	out, err := s.pipeline.Run(c.UserContext(), accountFrom(c), op)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(models.APIResponse{Success: true, Content: out.Content})
}

// respondError maps pipeline errors onto the response envelope. Rejections
// and denials are normal answers, not HTTP errors.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var verr *provider.ValidationError
	if errors.As(err, &verr) {
		return failure(c, fiber.StatusOK, verr.Message)
	}
	for _, denial := range []error{quota.ErrLimitReached, quota.ErrPremiumOnly} {
		if errors.Is(err, denial) {
			return failure(c, fiber.StatusOK, denial.Error())
		}
	}

	cause := err
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		cause = stageErr.Err
	}
	s.logger.Error("Generation failed", "path", c.Path(), "error", err)
	return failure(c, fiber.StatusInternalServerError, cause.Error())
}
