package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lessonvox/lessonvox/internal/audio"
	"github.com/lessonvox/lessonvox/internal/compiler"
	"github.com/lessonvox/lessonvox/internal/lesson"
	"github.com/lessonvox/lessonvox/internal/orchestrator"
	"github.com/lessonvox/lessonvox/internal/script"
	"github.com/lessonvox/lessonvox/internal/store"
)

type scriptRequest struct {
	Track     string                `json:"track"`
	Sentences []lesson.SentencePair `json:"sentences"`
}

type parseRequest struct {
	Script string `json:"script"`
}

type compileRequest struct {
	Track     string                `json:"track"`
	Script    string                `json:"script"`
	Sentences []lesson.SentencePair `json:"sentences"`
	Format    string                `json:"format"`
}

type statusRequest struct {
	Status lesson.Status `json:"status"`
}

func (s *Server) buildScript(c *fiber.Ctx) error {
	var req scriptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	track, err := lesson.ParseTrackKind(req.Track)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	scr, err := script.Build(track, req.Sentences)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"track": track.String(), "script": scr})
}

func (s *Server) parseScript(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res := s.compiler.Parser().Parse(req.Script)
	return c.JSON(fiber.Map{
		"tokens":        res.Tokens,
		"diagnostics":   res.Diagnostics,
		"speech_count":  res.SpeechCount(),
		"total_silence": res.TotalSilence(),
	})
}

func (s *Server) compile(c *fiber.Ctx) error {
	var req compileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	track, err := lesson.ParseTrackKind(req.Track)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	scr := req.Script
	if strings.TrimSpace(scr) == "" {
		if scr, err = script.Build(track, req.Sentences); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	enc := s.encoder
	if req.Format == "wav" {
		enc = audio.WAVEncoder{}
	}

	res, err := s.compiler.CompileScript(c.UserContext(), scr, track)
	if errors.Is(err, compiler.ErrEmptyResult) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return err
	}

	data, err := enc.Encode(c.UserContext(), res.Audio)
	if err != nil {
		return err
	}

	c.Set("X-Lesson-Segments", strconv.Itoa(res.Segments))
	c.Set("X-Lesson-Dropped", strconv.Itoa(res.Dropped))
	c.Set("X-Lesson-Duration", strconv.FormatFloat(res.Audio.Seconds(), 'f', 3, 64))
	c.Set(fiber.HeaderContentType, enc.ContentType())
	return c.Send(data)
}

func (s *Server) processPending(c *fiber.Ctx) error {
	if s.orchestrator == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "request processing is not configured")
	}
	sum, err := s.orchestrator.ProcessPending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (s *Server) processOne(c *fiber.Ctx) error {
	if s.orchestrator == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "request processing is not configured")
	}
	out, err := s.orchestrator.ProcessByID(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrNotApproved):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return err
	}

	body := fiber.Map{"outcome": out}
	if out.Err != nil {
		body["error"] = out.Error()
	}
	return c.JSON(body)
}

func (s *Server) setStatus(c *fiber.Ctx) error {
	if s.requests == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "request store is not configured")
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if !req.Status.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status "+strconv.Quote(string(req.Status)))
	}

	err := s.requests.SetStatus(c.UserContext(), c.Params("id"), req.Status)
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
