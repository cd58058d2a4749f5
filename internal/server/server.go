// Package server exposes the data service over HTTP: signup, time entries,
// tasks and plan generation, each scoped to the bearer token's user.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Tiliavir/timeplan/internal/auth"
	"github.com/Tiliavir/timeplan/internal/model"
	"github.com/Tiliavir/timeplan/internal/planner"
	"github.com/Tiliavir/timeplan/internal/store"
	"github.com/Tiliavir/timeplan/internal/tasks"
)

const localsUser = "user"

// Config wraps the knobs that impact runtime behavior.
type Config struct {
	Addr        string
	AdminEmails []string
}

// Server exposes the Fiber application.
type Server struct {
	app       *fiber.App
	db        store.DB
	completer planner.Completer
	cfg       Config
}

// SignupRequest is the body of POST /api/v1/signup.
type SignupRequest struct {
	Email string `json:"email"`
}

// PlanRequest is the body of POST /api/v1/plan.
type PlanRequest struct {
	Hours float64 `json:"hours"`
}

// New wires handlers and middleware. A nil completer disables plan generation.
func New(cfg Config, db store.DB, completer planner.Completer) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Format: "${time} | ${status} | ${latency} | ${method} ${path}\n"}))
	app.Use(cors.New())

	srv := &Server{app: app, db: db, completer: completer, cfg: cfg}
	srv.registerRoutes()
	return srv
}

// App returns the underlying Fiber application.
func (s *Server) App() *fiber.App { return s.app }

// Run starts listening for HTTP traffic until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.Shutdown()
	}()

	slog.Info("data service listening", "addr", s.cfg.Addr, "planner", s.completer != nil)
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/v1")
	api.Post("/signup", s.handleSignup)

	api.Get("/time-entries", s.requireUser, s.handleListEntries)
	api.Post("/time-entries", s.requireUser, s.handleCreateEntry)
	api.Patch("/time-entries/:id", s.requireUser, s.handleUpdateEntry)
	api.Get("/tasks", s.requireUser, s.handleListTasks)
	api.Post("/tasks", s.requireUser, s.handleCreateTask)
	api.Patch("/tasks/:id", s.requireUser, s.handleUpdateTask)
	api.Delete("/tasks/:id", s.requireUser, s.handleDeleteTask)
	api.Post("/plan", s.requireUser, s.handleGeneratePlan)
}

// errorHandler maps domain errors to status codes and renders {"error": msg}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, store.ErrUnauthorized):
		code = fiber.StatusUnauthorized
	case errors.Is(err, store.ErrAlreadyRunning), errors.Is(err, store.ErrEmailTaken):
		code = fiber.StatusConflict
	case errors.Is(err, store.ErrInvalidRange),
		errors.Is(err, model.ErrInvalidHours),
		errors.Is(err, tasks.ErrEmptyDescription),
		errors.Is(err, planner.ErrNoTasks),
		errors.Is(err, planner.ErrInvalidHours):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) requireUser(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return store.ErrUnauthorized
	}
	u, err := s.db.UserByToken(c.UserContext(), strings.TrimSpace(token))
	if err != nil {
		return err
	}
	c.Locals(localsUser, u)
	return c.Next()
}

func (s *Server) repo(c *fiber.Ctx) store.Repository {
	u := c.Locals(localsUser).(model.User)
	return store.ForUser(s.db, u.ID)
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var payload SignupRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	email := strings.TrimSpace(payload.Email)
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	fields := auth.DeriveSignupFields(email, s.cfg.AdminEmails)
	token := auth.NewToken()
	u, err := s.db.CreateUser(c.UserContext(), model.User{
		Email:    email,
		Username: fields.Username,
		IsAdmin:  fields.IsAdmin,
		Token:    token,
	})
	if err != nil {
		return err
	}
	slog.Info("user signed up", "email", email, "admin", u.IsAdmin)

	u.Token = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": u, "token": token})
}

func (s *Server) handleListEntries(c *fiber.Ctx) error {
	items, err := s.repo(c).ListTimeEntries(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"count": len(items)}})
}

func (s *Server) handleCreateEntry(c *fiber.Ctx) error {
	var payload model.NewTimeEntry
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Start.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "start is required")
	}
	e, err := s.repo(c).CreateTimeEntry(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": e})
}

func (s *Server) handleUpdateEntry(c *fiber.Ctx) error {
	var payload model.EntryUpdate
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	payload.ID = c.Params("id")
	e, err := s.repo(c).UpdateTimeEntry(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": e})
}

func (s *Server) handleListTasks(c *fiber.Ctx) error {
	items, err := s.repo(c).ListTasks(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items, "meta": fiber.Map{"count": len(items)}})
}

func (s *Server) handleCreateTask(c *fiber.Ctx) error {
	var payload struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	desc := strings.TrimSpace(payload.Description)
	if desc == "" {
		return tasks.ErrEmptyDescription
	}
	t, err := s.repo(c).CreateTask(c.UserContext(), desc)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": t})
}

func (s *Server) handleUpdateTask(c *fiber.Ctx) error {
	var payload model.TaskUpdate
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	payload.ID = c.Params("id")
	t, err := s.repo(c).UpdateTask(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": t})
}

func (s *Server) handleDeleteTask(c *fiber.Ctx) error {
	if err := s.repo(c).DeleteTask(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGeneratePlan(c *fiber.Ctx) error {
	if s.completer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "plan generation is not configured")
	}
	payload := PlanRequest{Hours: planner.DefaultHours}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
	}
	raw, err := planner.NewService(s.repo(c), s.completer).GeneratePlan(c.UserContext(), payload.Hours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": raw})
}
