package api

import (
	"errors"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/task-tracker/domain/user"
	"github.com/example/task-tracker/modules/auth"
	"github.com/example/task-tracker/modules/files"
	"github.com/example/task-tracker/modules/tasks"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authAdapter auth.AuthPort
	tasks       *tasks.Service
	blobs       files.BlobStore
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authAdapter auth.AuthPort, tasksService *tasks.Service, blobs files.BlobStore) *Handlers {
	return &Handlers{
		authAdapter: authAdapter,
		tasks:       tasksService,
		blobs:       blobs,
	}
}

// Register handles account creation. A successful registration is also a
// login: the session cookie is set on the response.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	session, err := h.authAdapter.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	setSessionCookie(c, session.Token)
	return c.Status(fiber.StatusCreated).JSON(UserEnvelope{User: UserResponse{
		ID:        session.User.ID,
		Username:  session.User.Username,
		CreatedAt: session.User.CreatedAt,
	}})
}

// Login handles credential verification and session issuance.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	session, err := h.authAdapter.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	setSessionCookie(c, session.Token)
	return c.Status(fiber.StatusOK).JSON(UserEnvelope{User: UserResponse{
		ID:        session.User.ID,
		Username:  session.User.Username,
		CreatedAt: session.User.CreatedAt,
	}})
}

// Logout clears the session cookie. It succeeds whether or not a valid
// session was presented.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	clearSessionCookie(c)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// Me returns the authenticated account.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	u, err := h.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		log.Printf("[api] Failed to load user %s: %v", claims.UserID, err)
		return internalError(c)
	}

	return c.Status(fiber.StatusOK).JSON(UserEnvelope{User: UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}})
}

// ListTasks returns the caller's tasks, optionally filtered by status.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	views, err := h.tasks.List(c.UserContext(), claims.UserID, c.Query("status"))
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(views)
}

// GetTask returns one of the caller's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	view, err := h.tasks.Get(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// CreateTask creates a task from a multipart or JSON body.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	in, uploads, err := parseTaskRequest(c)
	if err != nil {
		return h.handleParseError(c, err)
	}

	view, err := h.tasks.Create(c.UserContext(), claims.UserID, in, uploads)
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// UpdateTask applies a partial update, optionally attaching new files.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	in, uploads, err := parseTaskRequest(c)
	if err != nil {
		return h.handleParseError(c, err)
	}

	view, err := h.tasks.Update(c.UserContext(), claims.UserID, c.Params("id"), in, uploads)
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

// DeleteTask removes a task, its attachment rows and their blobs.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	if err := h.tasks.Delete(c.UserContext(), claims.UserID, c.Params("id")); err != nil {
		return h.handleTaskError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteFile removes a single attachment from one of the caller's tasks.
func (h *Handlers) DeleteFile(c *fiber.Ctx) error {
	claims := sessionClaims(c)
	if claims == nil {
		return unauthenticated(c)
	}

	if err := h.tasks.RemoveAttachment(c.UserContext(), claims.UserID, c.Params("id")); err != nil {
		return h.handleTaskError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ServeUpload streams a stored blob. Stored names are server-generated,
// so the name itself leaks nothing about the owner.
func (h *Handlers) ServeUpload(c *fiber.Ctx) error {
	name := c.Params("name")
	data, err := h.blobs.Open(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, files.ErrBlobNotFound) || errors.Is(err, files.ErrInvalidBlobName) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "File not found",
			})
		}
		log.Printf("[api] Failed to open blob %s: %v", name, err)
		return internalError(c)
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	return c.Send(data)
}

// Health handles health check requests.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "task-tracker",
	})
}

// handleTaskError maps task service errors to wire responses. The tasks
// service is wired in-process, so sentinel matching works directly.
func (h *Handlers) handleTaskError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case errors.Is(err, tasks.ErrTitleRequired):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "title_required",
			Message: "Title is required",
		})
	case errors.Is(err, tasks.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_status",
			Message: "Status must be pending, in_progress or done",
		})
	case errors.Is(err, tasks.ErrInvalidDueDate):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_due_date",
			Message: "Due date must be YYYY-MM-DD",
		})
	case errors.Is(err, tasks.ErrFileTooLarge):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "file_too_large",
			Message: "Each file must be 5MB or less",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return internalError(c)
	}
}

// handleParseError maps body parsing failures. The file size ceiling is
// the one service sentinel a parse can trip.
func (h *Handlers) handleParseError(c *fiber.Ctx, err error) error {
	if errors.Is(err, tasks.ErrFileTooLarge) {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: "Invalid request body",
	})
}

// handleAuthError maps auth errors to wire responses. Auth calls cross
// the service container, so errors are matched by message, not identity.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "username and password are required"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "missing_fields",
			Message: "Username and password are required",
		})
	case strings.Contains(errStr, "password must be at least"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "weak_password",
			Message: "Password must be at least 6 characters",
		})
	case strings.Contains(errStr, "username is already taken"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "username_taken",
			Message: "Username is already taken",
		})
	case strings.Contains(errStr, "invalid username or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid username or password",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return internalError(c)
	}
}

func sessionClaims(c *fiber.Ctx) *user.Claims {
	claims, ok := c.Locals(UserContextKey).(*user.Claims)
	if !ok {
		return nil
	}
	return claims
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(auth.SessionDuration),
		HTTPOnly: true,
		Secure:   os.Getenv("APP_ENV") == "production",
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/",
	})
}
