package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/task-tracker/domain/user"
	"github.com/example/task-tracker/modules/broadcast"
	"github.com/example/task-tracker/modules/tasks"
)

// WebSocket command actions. Every mutation here shares semantics with
// its REST counterpart; the command layer only decodes and acknowledges.
const (
	ActionTasksGet    = "tasks:get"
	ActionTasksCreate = "tasks:create"
	ActionTasksUpdate = "tasks:update"
	ActionTasksDelete = "tasks:delete"
)

// Command is one client request frame.
type Command struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result is the acknowledgement frame for one command.
type Result struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type getPayload struct {
	Status string `json:"status,omitempty"`
}

type updatePayload struct {
	ID string `json:"id"`
	tasks.Input
}

type deletePayload struct {
	ID string `json:"id"`
}

// upgradeMiddleware authenticates the session before the protocol switch.
// The cookie is the primary carrier; a token query parameter is accepted
// for clients that cannot send cookies on WebSocket requests.
func (m *APIModule) upgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Cookies(SessionCookie)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
	}

	claims, err := m.authAdapter.ValidateToken(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired session",
		})
	}

	c.Locals(UserContextKey, claims)
	return c.Next()
}

// handleWebSocket runs one connection: register with the hub, loop over
// command frames, unregister on any read failure.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	claims, ok := c.Locals(UserContextKey).(*user.Claims)
	if !ok {
		_ = c.Close()
		return
	}

	client := &broadcast.Client{
		ID:      uuid.New().String(),
		OwnerID: claims.UserID,
		Conn:    c,
	}
	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		_ = c.Close()
	}()

	log.Printf("[api] WebSocket connected: client %s owner %s", client.ID, client.OwnerID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[api] WebSocket error: client %s: %v", client.ID, err)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(msgBytes, &cmd); err != nil {
			m.sendResult(client, Result{Type: "error", Success: false, Error: "Invalid message format"})
			continue
		}

		m.handleCommand(client, claims.UserID, cmd)
	}

	log.Printf("[api] WebSocket disconnected: client %s", client.ID)
}

// handleCommand dispatches one decoded command frame and acknowledges it.
func (m *APIModule) handleCommand(client *broadcast.Client, ownerID string, cmd Command) {
	m.sendResult(client, m.executeCommand(context.Background(), ownerID, cmd))
}

// executeCommand runs one command against the task service and builds
// the acknowledgement frame for it.
func (m *APIModule) executeCommand(ctx context.Context, ownerID string, cmd Command) Result {
	switch cmd.Action {
	case ActionTasksGet:
		return m.executeTasksGet(ctx, ownerID, cmd.Payload)
	case ActionTasksCreate:
		return m.executeTasksCreate(ctx, ownerID, cmd.Payload)
	case ActionTasksUpdate:
		return m.executeTasksUpdate(ctx, ownerID, cmd.Payload)
	case ActionTasksDelete:
		return m.executeTasksDelete(ctx, ownerID, cmd.Payload)
	default:
		return Result{
			Type:    "error",
			Success: false,
			Error:   "Unknown action: " + cmd.Action,
		}
	}
}

func (m *APIModule) executeTasksGet(ctx context.Context, ownerID string, payload json.RawMessage) Result {
	var req getPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return errorResult(ActionTasksGet, "Invalid payload")
		}
	}

	views, err := m.tasksService.List(ctx, ownerID, req.Status)
	if err != nil {
		return errorResult(ActionTasksGet, wsErrorMessage(err))
	}
	return Result{Type: ActionTasksGet + ":result", Success: true, Data: views}
}

func (m *APIModule) executeTasksCreate(ctx context.Context, ownerID string, payload json.RawMessage) Result {
	var in tasks.Input
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &in); err != nil {
			return errorResult(ActionTasksCreate, "Invalid payload")
		}
	}

	view, err := m.tasksService.Create(ctx, ownerID, in, nil)
	if err != nil {
		return errorResult(ActionTasksCreate, wsErrorMessage(err))
	}
	return Result{Type: ActionTasksCreate + ":result", Success: true, Data: view}
}

func (m *APIModule) executeTasksUpdate(ctx context.Context, ownerID string, payload json.RawMessage) Result {
	var req updatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResult(ActionTasksUpdate, "Invalid payload")
	}
	if req.ID == "" {
		return errorResult(ActionTasksUpdate, "Task id is required")
	}

	view, err := m.tasksService.Update(ctx, ownerID, req.ID, req.Input, nil)
	if err != nil {
		return errorResult(ActionTasksUpdate, wsErrorMessage(err))
	}
	return Result{Type: ActionTasksUpdate + ":result", Success: true, Data: view}
}

func (m *APIModule) executeTasksDelete(ctx context.Context, ownerID string, payload json.RawMessage) Result {
	var req deletePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorResult(ActionTasksDelete, "Invalid payload")
	}
	if req.ID == "" {
		return errorResult(ActionTasksDelete, "Task id is required")
	}

	if err := m.tasksService.Delete(ctx, ownerID, req.ID); err != nil {
		return errorResult(ActionTasksDelete, wsErrorMessage(err))
	}
	return Result{Type: ActionTasksDelete + ":result", Success: true, Data: map[string]any{"id": req.ID}}
}

func errorResult(action, message string) Result {
	return Result{Type: action + ":result", Success: false, Error: message}
}

func (m *APIModule) sendResult(client *broadcast.Client, result Result) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("[api] Failed to marshal result frame: %v", err)
		return
	}
	if err := client.Send(data); err != nil {
		log.Printf("[api] Failed to send result to client %s: %v", client.ID, err)
	}
}

// wsErrorMessage converts a task service error to a client-safe message.
// Validation sentinels pass through; everything else is masked.
func wsErrorMessage(err error) string {
	switch {
	case errors.Is(err, tasks.ErrNotFound),
		errors.Is(err, tasks.ErrTitleRequired),
		errors.Is(err, tasks.ErrInvalidStatus),
		errors.Is(err, tasks.ErrInvalidDueDate),
		errors.Is(err, tasks.ErrFileTooLarge):
		return err.Error()
	default:
		log.Printf("[api] Internal error: %v", err)
		return "internal error"
	}
}
