package api

import (
	"github.com/example/room-chat-demo/modules/chat"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthCheck)

	v1 := app.Group("/api/v1")

	rooms := v1.Group("/rooms")
	rooms.Post("/", m.createRoom)
	rooms.Get("/", m.listRooms)
	rooms.Get("/:name", m.getRoom)
	rooms.Delete("/:name", m.removeRoom)
	rooms.Post("/:name/members", m.registerMember)
	rooms.Delete("/:name/members/:alias", m.deregisterMember)
	rooms.Post("/:name/blocks", m.blockInRoom)
	rooms.Delete("/:name/blocks/:alias/:target", m.unblockInRoom)
	rooms.Post("/:name/messages", m.sendMessage)
	rooms.Get("/:name/messages", m.retrieveMessages)
	rooms.Get("/:name/messages/search", m.findMessage)
	rooms.Get("/:name/activity", m.roomActivity)

	users := v1.Group("/users")
	users.Post("/", m.registerUser)
	users.Get("/", m.listUsers)
	users.Get("/:alias", m.getUser)
	users.Delete("/:alias", m.deregisterUser)
	users.Post("/:alias/blocks", m.blockUser)
	users.Delete("/:alias/blocks/:target", m.unblockUser)

	v1.Get("/activity", m.activitySummary)
	v1.Get("/activity/deliveries", m.recentDeliveries)
}

// healthCheck handles GET /health
func (m *APIModule) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"service": "room-chat-demo",
		},
	})
}

// createRoom handles POST /api/v1/rooms
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	result, err := m.chat.CreateRoom(c.Context(), &chat.CreateRoomRequest{
		Name:  req.Name,
		Type:  req.Type,
		Owner: req.Owner,
	})
	if err != nil {
		return m.writeFault(c, "create_room", err)
	}
	if !result.Success {
		return writeRejection(c, result.Result)
	}

	return c.Status(fiber.StatusCreated).JSON(toRoomResponse(result.Room))
}

// listRooms handles GET /api/v1/rooms
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	result, err := m.chat.ListRooms(c.Context())
	if err != nil {
		return m.writeFault(c, "list_rooms", err)
	}

	rooms := result.Rooms
	if rooms == nil {
		rooms = []string{}
	}
	return c.JSON(ListRoomsResponse{Rooms: rooms, Total: result.Total})
}

// getRoom handles GET /api/v1/rooms/:name
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	result, err := m.chat.GetRoom(c.Context(), c.Params("name"))
	if err != nil {
		return m.writeFault(c, "get_room", err)
	}
	if !result.Success {
		return writeRejection(c, result.Result)
	}
	return c.JSON(toRoomResponse(result.Room))
}

// removeRoom handles DELETE /api/v1/rooms/:name
func (m *APIModule) removeRoom(c *fiber.Ctx) error {
	result, err := m.chat.RemoveRoom(c.Context(), c.Params("name"))
	if err != nil {
		return m.writeFault(c, "remove_room", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// registerMember handles POST /api/v1/rooms/:name/members
func (m *APIModule) registerMember(c *fiber.Ctx) error {
	var req AliasRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	result, err := m.chat.RegisterMember(c.Context(), c.Params("name"), req.Alias)
	if err != nil {
		return m.writeFault(c, "register_member", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.Status(fiber.StatusCreated).JSON(StatusResponse{Status: "registered"})
}

// deregisterMember handles DELETE /api/v1/rooms/:name/members/:alias
func (m *APIModule) deregisterMember(c *fiber.Ctx) error {
	result, err := m.chat.DeregisterMember(c.Context(), c.Params("name"), c.Params("alias"))
	if err != nil {
		return m.writeFault(c, "deregister_member", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// blockInRoom handles POST /api/v1/rooms/:name/blocks
func (m *APIModule) blockInRoom(c *fiber.Ctx) error {
	var req BlockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	result, err := m.chat.BlockUser(c.Context(), &chat.BlockRequest{
		Alias:  req.Alias,
		Target: req.Target,
		Room:   c.Params("name"),
	})
	if err != nil {
		return m.writeFault(c, "block_user", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.Status(fiber.StatusCreated).JSON(StatusResponse{Status: "blocked"})
}

// unblockInRoom handles DELETE /api/v1/rooms/:name/blocks/:alias/:target
func (m *APIModule) unblockInRoom(c *fiber.Ctx) error {
	result, err := m.chat.UnblockUser(c.Context(), &chat.BlockRequest{
		Alias:  c.Params("alias"),
		Target: c.Params("target"),
		Room:   c.Params("name"),
	})
	if err != nil {
		return m.writeFault(c, "unblock_user", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// sendMessage handles POST /api/v1/rooms/:name/messages
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	result, err := m.chat.SendMessage(c.Context(), &chat.SendMessageRequest{
		Room: c.Params("name"),
		Body: req.Body,
		From: req.From,
		To:   req.To,
	})
	if err != nil {
		return m.writeFault(c, "send_message", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.Status(fiber.StatusAccepted).JSON(StatusResponse{Status: "sent"})
}

// retrieveMessages handles GET /api/v1/rooms/:name/messages?alias=&limit=&objects=
func (m *APIModule) retrieveMessages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "limit must not be negative",
		})
	}

	req := &chat.RetrieveMessagesRequest{
		Room:    c.Params("name"),
		Alias:   c.Query("alias"),
		Limit:   limit,
		Objects: c.QueryBool("objects", false),
	}
	result, err := m.chat.RetrieveMessages(c.Context(), req)
	if err != nil {
		return m.writeFault(c, "retrieve_messages", err)
	}
	if !result.Success {
		return writeRejection(c, result.Result)
	}

	resp := MessagesResponse{
		Room:  req.Room,
		Alias: req.Alias,
		Total: result.Total,
	}
	if req.Objects {
		resp.Messages = result.Messages
	} else {
		resp.Bodies = result.Bodies
	}
	return c.JSON(resp)
}

// findMessage handles GET /api/v1/rooms/:name/messages/search?body=
func (m *APIModule) findMessage(c *fiber.Ctx) error {
	body := c.Query("body")
	if body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "body query parameter is required",
		})
	}

	result, err := m.chat.FindMessage(c.Context(), c.Params("name"), body)
	if err != nil {
		return m.writeFault(c, "find_message", err)
	}
	if !result.Success {
		return writeRejection(c, result.Result)
	}
	return c.JSON(result.Message)
}

// roomActivity handles GET /api/v1/rooms/:name/activity
func (m *APIModule) roomActivity(c *fiber.Ctx) error {
	if m.activity == nil {
		return activityUnavailable(c)
	}

	result, err := m.activity.GetRoomActivity(c.Context(), c.Params("name"))
	if err != nil {
		return m.writeFault(c, "room_activity", err)
	}
	if !result.Found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   chat.ReasonNotFound,
			Message: "no activity recorded for room",
		})
	}
	return c.JSON(result.Activity)
}

// registerUser handles POST /api/v1/users
func (m *APIModule) registerUser(c *fiber.Ctx) error {
	var req AliasRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	result, err := m.chat.RegisterUser(c.Context(), req.Alias)
	if err != nil {
		return m.writeFault(c, "register_user", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.Status(fiber.StatusCreated).JSON(StatusResponse{Status: "registered"})
}

// listUsers handles GET /api/v1/users
func (m *APIModule) listUsers(c *fiber.Ctx) error {
	result, err := m.chat.ListUsers(c.Context())
	if err != nil {
		return m.writeFault(c, "list_users", err)
	}

	users := make([]UserResponse, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, toUserResponse(u))
	}
	return c.JSON(ListUsersResponse{Users: users, Total: result.Total})
}

// getUser handles GET /api/v1/users/:alias
func (m *APIModule) getUser(c *fiber.Ctx) error {
	result, err := m.chat.GetUser(c.Context(), c.Params("alias"))
	if err != nil {
		return m.writeFault(c, "get_user", err)
	}
	if !result.Success {
		return writeRejection(c, result.Result)
	}
	return c.JSON(toUserResponse(result.User))
}

// deregisterUser handles DELETE /api/v1/users/:alias
func (m *APIModule) deregisterUser(c *fiber.Ctx) error {
	result, err := m.chat.DeregisterUser(c.Context(), c.Params("alias"))
	if err != nil {
		return m.writeFault(c, "deregister_user", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// blockUser handles POST /api/v1/users/:alias/blocks
func (m *APIModule) blockUser(c *fiber.Ctx) error {
	var req AliasRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	result, err := m.chat.BlockUser(c.Context(), &chat.BlockRequest{
		Alias:  c.Params("alias"),
		Target: req.Alias,
	})
	if err != nil {
		return m.writeFault(c, "block_user", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.Status(fiber.StatusCreated).JSON(StatusResponse{Status: "blocked"})
}

// unblockUser handles DELETE /api/v1/users/:alias/blocks/:target
func (m *APIModule) unblockUser(c *fiber.Ctx) error {
	result, err := m.chat.UnblockUser(c.Context(), &chat.BlockRequest{
		Alias:  c.Params("alias"),
		Target: c.Params("target"),
	})
	if err != nil {
		return m.writeFault(c, "unblock_user", err)
	}
	if !result.Success {
		return writeRejection(c, *result)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// activitySummary handles GET /api/v1/activity
func (m *APIModule) activitySummary(c *fiber.Ctx) error {
	if m.activity == nil {
		return activityUnavailable(c)
	}

	summary, err := m.activity.GetSummary(c.Context())
	if err != nil {
		return m.writeFault(c, "activity_summary", err)
	}
	return c.JSON(summary)
}

// recentDeliveries handles GET /api/v1/activity/deliveries?limit=
func (m *APIModule) recentDeliveries(c *fiber.Ctx) error {
	if m.activity == nil {
		return activityUnavailable(c)
	}

	result, err := m.activity.GetRecentDeliveries(c.Context(), c.QueryInt("limit", 0))
	if err != nil {
		return m.writeFault(c, "recent_deliveries", err)
	}
	return c.JSON(result)
}

func activityUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
		Error:   "activity_unavailable",
		Message: "activity module not connected",
	})
}

func toRoomResponse(info *chat.RoomInfo) RoomResponse {
	if info == nil {
		return RoomResponse{Members: []string{}}
	}
	members := info.Members
	if members == nil {
		members = []string{}
	}
	return RoomResponse{
		Name:         info.Name,
		Type:         info.Type,
		Owner:        info.Owner,
		Members:      members,
		MessageCount: info.MessageCount,
		Latest:       info.Latest,
		CreateTime:   info.CreateTime,
		ModifyTime:   info.ModifyTime,
	}
}
