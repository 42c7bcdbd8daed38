package http

import (
	"net/http"
	"strconv"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/services"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

type QueryHandler struct {
	query services.IQueryService
}

func NewQueryHandler(query services.IQueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

func (h *QueryHandler) ListUsers(c echo.Context) error {
	users, err := h.query.ListUsers(c.Request().Context())
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

func (h *QueryHandler) ListRooms(c echo.Context) error {
	rooms, err := h.query.ListRooms(c.Request().Context())
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": rooms})
}

func (h *QueryHandler) MessagesByRoom(c echo.Context) error {
	room, err := roomParam(c)
	if err != nil {
		return err
	}

	cmd := domain.GetMessagesCommand{RoomID: room}
	if raw := c.QueryParam("first"); raw != "" {
		first, err := strconv.Atoi(raw)
		if err != nil || first <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "first must be a positive integer")
		}
		cmd.First = lo.ToPtr(first)
	}
	if raw := c.QueryParam("after"); raw != "" {
		cmd.After = lo.ToPtr(raw)
	}

	page, err := h.query.MessagesByRoom(c.Request().Context(), cmd)
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *QueryHandler) SearchMessages(c echo.Context) error {
	room, err := roomParam(c)
	if err != nil {
		return err
	}
	terms := c.QueryParam("q")
	if terms == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	hits, err := h.query.SearchMessages(c.Request().Context(), room, terms, limit)
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"hits": hits})
}

type MutationHandler struct {
	mutations services.IMutationService
}

func NewMutationHandler(mutations services.IMutationService) *MutationHandler {
	return &MutationHandler{mutations: mutations}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *MutationHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	user, err := h.mutations.CreateUser(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": user})
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (h *MutationHandler) CreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	room, err := h.mutations.CreateRoom(c.Request().Context(), req.Name)
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"room": room})
}

type createMessageRequest struct {
	Content string        `json:"content"`
	UserID  string        `json:"user_id"`
	RoomID  domain.RoomID `json:"room_id"`
}

func (h *MutationHandler) CreateMessage(c echo.Context) error {
	var req createMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	message, err := h.mutations.CreateMessage(c.Request().Context(), domain.PostMessageCommand{
		RoomID:   req.RoomID,
		SenderID: req.UserID,
		Content:  req.Content,
	})
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": message})
}

type AuthHandler struct {
	auth services.IAuthService
}

func NewAuthHandler(auth services.IAuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	token, user, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": token, "user": user})
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	token, user, err := h.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return errors.MapToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"accessToken": token, "user": user})
}

func roomParam(c echo.Context) (domain.RoomID, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "room id must be an integer")
	}
	return domain.RoomID(id), nil
}
