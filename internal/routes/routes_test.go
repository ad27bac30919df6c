package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muthuabi/coros-vite-sub000/dto"
	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/repository/inmem"
	"github.com/muthuabi/coros-vite-sub000/internal/search"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
	"github.com/muthuabi/coros-vite-sub000/internal/storage"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	db := inmem.NewDB()
	users := inmem.NewUserRepository(db)
	rooms := inmem.NewRoomRepository(db)
	posts := inmem.NewPostRepository(db)
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	issuer := auth.NewIssuer("test-secret", time.Minute)
	finder := search.NewService(nil, rooms, posts, users, logger.Nop{})
	svc := services.New(services.Deps{
		Users:         users,
		Rooms:         rooms,
		Posts:         posts,
		Comments:      inmem.NewCommentRepository(db),
		Notifications: inmem.NewNotificationRepository(db),
		Sessions:      inmem.NewRefreshTokenRepository(db),
		Files:         files,
		Index:         finder,
		Issuer:        issuer,
		RefreshTTL:    time.Hour,
		Log:           logger.Nop{},
	})

	app := fiber.New(fiber.Config{ErrorHandler: controllers.ErrorHandler(logger.Nop{})})
	Register(app, Deps{
		Services:       svc,
		Search:         finder,
		Issuer:         issuer,
		Users:          users,
		MaxUploadBytes: 1 << 20,
	})
	return app
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *client) send(req *http.Request) (*http.Response, []byte) {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func register(t *testing.T, app *fiber.App, name string) (*client, services.Session) {
	t.Helper()
	c := &client{t: t, app: app}
	resp, raw := c.do(http.MethodPost, "/api/auth/register", dto.RegisterReq{
		Username: name, Email: name + "@example.com", Password: "password123", FullName: name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	s := decode[services.Session](t, raw)
	c.token = s.AccessToken
	return c, s
}

func TestHealth(t *testing.T) {
	app := newApp(t)
	c := &client{t: t, app: app}

	resp, raw := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(raw))

	resp, raw = c.do(http.MethodGet, "/api/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[dto.ReadyResp](t, raw).Status)
}

func TestAuthFlowAndErrors(t *testing.T) {
	app := newApp(t)
	alice, s := register(t, app, "alice")

	resp, raw := alice.do(http.MethodGet, "/api/user/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"username":"alice"`)

	anon := &client{t: t, app: app}
	resp, raw = anon.do(http.MethodGet, "/api/user/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decode[dto.ErrorResponse](t, raw).Code)

	bad := &client{t: t, app: app, token: "not-a-jwt"}
	resp, _ = bad.do(http.MethodGet, "/api/rooms", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = anon.do(http.MethodPost, "/api/auth/register", dto.RegisterReq{
		Username: "alice", Email: "other@example.com", Password: "password123", FullName: "A",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))

	resp, raw = anon.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decode[dto.ErrorResponse](t, raw).Fields)

	resp, raw = anon.do(http.MethodPost, "/api/auth/login", dto.LoginReq{Email: "alice@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(raw))

	resp, raw = anon.do(http.MethodPost, "/api/auth/refresh", dto.RefreshReq{RefreshToken: s.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	rotated := decode[services.Session](t, raw)
	assert.NotEqual(t, s.RefreshToken, rotated.RefreshToken)

	resp, _ = anon.do(http.MethodPost, "/api/auth/refresh", dto.RefreshReq{RefreshToken: s.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "old refresh token is revoked")

	resp, _ = anon.do(http.MethodPost, "/api/auth/logout", dto.RefreshReq{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRoomPostCommentFlow(t *testing.T) {
	app := newApp(t)
	owner, _ := register(t, app, "owner")
	bob, _ := register(t, app, "bob")

	resp, raw := owner.do(http.MethodPost, "/api/rooms", dto.CreateRoomReq{Name: "Gophers", Tags: []string{"go"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	room := decode[services.RoomView](t, raw)
	roomPath := "/api/rooms/" + room.ID.Hex()

	resp, raw = owner.do(http.MethodPost, "/api/rooms", dto.CreateRoomReq{Name: "gophers"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(raw))

	// bob is not a member yet
	resp, _ = bob.do(http.MethodPost, "/api/posts", dto.CreatePostReq{
		Scope: "room", RoomID: room.ID.Hex(), Type: "text", Content: "hi",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = bob.do(http.MethodPost, roomPath+"/join", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "member", decode[dto.JoinRoomResp](t, raw).Status)

	resp, raw = bob.do(http.MethodPost, "/api/posts", dto.CreatePostReq{
		Scope: "room", RoomID: room.ID.Hex(), Type: "text", Content: "hello #golang",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	post := decode[services.PostView](t, raw)
	assert.Equal(t, []string{"golang"}, post.Hashtags)
	postPath := "/api/posts/" + post.ID.Hex()

	resp, raw = owner.do(http.MethodPost, postPath+"/vote", dto.VoteReq{Vote: "up"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.EqualValues(t, 1, decode[services.VoteResult](t, raw).Score)

	resp, raw = owner.do(http.MethodPost, postPath+"/vote", dto.VoteReq{Vote: "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(raw))

	resp, raw = owner.do(http.MethodPost, postPath+"/comments", dto.CommentReq{Text: "welcome"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	com := decode[services.CommentView](t, raw)

	resp, raw = bob.do(http.MethodGet, postPath+"/comments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decode[services.Page[services.CommentView]](t, raw)
	require.Len(t, comments.Items, 1)
	assert.Equal(t, "welcome", comments.Items[0].Text)

	resp, _ = bob.do(http.MethodPut, "/api/comments/"+com.ID.Hex(), dto.CommentReq{Text: "hijack"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = bob.do(http.MethodPost, "/api/comments/"+com.ID.Hex()+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.True(t, decode[services.LikeResult](t, raw).Liked)

	resp, raw = bob.do(http.MethodGet, "/api/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[services.NotificationList](t, raw).Items, "comment on bob's post notifies bob")

	resp, raw = bob.do(http.MethodPatch, "/api/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Positive(t, decode[dto.MarkAllReadResp](t, raw).Updated)

	resp, raw = owner.do(http.MethodPost, roomPath+"/pins/"+post.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.True(t, decode[dto.PinResp](t, raw).Pinned)

	resp, _ = bob.do(http.MethodPost, roomPath+"/pins/"+post.ID.Hex(), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "only room admins pin")

	resp, raw = bob.do(http.MethodGet, "/api/search?q=golang&type=post", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Len(t, decode[search.Response](t, raw).Posts, 1)

	resp, _ = bob.do(http.MethodGet, "/api/search?q=golang&type=planet", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = owner.do(http.MethodDelete, postPath, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "room admin may delete")

	resp, _ = bob.do(http.MethodGet, postPath, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPrivateRoomRequests(t *testing.T) {
	app := newApp(t)
	owner, _ := register(t, app, "owner")
	carol, cs := register(t, app, "carol")
	carolID := cs.User.ID.Hex()

	resp, raw := owner.do(http.MethodPost, "/api/rooms", dto.CreateRoomReq{Name: "Secret", RoomType: "private"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	roomPath := "/api/rooms/" + decode[services.RoomView](t, raw).ID.Hex()

	resp, raw = carol.do(http.MethodPost, roomPath+"/join", dto.JoinRoomReq{Message: "let me in"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "requested", decode[dto.JoinRoomResp](t, raw).Status)

	resp, _ = carol.do(http.MethodGet, roomPath+"/posts", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = carol.do(http.MethodGet, roomPath+"/requests", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw = owner.do(http.MethodGet, roomPath+"/requests", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "let me in")

	resp, raw = owner.do(http.MethodPost, roomPath+"/requests/"+carolID, dto.HandleRequestReq{Action: "approve"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(raw))

	resp, _ = carol.do(http.MethodGet, roomPath+"/posts", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMultipartPostUpload(t *testing.T) {
	app := newApp(t)
	alice, _ := register(t, app, "alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("scope", "global"))
	require.NoError(t, w.WriteField("type", "image"))
	require.NoError(t, w.WriteField("content", "sunset #photo"))
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="media"; filename="sunset.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, raw := alice.send(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	post := decode[services.PostView](t, raw)
	require.Len(t, post.Media, 1)
	assert.Contains(t, post.Media[0].URL, "/files/")
	assert.Equal(t, "sunset.png", post.Media[0].Name)
	assert.Equal(t, "image", post.Media[0].Type)
}
