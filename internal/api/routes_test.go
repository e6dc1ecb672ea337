package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

const testSecret = "test-secret"

type stubAuth struct{}

func (stubAuth) LoginURL(state string) string { return "https://accounts.example/auth?state=" + state }
func (stubAuth) LoginCallback(ctx context.Context, code string) (int64, error) {
	return 9, nil
}

type stubPosts struct {
	userIDs   []int64
	publish   error
	created   *transfer.PostCreation
	jobDetail *transfer.JobDetail
}

func (s *stubPosts) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.PostDetail, error) {
	s.userIDs = append(s.userIDs, userID)
	s.created = pc
	if len(pc.Platforms) == 0 {
		return nil, service.ErrInvalidInput
	}
	return &transfer.PostDetail{Post: &models.Post{ID: "post-1", UserID: userID, Status: models.PostStatusDraft}}, nil
}

func (s *stubPosts) PublishPost(ctx context.Context, userID int64, postID string) (*transfer.PublishResponse, error) {
	s.userIDs = append(s.userIDs, userID)
	if s.publish != nil {
		return nil, s.publish
	}
	return &transfer.PublishResponse{JobID: "job-1", PostID: postID, Status: models.JobStatusPending}, nil
}

func (s *stubPosts) GetPost(ctx context.Context, userID int64, postID string) (*transfer.PostDetail, error) {
	return nil, service.ErrPostNotFound
}

func (s *stubPosts) ListPosts(ctx context.Context, userID int64) ([]*models.Post, error) {
	s.userIDs = append(s.userIDs, userID)
	return []*models.Post{}, nil
}

func (s *stubPosts) GetJob(ctx context.Context, userID int64, jobID string) (*transfer.JobDetail, error) {
	if s.jobDetail == nil || s.jobDetail.UserID != userID {
		return nil, service.ErrJobNotFound
	}
	return s.jobDetail, nil
}

type stubMedia struct {
	filename string
	size     int
}

func (s *stubMedia) Upload(ctx context.Context, userID int64, filename string, data []byte) (*models.MediaAsset, error) {
	s.filename, s.size = filename, len(data)
	return &models.MediaAsset{ID: "media-1", UserID: userID, Type: models.MediaTypeVideo, StorageKey: "1-abc.mp4"}, nil
}

type stubPlatforms struct {
	disconnected []models.Platform
}

func (s *stubPlatforms) List(ctx context.Context, userID int64) ([]transfer.Connection, error) {
	return []transfer.Connection{{ID: 1, Platform: models.PlatformYoutube, IsActive: true}}, nil
}

func (s *stubPlatforms) Disconnect(ctx context.Context, userID int64, platform models.Platform) error {
	s.disconnected = append(s.disconnected, platform)
	return nil
}

type stubYoutube struct{}

func (stubYoutube) AuthURL(userID int64) (string, error) {
	return "https://accounts.example/auth?state=signed", nil
}
func (stubYoutube) Callback(ctx context.Context, code, state string) (int64, error) {
	if state != "good" {
		return 0, utils.ErrInvalidState
	}
	return 9, nil
}

type stubTokens struct {
	err error
}

func (s stubTokens) GetValidAccessToken(ctx context.Context, userID int64, platform models.Platform) (string, error) {
	return "secret-access-token", s.err
}
func (s stubTokens) ForceRefresh(ctx context.Context, userID int64, platform models.Platform) (string, error) {
	return "secret-access-token", s.err
}

type stubUsers struct{}

func (stubUsers) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	return &models.Profile{
		User:               &models.User{ID: userID, GoogleID: "g-1", Email: "a@example.com"},
		ConnectedPlatforms: []models.Platform{models.PlatformYoutube},
	}, nil
}

type testApp struct {
	app       *fiber.App
	posts     *stubPosts
	media     *stubMedia
	platforms *stubPlatforms
}

func newTestApp(t *testing.T, tokens stubTokens) *testApp {
	t.Helper()
	cfg := &config.Config{SecretKey: testSecret, CookieName: "sess", FrontendURL: "http://localhost:5173"}

	ta := &testApp{posts: &stubPosts{}, media: &stubMedia{}, platforms: &stubPlatforms{}}
	ta.app = NewApp(cfg.FrontendURL)
	RegisterRoutes(ta.app, Handlers{
		Auth:     handlers.NewAuthHandler(cfg, stubAuth{}),
		Platform: handlers.NewPlatformHandler(ta.platforms, stubYoutube{}, tokens, cfg),
		Post:     handlers.NewPostHandler(ta.posts),
		Media:    handlers.NewMediaHandler(ta.media),
		User:     handlers.NewUserHandler(stubUsers{}),
	}, middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName))
	return ta
}

func sessionToken(t *testing.T, userID int64) string {
	t.Helper()
	token, err := utils.GenerateToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (ta *testApp) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(body)
}

func authed(t *testing.T, method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, 42))
	return req
}

func TestAuth_MissingSession(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuth_InvalidCookieIsCleared(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: "sess", Value: "not-a-jwt"})

	resp, _ := ta.do(t, req)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Set-Cookie"), "sess=") {
		t.Errorf("session cookie not cleared: %q", resp.Header.Get("Set-Cookie"))
	}
}

func TestAuth_CookieAndBearer(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	cookieReq := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	cookieReq.AddCookie(&http.Cookie{Name: "sess", Value: sessionToken(t, 7)})
	if resp, _ := ta.do(t, cookieReq); resp.StatusCode != fiber.StatusOK {
		t.Errorf("cookie status = %d, want 200", resp.StatusCode)
	}

	if resp, _ := ta.do(t, authed(t, http.MethodGet, "/api/posts", nil)); resp.StatusCode != fiber.StatusOK {
		t.Errorf("bearer status = %d, want 200", resp.StatusCode)
	}

	if got := ta.posts.userIDs; len(got) != 2 || got[0] != 7 || got[1] != 42 {
		t.Errorf("user ids = %v, want [7 42]", got)
	}
}

func TestAuth_WrongSecret(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	forged, _ := utils.GenerateToken("other-secret", 42, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer "+forged)

	if resp, _ := ta.do(t, req); resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUserMe(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	resp, body := ta.do(t, authed(t, http.MethodGet, "/api/user/me", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, `"id":42`) || !strings.Contains(body, `"connected_platforms":["YOUTUBE"]`) {
		t.Errorf("unexpected body %s", body)
	}
	if strings.Contains(body, "g-1") {
		t.Errorf("google id leaked: %s", body)
	}
}

func TestCreatePost(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	body := `{"mediaAssetId":"media-1","title":"Launch","platforms":["YOUTUBE"],"overrides":{"YOUTUBE":{"visibility":"PRIVATE"}}}`
	req := authed(t, http.MethodPost, "/api/posts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, raw := ta.do(t, req)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}
	if ta.posts.created.MediaAssetID != "media-1" || ta.posts.created.Overrides["YOUTUBE"].Visibility != "PRIVATE" {
		t.Errorf("parsed body = %+v", ta.posts.created)
	}

	var detail map[string]any
	json.Unmarshal([]byte(raw), &detail)
	if detail["id"] != "post-1" || detail["status"] != "DRAFT" {
		t.Errorf("response = %s", raw)
	}
}

func TestCreatePost_InvalidInput(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	req := authed(t, http.MethodPost, "/api/posts", strings.NewReader(`{"mediaAssetId":"media-1"}`))
	req.Header.Set("Content-Type", "application/json")

	if resp, _ := ta.do(t, req); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPublishPost(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	resp, raw := ta.do(t, authed(t, http.MethodPost, "/api/posts/post-1/publish", nil))
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}
	var res transfer.PublishResponse
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatal(err)
	}
	if res.JobID != "job-1" || res.PostID != "post-1" || res.Status != models.JobStatusPending {
		t.Errorf("response = %+v", res)
	}
}

func TestPublishPost_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrPostNotFound, fiber.StatusNotFound},
		{service.ErrNoDestinations, fiber.StatusConflict},
		{io.ErrUnexpectedEOF, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		ta := newTestApp(t, stubTokens{})
		ta.posts.publish = tt.err

		resp, raw := ta.do(t, authed(t, http.MethodPost, "/api/posts/post-1/publish", nil))
		if resp.StatusCode != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, resp.StatusCode, tt.want)
		}
		if tt.want == fiber.StatusInternalServerError && strings.Contains(raw, tt.err.Error()) {
			t.Errorf("internal error leaked: %s", raw)
		}
	}
}

func TestGetJob_OtherUser(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	ta.posts.jobDetail = &transfer.JobDetail{Job: &models.Job{ID: "job-1", UserID: 1}}

	if resp, _ := ta.do(t, authed(t, http.MethodGet, "/api/jobs/job-1", nil)); resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMediaUpload(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "clip.mp4")
	part.Write([]byte("fake video bytes"))
	w.Close()

	req := authed(t, http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, raw := ta.do(t, req)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}
	if ta.media.filename != "clip.mp4" || ta.media.size != len("fake video bytes") {
		t.Errorf("upload = %q %d", ta.media.filename, ta.media.size)
	}
	if !strings.Contains(raw, `"mediaAssetId":"media-1"`) {
		t.Errorf("response = %s", raw)
	}
}

func TestMediaUpload_NoFile(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	if resp, _ := ta.do(t, authed(t, http.MethodPost, "/api/media", nil)); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRefreshYoutube_NeverReturnsToken(t *testing.T) {
	ta := newTestApp(t, stubTokens{})
	resp, raw := ta.do(t, authed(t, http.MethodPost, "/api/connections/youtube/refresh", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if strings.Contains(raw, "secret-access-token") {
		t.Errorf("access token in response: %s", raw)
	}
}

func TestRefreshYoutube_Unrecoverable(t *testing.T) {
	ta := newTestApp(t, stubTokens{err: service.ErrUnrecoverable})
	if resp, _ := ta.do(t, authed(t, http.MethodPost, "/api/connections/youtube/refresh", nil)); resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestRemoveConnection(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	if resp, _ := ta.do(t, authed(t, http.MethodPost, "/api/connections/youtube/remove", nil)); resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp, _ := ta.do(t, authed(t, http.MethodPost, "/api/connections/myspace/remove", nil)); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("unknown platform status = %d, want 400", resp.StatusCode)
	}
	if len(ta.platforms.disconnected) != 1 || ta.platforms.disconnected[0] != models.PlatformYoutube {
		t.Errorf("disconnected = %v", ta.platforms.disconnected)
	}
}

func TestYoutubeCallback(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=c&state=good", nil))
	if resp.StatusCode != fiber.StatusTemporaryRedirect || resp.Header.Get("Location") != "http://localhost:5173/dashboard/accounts" {
		t.Errorf("status = %d, location %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=c&state=forged", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("forged state status = %d, want 400", resp.StatusCode)
	}
}

func TestLoginCallback_StateMustMatchCookie(t *testing.T) {
	ta := newTestApp(t, stubTokens{})

	req := httptest.NewRequest(http.MethodGet, "/login/callback?code=c&state=abc", nil)
	if resp, _ := ta.do(t, req); resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status without cookie = %d, want 400", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/login/callback?code=c&state=abc", nil)
	req.AddCookie(&http.Cookie{Name: "crosspost_login_state", Value: "abc"})
	resp, _ := ta.do(t, req)
	if resp.StatusCode != fiber.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}

	var session string
	for _, c := range resp.Cookies() {
		if c.Name == "sess" {
			session = c.Value
		}
	}
	claims, err := utils.ValidateToken(testSecret, session)
	if err != nil || claims.UserID != 9 {
		t.Errorf("session claims = %+v, %v", claims, err)
	}
}
