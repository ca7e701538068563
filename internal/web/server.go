package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/fin-processor/backend/internal/catalog"
	"github.com/fin-processor/backend/internal/events"
	"github.com/fin-processor/backend/internal/health"
	"github.com/fin-processor/backend/internal/httperr"
	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/render"
	"github.com/fin-processor/backend/internal/results"
	"github.com/fin-processor/backend/internal/session"
	"github.com/fin-processor/backend/internal/upload"
)

const (
	// SessionCookie holds the viewer session id.
	SessionCookie = "finview_session"

	// DefaultMaxUploadBytes bounds a selected workbook held in memory.
	DefaultMaxUploadBytes = 16 << 20

	sessionKey = "session"
)

// Config wires the viewer's collaborators.
type Config struct {
	Sessions       *session.Manager
	Monitor        *health.Monitor
	Hub            *events.Hub
	Renderer       *render.Renderer
	Catalog        *catalog.Catalog
	ServiceURL     string
	UploadTimeout  time.Duration
	MaxUploadBytes int64
	SecureCookie   bool
	Log            *logrus.Entry
}

// Server handles the viewer's HTTP and websocket routes.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	log      *logrus.Entry

	// uploads derive from this context so shutdown cancels them
	baseCtx context.Context
}

// NewServer creates the viewer. Zero-valued options get defaults.
func NewServer(ctx context.Context, cfg Config) *Server {
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewRenderer()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Hub == nil {
		cfg.Hub = events.NewHub()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Log == nil {
		cfg.Log = logging.NewLogger("web")
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		log:     cfg.Log,
		baseCtx: ctx,
	}
}

// Register installs the renderer, the session middleware and all routes.
func (s *Server) Register(e *echo.Echo) error {
	tr, err := NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	e.Renderer = tr

	if err := RegisterStaticRoutes(e); err != nil {
		return err
	}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/api/status", s.handleStatus)

	g := e.Group("", s.sessionMiddleware)
	g.GET("/", s.handleIndex)
	g.GET("/api/state", s.handleState)
	g.POST("/api/select", s.handleSelect)
	g.POST("/api/submit", s.handleSubmit)
	g.POST("/api/sheets/:key", s.handleSelectSheet)
	g.GET("/ws", s.handleWebSocket)
	return nil
}

// sessionMiddleware attaches the caller's upload session, creating one and
// setting the cookie when needed.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := ""
		if ck, err := c.Cookie(SessionCookie); err == nil {
			id = ck.Value
		}

		sess, created := s.cfg.Sessions.GetOrCreate(id)
		if created || sess.ID() != id {
			c.SetCookie(&http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.SecureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(sessionKey, sess)
		return next(c)
	}
}

func sessionFrom(c echo.Context) *upload.Session {
	return c.Get(sessionKey).(*upload.Session)
}

func (s *Server) view(sess *upload.Session) StateView {
	return buildView(sess.Snapshot(), s.cfg.Monitor.Status(), s.cfg.ServiceURL, s.cfg.Renderer, s.cfg.Catalog)
}

// wantsJSON reports whether the caller is a script rather than a form post.
func wantsJSON(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) ||
		c.Request().Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// reply answers scripts with the state and browsers with a redirect home.
func (s *Server) reply(c echo.Context, status int, sess *upload.Session) error {
	if wantsJSON(c) {
		return c.JSON(status, s.view(sess))
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cfg.Monitor.Status())
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", s.view(sessionFrom(c)))
}

func (s *Server) handleState(c echo.Context) error {
	return c.JSON(http.StatusOK, s.view(sessionFrom(c)))
}

// handleSelect reads the chosen workbook into memory and makes it the
// session's selection.
func (s *Server) handleSelect(c echo.Context) error {
	sess := sessionFrom(c)

	fh, err := c.FormFile("file")
	if err != nil {
		// an empty file input still replaces the selection
		_, selErr := sess.SelectFile(upload.Candidate{})
		return s.reply(c, statusFor(selErr), sess)
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return httperr.NewBadRequestError(
			fmt.Sprintf("file exceeds %d MB", s.cfg.MaxUploadBytes>>20), nil)
	}

	src, err := fh.Open()
	if err != nil {
		return httperr.NewBadRequestError("could not read uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return httperr.NewBadRequestError("could not read uploaded file", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return httperr.NewBadRequestError(
			fmt.Sprintf("file exceeds %d MB", s.cfg.MaxUploadBytes>>20), nil)
	}

	_, err = sess.SelectFile(upload.BytesCandidate(fh.Filename, data))
	return s.reply(c, statusFor(err), sess)
}

// handleSubmit starts the upload. With ?wait=true the response is sent after
// the outcome is known; otherwise the page is updated over the websocket.
func (s *Server) handleSubmit(c echo.Context) error {
	sess := sessionFrom(c)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.uploadTimeout())
	outcome, err := sess.SubmitAsync(ctx)
	if err != nil {
		cancel()
		return s.reply(c, statusFor(err), sess)
	}

	if c.QueryParam("wait") == "true" {
		<-outcome
		cancel()
		return s.reply(c, http.StatusOK, sess)
	}

	go func() {
		defer cancel()
		o := <-outcome
		if o.Err != nil {
			s.log.WithError(o.Err).WithField("session", sess.ID()).Debug("upload finished with error")
		}
	}()
	return s.reply(c, http.StatusAccepted, sess)
}

func (s *Server) handleSelectSheet(c echo.Context) error {
	sess := sessionFrom(c)
	err := sess.SelectSheet(c.Param("key"))
	return s.reply(c, statusFor(err), sess)
}

func (s *Server) uploadTimeout() time.Duration {
	if s.cfg.UploadTimeout > 0 {
		return s.cfg.UploadTimeout
	}
	return 120 * time.Second
}

// statusFor maps session errors to response codes. The error text itself is
// already in the session's message slot.
func statusFor(err error) int {
	var ve *upload.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, upload.ErrUploadInProgress):
		return http.StatusConflict
	case errors.Is(err, results.ErrInvalidSheetKey):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
