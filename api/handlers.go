package api

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskflow-api/core"
	"taskflow-api/domain"
)

// requestBodyMaxSize bounds mutation payloads; entities here are small.
const requestBodyMaxSize = 64 << 10

// Register wires up all API routes on the provided Echo instance. dedupe may
// be nil to run creates without the retry guard.
func Register(e *echo.Echo, projects ProjectEngine, tasks TaskEngine, auth Authenticator, dedupe Deduper, logger *log.Logger) {
	e.GET("/api/projects", listProjects(projects, auth))
	e.POST("/api/projects", createProject(projects, auth, dedupe))
	e.GET("/api/projects/:id", getProject(projects, auth))
	e.GET("/api/projects/:id/tasks", listTasks(tasks, auth))
	e.GET("/api/projects/:id/board", getBoard(tasks, auth, logger))
	e.GET("/api/projects/:id/members", listMembers(projects, auth))
	e.POST("/api/projects/:id/members", inviteMember(projects, auth))
	e.POST("/api/projects/:id/tasks", createTask(tasks, auth, dedupe))
	e.PATCH("/api/tasks/:id/status", setTaskStatus(tasks, auth))
	e.DELETE("/api/tasks/:id", deleteTask(tasks, auth))
	e.GET("/api/tasks/recent", recentTasks(tasks, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func sessionFromRequest(c echo.Context, auth Authenticator) (core.Session, error) {
	userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return core.Session{}, err
	}
	return core.Session{UserID: userID}, nil
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(v)
}

// guardCreate reserves the request's Idempotency-Key for the user. It
// reports whether the create may proceed; a replayed key means the original
// create already ran and the retry must not insert a second row.
func guardCreate(c echo.Context, dedupe Deduper, userID string) (proceed bool, key string) {
	key = c.Request().Header.Get("Idempotency-Key")
	if dedupe == nil || key == "" {
		return true, ""
	}
	fresh, err := dedupe.Add(c.Request().Context(), userID, key)
	if err != nil {
		// The guard is advisory; losing Redis must not block writes.
		c.Logger().Warnf("idempotency guard unavailable: %v", err)
		return true, ""
	}
	return fresh, key
}

func releaseGuard(c echo.Context, dedupe Deduper, userID, key string) {
	if dedupe == nil || key == "" {
		return
	}
	if err := dedupe.Remove(c.Request().Context(), userID, key); err != nil {
		c.Logger().Warnf("idempotency rollback failed: %v", err)
	}
}

func listProjects(projects ProjectEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		out, err := projects.List(c.Request().Context(), sess)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func createProject(projects ProjectEngine, auth Authenticator, dedupe Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req createProjectRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		proceed, key := guardCreate(c, dedupe, sess.UserID)
		if !proceed {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate create: this idempotency key was already used"})
		}

		created, err := projects.Create(c.Request().Context(), sess, req.Name, req.Description)
		if err != nil {
			releaseGuard(c, dedupe, sess.UserID, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func getProject(projects ProjectEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		p, err := projects.Get(c.Request().Context(), sess, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func listMembers(projects ProjectEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		members, err := projects.Members(c.Request().Context(), sess, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, members)
	}
}

func inviteMember(projects ProjectEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req inviteMemberRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := projects.Invite(c.Request().Context(), sess, c.Param("id"), req.Email); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusCreated)
	}
}

func listTasks(tasks TaskEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		out, err := tasks.List(c.Request().Context(), sess, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}

func getBoard(tasks TaskEngine, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics := newBoardRequestMetrics(logger)
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		sess, authErr := sessionFromRequest(c, auth)
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		board, boardErr := tasks.Board(c.Request().Context(), sess, c.Param("id"))
		if boardErr != nil {
			metrics.SetErrorStage("fetch")
			err = writeError(c, boardErr)
			return err
		}
		metrics.SetTasksReturned(len(board.Todo) + len(board.InProgress) + len(board.Completed))
		err = c.JSON(http.StatusOK, board)
		return err
	}
}

func createTask(tasks TaskEngine, auth Authenticator, dedupe Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		status := domain.Status(req.Status)
		proceed, key := guardCreate(c, dedupe, sess.UserID)
		if !proceed {
			return c.JSON(http.StatusConflict, errorResponse{Error: "duplicate create: this idempotency key was already used"})
		}

		created, err := tasks.Create(c.Request().Context(), sess, c.Param("id"), req.Title, req.Description, status)
		if err != nil {
			releaseGuard(c, dedupe, sess.UserID, key)
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func setTaskStatus(tasks TaskEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req setStatusRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		updated, err := tasks.SetStatus(c.Request().Context(), sess, c.Param("id"), status)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteTask(tasks TaskEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		if err := tasks.Delete(c.Request().Context(), sess, c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func recentTasks(tasks TaskEngine, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := sessionFromRequest(c, auth)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		out, err := tasks.Recent(c.Request().Context(), sess)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}
