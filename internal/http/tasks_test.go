package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
)

type fixedStatus struct {
	status backlite.TaskStatus
	err    error
}

func (f fixedStatus) Status(context.Context, string) (backlite.TaskStatus, error) {
	return f.status, f.err
}

func getTask(reader TaskStatusReader) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/api/tasks/:id", NewTasksController(reader).GetTaskStatus)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tasks/abc", nil))
	return w
}

func TestTasksController_GetTaskStatus(t *testing.T) {
	w := getTask(fixedStatus{status: backlite.TaskStatusRunning})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"abc","status":"running","done":false}`, w.Body.String())

	w = getTask(fixedStatus{status: backlite.TaskStatusSuccess})
	assert.JSONEq(t, `{"id":"abc","status":"success","done":true}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, getTask(fixedStatus{status: backlite.TaskStatusNotFound}).Code)
	assert.Equal(t, http.StatusInternalServerError, getTask(fixedStatus{err: errors.New("db locked")}).Code)
}

func TestTaskStatusToString(t *testing.T) {
	assert.Equal(t, "pending", taskStatusToString(backlite.TaskStatusPending))
	assert.Equal(t, "success", taskStatusToString(backlite.TaskStatusSuccess))
	assert.Equal(t, "failure", taskStatusToString(backlite.TaskStatusFailure))
}
