package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
)

const taskLookupTimeout = 5 * time.Second

// TaskStatusReader looks up background task state.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// TaskStatusResponse reports a queued book request delivery.
type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Done   bool   `json:"done"`
}

var taskStatusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending:  "pending",
	backlite.TaskStatusRunning:  "running",
	backlite.TaskStatusSuccess:  "success",
	backlite.TaskStatusFailure:  "failure",
	backlite.TaskStatusNotFound: "not_found",
}

type TasksController struct {
	client TaskStatusReader
}

func NewTasksController(client TaskStatusReader) *TasksController {
	return &TasksController{client: client}
}

// GetTaskStatus handles GET /api/tasks/:id, where id is the
// delivery_task_id returned by POST /api/requests.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), taskLookupTimeout)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	switch {
	case err != nil:
		respondInternalError(c, err, "delivery status")
	case status == backlite.TaskStatusNotFound:
		// backlite drops finished tasks once their retention passes.
		respondNotFound(c, "task")
	default:
		c.JSON(http.StatusOK, TaskStatusResponse{
			ID:     taskID,
			Status: taskStatusToString(status),
			Done:   status == backlite.TaskStatusSuccess || status == backlite.TaskStatusFailure,
		})
	}
}

func taskStatusToString(status backlite.TaskStatus) string {
	if name, ok := taskStatusNames[status]; ok {
		return name
	}
	return "unknown"
}
