//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/testutil"
)

func TestActivitiesAreAdminOnly(t *testing.T) {
	client := newTestClient(t)
	signupMember(t, client, "Curious Member")

	resp, err := client.GET("/api/v1/activities")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestActivitiesRecordTaskLifecycle(t *testing.T) {
	manager := loginManager(t)
	projectID := createTestProject(t, manager, "Audited Project")

	client := newTestClient(t)
	actorID, _ := signupMember(t, client, "Audited Member")
	taskID := createTestTask(t, client, projectID, "Audited task")
	moveTaskStatus(t, client, taskID, "in_progress")

	admin := newTestClient(t)
	admin.LoginAs(t, adminEmail, seedPassword)

	resp, err := admin.GET("/api/v1/activities?actor_id=" + actorID + "&entity_kind=task")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []struct {
			Action     string            `json:"action"`
			EntityKind string            `json:"entity_kind"`
			EntityID   string            `json:"entity_id"`
			Metadata   map[string]string `json:"metadata"`
		} `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.Equal(t, 2, result.Pagination.Total)

	// Newest first: the status change precedes the creation
	assert.Equal(t, "status_changed", result.Data[0].Action)
	assert.Equal(t, taskID, result.Data[0].EntityID)
	assert.Equal(t, "todo", result.Data[0].Metadata["from"])
	assert.Equal(t, "in_progress", result.Data[0].Metadata["to"])
	assert.Equal(t, "created", result.Data[1].Action)
}

func TestActivitiesFilterByAction(t *testing.T) {
	manager := loginManager(t)
	managerID := currentUserID(t, manager)
	projectID := createTestProject(t, manager, "Action Filter Project")

	resp, err := manager.DELETE("/api/v1/projects/" + projectID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	admin := newTestClient(t)
	admin.LoginAs(t, adminEmail, seedPassword)

	resp, err = admin.GET("/api/v1/activities?actor_id=" + managerID + "&entity_id=" + projectID + "&action=deleted")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []struct {
			Action   string `json:"action"`
			EntityID string `json:"entity_id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "deleted", result.Data[0].Action)
	assert.Equal(t, projectID, result.Data[0].EntityID)
}
