//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/testutil"
)

// signupMember registers a fresh member account, logs the client in as
// it, and returns the new user's id and email.
func signupMember(t *testing.T, client *testutil.Client, name string) (id, email string) {
	t.Helper()

	email = testutil.RandomEmail("member")
	resp, err := client.POST("/api/v1/auth/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": seedPassword,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.User.ID)
	require.NotEmpty(t, result.Data.Tokens.AccessToken)

	client.Token = result.Data.Tokens.AccessToken
	return result.Data.User.ID, email
}

// loginManager returns a client authenticated as the seeded manager.
// Project and team creation are manager-level operations.
func loginManager(t *testing.T) *testutil.Client {
	t.Helper()
	client := newTestClient(t)
	client.LoginAs(t, managerEmail, seedPassword)
	return client
}

// currentUserID returns the id of the user the client is logged in as.
func currentUserID(t *testing.T, client *testutil.Client) string {
	t.Helper()

	resp, err := client.GET("/api/v1/auth/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

type projectOption func(map[string]interface{})

func withMemberIDs(ids ...string) projectOption {
	return func(m map[string]interface{}) {
		m["member_ids"] = ids
	}
}

func withDescription(description string) projectOption {
	return func(m map[string]interface{}) {
		m["description"] = description
	}
}

// createTestProject creates a project and returns its ID.
func createTestProject(t *testing.T, client *testutil.Client, name string, opts ...projectOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"name": name,
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/projects", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

type taskOption func(map[string]interface{})

func withAssignee(userID string) taskOption {
	return func(m map[string]interface{}) {
		m["assignee_id"] = userID
	}
}

func withPriority(priority string) taskOption {
	return func(m map[string]interface{}) {
		m["priority"] = priority
	}
}

func withTags(tags ...string) taskOption {
	return func(m map[string]interface{}) {
		m["tags"] = tags
	}
}

// createTestTask creates a task in the given project and returns its ID.
func createTestTask(t *testing.T, client *testutil.Client, projectID, title string, opts ...taskOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"title":      title,
		"project_id": projectID,
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/tasks", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// createTestTeam creates a team and returns its ID. Teams are created by
// managers, so the client must hold a manager or admin token.
func createTestTeam(t *testing.T, client *testutil.Client, name string) string {
	t.Helper()

	resp, err := client.POST("/api/v1/teams", map[string]interface{}{
		"name": name,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// moveTaskStatus moves a task to a new workflow status.
func moveTaskStatus(t *testing.T, client *testutil.Client, taskID, status string) {
	t.Helper()

	resp, err := client.PATCH("/api/v1/tasks/"+taskID+"/status", map[string]string{
		"status": status,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
