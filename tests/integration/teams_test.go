//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/testutil"
)

func TestCreateTeam(t *testing.T) {
	manager := loginManager(t)

	resp, err := manager.POST("/api/v1/teams", map[string]interface{}{
		"name":        "Platform",
		"description": "Infrastructure and tooling",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID        string   `json:"id"`
			Name      string   `json:"name"`
			LeadID    string   `json:"lead_id"`
			MemberIDs []string `json:"member_ids"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.NotEmpty(t, result.Data.ID)
	assert.Equal(t, currentUserID(t, manager), result.Data.LeadID)
}

func TestMemberCannotCreateTeam(t *testing.T) {
	client := newTestClient(t)
	signupMember(t, client, "Plain Member")

	resp, err := client.POST("/api/v1/teams", map[string]string{
		"name": "Forbidden Team",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestTeamMembers(t *testing.T) {
	manager := loginManager(t)
	teamID := createTestTeam(t, manager, "Membership Team")

	member := newTestClient(t)
	memberID, _ := signupMember(t, member, "Team Member")

	// Add
	resp, err := manager.POST("/api/v1/teams/"+teamID+"/members/"+memberID, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			MemberIDs []string `json:"member_ids"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Contains(t, result.Data.MemberIDs, memberID)

	// Adding twice conflicts
	resp, err = manager.POST("/api/v1/teams/"+teamID+"/members/"+memberID, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Adding an unknown user is a 404
	resp, err = manager.POST("/api/v1/teams/"+teamID+"/members/00000000-0000-0000-0000-000000000000", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Remove
	resp, err = manager.DELETE("/api/v1/teams/" + teamID + "/members/" + memberID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &result)
	assert.NotContains(t, result.Data.MemberIDs, memberID)
}

func TestMemberCannotUpdateTeam(t *testing.T) {
	manager := loginManager(t)
	teamID := createTestTeam(t, manager, "Locked Team")

	member := newTestClient(t)
	signupMember(t, member, "Plain Member")

	resp, err := member.PATCH("/api/v1/teams/"+teamID, map[string]string{
		"name": "Hijacked Team",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestListTeamsByMember(t *testing.T) {
	manager := loginManager(t)
	teamID := createTestTeam(t, manager, "Searchable Team")

	member := newTestClient(t)
	memberID, _ := signupMember(t, member, "Searchable Member")

	resp, err := manager.POST("/api/v1/teams/"+teamID+"/members/"+memberID, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = member.GET("/api/v1/teams?member_id=" + memberID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.Len(t, result.Data, 1)
	assert.Equal(t, teamID, result.Data[0].ID)
}

func TestDeleteTeam(t *testing.T) {
	manager := loginManager(t)
	teamID := createTestTeam(t, manager, "Doomed Team")

	resp, err := manager.DELETE("/api/v1/teams/" + teamID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = manager.GET("/api/v1/teams/" + teamID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
