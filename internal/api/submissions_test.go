package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/udovin/grader/internal/models"
)

func createTestSubmission(tb testing.TB) Submission {
	rec := testRequest(
		tb, http.MethodPost,
		fmt.Sprintf("/api/v0/problems/%d/submissions", testProblem.ID),
		testUser.ID,
		map[string]any{
			"language": "Cpp",
			"code":     []map[string]any{{"id": 1, "text": "int main() {}"}},
		},
	)
	expectStatus(tb, http.StatusCreated, rec.Code)
	var resp Submission
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		tb.Fatal("Error:", err)
	}
	return resp
}

func TestCreateSubmission(t *testing.T) {
	testSetup(t)
	defer testTeardown(t)
	submission := createTestSubmission(t)
	if submission.ID == 0 {
		t.Fatal("Invalid ID of submission")
	}
	if submission.Verdict != models.Judging {
		t.Fatalf("Expected %v, got %v", models.Judging, submission.Verdict)
	}
	if submission.UserID != testUser.ID {
		t.Fatalf("Expected %v, got %v", testUser.ID, submission.UserID)
	}
	if testPublisher.count != 1 {
		t.Fatalf("Expected %v, got %v", 1, testPublisher.count)
	}
}

func TestCreateSubmission_Errors(t *testing.T) {
	testSetup(t)
	defer testTeardown(t)
	path := fmt.Sprintf("/api/v0/problems/%d/submissions", testProblem.ID)
	code := []map[string]any{{"id": 1, "text": "print(1)"}}
	rec := testRequest(t, http.MethodPost, path, 0, map[string]any{
		"language": "Cpp", "code": code,
	})
	expectStatus(t, http.StatusUnauthorized, rec.Code)
	rec = testRequest(t, http.MethodPost, path, testUser.ID, map[string]any{
		"language": "Python3", "code": code,
	})
	expectStatus(t, http.StatusConflict, rec.Code)
	rec = testRequest(t, http.MethodPost, path, testUser.ID, map[string]any{
		"language": "Cpp",
	})
	expectStatus(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal("Error:", err)
	}
	if _, ok := resp.InvalidFields["code"]; !ok {
		t.Fatalf("Expected invalid code field, got %v", resp.InvalidFields)
	}
	rec = testRequest(
		t, http.MethodPost, "/api/v0/problems/100/submissions", testUser.ID,
		map[string]any{"language": "Cpp", "code": code},
	)
	expectStatus(t, http.StatusNotFound, rec.Code)
	rec = testRequest(
		t, http.MethodPost, "/api/v0/problems/abc/submissions", testUser.ID,
		map[string]any{"language": "Cpp", "code": code},
	)
	expectStatus(t, http.StatusBadRequest, rec.Code)
	if testPublisher.count != 0 {
		t.Fatalf("Expected %v, got %v", 0, testPublisher.count)
	}
}

func TestObserveSubmission(t *testing.T) {
	testSetup(t)
	defer testTeardown(t)
	submission := createTestSubmission(t)
	path := fmt.Sprintf("/api/v0/submissions/%d", submission.ID)
	rec := testRequest(t, http.MethodGet, path, testUser.ID, nil)
	expectStatus(t, http.StatusOK, rec.Code)
	var resp Submission
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal("Error:", err)
	}
	if resp.ID != submission.ID {
		t.Fatalf("Expected %v, got %v", submission.ID, resp.ID)
	}
	if len(resp.Code) != 1 || resp.Code[0].Text != "int main() {}" {
		t.Fatalf("Unexpected code: %v", resp.Code)
	}
	rec = testRequest(t, http.MethodGet, path+"/results", testUser.ID, nil)
	expectStatus(t, http.StatusOK, rec.Code)
	var results SubmissionTestcaseResults
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatal("Error:", err)
	}
	if len(results.Results) != 0 {
		t.Fatalf("Expected %v, got %v", 0, len(results.Results))
	}
	rec = testRequest(t, http.MethodGet, path, testOther.ID, nil)
	expectStatus(t, http.StatusForbidden, rec.Code)
	rec = testRequest(t, http.MethodGet, "/api/v0/submissions/100", testUser.ID, nil)
	expectStatus(t, http.StatusNotFound, rec.Code)
	rec = testRequest(t, http.MethodGet, "/api/v0/submissions/abc", testUser.ID, nil)
	expectStatus(t, http.StatusBadRequest, rec.Code)
}
