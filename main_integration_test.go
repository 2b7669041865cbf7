//go:build integration

package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAppBinary     = "./bookxchange_test_app"
	testAppPort       = "8089"
	testServicePort   = "8091"
	testAppURL        = "http://localhost:" + testAppPort
	testServiceApiURL = "http://localhost:" + testServicePort
	startupTimeout    = 15 * time.Second
	pingEndpoint      = testAppURL + "/v1/ping"
	testAdminEmail    = "admin@integration.test"
	testAdminPassword = "AdminP@ss123"
)

var testDbName = fmt.Sprintf("bookxchange_it_%d", time.Now().Unix())

// TestMain builds the binary, runs it in "all" mode against a throwaway database and
// drops that database afterwards.
func TestMain(m *testing.M) {
	defer func() {
		log.Println("Integration Test Teardown: Cleaning up test binary...")
		_ = os.Remove(testAppBinary)
	}()

	godotenv.Load()
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set, skipping integration tests")
		return
	}

	log.Println("Integration Test Setup: Building application...")
	buildOutput, err := exec.Command("go", "build", "-o", testAppBinary, ".").CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}
	defer dropTestDatabase()

	appCmd := exec.Command(testAppBinary, "-m", "all")
	appCmd.Env = append(os.Environ(),
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServicePort,
		"MONGO_DB_NAME="+testDbName,
		"JWT_SECRET=integration-test-secret",
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"RATE_LIMIT_BUCKET_SIZE=1000",
		"RATE_LIMIT_REFILL_RATE=1000",
		"ADMIN_EMAIL="+testAdminEmail,
		"ADMIN_PASSWORD="+testAdminPassword,
		"SMTP_FROM_ADDRESS=test@example.com",
		"TURNSTILE_SECRET_KEY=",
	)
	appCmd.Stderr = os.Stderr
	appCmd.Stdout = os.Stdout
	if err := appCmd.Start(); err != nil {
		log.Printf("Failed to start application: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Println("Integration Test Teardown: Stopping application...")
		if err := appCmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = appCmd.Process.Kill()
			return
		}
		_, _ = appCmd.Process.Wait()
	}()

	startTime := time.Now()
	ready := false
	for time.Since(startTime) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				ready = true
				break
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !ready {
		log.Printf("Application failed to start within %v", startupTimeout)
		return
	}

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func dropTestDatabase() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		log.Printf("Failed to connect for cleanup: %v", err)
		return
	}
	defer client.Disconnect(ctx)
	if err := client.Database(testDbName).Drop(ctx); err != nil {
		log.Printf("Failed to drop %s: %v", testDbName, err)
	}
}

func doJSON(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, testAppURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func signup(t *testing.T, name string) (token, userID string) {
	t.Helper()
	email := fmt.Sprintf("%s_%d@integration.test", name, time.Now().UnixNano())
	status, body := doJSON(t, "POST", "/v1/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "StrongP@ss123",
	})
	require.Equal(t, http.StatusCreated, status, "signup %s: %v", name, body)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), user["id"].(string)
}

func userEmail(t *testing.T, token string) string {
	t.Helper()
	status, body := doJSON(t, "GET", "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	return body["user"].(map[string]interface{})["email"].(string)
}

func getTestEmail(t *testing.T, kind, recipient string) map[string]interface{} {
	t.Helper()
	payload, _ := json.Marshal(map[string]interface{}{
		"method":    "getTestEmail",
		"arguments": []string{kind, recipient},
	})
	resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "no %s email for %s", kind, recipient)

	var body struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Data
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_BookLifecycle(t *testing.T) {
	sellerToken, _ := signup(t, "seller")
	buyerToken, _ := signup(t, "buyer")

	status, book := doJSON(t, "POST", "/v1/books", sellerToken, map[string]interface{}{
		"title": "Engineering Physics", "subject": "Physics", "semester": "Semester 1",
		"price": 250, "condition": "Good",
	})
	require.Equal(t, http.StatusCreated, status, "create: %v", book)
	bookID := book["id"].(string)
	assert.Equal(t, "available", book["status"])
	assert.Equal(t, "No description provided.", book["description"])

	status, _ = doJSON(t, "PUT", "/v1/books/"+bookID+"/request", sellerToken, nil)
	assert.Equal(t, http.StatusForbidden, status, "seller cannot request own book")

	status, book = doJSON(t, "PUT", "/v1/books/"+bookID+"/request", buyerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "requested", book["status"])
	assert.Equal(t, "buyer", book["requestedByName"])

	status, _ = doJSON(t, "PUT", "/v1/books/"+bookID+"/request", buyerToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	requested := getTestEmail(t, "book_requested", userEmail(t, sellerToken))
	assert.Contains(t, requested["subject"], "Engineering Physics")

	status, _ = doJSON(t, "PUT", "/v1/books/"+bookID+"/sold", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, book = doJSON(t, "PUT", "/v1/books/"+bookID+"/sold", sellerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sold", book["status"])

	sold := getTestEmail(t, "book_sold", userEmail(t, buyerToken))
	assert.Contains(t, sold["subject"], "marked sold")

	status, _ = doJSON(t, "PUT", "/v1/books/"+bookID+"/sold", sellerToken, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestIntegration_AdminDeletesUser(t *testing.T) {
	status, body := doJSON(t, "POST", "/v1/auth/login", "", map[string]string{
		"email": testAdminEmail, "password": testAdminPassword,
	})
	require.Equal(t, http.StatusOK, status, "admin login: %v", body)
	adminToken := body["token"].(string)

	userToken, userID := signup(t, "leaver")
	status, _ = doJSON(t, "POST", "/v1/books", userToken, map[string]interface{}{
		"title": "Linear Algebra", "subject": "Mathematics", "semester": "Semester 2",
		"price": 100, "condition": "Fair",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = doJSON(t, "GET", "/v1/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, "DELETE", "/v1/admin/users/"+userID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User deleted", body["message"])

	status, _ = doJSON(t, "GET", "/v1/auth/me", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
