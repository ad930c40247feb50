package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/quizroom/gachadb/internal/handlers"
	"github.com/quizroom/gachadb/internal/models"
	"github.com/quizroom/gachadb/internal/services"
)

// TestGetInventoryEndpoint tests GET /api/gacha/inventory
func TestGetInventoryEndpoint(t *testing.T) {
	db := setupTestDB(t)
	createProfile(t, db, "alice", "Alice", 120)
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 7, "Shiny", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/gacha/inventory", authStub("alice"), handler.GetInventory)

	req := httptest.NewRequest("GET", "/api/gacha/inventory", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["userName"] != "Alice" {
		t.Errorf("Expected Alice, got %v", result["userName"])
	}
	items, ok := result["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Errorf("Expected 1 item, got %v", result["items"])
	}
}

// TestGetInventoryEndpointNotFound tests the 404 mapping for missing profiles
func TestGetInventoryEndpointNotFound(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/gacha/inventory", authStub("ghost"), handler.GetInventory)

	req := httptest.NewRequest("GET", "/api/gacha/inventory", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

// TestListCourseItemsEndpoint tests GET /api/gacha/:course/items
func TestListCourseItemsEndpoint(t *testing.T) {
	db := setupTestDB(t)
	createProfile(t, db, "alice", "Alice", 100)
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 7, "Shiny", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/gacha/:course/items", handler.ListCourseItems)

	req := httptest.NewRequest("GET", "/api/gacha/course-1/items", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var items []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0]["displayName"] != "Shiny" || items[0]["holderName"] != "Alice" {
		t.Errorf("Unexpected item: %v", items[0])
	}
}

// TestGetItemDetailEndpoint tests GET /api/gacha/:course/items/:item
func TestGetItemDetailEndpoint(t *testing.T) {
	db := setupTestDB(t)
	createProfile(t, db, "alice", "Alice", 100)
	createProfile(t, db, "bob", "Bob", 100)
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 7, "Shiny", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}
	if _, err := services.Claim(db, testConfig(), "bob", "course-1", 7, "", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Get("/api/gacha/:course/items/:item", handler.GetItemDetail)

	req := httptest.NewRequest("GET", "/api/gacha/course-1/items/7", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var detail map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	queue, ok := detail["successionQueue"].([]interface{})
	if !ok || len(queue) != 1 {
		t.Errorf("Expected 1 queued holder, got %v", detail["successionQueue"])
	}

	// Unknown item maps to 404
	req = httptest.NewRequest("GET", "/api/gacha/course-1/items/99", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("Expected status 404 for unknown item, got %d", resp.StatusCode)
	}

	// Non-numeric item maps to 400
	req = httptest.NewRequest("GET", "/api/gacha/course-1/items/seven", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400 for bad item id, got %d", resp.StatusCode)
	}
}

// TestRenameItemEndpoint tests POST /api/gacha/:course/items/:item/name
func TestRenameItemEndpoint(t *testing.T) {
	db := setupTestDB(t)
	createProfile(t, db, "alice", "Alice", 100)
	createProfile(t, db, "bob", "Bob", 100)
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 7, "Shiny", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}
	if _, err := services.Claim(db, testConfig(), "bob", "course-1", 7, "", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/gacha/:course/items/:item/name", authStub("alice"), handler.RenameItem)

	body, _ := json.Marshal(map[string]interface{}{"name": "Shinier"})
	req := httptest.NewRequest("POST", "/api/gacha/course-1/items/7/name", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["displayName"] != "Shinier" {
		t.Errorf("Expected displayName Shinier, got %v", result["displayName"])
	}
}

// TestRenameItemEndpointNotPrimary tests the 412 mapping for secondaries
func TestRenameItemEndpointNotPrimary(t *testing.T) {
	db := setupTestDB(t)
	createProfile(t, db, "alice", "Alice", 100)
	createProfile(t, db, "bob", "Bob", 100)
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 7, "Shiny", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}
	if _, err := services.Claim(db, testConfig(), "bob", "course-1", 7, "", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/gacha/:course/items/:item/name", authStub("bob"), handler.RenameItem)

	body, _ := json.Marshal(map[string]interface{}{"name": "Mine"})
	req := httptest.NewRequest("POST", "/api/gacha/course-1/items/7/name", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 412 {
		t.Errorf("Expected status 412, got %d", resp.StatusCode)
	}
}

// TestEquipItemEndpoint tests POST /api/gacha/:course/items/:item/equip
func TestEquipItemEndpoint(t *testing.T) {
	db := setupTestDB(t)
	createProfile(t, db, "alice", "Alice", 100)
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 1, "One", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}
	if _, err := services.Claim(db, testConfig(), "alice", "course-1", 2, "Two", nil); err != nil {
		t.Fatalf("Setup claim failed: %v", err)
	}

	app := fiber.New()
	handler := &handlers.CollectionHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/gacha/:course/items/:item/equip", authStub("alice"), handler.EquipItem)

	req := httptest.NewRequest("POST", "/api/gacha/course-1/items/2/equip", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var holding models.Holding
	db.Where("user_id = ? AND item_id = ?", "alice", 2).First(&holding)
	if !holding.Equipped {
		t.Error("Expected item 2 equipped")
	}
}

// TestCreditExperienceEndpoint tests POST /api/gacha/admin/experience
func TestCreditExperienceEndpoint(t *testing.T) {
	db := setupTestDB(t)

	app := fiber.New()
	handler := &handlers.AdminHandler{DB: db, Cfg: testConfig()}
	app.Post("/api/gacha/admin/experience", authStub("admin"), handler.CreditExperience)

	// Array form
	body, _ := json.Marshal(map[string]interface{}{
		"credits": []map[string]interface{}{
			{"userId": "alice", "userName": "Alice", "amount": 30},
			{"userId": "bob", "userName": "Bob", "amount": 55},
		},
	})
	req := httptest.NewRequest("POST", "/api/gacha/admin/experience", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["applied"] != float64(2) {
		t.Errorf("Expected 2 applied, got %v", result["applied"])
	}

	// Single-object form through FlexList
	body = []byte(`{"credits": {"userId": "alice", "amount": 20}}`)
	req = httptest.NewRequest("POST", "/api/gacha/admin/experience", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200 for single object, got %d", resp.StatusCode)
	}

	var profile models.GachaProfile
	db.Where("user_id = ?", "alice").First(&profile)
	if profile.TotalExperience != 50 {
		t.Errorf("Expected 50 experience, got %d", profile.TotalExperience)
	}

	// Invalid credit maps to 400
	body = []byte(`{"credits": [{"userId": "", "amount": 10}]}`)
	req = httptest.NewRequest("POST", "/api/gacha/admin/experience", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}
