package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TestServiceErrorResponseDuplicateKey verifies a lost race on a unique
// index reads as a retryable 409, not an internal error.
func TestServiceErrorResponseDuplicateKey(t *testing.T) {
	app := fiber.New()
	app.Post("/claim", func(c *fiber.Ctx) error {
		return serviceErrorResponse(c, gorm.ErrDuplicatedKey, "gacha.claim")
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/claim", nil))
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 409 {
		t.Errorf("Expected status 409, got %d", resp.StatusCode)
	}

	var envelope map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if envelope["type"] != "gacha.conflict" {
		t.Errorf("Expected type gacha.conflict, got %v", envelope["type"])
	}
	if envelope["ok"] != false {
		t.Errorf("Expected ok false, got %v", envelope["ok"])
	}
}

// TestServiceErrorResponseUnknown keeps unrecognized errors on the 500 path
func TestServiceErrorResponseUnknown(t *testing.T) {
	app := fiber.New()
	app.Post("/claim", func(c *fiber.Ctx) error {
		return serviceErrorResponse(c, errors.New("disk on fire"), "gacha.claim")
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/claim", nil))
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Errorf("Expected status 500, got %d", resp.StatusCode)
	}
}
